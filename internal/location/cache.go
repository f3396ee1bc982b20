package location

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	platformredis "outreach/internal/platform/redis"
)

// DirectoryCacheTTL bounds how long directory answers are reused. Locations
// change rarely, but scope mutations must not act on a stale directory for
// long.
var DirectoryCacheTTL = 5 * time.Minute

// CachedDirectory is a read-through cache in front of the directory.
// Only successful answers are cached; cache faults degrade to a direct call.
type CachedDirectory struct {
	next   Directory
	client *platformredis.Client
	logger *slog.Logger
}

// NewCachedDirectory wraps next with a redis cache. With a nil client the
// wrapper is a pass-through, so wiring stays unconditional in main.
func NewCachedDirectory(next Directory, client *platformredis.Client, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, client: client, logger: logger}
}

func (c *CachedDirectory) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if c.client == nil {
		return c.next.Search(ctx, req)
	}

	key := cacheKey(req)
	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var result SearchResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result, nil
		}
	}

	result, err := c.next.Search(ctx, req)
	if err != nil {
		return result, err
	}
	if result.Success {
		if encoded, err := json.Marshal(result); err == nil {
			if err := c.client.Set(ctx, key, encoded, DirectoryCacheTTL).Err(); err != nil {
				c.logger.WarnContext(ctx, "directory cache write failed", "error", err)
			}
		}
	}
	return result, nil
}

// cacheKey is order-insensitive over the batch members so equivalent
// requests share an entry.
func cacheKey(req SearchRequest) string {
	ids := append([]string(nil), req.IDs...)
	codes := append([]string(nil), req.Codes...)
	sort.Strings(ids)
	sort.Strings(codes)
	sum := sha256.Sum256([]byte(req.Type + "|" + strings.Join(ids, ",") + "|" + strings.Join(codes, ",")))
	return "outreach:directory:" + hex.EncodeToString(sum[:])
}
