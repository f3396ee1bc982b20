package role

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory catalog for tests and local development.
type MemoryCatalog struct {
	mu    sync.RWMutex
	roles map[string]Role // keyed by code
}

// NewMemoryCatalog seeds a catalog with the given roles.
func NewMemoryCatalog(roles ...Role) *MemoryCatalog {
	byCode := make(map[string]Role, len(roles))
	for _, r := range roles {
		byCode[r.Code] = r
	}
	return &MemoryCatalog{roles: byCode}
}

func (c *MemoryCatalog) FindByCodes(_ context.Context, codes []string) ([]Role, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var found []Role
	for _, code := range codes {
		if r, ok := c.roles[code]; ok {
			found = append(found, r)
		}
	}
	return found, nil
}
