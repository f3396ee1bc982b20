// Package location resolves administrative location references against the
// external location directory. References arrive as a mix of canonical IDs
// and human-readable codes; everything leaving this package is a canonical
// directory ID.
package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"outreach/internal/platform/config"
	"outreach/pkg/platform/sentinel"
)

// SearchRequest mirrors the directory's search contract. Every batch is
// scoped to a location type so codes cannot match across granularities.
type SearchRequest struct {
	IDs   []string `json:"id,omitempty"`
	Codes []string `json:"code,omitempty"`
	Type  string   `json:"type,omitempty"`
}

// Location is one directory record.
type Location struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	ExternalID string `json:"externalId"`
	Type       string `json:"type"`
}

// SearchResult is the directory's response envelope. A response with
// Success=false is a valid answer meaning "no matches", not a transport
// failure.
type SearchResult struct {
	Success bool       `json:"success"`
	Data    []Location `json:"data"`
}

// Directory abstracts the external location directory so the resolver and
// scope mutations can be tested against fakes.
type Directory interface {
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
}

// HTTPDirectory talks to the real directory service.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectory builds a directory client from config.
func NewHTTPDirectory(cfg config.DirectoryConfig) *HTTPDirectory {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDirectory{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search issues one batch lookup. Transport and decode failures surface as
// sentinel.ErrUnavailable so callers can classify them as upstream faults.
func (d *HTTPDirectory) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("encode directory search: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/locations/search", bytes.NewReader(body))
	if err != nil {
		return SearchResult{}, fmt.Errorf("build directory search: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return SearchResult{}, fmt.Errorf("directory search: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SearchResult{}, fmt.Errorf("directory search: %w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SearchResult{}, fmt.Errorf("decode directory search: %w", err)
	}
	return result, nil
}
