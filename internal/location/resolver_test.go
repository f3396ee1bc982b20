package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "outreach/pkg/domain-errors"
)

// fakeDirectory answers searches from canned data keyed by id/code.
type fakeDirectory struct {
	byID   map[string]Location
	byCode map[string]Location
	types  map[string]string
}

func (f *fakeDirectory) Search(_ context.Context, req SearchRequest) (SearchResult, error) {
	var data []Location
	for _, id := range req.IDs {
		if loc, ok := f.byID[id]; ok && (req.Type == "" || loc.Type == req.Type) {
			data = append(data, loc)
		}
	}
	for _, code := range req.Codes {
		if loc, ok := f.byCode[code]; ok && (req.Type == "" || loc.Type == req.Type) {
			data = append(data, loc)
		}
	}
	if len(req.IDs) == 0 && len(req.Codes) == 0 && req.Type != "" {
		if canonical, ok := f.types[req.Type]; ok {
			data = append(data, Location{Type: canonical})
		}
	}
	if len(data) == 0 {
		return SearchResult{Success: false}, nil
	}
	return SearchResult{Success: true, Data: data}, nil
}

const (
	districtID = "95bf5bb3-8ecb-4dc1-9c33-92b39b56fb51"
	stateID    = "3f9d2b1c-5f6a-4f08-9f4f-2f3a1f0b6c7d"
)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byID: map[string]Location{
			districtID: {ID: districtID, Code: "DIST01", ExternalID: "DIST01", Type: "district"},
			stateID:    {ID: stateID, Code: "ST01", ExternalID: "ST01", Type: "state"},
		},
		byCode: map[string]Location{
			"DIST01": {ID: districtID, Code: "DIST01", ExternalID: "DIST01", Type: "district"},
			"DIST02": {ID: "7e7a67a1-9e2f-4d0e-8fd9-6a3f44c2a111", Code: "DIST02", ExternalID: "DIST02", Type: "district"},
		},
		types: map[string]string{"district": "district", "state": "state"},
	}
}

func TestSplit(t *testing.T) {
	ids, codes := Split([]string{districtID, "DIST01", stateID, "ST01"})
	assert.Equal(t, []string{districtID, stateID}, ids)
	assert.Equal(t, []string{"DIST01", "ST01"}, codes)

	ids, codes = Split(nil)
	assert.Empty(t, ids)
	assert.Empty(t, codes)
}

func TestResolveMixedReferences(t *testing.T) {
	resolver := NewResolver(newFakeDirectory())

	ids, codes := Split([]string{districtID, "DIST02"})
	resolved, err := resolver.Resolve(context.Background(), "district", ids, codes)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{districtID, "7e7a67a1-9e2f-4d0e-8fd9-6a3f44c2a111"}, resolved)
}

func TestResolveDeduplicatesAcrossLookups(t *testing.T) {
	// districtID and DIST01 are the same location surfaced by both lookups.
	resolver := NewResolver(newFakeDirectory())

	resolved, err := resolver.Resolve(context.Background(), "district", []string{districtID}, []string{"DIST01"})
	require.NoError(t, err)
	assert.Equal(t, []string{districtID}, resolved)
}

func TestResolveEmptyBatches(t *testing.T) {
	resolver := NewResolver(newFakeDirectory())

	resolved, err := resolver.Resolve(context.Background(), "district", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolveNothingFound(t *testing.T) {
	resolver := NewResolver(newFakeDirectory())

	_, err := resolver.Resolve(context.Background(), "district", nil, []string{"NOPE"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestResolveWrongTypeFindsNothing(t *testing.T) {
	resolver := NewResolver(newFakeDirectory())

	_, err := resolver.Resolve(context.Background(), "state", nil, []string{"DIST01"})
	require.ErrorIs(t, err, ErrEntitiesNotFound)
}

func TestResolveType(t *testing.T) {
	resolver := NewResolver(newFakeDirectory())

	canonical, err := resolver.ResolveType(context.Background(), "district")
	require.NoError(t, err)
	assert.Equal(t, "district", canonical)

	_, err = resolver.ResolveType(context.Background(), "galaxy")
	require.ErrorIs(t, err, ErrEntityTypeNotFound)
}
