package location

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dErrors "outreach/pkg/domain-errors"
	pkgstrings "outreach/pkg/platform/strings"
)

var (
	// ErrEntitiesNotFound reports that no reference in an attempted lookup
	// resolved to a canonical location.
	ErrEntitiesNotFound = dErrors.New(dErrors.CodeNotFound, "entities not found")
	// ErrEntityTypeNotFound reports an unknown location granularity.
	ErrEntityTypeNotFound = dErrors.New(dErrors.CodeNotFound, "entity types not found")
)

// Resolver turns mixed location references into canonical directory IDs.
type Resolver struct {
	directory Directory
}

// NewResolver builds a resolver over the given directory.
func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Split partitions references into canonical IDs and human codes without
// resolving anything. A reference is an ID iff it has canonical shape
// (directory IDs are UUIDs); everything else is treated as a code.
func Split(refs []string) (ids, codes []string) {
	for _, ref := range refs {
		if _, err := uuid.Parse(ref); err == nil {
			ids = append(ids, ref)
		} else {
			codes = append(codes, ref)
		}
	}
	return ids, codes
}

// Resolve unions the canonical IDs behind the given ID and code batches,
// both scoped to entityType. The two lookups are independent and run
// concurrently; results merge after both complete. Each canonical ID appears
// once even when both lookups surface it.
//
// With both batches empty the result is empty and no lookup is attempted.
// An attempted lookup that resolves nothing overall is ErrEntitiesNotFound.
func (r *Resolver) Resolve(ctx context.Context, entityType string, ids, codes []string) ([]string, error) {
	if len(ids) == 0 && len(codes) == 0 {
		return nil, nil
	}

	var byID, byCode []string
	group, groupCtx := errgroup.WithContext(ctx)

	if len(ids) > 0 {
		group.Go(func() error {
			result, err := r.directory.Search(groupCtx, SearchRequest{IDs: ids, Type: entityType})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeUpstream, "location directory lookup failed")
			}
			if result.Success {
				for _, entity := range result.Data {
					byID = append(byID, entity.ID)
				}
			}
			return nil
		})
	}
	if len(codes) > 0 {
		group.Go(func() error {
			result, err := r.directory.Search(groupCtx, SearchRequest{Codes: codes, Type: entityType})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeUpstream, "location directory lookup failed")
			}
			if result.Success {
				// Code matches also contribute the directory's canonical id,
				// never the original code.
				for _, entity := range result.Data {
					byCode = append(byCode, entity.ID)
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	resolved := pkgstrings.DedupeAndTrim(append(byID, byCode...))
	if len(resolved) == 0 {
		return nil, ErrEntitiesNotFound
	}
	return resolved, nil
}

// ResolveType canonicalizes a location type name against the directory.
func (r *Resolver) ResolveType(ctx context.Context, entityType string) (string, error) {
	result, err := r.directory.Search(ctx, SearchRequest{Type: entityType})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "location directory lookup failed")
	}
	if !result.Success || len(result.Data) == 0 {
		return "", ErrEntityTypeNotFound
	}
	return result.Data[0].Type, nil
}
