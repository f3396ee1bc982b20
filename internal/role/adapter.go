package role

import (
	"context"

	dErrors "outreach/pkg/domain-errors"
)

// ErrInvalidRoleCode reports that none of the supplied codes exist in the
// catalog.
var ErrInvalidRoleCode = dErrors.New(dErrors.CodeBadRequest, "invalid role code")

// Catalog is the external role catalog boundary.
type Catalog interface {
	FindByCodes(ctx context.Context, codes []string) ([]Role, error)
}

// Adapter resolves role codes to catalog records.
type Adapter struct {
	catalog Catalog
}

// NewAdapter builds an adapter over the given catalog.
func NewAdapter(catalog Catalog) *Adapter {
	return &Adapter{catalog: catalog}
}

// Resolve looks up the given codes, projecting {id, code}. Zero records for
// a non-empty code list is ErrInvalidRoleCode. The sentinel never reaches
// this path; callers pass it through Sentinel() without a catalog call.
func (a *Adapter) Resolve(ctx context.Context, codes []string) ([]Role, error) {
	if len(codes) == 0 {
		return nil, ErrInvalidRoleCode
	}
	roles, err := a.catalog.FindByCodes(ctx, codes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "role catalog lookup failed")
	}
	if len(roles) == 0 {
		return nil, ErrInvalidRoleCode
	}
	return roles, nil
}
