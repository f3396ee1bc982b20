package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"outreach/internal/program"
	"outreach/internal/program/store"
	"outreach/internal/role"
	dErrors "outreach/pkg/domain-errors"
	pkgstrings "outreach/pkg/platform/strings"
)

// ErrNoLocationID reports a targeting request whose locations yielded no
// usable IDs.
var ErrNoLocationID = dErrors.New(dErrors.CodeBadRequest, "no location id found")

// BuildTargetingFilter translates a caller's role and locations into the
// authorization filter. The sentinel code always participates: a program
// scoped to all roles is visible to every role. Extra filter pairs pass
// through verbatim except identifier-shaped strings, which coerce to typed
// IDs so they compare against stored identifiers.
func BuildTargetingFilter(req program.TargetingRequest) (store.Filter, error) {
	locationIDs := make([]string, 0, len(req.Locations))
	for _, id := range req.Locations {
		locationIDs = append(locationIDs, id)
	}
	locationIDs = pkgstrings.DedupeAndTrim(locationIDs)
	if len(locationIDs) == 0 {
		return store.Filter{}, ErrNoLocationID
	}

	f := store.Filter{
		Status:    program.StatusActive,
		IsDeleted: boolPtr(false),
		RoleCodes: append([]string{role.All}, pkgstrings.SplitCSV(req.Role)...),
		EntityIDs: locationIDs,
	}

	if len(req.Filter) > 0 {
		f.Extra = make(map[string]any, len(req.Filter))
		for key, value := range req.Filter {
			f.Extra[key] = coerceID(value)
		}
	}
	return f, nil
}

// coerceID turns hex-encoded identifier strings into typed IDs; everything
// else passes through unchanged.
func coerceID(value any) any {
	text, ok := value.(string)
	if !ok {
		return value
	}
	if oid, err := bson.ObjectIDFromHex(text); err == nil {
		return oid
	}
	return value
}

// ForUserRoleAndLocation returns the page of active programs whose scope
// admits the caller's role at any of the caller's locations.
func (s *Service) ForUserRoleAndLocation(ctx context.Context, req program.TargetingRequest, page, pageSize int) (store.Page, error) {
	start := time.Now()
	defer s.observeTargeting(start)

	f, err := BuildTargetingFilter(req)
	if err != nil {
		return store.Page{}, err
	}
	result, err := s.programs.FindPage(ctx, f, normalizePage(page), normalizePageSize(pageSize))
	if err != nil {
		return store.Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query targeted programs")
	}
	return result, nil
}
