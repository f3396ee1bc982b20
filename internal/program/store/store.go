// Package store persists program documents. The scope field is only ever
// touched through the three atomic primitives (replace-field, add-unique-
// members, remove-members) so a single mutation call can never lose a
// concurrent writer's members.
package store

import (
	"context"

	"outreach/internal/program"
	"outreach/internal/role"
)

// Filter selects program documents. Zero values mean "any". Extra carries
// caller-supplied pairs merged verbatim into the storage query; the
// authorization query builder coerces identifier-shaped values before they
// get here.
type Filter struct {
	ID           string
	CreatedBy    string
	Status       string
	IsDeleted    *bool
	IsPrivate    *bool
	RequireScope bool
	RoleCodes    []string // matches scope.roles.code
	EntityIDs    []string // matches scope.entities
	SearchText   string   // case-insensitive over externalId, name, description
	Extra        map[string]any
}

// Page is one listing page plus the total match count.
type Page struct {
	Data  []program.Program `json:"data"`
	Count int64             `json:"count"`
}

// Store is the program persistence boundary. Implementations return
// sentinel.ErrNotFound when the targeted document does not exist; every
// method is a single atomic storage call. Sequences of calls are not
// transactional — see the scope mutator for the one known race window.
type Store interface {
	Create(ctx context.Context, p *program.Program) (string, error)
	FindOne(ctx context.Context, f Filter) (*program.Program, error)
	FindPage(ctx context.Context, f Filter, page, pageSize int) (Page, error)
	UpdateFields(ctx context.Context, id string, set map[string]any) error

	ReplaceScope(ctx context.Context, id string, scope program.Scope) error
	SetScopeRoles(ctx context.Context, id string, roles []role.Role) error
	AddScopeRoles(ctx context.Context, id string, roles []role.Role) error
	RemoveScopeRoles(ctx context.Context, id string, roles []role.Role) error
	AddScopeEntities(ctx context.Context, id string, entityIDs []string) error
	RemoveScopeEntities(ctx context.Context, id string, refs []string) error
}
