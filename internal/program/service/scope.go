package service

import (
	"context"
	"errors"

	"outreach/internal/location"
	"outreach/internal/program"
	"outreach/internal/program/store"
	"outreach/internal/role"
	dErrors "outreach/pkg/domain-errors"
	"outreach/pkg/platform/sentinel"
)

// SetScope replaces a program's scope wholesale. The request's entityType
// resolves against the directory and the canonical type becomes the stored
// granularity; entity references resolve against it, and roles resolve
// against the catalog unless the sentinel is requested. Members absent from
// the request are absent from the new scope.
func (s *Service) SetScope(ctx context.Context, programID string, req program.ScopeRequest) error {
	if _, err := s.findScopedProgram(ctx, programID, false); err != nil {
		return err
	}

	var scope program.Scope
	if req.EntityType != "" {
		canonical, err := s.resolver.ResolveType(ctx, req.EntityType)
		if err != nil {
			return err
		}
		scope.EntityType = canonical
	}

	if len(req.Entities) > 0 {
		ids, codes := location.Split(req.Entities)
		resolved, err := s.resolver.Resolve(ctx, scope.EntityType, ids, codes)
		if err != nil {
			return err
		}
		scope.Entities = resolved
	}

	if req.Roles != nil {
		roles, err := s.resolveRoles(ctx, req.Roles)
		if err != nil {
			return err
		}
		scope.Roles = roles
	}

	if err := s.programs.ReplaceScope(ctx, programID, scope); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrProgramNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set program scope")
	}
	s.logger.InfoContext(ctx, "program scope replaced",
		"program_id", programID,
		"entity_type", scope.EntityType,
		"entities", len(scope.Entities),
		"roles", len(scope.Roles),
	)
	return nil
}

// AddRolesInScope admits roles into an existing scope. The sentinel replaces
// the whole role set; explicit codes first evict the sentinel, then add as
// set members. The evict and the add are two separate atomic writes; a
// concurrent sentinel writer between them can reintroduce it.
func (s *Service) AddRolesInScope(ctx context.Context, programID string, req program.RolesRequest) error {
	if _, err := s.findScopedProgram(ctx, programID, true); err != nil {
		return err
	}

	if req.All {
		return s.applyScopeWrite(ctx, programID, "failed to add scope roles",
			func() error { return s.programs.SetScopeRoles(ctx, programID, role.Sentinel()) })
	}

	roles, err := s.roles.Resolve(ctx, req.Codes)
	if err != nil {
		return err
	}
	if err := s.applyScopeWrite(ctx, programID, "failed to add scope roles",
		func() error { return s.programs.RemoveScopeRoles(ctx, programID, role.Sentinel()) }); err != nil {
		return err
	}
	return s.applyScopeWrite(ctx, programID, "failed to add scope roles",
		func() error { return s.programs.AddScopeRoles(ctx, programID, roles) })
}

// RemoveRolesInScope evicts roles from an existing scope. Explicit codes
// resolve before removal so stored {id, code} members match; the sentinel
// form removes the sentinel itself.
func (s *Service) RemoveRolesInScope(ctx context.Context, programID string, req program.RolesRequest) error {
	if _, err := s.findScopedProgram(ctx, programID, true); err != nil {
		return err
	}

	roles := role.Sentinel()
	if !req.All {
		var err error
		roles, err = s.roles.Resolve(ctx, req.Codes)
		if err != nil {
			return err
		}
	}
	return s.applyScopeWrite(ctx, programID, "failed to remove scope roles",
		func() error { return s.programs.RemoveScopeRoles(ctx, programID, roles) })
}

// AddEntitiesInScope admits locations into an existing scope. References
// resolve against the granularity stored at scope creation, never a
// caller-supplied one.
func (s *Service) AddEntitiesInScope(ctx context.Context, programID string, refs []string) error {
	p, err := s.findScopedProgram(ctx, programID, true)
	if err != nil {
		return err
	}

	ids, codes := location.Split(refs)
	resolved, err := s.resolver.Resolve(ctx, p.Scope.EntityType, ids, codes)
	if err != nil {
		return err
	}
	if len(resolved) == 0 {
		return location.ErrEntitiesNotFound
	}
	return s.applyScopeWrite(ctx, programID, "failed to add scope entities",
		func() error { return s.programs.AddScopeEntities(ctx, programID, resolved) })
}

// RemoveEntitiesInScope evicts the given references verbatim. No directory
// resolution happens on removal: a member leaves only when the stored value
// matches the request exactly. A scope with no entities has nothing to
// remove from.
func (s *Service) RemoveEntitiesInScope(ctx context.Context, programID string, refs []string) error {
	p, err := s.findScopedProgram(ctx, programID, true)
	if err != nil {
		return err
	}
	if len(p.Scope.Entities) == 0 {
		return location.ErrEntitiesNotFound
	}
	return s.applyScopeWrite(ctx, programID, "failed to remove scope entities",
		func() error { return s.programs.RemoveScopeEntities(ctx, programID, refs) })
}

func (s *Service) resolveRoles(ctx context.Context, req *program.RolesRequest) ([]role.Role, error) {
	if req.All {
		return role.Sentinel(), nil
	}
	return s.roles.Resolve(ctx, req.Codes)
}

// findScopedProgram loads a live, non-private program; scope mutations never
// target private programs. With requireScope set, a program that has no
// scope yet is also ErrProgramNotFound.
func (s *Service) findScopedProgram(ctx context.Context, programID string, requireScope bool) (*program.Program, error) {
	p, err := s.programs.FindOne(ctx, store.Filter{
		ID:           programID,
		IsDeleted:    boolPtr(false),
		IsPrivate:    boolPtr(false),
		RequireScope: requireScope,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	return p, nil
}

func (s *Service) applyScopeWrite(ctx context.Context, programID, message string, write func() error) error {
	if err := write(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrProgramNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
	return nil
}
