package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"outreach/internal/program"
	"outreach/internal/role"
	"outreach/pkg/platform/sentinel"
)

// MemoryStore is the in-memory program store for tests and local
// development. It mirrors the document store's semantics: each method is
// one atomic step under the mutex, and scope members behave as sets.
type MemoryStore struct {
	mu       sync.RWMutex
	programs map[string]*program.Program
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{programs: make(map[string]*program.Program)}
}

func (s *MemoryStore) Create(_ context.Context, p *program.Program) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	copied := *p
	s.programs[p.ID.Hex()] = &copied
	return p.ID.Hex(), nil
}

func (s *MemoryStore) FindOne(_ context.Context, f Filter) (*program.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.programs {
		if matches(p, f) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindPage(_ context.Context, f Filter, page, pageSize int) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []program.Program
	for _, p := range s.programs {
		if matches(p, f) {
			found = append(found, *p)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})

	count := int64(len(found))
	start := pageSize * (page - 1)
	if start >= len(found) {
		return Page{Data: nil, Count: count}, nil
	}
	end := start + pageSize
	if end > len(found) {
		end = len(found)
	}
	return Page{Data: found[start:end], Count: count}, nil
}

func (s *MemoryStore) UpdateFields(_ context.Context, id string, set map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	for key, value := range set {
		switch key {
		case "name":
			p.Name = value.(string)
		case "description":
			p.Description = value.(string)
		case "keywords":
			p.Keywords = value.([]string)
		case "status":
			p.Status = value.(string)
		case "updatedBy":
			p.UpdatedBy = value.(string)
		case "updatedAt":
			p.UpdatedAt = value.(time.Time)
		default:
			return fmt.Errorf("memory store: unsupported field %q", key)
		}
	}
	return nil
}

func (s *MemoryStore) ReplaceScope(_ context.Context, id string, scope program.Scope) error {
	return s.withProgram(id, func(p *program.Program) {
		copied := scope
		p.Scope = &copied
	})
}

func (s *MemoryStore) SetScopeRoles(_ context.Context, id string, roles []role.Role) error {
	return s.withScope(id, func(scope *program.Scope) {
		scope.Roles = append([]role.Role(nil), roles...)
	})
}

func (s *MemoryStore) AddScopeRoles(_ context.Context, id string, roles []role.Role) error {
	return s.withScope(id, func(scope *program.Scope) {
		for _, r := range roles {
			if !containsRole(scope.Roles, r) {
				scope.Roles = append(scope.Roles, r)
			}
		}
	})
}

func (s *MemoryStore) RemoveScopeRoles(_ context.Context, id string, roles []role.Role) error {
	return s.withScope(id, func(scope *program.Scope) {
		var kept []role.Role
		for _, existing := range scope.Roles {
			if !containsRole(roles, existing) {
				kept = append(kept, existing)
			}
		}
		scope.Roles = kept
	})
}

func (s *MemoryStore) AddScopeEntities(_ context.Context, id string, entityIDs []string) error {
	return s.withScope(id, func(scope *program.Scope) {
		for _, entity := range entityIDs {
			if !containsString(scope.Entities, entity) {
				scope.Entities = append(scope.Entities, entity)
			}
		}
	})
}

func (s *MemoryStore) RemoveScopeEntities(_ context.Context, id string, refs []string) error {
	return s.withScope(id, func(scope *program.Scope) {
		var kept []string
		for _, existing := range scope.Entities {
			if !containsString(refs, existing) {
				kept = append(kept, existing)
			}
		}
		scope.Entities = kept
	})
}

func (s *MemoryStore) withProgram(id string, mutate func(*program.Program)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	mutate(p)
	return nil
}

// withScope mirrors the document store: a scope-path update on a document
// without a scope initializes the embedded field.
func (s *MemoryStore) withScope(id string, mutate func(*program.Scope)) error {
	return s.withProgram(id, func(p *program.Program) {
		if p.Scope == nil {
			p.Scope = &program.Scope{}
		}
		mutate(p.Scope)
	})
}

func containsRole(roles []role.Role, r role.Role) bool {
	for _, existing := range roles {
		if existing == r {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func matches(p *program.Program, f Filter) bool {
	if f.ID != "" && p.ID.Hex() != f.ID {
		return false
	}
	if f.CreatedBy != "" && p.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.IsDeleted != nil && p.IsDeleted != *f.IsDeleted {
		return false
	}
	if f.IsPrivate != nil && p.IsAPrivateProgram != *f.IsPrivate {
		return false
	}
	if f.RequireScope && p.Scope == nil {
		return false
	}
	if len(f.RoleCodes) > 0 {
		if p.Scope == nil || !intersectsRoleCodes(p.Scope.Roles, f.RoleCodes) {
			return false
		}
	}
	if len(f.EntityIDs) > 0 {
		if p.Scope == nil || !intersects(p.Scope.Entities, f.EntityIDs) {
			return false
		}
	}
	if f.SearchText != "" && !searchMatches(p, f.SearchText) {
		return false
	}
	if len(f.Extra) > 0 && !extraMatches(p, f.Extra) {
		return false
	}
	return true
}

func intersectsRoleCodes(roles []role.Role, codes []string) bool {
	for _, r := range roles {
		if containsString(codes, r.Code) {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if containsString(b, v) {
			return true
		}
	}
	return false
}

func searchMatches(p *program.Program, text string) bool {
	needle := strings.ToLower(text)
	for _, field := range []string{p.ExternalID, p.Name, p.Description} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// extraMatches evaluates caller-supplied filter pairs against the document's
// wire form, so typed values (coerced ObjectIDs included) compare the same
// way the document store compares them.
func extraMatches(p *program.Program, extra map[string]any) bool {
	raw, err := bson.Marshal(p)
	if err != nil {
		return false
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return false
	}
	for key, want := range extra {
		got, ok := lookupPath(doc, key)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func lookupPath(doc bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		asMap, ok := current.(bson.M)
		if !ok {
			return nil, false
		}
		current, ok = asMap[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
