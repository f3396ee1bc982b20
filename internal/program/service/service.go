// Package service orchestrates program lifecycle, scope mutation, targeted
// reads, and enrollment. Handlers stay thin; every rule lives here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"outreach/internal/location"
	"outreach/internal/membership"
	"outreach/internal/program"
	"outreach/internal/program/metrics"
	"outreach/internal/program/store"
	"outreach/internal/role"
	"outreach/internal/user"
	dErrors "outreach/pkg/domain-errors"
	"outreach/pkg/platform/sentinel"
	"outreach/pkg/requestcontext"
)

var (
	// ErrProgramNotFound covers both a missing document and one the caller
	// may not touch. Absent programs surface as bad requests on this API,
	// not 404s.
	ErrProgramNotFound = dErrors.New(dErrors.CodeNotFound, "program not found")
	// ErrProgramJoinFailed reports an enrollment precondition that did not
	// hold: the caller's profile is incomplete or consent could not be
	// registered.
	ErrProgramJoinFailed = dErrors.New(dErrors.CodeBadRequest, "failed to join program")
)

// Service wires the program store, membership store, and the external
// boundaries (location directory, role catalog, user service, event stream).
type Service struct {
	programs    store.Store
	memberships membership.Store
	resolver    *location.Resolver
	roles       *role.Adapter
	users       user.Client
	events      membership.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(
	programs store.Store,
	memberships membership.Store,
	resolver *location.Resolver,
	roles *role.Adapter,
	users user.Client,
	events membership.Publisher,
	opts ...Option,
) *Service {
	s := &Service{
		programs:    programs,
		memberships: memberships,
		resolver:    resolver,
		roles:       roles,
		users:       users,
		events:      events,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a program owned by the caller. A scope in the request is
// applied after the insert through the same path as SetScope.
func (s *Service) Create(ctx context.Context, req program.CreateRequest) (*program.Program, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.ExternalID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "externalId and name are required")
	}

	userID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	p := &program.Program{
		ExternalID:           strings.TrimSpace(req.ExternalID),
		Name:                 name,
		Description:          req.Description,
		Owner:                userID,
		CreatedBy:            userID,
		UpdatedBy:            userID,
		Status:               program.StatusActive,
		IsAPrivateProgram:    req.IsAPrivateProgram,
		ResourceType:         []string{"program"},
		Language:             []string{"en"},
		Concepts:             []string{},
		Components:           []string{},
		RootOrganisations:    req.RootOrganisations,
		RequestForPIIConsent: req.RequestForPIIConsent,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	id, err := s.programs.Create(ctx, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create program")
	}
	s.incrementProgramsCreated()

	if req.Scope != nil && !req.IsAPrivateProgram {
		if err := s.SetScope(ctx, id, *req.Scope); err != nil {
			return nil, err
		}
	}

	created, err := s.programs.FindOne(ctx, store.Filter{ID: id})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load created program")
	}
	s.logger.InfoContext(ctx, "program created",
		"program_id", id,
		"external_id", created.ExternalID,
		"created_by", userID,
	)
	return created, nil
}

// Update applies a partial update. Scope changes route through SetScope so
// references resolve the same way on every write path.
func (s *Service) Update(ctx context.Context, programID string, req program.UpdateRequest) error {
	if _, err := s.findProgram(ctx, programID); err != nil {
		return err
	}

	set := map[string]any{
		"updatedBy": requestcontext.UserID(ctx),
		"updatedAt": requestcontext.Now(ctx),
	}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Keywords != nil {
		set["keywords"] = req.Keywords
	}
	if req.Status != nil {
		if *req.Status != program.StatusActive && *req.Status != program.StatusInactive {
			return dErrors.New(dErrors.CodeBadRequest, "unknown program status")
		}
		set["status"] = *req.Status
	}
	if err := s.programs.UpdateFields(ctx, programID, set); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrProgramNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update program")
	}

	if req.Scope != nil {
		return s.SetScope(ctx, programID, *req.Scope)
	}
	return nil
}

// Details returns one program by ID.
func (s *Service) Details(ctx context.Context, programID string) (*program.Program, error) {
	return s.findProgram(ctx, programID)
}

// List returns a page of programs, newest first, optionally narrowed by
// status and a free-text search over externalId, name, and description.
func (s *Service) List(ctx context.Context, searchText, status string, page, pageSize int) (store.Page, error) {
	f := store.Filter{
		IsDeleted:  boolPtr(false),
		Status:     status,
		SearchText: strings.TrimSpace(searchText),
	}
	result, err := s.programs.FindPage(ctx, f, normalizePage(page), normalizePageSize(pageSize))
	if err != nil {
		return store.Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list programs")
	}
	return result, nil
}

// UserPrivatePrograms returns the caller's own private active programs.
func (s *Service) UserPrivatePrograms(ctx context.Context) ([]program.Program, error) {
	f := store.Filter{
		CreatedBy: requestcontext.UserID(ctx),
		Status:    program.StatusActive,
		IsDeleted: boolPtr(false),
		IsPrivate: boolPtr(true),
	}
	result, err := s.programs.FindPage(ctx, f, 1, maxPageSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list private programs")
	}
	return result.Data, nil
}

// findProgram loads one live program. Deleted and missing documents are the
// same ErrProgramNotFound to the caller.
func (s *Service) findProgram(ctx context.Context, programID string) (*program.Program, error) {
	p, err := s.programs.FindOne(ctx, store.Filter{ID: programID, IsDeleted: boolPtr(false)})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	return p, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePageSize(pageSize int) int {
	if pageSize < 1 {
		return defaultPageSize
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}

func boolPtr(v bool) *bool {
	return &v
}

func (s *Service) incrementProgramsCreated() {
	if s.metrics != nil {
		s.metrics.IncrementProgramsCreated()
	}
}

func (s *Service) incrementProgramsJoined() {
	if s.metrics != nil {
		s.metrics.IncrementProgramsJoined()
	}
}

func (s *Service) incrementPublishFailures() {
	if s.metrics != nil {
		s.metrics.IncrementPublishFailures()
	}
}

func (s *Service) observeTargeting(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveTargeting(start)
	}
}

func (s *Service) observeJoin(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveJoin(start)
	}
}
