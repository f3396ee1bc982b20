// Package handler exposes the program API over HTTP. Every response uses
// the shared result envelope; domain errors carry their own HTTP mapping.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"outreach/internal/membership"
	"outreach/internal/program"
	"outreach/internal/program/store"
	dErrors "outreach/pkg/domain-errors"
	"outreach/pkg/platform/httputil"
	"outreach/pkg/requestcontext"
)

// Service defines the program operations the handler exposes.
type Service interface {
	Create(ctx context.Context, req program.CreateRequest) (*program.Program, error)
	Update(ctx context.Context, programID string, req program.UpdateRequest) error
	Details(ctx context.Context, programID string) (*program.Program, error)
	List(ctx context.Context, searchText, status string, page, pageSize int) (store.Page, error)
	UserPrivatePrograms(ctx context.Context) ([]program.Program, error)

	SetScope(ctx context.Context, programID string, req program.ScopeRequest) error
	AddRolesInScope(ctx context.Context, programID string, req program.RolesRequest) error
	RemoveRolesInScope(ctx context.Context, programID string, req program.RolesRequest) error
	AddEntitiesInScope(ctx context.Context, programID string, refs []string) error
	RemoveEntitiesInScope(ctx context.Context, programID string, refs []string) error

	ForUserRoleAndLocation(ctx context.Context, req program.TargetingRequest, page, pageSize int) (store.Page, error)
	Join(ctx context.Context, programID string, req program.JoinRequest, app membership.AppInformation) (*membership.Membership, error)
}

// Handler wires program endpoints to the program service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a program handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts program endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/programs", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Post("/targeted", h.HandleTargeted)
		r.Get("/private", h.HandlePrivate)

		r.Route("/{programID}", func(r chi.Router) {
			r.Get("/", h.HandleDetails)
			r.Post("/", h.HandleUpdate)
			r.Post("/join", h.HandleJoin)

			r.Route("/scope", func(r chi.Router) {
				r.Post("/", h.HandleSetScope)
				r.Post("/roles/add", h.HandleAddRoles)
				r.Post("/roles/remove", h.HandleRemoveRoles)
				r.Post("/entities/add", h.HandleAddEntities)
				r.Post("/entities/remove", h.HandleRemoveEntities)
			})
		})
	})
}

// HandleCreate handles POST /programs.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[program.CreateRequest](w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "program create failed", err)
		return
	}
	httputil.WriteResult(w, "program created successfully", created)
}

// HandleUpdate handles POST /programs/{programID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[program.UpdateRequest](w, r)
	if !ok {
		return
	}
	programID := chi.URLParam(r, "programID")
	if err := h.service.Update(r.Context(), programID, req); err != nil {
		h.writeError(w, r, "program update failed", err)
		return
	}
	httputil.WriteResult(w, "program updated successfully", map[string]string{"programId": programID})
}

// HandleDetails handles GET /programs/{programID}.
func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Details(r.Context(), chi.URLParam(r, "programID"))
	if err != nil {
		h.writeError(w, r, "program details failed", err)
		return
	}
	httputil.WriteResult(w, "program details fetched successfully", p)
}

// HandleList handles GET /programs.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	result, err := h.service.List(r.Context(), r.URL.Query().Get("search"), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		h.writeError(w, r, "program list failed", err)
		return
	}
	httputil.WriteResult(w, "programs fetched successfully", result)
}

// HandlePrivate handles GET /programs/private.
func (h *Handler) HandlePrivate(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.UserPrivatePrograms(r.Context())
	if err != nil {
		h.writeError(w, r, "private program list failed", err)
		return
	}
	httputil.WriteResult(w, "user private programs fetched successfully", programs)
}

// HandleTargeted handles POST /programs/targeted: the authorization read
// path listing programs whose scope admits the caller.
func (h *Handler) HandleTargeted(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[program.TargetingRequest](w, r)
	if !ok {
		return
	}
	page, pageSize := pagination(r)
	result, err := h.service.ForUserRoleAndLocation(r.Context(), req, page, pageSize)
	if err != nil {
		h.writeError(w, r, "targeted program query failed", err)
		return
	}
	httputil.WriteResult(w, "targeted programs fetched successfully", result)
}

// HandleSetScope handles POST /programs/{programID}/scope.
func (h *Handler) HandleSetScope(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[program.ScopeRequest](w, r)
	if !ok {
		return
	}
	if err := h.service.SetScope(r.Context(), chi.URLParam(r, "programID"), req); err != nil {
		h.writeError(w, r, "program scope update failed", err)
		return
	}
	httputil.WriteResult(w, "program scope updated successfully", nil)
}

type rolesBody struct {
	Roles program.RolesRequest `json:"roles"`
}

type entitiesBody struct {
	Entities []string `json:"entities"`
}

// HandleAddRoles handles POST /programs/{programID}/scope/roles/add.
func (h *Handler) HandleAddRoles(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[rolesBody](w, r)
	if !ok {
		return
	}
	if err := h.service.AddRolesInScope(r.Context(), chi.URLParam(r, "programID"), req.Roles); err != nil {
		h.writeError(w, r, "scope role add failed", err)
		return
	}
	httputil.WriteResult(w, "roles added to program scope successfully", nil)
}

// HandleRemoveRoles handles POST /programs/{programID}/scope/roles/remove.
func (h *Handler) HandleRemoveRoles(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[rolesBody](w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveRolesInScope(r.Context(), chi.URLParam(r, "programID"), req.Roles); err != nil {
		h.writeError(w, r, "scope role remove failed", err)
		return
	}
	httputil.WriteResult(w, "roles removed from program scope successfully", nil)
}

// HandleAddEntities handles POST /programs/{programID}/scope/entities/add.
func (h *Handler) HandleAddEntities(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[entitiesBody](w, r)
	if !ok {
		return
	}
	if err := h.service.AddEntitiesInScope(r.Context(), chi.URLParam(r, "programID"), req.Entities); err != nil {
		h.writeError(w, r, "scope entity add failed", err)
		return
	}
	httputil.WriteResult(w, "entities added to program scope successfully", nil)
}

// HandleRemoveEntities handles POST /programs/{programID}/scope/entities/remove.
func (h *Handler) HandleRemoveEntities(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[entitiesBody](w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveEntitiesInScope(r.Context(), chi.URLParam(r, "programID"), req.Entities); err != nil {
		h.writeError(w, r, "scope entity remove failed", err)
		return
	}
	httputil.WriteResult(w, "entities removed from program scope successfully", nil)
}

// HandleJoin handles POST /programs/{programID}/join. The joining app
// identifies itself through headers; absent headers leave earlier app
// metadata untouched.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[program.JoinRequest](w, r)
	if !ok {
		return
	}
	app := membership.AppInformation{
		AppName:    r.Header.Get("X-App-Name"),
		AppVersion: r.Header.Get("X-App-Ver"),
	}
	record, err := h.service.Join(r.Context(), chi.URLParam(r, "programID"), req, app)
	if err != nil {
		h.writeError(w, r, "program join failed", err)
		return
	}
	httputil.WriteResult(w, "joined program successfully", record)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.ErrorContext(r.Context(), message,
		"request_id", requestcontext.RequestID(r.Context()),
		"user_id", requestcontext.UserID(r.Context()),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// decode reads one JSON body. A body that does not parse is a bad request;
// an empty body decodes to the zero value so header-only calls stay valid.
func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if r.Body == nil || r.ContentLength == 0 {
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	return req, true
}

func pagination(r *http.Request) (page, pageSize int) {
	page = intQuery(r, "page", 1)
	pageSize = intQuery(r, "limit", 20)
	return page, pageSize
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
