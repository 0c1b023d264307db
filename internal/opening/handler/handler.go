// Package handler exposes account opening workflows over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wealth/internal/accounts"
	jwttoken "wealth/internal/jwt_token"
	"wealth/internal/opening"
	dErrors "wealth/pkg/domain-errors"
	"wealth/pkg/platform/httputil"
	"wealth/pkg/platform/middleware/auth"
	"wealth/pkg/requestcontext"
)

// OpeningService is the workflow-facing API used by the handlers.
type OpeningService interface {
	Start(ctx context.Context, input opening.OpenAccountInput) (string, error)
	State(ctx context.Context, workflowID string) (opening.State, error)
	ClientDetails(ctx context.Context, workflowID string) (*accounts.ClientSnapshot, error)
	UpdateClientDetails(ctx context.Context, workflowID string, changes map[string]any) error
	VerifyKyc(ctx context.Context, workflowID string) error
	ApproveCompliance(ctx context.Context, workflowID string) error
	Result(ctx context.Context, workflowID string) (*opening.OpenAccountResult, error)
}

// Handler handles HTTP requests for account openings.
type Handler struct {
	service   OpeningService
	logger    *slog.Logger
	validator auth.JWTValidator
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithValidator requires bearer tokens on the approval endpoints.
// KYC needs role client or compliance; compliance approval needs role compliance.
func WithValidator(v auth.JWTValidator) HandlerOption {
	return func(h *Handler) {
		h.validator = v
	}
}

func New(service OpeningService, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/openings", h.HandleStart)
	r.Route("/openings/{id}", func(r chi.Router) {
		r.Get("/state", h.HandleState)
		r.Get("/client", h.HandleGetClient)
		r.Put("/client", h.HandleUpdateClient)
		r.With(h.requireRoles(jwttoken.RoleClient, jwttoken.RoleCompliance)).Post("/kyc", h.HandleVerifyKyc)
		r.With(h.requireRoles(jwttoken.RoleCompliance)).Post("/compliance", h.HandleApproveCompliance)
		r.Get("/result", h.HandleResult)
	})
}

func (h *Handler) requireRoles(roles ...string) func(http.Handler) http.Handler {
	if h.validator == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	authn := auth.RequireAuth(h.validator, h.logger)
	authz := auth.RequireAnyRole(h.logger, roles...)
	return func(next http.Handler) http.Handler {
		return authn(authz(next))
	}
}

// StartRequest is the request body for POST /openings.
type StartRequest struct {
	ClientID      string  `json:"client_id"`
	AccountName   string  `json:"account_name"`
	InitialAmount float64 `json:"initial_amount"`
}

func (r *StartRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.AccountName = strings.TrimSpace(r.AccountName)
}

func (r *StartRequest) Validate() error {
	if r.ClientID == "" {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if r.AccountName == "" {
		return dErrors.New(dErrors.CodeValidation, "account_name is required")
	}
	if r.InitialAmount < 0 {
		return dErrors.New(dErrors.CodeValidation, "initial_amount must not be negative")
	}
	return nil
}

// StartResponse is returned by POST /openings.
type StartResponse struct {
	WorkflowID string `json:"workflow_id"`
}

// StateResponse is returned by GET /openings/{id}/state.
type StateResponse struct {
	WorkflowID string `json:"workflow_id"`
	State      string `json:"state"`
}

// SignalResponse acknowledges an approval signal.
type SignalResponse struct {
	WorkflowID string `json:"workflow_id"`
	Signal     string `json:"signal"`
}

// HandleStart handles POST /openings.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger)
	if !ok {
		return
	}

	id, err := h.service.Start(ctx, opening.OpenAccountInput{
		ClientID:      req.ClientID,
		AccountName:   req.AccountName,
		InitialAmount: req.InitialAmount,
	})
	if err != nil {
		h.fail(ctx, w, "start account opening", "", err)
		return
	}
	w.Header().Set("Location", "/openings/"+id+"/state")
	httputil.WriteJSON(w, http.StatusCreated, StartResponse{WorkflowID: id})
}

// HandleState handles GET /openings/{id}/state.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	state, err := h.service.State(ctx, id)
	if err != nil {
		h.fail(ctx, w, "query state", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StateResponse{WorkflowID: id, State: string(state)})
}

// HandleGetClient handles GET /openings/{id}/client.
func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	snapshot, err := h.service.ClientDetails(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get client details", id, err)
		return
	}
	if snapshot == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "client details not available"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

// HandleUpdateClient handles PUT /openings/{id}/client.
func (h *Handler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	changes, ok := httputil.DecodeAndPrepare[map[string]any](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.UpdateClientDetails(ctx, id, *changes); err != nil {
		h.fail(ctx, w, "update client details", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVerifyKyc handles POST /openings/{id}/kyc.
func (h *Handler) HandleVerifyKyc(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, opening.SignalVerifyKyc, h.service.VerifyKyc)
}

// HandleApproveCompliance handles POST /openings/{id}/compliance.
func (h *Handler) HandleApproveCompliance(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, opening.SignalComplianceApproved, h.service.ApproveCompliance)
}

func (h *Handler) signal(w http.ResponseWriter, r *http.Request, name string, send func(context.Context, string) error) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := send(ctx, id); err != nil {
		h.fail(ctx, w, name, id, err)
		return
	}

	attrs := []any{"workflow_id", id, "signal", name, "request_id", requestcontext.RequestID(ctx)}
	if p, ok := requestcontext.PrincipalFrom(ctx); ok {
		attrs = append(attrs, "subject", p.Subject)
	}
	h.logger.InfoContext(ctx, "approval delivered", attrs...)
	httputil.WriteJSON(w, http.StatusAccepted, SignalResponse{WorkflowID: id, Signal: name})
}

// HandleResult handles GET /openings/{id}/result.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	result, err := h.service.Result(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get result", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op, workflowID string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"error", err,
		"workflow_id", workflowID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
