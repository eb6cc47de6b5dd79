// Package api exposes HTTP handlers for the ranking service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"example.com/ranking/internal/auth"
	"example.com/ranking/internal/domain"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger overrides the logger used for unexpected failures.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithUploadLimiter throttles proof uploads per actor.
func WithUploadLimiter(l *UploadLimiter) Option {
	return func(h *Handler) {
		h.uploads = l
	}
}

// WithMaxAttachmentBytes caps the multipart body of proof uploads.
func WithMaxAttachmentBytes(n int64) Option {
	return func(h *Handler) {
		h.maxAttachmentBytes = n
	}
}

// WithReadinessCheck adds a dependency probed by /readyz.
func WithReadinessCheck(name string, p Pinger) Option {
	return func(h *Handler) {
		h.readiness[name] = p
	}
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service            *domain.Service
	logger             *zap.Logger
	uploads            *UploadLimiter
	maxAttachmentBytes int64
	readiness          map[string]Pinger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{
		service:            service,
		logger:             zap.NewNop(),
		maxAttachmentBytes: 5 << 20,
		readiness:          make(map[string]Pinger),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/units", h.units)
	mux.HandleFunc("/v1/units/", h.unitByID)
	mux.HandleFunc("/v1/submissions", h.submissions)
	mux.HandleFunc("/v1/submissions/", h.submissionByID)
	mux.HandleFunc("/v1/ranking", h.ranking)
	mux.HandleFunc("/v1/dashboard", h.dashboard)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/readyz", h.readyz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	for name, p := range h.readiness {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_ready", fmt.Sprintf("%s: %v", name, err))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// requireClaims returns the authenticated actor or writes 401.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	return claims, true
}

// requireManager returns the actor when it holds the board profile, writing 401/403 otherwise.
func requireManager(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, false
	}
	if !auth.CanManage(claims) {
		writeError(w, http.StatusForbidden, "forbidden", "board profile required")
		return nil, false
	}
	return claims, true
}

// splitID separates "/prefix/{id}/{action}" into id and action.
func splitID(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, action, _ := strings.Cut(rest, "/")
	return id, action
}

func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// writeDomainError maps domain sentinels to HTTP problems.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidAttachment):
		writeError(w, http.StatusUnprocessableEntity, "invalid_attachment", err.Error())
	case errors.Is(err, domain.ErrAdjustmentJustificationRequired):
		writeError(w, http.StatusUnprocessableEntity, "adjustment_justification_required", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusPreconditionFailed, "version_conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "canceled", "request canceled")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

// etag renders a submission version as a strong entity tag.
func etag(version int64) string {
	return strconv.Quote(strconv.FormatInt(version, 10))
}

// ifMatch parses an If-Match header into write options. An absent header adds no precondition.
func ifMatch(r *http.Request) ([]domain.WriteOption, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	unquoted, err := strconv.Unquote(raw)
	if err != nil {
		unquoted = raw
	}
	version, err := strconv.ParseInt(unquoted, 10, 64)
	if err != nil || version < 0 {
		return nil, fmt.Errorf("invalid If-Match header %q", r.Header.Get("If-Match"))
	}
	return []domain.WriteOption{domain.IfVersion(version)}, nil
}
