// Package httphandler is the HTTP driving adapter for the trigger service.
package httphandler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/cookierelay/internal/application"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Handler serves the trigger API: the authenticated on-demand refresh, the
// unauthenticated status and history reads, and the metrics endpoint.
type Handler struct {
	triggerSvc *application.TriggerService
	statusSvc  *application.StatusService
	history    driven.OutcomeLog
	credential string
	secret     string
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. secret is the
// shared secret gating POST /refresh.
func NewHandler(
	triggerSvc *application.TriggerService,
	statusSvc *application.StatusService,
	history driven.OutcomeLog,
	credential string,
	secret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		triggerSvc: triggerSvc,
		statusSvc:  statusSvc,
		history:    history,
		credential: credential,
		secret:     secret,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /refresh", h.Refresh)
	mux.HandleFunc("GET /status", h.Status)
	mux.HandleFunc("GET /history", h.History)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Refresh triggers one on-demand refresh cycle and echoes the recorded
// outcome plus the procedure's raw structured result. Gated by the shared
// secret; a missing or mismatched bearer token performs no action.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	outcome, raw, err := h.triggerSvc.Trigger(r.Context())
	switch {
	case errors.Is(err, application.ErrRefreshInFlight):
		writeError(w, http.StatusConflict, "refresh already in progress")
		return
	case errors.Is(err, context.DeadlineExceeded):
		// Request-scoped deadline exceeded while the sandbox was still
		// working; the invocation is left to finish on its own.
		writeJSON(w, http.StatusGatewayTimeout, RefreshResponse{Status: "error", Error: "refresh timed out"})
		return
	case err != nil:
		h.logger.Error("on-demand refresh failed", "error", err)
		writeJSON(w, http.StatusBadGateway, RefreshResponse{Status: "error", Error: err.Error()})
		return
	}

	if !outcome.Succeeded {
		writeJSON(w, http.StatusBadGateway, RefreshResponse{
			Status: "error",
			Error:  outcome.ErrorDetail,
			Output: toRefreshResultResponse(raw),
		})
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		Status: "ok",
		Output: toRefreshResultResponse(raw),
	})
}

// Status returns the last trigger outcome and coarse credential health. It
// reports field presence only and never echoes the credential values, so it
// is safe to expose without the trigger's authorization.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	summary := h.statusSvc.Summary(r.Context())
	writeJSON(w, http.StatusOK, toStatusResponse(summary))
}

// History returns the most recent trigger outcomes from the local audit log,
// newest first. ?limit=N caps the count (default 20, max 100).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "history not enabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), h.credential, limit)
	if err != nil {
		h.logger.Error("failed to read outcome history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponse(entries))
}

// authorized compares the bearer token against the shared secret in constant
// time. An empty configured secret authorizes nothing.
func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
