package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/cookierelay/internal/application"
	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RefreshResponse is the JSON body returned by POST /refresh.
type RefreshResponse struct {
	Status string                 `json:"status"`
	Error  string                 `json:"error,omitempty"`
	Output *RefreshResultResponse `json:"output,omitempty"`
}

// RefreshResultResponse is the JSON representation of the refresh procedure's
// structured result. It mirrors the CLI's stdout line: status, method or
// reason, and timestamp. Credential values are deliberately absent.
type RefreshResultResponse struct {
	Status    string `json:"status"`
	Method    string `json:"method,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// OutcomeResponse is the JSON representation of a trigger outcome.
type OutcomeResponse struct {
	TriggeredAt string `json:"triggered_at"`
	TriggerKind string `json:"trigger_kind"`
	Succeeded   bool   `json:"succeeded"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// CookiesResponse reports credential field presence and freshness. The
// secret values themselves are deliberately absent.
type CookiesResponse struct {
	UpdatedAt   string `json:"updated_at"`
	HasPrimary  bool   `json:"has_primary"`
	HasRotation bool   `json:"has_rotation"`
}

// StatusResponse is the JSON body returned by GET /status.
type StatusResponse struct {
	LastRefresh *OutcomeResponse `json:"last_refresh"`
	Cookies     *CookiesResponse `json:"cookies"`
}

// HistoryEntryResponse is one audit-log entry in GET /history.
type HistoryEntryResponse struct {
	ExecutionID string `json:"execution_id"`
	OutcomeResponse
}

// toRefreshResultResponse converts the procedure result; nil stays nil (the
// sandbox output carried no parseable result line).
func toRefreshResultResponse(res *model.RefreshResult) *RefreshResultResponse {
	if res == nil {
		return nil
	}
	return &RefreshResultResponse{
		Status:    string(res.Status),
		Method:    string(res.Method),
		Reason:    res.Reason,
		Timestamp: res.Timestamp.UTC().Format(time.RFC3339),
	}
}

// toOutcomeResponse converts a domain TriggerOutcome to its JSON representation.
func toOutcomeResponse(out model.TriggerOutcome) OutcomeResponse {
	return OutcomeResponse{
		TriggeredAt: out.TriggeredAt.UTC().Format(time.RFC3339),
		TriggerKind: string(out.Kind),
		Succeeded:   out.Succeeded,
		ErrorDetail: out.ErrorDetail,
	}
}

// toStatusResponse converts the health summary, keeping absent halves null
// so consumers can distinguish "never refreshed" from "empty".
func toStatusResponse(summary application.StatusSummary) StatusResponse {
	var resp StatusResponse

	if summary.LastRefresh != nil {
		out := toOutcomeResponse(*summary.LastRefresh)
		resp.LastRefresh = &out
	}
	if summary.Cookies != nil {
		resp.Cookies = &CookiesResponse{
			UpdatedAt:   summary.Cookies.UpdatedAt.UTC().Format(time.RFC3339),
			HasPrimary:  summary.Cookies.HasPrimary,
			HasRotation: summary.Cookies.HasRotation,
		}
	}

	return resp
}

// toHistoryResponse converts audit-log entries for GET /history.
func toHistoryResponse(entries []model.OutcomeEntry) []HistoryEntryResponse {
	resp := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, HistoryEntryResponse{
			ExecutionID:     e.ExecutionID,
			OutcomeResponse: toOutcomeResponse(e.TriggerOutcome),
		})
	}
	return resp
}
