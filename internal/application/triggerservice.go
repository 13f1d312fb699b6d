package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
	"github.com/ericfisherdev/cookierelay/internal/metrics"
)

// ErrRefreshInFlight is returned by Trigger when a refresh cycle is already
// running. Concurrent cycles are rejected rather than queued: by the time the
// in-flight cycle finishes, a queued one would be a no-op anyway.
var ErrRefreshInFlight = errors.New("refresh already in progress")

// triggerRequest is one on-demand trigger waiting for its cycle to complete.
type triggerRequest struct {
	done chan triggerResponse
}

// triggerResponse carries the recorded outcome back to the on-demand caller.
// transportErr is non-nil when the sandbox could not be invoked at all
// (unreachable or timed out); raw is the procedure's structured result when
// one could be parsed from the sandbox output.
type triggerResponse struct {
	outcome      model.TriggerOutcome
	raw          *model.RefreshResult
	transportErr error
}

// TriggerService is the only always-on component. It decides when the refresh
// procedure runs, invokes it on the compute sandbox, and records the single
// most recent outcome in the shared store plus an entry in the local history.
//
// Scheduled ticks and on-demand requests are both handled by the single Start
// loop, which guarantees at most one refresh execution in flight at a time.
type TriggerService struct {
	executor driven.SandboxExecutor
	store    driven.CredentialStore
	history  driven.OutcomeLog
	metrics  *metrics.Collector
	name     string
	interval time.Duration
	timeout  time.Duration

	triggerCh chan triggerRequest
	now       func() time.Time
}

// NewTriggerService creates a TriggerService. history and collector may be
// nil; outcomes are then recorded only in the shared store.
func NewTriggerService(
	executor driven.SandboxExecutor,
	store driven.CredentialStore,
	history driven.OutcomeLog,
	collector *metrics.Collector,
	name string,
	interval time.Duration,
	timeout time.Duration,
) *TriggerService {
	return &TriggerService{
		executor:  executor,
		store:     store,
		history:   history,
		metrics:   collector,
		name:      name,
		interval:  interval,
		timeout:   timeout,
		triggerCh: make(chan triggerRequest),
		now:       time.Now,
	}
}

// Start runs the scheduler loop: one refresh cycle per interval tick, plus
// on-demand cycles delivered through Trigger. Start blocks until the context
// is canceled. Because both sources are drained by this single goroutine,
// scheduled and on-demand cycles never overlap.
func (s *TriggerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("trigger service stopped")
			return
		case <-ticker.C:
			resp := s.runCycle(ctx, model.TriggerScheduled)
			if !resp.outcome.Succeeded {
				slog.Error("scheduled refresh cycle failed", "error", resp.outcome.ErrorDetail)
			}
		case req := <-s.triggerCh:
			req.done <- s.runCycle(ctx, model.TriggerManual)
		}
	}
}

// Trigger requests an on-demand refresh cycle and blocks until it completes
// or ctx expires. When a cycle is already in flight the request is rejected
// with ErrRefreshInFlight instead of being queued behind it.
func (s *TriggerService) Trigger(ctx context.Context) (model.TriggerOutcome, *model.RefreshResult, error) {
	req := triggerRequest{done: make(chan triggerResponse, 1)}

	select {
	case s.triggerCh <- req:
	case <-ctx.Done():
		return model.TriggerOutcome{}, nil, ctx.Err()
	default:
		return model.TriggerOutcome{}, nil, ErrRefreshInFlight
	}

	select {
	case resp := <-req.done:
		return resp.outcome, resp.raw, resp.transportErr
	case <-ctx.Done():
		// The cycle keeps running; it is idempotent and safe to let finish.
		return model.TriggerOutcome{}, nil, ctx.Err()
	}
}

// runCycle invokes the refresh procedure on the sandbox, bounded by the
// configured timeout, and records the outcome. Failures are persisted, never
// retried within the cycle; the next tick or manual trigger is the retry.
func (s *TriggerService) runCycle(ctx context.Context, kind model.TriggerKind) triggerResponse {
	start := s.now().UTC()
	slog.Info("refresh cycle starting", "kind", string(kind), "credential", s.name)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome := model.TriggerOutcome{TriggeredAt: start, Kind: kind}
	var raw *model.RefreshResult

	exec, err := s.executor.RunRefresh(runCtx, driven.RefreshOptions{})
	switch {
	case err != nil:
		outcome.ErrorDetail = err.Error()
	default:
		raw = parseResultLine(exec.Output)
		if exec.ExitCode == 0 {
			outcome.Succeeded = true
		} else {
			outcome.ErrorDetail = refreshErrorDetail(exec, raw)
		}
	}

	s.record(ctx, outcome)
	if s.metrics != nil && raw != nil {
		s.metrics.ObserveRefreshResult(string(raw.Status), string(raw.Method))
	}

	slog.Info("refresh cycle finished",
		"kind", string(kind),
		"succeeded", outcome.Succeeded,
		"duration", s.now().UTC().Sub(start).Round(time.Millisecond),
	)

	return triggerResponse{outcome: outcome, raw: raw, transportErr: err}
}

// record persists the outcome to the shared store and the local history.
// Recording failures are logged but do not change the cycle's result: the
// cycle itself already succeeded or failed on its own merits.
func (s *TriggerService) record(ctx context.Context, outcome model.TriggerOutcome) {
	if err := s.store.PutLastOutcome(ctx, s.name, outcome); err != nil {
		slog.Error("failed to record outcome in shared store", "error", err)
	}

	if s.history != nil {
		entry := model.OutcomeEntry{
			ExecutionID:    uuid.NewString(),
			CredentialName: s.name,
			TriggerOutcome: outcome,
		}
		if err := s.history.Append(ctx, entry); err != nil {
			slog.Error("failed to append outcome history", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveCycle(string(outcome.Kind), outcome.Succeeded)
	}
}

// parseResultLine extracts the structured refresh result from the sandbox's
// combined output. The refresh CLI prints it as the last JSON line; log lines
// from earlier in the run may precede it.
func parseResultLine(output string) *model.RefreshResult {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var res model.RefreshResult
		if err := json.Unmarshal([]byte(line), &res); err == nil && res.Status != "" {
			return &res
		}
	}
	return nil
}

// refreshErrorDetail builds the outcome error text for a non-zero sandbox
// exit. The structured reason is preferred; the raw output tail is the
// fallback when no result line was found.
func refreshErrorDetail(exec *driven.ExecResult, raw *model.RefreshResult) string {
	if raw != nil && raw.Reason != "" {
		return "refresh failed: " + raw.Reason
	}
	tail := strings.TrimSpace(exec.Output)
	if len(tail) > 200 {
		tail = tail[len(tail)-200:]
	}
	if tail == "" {
		return "refresh exited non-zero"
	}
	return "refresh exited non-zero: " + tail
}
