// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// RefreshService implements the two-tier refresh procedure: try the fast
// rotation endpoint first, fall back to full re-authentication only when the
// session identity is explicitly rejected. It runs inside the compute sandbox
// and is the only writer of the credential record.
type RefreshService struct {
	store   driven.CredentialStore
	cache   driven.BootstrapCache
	rotator driven.RotationClient
	session driven.SessionEngine
	name    string
	now     func() time.Time
}

// NewRefreshService creates a RefreshService for the named credential.
func NewRefreshService(
	store driven.CredentialStore,
	cache driven.BootstrapCache,
	rotator driven.RotationClient,
	session driven.SessionEngine,
	name string,
) *RefreshService {
	return &RefreshService{
		store:   store,
		cache:   cache,
		rotator: rotator,
		session: session,
		name:    name,
		now:     time.Now,
	}
}

// Run executes one refresh cycle and always resolves to a structured result;
// it never returns an error past its own boundary. forceReauth skips the
// rotation tier (operational override for recovery testing).
//
// Tier selection: no prior credential goes straight to re-authentication;
// otherwise rotation is attempted, with 401 escalating to re-authentication,
// 429 deferring the cycle, and any other failure ending it.
func (s *RefreshService) Run(ctx context.Context, forceReauth bool) model.RefreshResult {
	prior := s.loadPrior(ctx)

	if forceReauth {
		slog.Info("rotation tier skipped by operator override")
		return s.reauth(ctx)
	}
	if prior == nil || !prior.Usable() {
		slog.Info("no usable prior credential, going straight to reauth")
		return s.reauth(ctx)
	}

	return s.rotate(ctx, *prior)
}

// loadPrior returns the best known prior credential: the shared store when
// reachable and non-empty, else the local bootstrap cache, else nil.
func (s *RefreshService) loadPrior(ctx context.Context) *model.CredentialRecord {
	rec, err := s.store.GetCredential(ctx, s.name)
	if err != nil {
		slog.Warn("credential store unreachable, falling back to bootstrap cache", "error", err)
	} else if rec != nil {
		return rec
	}

	cached, err := s.cache.Load()
	if err != nil {
		slog.Warn("bootstrap cache read failed", "error", err)
		return nil
	}
	return cached
}

// rotate runs the fast tier against the rotation endpoint.
func (s *RefreshService) rotate(ctx context.Context, prior model.CredentialRecord) model.RefreshResult {
	res, err := s.rotator.Rotate(ctx, prior)
	switch {
	case errors.Is(err, driven.ErrSessionExpired):
		slog.Info("rotation rejected with session expired, escalating to reauth")
		return s.reauth(ctx)
	case errors.Is(err, driven.ErrRateLimited):
		slog.Info("rotation rate limited, deferring cycle")
		return model.RefreshResult{
			Status:    model.RefreshSkipped,
			Reason:    model.ReasonRateLimited,
			Timestamp: s.now().UTC(),
		}
	case err != nil:
		return s.fail(model.MethodRotate, err.Error())
	}

	renewed := prior
	renewed.UpdatedAt = s.now().UTC()
	if res.NewRotationToken != "" {
		renewed.RotationToken = res.NewRotationToken
	} else {
		// Endpoint accepted the session without issuing a new value: the
		// prior token is still within its freshness window. No-op refresh.
		slog.Debug("rotation endpoint returned no new token, keeping prior value")
	}

	if err := s.persist(ctx, renewed); err != nil {
		return s.fail(model.MethodRotate, err.Error())
	}

	slog.Info("rotation succeeded", "credential", s.name, "token_renewed", res.NewRotationToken != "")
	return model.RefreshResult{
		Status:        model.RefreshOK,
		Method:        model.MethodRotate,
		Timestamp:     renewed.UpdatedAt,
		NewCredential: &renewed,
	}
}

// reauth runs the slow tier through the persisted session context.
func (s *RefreshService) reauth(ctx context.Context) model.RefreshResult {
	rec, err := s.session.Reauthenticate(ctx)
	if errors.Is(err, driven.ErrLoginRequired) {
		// Terminal for this cycle: only an out-of-band interactive login can
		// restore the session context. Report and stop cleanly.
		slog.Error("reauth requires interactive login", "credential", s.name)
		return model.RefreshResult{
			Status:    model.RefreshError,
			Method:    model.MethodReauth,
			Reason:    model.ReasonLoginRequired,
			Timestamp: s.now().UTC(),
		}
	}
	if err != nil {
		return s.fail(model.MethodReauth, err.Error())
	}

	renewed := *rec
	renewed.UpdatedAt = s.now().UTC()
	if err := s.persist(ctx, renewed); err != nil {
		return s.fail(model.MethodReauth, err.Error())
	}

	slog.Info("reauth succeeded", "credential", s.name)
	return model.RefreshResult{
		Status:        model.RefreshOK,
		Method:        model.MethodReauth,
		Timestamp:     renewed.UpdatedAt,
		NewCredential: &renewed,
	}
}

// persist writes the renewed record to the bootstrap cache first (write-ahead,
// same host, cheap) and then to the shared store. A cache failure is logged
// but does not fail the cycle; a store failure does, since consumers read
// only the store.
func (s *RefreshService) persist(ctx context.Context, rec model.CredentialRecord) error {
	if err := s.cache.Save(rec); err != nil {
		slog.Warn("bootstrap cache write failed", "error", err)
	}
	if err := s.store.PutCredential(ctx, s.name, rec); err != nil {
		return fmt.Errorf("store write: %w", err)
	}
	return nil
}

func (s *RefreshService) fail(method model.RefreshMethod, reason string) model.RefreshResult {
	slog.Error("refresh failed", "method", string(method), "reason", reason)
	return model.RefreshResult{
		Status:    model.RefreshError,
		Method:    method,
		Reason:    reason,
		Timestamp: s.now().UTC(),
	}
}
