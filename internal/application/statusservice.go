package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// CookieStatus is the coarse health view of the stored credential. It reports
// field presence and freshness only; the secret values themselves never
// appear here, which keeps the status surface safe to expose without the
// on-demand trigger's authorization.
type CookieStatus struct {
	UpdatedAt   time.Time
	HasPrimary  bool
	HasRotation bool
}

// StatusSummary is the read-path composition of the last trigger outcome and
// the credential health.
type StatusSummary struct {
	LastRefresh *model.TriggerOutcome
	Cookies     *CookieStatus
}

// StatusService composes shared-store reads into a health summary.
type StatusService struct {
	store driven.CredentialStore
	name  string
}

// NewStatusService creates a StatusService for the named credential.
func NewStatusService(store driven.CredentialStore, name string) *StatusService {
	return &StatusService{store: store, name: name}
}

// Summary returns the current health view. Store read failures degrade the
// corresponding field to nil rather than failing the whole summary, so the
// status surface stays useful while the store is flaking.
func (s *StatusService) Summary(ctx context.Context) StatusSummary {
	var summary StatusSummary

	outcome, err := s.store.GetLastOutcome(ctx, s.name)
	if err != nil {
		slog.Warn("status: last outcome unavailable", "error", err)
	} else {
		summary.LastRefresh = outcome
	}

	rec, err := s.store.GetCredential(ctx, s.name)
	if err != nil {
		slog.Warn("status: credential unavailable", "error", err)
	} else if rec != nil {
		summary.Cookies = &CookieStatus{
			UpdatedAt:   rec.UpdatedAt,
			HasPrimary:  rec.PrimarySessionID != "",
			HasRotation: rec.RotationToken != "",
		}
	}

	return summary
}
