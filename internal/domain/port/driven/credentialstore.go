// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

// CredentialStore defines the driven port for the shared, globally-readable
// store that holds the current credential and the most recent trigger outcome.
// Semantics are last-write-wins with single-key atomicity; serialization of
// writers is the trigger service's responsibility, not the store's.
type CredentialStore interface {
	// GetCredential returns the current record for the named credential, or
	// (nil, nil) when no record exists.
	GetCredential(ctx context.Context, name string) (*model.CredentialRecord, error)

	// PutCredential fully replaces the record for the named credential.
	PutCredential(ctx context.Context, name string, rec model.CredentialRecord) error

	// GetLastOutcome returns the most recent trigger outcome for the named
	// credential, or (nil, nil) when none has been recorded.
	GetLastOutcome(ctx context.Context, name string) (*model.TriggerOutcome, error)

	// PutLastOutcome overwrites the most recent trigger outcome.
	PutLastOutcome(ctx context.Context, name string, out model.TriggerOutcome) error
}
