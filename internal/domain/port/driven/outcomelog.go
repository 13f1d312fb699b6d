package driven

import (
	"context"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

// OutcomeLog defines the driven port for the local trigger-outcome audit
// history. Unlike the shared store, which keeps only the most recent outcome,
// the log keeps every cycle. It holds no secret material.
type OutcomeLog interface {
	// Append records one completed trigger cycle.
	Append(ctx context.Context, entry model.OutcomeEntry) error

	// Recent returns up to limit entries for the named credential, newest first.
	Recent(ctx context.Context, credentialName string, limit int) ([]model.OutcomeEntry, error)
}
