package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OutcomeLog = (*OutcomeRepo)(nil)

// OutcomeRepo is the SQLite implementation of the OutcomeLog port: an
// append-only audit table of every trigger cycle on the trigger service host.
// It never stores credential values.
type OutcomeRepo struct {
	db *DB
}

// NewOutcomeRepo creates a new OutcomeRepo.
func NewOutcomeRepo(db *DB) *OutcomeRepo {
	return &OutcomeRepo{db: db}
}

// Append records one completed trigger cycle.
func (r *OutcomeRepo) Append(ctx context.Context, entry model.OutcomeEntry) error {
	const query = `
		INSERT INTO refresh_outcomes (execution_id, credential_name, trigger_kind, triggered_at, succeeded, error_detail)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.ExecutionID,
		entry.CredentialName,
		string(entry.Kind),
		entry.TriggeredAt.UTC().Format(time.RFC3339Nano),
		boolToInt(entry.Succeeded),
		entry.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("append outcome %q: %w", entry.ExecutionID, err)
	}
	return nil
}

// Recent returns up to limit entries for the named credential, newest first.
func (r *OutcomeRepo) Recent(ctx context.Context, credentialName string, limit int) ([]model.OutcomeEntry, error) {
	const query = `
		SELECT execution_id, credential_name, trigger_kind, triggered_at, succeeded, error_detail
		FROM refresh_outcomes
		WHERE credential_name = ?
		ORDER BY triggered_at DESC
		LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, credentialName, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var entries []model.OutcomeEntry
	for rows.Next() {
		var entry model.OutcomeEntry
		var kind, triggeredAt string
		var succeeded int
		if err := rows.Scan(&entry.ExecutionID, &entry.CredentialName, &kind, &triggeredAt, &succeeded, &entry.ErrorDetail); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}

		entry.Kind = model.TriggerKind(kind)
		entry.Succeeded = succeeded != 0
		entry.TriggeredAt, err = time.Parse(time.RFC3339Nano, triggeredAt)
		if err != nil {
			return nil, fmt.Errorf("parse triggered_at for outcome %q: %w", entry.ExecutionID, err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
