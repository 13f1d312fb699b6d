package model

import "time"

// TriggerKind distinguishes scheduled ticks from on-demand requests.
type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
)

// TriggerOutcome records the result of one trigger cycle. The shared store
// keeps only the most recent outcome; the local history log keeps all of them.
type TriggerOutcome struct {
	TriggeredAt time.Time   `json:"triggered_at"`
	Kind        TriggerKind `json:"trigger_kind"`
	Succeeded   bool        `json:"succeeded"`
	ErrorDetail string      `json:"error_detail,omitempty"`
}

// OutcomeEntry is a TriggerOutcome as persisted in the local audit history,
// keyed by a unique execution ID.
type OutcomeEntry struct {
	ExecutionID    string `json:"execution_id"`
	CredentialName string `json:"credential_name"`
	TriggerOutcome
}
