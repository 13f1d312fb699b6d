package model

import "time"

// RefreshStatus is the top-level classification of one refresh run.
type RefreshStatus string

const (
	// RefreshOK means a fresh credential was produced and persisted.
	RefreshOK RefreshStatus = "ok"
	// RefreshSkipped means the run was deferred (rate limited); nothing was
	// written and nothing needs escalation.
	RefreshSkipped RefreshStatus = "skipped"
	// RefreshError means the run failed; Reason carries the detail.
	RefreshError RefreshStatus = "error"
)

// RefreshMethod identifies which tier produced the result.
type RefreshMethod string

const (
	// MethodRotate is the fast tier: exchange the existing rotation token at
	// the rotation endpoint.
	MethodRotate RefreshMethod = "rotate"
	// MethodReauth is the slow tier: drive the persisted session context
	// through a full re-authentication.
	MethodReauth RefreshMethod = "reauth"
)

// Well-known Reason values for skipped and error results.
const (
	ReasonRateLimited   = "rate_limited"
	ReasonLoginRequired = "login_required"
)

// RefreshResult is the structured output of one execution of the refresh
// procedure. The refresh CLI emits exactly one of these as a JSON line on
// stdout. NewCredential is deliberately excluded from serialization so the
// secret values never appear in process output.
type RefreshResult struct {
	Status    RefreshStatus `json:"status"`
	Method    RefreshMethod `json:"method,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Timestamp time.Time     `json:"timestamp"`

	NewCredential *CredentialRecord `json:"-"`
}

// Failed reports whether this result should map to a non-zero exit code.
// Skipped runs are deferrals, not failures.
func (r RefreshResult) Failed() bool {
	return r.Status == RefreshError
}
