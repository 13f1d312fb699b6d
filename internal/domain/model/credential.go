package model

import "time"

// CredentialRecord is the renewable secret bundle published to the shared
// store. PrimarySessionID is the long-lived half and changes only on a full
// re-authentication; RotationToken is the short-lived companion renewed by
// the fast rotation tier.
type CredentialRecord struct {
	PrimarySessionID string    `json:"primary_session_id"`
	RotationToken    string    `json:"rotation_token"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Usable reports whether a consumer can use this record. RotationToken may
// legitimately be empty right after a primary session is created, before the
// first rotation succeeds; PrimarySessionID may not.
func (c CredentialRecord) Usable() bool {
	return c.PrimarySessionID != ""
}
