package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

// ErrLoginRequired indicates the persisted session context has no valid path
// to an authenticated session: the destination redirected to a login surface,
// or the primary session cookie is absent. This is terminal for the cycle;
// only an out-of-band interactive login by an operator can recover it.
var ErrLoginRequired = errors.New("interactive login required")

// SessionEngine defines the driven port for the full re-authentication tier.
// An implementation drives a persisted, browser-like session context to a
// known authenticated destination and extracts both credential halves from
// it. It must never fabricate or guess credential values.
type SessionEngine interface {
	Reauthenticate(ctx context.Context) (*model.CredentialRecord, error)
}
