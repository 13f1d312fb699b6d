package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

// Sentinel errors returned by RotationClient implementations.
var (
	// ErrSessionExpired indicates the rotation endpoint rejected the session
	// identity (HTTP 401). The caller should fall back to full
	// re-authentication.
	ErrSessionExpired = errors.New("session expired at rotation endpoint")

	// ErrRateLimited indicates the rotation endpoint asked us to back off
	// (HTTP 429). This is a deferral, not a failure, and must not trigger
	// re-authentication.
	ErrRateLimited = errors.New("rotation endpoint rate limited")
)

// RotationResult is the successful response of a fast-tier rotation call.
// NewRotationToken is empty when the endpoint accepted the session but did
// not issue a new value; the prior token is then still within its freshness
// window and the refresh counts as a no-op success.
type RotationResult struct {
	NewRotationToken string
}

// RotationClient defines the driven port for the fast rotation tier: a
// lightweight call that exchanges the current session identity for a renewed
// rotation token without full re-authentication.
type RotationClient interface {
	Rotate(ctx context.Context, cred model.CredentialRecord) (*RotationResult, error)
}
