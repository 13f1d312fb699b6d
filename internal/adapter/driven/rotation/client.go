// Package rotation implements the fast-tier rotation endpoint client.
package rotation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RotationClient = (*Client)(nil)

// Client calls the rotation endpoint with the current session identity as
// cookies and extracts the renewed rotation value from the response. The
// endpoint may return the new value either as a Set-Cookie header or in the
// JSON body; the cookie takes precedence.
type Client struct {
	httpClient     *http.Client
	endpoint       string
	primaryCookie  string
	rotationCookie string
}

// NewClient creates a rotation client. primaryCookie and rotationCookie are
// the cookie names carrying each credential half on the wire.
func NewClient(endpoint, primaryCookie, rotationCookie string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// The rotation endpoint answers in place; a redirect would mean
			// we are being bounced to a login surface, and that must surface
			// as a status, not be followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		endpoint:       endpoint,
		primaryCookie:  primaryCookie,
		rotationCookie: rotationCookie,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client, for
// injecting an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint, primaryCookie, rotationCookie string) *Client {
	return &Client{
		httpClient:     httpClient,
		endpoint:       endpoint,
		primaryCookie:  primaryCookie,
		rotationCookie: rotationCookie,
	}
}

// rotationBody is the JSON-body fallback shape for the renewed value.
type rotationBody struct {
	RotationToken string `json:"rotation_token"`
}

// Rotate exchanges the current session identity for a renewed rotation token.
// 401 maps to driven.ErrSessionExpired, 429 to driven.ErrRateLimited, any
// other non-2xx to a plain error carrying the status code.
func (c *Client) Rotate(ctx context.Context, cred model.CredentialRecord) (*driven.RotationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rotation request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: c.primaryCookie, Value: cred.PrimarySessionID})
	req.AddCookie(&http.Cookie{Name: c.rotationCookie, Value: cred.RotationToken})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call rotation endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, driven.ErrSessionExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, driven.ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("rotation endpoint returned status %d", resp.StatusCode)
	}

	return &driven.RotationResult{NewRotationToken: c.extractToken(resp)}, nil
}

// extractToken pulls the renewed rotation value out of a 2xx response.
// Returns "" when the endpoint issued no new value.
func (c *Client) extractToken(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == c.rotationCookie && ck.Value != "" {
			return ck.Value
		}
	}

	var body rotationBody
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return ""
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.RotationToken
}
