// Package browser implements the re-authentication tier on top of a
// persisted, browser-like session context: a cookie jar file produced by an
// operator's one-time interactive login and carried across sandbox dormancy
// on the persistent volume. Driving an actual browser is out of scope; the
// engine only replays the persisted session over HTTP and detects when it
// has lapsed.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionEngine = (*Engine)(nil)

// Engine drives the persisted session context to a known authenticated
// destination and extracts both credential halves from the resulting cookies.
type Engine struct {
	httpClient     *http.Client
	jar            *Jar
	destination    string
	loginPrefix    string
	primaryCookie  string
	rotationCookie string
}

// NewEngine creates an Engine. destination is the authenticated page to
// visit; loginPrefix is the URL prefix of the login surface, and landing on
// it means the session is gone. jar is the persisted cookie store.
func NewEngine(jar *Jar, destination, loginPrefix, primaryCookie, rotationCookie string) *Engine {
	return &Engine{
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		jar:            jar,
		destination:    destination,
		loginPrefix:    loginPrefix,
		primaryCookie:  primaryCookie,
		rotationCookie: rotationCookie,
	}
}

// NewEngineWithHTTPClient creates an Engine with a custom http.Client, for
// injecting an httptest server.
func NewEngineWithHTTPClient(httpClient *http.Client, jar *Jar, destination, loginPrefix, primaryCookie, rotationCookie string) *Engine {
	e := NewEngine(jar, destination, loginPrefix, primaryCookie, rotationCookie)
	e.httpClient = httpClient
	return e
}

// Reauthenticate replays the persisted session against the authenticated
// destination. A missing jar, a redirect onto the login surface, or an absent
// primary session cookie all yield driven.ErrLoginRequired: the automated
// system cannot traverse an interactive login and must stop cleanly.
func (e *Engine) Reauthenticate(ctx context.Context) (*model.CredentialRecord, error) {
	destURL, err := url.Parse(e.destination)
	if err != nil {
		return nil, fmt.Errorf("parse destination: %w", err)
	}

	stored, err := e.jar.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no persisted session context at %s: %w", e.jar.Path(), driven.ErrLoginRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("load session context: %w", err)
	}

	liveJar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	liveJar.SetCookies(destURL, stored)

	client := *e.httpClient
	client.Jar = liveJar

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.destination, nil)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("visit authenticated destination: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()

	// resp.Request holds the final hop after redirects.
	final := resp.Request.URL.String()
	if e.loginPrefix != "" && strings.HasPrefix(final, e.loginPrefix) {
		return nil, fmt.Errorf("redirected to login surface %s: %w", final, driven.ErrLoginRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("authenticated destination returned status %d", resp.StatusCode)
	}

	rec := e.extract(liveJar.Cookies(destURL))
	if rec.PrimarySessionID == "" {
		return nil, fmt.Errorf("primary session cookie %q absent after visit: %w", e.primaryCookie, driven.ErrLoginRequired)
	}

	// The destination may have refreshed cookies via Set-Cookie along the
	// way; persist the updated context so the next wake starts from it.
	if err := e.jar.Save(liveJar.Cookies(destURL)); err != nil {
		return nil, fmt.Errorf("persist session context: %w", err)
	}

	return rec, nil
}

// extract maps the session cookies to a credential record.
func (e *Engine) extract(cookies []*http.Cookie) *model.CredentialRecord {
	rec := &model.CredentialRecord{}
	for _, ck := range cookies {
		switch ck.Name {
		case e.primaryCookie:
			rec.PrimarySessionID = ck.Value
		case e.rotationCookie:
			rec.RotationToken = ck.Value
		}
	}
	return rec
}
