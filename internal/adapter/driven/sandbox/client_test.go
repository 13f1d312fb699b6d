package sandbox_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/sandbox"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

type capturedExec struct {
	path    string
	auth    string
	command []string
}

func newTestClient(t *testing.T, status int, response string, captured *capturedExec) *sandbox.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.path = r.URL.Path
			captured.auth = r.Header.Get("Authorization")
			var body struct {
				Command []string `json:"command"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			captured.command = body.Command
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return sandbox.NewClientWithHTTPClient(srv.Client(), srv.URL, "cookie-refresher", "tok-1", nil)
}

func TestRunRefresh_InvokesExecAPI(t *testing.T) {
	var captured capturedExec
	client := newTestClient(t, http.StatusOK, `{"exit_code":0,"output":"done"}`, &captured)

	res, err := client.RunRefresh(context.Background(), driven.RefreshOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "done", res.Output)

	assert.Equal(t, "/v1/sandboxes/cookie-refresher/exec", captured.path)
	assert.Equal(t, "Bearer tok-1", captured.auth)
	assert.Equal(t, []string{"refresh-session"}, captured.command)
}

func TestRunRefresh_FlagsFollowOptions(t *testing.T) {
	var captured capturedExec
	client := newTestClient(t, http.StatusOK, `{"exit_code":0,"output":""}`, &captured)

	_, err := client.RunRefresh(context.Background(), driven.RefreshOptions{Verbose: true, ForceReauth: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh-session", "-verbose", "-force-reauth"}, captured.command)
}

func TestRunRefresh_CustomCommand(t *testing.T) {
	var captured capturedExec
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Command []string `json:"command"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		captured.command = body.Command
		_, _ = w.Write([]byte(`{"exit_code":0,"output":""}`))
	}))
	t.Cleanup(srv.Close)

	client := sandbox.NewClientWithHTTPClient(srv.Client(), srv.URL, "box", "", []string{"/usr/local/bin/refresh-session", "-q"})
	_, err := client.RunRefresh(context.Background(), driven.RefreshOptions{Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/local/bin/refresh-session", "-q", "-verbose"}, captured.command)
}

func TestRunRefresh_NonZeroExitIsNotATransportError(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `{"exit_code":1,"output":"refresh failed"}`, nil)

	res, err := client.RunRefresh(context.Background(), driven.RefreshOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "refresh failed", res.Output)
}

func TestRunRefresh_APIErrorIsTransportError(t *testing.T) {
	client := newTestClient(t, http.StatusNotFound, `{"error":"no such sandbox"}`, nil)

	_, err := client.RunRefresh(context.Background(), driven.RefreshOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRunRefresh_MalformedResponse(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `not json`, nil)

	_, err := client.RunRefresh(context.Background(), driven.RefreshOptions{})
	assert.Error(t, err)
}

func TestRunRefresh_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client := sandbox.NewClientWithHTTPClient(srv.Client(), srv.URL, "box", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.RunRefresh(ctx, driven.RefreshOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
