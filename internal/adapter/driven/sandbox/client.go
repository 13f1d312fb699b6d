// Package sandbox implements the SandboxExecutor port against a
// machines-style HTTP API: "run this command on the sandbox named X, return
// its combined output and exit status". The sandbox hibernates between
// invocations; the API wakes it implicitly, so a call after idleness can
// block for tens of seconds before the command even starts. All waiting is
// bounded by the caller's context deadline.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SandboxExecutor = (*Client)(nil)

// Client invokes commands on a named sandbox.
type Client struct {
	httpClient *http.Client
	baseURL    string
	name       string
	token      string
	command    []string
}

// NewClient creates a sandbox client. name is the sandbox's stable logical
// name; command is the refresh entry point to run inside it (defaults to
// "refresh-session" when empty).
func NewClient(baseURL, name, token string, command []string) *Client {
	if len(command) == 0 {
		command = []string{"refresh-session"}
	}
	return &Client{
		// No client-level timeout: cold wakes are slow and the trigger
		// service bounds each invocation with a context deadline.
		httpClient: &http.Client{},
		baseURL:    baseURL,
		name:       name,
		token:      token,
		command:    command,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client, for
// injecting an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, name, token string, command []string) *Client {
	c := NewClient(baseURL, name, token, command)
	c.httpClient = httpClient
	return c
}

// execRequest is the wire shape of an exec invocation.
type execRequest struct {
	Command []string `json:"command"`
}

// execResponse is the wire shape of a completed exec.
type execResponse struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// RunRefresh runs the refresh entry point on the sandbox with the given
// flags and returns its combined output and exit status. A non-2xx API
// response is a transport failure, distinct from the command itself exiting
// non-zero.
func (c *Client) RunRefresh(ctx context.Context, opts driven.RefreshOptions) (*driven.ExecResult, error) {
	cmd := append([]string(nil), c.command...)
	if opts.Verbose {
		cmd = append(cmd, "-verbose")
	}
	if opts.ForceReauth {
		cmd = append(cmd, "-force-reauth")
	}

	body, err := json.Marshal(execRequest{Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("marshal exec request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/sandboxes/%s/exec", c.baseURL, c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build exec request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke sandbox %q: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read sandbox response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sandbox %q exec returned status %d: %s", c.name, resp.StatusCode, truncate(string(data), 200))
	}

	var er execResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return nil, fmt.Errorf("parse sandbox response: %w", err)
	}

	return &driven.ExecResult{ExitCode: er.ExitCode, Output: er.Output}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
