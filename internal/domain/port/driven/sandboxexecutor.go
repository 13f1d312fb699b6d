package driven

import "context"

// RefreshOptions are the flags forwarded to the refresh entry point inside
// the sandbox. ForceReauth skips the rotation tier entirely; it is an
// operational override for recovery testing, never set by normal triggers.
type RefreshOptions struct {
	Verbose     bool
	ForceReauth bool
}

// ExecResult is the combined output of one command run on the sandbox.
type ExecResult struct {
	ExitCode int
	Output   string
}

// SandboxExecutor defines the driven port for the ephemeral compute sandbox
// that hosts the refresh procedure. The sandbox is addressed by a stable
// logical name, not a live network address: it may be dormant, and invoking
// it implicitly wakes it, so the first call after idleness can take tens of
// seconds. Callers bound the wait with the context deadline. The executor
// does not serialize concurrent invocations; the trigger service does.
type SandboxExecutor interface {
	RunRefresh(ctx context.Context, opts RefreshOptions) (*ExecResult, error)
}
