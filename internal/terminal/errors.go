package terminal

import "errors"

// ErrSessionLimit is returned by Launch when the backend already has
// MaxSessions active sessions.
var ErrSessionLimit = errors.New("terminal: active session limit reached")

// ErrSessionGone is returned by any operation against a session whose
// child process has already exited.
var ErrSessionGone = errors.New("terminal: session is gone")

// ErrSessionNotFound is returned when an operation names an unknown id.
var ErrSessionNotFound = errors.New("terminal: session not found")

// SpawnError wraps a failure to start the child process or tmux session,
// keeping the underlying OS error alongside the attempted command.
type SpawnError struct {
	Command []string
	Cause   error
}

func (e *SpawnError) Error() string {
	return "terminal: spawn failed for " + joinCommand(e.Command) + ": " + e.Cause.Error()
}

func (e *SpawnError) Unwrap() error { return e.Cause }

func joinCommand(cmd []string) string {
	out := ""
	for i, c := range cmd {
		if i > 0 {
			out += " "
		}
		out += c
	}
	return out
}
