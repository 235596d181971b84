// Package terminal implements the pluggable terminal backend (PTY and tmux)
// behind the pty_* tool family: session lifecycle, VT100 screen state, and
// scrollback, independent of how an individual tool chooses to expose it.
package terminal

import (
	"context"
	"time"
)

// MaxSessions is the hard cap on concurrently active sessions per backend,
// mirroring the interactive-terminal budget a single agent run is expected
// to need.
const MaxSessions = 15

// Size is a terminal's character grid dimensions.
type Size struct {
	Rows int
	Cols int
}

// DefaultSize is used when Launch is called without an explicit Size.
var DefaultSize = Size{Rows: 24, Cols: 80}

// LaunchOptions configures a new session.
type LaunchOptions struct {
	Command []string
	WorkDir string
	Env     []string
	Size    Size
	// Scrollback is the number of lines retained once they scroll off the
	// top of the live grid. Zero means DefaultScrollbackLines.
	Scrollback int
}

// Info is the caller-visible snapshot of one session's metadata — it
// mirrors pkg/models.TerminalSession but stays local to this package so the
// backend can evolve its bookkeeping independently of the wire model; the
// tool layer translates between the two.
type Info struct {
	ID        string
	Command   []string
	WorkDir   string
	Size      Size
	CreatedAt time.Time
	Running   bool
	ExitCode  *int
}

// Backend is the common contract every terminal implementation (PTYBackend,
// TmuxBackend) satisfies. Every method except Launch/List/Exists operates on
// a session id and returns ErrSessionNotFound (or ErrSessionGone, for a
// session whose process already exited) when it doesn't apply.
type Backend interface {
	// Launch starts a new session and returns its id.
	Launch(ctx context.Context, opts LaunchOptions) (string, error)

	// SendKeys writes raw bytes to the session's input stream.
	SendKeys(ctx context.Context, id string, data []byte) error

	// GetScreen renders the current grid. withColors preserves SGR escapes
	// in the returned lines; otherwise they're stripped to plain text.
	GetScreen(ctx context.Context, id string, withColors bool) ([]string, error)

	// GetCursor returns the 0-based (row, col) cursor position.
	GetCursor(ctx context.Context, id string) (row, col int, err error)

	// GetScrollback returns up to n lines of history that have scrolled off
	// the top of the grid, oldest first. n<=0 means "all retained lines".
	GetScrollback(ctx context.Context, id string, n int) ([]string, error)

	// Resize changes the session's terminal dimensions.
	Resize(ctx context.Context, id string, size Size) error

	// CaptureStart begins mirroring all session output to path.
	CaptureStart(ctx context.Context, id string, path string) error

	// CaptureStop ends a capture started by CaptureStart.
	CaptureStop(ctx context.Context, id string) error

	// Kill terminates the session's process and releases its resources.
	Kill(ctx context.Context, id string) error

	// List returns metadata for every session currently tracked.
	List(ctx context.Context) []Info

	// Exists reports whether id names a currently tracked session.
	Exists(id string) bool
}
