package models

import "time"

// TerminalStatus is the lifecycle state of a TerminalSession.
type TerminalStatus string

const (
	TerminalRunning TerminalStatus = "running"
	TerminalStopped TerminalStatus = "stopped"
	TerminalExited  TerminalStatus = "exited"
)

// TerminalSize is the character grid a TerminalSession's screen is parsed
// against.
type TerminalSize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// DefaultScrollbackLines is the default ring-buffer size for a session's
// scrollback, matching the original's screen buffer default.
const DefaultScrollbackLines = 1000

// TerminalSession is the data-model view of one PTY or tmux-backed session:
// its identity and static configuration. The owning backend
// (internal/terminal) holds the live child process, VT100 screen state, and
// event log; this struct is the caller-visible metadata snapshot.
type TerminalSession struct {
	ID          string         `json:"id"`
	Command     []string       `json:"command"`
	WorkDir     string         `json:"work_dir"`
	Size        TerminalSize   `json:"size"`
	CreatedAt   time.Time      `json:"created_at"`
	Status      TerminalStatus `json:"status"`
	ExitCode    *int           `json:"exit_code,omitempty"`
	Scrollback  int            `json:"scrollback"`
	CapturePath string         `json:"capture_path,omitempty"`
}
