package models

import (
	"testing"
	"time"
)

func TestTerminalSession_DefaultScrollback(t *testing.T) {
	s := TerminalSession{
		ID:         "term-1",
		Command:    []string{"bash"},
		WorkDir:    "/workspace",
		Size:       TerminalSize{Cols: 80, Rows: 24},
		CreatedAt:  time.Now(),
		Status:     TerminalRunning,
		Scrollback: DefaultScrollbackLines,
	}

	if s.Scrollback != 1000 {
		t.Errorf("Scrollback = %d, want 1000", s.Scrollback)
	}
	if s.Status != TerminalRunning {
		t.Errorf("Status = %v, want %v", s.Status, TerminalRunning)
	}
}

func TestTerminalSession_ExitCode(t *testing.T) {
	code := 1
	s := TerminalSession{ID: "term-2", Status: TerminalExited, ExitCode: &code}

	if s.ExitCode == nil || *s.ExitCode != 1 {
		t.Fatalf("ExitCode = %v, want pointer to 1", s.ExitCode)
	}
}
