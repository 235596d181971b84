package terminal

import (
	"context"
	"testing"
)

func TestManagerRoutesToOwningBackend(t *testing.T) {
	pty := NewPTYBackend()
	m := NewManager(pty, NewPTYBackend())
	ctx := context.Background()

	id, err := m.Launch(ctx, KindPTY, LaunchOptions{Command: []string{"/bin/sleep", "5"}})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer m.Kill(ctx, id)

	if !m.Exists(id) {
		t.Fatal("Exists() = false after Launch")
	}
	if !pty.Exists(id) {
		t.Fatal("session was not created on the expected backend")
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m := NewDefaultManager()
	ctx := context.Background()

	if _, err := m.GetScreen(ctx, "does-not-exist", false); err != ErrSessionNotFound {
		t.Fatalf("GetScreen() error = %v, want ErrSessionNotFound", err)
	}
	if err := m.SendKeys(ctx, "does-not-exist", []byte("x")); err != ErrSessionNotFound {
		t.Fatalf("SendKeys() error = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerKillRemovesOwnership(t *testing.T) {
	m := NewManager(NewPTYBackend(), NewPTYBackend())
	ctx := context.Background()

	id, err := m.Launch(ctx, KindPTY, LaunchOptions{Command: []string{"/bin/sleep", "5"}})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if err := m.Kill(ctx, id); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if m.Exists(id) {
		t.Fatal("Exists() = true after Kill")
	}
}
