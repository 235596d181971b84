package terminal

import (
	"context"
	"fmt"
	"sync"
)

// Kind selects which Backend implementation a session is launched on.
type Kind string

const (
	KindPTY  Kind = "pty"
	KindTmux Kind = "tmux"
)

// Manager multiplexes the pty_* tool family over both backends: a session
// id always routes back to whichever backend created it, so callers never
// need to track Kind themselves after Launch.
type Manager struct {
	mu    sync.RWMutex
	pty   Backend
	tmux  Backend
	owner map[string]Kind
}

func NewManager(pty, tmux Backend) *Manager {
	return &Manager{pty: pty, tmux: tmux, owner: make(map[string]Kind)}
}

// NewDefaultManager wires a PTYBackend and a TmuxBackend, the pairing every
// deployment needs unless tmux is unavailable on the host.
func NewDefaultManager() *Manager {
	return NewManager(NewPTYBackend(), NewTmuxBackend())
}

func (m *Manager) backendFor(id string) (Backend, error) {
	m.mu.RLock()
	kind, ok := m.owner[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if kind == KindTmux {
		return m.tmux, nil
	}
	return m.pty, nil
}

func (m *Manager) Launch(ctx context.Context, kind Kind, opts LaunchOptions) (string, error) {
	m.mu.RLock()
	total := len(m.owner)
	m.mu.RUnlock()
	if total >= MaxSessions {
		return "", ErrSessionLimit
	}

	backend := m.pty
	if kind == KindTmux {
		backend = m.tmux
	}
	if backend == nil {
		return "", fmt.Errorf("terminal: no %s backend configured", kind)
	}

	id, err := backend.Launch(ctx, opts)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.owner[id] = kind
	m.mu.Unlock()
	return id, nil
}

func (m *Manager) SendKeys(ctx context.Context, id string, data []byte) error {
	b, err := m.backendFor(id)
	if err != nil {
		return err
	}
	return b.SendKeys(ctx, id, data)
}

func (m *Manager) GetScreen(ctx context.Context, id string, withColors bool) ([]string, error) {
	b, err := m.backendFor(id)
	if err != nil {
		return nil, err
	}
	return b.GetScreen(ctx, id, withColors)
}

func (m *Manager) GetCursor(ctx context.Context, id string) (int, int, error) {
	b, err := m.backendFor(id)
	if err != nil {
		return 0, 0, err
	}
	return b.GetCursor(ctx, id)
}

func (m *Manager) GetScrollback(ctx context.Context, id string, n int) ([]string, error) {
	b, err := m.backendFor(id)
	if err != nil {
		return nil, err
	}
	return b.GetScrollback(ctx, id, n)
}

func (m *Manager) Resize(ctx context.Context, id string, size Size) error {
	b, err := m.backendFor(id)
	if err != nil {
		return err
	}
	return b.Resize(ctx, id, size)
}

func (m *Manager) CaptureStart(ctx context.Context, id string, path string) error {
	b, err := m.backendFor(id)
	if err != nil {
		return err
	}
	return b.CaptureStart(ctx, id, path)
}

func (m *Manager) CaptureStop(ctx context.Context, id string) error {
	b, err := m.backendFor(id)
	if err != nil {
		return err
	}
	return b.CaptureStop(ctx, id)
}

func (m *Manager) Kill(ctx context.Context, id string) error {
	b, err := m.backendFor(id)
	if err != nil {
		return err
	}
	if err := b.Kill(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.owner, id)
	m.mu.Unlock()
	return nil
}

func (m *Manager) List(ctx context.Context) []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.owner))
	out = append(out, m.pty.List(ctx)...)
	out = append(out, m.tmux.List(ctx)...)
	return out
}

func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.owner[id]
	return ok
}
