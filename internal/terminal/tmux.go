package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// tmuxSession tracks one real tmux session this backend owns.
type tmuxSession struct {
	mu sync.Mutex

	id       string
	tmuxName string
	info     Info
	capturing bool
	capturePath string
}

// TmuxBackend runs sessions inside real detached tmux sessions, named
// kimichat-{pid}-{id} so multiple backend instances on the same host never
// collide. Every operation shells out to the tmux CLI; no daemon state is
// held beyond what `tmux list-sessions`/`has-session` already report.
type TmuxBackend struct {
	mu       sync.Mutex
	sessions map[string]*tmuxSession
	pid      int
}

func NewTmuxBackend() *TmuxBackend {
	return &TmuxBackend{sessions: make(map[string]*tmuxSession), pid: os.Getpid()}
}

func (b *TmuxBackend) tmuxSessionName(id string) string {
	return fmt.Sprintf("kimichat-%d-%s", b.pid, id)
}

func (b *TmuxBackend) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
	b.mu.Lock()
	if len(b.sessions) >= MaxSessions {
		b.mu.Unlock()
		return "", ErrSessionLimit
	}
	b.mu.Unlock()

	if len(opts.Command) == 0 {
		return "", fmt.Errorf("terminal: launch requires a command")
	}
	size := opts.Size
	if size.Rows == 0 && size.Cols == 0 {
		size = DefaultSize
	}

	id := uuid.NewString()
	tmuxName := b.tmuxSessionName(id)

	args := []string{
		"new-session", "-d", "-s", tmuxName,
		"-x", strconv.Itoa(size.Cols), "-y", strconv.Itoa(size.Rows),
	}
	if opts.WorkDir != "" {
		args = append(args, "-c", opts.WorkDir)
	}
	args = append(args, strings.Join(opts.Command, " "))

	cmd := exec.CommandContext(ctx, "tmux", args...)
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &SpawnError{Command: opts.Command, Cause: fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))}
	}

	sess := &tmuxSession{
		id:       id,
		tmuxName: tmuxName,
		info: Info{
			ID:        id,
			Command:   opts.Command,
			WorkDir:   opts.WorkDir,
			Size:      size,
			CreatedAt: time.Now(),
			Running:   true,
		},
	}
	b.mu.Lock()
	b.sessions[id] = sess
	b.mu.Unlock()

	return id, nil
}

func (b *TmuxBackend) get(id string) (*tmuxSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (b *TmuxBackend) hasSession(ctx context.Context, tmuxName string) bool {
	return exec.CommandContext(ctx, "tmux", "has-session", "-t", tmuxName).Run() == nil
}

func (b *TmuxBackend) SendKeys(ctx context.Context, id string, data []byte) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	if !b.hasSession(ctx, s.tmuxName) {
		return ErrSessionGone
	}
	cmd := exec.CommandContext(ctx, "tmux", "send-keys", "-t", s.tmuxName, "-l", string(data))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("terminal: tmux send-keys: %s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *TmuxBackend) GetScreen(ctx context.Context, id string, withColors bool) ([]string, error) {
	s, err := b.get(id)
	if err != nil {
		return nil, err
	}
	if !b.hasSession(ctx, s.tmuxName) {
		return nil, ErrSessionGone
	}
	args := []string{"capture-pane", "-t", s.tmuxName, "-p"}
	if withColors {
		args = append(args, "-e")
	}
	out, err := exec.CommandContext(ctx, "tmux", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("terminal: tmux capture-pane: %w", err)
	}
	return strings.Split(strings.TrimRight(string(out), "\n"), "\n"), nil
}

func (b *TmuxBackend) GetCursor(ctx context.Context, id string) (int, int, error) {
	s, err := b.get(id)
	if err != nil {
		return 0, 0, err
	}
	if !b.hasSession(ctx, s.tmuxName) {
		return 0, 0, ErrSessionGone
	}
	out, err := exec.CommandContext(ctx, "tmux", "display-message", "-p", "-t", s.tmuxName, "#{cursor_y} #{cursor_x}").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("terminal: tmux display-message: %w", err)
	}
	parts := strings.Fields(strings.TrimSpace(string(out)))
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("terminal: unexpected cursor format %q", out)
	}
	row, _ := strconv.Atoi(parts[0])
	col, _ := strconv.Atoi(parts[1])
	return row, col, nil
}

// GetScrollback reads tmux's own history buffer via capture-pane -S.
func (b *TmuxBackend) GetScrollback(ctx context.Context, id string, n int) ([]string, error) {
	s, err := b.get(id)
	if err != nil {
		return nil, err
	}
	if !b.hasSession(ctx, s.tmuxName) {
		return nil, ErrSessionGone
	}
	start := "-"
	if n > 0 {
		start = strconv.Itoa(-n)
	}
	out, err := exec.CommandContext(ctx, "tmux", "capture-pane", "-t", s.tmuxName, "-p", "-S", start, "-E", "-1").Output()
	if err != nil {
		return nil, fmt.Errorf("terminal: tmux capture-pane scrollback: %w", err)
	}
	trimmed := strings.TrimRight(string(out), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

func (b *TmuxBackend) Resize(ctx context.Context, id string, size Size) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	if !b.hasSession(ctx, s.tmuxName) {
		return ErrSessionGone
	}
	cmd := exec.CommandContext(ctx, "tmux", "resize-window", "-t", s.tmuxName,
		"-x", strconv.Itoa(size.Cols), "-y", strconv.Itoa(size.Rows))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("terminal: tmux resize-window: %s: %s", err, strings.TrimSpace(string(out)))
	}
	s.mu.Lock()
	s.info.Size = size
	s.mu.Unlock()
	return nil
}

func (b *TmuxBackend) CaptureStart(ctx context.Context, id string, path string) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	if !b.hasSession(ctx, s.tmuxName) {
		return ErrSessionGone
	}
	cmd := exec.CommandContext(ctx, "tmux", "pipe-pane", "-t", s.tmuxName, "-o", fmt.Sprintf("cat >> %q", path))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("terminal: tmux pipe-pane: %s: %s", err, strings.TrimSpace(string(out)))
	}
	s.mu.Lock()
	s.capturing = true
	s.capturePath = path
	s.mu.Unlock()
	return nil
}

func (b *TmuxBackend) CaptureStop(ctx context.Context, id string) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if !s.capturing {
		s.mu.Unlock()
		return fmt.Errorf("terminal: no active capture for session %s", id)
	}
	s.capturing = false
	s.mu.Unlock()

	if !b.hasSession(ctx, s.tmuxName) {
		return nil
	}
	cmd := exec.CommandContext(ctx, "tmux", "pipe-pane", "-t", s.tmuxName)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("terminal: tmux pipe-pane stop: %s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *TmuxBackend) Kill(ctx context.Context, id string) error {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		delete(b.sessions, id)
	}
	b.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if b.hasSession(ctx, s.tmuxName) {
		_ = exec.CommandContext(ctx, "tmux", "kill-session", "-t", s.tmuxName).Run()
	}
	return nil
}

func (b *TmuxBackend) List(ctx context.Context) []Info {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Info, 0, len(b.sessions))
	for _, s := range b.sessions {
		s.mu.Lock()
		info := s.info
		info.Running = b.hasSession(ctx, s.tmuxName)
		s.mu.Unlock()
		out = append(out, info)
	}
	return out
}

func (b *TmuxBackend) Exists(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[id]
	return ok
}
