package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// ptySession is one live PTY-backed terminal: a child process whose
// controlling terminal is the master end of a pty pair, plus the VT100
// screen fed by a dedicated reader goroutine.
type ptySession struct {
	mu sync.Mutex

	id      string
	cmd     *exec.Cmd
	master  *os.File
	screen  *screen
	info    Info

	captureFile *os.File

	done     chan struct{}
	exitCode *int
}

// PTYBackend runs sessions as direct child processes attached to an
// in-process pty, one reader goroutine per session. Grounded on
// github.com/creack/pty's pty.Start/StartWithSize/Setsize, the small and
// stable API every Go PTY-backed agent tool in the pack depends on.
type PTYBackend struct {
	mu       sync.Mutex
	sessions map[string]*ptySession
}

func NewPTYBackend() *PTYBackend {
	return &PTYBackend{sessions: make(map[string]*ptySession)}
}

func (b *PTYBackend) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
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
	scrollback := opts.Scrollback
	if scrollback <= 0 {
		scrollback = defaultScrollbackLines
	}

	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(size.Rows), Cols: uint16(size.Cols)})
	if err != nil {
		return "", &SpawnError{Command: opts.Command, Cause: err}
	}

	id := uuid.NewString()
	sess := &ptySession{
		id:     id,
		cmd:    cmd,
		master: master,
		screen: newScreen(size.Rows, size.Cols, scrollback),
		info: Info{
			ID:        id,
			Command:   opts.Command,
			WorkDir:   opts.WorkDir,
			Size:      size,
			CreatedAt: time.Now(),
			Running:   true,
		},
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.sessions[id] = sess
	b.mu.Unlock()

	// The reader goroutine is detached deliberately: nothing ever joins it
	// synchronously, since a blocked child (e.g. waiting on stdin) must
	// never be able to wedge a caller of Kill or GetScreen.
	go sess.readLoop()

	return id, nil
}

func (s *ptySession) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.master.Read(buf)
		if n > 0 {
			s.screen.write(buf[:n])
			s.mu.Lock()
			if s.captureFile != nil {
				s.captureFile.Write(buf[:n])
			}
			s.mu.Unlock()
		}
		if err != nil {
			s.finish()
			return
		}
	}
}

func (s *ptySession) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info.Running {
		s.info.Running = false
		code := 0
		if err := s.cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}
		s.exitCode = &code
		s.info.ExitCode = &code
		close(s.done)
	}
}

func (b *PTYBackend) get(id string) (*ptySession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (b *PTYBackend) SendKeys(ctx context.Context, id string, data []byte) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	running := s.info.Running
	s.mu.Unlock()
	if !running {
		return ErrSessionGone
	}
	_, err = s.master.Write(data)
	return err
}

func (b *PTYBackend) GetScreen(ctx context.Context, id string, withColors bool) ([]string, error) {
	s, err := b.get(id)
	if err != nil {
		return nil, err
	}
	return s.screen.render(withColors, true), nil
}

func (b *PTYBackend) GetCursor(ctx context.Context, id string) (int, int, error) {
	s, err := b.get(id)
	if err != nil {
		return 0, 0, err
	}
	row, col := s.screen.cursorPosition()
	return row, col, nil
}

func (b *PTYBackend) GetScrollback(ctx context.Context, id string, n int) ([]string, error) {
	s, err := b.get(id)
	if err != nil {
		return nil, err
	}
	return s.screen.scrollbackLines(n), nil
}

func (b *PTYBackend) Resize(ctx context.Context, id string, size Size) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.info.Running {
		return ErrSessionGone
	}
	if err := pty.Setsize(s.master, &pty.Winsize{Rows: uint16(size.Rows), Cols: uint16(size.Cols)}); err != nil {
		return err
	}
	s.screen.resize(size.Rows, size.Cols)
	s.info.Size = size
	return nil
}

func (b *PTYBackend) CaptureStart(ctx context.Context, id string, path string) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("terminal: capture start: %w", err)
	}
	s.mu.Lock()
	if s.captureFile != nil {
		s.captureFile.Close()
	}
	s.captureFile = f
	s.mu.Unlock()
	return nil
}

func (b *PTYBackend) CaptureStop(ctx context.Context, id string) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captureFile == nil {
		return fmt.Errorf("terminal: no active capture for session %s", id)
	}
	err = s.captureFile.Close()
	s.captureFile = nil
	return err
}

func (b *PTYBackend) Kill(ctx context.Context, id string) error {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		delete(b.sessions, id)
	}
	b.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	running := s.info.Running
	captureFile := s.captureFile
	s.mu.Unlock()

	if captureFile != nil {
		captureFile.Close()
	}
	if running {
		_ = s.cmd.Process.Kill()
	}
	_ = s.master.Close()
	return nil
}

func (b *PTYBackend) List(ctx context.Context) []Info {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Info, 0, len(b.sessions))
	for _, s := range b.sessions {
		s.mu.Lock()
		out = append(out, s.info)
		s.mu.Unlock()
	}
	return out
}

func (b *PTYBackend) Exists(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[id]
	return ok
}

const defaultScrollbackLines = 1000
