package terminal

import "testing"

func TestScreenWritePlainText(t *testing.T) {
	s := newScreen(3, 10, 100)
	s.write([]byte("hello"))
	lines := s.render(false, false)
	if lines[0] != "hello" {
		t.Fatalf("lines[0] = %q, want %q", lines[0], "hello")
	}
}

func TestScreenLineWrap(t *testing.T) {
	s := newScreen(2, 5, 100)
	s.write([]byte("abcdefgh"))
	lines := s.render(false, false)
	if lines[0] != "abcde" {
		t.Fatalf("lines[0] = %q, want %q", lines[0], "abcde")
	}
	if lines[1] != "fgh" {
		t.Fatalf("lines[1] = %q, want %q", lines[1], "fgh")
	}
}

func TestScreenScrollback(t *testing.T) {
	s := newScreen(2, 10, 100)
	s.write([]byte("line1\nline2\nline3\n"))
	sb := s.scrollbackLines(0)
	if len(sb) != 2 {
		t.Fatalf("len(scrollback) = %d, want 2: %v", len(sb), sb)
	}
	if sb[0] != "line1" || sb[1] != "line2" {
		t.Fatalf("scrollback = %v", sb)
	}
}

func TestScreenScrollbackBounded(t *testing.T) {
	s := newScreen(1, 10, 3)
	for i := 0; i < 10; i++ {
		s.write([]byte("x\n"))
	}
	sb := s.scrollbackLines(0)
	if len(sb) != 3 {
		t.Fatalf("len(scrollback) = %d, want 3 (bounded)", len(sb))
	}
}

func TestScreenCursorMovement(t *testing.T) {
	s := newScreen(5, 10, 10)
	s.write([]byte("\x1b[3;5Hx"))
	row, col := s.cursorPosition()
	// CUP moves to (row=3,col=5) 1-based -> (2,4) 0-based, then the 'x'
	// advances the column by one.
	if row != 2 || col != 5 {
		t.Fatalf("cursor = (%d,%d), want (2,5)", row, col)
	}
	lines := s.render(false, false)
	if lines[2] != "    x" {
		t.Fatalf("lines[2] = %q, want %q", lines[2], "    x")
	}
}

func TestScreenEraseLine(t *testing.T) {
	s := newScreen(1, 10, 10)
	s.write([]byte("hello"))
	s.write([]byte("\x1b[0G")) // not CUP; cursor stays, but let's just reposition via H
	s.write([]byte("\x1b[1;1H"))
	s.write([]byte("\x1b[K"))
	lines := s.render(false, false)
	if lines[0] != "" {
		t.Fatalf("lines[0] = %q, want empty after erase", lines[0])
	}
}

func TestScreenCarriageReturn(t *testing.T) {
	s := newScreen(1, 10, 10)
	s.write([]byte("hello\rworld"))
	lines := s.render(false, false)
	if lines[0] != "world" {
		t.Fatalf("lines[0] = %q, want %q", lines[0], "world")
	}
}

func TestScreenResizePreservesContent(t *testing.T) {
	s := newScreen(2, 5, 10)
	s.write([]byte("hi"))
	s.resize(4, 10)
	lines := s.render(false, false)
	if len(lines) != 4 {
		t.Fatalf("len(lines) = %d, want 4", len(lines))
	}
	if lines[0] != "hi" {
		t.Fatalf("lines[0] = %q, want %q", lines[0], "hi")
	}
}

func TestScreenSGRTracksColor(t *testing.T) {
	s := newScreen(1, 10, 10)
	s.write([]byte("\x1b[31mred\x1b[0m"))
	lines := s.render(true, false)
	if lines[0] == "red" {
		t.Fatalf("expected colored render to retain escapes, got plain %q", lines[0])
	}
	plain := s.render(false, false)
	if plain[0] != "red" {
		t.Fatalf("plain render = %q, want %q", plain[0], "red")
	}
}
