package terminal

import (
	"strconv"
	"strings"
	"sync"
)

// cell is one character position on the screen, carrying the SGR color
// code active when it was written (empty means default).
type cell struct {
	ch   rune
	sgr  string
}

// screen is a pragmatic VT100/ANSI subset parser: cursor movement (CUU,
// CUD, CUF, CUB, CUP), erase-in-line/display (K, J), and SGR color
// attributes are tracked; everything else in a CSI/OSC sequence is
// consumed and discarded rather than rejected, so an unsupported escape
// never corrupts the grid. Lines that scroll off the top feed a bounded
// ring buffer rather than being discarded, giving get_scrollback a
// history independent of the live rows x cols window.
type screen struct {
	mu sync.Mutex

	rows, cols       int
	grid             [][]cell
	cursorRow, cursorCol int
	curSGR           string

	scrollback    []string
	scrollbackMax int

	parseState int // 0=normal, 1=saw ESC, 2=in CSI
	csiArgs    string
}

func newScreen(rows, cols, scrollbackMax int) *screen {
	s := &screen{rows: rows, cols: cols, scrollbackMax: scrollbackMax}
	s.grid = make([][]cell, rows)
	for i := range s.grid {
		s.grid[i] = newBlankRow(cols)
	}
	return s
}

func newBlankRow(cols int) []cell {
	row := make([]cell, cols)
	for i := range row {
		row[i] = cell{ch: ' '}
	}
	return row
}

// write feeds raw child-process output through the parser, mutating the
// grid and cursor position in place.
func (s *screen) write(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range data {
		s.feed(rune(b))
	}
}

func (s *screen) feed(r rune) {
	switch s.parseState {
	case 1: // after ESC
		if r == '[' {
			s.parseState = 2
			s.csiArgs = ""
			return
		}
		// Unsupported two-byte escape (e.g. ESC(B charset select); drop it.
		s.parseState = 0
		return
	case 2: // inside CSI, accumulating until a final byte in 0x40-0x7e
		if r >= '0' && r <= '9' || r == ';' || r == '?' {
			s.csiArgs += string(r)
			return
		}
		s.applyCSI(r, s.csiArgs)
		s.parseState = 0
		return
	}

	switch r {
	case '\x1b':
		s.parseState = 1
	case '\n':
		s.lineFeed()
	case '\r':
		s.cursorCol = 0
	case '\b':
		if s.cursorCol > 0 {
			s.cursorCol--
		}
	case '\t':
		next := (s.cursorCol/8 + 1) * 8
		if next >= s.cols {
			next = s.cols - 1
		}
		s.cursorCol = next
	default:
		if r < 0x20 {
			return // other control chars: ignore
		}
		s.putChar(r)
	}
}

func (s *screen) putChar(r rune) {
	if s.cursorRow < 0 || s.cursorRow >= s.rows {
		return
	}
	if s.cursorCol >= s.cols {
		s.lineFeed()
		s.cursorCol = 0
	}
	s.grid[s.cursorRow][s.cursorCol] = cell{ch: r, sgr: s.curSGR}
	s.cursorCol++
}

// lineFeed advances the cursor to the next row, scrolling the grid (and
// pushing the evicted top row into scrollback) when already on the last row.
func (s *screen) lineFeed() {
	if s.cursorRow < s.rows-1 {
		s.cursorRow++
		return
	}
	s.pushScrollback(renderRow(s.grid[0]))
	copy(s.grid, s.grid[1:])
	s.grid[s.rows-1] = newBlankRow(s.cols)
}

func (s *screen) pushScrollback(line string) {
	s.scrollback = append(s.scrollback, line)
	if s.scrollbackMax > 0 && len(s.scrollback) > s.scrollbackMax {
		s.scrollback = s.scrollback[len(s.scrollback)-s.scrollbackMax:]
	}
}

// applyCSI interprets one completed CSI sequence (args plus final byte).
func (s *screen) applyCSI(final rune, args string) {
	n := func(def int) int {
		if args == "" {
			return def
		}
		v, err := strconv.Atoi(strings.TrimRight(args, ";"))
		if err != nil {
			return def
		}
		return v
	}

	switch final {
	case 'A': // cursor up
		s.cursorRow = clamp(s.cursorRow-n(1), 0, s.rows-1)
	case 'B': // cursor down
		s.cursorRow = clamp(s.cursorRow+n(1), 0, s.rows-1)
	case 'C': // cursor forward
		s.cursorCol = clamp(s.cursorCol+n(1), 0, s.cols-1)
	case 'D': // cursor back
		s.cursorCol = clamp(s.cursorCol-n(1), 0, s.cols-1)
	case 'H', 'f': // cursor position row;col (1-based)
		row, col := 1, 1
		parts := strings.Split(args, ";")
		if len(parts) > 0 && parts[0] != "" {
			if v, err := strconv.Atoi(parts[0]); err == nil {
				row = v
			}
		}
		if len(parts) > 1 && parts[1] != "" {
			if v, err := strconv.Atoi(parts[1]); err == nil {
				col = v
			}
		}
		s.cursorRow = clamp(row-1, 0, s.rows-1)
		s.cursorCol = clamp(col-1, 0, s.cols-1)
	case 'J': // erase in display
		s.eraseDisplay(n(0))
	case 'K': // erase in line
		s.eraseLine(n(0))
	case 'm': // SGR
		if args == "" || args == "0" {
			s.curSGR = ""
		} else {
			s.curSGR = args
		}
	default:
		// Unsupported CSI final byte (e.g. scroll region, mode set): ignored.
	}
}

func (s *screen) eraseLine(mode int) {
	row := s.grid[s.cursorRow]
	switch mode {
	case 0:
		for i := s.cursorCol; i < len(row); i++ {
			row[i] = cell{ch: ' '}
		}
	case 1:
		for i := 0; i <= s.cursorCol && i < len(row); i++ {
			row[i] = cell{ch: ' '}
		}
	case 2:
		s.grid[s.cursorRow] = newBlankRow(s.cols)
	}
}

func (s *screen) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.eraseLine(0)
		for r := s.cursorRow + 1; r < s.rows; r++ {
			s.grid[r] = newBlankRow(s.cols)
		}
	case 1:
		for r := 0; r < s.cursorRow; r++ {
			s.grid[r] = newBlankRow(s.cols)
		}
		s.eraseLine(1)
	case 2, 3:
		for r := range s.grid {
			s.grid[r] = newBlankRow(s.cols)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func renderRow(row []cell) string {
	var b strings.Builder
	b.Grow(len(row))
	for _, c := range row {
		b.WriteRune(c.ch)
	}
	return strings.TrimRight(b.String(), " ")
}

// render returns the current grid as plain text, one line per row.
// When colors is true, each run of same-SGR cells is wrapped in its
// original CSI...m sequence so the caller can re-render it faithfully.
func (s *screen) render(colors bool, cursor bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, s.rows)
	for r, row := range s.grid {
		if !colors {
			lines[r] = renderRowWithCursor(row, cursor && r == s.cursorRow, s.cursorCol)
			continue
		}
		lines[r] = renderRowColored(row, cursor && r == s.cursorRow, s.cursorCol)
	}
	return lines
}

func renderRowWithCursor(row []cell, markCursor bool, col int) string {
	if !markCursor {
		return renderRow(row)
	}
	var b strings.Builder
	for i, c := range row {
		if i == col {
			b.WriteString("[")
			b.WriteRune(c.ch)
			b.WriteString("]")
			continue
		}
		b.WriteRune(c.ch)
	}
	return strings.TrimRight(b.String(), " ")
}

func renderRowColored(row []cell, markCursor bool, col int) string {
	var b strings.Builder
	current := ""
	for i, c := range row {
		if c.sgr != current {
			if current != "" {
				b.WriteString("\x1b[0m")
			}
			if c.sgr != "" {
				b.WriteString("\x1b[" + c.sgr + "m")
			}
			current = c.sgr
		}
		if markCursor && i == col {
			b.WriteString("[")
			b.WriteRune(c.ch)
			b.WriteString("]")
		} else {
			b.WriteRune(c.ch)
		}
	}
	if current != "" {
		b.WriteString("\x1b[0m")
	}
	return strings.TrimRight(b.String(), " \x1b[0m")
}

// cursorPosition returns the 0-based (row, col).
func (s *screen) cursorPosition() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorRow, s.cursorCol
}

// resize reallocates the grid, preserving whatever overlaps the old one.
func (s *screen) resize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newGrid := make([][]cell, rows)
	for r := range newGrid {
		newGrid[r] = newBlankRow(cols)
		if r < len(s.grid) {
			copy(newGrid[r], s.grid[r])
		}
	}
	s.grid = newGrid
	s.rows, s.cols = rows, cols
	s.cursorRow = clamp(s.cursorRow, 0, rows-1)
	s.cursorCol = clamp(s.cursorCol, 0, cols-1)
}

func (s *screen) scrollbackLines(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.scrollback) {
		n = len(s.scrollback)
	}
	return append([]string(nil), s.scrollback[len(s.scrollback)-n:]...)
}
