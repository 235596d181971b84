package terminal

import "strings"

// specialKeys maps the tool-level symbolic names send_keys accepts (when
// special=true) to the raw bytes a terminal expects. Translation lives at
// the tool layer, not the backend, so a backend never has to know whether
// a caller meant a literal "[UP]" string or the up-arrow key.
var specialKeys = map[string]string{
	"[UP]":     "\x1b[A",
	"[DOWN]":   "\x1b[B",
	"[RIGHT]":  "\x1b[C",
	"[LEFT]":   "\x1b[D",
	"[HOME]":   "\x1b[H",
	"[END]":    "\x1b[F",
	"[PGUP]":   "\x1b[5~",
	"[PGDN]":   "\x1b[6~",
	"[INSERT]": "\x1b[2~",
	"[DELETE]": "\x1b[3~",
	"[F1]":     "\x1bOP",
	"[F2]":     "\x1bOQ",
	"[F3]":     "\x1bOR",
	"[F4]":     "\x1bOS",
	"[F5]":     "\x1b[15~",
	"[F6]":     "\x1b[17~",
	"[F7]":     "\x1b[18~",
	"[F8]":     "\x1b[19~",
	"[F9]":     "\x1b[20~",
	"[F10]":    "\x1b[21~",
	"[F11]":    "\x1b[23~",
	"[F12]":    "\x1b[24~",
}

// translateKeys converts `^X`-style control sequences and `[NAME]`
// bracketed special keys embedded in keys into raw bytes. Plain text
// passes through untouched.
func translateKeys(keys string) []byte {
	var out []byte
	i := 0
	for i < len(keys) {
		if keys[i] == '^' && i+1 < len(keys) {
			c := keys[i+1]
			upper := byte(0)
			switch {
			case c >= 'a' && c <= 'z':
				upper = c - 'a' + 1
			case c >= 'A' && c <= 'Z':
				upper = c - 'A' + 1
			}
			if upper != 0 {
				out = append(out, upper)
				i += 2
				continue
			}
		}
		if keys[i] == '[' {
			if end := strings.IndexByte(keys[i:], ']'); end != -1 {
				token := keys[i : i+end+1]
				if seq, ok := specialKeys[token]; ok {
					out = append(out, seq...)
					i += end + 1
					continue
				}
			}
		}
		out = append(out, keys[i])
		i++
	}
	return out
}
