package toolcall

import (
	"encoding/json"
	"regexp"
)

// trailingQuoteAfterNumber matches the most common malformed-argument
// defect models emit: a stray closing quote after a numeric literal,
// e.g. `"start_line": 123"` instead of `"start_line": 123`.
var trailingQuoteAfterNumber = regexp.MustCompile(`(:\s*-?\d+(?:\.\d+)?)"`)

// integerFields lists argument keys every built-in tool expects as a JSON
// number; a model that quotes them ("start_line": "10") gets coerced back
// to a number rather than failing validation.
var integerFields = map[string]bool{
	"start_line":  true,
	"end_line":    true,
	"max_results": true,
	"rows":        true,
	"cols":        true,
	"timeout_seconds": true,
}

// repairJSON attempts the regex-level fix for defect (1) in the argument
// repair algorithm: a trailing quote glued onto a numeric literal.
func repairJSON(raw string) (string, bool) {
	fixed := trailingQuoteAfterNumber.ReplaceAllString(raw, "$1")
	if fixed == raw {
		return raw, false
	}
	var probe interface{}
	if err := json.Unmarshal([]byte(fixed), &probe); err != nil {
		return raw, false
	}
	return fixed, true
}

// coerceIntegerFields walks a parsed arguments object and converts any
// quoted integer found under a known integer field name into a JSON
// number, returning the re-encoded arguments.
func coerceIntegerFields(raw string) (string, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return raw, false
	}
	changed := false
	for key := range obj {
		if !integerFields[key] {
			continue
		}
		s, ok := obj[key].(string)
		if !ok {
			continue
		}
		if isIntegerString(s) {
			obj[key] = jsonNumberFromString(s)
			changed = true
		}
	}
	if !changed {
		return raw, false
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return raw, false
	}
	return string(out), true
}

func isIntegerString(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func jsonNumberFromString(s string) json.Number {
	return json.Number(s)
}
