package toolcall

import (
	"strings"
	"testing"
)

func TestRepairJSONTrailingQuoteAfterNumber(t *testing.T) {
	broken := `{"start_line": 123", "path": "main.go"}`
	fixed, ok := repairJSON(broken)
	if !ok {
		t.Fatal("expected repair to succeed")
	}
	if !isValidJSON(fixed) {
		t.Fatalf("fixed JSON still invalid: %q", fixed)
	}
}

func TestRepairJSONNoDefect(t *testing.T) {
	valid := `{"path": "main.go"}`
	_, ok := repairJSON(valid)
	if ok {
		t.Fatal("expected no-op on already-broken-free JSON lacking the defect pattern")
	}
}

func TestCoerceIntegerFieldsQuotedInt(t *testing.T) {
	raw := `{"start_line": "10", "end_line": "20", "path": "main.go"}`
	fixed, ok := coerceIntegerFields(raw)
	if !ok {
		t.Fatal("expected coercion to apply")
	}
	if !isValidJSON(fixed) {
		t.Fatalf("coerced JSON invalid: %q", fixed)
	}
	if strings.Contains(fixed, `"start_line":"10"`) {
		t.Fatalf("start_line still quoted: %q", fixed)
	}
}

func TestCoerceIntegerFieldsLeavesNonIntegerFieldsAlone(t *testing.T) {
	raw := `{"path": "main.go"}`
	_, ok := coerceIntegerFields(raw)
	if ok {
		t.Fatal("expected no change when no integer fields present")
	}
}
