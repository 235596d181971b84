package models

import (
	"encoding/json"
	"testing"
)

func TestToolDefinition_JSONRoundTrip(t *testing.T) {
	original := ToolDefinition{
		Name:        "read_file",
		Description: "Read a file from the workspace.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded ToolDefinition
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Name != original.Name {
		t.Errorf("Name = %q, want %q", decoded.Name, original.Name)
	}
	if decoded.Description != original.Description {
		t.Errorf("Description = %q, want %q", decoded.Description, original.Description)
	}
	if string(decoded.Parameters) != string(original.Parameters) {
		t.Errorf("Parameters = %s, want %s", decoded.Parameters, original.Parameters)
	}
}
