package coordinator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRosterEmbeddedDefaults(t *testing.T) {
	agents, err := LoadRoster("")
	if err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}
	if len(agents) == 0 {
		t.Fatal("expected embedded roster to be non-empty")
	}
	foundPlanner := false
	for _, a := range agents {
		if a.Planner {
			foundPlanner = true
		}
	}
	if !foundPlanner {
		t.Fatal("expected embedded roster to include a planner agent")
	}
}

func TestLoadRosterOverrideWinsByName(t *testing.T) {
	dir := t.TempDir()
	overridePath := filepath.Join(dir, "agents.yaml")
	override := []byte(`agents:
  - name: code-analyst
    description: overridden analyst
    model_slot: Red
`)
	if err := os.WriteFile(overridePath, override, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	agents, err := LoadRoster(overridePath)
	if err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}
	var found AgentDefinition
	for _, a := range agents {
		if a.Name == "code-analyst" {
			found = a
		}
	}
	if found.Description != "overridden analyst" || found.ModelSlot != "Red" {
		t.Fatalf("override did not win: %+v", found)
	}
}

func TestLoadRosterMissingOverrideFileIsNotAnError(t *testing.T) {
	if _, err := LoadRoster("/nonexistent/path/agents.yaml"); err != nil {
		t.Fatalf("LoadRoster() error = %v, want nil for a missing override file", err)
	}
}
