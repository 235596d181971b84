package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Sections(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Compaction.DefaultBudget != 150*1024 {
		t.Errorf("default compaction budget = %d, want %d", cfg.Compaction.DefaultBudget, 150*1024)
	}
	if cfg.Iteration.MaxRequestable != 5 {
		t.Errorf("MaxRequestable = %d, want 5", cfg.Iteration.MaxRequestable)
	}
	if cfg.Loop.MaxIterations == 0 {
		t.Error("MaxIterations should have a nonzero default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PolicyFile != "policy.toml" {
		t.Errorf("PolicyFile = %q, want %q", cfg.PolicyFile, "policy.toml")
	}
}

func TestLoad_ParsesModelSlots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nexus.toml")
	content := `
workspace = "/workspace"
policy_file = "custom-policy.toml"

[[models]]
name = "grn"
backend = "openai"
model = "gpt-4o-mini"

[[models]]
name = "red"
backend = "anthropic"
model = "claude-opus"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workspace != "/workspace" {
		t.Errorf("Workspace = %q, want %q", cfg.Workspace, "/workspace")
	}
	if cfg.PolicyFile != "custom-policy.toml" {
		t.Errorf("PolicyFile = %q, want %q", cfg.PolicyFile, "custom-policy.toml")
	}

	slot, ok := cfg.ModelSlot("grn")
	if !ok {
		t.Fatal("expected grn model slot to be present")
	}
	if slot.Model != "gpt-4o-mini" {
		t.Errorf("grn model = %q, want %q", slot.Model, "gpt-4o-mini")
	}

	if _, ok := cfg.ModelSlot("blu"); ok {
		t.Error("blu slot should not be present")
	}
}

func TestConfig_ModelSlot_NotFound(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.ModelSlot("nonexistent"); ok {
		t.Error("expected ModelSlot to report missing slot")
	}
}
