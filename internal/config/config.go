// Package config loads the typed configuration for the agent substrate:
// model slot definitions, the policy file location, the agent
// configuration directory, and the compaction/iteration heuristics.
//
// CLI flag parsing and .env loading are out of scope; this package only
// defines the Config struct and the loader that fills it from a TOML file
// plus environment variable overrides.
package config

import "time"

// ModelSlot is one of the three configured LLM backend slots a session can
// address by name (e.g. via switch_model).
type ModelSlot struct {
	Name    string `toml:"name"`
	Backend string `toml:"backend"` // "anthropic", "openai", "llamacpp"
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
}

// CompactionConfig carries the model-specific byte budgets and knobs the
// history compactor checks against after every iteration.
type CompactionConfig struct {
	Enabled          bool           `toml:"enabled"`
	BudgetBytes      map[string]int `toml:"budget_bytes"` // keyed by model slot name
	DefaultBudget    int            `toml:"default_budget_bytes"`
	KeepRecentCalls  int            `toml:"keep_recent_calls"` // most-recent atomic tool-call sequences preserved
	SummaryModelSlot string         `toml:"summary_model_slot"`
}

// DefaultCompactionConfig mirrors Open Question 2's resolved defaults:
// Grn=150KB, Blu=400KB, Red=600KB, keep the most recent 10 tool-call
// sequences verbatim.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		Enabled: true,
		BudgetBytes: map[string]int{
			"grn": 150 * 1024,
			"blu": 400 * 1024,
			"red": 600 * 1024,
		},
		DefaultBudget:   150 * 1024,
		KeepRecentCalls: 10,
	}
}

// IterationPolicy bounds request_more_iterations, per Open Question 3's
// resolved constants from the original implementation.
type IterationPolicy struct {
	MaxRequestable      int      `toml:"max_requestable"`
	MinJustificationLen int      `toml:"min_justification_len"`
	RejectSubstrings    []string `toml:"reject_substrings"`
}

// DefaultIterationPolicy returns the kimichat-derived defaults: at most 5
// additional iterations, a justification of at least 100 characters, reject
// outright any justification containing "just in case".
func DefaultIterationPolicy() IterationPolicy {
	return IterationPolicy{
		MaxRequestable:      5,
		MinJustificationLen: 100,
		RejectSubstrings:    []string{"just in case"},
	}
}

// Config is the root configuration for the agent substrate.
type Config struct {
	Workspace  string            `toml:"workspace"`
	PolicyFile string            `toml:"policy_file"`
	AgentDir   string            `toml:"agent_dir"`
	SkillDirs  []string          `toml:"skill_dirs"`
	Models     []ModelSlot       `toml:"models"`
	Compaction CompactionConfig  `toml:"compaction"`
	Iteration  IterationPolicy   `toml:"iteration"`
	Loop       LoopLimits        `toml:"loop"`
	Logging    LoggingConfig     `toml:"logging"`
	Extra      map[string]string `toml:"extra,omitempty"`
}

// LoopLimits bound one conversation engine turn (C7).
type LoopLimits struct {
	MaxIterations   int           `toml:"max_iterations"`
	MaxToolCalls    int           `toml:"max_tool_calls"`
	MaxWallTime     time.Duration `toml:"max_wall_time"`
	ConcurrentReads int           `toml:"concurrent_reads"`
}

// DefaultLoopLimits matches the Open Question 5 resolution: the
// iterations-remaining nudge fires starting at exactly 2 remaining.
func DefaultLoopLimits() LoopLimits {
	return LoopLimits{
		MaxIterations:   20,
		MaxToolCalls:    0,
		MaxWallTime:      10 * time.Minute,
		ConcurrentReads: 5,
	}
}

// LoggingConfig controls the observability.Logger.
type LoggingConfig struct {
	Level           string   `toml:"level"`
	Format          string   `toml:"format"` // "json" or "text"
	RedactPatterns  []string `toml:"redact_patterns,omitempty"`
}

// DefaultConfig returns a Config with every section set to its documented
// default, suitable for tests and for filling gaps left by a partial TOML
// file.
func DefaultConfig() *Config {
	return &Config{
		Workspace:  ".",
		PolicyFile: "policy.toml",
		AgentDir:   "agents",
		Compaction: DefaultCompactionConfig(),
		Iteration:  DefaultIterationPolicy(),
		Loop:       DefaultLoopLimits(),
		Logging:    LoggingConfig{Level: "info", Format: "json"},
	}
}

// ModelSlot looks up a configured slot by name (case-sensitive, matching
// the switch_model tool's validation against live configured slots).
func (c *Config) ModelSlot(name string) (ModelSlot, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelSlot{}, false
}
