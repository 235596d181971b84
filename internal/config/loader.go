package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML config file, applying environment variable overrides
// for API keys (so they never need to live in the file itself), and fills
// any zero-value section with its documented default.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	fillDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides fills each model slot's APIKey from the environment
// when the file left it blank, keyed by <NAME>_API_KEY (upper-cased).
func applyEnvOverrides(cfg *Config) {
	for i := range cfg.Models {
		if cfg.Models[i].APIKey != "" {
			continue
		}
		envKey := strings.ToUpper(cfg.Models[i].Name) + "_API_KEY"
		if v := os.Getenv(envKey); v != "" {
			cfg.Models[i].APIKey = v
		}
	}
	if cfg.PolicyFile == "" {
		if v := os.Getenv("NEXUS_POLICY_FILE"); v != "" {
			cfg.PolicyFile = v
		}
	}
}

func fillDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Workspace == "" {
		cfg.Workspace = def.Workspace
	}
	if cfg.PolicyFile == "" {
		cfg.PolicyFile = def.PolicyFile
	}
	if cfg.AgentDir == "" {
		cfg.AgentDir = def.AgentDir
	}
	if cfg.Compaction.DefaultBudget == 0 {
		cfg.Compaction = def.Compaction
	}
	if cfg.Iteration.MaxRequestable == 0 {
		cfg.Iteration = def.Iteration
	}
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop = def.Loop
	}
	if cfg.Logging.Level == "" {
		cfg.Logging = def.Logging
	}
}
