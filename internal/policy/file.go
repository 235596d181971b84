package policy

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nexusagent/core/pkg/models"
)

// ruleFile is the on-disk TOML shape for a policy file: a top-level list
// of [[rule]] tables, evaluated in file order.
type ruleFile struct {
	Rule []ruleEntry `toml:"rule"`
}

type ruleEntry struct {
	Action      string `toml:"action"`
	Pattern     string `toml:"pattern"`
	Decision    string `toml:"decision"`
	Description string `toml:"description,omitempty"`
}

// LoadFile parses a policy TOML file into an ordered []models.PolicyRule.
func LoadFile(path string) ([]models.PolicyRule, error) {
	var raw ruleFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	rules := make([]models.PolicyRule, 0, len(raw.Rule))
	for i, entry := range raw.Rule {
		kind, err := parseActionKind(entry.Action)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		decision, err := parseDecision(entry.Decision)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, models.PolicyRule{
			ActionKind:    kind,
			TargetPattern: entry.Pattern,
			Decision:      decision,
			Description:   entry.Description,
		})
	}
	return rules, nil
}

func parseActionKind(s string) (models.ActionKind, error) {
	switch models.ActionKind(s) {
	case models.ActionFileRead, models.ActionFileWrite, models.ActionFileEdit,
		models.ActionFileDelete, models.ActionCommandExecution,
		models.ActionPlanEdits, models.ActionApplyEditPlan:
		return models.ActionKind(s), nil
	default:
		return "", fmt.Errorf("unknown action kind %q", s)
	}
}

func parseDecision(s string) (models.Decision, error) {
	switch models.Decision(s) {
	case models.DecisionAllow, models.DecisionDeny, models.DecisionAsk:
		return models.Decision(s), nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}
