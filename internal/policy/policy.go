// Package policy implements the (action_kind, target_pattern, decision)
// rule arbiter: the first component every file, edit, delete, or command
// tool call passes through before it runs.
//
// Rules are evaluated in insertion order; the first match wins. A request
// that matches nothing falls through to the configured default (Ask,
// unless the caller is running in allow-all mode).
package policy

import (
	"errors"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nexusagent/core/pkg/models"
)

// ErrNonInteractiveAsk is returned by Evaluate when a rule resolves to Ask
// but the caller has no way to prompt a human (non_interactive mode); the
// request degrades to Deny rather than hanging.
var ErrNonInteractiveAsk = errors.New("policy: ask decision requires an interactive session")

// Request is the input to one policy evaluation.
type Request struct {
	ActionKind models.ActionKind
	Target     string // file path for file actions, full command line for CommandExecution
}

// Arbiter holds an ordered rule set and the default decision for
// unmatched requests, guarded by a reader/writer lock (shared-read,
// single-writer, per the data model's ownership note).
type Arbiter struct {
	mu             sync.RWMutex
	rules          []models.PolicyRule
	defaultAllow   bool
	nonInteractive bool
}

// NewArbiter creates an Arbiter with an empty rule set. defaultAllow
// controls what happens when no rule matches: false means the default is
// Ask (degrading to Deny under non_interactive), true means allow-all mode.
func NewArbiter(defaultAllow, nonInteractive bool) *Arbiter {
	return &Arbiter{defaultAllow: defaultAllow, nonInteractive: nonInteractive}
}

// Load replaces the rule set wholesale, preserving file order.
func (a *Arbiter) Load(rules []models.PolicyRule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rules = append([]models.PolicyRule(nil), rules...)
}

// Learn appends one rule at runtime (e.g. from an interactive "always
// allow" response), taking effect for all subsequent evaluations.
func (a *Arbiter) Learn(rule models.PolicyRule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rules = append(a.rules, rule)
}

// Evaluate walks the rule set in order and returns the first matching
// rule's decision, or the configured default when nothing matches.
func (a *Arbiter) Evaluate(req Request) (models.Decision, *models.PolicyRule, error) {
	a.mu.RLock()
	rules := a.rules
	nonInteractive := a.nonInteractive
	defaultAllow := a.defaultAllow
	a.mu.RUnlock()

	for i := range rules {
		rule := rules[i]
		if rule.ActionKind != req.ActionKind {
			continue
		}
		if matches(rule.ActionKind, rule.TargetPattern, req.Target) {
			if rule.Decision == models.DecisionAsk && nonInteractive {
				return models.DecisionDeny, &rule, ErrNonInteractiveAsk
			}
			return rule.Decision, &rule, nil
		}
	}

	if defaultAllow {
		return models.DecisionAllow, nil, nil
	}
	if nonInteractive {
		return models.DecisionDeny, nil, ErrNonInteractiveAsk
	}
	return models.DecisionAsk, nil, nil
}

// matches dispatches to glob matching for file-shaped actions and
// prefix/suffix wildcard matching for command lines.
func matches(kind models.ActionKind, pattern, target string) bool {
	if kind == models.ActionCommandExecution {
		return matchCommand(pattern, target)
	}
	ok, err := doublestar.Match(pattern, target)
	if err != nil {
		return false
	}
	return ok
}

// matchCommand implements the command pattern language: a literal string
// matches exactly; a leading or trailing "*" is a prefix/suffix wildcard
// ("cargo *" matches any command starting with "cargo "; "* --force"
// matches any command ending in " --force"). No example repo or
// other_examples/ file wires a dedicated shell-glob library for this
// narrower pattern language, so it is implemented directly against the
// standard library.
func matchCommand(pattern, command string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, " *"):
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(command, prefix)
	case strings.HasPrefix(pattern, "* "):
		suffix := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(command, suffix)
	default:
		return pattern == command
	}
}
