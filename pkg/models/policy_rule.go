package models

// ActionKind enumerates the operations a PolicyRule can govern.
type ActionKind string

const (
	ActionFileRead         ActionKind = "file_read"
	ActionFileWrite        ActionKind = "file_write"
	ActionFileEdit         ActionKind = "file_edit"
	ActionFileDelete       ActionKind = "file_delete"
	ActionCommandExecution ActionKind = "command_execution"
	ActionPlanEdits        ActionKind = "plan_edits"
	ActionApplyEditPlan    ActionKind = "apply_edit_plan"
)

// Decision is the outcome of evaluating a PolicyRule against a request.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// PolicyRule is one line of the policy file: an action kind, a target
// pattern, and the decision to apply when the pattern matches.
//
// TargetPattern is a glob (`*`, `**`, `?`) for file actions and a
// prefix/suffix wildcard (`cargo *`, `* --force`) for command actions.
// Rules are evaluated in insertion order; the first match wins.
type PolicyRule struct {
	ActionKind    ActionKind `json:"action_kind"`
	TargetPattern string     `json:"target_pattern"`
	Decision      Decision   `json:"decision"`
	Description   string     `json:"description,omitempty"`
}
