// Package coordinator implements the C9 agent coordinator: a planner that
// decomposes a user request into a Task tree, capability-based scoring to
// pick an agent per leaf task, Sequential/Parallel dispatch via the C7
// conversation engine, and aggregation into one assistant-visible report.
//
// It is a fresh package rather than an adaptation of the legacy
// internal/multiagent orchestrator: that package is built against
// agent.Runtime/agent.ResponseChunk/models.Session/models.Message types
// that no longer exist anywhere in this codebase. The capability-tag and
// handoff-scoring ideas it models are carried forward conceptually; none
// of its code is reused mechanically.
package coordinator

// Capability is one of the fixed tags an agent declares competence in.
type Capability string

const (
	CapabilityCodeAnalysis       Capability = "code_analysis"
	CapabilityFileOperations     Capability = "file_operations"
	CapabilitySearch             Capability = "search"
	CapabilitySystemOperations   Capability = "system_operations"
	CapabilityModelManagement    Capability = "model_management"
	CapabilityArchitectureDesign Capability = "architecture_design"
	CapabilityCodeReview         Capability = "code_review"
	CapabilityRefactoring        Capability = "refactoring"
	CapabilityTesting            Capability = "testing"
	CapabilityGitOperations      Capability = "git_operations"
	CapabilitySecurityAnalysis   Capability = "security_analysis"
	CapabilityPerformanceAnalysis Capability = "performance_analysis"
)

// AllCapabilities lists every tag AgentDefinition.Capabilities may draw
// from, used to validate configuration records on load.
var AllCapabilities = []Capability{
	CapabilityCodeAnalysis, CapabilityFileOperations, CapabilitySearch,
	CapabilitySystemOperations, CapabilityModelManagement, CapabilityArchitectureDesign,
	CapabilityCodeReview, CapabilityRefactoring, CapabilityTesting,
	CapabilityGitOperations, CapabilitySecurityAnalysis, CapabilityPerformanceAnalysis,
}

// AgentDefinition is one agent's configuration record: loaded from an
// embedded default set plus optional on-disk overrides, which win by name.
type AgentDefinition struct {
	Name         string
	Description  string
	ModelSlot    string
	SystemPrompt string
	ToolAllow    []string // empty means "every registered tool"
	Capabilities []Capability
	// Planner marks an agent as tool-less and eligible to be selected as
	// the planning agent rather than a task executor.
	Planner bool
}

func (a AgentDefinition) hasCapability(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func (a AgentDefinition) allowsTool(name string) bool {
	if len(a.ToolAllow) == 0 {
		return true
	}
	for _, t := range a.ToolAllow {
		if t == name {
			return true
		}
	}
	return false
}
