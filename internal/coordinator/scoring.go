package coordinator

import (
	"strings"
	"sync"

	"github.com/nexusagent/core/pkg/models"
)

// metrics tracks the running recency/success bonus scoring factors in.
type metrics struct {
	mu      sync.Mutex
	runs    map[string]int
	success map[string]int
}

func newMetrics() *metrics {
	return &metrics{runs: make(map[string]int), success: make(map[string]int)}
}

func (m *metrics) record(agentName string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[agentName]++
	if success {
		m.success[agentName]++
	}
}

// bonus returns a small score contribution in [0, 1] from an agent's
// historical success rate; an agent with no runs yet gets a neutral 0.5
// rather than being penalized for inexperience.
func (m *metrics) bonus(agentName string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.runs[agentName]
	if runs == 0 {
		return 0.5
	}
	return float64(m.success[agentName]) / float64(runs)
}

// capabilityKeywords maps each capability to the keywords in a task
// description that suggest it, used by score() to match free-text task
// descriptions against an agent's declared capability tags.
var capabilityKeywords = map[Capability][]string{
	CapabilityCodeAnalysis:        {"analyze", "explain", "understand", "trace", "read"},
	CapabilityFileOperations:      {"file", "write", "create", "edit", "modify"},
	CapabilitySearch:              {"search", "find", "locate", "grep"},
	CapabilitySystemOperations:    {"run", "execute", "command", "shell", "terminal"},
	CapabilityModelManagement:     {"model", "switch model", "provider"},
	CapabilityArchitectureDesign:  {"design", "architecture", "structure", "plan"},
	CapabilityCodeReview:          {"review", "critique", "audit"},
	CapabilityRefactoring:         {"refactor", "clean up", "restructure", "rename"},
	CapabilityTesting:             {"test", "coverage", "assert"},
	CapabilityGitOperations:       {"git", "commit", "branch", "merge", "diff"},
	CapabilitySecurityAnalysis:    {"security", "vulnerability", "exploit", "cve"},
	CapabilityPerformanceAnalysis: {"performance", "latency", "profile", "optimize"},
}

// score ranks agent against task: keyword-to-capability matches, tool
// allow-list coverage of the task's implied tools, and a recency/success
// bonus from the running metrics.
func score(agent AgentDefinition, task models.Task, m *metrics) float64 {
	if agent.Planner {
		return -1 // the planner never executes a leaf task
	}

	desc := strings.ToLower(task.Description)
	var s float64
	for _, cap := range agent.Capabilities {
		for _, kw := range capabilityKeywords[cap] {
			if strings.Contains(desc, kw) {
				s += 1.0
			}
		}
	}

	if tools, ok := task.Metadata["implied_tools"].([]string); ok {
		covered := 0
		for _, t := range tools {
			if agent.allowsTool(t) {
				covered++
			}
		}
		if len(tools) > 0 {
			s += float64(covered) / float64(len(tools))
		}
	}

	s += m.bonus(agent.Name)
	return s
}

// canHandle implements the default can_handle rule from the spec: Simple
// tasks are accepted by every agent; Complex tasks require at least three
// capabilities; Parallel/Sequential tasks require ArchitectureDesign or
// CodeReview.
func canHandle(agent AgentDefinition, task models.Task) bool {
	switch task.Kind {
	case models.TaskSimple, "":
		return true
	case models.TaskComplex:
		return len(agent.Capabilities) >= 3
	case models.TaskParallel, models.TaskSequential:
		return agent.hasCapability(CapabilityArchitectureDesign) || agent.hasCapability(CapabilityCodeReview)
	default:
		return true
	}
}

// selectAgent picks the highest-scoring agent eligible (via canHandle) for
// task, or false if none qualify.
func selectAgent(agents []AgentDefinition, task models.Task, m *metrics) (AgentDefinition, bool) {
	var best AgentDefinition
	bestScore := -1.0
	found := false
	for _, a := range agents {
		if !canHandle(a, task) {
			continue
		}
		sc := score(a, task, m)
		if !found || sc > bestScore {
			best, bestScore, found = a, sc, true
		}
	}
	return best, found
}
