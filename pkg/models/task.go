package models

// TaskKind distinguishes how a Task's Children (if any) should be run.
type TaskKind string

const (
	TaskSimple     TaskKind = "simple"
	TaskComplex    TaskKind = "complex"
	TaskParallel   TaskKind = "parallel"
	TaskSequential TaskKind = "sequential"
)

// TaskPriority ranks tasks for dispatch ordering; Low < Medium < High < Critical.
type TaskPriority int

const (
	PriorityLow TaskPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Task is a unit of work handed to the coordinator, either from a user
// request or as a follow-up produced by a parent agent's AgentResult.
//
// A Task is consumed exactly once and never mutated after creation. Parallel
// and Sequential tasks carry Children that the coordinator dispatches
// concurrently or in order, respectively; Simple and Complex tasks leave
// Children empty and are routed directly to a single agent.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Kind        TaskKind       `json:"kind"`
	Priority    TaskPriority   `json:"priority"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Children    []Task         `json:"children,omitempty"`
}

// AgentResult is what an agent returns for a dispatched Task.
type AgentResult struct {
	Success   bool           `json:"success"`
	Content   string         `json:"content"`
	TaskID    string         `json:"task_id"`
	AgentName string         `json:"agent_name"`
	WallMS    int64          `json:"wall_ms"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	FollowUps []Task         `json:"follow_ups,omitempty"`
}
