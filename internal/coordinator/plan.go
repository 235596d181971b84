package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

// ErrNoPlannerAgent is returned when the roster has no agent marked Planner.
var ErrNoPlannerAgent = fmt.Errorf("coordinator: no planner agent in roster")

const plannerInstructions = `Respond with ONLY a JSON object describing the task (or task tree) needed
to satisfy the user's request. Shape:
{"description": "...", "kind": "simple"|"complex"|"parallel"|"sequential", "children": [ ... same shape ... ]}
Leaf tasks (simple/complex) omit "children". Do not call any tools.`

// plan asks the roster's planner agent to decompose request into a Task
// tree via one tool-less chat completion (not a full C7 loop — the planner
// never dispatches tool calls).
func plan(ctx context.Context, provider agent.LLMProvider, planner AgentDefinition, request string) (models.Task, error) {
	resp, err := provider.Chat(ctx, &agent.ChatRequest{
		Model: planner.ModelSlot,
		System: strings.TrimSpace(planner.SystemPrompt + "\n\n" + plannerInstructions),
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: request}},
	})
	if err != nil {
		return models.Task{}, fmt.Errorf("coordinator: planning call failed: %w", err)
	}

	task, err := parsePlan(resp.Text)
	if err != nil {
		// Fall back to a single simple task rather than failing the whole
		// coordinator run because the planner didn't emit valid JSON.
		return models.Task{ID: "task-0", Description: request, Kind: models.TaskSimple}, nil
	}
	assignIDs(&task, "task")
	return task, nil
}

type planNode struct {
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	Children    []planNode `json:"children,omitempty"`
}

func parsePlan(text string) (models.Task, error) {
	text = strings.TrimSpace(text)
	// Models sometimes wrap the JSON in a fenced code block despite
	// instructions; strip that before parsing.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var node planNode
	if err := json.Unmarshal([]byte(text), &node); err != nil {
		return models.Task{}, err
	}
	return node.toTask(), nil
}

func (n planNode) toTask() models.Task {
	kind := models.TaskKind(n.Kind)
	switch kind {
	case models.TaskSimple, models.TaskComplex, models.TaskParallel, models.TaskSequential:
	default:
		kind = models.TaskSimple
	}
	t := models.Task{Description: n.Description, Kind: kind}
	for _, c := range n.Children {
		t.Children = append(t.Children, c.toTask())
	}
	return t
}

// assignIDs walks the tree depth-first, numbering every node so followups
// and aggregation can refer to tasks unambiguously.
func assignIDs(t *models.Task, prefix string) {
	t.ID = prefix
	for i := range t.Children {
		assignIDs(&t.Children[i], fmt.Sprintf("%s.%d", prefix, i))
	}
}
