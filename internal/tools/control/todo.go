// Package control implements the C4 tools that steer the agentic loop
// itself rather than the filesystem or a terminal: todo tracking, model
// switching, iteration requests, skill access, multi-file edit planning,
// and sub-agent launch.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

// TodoStore holds one conversation's self-managed task list in memory.
type TodoStore struct {
	mu    sync.Mutex
	tasks []models.TodoTask
}

func (s *TodoStore) snapshot() []models.TodoTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TodoTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *TodoStore) replace(tasks []models.TodoTask) error {
	if err := models.ValidateTodoList(tasks); err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = append([]models.TodoTask(nil), tasks...)
	s.mu.Unlock()
	return nil
}

// TodoWriteTool implements todo_write: replaces the whole task list,
// rejecting a write that would leave more than one task in_progress.
type TodoWriteTool struct {
	store *TodoStore
}

// NewTodoWriteTool creates a todo_write tool backed by store.
func NewTodoWriteTool(store *TodoStore) *TodoWriteTool {
	return &TodoWriteTool{store: store}
}

func (t *TodoWriteTool) Name() string { return "todo_write" }

func (t *TodoWriteTool) Description() string {
	return "Replace the agent's todo list. At most one task may be in_progress at a time."
}

func (t *TodoWriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tasks": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":          map[string]interface{}{"type": "string"},
						"content":     map[string]interface{}{"type": "string"},
						"active_form": map[string]interface{}{"type": "string"},
						"status":      map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
					},
					"required": []string{"id", "content", "status"},
				},
			},
		},
		"required": []string{"tasks"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *TodoWriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Tasks []models.TodoTask `json:"tasks"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := t.store.replace(input.Tasks); err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"tasks": t.store.snapshot()}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// TodoListTool implements todo_list: a read-only snapshot of the current
// task list.
type TodoListTool struct {
	store *TodoStore
}

// NewTodoListTool creates a todo_list tool backed by store.
func NewTodoListTool(store *TodoStore) *TodoListTool {
	return &TodoListTool{store: store}
}

func (t *TodoListTool) Name() string        { return "todo_list" }
func (t *TodoListTool) Description() string { return "List the agent's current todo tasks." }
func (t *TodoListTool) ReadOnly() bool      { return true }

func (t *TodoListTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *TodoListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	payload, _ := json.MarshalIndent(map[string]interface{}{"tasks": t.store.snapshot()}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
