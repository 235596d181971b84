package control

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/config"
	"github.com/nexusagent/core/internal/policy"
	"github.com/nexusagent/core/internal/tools/files"
	"github.com/nexusagent/core/pkg/models"
)

// defaultMaxActiveSubagents bounds concurrently-running launch_subagent
// calls, matching the spawn-manager concurrency cap this tool is grounded
// on (the teacher's sub-agent package used the same default of 5).
const defaultMaxActiveSubagents = 5

// SubagentTool implements launch_subagent: runs a fresh, nested
// AgenticLoop against the same provider and a tool-scoped registry,
// blocking until the sub-agent reaches a final message or its own
// iteration cap, then returns a structured summary.
type SubagentTool struct {
	Provider  agent.LLMProvider
	Registry  *agent.ToolRegistry
	Config    *config.Config
	Arbiter   *policy.Arbiter
	MaxActive int

	active int64
}

// NewSubagentTool creates a launch_subagent tool.
func NewSubagentTool(provider agent.LLMProvider, registry *agent.ToolRegistry, cfg *config.Config, arbiter *policy.Arbiter) *SubagentTool {
	return &SubagentTool{Provider: provider, Registry: registry, Config: cfg, Arbiter: arbiter, MaxActive: defaultMaxActiveSubagents}
}

func (t *SubagentTool) Name() string { return "launch_subagent" }

func (t *SubagentTool) Description() string {
	return "Launch a nested sub-agent to complete a bounded task, optionally restricted to a tool allow-list."
}

func (t *SubagentTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "Task description/prompt for the sub-agent.",
			},
			"model": map[string]interface{}{
				"type":        "string",
				"description": "Model slot the sub-agent should use (default: same as parent).",
			},
			"allowed_tools": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "If set, restricts the sub-agent to only these tool names.",
			},
		},
		"required": []string{"task"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *SubagentTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Task         string   `json:"task"`
		Model        string   `json:"model"`
		AllowedTools []string `json:"allowed_tools"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if input.Task == "" {
		return toolError("task is required"), nil
	}

	if t.Arbiter != nil {
		if denied := files.EvaluatePolicy(t.Arbiter, models.ActionCommandExecution, "launch_subagent:"+input.Task, "launch_subagent"); denied != nil {
			return denied, nil
		}
	}

	maxActive := t.MaxActive
	if maxActive <= 0 {
		maxActive = defaultMaxActiveSubagents
	}
	if atomic.AddInt64(&t.active, 1) > int64(maxActive) {
		atomic.AddInt64(&t.active, -1)
		return toolError(fmt.Sprintf("max active sub-agents reached (%d)", maxActive)), nil
	}
	defer atomic.AddInt64(&t.active, -1)

	registry := t.Registry
	if len(input.AllowedTools) > 0 {
		registry = scopedRegistry(t.Registry, input.AllowedTools)
	}

	loop := &agent.AgenticLoop{
		Provider: t.Provider,
		Registry: registry,
		Executor: agent.NewExecutor(registry, nil),
		Config:   t.Config,
	}

	state := &models.ConversationState{Model: input.Model}
	start := time.Now()
	result, err := loop.Run(ctx, state, input.Task)
	wall := time.Since(start)
	if err != nil && result == nil {
		return toolError(err.Error()), nil
	}

	content := ""
	if len(result.State.Messages) > 0 {
		content = result.State.Messages[len(result.State.Messages)-1].Content
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"stop_reason":   result.StopReason,
		"content":       content,
		"iterations":    result.Iterations,
		"tool_calls":    result.ToolCalls,
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
		"wall_ms":       wall.Milliseconds(),
	}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// scopedRegistry builds a registry exposing only allow-listed tool names
// from full, mirroring the coordinator's own allow-list scoping.
func scopedRegistry(full *agent.ToolRegistry, allow []string) *agent.ToolRegistry {
	scoped := agent.NewToolRegistry()
	for _, name := range allow {
		if tool, ok := full.Get(name); ok {
			scoped.Register(tool)
		}
	}
	return scoped
}
