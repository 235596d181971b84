package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/policy"
	"github.com/nexusagent/core/pkg/models"
)

// WriteTool implements write_file: creates or overwrites (or appends to) a
// file within the workspace, subject to policy arbitration.
type WriteTool struct {
	resolver Resolver
	arbiter  *policy.Arbiter
}

// NewWriteFileTool creates a write_file tool scoped to the workspace.
func NewWriteFileTool(cfg Config) *WriteTool {
	return &WriteTool{resolver: Resolver{Root: cfg.Workspace}, arbiter: cfg.Arbiter}
}

func (t *WriteTool) Name() string { return "write_file" }

func (t *WriteTool) Description() string {
	return "Write content to a file in the workspace (overwrites by default)."
}

func (t *WriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to write (relative to workspace).",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "File contents to write.",
			},
			"append": map[string]interface{}{
				"type":        "boolean",
				"description": "Append instead of overwrite (default: false).",
			},
		},
		"required": []string{"path", "content"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	if denied := EvaluatePolicy(t.arbiter, models.ActionFileWrite, resolved, "write_file"); denied != nil {
		return denied, nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return toolError(fmt.Sprintf("create directory: %v", err)), nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if input.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return toolError(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}

	result := map[string]interface{}{
		"path":          input.Path,
		"bytes_written": n,
		"append":        input.Append,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &agent.ToolResult{Content: string(payload)}, nil
}

// EvaluatePolicy runs a policy check for a privileged file/command action
// and, on denial or error, returns a ready-to-emit tool-error result; nil
// means the caller is clear to proceed. Shared by every privileged tool so
// a Deny surfaces as a normal tool message instead of aborting the turn.
func EvaluatePolicy(arbiter *policy.Arbiter, kind models.ActionKind, target, toolName string) *agent.ToolResult {
	if arbiter == nil {
		return nil
	}
	decision, rule, err := arbiter.Evaluate(policy.Request{ActionKind: kind, Target: target})
	if err != nil {
		return toolError(fmt.Sprintf("policy evaluation failed: %v", err))
	}
	if decision == models.DecisionAllow {
		return nil
	}
	reason := "denied by policy"
	if rule != nil && rule.Description != "" {
		reason = rule.Description
	}
	return toolError(fmt.Sprintf("%s denied: %s", toolName, reason))
}
