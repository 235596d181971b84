package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nexusagent/core/internal/agent"
)

// ListTool implements list_files: a non-recursive directory listing
// relative to the workspace root.
type ListTool struct {
	resolver Resolver
}

// NewListFilesTool creates a list_files tool scoped to the workspace.
func NewListFilesTool(cfg Config) *ListTool {
	return &ListTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *ListTool) Name() string { return "list_files" }

func (t *ListTool) Description() string {
	return "List files and subdirectories of a directory in the workspace (non-recursive)."
}

func (t *ListTool) ReadOnly() bool { return true }

func (t *ListTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (relative to workspace; default: workspace root).",
			},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Path string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}
	target := input.Path
	if strings.TrimSpace(target) == "" {
		target = "."
	}

	resolved, err := t.resolver.Resolve(target)
	if err != nil {
		return toolError(err.Error()), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("stat directory: %v", err)), nil
	}
	if !info.IsDir() {
		return toolError(fmt.Sprintf("%q is a file, not a directory; use open_file to read it", target)), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read directory: %v", err)), nil
	}

	type entry struct {
		Name  string `json:"name"`
		IsDir bool   `json:"is_dir"`
		Size  int64  `json:"size,omitempty"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, entry{Name: e.Name(), IsDir: e.IsDir(), Size: fi.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	result := map[string]interface{}{
		"path":    target,
		"entries": out,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
