package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/policy"
	"github.com/nexusagent/core/pkg/models"
)

// maxReadFileSize is the hard cap on a file open_file/read_file will read;
// larger files are rejected outright rather than silently truncated.
const maxReadFileSize = 1 << 20 // 1 MiB

// Config controls filesystem tool defaults.
type Config struct {
	Workspace string
	Arbiter   *policy.Arbiter
}

// ReadTool implements open_file/read_file: whole-file or inclusive
// line-range reads, clamped to file bounds. name selects which of the two
// catalog names this instance presents to the LLM; behavior is identical.
type ReadTool struct {
	resolver Resolver
	arbiter  *policy.Arbiter
	name     string
}

// NewOpenFileTool creates the canonical open_file tool.
func NewOpenFileTool(cfg Config) *ReadTool {
	return &ReadTool{resolver: Resolver{Root: cfg.Workspace}, arbiter: cfg.Arbiter, name: "open_file"}
}

// NewReadFileTool creates read_file, the legacy alias some prompts still
// emit. It shares open_file's resolver, policy, and bounds exactly.
func NewReadFileTool(cfg Config) *ReadTool {
	return &ReadTool{resolver: Resolver{Root: cfg.Workspace}, arbiter: cfg.Arbiter, name: "read_file"}
}

func (t *ReadTool) Name() string { return t.name }

func (t *ReadTool) Description() string {
	return "Read a whole file or an inclusive line range (start_line..end_line, 1-based)."
}

func (t *ReadTool) ReadOnly() bool { return true }

func (t *ReadTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file (relative to workspace).",
			},
			"start_line": map[string]interface{}{
				"type":        "integer",
				"description": "First line to return, 1-based (default: 1).",
				"minimum":     0,
			},
			"end_line": map[string]interface{}{
				"type":        "integer",
				"description": "Last line to return, inclusive (default: end of file).",
				"minimum":     0,
			},
		},
		"required": []string{"path"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Path      string `json:"path"`
		StartLine int    `json:"start_line"`
		EndLine   int    `json:"end_line"`
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

	if denied := EvaluatePolicy(t.arbiter, models.ActionFileRead, resolved, t.name); denied != nil {
		return denied, nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("stat file: %v", err)), nil
	}
	if info.IsDir() {
		return toolError(fmt.Sprintf("%q is a directory; use list_files to see its contents", input.Path)), nil
	}
	if info.Size() > maxReadFileSize {
		return toolError(fmt.Sprintf("%q is %d bytes, exceeding the %d byte read limit", input.Path, info.Size(), maxReadFileSize)), nil
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read file: %v", err)), nil
	}
	if !utf8.Valid(raw) {
		return toolError("BinaryFileNotSupported: " + input.Path), nil
	}

	start := input.StartLine
	if start <= 0 {
		start = 1
	}
	end := input.EndLine
	if end <= 0 {
		end = 1 << 30
	}

	lines, totalLines := linesInRange(raw, start, end)

	result := map[string]interface{}{
		"path":        input.Path,
		"content":     strings.Join(lines, "\n"),
		"start_line":  start,
		"end_line":    minInt(end, totalLines),
		"total_lines": totalLines,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// linesInRange splits raw into lines and returns the inclusive 1-based
// [start, end] slice, clamped to the file's actual bounds, along with the
// total line count.
func linesInRange(raw []byte, start, end int) ([]string, int) {
	var all []string
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), maxReadFileSize)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	total := len(all)

	if start > total {
		return nil, total
	}
	if end > total {
		end = total
	}
	return all[start-1 : end], total
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
