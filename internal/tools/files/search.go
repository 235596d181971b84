package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nexusagent/core/internal/agent"
)

const (
	defaultSearchGlob       = "**/*.rs"
	defaultSearchMaxResults = 50
)

var skipDirNames = map[string]bool{
	".git": true, "node_modules": true, "target": true, "vendor": true, ".cache": true,
}

// SearchTool implements search_files: a workspace-wide glob search
// supporting "**" for recursive directory matching, grounded on the same
// doublestar matcher the policy arbiter uses for target patterns.
type SearchTool struct {
	resolver Resolver
}

// NewSearchFilesTool creates a search_files tool scoped to the workspace.
func NewSearchFilesTool(cfg Config) *SearchTool {
	return &SearchTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *SearchTool) Name() string { return "search_files" }

func (t *SearchTool) Description() string {
	return fmt.Sprintf("Search the workspace for files matching a glob pattern (default %q, max %d results).",
		defaultSearchGlob, defaultSearchMaxResults)
}

func (t *SearchTool) ReadOnly() bool { return true }

func (t *SearchTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"glob": map[string]interface{}{
				"type":        "string",
				"description": fmt.Sprintf("Glob pattern, supporting ** (default: %q).", defaultSearchGlob),
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum matches to return (default: %d).", defaultSearchMaxResults),
				"minimum":     1,
			},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Glob       string `json:"glob"`
		MaxResults int    `json:"max_results"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}
	pattern := strings.TrimSpace(input.Glob)
	if pattern == "" {
		pattern = defaultSearchGlob
	}
	if !doublestar.ValidatePattern(pattern) {
		return toolError(fmt.Sprintf("invalid glob pattern: %q", pattern)), nil
	}
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchMaxResults
	}

	root, err := t.resolver.Resolve(".")
	if err != nil {
		return toolError(err.Error()), nil
	}

	var matches []string
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && skipDirNames[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if doublestar.MatchUnvalidated(pattern, rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	if walkErr != nil {
		return toolError(fmt.Sprintf("search failed: %v", walkErr)), nil
	}

	truncated := false
	if len(matches) > maxResults {
		matches = matches[:maxResults]
		truncated = true
	}

	result := map[string]interface{}{
		"glob":        pattern,
		"matches":     matches,
		"total_shown": len(matches),
		"truncated":   truncated,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
