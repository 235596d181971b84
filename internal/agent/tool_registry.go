package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nexusagent/core/pkg/models"
)

// Tool parameter limits to prevent resource exhaustion.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// ToolRegistry manages available tools with thread-safe registration and
// lookup. Tools are registered by name and retrieved for execution during
// agent conversations.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates a new empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry by its name. A tool registered under
// an existing name replaces the previous one.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool from the registry by name.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute runs a tool by name with the given JSON arguments. Lookup and
// validation failures come back as an error ToolResult rather than a Go
// error, so the LLM sees them as a normal (failed) tool turn.
func (r *ToolRegistry) Execute(ctx context.Context, name string, arguments json.RawMessage) (*ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &ToolResult{
			Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength),
			IsError: true,
		}, nil
	}
	if len(arguments) > MaxToolParamsSize {
		return &ToolResult{
			Content: fmt.Sprintf("tool arguments exceed maximum size of %d bytes", MaxToolParamsSize),
			IsError: true,
		}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{Content: "tool not found: " + name, IsError: true}, nil
	}
	return tool.Execute(ctx, arguments)
}

// AsTools returns every registered tool sorted by name. Stable ordering
// keeps the tool list (and therefore the prompt prefix sent to the LLM)
// deterministic across runs, which is required for provider-side prompt
// caching to hit.
func (r *ToolRegistry) AsTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// AsToolDefinitions renders the registry as the wire-format tool list
// passed to an LLMProvider, sorted by name for the same caching reason as
// AsTools.
func (r *ToolRegistry) AsToolDefinitions() []models.ToolDefinition {
	tools := r.AsTools()
	defs := make([]models.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = models.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		}
	}
	return defs
}

// IsReadOnly reports whether the named tool declares itself side-effect
// free via ReadOnlyTool. Unknown tools are treated as non-read-only so the
// executor defaults to the safer sequential path.
func (r *ToolRegistry) IsReadOnly(name string) bool {
	tool, ok := r.Get(name)
	if !ok {
		return false
	}
	ro, ok := tool.(ReadOnlyTool)
	return ok && ro.ReadOnly()
}
