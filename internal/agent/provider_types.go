package agent

import (
	"context"
	"encoding/json"

	"github.com/nexusagent/core/pkg/models"
)

// LLMProvider defines the interface for LLM backends. Chat is the canonical,
// non-streaming entry point: callers send a full conversation and get back
// one completed turn. StreamChat is optional — a provider that cannot
// usefully stream (or a caller that doesn't need to) can ignore it.
//
// Implementations must be safe for concurrent use.
type LLMProvider interface {
	// Chat sends a request and returns the complete response in one call.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChat sends a request and streams the response incrementally.
	// Providers that don't support native streaming may implement this by
	// buffering Chat's result into a single chunk.
	StreamChat(ctx context.Context, req *ChatRequest) (<-chan *ChatChunk, error)

	// Name returns the provider name (e.g. "anthropic", "openai", "llamacpp").
	Name() string

	// Models returns the models this provider exposes.
	Models() []Model

	// SupportsTools reports whether the provider can accept tool definitions.
	SupportsTools() bool
}

// ChatRequest contains everything needed for one LLM turn.
type ChatRequest struct {
	Model    string                `json:"model"`
	System   string                `json:"system,omitempty"`
	Messages []models.ChatMessage  `json:"messages"`
	Tools    []models.ToolDefinition `json:"tools,omitempty"`

	MaxTokens int `json:"max_tokens,omitempty"`

	EnableThinking       bool `json:"enable_thinking,omitempty"`
	ThinkingBudgetTokens int  `json:"thinking_budget_tokens,omitempty"`
}

// ChatResponse is one completed LLM turn: text and/or tool calls the loop
// must execute before the next turn.
type ChatResponse struct {
	Text      string            `json:"text,omitempty"`
	Reasoning string            `json:"reasoning,omitempty"`
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`

	StopReason string `json:"stop_reason,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// ChatChunk is one piece of a streamed response. A provider emits a final
// chunk with Done set and the accumulated ToolCalls/usage populated.
type ChatChunk struct {
	Text          string `json:"text,omitempty"`
	Thinking      string `json:"thinking,omitempty"`
	ThinkingStart bool   `json:"thinking_start,omitempty"`
	ThinkingEnd   bool   `json:"thinking_end,omitempty"`

	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	Done         bool `json:"done,omitempty"`
	InputTokens  int  `json:"input_tokens,omitempty"`
	OutputTokens int  `json:"output_tokens,omitempty"`

	Error error `json:"-"`
}

// Model describes an available LLM model and its capabilities.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// Tool defines the interface for executable agent tools.
type Tool interface {
	// Name returns the tool name for LLM function calling.
	Name() string

	// Description returns a natural language description of what the tool does.
	Description() string

	// Schema returns the JSON Schema defining the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with the given JSON parameters.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ReadOnlyTool is an optional extension a Tool implements to declare itself
// side-effect free, making it eligible for concurrent fan-out alongside
// other reads within the same loop iteration.
type ReadOnlyTool interface {
	Tool
	ReadOnly() bool
}

// ToolResult contains the output from a tool execution.
type ToolResult struct {
	Content   string     `json:"content"`
	IsError   bool       `json:"is_error,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact represents a file or media produced by a tool execution.
type Artifact struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}
