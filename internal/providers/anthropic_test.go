package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

func TestNewAnthropicProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      AnthropicConfig
		expectError bool
	}{
		{
			name:        "valid config",
			config:      AnthropicConfig{APIKey: "test-key", MaxRetries: 3, RetryDelay: time.Second},
			expectError: false,
		},
		{
			name:        "missing API key",
			config:      AnthropicConfig{MaxRetries: 3},
			expectError: true,
		},
		{
			name:        "defaults applied",
			config:      AnthropicConfig{APIKey: "test-key"},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAnthropicProvider(tt.config)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.maxRetries != 3 {
				t.Errorf("maxRetries = %d, want 3", p.maxRetries)
			}
			if p.defaultModel == "" {
				t.Error("defaultModel should not be empty")
			}
		})
	}
}

func TestAnthropicProviderMethods(t *testing.T) {
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("Name() = %q, want anthropic", p.Name())
	}
	if !p.SupportsTools() {
		t.Error("SupportsTools() should be true")
	}
	if len(p.Models()) == 0 {
		t.Error("Models() should not be empty")
	}
}

func TestConvertMessages(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "system prompt, dropped"},
		{Role: models.RoleUser, Content: "hello"},
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`},
			},
		},
		{Role: models.RoleTool, ToolCallID: "call_1", Content: "file contents"},
		{Role: models.RoleAssistant, Content: "done"},
	}

	converted, err := p.convertMessages(messages)
	if err != nil {
		t.Fatalf("convertMessages() error = %v", err)
	}
	// system dropped, user, assistant(tool_use), user(tool_result), assistant(text)
	if len(converted) != 4 {
		t.Fatalf("len(converted) = %d, want 4", len(converted))
	}
}

func TestConvertMessagesMergesConsecutiveToolResults(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})

	messages := []models.ChatMessage{
		{Role: models.RoleTool, ToolCallID: "a", Content: "result a"},
		{Role: models.RoleTool, ToolCallID: "b", Content: "result b"},
	}

	converted, err := p.convertMessages(messages)
	if err != nil {
		t.Fatalf("convertMessages() error = %v", err)
	}
	if len(converted) != 1 {
		t.Fatalf("len(converted) = %d, want 1 (merged tool results)", len(converted))
	}
}

func TestConvertMessagesInvalidToolArguments(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})

	messages := []models.ChatMessage{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Name: "broken", Arguments: `not json`},
			},
		},
	}

	if _, err := p.convertMessages(messages); err == nil {
		t.Error("expected error for invalid tool call arguments")
	}
}

func TestConvertTools(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})

	tools := []models.ToolDefinition{
		{
			Name:        "read_file",
			Description: "reads a file",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
		},
	}

	converted, err := p.convertTools(tools)
	if err != nil {
		t.Fatalf("convertTools() error = %v", err)
	}
	if len(converted) != 1 {
		t.Fatalf("len(converted) = %d, want 1", len(converted))
	}
	if converted[0].OfTool == nil || converted[0].OfTool.Name != "read_file" {
		t.Errorf("converted tool = %+v", converted[0])
	}
}

func TestConvertToolsInvalidSchema(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})

	tools := []models.ToolDefinition{
		{Name: "broken", Parameters: json.RawMessage(`not json`)},
	}

	if _, err := p.convertTools(tools); err == nil {
		t.Error("expected error for invalid tool schema")
	}
}

func TestIsRetryableError(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})

	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("429 too many requests"), true},
		{fmt.Errorf("rate_limit exceeded"), true},
		{fmt.Errorf("503 service unavailable"), true},
		{fmt.Errorf("connection reset by peer"), true},
		{fmt.Errorf("invalid request: missing field"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := p.isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestGetModelAndMaxTokensDefaults(t *testing.T) {
	p, _ := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", DefaultModel: "claude-sonnet-4-20250514"})

	if got := p.getModel(""); got != "claude-sonnet-4-20250514" {
		t.Errorf("getModel(\"\") = %q", got)
	}
	if got := p.getModel("claude-opus-4-20250514"); got != "claude-opus-4-20250514" {
		t.Errorf("getModel(override) = %q", got)
	}
	if got := p.getMaxTokens(0); got != 4096 {
		t.Errorf("getMaxTokens(0) = %d, want 4096", got)
	}
	if got := p.getMaxTokens(100); got != 100 {
		t.Errorf("getMaxTokens(100) = %d, want 100", got)
	}
}

// TestChatEndToEnd exercises Chat against a fake SSE server speaking the
// same event sequence Anthropic's Messages API streams, verifying that
// accumulation via StreamChat produces a complete ChatResponse.
func TestChatEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		events := []string{
			`event: message_start`,
			`data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","usage":{"input_tokens":10}}}`,
			``,
			`event: content_block_start`,
			`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			``,
			`event: content_block_delta`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hello"}}`,
			``,
			`event: content_block_stop`,
			`data: {"type":"content_block_stop","index":0}`,
			``,
			`event: message_delta`,
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`,
			``,
			`event: message_stop`,
			`data: {"type":"message_stop"}`,
			``,
		}
		for _, e := range events {
			fmt.Fprintln(w, e)
			flusher.Flush()
		}
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	resp, err := p.Chat(context.Background(), &agent.ChatRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("Text = %q, want hello", resp.Text)
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", resp.InputTokens, resp.OutputTokens)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
}
