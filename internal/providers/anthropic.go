// Package providers implements the provider-neutral LLM client abstraction:
// concrete agent.LLMProvider backends for Anthropic's Messages API, any
// OpenAI-compatible chat-completions endpoint, and local llama.cpp servers
// that speak the same OpenAI-compatible wire format.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

// AnthropicConfig holds the settings needed to construct an AnthropicProvider.
// Only APIKey is required; everything else has a sensible default.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// AnthropicProvider implements agent.LLMProvider against Anthropic's
// Messages API. Chat is built on top of the streaming path: there is only
// one wire call shape to get right, and it is exercised on every turn
// instead of only when a caller happens to want incremental output.
type AnthropicProvider struct {
	client anthropic.Client

	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(options...),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) SupportsTools() bool { return true }

func (p *AnthropicProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ContextSize: 200000, SupportsVision: true},
	}
}

// Chat accumulates StreamChat's chunks into one completed response. There is
// no separate non-streaming code path against the SDK: that would mean a
// second, never-exercised-until-production guess at a response shape.
func (p *AnthropicProvider) Chat(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error) {
	chunks, err := p.StreamChat(ctx, req)
	if err != nil {
		return nil, err
	}

	var text, reasoning strings.Builder
	var toolCalls []models.ToolCall
	resp := &agent.ChatResponse{}

	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
		}
		if chunk.Thinking != "" {
			reasoning.WriteString(chunk.Thinking)
		}
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, *chunk.ToolCall)
		}
		if chunk.Done {
			resp.InputTokens = chunk.InputTokens
			resp.OutputTokens = chunk.OutputTokens
		}
	}

	resp.Text = text.String()
	resp.Reasoning = reasoning.String()
	resp.ToolCalls = toolCalls
	if len(toolCalls) > 0 {
		resp.StopReason = "tool_use"
	} else {
		resp.StopReason = "end_turn"
	}
	return resp, nil
}

func (p *AnthropicProvider) StreamChat(ctx context.Context, req *agent.ChatRequest) (<-chan *agent.ChatChunk, error) {
	chunks := make(chan *agent.ChatChunk)

	go func() {
		defer close(chunks)

		var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
		var err error

		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			stream, err = p.createStream(ctx, req)
			if err == nil {
				break
			}

			if !p.isRetryableError(err) {
				chunks <- &agent.ChatChunk{Error: fmt.Errorf("anthropic: %w", err)}
				return
			}
			if attempt < p.maxRetries {
				backoff := p.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
				select {
				case <-ctx.Done():
					chunks <- &agent.ChatChunk{Error: ctx.Err()}
					return
				case <-time.After(backoff):
					continue
				}
			}
		}
		if err != nil {
			chunks <- &agent.ChatChunk{Error: fmt.Errorf("anthropic: max retries exceeded: %w", err)}
			return
		}

		p.processStream(stream, chunks, p.getModel(req.Model))
	}()

	return chunks, nil
}

func (p *AnthropicProvider) createStream(ctx context.Context, req *agent.ChatRequest) (*ssestream.Stream[anthropic.MessageStreamEventUnion], error) {
	messages, err := p.convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.getModel(req.Model)),
		Messages:  messages,
		MaxTokens: int64(p.getMaxTokens(req.MaxTokens)),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}

	if len(req.Tools) > 0 {
		tools, err := p.convertTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tools: %w", err)
		}
		params.Tools = tools
	}

	if req.EnableThinking {
		budget := int64(req.ThinkingBudgetTokens)
		if budget < 1024 {
			budget = 10000
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	return p.client.Messages.NewStreaming(ctx, params), nil
}

const maxEmptyStreamEvents = 300

// processStream mirrors the event-driven SSE handling of Anthropic's
// streaming Messages API: text, thinking and tool-use content blocks each
// arrive as a start/delta(s)/stop triple, with usage split across
// message_start (input) and message_delta (output).
func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *agent.ChatChunk, model string) {
	var currentToolCall *models.ToolCall
	var currentToolInput strings.Builder
	inThinkingBlock := false
	emptyEventCount := 0

	var inputTokens, outputTokens int

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			if start.Message.Usage.InputTokens > 0 {
				inputTokens = int(start.Message.Usage.InputTokens)
			}
			processed = true

		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			switch block.Type {
			case "thinking":
				inThinkingBlock = true
				chunks <- &agent.ChatChunk{ThinkingStart: true}
				processed = true
			case "tool_use":
				toolUse := block.AsToolUse()
				currentToolCall = &models.ToolCall{ID: toolUse.ID, Name: toolUse.Name}
				currentToolInput.Reset()
				processed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &agent.ChatChunk{Text: delta.Text}
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					chunks <- &agent.ChatChunk{Thinking: delta.Thinking}
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentToolInput.WriteString(delta.PartialJSON)
					processed = true
				}
			}

		case "content_block_stop":
			if inThinkingBlock {
				chunks <- &agent.ChatChunk{ThinkingEnd: true}
				inThinkingBlock = false
				processed = true
			} else if currentToolCall != nil {
				currentToolCall.Arguments = currentToolInput.String()
				chunks <- &agent.ChatChunk{ToolCall: currentToolCall}
				currentToolCall = nil
				processed = true
			}

		case "message_delta":
			delta := event.AsMessageDelta()
			if delta.Usage.OutputTokens > 0 {
				outputTokens = int(delta.Usage.OutputTokens)
			}
			processed = true

		case "message_stop":
			chunks <- &agent.ChatChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
			return

		case "error":
			chunks <- &agent.ChatChunk{Error: fmt.Errorf("anthropic: stream error")}
			return
		}

		if processed {
			emptyEventCount = 0
		} else {
			emptyEventCount++
			if emptyEventCount >= maxEmptyStreamEvents {
				chunks <- &agent.ChatChunk{Error: fmt.Errorf("anthropic: stream appears malformed after %d empty events", emptyEventCount)}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &agent.ChatChunk{Error: fmt.Errorf("anthropic: %w", err)}
	}
}

// convertMessages translates the flat ChatMessage sequence into Anthropic's
// message/content-block shape. Anthropic expects every tool result produced
// in response to one assistant turn to ride in a single following user
// message, so contiguous RoleTool messages are merged into one.
func (p *AnthropicProvider) convertMessages(messages []models.ChatMessage) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for i := 0; i < len(messages); {
		msg := messages[i]

		switch msg.Role {
		case models.RoleSystem:
			i++

		case models.RoleTool:
			var content []anthropic.ContentBlockParamUnion
			for i < len(messages) && messages[i].Role == models.RoleTool {
				content = append(content, anthropic.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
				i++
			}
			result = append(result, anthropic.NewUserMessage(content...))

		case models.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]interface{}
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						return nil, fmt.Errorf("invalid arguments for tool call %s: %w", tc.Name, err)
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(content...))
			i++

		default: // RoleUser
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			i++
		}
	}

	return result, nil
}

func (p *AnthropicProvider) convertTools(tools []models.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))

	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("invalid schema for tool %s: %w", tool.Name, err)
		}

		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid schema for tool %s: missing tool definition", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, toolParam)
	}

	return result, nil
}

func (p *AnthropicProvider) getModel(model string) string {
	if model == "" {
		return p.defaultModel
	}
	return model
}

func (p *AnthropicProvider) getMaxTokens(maxTokens int) int {
	if maxTokens <= 0 {
		return 4096
	}
	return maxTokens
}

// isRetryableError classifies transient failures (rate limits, server
// errors, timeouts, connection resets) as worth retrying.
func (p *AnthropicProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, substr := range []string{
		"rate_limit", "429", "too many requests",
		"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
