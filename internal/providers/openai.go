package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

// OpenAIConfig holds the settings needed to construct an OpenAIProvider.
// The same struct backs both the "openai" provider and the "llamacpp"
// provider: a llama.cpp server exposes an OpenAI-compatible /v1/chat/completions
// endpoint, so pointing BaseURL at it and leaving APIKey empty is enough to
// reuse this client against a local model.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string

	// ProviderName overrides Name(), e.g. "llamacpp" for a local backend
	// speaking the same wire protocol. Defaults to "openai".
	ProviderName string
}

// OpenAIProvider implements agent.LLMProvider against any OpenAI-compatible
// chat-completions endpoint.
type OpenAIProvider struct {
	client *openai.Client

	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
	name         string
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: API key or base URL is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	name := cfg.ProviderName
	if name == "" {
		name = "openai"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
		name:         name,
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) Models() []agent.Model {
	if p.name == "llamacpp" {
		return []agent.Model{{ID: p.defaultModel, Name: p.defaultModel, ContextSize: 32768}}
	}
	return []agent.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", ContextSize: 16385},
	}
}

// Chat sends a non-streaming chat-completions request — the canonical path
// for this provider, since go-openai's non-streaming response shape is
// stable and well documented.
func (p *OpenAIProvider) Chat(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error) {
	chatReq, err := p.buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		resp, lastErr = p.client.CreateChatCompletion(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !p.isRetryableError(lastErr) {
			return nil, fmt.Errorf("%s: %w", p.name, lastErr)
		}
		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt+1)):
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%s: max retries exceeded: %w", p.name, lastErr)
	}
	if len(resp.Choices) == 0 {
		return &agent.ChatResponse{StopReason: "empty"}, nil
	}

	choice := resp.Choices[0]
	result := &agent.ChatResponse{
		Text:         choice.Message.Content,
		StopReason:   string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

// StreamChat streams incremental deltas, reassembling fragmented tool-call
// arguments across chunks the way OpenAI's API emits them.
func (p *OpenAIProvider) StreamChat(ctx context.Context, req *agent.ChatRequest) (<-chan *agent.ChatChunk, error) {
	chatReq, err := p.buildRequest(req, true)
	if err != nil {
		return nil, err
	}

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		stream, lastErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !p.isRetryableError(lastErr) {
			return nil, fmt.Errorf("%s: %w", p.name, lastErr)
		}
		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt+1)):
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%s: max retries exceeded: %w", p.name, lastErr)
	}

	chunks := make(chan *agent.ChatChunk)
	go p.processStream(ctx, stream, chunks)
	return chunks, nil
}

func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agent.ChatChunk) {
	defer close(chunks)
	defer stream.Close()

	type building struct {
		id, name string
		args     strings.Builder
	}
	toolCalls := make(map[int]*building)
	var outputTokens int

	for {
		select {
		case <-ctx.Done():
			chunks <- &agent.ChatChunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				chunks <- &agent.ChatChunk{Done: true, OutputTokens: outputTokens}
				return
			}
			chunks <- &agent.ChatChunk{Error: err, Done: true}
			return
		}

		if resp.Usage != nil {
			outputTokens = resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &agent.ChatChunk{Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &building{}
			}
			if tc.ID != "" {
				toolCalls[index].id = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[index].args.WriteString(tc.Function.Arguments)
			}
		}

		if resp.Choices[0].FinishReason == openai.FinishReasonToolCalls {
			for _, tc := range toolCalls {
				chunks <- &agent.ChatChunk{ToolCall: &models.ToolCall{ID: tc.id, Name: tc.name, Arguments: tc.args.String()}}
			}
			toolCalls = make(map[int]*building)
		}
	}
}

func (p *OpenAIProvider) buildRequest(req *agent.ChatRequest, stream bool) (openai.ChatCompletionRequest, error) {
	messages, err := p.convertMessages(req.Messages, req.System)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertTools(req.Tools)
	}
	return chatReq, nil
}

func (p *OpenAIProvider) convertMessages(messages []models.ChatMessage, system string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: msg.Content})

		case models.RoleUser:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})

		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			result = append(result, oaiMsg)

		case models.RoleTool:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}

	return result, nil
}

func (p *OpenAIProvider) convertTools(tools []models.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))

	for i, tool := range tools {
		var schema map[string]any
		if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schema,
			},
		}
	}

	return result
}

func (p *OpenAIProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{
		"rate limit", "429",
		"500", "502", "503", "504",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
