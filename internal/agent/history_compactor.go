package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexusagent/core/internal/compaction"
	"github.com/nexusagent/core/internal/config"
	"github.com/nexusagent/core/pkg/models"
)

// HistoryCompactor implements Compactor per §4.8: once a conversation's
// serialized size exceeds its model slot's byte budget, it summarizes the
// middle span of the conversation (everything before the most recent
// KeepRecentCalls atomic tool-call sequences) via a tool-less LLM call,
// and replaces that span with one summary message. The system prompt
// (ConversationState.System) and the tail are never touched.
type HistoryCompactor struct {
	// Provider is used tool-less to generate the summary. Required.
	Provider LLMProvider

	// SummaryModel is the model identifier passed on the summarization
	// request; falls back to the conversation's own model if empty.
	SummaryModel string

	Config config.CompactionConfig
}

// NewHistoryCompactor builds a compactor. cfg is copied by value.
func NewHistoryCompactor(provider LLMProvider, summaryModel string, cfg config.CompactionConfig) *HistoryCompactor {
	return &HistoryCompactor{Provider: provider, SummaryModel: summaryModel, Config: cfg}
}

// ShouldCompact reports whether state's serialized size exceeds the byte
// budget configured for modelSlot (or the default budget if the slot has
// no explicit entry).
func (c *HistoryCompactor) ShouldCompact(state *models.ConversationState, modelSlot string) bool {
	if !c.Config.Enabled {
		return false
	}
	budget := c.Config.DefaultBudget
	if b, ok := c.Config.BudgetBytes[modelSlot]; ok && b > 0 {
		budget = b
	}
	if budget <= 0 {
		return false
	}
	return state.SizeBytes() > budget
}

// segment is a contiguous, atomically-preserved-or-summarized run of
// messages: either one ordinary message, or one tool-calling assistant
// message together with every tool message carrying a matching
// ToolCallID.
type segment struct {
	messages  []models.ChatMessage
	isToolRun bool
}

// segmentMessages groups a flat message list into segments per the
// atomicity rule above.
func segmentMessages(messages []models.ChatMessage) []segment {
	segments := make([]segment, 0, len(messages))
	i := 0
	for i < len(messages) {
		m := messages[i]
		if m.Role == models.RoleAssistant && len(m.ToolCalls) > 0 {
			ids := make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				ids[tc.ID] = true
			}
			group := []models.ChatMessage{m}
			j := i + 1
			for j < len(messages) && messages[j].Role == models.RoleTool && ids[messages[j].ToolCallID] {
				group = append(group, messages[j])
				j++
			}
			segments = append(segments, segment{messages: group, isToolRun: true})
			i = j
			continue
		}
		segments = append(segments, segment{messages: []models.ChatMessage{m}})
		i++
	}
	return segments
}

// Compact summarizes the eligible middle span of state's messages,
// preserving the most recent KeepRecentCalls tool-call sequences (and
// everything after the last one) verbatim.
func (c *HistoryCompactor) Compact(ctx context.Context, state *models.ConversationState, iteration int) (*models.ConversationState, error) {
	if c.Provider == nil {
		return state, fmt.Errorf("history compactor: %w", ErrNoProvider)
	}

	segments := segmentMessages(state.Messages)
	keep := c.Config.KeepRecentCalls
	if keep <= 0 {
		keep = 1
	}

	tailStart := len(segments)
	toolRunsSeen := 0
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].isToolRun {
			toolRunsSeen++
		}
		tailStart = i
		if toolRunsSeen >= keep {
			break
		}
	}

	if tailStart <= 0 {
		// Nothing eligible to summarize without touching the preserved tail.
		return state, nil
	}

	middle := segments[:tailStart]
	tail := segments[tailStart:]

	var middleMessages []models.ChatMessage
	for _, seg := range middle {
		middleMessages = append(middleMessages, seg.messages...)
	}
	if len(middleMessages) == 0 {
		return state, nil
	}

	summary, err := c.summarize(ctx, state, middleMessages)
	if err != nil {
		return state, fmt.Errorf("history compactor: summarizing iteration %d: %w", iteration, err)
	}

	rewritten := make([]models.ChatMessage, 0, len(tail)+1)
	rewritten = append(rewritten, models.NewSummaryMessage(summary))
	for _, seg := range tail {
		rewritten = append(rewritten, seg.messages...)
	}

	next := *state
	next.Messages = rewritten
	return &next, nil
}

// summarize converts the middle span to the compaction package's Message
// shape and runs it through SummarizeChunks, which handles chunking spans
// too large for one call.
func (c *HistoryCompactor) summarize(ctx context.Context, state *models.ConversationState, middle []models.ChatMessage) (string, error) {
	converted := make([]*compaction.Message, len(middle))
	for i, m := range middle {
		converted[i] = &compaction.Message{
			Role:    string(m.Role),
			Content: flattenMessage(m),
		}
	}

	model := c.SummaryModel
	if model == "" {
		model = state.Model
	}
	cfg := compaction.DefaultSummarizationConfig()
	cfg.Model = model

	return compaction.SummarizeChunks(ctx, converted, &providerSummarizer{provider: c.Provider, model: model}, cfg)
}

// flattenMessage renders a ChatMessage (including any tool calls or tool
// result content) as plain text for the summarization transcript.
func flattenMessage(m models.ChatMessage) string {
	var b strings.Builder
	b.WriteString(m.Content)
	for _, tc := range m.ToolCalls {
		fmt.Fprintf(&b, "\n[tool_call %s(%s) -> id=%s]", tc.Name, tc.Arguments, tc.ID)
	}
	if m.Role == models.RoleTool {
		fmt.Fprintf(&b, "\n[tool_result for %s]", m.ToolCallID)
	}
	return b.String()
}

// providerSummarizer adapts an LLMProvider to compaction.Summarizer via a
// single tool-less Chat call per chunk.
type providerSummarizer struct {
	provider LLMProvider
	model    string
}

const summarizationSystemPrompt = "Summarize the following excerpt of an agent conversation. " +
	"Preserve: key decisions made, files touched, still-open questions, and the last result of " +
	"each tool family used. Be concise; this summary replaces the excerpt in the working context."

func (s *providerSummarizer) GenerateSummary(ctx context.Context, messages []*compaction.Message, cfg *compaction.SummarizationConfig) (string, error) {
	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "[%s] %s\n", m.Role, m.Content)
	}

	system := summarizationSystemPrompt
	if cfg != nil && cfg.CustomInstructions != "" {
		system += "\n" + cfg.CustomInstructions
	}

	req := &ChatRequest{
		Model:  s.model,
		System: system,
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: transcript.String()},
		},
	}
	resp, err := s.provider.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
