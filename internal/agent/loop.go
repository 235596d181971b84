// Package agent implements the tool-calling conversation engine: the
// registry tools are dispatched through, the bounded-concurrency executor,
// the redaction guard applied to tool output, and the per-turn state
// machine that drives an LLMProvider to a final message.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusagent/core/internal/config"
	"github.com/nexusagent/core/pkg/models"
)

// Validator extracts and repairs tool calls out of a raw provider reply
// before dispatch (XML-framed call blocks, malformed JSON arguments,
// string-quoted integers). A nil Validator is a no-op pass-through — the
// loop runs correctly without one, at the cost of rejecting replies a
// validator would otherwise have salvaged.
type Validator interface {
	Validate(ctx context.Context, content string, toolCalls []models.ToolCall) (string, []models.ToolCall, error)
}

// Compactor summarizes old turns once a conversation exceeds a
// model-specific byte budget. A nil Compactor disables compaction checks
// entirely; the loop still runs, it just never shrinks history.
type Compactor interface {
	ShouldCompact(state *models.ConversationState, modelSlot string) bool
	Compact(ctx context.Context, state *models.ConversationState, iteration int) (*models.ConversationState, error)
}

// iterationsRemainingNudgeThreshold: once this many iterations or fewer
// remain, the request's system prompt carries a finalize-now nudge, per
// Open Question 5's resolution (fires starting at exactly 2 remaining).
const iterationsRemainingNudgeThreshold = 2

// loopRetryBudget bounds LLM transport-error retries within one iteration
// before the turn aborts, distinct from the tool executor's own retries.
const loopRetryBudget = 3

// AgenticLoop drives one conversation turn: send, receive, validate,
// dispatch tools, append results, repeat until a final message or the
// iteration cap, per the C7 state machine.
type AgenticLoop struct {
	Provider    LLMProvider
	Registry    *ToolRegistry
	Executor    *Executor
	ResultGuard ToolResultGuard
	Validator   Validator
	Compactor   Compactor
	Config      *config.Config

	// IterationGrant receives extensions from the request_more_iterations
	// tool; nil means that tool is not wired in and the cap is fixed.
	IterationGrant *IterationGrant

	// ModelSwitch receives model-slot changes from the switch_model tool;
	// nil means that tool is not wired in and state.Model never changes
	// mid-turn.
	ModelSwitch *ModelSwitch
}

// NewAgenticLoop builds a loop from its collaborators. cfg must not be nil;
// Validator and Compactor may be left nil (see their doc comments).
func NewAgenticLoop(provider LLMProvider, registry *ToolRegistry, executor *Executor, cfg *config.Config) *AgenticLoop {
	return &AgenticLoop{
		Provider: provider,
		Registry: registry,
		Executor: executor,
		Config:   cfg,
	}
}

// RunResult carries the outcome of one turn alongside the usage metadata
// the coordinator (C9) and CLI surface report back to the user.
type RunResult struct {
	State        *models.ConversationState
	Iterations   int
	ToolCalls    int
	StopReason   string // "final", "max_iterations", "cancelled", "aborted"
	InputTokens  int
	OutputTokens int
}

// Run executes one turn against state: appends userMessage (if non-empty),
// then alternates LLM calls and tool dispatch until the model produces a
// final message with no tool calls, the iteration cap is reached, or ctx is
// cancelled. The returned RunResult.State is always well-formed: every
// ToolCall emitted by an appended assistant message has a matching tool
// message, even when the turn ends early.
func (l *AgenticLoop) Run(ctx context.Context, state *models.ConversationState, userMessage string) (*RunResult, error) {
	if l.Provider == nil {
		return nil, ErrNoProvider
	}

	limits := config.DefaultLoopLimits()
	if l.Config != nil {
		limits = l.Config.Loop
	}
	maxIterations := limits.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}

	if userMessage != "" {
		state.Messages = append(state.Messages, models.ChatMessage{
			Role:      models.RoleUser,
			Content:   userMessage,
			CreatedAt: time.Now(),
		})
	}

	result := &RunResult{State: state}
	deadline := time.Time{}
	if limits.MaxWallTime > 0 {
		deadline = time.Now().Add(limits.MaxWallTime)
	}

	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			result.StopReason = "cancelled"
			return result, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			result.StopReason = "max_iterations"
			l.appendAbortMessage(state, "wall-clock time budget exceeded for this turn")
			return result, nil
		}
		if iteration >= maxIterations {
			result.StopReason = "max_iterations"
			l.appendAbortMessage(state, fmt.Sprintf("iteration cap of %d reached without a final message; use request_more_iterations to ask for more", maxIterations))
			return result, &LoopError{Phase: PhaseComplete, Iteration: iteration, Cause: ErrMaxIterations}
		}
		if limits.MaxToolCalls > 0 && result.ToolCalls >= limits.MaxToolCalls {
			result.StopReason = "max_iterations"
			l.appendAbortMessage(state, fmt.Sprintf("tool-call cap of %d reached for this turn", limits.MaxToolCalls))
			return result, nil
		}
		result.Iterations = iteration + 1

		if slot, ok := l.ModelSwitch.Take(); ok {
			state.Model = slot
		}

		if l.Compactor != nil && l.Compactor.ShouldCompact(state, state.Model) {
			compacted, err := l.Compactor.Compact(ctx, state, iteration)
			if err != nil {
				return result, &LoopError{Phase: PhaseInit, Iteration: iteration, Message: "compaction failed", Cause: err}
			}
			state = compacted
			result.State = state
		}

		system := state.System
		if remaining := maxIterations - iteration; remaining <= iterationsRemainingNudgeThreshold {
			system += fmt.Sprintf("\n\n%d iteration(s) remain in this turn. Finalize your answer now without issuing new tool calls unless absolutely necessary.", remaining)
		}

		req := &ChatRequest{
			Model:    state.Model,
			System:   system,
			Messages: state.Messages,
			Tools:    l.Registry.AsToolDefinitions(),
		}

		resp, err := l.sendWithRetry(ctx, req)
		if err != nil {
			result.StopReason = "aborted"
			return result, &LoopError{Phase: PhaseStream, Iteration: iteration, Message: "llm transport error exceeded retry budget", Cause: err}
		}
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens

		content, toolCalls := resp.Text, resp.ToolCalls
		if l.Validator != nil {
			content, toolCalls, err = l.Validator.Validate(ctx, content, toolCalls)
			if err != nil {
				return result, &LoopError{Phase: PhaseStream, Iteration: iteration, Message: "tool-call validation failed", Cause: err}
			}
		}

		state.Messages = append(state.Messages, models.ChatMessage{
			Role:      models.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
			Reasoning: resp.Reasoning,
			CreatedAt: time.Now(),
		})

		if len(toolCalls) == 0 {
			result.StopReason = "final"
			return result, nil
		}

		if err := ctx.Err(); err != nil {
			l.appendCancelledResults(state, toolCalls)
			result.StopReason = "cancelled"
			return result, nil
		}

		toolResults := l.dispatch(ctx, toolCalls)
		if extra := l.IterationGrant.Take(); extra > 0 {
			maxIterations += extra
		}
		result.ToolCalls += len(toolCalls)
		for i, tr := range toolResults {
			tr = l.ResultGuard.Apply(toolCalls[i].Name, tr)
			state.Messages = append(state.Messages, models.ChatMessage{
				Role:       models.RoleTool,
				Content:    tr.Content,
				ToolCallID: tr.ToolCallID,
				ToolName:   toolCalls[i].Name,
				CreatedAt:  time.Now(),
			})
		}
	}
}

// sendWithRetry calls the provider, retrying transport errors up to
// loopRetryBudget times before giving up on this iteration.
func (l *AgenticLoop) sendWithRetry(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= loopRetryBudget; attempt++ {
		resp, err := l.Provider.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt < loopRetryBudget {
			backoff := time.Duration(1<<uint(attempt)) * 200 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// dispatch splits calls into the leading contiguous run of read-only tool
// calls (executed concurrently) and everything from the first non-read-only
// call onward (executed sequentially), then returns results in the same
// order as calls regardless of which path ran them.
func (l *AgenticLoop) dispatch(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	splitAt := len(calls)
	for i, c := range calls {
		if !l.Registry.IsReadOnly(c.Name) {
			splitAt = i
			break
		}
	}

	results := make([]*ExecutionResult, 0, len(calls))
	if splitAt > 0 {
		results = append(results, l.Executor.ExecuteAll(ctx, calls[:splitAt])...)
	}
	if splitAt < len(calls) {
		results = append(results, l.Executor.ExecuteSequential(ctx, calls[splitAt:])...)
	}

	return ResultsToToolResults(results)
}

// appendCancelledResults synthesizes {success:false, error:"cancelled"}
// tool messages for every outstanding call so the conversation stays
// well-formed after a mid-turn cancellation.
func (l *AgenticLoop) appendCancelledResults(state *models.ConversationState, calls []models.ToolCall) {
	for _, c := range calls {
		state.Messages = append(state.Messages, models.ChatMessage{
			Role:       models.RoleTool,
			Content:    `{"success":false,"error":"cancelled"}`,
			ToolCallID: c.ID,
			ToolName:   c.Name,
			CreatedAt:  time.Now(),
		})
	}
}

// appendAbortMessage appends a final assistant message summarizing why the
// turn ended without the model producing one itself.
func (l *AgenticLoop) appendAbortMessage(state *models.ConversationState, reason string) {
	state.Messages = append(state.Messages, models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   "Turn ended: " + reason,
		CreatedAt: time.Now(),
	})
}
