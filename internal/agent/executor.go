package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexusagent/core/pkg/models"
)

// ExecutorConfig configures the tool executor's concurrency, timeout, and
// retry behavior.
type ExecutorConfig struct {
	// MaxConcurrency limits parallel tool executions within one ExecuteAll
	// call. Default: 5.
	MaxConcurrency int

	// DefaultTimeout is the per-call timeout. Default: 30s.
	DefaultTimeout time.Duration

	// DefaultRetries is the number of retries for retryable errors. Default: 2.
	DefaultRetries int

	// RetryBackoff is the initial backoff between retries. Default: 100ms.
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the exponential backoff. Default: 5s.
	MaxRetryBackoff time.Duration
}

// DefaultExecutorConfig returns the default executor configuration.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxConcurrency:  5,
		DefaultTimeout:  30 * time.Second,
		DefaultRetries:  2,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// ToolConfig holds per-tool overrides for timeout and retry settings.
type ToolConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

// Executor runs tool calls against a ToolRegistry with retry, timeout, and
// bounded concurrency.
type Executor struct {
	registry   *ToolRegistry
	config     *ExecutorConfig
	toolConfig map[string]*ToolConfig
	mu         sync.RWMutex

	metrics *ExecutorMetrics
}

// ExecutorMetrics tracks cumulative executor performance counters.
type ExecutorMetrics struct {
	mu              sync.Mutex
	TotalExecutions int64
	TotalRetries    int64
	TotalFailures   int64
	TotalTimeouts   int64
	TotalPanics     int64
}

// NewExecutor creates a new Executor. If config is nil, DefaultExecutorConfig is used.
func NewExecutor(registry *ToolRegistry, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	return &Executor{
		registry:   registry,
		config:     config,
		toolConfig: make(map[string]*ToolConfig),
		metrics:    &ExecutorMetrics{},
	}
}

// ConfigureTool sets a per-tool timeout/retry override.
func (e *Executor) ConfigureTool(name string, config *ToolConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toolConfig[name] = config
}

func (e *Executor) getToolConfig(name string) *ToolConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toolConfig[name]
}

// ExecutionResult holds the outcome of one tool call.
type ExecutionResult struct {
	ToolCallID string
	ToolName   string
	Result     *ToolResult
	Error      error
	Duration   time.Duration
	Attempts   int
}

// ExecuteAll runs every call concurrently, bounded by MaxConcurrency, and
// returns results in the same order as the input. Callers are responsible
// for only passing batches that are safe to run concurrently (see
// ToolRegistry.IsReadOnly) — ExecuteAll itself applies no ordering
// guarantees between calls.
func (e *Executor) ExecuteAll(ctx context.Context, calls []models.ToolCall) []*ExecutionResult {
	if len(calls) == 0 {
		return nil
	}

	results := make([]*ExecutionResult, len(calls))
	concurrency := e.config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = e.Execute(gctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ExecuteSequential runs every call one at a time, in order, waiting for
// each to finish before starting the next. Used once a batch contains a
// tool call that is not known to be read-only.
func (e *Executor) ExecuteSequential(ctx context.Context, calls []models.ToolCall) []*ExecutionResult {
	results := make([]*ExecutionResult, len(calls))
	for i, call := range calls {
		results[i] = e.Execute(ctx, call)
	}
	return results
}

// Execute runs a single tool call with retry and timeout handling.
func (e *Executor) Execute(ctx context.Context, call models.ToolCall) *ExecutionResult {
	start := time.Now()
	result := &ExecutionResult{ToolCallID: call.ID, ToolName: call.Name}

	tc := e.getToolConfig(call.Name)
	timeout := e.config.DefaultTimeout
	maxRetries := e.config.DefaultRetries
	backoff := e.config.RetryBackoff
	if tc != nil {
		if tc.Timeout > 0 {
			timeout = tc.Timeout
		}
		if tc.Retries >= 0 {
			maxRetries = tc.Retries
		}
		if tc.RetryBackoff > 0 {
			backoff = tc.RetryBackoff
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result.Attempts = attempt + 1

		execResult, execErr := e.executeWithTimeout(ctx, call, timeout)
		if execErr == nil {
			result.Result = execResult
			result.Duration = time.Since(start)
			e.metrics.mu.Lock()
			e.metrics.TotalExecutions++
			if attempt > 0 {
				e.metrics.TotalRetries += int64(attempt)
			}
			e.metrics.mu.Unlock()
			return result
		}

		lastErr = execErr
		if !IsToolRetryable(execErr) || ctx.Err() != nil || attempt >= maxRetries {
			break
		}

		sleep := backoff * time.Duration(1<<uint(attempt))
		if sleep > e.config.MaxRetryBackoff {
			sleep = e.config.MaxRetryBackoff
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			lastErr = NewToolError(call.Name, ctx.Err()).WithType(ToolErrorTimeout).WithToolCallID(call.ID)
		}
	}

	result.Error = lastErr
	result.Duration = time.Since(start)

	e.metrics.mu.Lock()
	e.metrics.TotalExecutions++
	e.metrics.TotalFailures++
	if toolErr, ok := GetToolError(lastErr); ok {
		switch toolErr.Type {
		case ToolErrorTimeout:
			e.metrics.TotalTimeouts++
		case ToolErrorPanic:
			e.metrics.TotalPanics++
		}
	}
	e.metrics.mu.Unlock()

	return result
}

func (e *Executor) executeWithTimeout(ctx context.Context, call models.ToolCall, timeout time.Duration) (*ToolResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execResult struct {
		result *ToolResult
		err    error
	}
	resultCh := make(chan execResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				resultCh <- execResult{err: NewToolError(call.Name, fmt.Errorf("panic: %v\n%s", r, stack)).
					WithType(ToolErrorPanic).WithToolCallID(call.ID)}
			}
		}()
		result, err := e.registry.Execute(execCtx, call.Name, json.RawMessage(call.Arguments))
		if err != nil {
			resultCh <- execResult{err: NewToolError(call.Name, err).WithToolCallID(call.ID)}
			return
		}
		resultCh <- execResult{result: result}
	}()

	select {
	case res := <-resultCh:
		return res.result, res.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, NewToolError(call.Name, ctx.Err()).WithType(ToolErrorTimeout).
				WithToolCallID(call.ID).WithMessage("context cancelled")
		}
		return nil, NewToolError(call.Name, ErrToolTimeout).WithType(ToolErrorTimeout).
			WithToolCallID(call.ID).WithMessage(fmt.Sprintf("execution timed out after %s", timeout))
	}
}

// Metrics returns a point-in-time snapshot of executor counters.
func (e *Executor) Metrics() *ExecutorMetricsSnapshot {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	return &ExecutorMetricsSnapshot{
		TotalExecutions: e.metrics.TotalExecutions,
		TotalRetries:    e.metrics.TotalRetries,
		TotalFailures:   e.metrics.TotalFailures,
		TotalTimeouts:   e.metrics.TotalTimeouts,
		TotalPanics:     e.metrics.TotalPanics,
	}
}

// ExecutorMetricsSnapshot is a copy-safe snapshot of ExecutorMetrics.
type ExecutorMetricsSnapshot struct {
	TotalExecutions int64
	TotalRetries    int64
	TotalFailures   int64
	TotalTimeouts   int64
	TotalPanics     int64
}

// ResultsToToolResults converts execution results to the wire-format
// models.ToolResult slice appended to conversation history.
func ResultsToToolResults(results []*ExecutionResult) []models.ToolResult {
	out := make([]models.ToolResult, len(results))
	for i, r := range results {
		switch {
		case r.Error != nil:
			out[i] = models.ToolResult{ToolCallID: r.ToolCallID, Content: r.Error.Error(), IsError: true}
		case r.Result != nil:
			out[i] = models.ToolResult{ToolCallID: r.ToolCallID, Content: r.Result.Content, IsError: r.Result.IsError}
		}
	}
	return out
}

// AnyErrors reports whether any execution result failed.
func AnyErrors(results []*ExecutionResult) bool {
	for _, r := range results {
		if r.Error != nil || (r.Result != nil && r.Result.IsError) {
			return true
		}
	}
	return false
}
