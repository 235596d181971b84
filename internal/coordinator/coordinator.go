package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/config"
	"github.com/nexusagent/core/pkg/models"
)

// Coordinator dispatches a user request across the agent roster: plan,
// score, run, aggregate.
type Coordinator struct {
	Provider agent.LLMProvider
	Registry *agent.ToolRegistry
	Agents   []AgentDefinition
	Config   *config.Config

	metrics *metrics
}

// NewCoordinator builds a Coordinator from an agent roster (see LoadRoster)
// and the shared provider/registry the rest of the engine uses.
func NewCoordinator(provider agent.LLMProvider, registry *agent.ToolRegistry, agents []AgentDefinition, cfg *config.Config) *Coordinator {
	return &Coordinator{Provider: provider, Registry: registry, Agents: agents, Config: cfg, metrics: newMetrics()}
}

func (c *Coordinator) plannerAgent() (AgentDefinition, error) {
	for _, a := range c.Agents {
		if a.Planner {
			return a, nil
		}
	}
	return AgentDefinition{}, ErrNoPlannerAgent
}

// Report is the aggregated, assistant-visible outcome of dispatching one
// user request across the roster.
type Report struct {
	Summary      string
	TaskResults  []models.AgentResult
	FilesTouched []string
	Errors       []string
	InputTokens  int
	OutputTokens int
	WallTime     time.Duration
}

// Dispatch plans request into a task tree, then runs it to completion,
// returning an aggregated Report.
func (c *Coordinator) Dispatch(ctx context.Context, request string) (*Report, error) {
	start := time.Now()

	planner, err := c.plannerAgent()
	if err != nil {
		return nil, err
	}
	root, err := plan(ctx, c.Provider, planner, request)
	if err != nil {
		return nil, err
	}

	results, err := c.runTask(ctx, root)
	if err != nil {
		return nil, err
	}

	report := c.aggregate(results)
	report.WallTime = time.Since(start)
	return report, nil
}

// runTask dispatches task (and, for Sequential/Parallel tasks, its
// children) and returns every AgentResult produced, depth-first, including
// any follow-up tasks an agent returned — inserted ahead of remaining
// siblings per the spec.
func (c *Coordinator) runTask(ctx context.Context, task models.Task) ([]models.AgentResult, error) {
	switch task.Kind {
	case models.TaskSequential:
		return c.runSequential(ctx, task.Children)
	case models.TaskParallel:
		return c.runParallel(ctx, task.Children)
	default:
		return c.runLeaf(ctx, task)
	}
}

func (c *Coordinator) runSequential(ctx context.Context, tasks []models.Task) ([]models.AgentResult, error) {
	var all []models.AgentResult
	queue := append([]models.Task(nil), tasks...)

	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]

		results, err := c.runTask(ctx, task)
		if err != nil {
			return all, err
		}
		all = append(all, results...)

		for _, r := range results {
			if !r.Success && !isIndependent(task) {
				return all, nil
			}
			if len(r.FollowUps) > 0 {
				queue = append(append([]models.Task(nil), r.FollowUps...), queue...)
			}
		}
	}
	return all, nil
}

func (c *Coordinator) runParallel(ctx context.Context, tasks []models.Task) ([]models.AgentResult, error) {
	resultsByIndex := make([][]models.AgentResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results, err := c.runTask(gctx, task)
			resultsByIndex[i] = results
			return err
		})
	}
	err := g.Wait()

	var all []models.AgentResult
	var followUps []models.Task
	for _, results := range resultsByIndex {
		all = append(all, results...)
		for _, r := range results {
			followUps = append(followUps, r.FollowUps...)
		}
	}
	if err != nil {
		return all, err
	}
	if len(followUps) > 0 {
		more, ferr := c.runSequential(ctx, followUps)
		all = append(all, more...)
		if ferr != nil {
			return all, ferr
		}
	}
	return all, nil
}

func isIndependent(task models.Task) bool {
	v, ok := task.Metadata["independent"].(bool)
	return ok && v
}

// runLeaf scores and selects an agent for task, then runs it via C7.
func (c *Coordinator) runLeaf(ctx context.Context, task models.Task) ([]models.AgentResult, error) {
	chosen, ok := selectAgent(c.Agents, task, c.metrics)
	if !ok {
		return []models.AgentResult{{
			Success: false,
			Content: fmt.Sprintf("no agent in the roster can handle task %q", task.ID),
			TaskID:  task.ID,
		}}, nil
	}

	result := c.runWithAgent(ctx, chosen, task)
	c.metrics.record(chosen.Name, result.Success)
	return []models.AgentResult{result}, nil
}

func (c *Coordinator) runWithAgent(ctx context.Context, def AgentDefinition, task models.Task) models.AgentResult {
	start := time.Now()

	registry := c.Registry
	if len(def.ToolAllow) > 0 {
		registry = scopedRegistry(c.Registry, def.ToolAllow)
	}

	loop := &agent.AgenticLoop{
		Provider: c.Provider,
		Registry: registry,
		Executor: agent.NewExecutor(registry, nil),
		Config:   c.Config,
	}

	state := &models.ConversationState{System: def.SystemPrompt, Model: def.ModelSlot}
	runResult, err := loop.Run(ctx, state, task.Description)
	wallMS := time.Since(start).Milliseconds()

	if err != nil {
		return models.AgentResult{Success: false, Content: err.Error(), TaskID: task.ID, AgentName: def.Name, WallMS: wallMS}
	}

	return models.AgentResult{
		Success:   runResult.StopReason == "final",
		Content:   lastAssistantContent(runResult.State),
		TaskID:    task.ID,
		AgentName: def.Name,
		WallMS:    wallMS,
		Metadata: map[string]any{
			"input_tokens":  runResult.InputTokens,
			"output_tokens": runResult.OutputTokens,
			"iterations":    runResult.Iterations,
			"stop_reason":   runResult.StopReason,
		},
	}
}

func lastAssistantContent(state *models.ConversationState) string {
	if state == nil {
		return ""
	}
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == models.RoleAssistant && state.Messages[i].Content != "" {
			return state.Messages[i].Content
		}
	}
	return ""
}

// scopedRegistry builds a registry exposing only allow-listed tool names
// from full, so an agent's own ToolAllow bounds what it can dispatch
// regardless of what's registered globally.
func scopedRegistry(full *agent.ToolRegistry, allow []string) *agent.ToolRegistry {
	scoped := agent.NewToolRegistry()
	for _, name := range allow {
		if tool, ok := full.Get(name); ok {
			scoped.Register(tool)
		}
	}
	return scoped
}
