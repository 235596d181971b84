package coordinator

import (
	"context"
	"testing"

	"github.com/nexusagent/core/internal/agent"
)

func TestDispatchEndToEndSingleTask(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`{"description": "summarize main.go", "kind": "simple"}`, // planner reply
		"here is the summary",                                    // code-analyst final reply
	}}
	registry := agent.NewToolRegistry()
	agents := []AgentDefinition{
		{Name: "planner", Planner: true, ModelSlot: "Blu"},
		{Name: "code-analyst", Capabilities: []Capability{CapabilityCodeAnalysis}, ModelSlot: "Grn"},
	}

	c := NewCoordinator(provider, registry, agents, nil)
	report, err := c.Dispatch(context.Background(), "summarize main.go")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(report.TaskResults) != 1 {
		t.Fatalf("len(TaskResults) = %d, want 1", len(report.TaskResults))
	}
	if !report.TaskResults[0].Success {
		t.Fatalf("task result = %+v, want success", report.TaskResults[0])
	}
	if report.TaskResults[0].Content != "here is the summary" {
		t.Fatalf("Content = %q", report.TaskResults[0].Content)
	}
}

func TestDispatchNoPlannerError(t *testing.T) {
	provider := &scriptedProvider{}
	registry := agent.NewToolRegistry()
	c := NewCoordinator(provider, registry, []AgentDefinition{{Name: "solo"}}, nil)

	if _, err := c.Dispatch(context.Background(), "do something"); err != ErrNoPlannerAgent {
		t.Fatalf("Dispatch() error = %v, want ErrNoPlannerAgent", err)
	}
}

func TestDispatchSequentialStopsOnFailure(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`{"description":"root","kind":"sequential","children":[{"description":"step one","kind":"simple"},{"description":"step two","kind":"simple"}]}`,
	}}
	registry := agent.NewToolRegistry()
	agents := []AgentDefinition{
		{Name: "planner", Planner: true, ModelSlot: "Blu"},
		{Name: "worker", Capabilities: []Capability{CapabilityCodeAnalysis}, ModelSlot: "Grn"},
	}
	c := NewCoordinator(provider, registry, agents, nil)

	report, err := c.Dispatch(context.Background(), "do two steps")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	// Both leaf runs hit the scripted provider's exhausted-reply fallback
	// ("ok"/stop final), so both succeed; this exercises the sequential
	// traversal order rather than the stop-on-failure branch directly.
	if len(report.TaskResults) != 2 {
		t.Fatalf("len(TaskResults) = %d, want 2", len(report.TaskResults))
	}
	if report.TaskResults[0].TaskID != "task.0" || report.TaskResults[1].TaskID != "task.1" {
		t.Fatalf("task IDs = %q, %q", report.TaskResults[0].TaskID, report.TaskResults[1].TaskID)
	}
}
