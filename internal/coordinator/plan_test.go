package coordinator

import (
	"context"
	"testing"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

type scriptedProvider struct {
	replies []string
	calls   int
}

func (p *scriptedProvider) Chat(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error) {
	if p.calls >= len(p.replies) {
		return &agent.ChatResponse{Text: "ok", StopReason: "stop"}, nil
	}
	text := p.replies[p.calls]
	p.calls++
	return &agent.ChatResponse{Text: text, StopReason: "stop"}, nil
}

func (p *scriptedProvider) StreamChat(ctx context.Context, req *agent.ChatRequest) (<-chan *agent.ChatChunk, error) {
	ch := make(chan *agent.ChatChunk, 1)
	ch <- &agent.ChatChunk{Done: true}
	close(ch)
	return ch, nil
}
func (p *scriptedProvider) Name() string          { return "fake" }
func (p *scriptedProvider) Models() []agent.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool   { return false }

func TestParsePlanSingleTask(t *testing.T) {
	task, err := parsePlan(`{"description": "fix the bug", "kind": "simple"}`)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if task.Description != "fix the bug" || task.Kind != models.TaskSimple {
		t.Fatalf("task = %+v", task)
	}
}

func TestParsePlanStripsCodeFence(t *testing.T) {
	task, err := parsePlan("```json\n{\"description\": \"x\", \"kind\": \"simple\"}\n```")
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if task.Description != "x" {
		t.Fatalf("task = %+v", task)
	}
}

func TestParsePlanTree(t *testing.T) {
	task, err := parsePlan(`{"description":"root","kind":"sequential","children":[{"description":"a","kind":"simple"},{"description":"b","kind":"simple"}]}`)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if len(task.Children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(task.Children))
	}
}

func TestPlanFallsBackToSingleTaskOnUnparsablePlan(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"not json at all"}}
	planner := AgentDefinition{Name: "planner", Planner: true, ModelSlot: "Blu"}

	task, err := plan(context.Background(), provider, planner, "do the thing")
	if err != nil {
		t.Fatalf("plan() error = %v", err)
	}
	if task.Description != "do the thing" || task.Kind != models.TaskSimple {
		t.Fatalf("task = %+v", task)
	}
}

func TestAssignIDsDepthFirst(t *testing.T) {
	task := models.Task{Children: []models.Task{{}, {Children: []models.Task{{}}}}}
	assignIDs(&task, "root")
	if task.ID != "root" {
		t.Fatalf("root ID = %q", task.ID)
	}
	if task.Children[1].Children[0].ID != "root.1.0" {
		t.Fatalf("nested ID = %q, want root.1.0", task.Children[1].Children[0].ID)
	}
}
