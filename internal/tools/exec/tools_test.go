package exec

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nexusagent/core/internal/policy"
	"github.com/nexusagent/core/pkg/models"
)

func TestExecToolRunsCommand(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tool := NewExecTool("exec", mgr)
	params, _ := json.Marshal(map[string]interface{}{
		"command": "echo hello",
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Fatalf("expected stdout in result: %s", result.Content)
	}
}

func TestRunCommandToolRejectsDenylistedCommand(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tool := NewRunCommandTool(mgr, nil)
	params, _ := json.Marshal(map[string]interface{}{
		"command": "rm -rf /",
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "destructive") {
		t.Fatalf("expected a denylist error, got %+v", result)
	}
}

func TestRunCommandToolHonorsPolicyDeny(t *testing.T) {
	mgr := NewManager(t.TempDir())
	arbiter := policy.NewArbiter(true, true)
	arbiter.Load([]models.PolicyRule{
		{ActionKind: models.ActionCommandExecution, TargetPattern: "*", Decision: models.DecisionDeny, Description: "commands disabled for this test"},
	})
	tool := NewRunCommandTool(mgr, arbiter)
	params, _ := json.Marshal(map[string]interface{}{"command": "echo hello"})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "commands disabled for this test") {
		t.Fatalf("expected policy denial, got %+v", result)
	}
}

func TestProcessToolLifecycle(t *testing.T) {
	mgr := NewManager(t.TempDir())
	execTool := NewExecTool("exec", mgr)
	procTool := NewProcessTool(mgr)

	params, _ := json.Marshal(map[string]interface{}{
		"command":    "echo background",
		"background": true,
	})
	result, err := execTool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}

	var payload struct {
		ProcessID string `json:"process_id"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if payload.ProcessID == "" {
		t.Fatalf("expected process_id")
	}

	time.Sleep(50 * time.Millisecond)
	statusParams, _ := json.Marshal(map[string]interface{}{
		"action":     "status",
		"process_id": payload.ProcessID,
	})
	statusResult, err := procTool.Execute(context.Background(), statusParams)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if statusResult.IsError {
		t.Fatalf("expected status success: %s", statusResult.Content)
	}

	removeParams, _ := json.Marshal(map[string]interface{}{
		"action":     "remove",
		"process_id": payload.ProcessID,
	})
	removeResult, err := procTool.Execute(context.Background(), removeParams)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removeResult.IsError {
		t.Fatalf("expected remove success: %s", removeResult.Content)
	}
}
