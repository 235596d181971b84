package terminal

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/policy"
	iterm "github.com/nexusagent/core/internal/terminal"
	"github.com/nexusagent/core/pkg/models"
)

func newTestToolset(t *testing.T, allow bool) *Toolset {
	t.Helper()
	arb := policy.NewArbiter(allow, false)
	return &Toolset{Manager: iterm.NewManager(iterm.NewPTYBackend(), iterm.NewPTYBackend()), Arbiter: arb, WorkDir: "/tmp"}
}

func TestLaunchToolDeniedByPolicy(t *testing.T) {
	ts := newTestToolset(t, false)
	ts.Arbiter.Load([]models.PolicyRule{{ActionKind: models.ActionCommandExecution, TargetPattern: "*", Decision: models.DecisionDeny}})

	tool := &launchTool{ts}
	params, _ := json.Marshal(map[string]string{"command": "echo hi"})
	res, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("expected denial to surface as a tool error, not an aborted call")
	}
}

func TestLaunchAndGetScreenRoundTrip(t *testing.T) {
	ts := newTestToolset(t, true)
	tools := ts.Tools()
	var launch, getScreen, list, kill agent.Tool
	for _, tool := range tools {
		switch tool.Name() {
		case "pty_launch":
			launch = tool
		case "pty_get_screen":
			getScreen = tool
		case "pty_list":
			list = tool
		case "pty_kill":
			kill = tool
		}
	}

	params, _ := json.Marshal(map[string]string{"command": "echo round-trip-test"})
	launchRes, err := launch.Execute(context.Background(), params)
	if err != nil || launchRes.IsError {
		t.Fatalf("launch failed: err=%v res=%+v", err, launchRes)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(launchRes.Content), &launched); err != nil {
		t.Fatalf("failed to parse launch result: %v", err)
	}

	listParams, _ := json.Marshal(map[string]string{})
	listRes, err := list.Execute(context.Background(), listParams)
	if err != nil || listRes.IsError {
		t.Fatalf("list failed: err=%v res=%+v", err, listRes)
	}
	if !strings.Contains(listRes.Content, launched.SessionID) {
		t.Fatalf("list result missing launched session: %s", listRes.Content)
	}

	killParams, _ := json.Marshal(map[string]string{"session_id": launched.SessionID})
	if _, err := kill.Execute(context.Background(), killParams); err != nil {
		t.Fatalf("kill failed: %v", err)
	}

	screenParams, _ := json.Marshal(map[string]string{"session_id": launched.SessionID})
	screenRes, err := getScreen.Execute(context.Background(), screenParams)
	if err != nil {
		t.Fatalf("get_screen error = %v", err)
	}
	if !screenRes.IsError {
		t.Fatal("expected get_screen on a killed session to report an error")
	}
}
