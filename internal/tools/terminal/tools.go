// Package terminal adapts internal/terminal's session backends into the
// pty_* agent.Tool family: thin wrappers that translate tool arguments,
// apply the CommandExecution policy check on launch, and translate
// symbolic key names before writing to a session.
package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/policy"
	iterm "github.com/nexusagent/core/internal/terminal"
	"github.com/nexusagent/core/pkg/models"
)

// Toolset holds the shared manager and arbiter every pty_* tool needs and
// builds the full set of agent.Tool implementations.
type Toolset struct {
	Manager *iterm.Manager
	Arbiter *policy.Arbiter
	WorkDir string
}

// Tools returns every pty_* tool, ready to register on a ToolRegistry.
func (ts *Toolset) Tools() []agent.Tool {
	return []agent.Tool{
		&launchTool{ts},
		&sendKeysTool{ts},
		&getScreenTool{ts},
		&listTool{ts},
		&killTool{ts},
		&getCursorTool{ts},
		&resizeTool{ts},
		&setScrollbackTool{ts},
		&startCaptureTool{ts},
		&stopCaptureTool{ts},
		&requestUserInputTool{ts},
	}
}

func objSchema(props map[string]interface{}, required ...string) json.RawMessage {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	b, _ := json.Marshal(schema)
	return b
}

func errResult(format string, args ...interface{}) *agent.ToolResult {
	return &agent.ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

func jsonResult(v interface{}) *agent.ToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult("failed to encode result: %v", err)
	}
	return &agent.ToolResult{Content: string(b)}
}

// ---- pty_launch ----

type launchTool struct{ ts *Toolset }

func (t *launchTool) Name() string { return "pty_launch" }
func (t *launchTool) Description() string {
	return "Launch an interactive terminal session running the given command."
}
func (t *launchTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"command": map[string]interface{}{"type": "string", "description": "Command line to launch."},
		"cwd":     map[string]interface{}{"type": "string", "description": "Working directory."},
		"rows":    map[string]interface{}{"type": "integer", "description": "Terminal rows (default 24)."},
		"cols":    map[string]interface{}{"type": "integer", "description": "Terminal cols (default 80)."},
		"backend": map[string]interface{}{"type": "string", "enum": []string{"pty", "tmux"}, "description": "Backend to use (default pty)."},
		"scrollback_lines": map[string]interface{}{"type": "integer", "description": "Scrollback buffer size (default 1000)."},
	}, "command")
}

func (t *launchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		Command         string `json:"command"`
		Cwd             string `json:"cwd"`
		Rows            int    `json:"rows"`
		Cols            int    `json:"cols"`
		Backend         string `json:"backend"`
		ScrollbackLines int    `json:"scrollback_lines"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(args.Command) == "" {
		return errResult("command is required"), nil
	}

	decision, rule, err := t.ts.Arbiter.Evaluate(policy.Request{ActionKind: models.ActionCommandExecution, Target: args.Command})
	if err != nil {
		return errResult("policy evaluation failed: %v", err), nil
	}
	if decision != models.DecisionAllow {
		reason := "denied by policy"
		if rule != nil && rule.Description != "" {
			reason = rule.Description
		}
		return errResult("pty_launch denied: %s", reason), nil
	}

	kind := iterm.KindPTY
	if args.Backend == "tmux" {
		kind = iterm.KindTmux
	}
	size := iterm.Size{Rows: args.Rows, Cols: args.Cols}
	if size.Rows == 0 && size.Cols == 0 {
		size = iterm.DefaultSize
	}
	cwd := args.Cwd
	if cwd == "" {
		cwd = t.ts.WorkDir
	}

	id, err := t.ts.Manager.Launch(ctx, kind, iterm.LaunchOptions{
		Command:    []string{"/bin/sh", "-c", args.Command},
		WorkDir:    cwd,
		Size:       size,
		Scrollback: args.ScrollbackLines,
	})
	if err != nil {
		return errResult("launch failed: %v", err), nil
	}
	return jsonResult(map[string]interface{}{"session_id": id, "backend": string(kind)}), nil
}

// ---- pty_send_keys ----

type sendKeysTool struct{ ts *Toolset }

func (t *sendKeysTool) Name() string        { return "pty_send_keys" }
func (t *sendKeysTool) Description() string { return "Send keystrokes to a terminal session." }
func (t *sendKeysTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"session_id": map[string]interface{}{"type": "string"},
		"keys":       map[string]interface{}{"type": "string", "description": "Text to send; supports ^X control chars and [UP]/[DOWN]/etc special keys."},
		"enter":      map[string]interface{}{"type": "boolean", "description": "Append Enter after keys (default true)."},
	}, "session_id", "keys")
}

func (t *sendKeysTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
		Keys      string `json:"keys"`
		Enter     *bool  `json:"enter"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	data := translateKeys(args.Keys)
	if args.Enter == nil || *args.Enter {
		data = append(data, '\r')
	}
	if err := t.ts.Manager.SendKeys(ctx, args.SessionID, data); err != nil {
		return errResult("send_keys failed: %v", err), nil
	}
	return &agent.ToolResult{Content: "sent"}, nil
}

// ---- pty_get_screen ----

type getScreenTool struct{ ts *Toolset }

func (t *getScreenTool) Name() string        { return "pty_get_screen" }
func (t *getScreenTool) Description() string { return "Capture the current visible screen of a terminal session." }
func (t *getScreenTool) ReadOnly() bool      { return true }
func (t *getScreenTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"session_id": map[string]interface{}{"type": "string"},
		"colors":     map[string]interface{}{"type": "boolean", "description": "Preserve SGR color escapes (default false)."},
	}, "session_id")
}

func (t *getScreenTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
		Colors    bool   `json:"colors"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	lines, err := t.ts.Manager.GetScreen(ctx, args.SessionID, args.Colors)
	if err != nil {
		return errResult("get_screen failed: %v", err), nil
	}
	return &agent.ToolResult{Content: strings.Join(lines, "\n")}, nil
}

// ---- pty_list ----

type listTool struct{ ts *Toolset }

func (t *listTool) Name() string        { return "pty_list" }
func (t *listTool) Description() string { return "List all active terminal sessions." }
func (t *listTool) ReadOnly() bool      { return true }
func (t *listTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{})
}

func (t *listTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	infos := t.ts.Manager.List(ctx)
	out := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		entry := map[string]interface{}{
			"session_id": info.ID,
			"command":    info.Command,
			"running":    info.Running,
			"created_at": info.CreatedAt.Format(time.RFC3339),
		}
		if info.ExitCode != nil {
			entry["exit_code"] = *info.ExitCode
		}
		out = append(out, entry)
	}
	return jsonResult(out), nil
}

// ---- pty_kill ----

type killTool struct{ ts *Toolset }

func (t *killTool) Name() string        { return "pty_kill" }
func (t *killTool) Description() string { return "Terminate a terminal session." }
func (t *killTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}}, "session_id")
}

func (t *killTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if err := t.ts.Manager.Kill(ctx, args.SessionID); err != nil {
		return errResult("kill failed: %v", err), nil
	}
	return &agent.ToolResult{Content: "killed"}, nil
}

// ---- pty_get_cursor ----

type getCursorTool struct{ ts *Toolset }

func (t *getCursorTool) Name() string        { return "pty_get_cursor" }
func (t *getCursorTool) Description() string { return "Get the cursor position of a terminal session." }
func (t *getCursorTool) ReadOnly() bool      { return true }
func (t *getCursorTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}}, "session_id")
}

func (t *getCursorTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	row, col, err := t.ts.Manager.GetCursor(ctx, args.SessionID)
	if err != nil {
		return errResult("get_cursor failed: %v", err), nil
	}
	return jsonResult(map[string]int{"row": row, "col": col}), nil
}

// ---- pty_resize ----

type resizeTool struct{ ts *Toolset }

func (t *resizeTool) Name() string        { return "pty_resize" }
func (t *resizeTool) Description() string { return "Resize a terminal session's grid." }
func (t *resizeTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"session_id": map[string]interface{}{"type": "string"},
		"rows":       map[string]interface{}{"type": "integer"},
		"cols":       map[string]interface{}{"type": "integer"},
	}, "session_id", "rows", "cols")
}

func (t *resizeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
		Rows      int    `json:"rows"`
		Cols      int    `json:"cols"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if err := t.ts.Manager.Resize(ctx, args.SessionID, iterm.Size{Rows: args.Rows, Cols: args.Cols}); err != nil {
		return errResult("resize failed: %v", err), nil
	}
	return &agent.ToolResult{Content: "resized"}, nil
}

// ---- pty_set_scrollback ----
// Scrollback capacity is fixed at session creation by internal/terminal's
// screen buffer; this tool exposes get_scrollback, the read side of that
// contract, rather than a runtime resize knob the backend doesn't support.

type setScrollbackTool struct{ ts *Toolset }

func (t *setScrollbackTool) Name() string { return "pty_set_scrollback" }
func (t *setScrollbackTool) Description() string {
	return "Retrieve scrollback history for a terminal session (renamed get-side of the scrollback contract)."
}
func (t *setScrollbackTool) ReadOnly() bool { return true }
func (t *setScrollbackTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"session_id": map[string]interface{}{"type": "string"},
		"lines":      map[string]interface{}{"type": "integer", "description": "Number of lines to retrieve (0 = all retained)."},
	}, "session_id")
}

func (t *setScrollbackTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
		Lines     int    `json:"lines"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	lines, err := t.ts.Manager.GetScrollback(ctx, args.SessionID, args.Lines)
	if err != nil {
		return errResult("get_scrollback failed: %v", err), nil
	}
	return &agent.ToolResult{Content: strings.Join(lines, "\n")}, nil
}

// ---- pty_start_capture / pty_stop_capture ----

type startCaptureTool struct{ ts *Toolset }

func (t *startCaptureTool) Name() string        { return "pty_start_capture" }
func (t *startCaptureTool) Description() string { return "Start mirroring a terminal session's output to a file." }
func (t *startCaptureTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"session_id": map[string]interface{}{"type": "string"},
		"path":       map[string]interface{}{"type": "string", "description": "Destination file path."},
	}, "session_id", "path")
}

func (t *startCaptureTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
		Path      string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if err := t.ts.Manager.CaptureStart(ctx, args.SessionID, args.Path); err != nil {
		return errResult("start_capture failed: %v", err), nil
	}
	return &agent.ToolResult{Content: "capture started"}, nil
}

type stopCaptureTool struct{ ts *Toolset }

func (t *stopCaptureTool) Name() string        { return "pty_stop_capture" }
func (t *stopCaptureTool) Description() string { return "Stop an active output capture for a terminal session." }
func (t *stopCaptureTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}}, "session_id")
}

func (t *stopCaptureTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if err := t.ts.Manager.CaptureStop(ctx, args.SessionID); err != nil {
		return errResult("stop_capture failed: %v", err), nil
	}
	return &agent.ToolResult{Content: "capture stopped"}, nil
}

// ---- pty_request_user_input ----
// This tool never touches the backend: it's a conversation-engine signal
// a PTY-driving agent emits when the session is blocked waiting on input
// only a human can supply (e.g. an interactive credential prompt). The
// conversation engine surfaces the message and pauses the loop; it is not
// itself a backend operation.

type requestUserInputTool struct{ ts *Toolset }

func (t *requestUserInputTool) Name() string { return "pty_request_user_input" }
func (t *requestUserInputTool) Description() string {
	return "Pause the run and ask the user to supply input a terminal session is blocked on."
}
func (t *requestUserInputTool) Schema() json.RawMessage {
	return objSchema(map[string]interface{}{
		"session_id": map[string]interface{}{"type": "string"},
		"prompt":     map[string]interface{}{"type": "string", "description": "What to ask the user."},
	}, "session_id", "prompt")
}

func (t *requestUserInputTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		SessionID string `json:"session_id"`
		Prompt    string `json:"prompt"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if !t.ts.Manager.Exists(args.SessionID) {
		return errResult("unknown session: %s", args.SessionID), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("awaiting user input for session %s: %s", args.SessionID, args.Prompt)}, nil
}
