package control

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/policy"
	"github.com/nexusagent/core/internal/tools/files"
	"github.com/nexusagent/core/pkg/models"
)

// editOp is one planned find/replace edit against a single file.
type editOp struct {
	Path       string `json:"path"`
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	ReplaceAll bool   `json:"replace_all"`
}

// editPlan is a validated, not-yet-applied set of edits across one or more
// files, keyed by an opaque id returned from plan_edits.
type editPlan struct {
	ID    string
	Edits []editOp
}

// PlanStore holds pending edit plans in memory, keyed by plan id.
type PlanStore struct {
	mu    sync.Mutex
	plans map[string]editPlan
}

// NewPlanStore creates an empty PlanStore.
func NewPlanStore() *PlanStore {
	return &PlanStore{plans: make(map[string]editPlan)}
}

func (s *PlanStore) put(p editPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *PlanStore) take(id string) (editPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if ok {
		delete(s.plans, id)
	}
	return p, ok
}

// PlanEditsTool implements plan_edits: validates a multi-file edit set
// against the current file contents (existence, ambiguity) without
// writing anything, and stores it for a later apply_edit_plan call.
type PlanEditsTool struct {
	resolver files.Resolver
	store    *PlanStore
	arbiter  *policy.Arbiter
}

// NewPlanEditsTool creates a plan_edits tool scoped to the workspace.
func NewPlanEditsTool(cfg files.Config, store *PlanStore) *PlanEditsTool {
	return &PlanEditsTool{resolver: files.Resolver{Root: cfg.Workspace}, store: store, arbiter: cfg.Arbiter}
}

func (t *PlanEditsTool) Name() string { return "plan_edits" }

func (t *PlanEditsTool) Description() string {
	return "Validate a multi-file set of find/replace edits without applying them; returns a plan_id for apply_edit_plan."
}

func (t *PlanEditsTool) ReadOnly() bool { return true }

func (t *PlanEditsTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"edits": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"path":        map[string]interface{}{"type": "string"},
						"old_text":    map[string]interface{}{"type": "string"},
						"new_text":    map[string]interface{}{"type": "string"},
						"replace_all": map[string]interface{}{"type": "boolean"},
					},
					"required": []string{"path", "old_text", "new_text"},
				},
			},
		},
		"required": []string{"edits"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *PlanEditsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Edits []editOp `json:"edits"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if len(input.Edits) == 0 {
		return toolError("edits are required"), nil
	}

	for _, edit := range input.Edits {
		resolved, err := t.resolver.Resolve(edit.Path)
		if err != nil {
			return toolError(err.Error()), nil
		}
		if denied := files.EvaluatePolicy(t.arbiter, models.ActionPlanEdits, resolved, "plan_edits"); denied != nil {
			return denied, nil
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return toolError(fmt.Sprintf("read %s: %v", edit.Path, err)), nil
		}
		occurrences := strings.Count(string(data), edit.OldText)
		if occurrences == 0 {
			return toolError(fmt.Sprintf("%s: old_text not found: %q", edit.Path, edit.OldText)), nil
		}
		if occurrences > 1 && !edit.ReplaceAll {
			return toolError(fmt.Sprintf("%s: old_text %q is ambiguous (%d occurrences); set replace_all or narrow it", edit.Path, edit.OldText, occurrences)), nil
		}
	}

	id := uuid.NewString()
	t.store.put(editPlan{ID: id, Edits: input.Edits})

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"plan_id":    id,
		"file_count": len(input.Edits),
	}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// ApplyEditPlanTool implements apply_edit_plan: applies a previously
// validated plan_edits plan to every file, all at once. Files are read
// into memory up front so a mid-apply failure leaves no file touched.
type ApplyEditPlanTool struct {
	resolver files.Resolver
	store    *PlanStore
	arbiter  *policy.Arbiter
}

// NewApplyEditPlanTool creates an apply_edit_plan tool scoped to the workspace.
func NewApplyEditPlanTool(cfg files.Config, store *PlanStore) *ApplyEditPlanTool {
	return &ApplyEditPlanTool{resolver: files.Resolver{Root: cfg.Workspace}, store: store, arbiter: cfg.Arbiter}
}

func (t *ApplyEditPlanTool) Name() string { return "apply_edit_plan" }

func (t *ApplyEditPlanTool) Description() string {
	return "Apply a plan produced by plan_edits to every file at once, or fail without touching any of them."
}

func (t *ApplyEditPlanTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"plan_id": map[string]interface{}{"type": "string"},
		},
		"required": []string{"plan_id"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ApplyEditPlanTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		PlanID string `json:"plan_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	plan, ok := t.store.take(input.PlanID)
	if !ok {
		return toolError(fmt.Sprintf("no such plan: %s", input.PlanID)), nil
	}

	type pending struct {
		resolved string
		content  string
	}
	staged := make([]pending, 0, len(plan.Edits))

	for _, edit := range plan.Edits {
		resolved, err := t.resolver.Resolve(edit.Path)
		if err != nil {
			return toolError(err.Error()), nil
		}
		if denied := files.EvaluatePolicy(t.arbiter, models.ActionApplyEditPlan, resolved, "apply_edit_plan"); denied != nil {
			return denied, nil
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return toolError(fmt.Sprintf("read %s: %v", edit.Path, err)), nil
		}
		content := string(data)
		occurrences := strings.Count(content, edit.OldText)
		if occurrences == 0 {
			return toolError(fmt.Sprintf("%s: old_text no longer present; file changed since plan_edits", edit.Path)), nil
		}
		if edit.ReplaceAll {
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
		} else {
			if occurrences > 1 {
				return toolError(fmt.Sprintf("%s: old_text became ambiguous since plan_edits", edit.Path)), nil
			}
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
		}
		staged = append(staged, pending{resolved: resolved, content: content})
	}

	for _, p := range staged {
		if err := os.WriteFile(p.resolved, []byte(p.content), 0o644); err != nil {
			return toolError(fmt.Sprintf("write %s: %v (plan partially applied)", p.resolved, err)), nil
		}
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{"applied_files": len(staged)}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}
