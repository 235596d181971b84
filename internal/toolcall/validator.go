package toolcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/pkg/models"
)

// ErrRepairFailed is returned when a tool call's arguments are still not
// valid JSON after the regex fix, integer coercion, and LLM-assisted
// repair steps have all been tried.
var ErrRepairFailed = errors.New("toolcall: argument repair failed")

// SchemaLookup resolves a tool's declared JSON schema by name, so the
// validator can decide which fields are supposed to be integers without
// hard-coding every built-in tool's contract.
type SchemaLookup interface {
	Get(name string) (agent.Tool, bool)
}

// RepairModel is the subset of agent.LLMProvider the validator needs for
// the last-resort LLM-assisted repair step: a tool-less chat completion
// against a fast model.
type RepairModel interface {
	Chat(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error)
}

// Validator implements agent.Validator: XML tool-call extraction followed
// by three-step JSON argument repair.
type Validator struct {
	Tools SchemaLookup
	// Repair is used for the LLM-assisted last-resort repair step. Nil
	// disables that step; repair then fails at step 2 with ErrRepairFailed.
	Repair RepairModel
	// RepairModelSlot names the fast model the repair step targets (the
	// "Blu" model slot in the model-size naming the rest of the engine uses).
	RepairModelSlot string

	schemaMu    sync.Mutex
	schemaCache map[string]*jsonschema.Schema
}

func NewValidator(tools SchemaLookup, repair RepairModel, repairModelSlot string) *Validator {
	return &Validator{Tools: tools, Repair: repair, RepairModelSlot: repairModelSlot, schemaCache: make(map[string]*jsonschema.Schema)}
}

// Validate implements agent.Validator.
func (v *Validator) Validate(ctx context.Context, content string, toolCalls []models.ToolCall) (string, []models.ToolCall, error) {
	if len(toolCalls) == 0 {
		if extracted, cleaned := extractXMLToolCalls(content); len(extracted) > 0 {
			toolCalls = synthesizeIDs(extracted)
			content = cleaned
		}
	}

	repaired := make([]models.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		fixed, err := v.repairArguments(ctx, tc)
		if err != nil {
			return content, nil, fmt.Errorf("tool call %q (id=%s): %w", tc.Name, tc.ID, err)
		}
		repaired[i] = fixed
	}
	return content, repaired, nil
}

// repairArguments applies the three-step algorithm from the spec to one
// tool call's Arguments, returning a copy with valid JSON arguments.
func (v *Validator) repairArguments(ctx context.Context, tc models.ToolCall) (models.ToolCall, error) {
	args := tc.Arguments
	if args == "" {
		args = "{}"
	}

	if !isValidJSON(args) {
		if fixed, ok := repairJSON(args); ok {
			args = fixed
		}
	}

	if isValidJSON(args) {
		if fixed, ok := coerceIntegerFields(args); ok {
			args = fixed
		}
	}

	if isValidJSON(args) {
		if err := v.validateAgainstSchema(tc.Name, args); err != nil {
			// Schema mismatches beyond "is this JSON" are surfaced to the
			// caller as tool errors by the registry, not retried here.
			tc.Arguments = args
			return tc, nil
		}
		tc.Arguments = args
		return tc, nil
	}

	if v.Repair == nil {
		return tc, ErrRepairFailed
	}

	fixed, err := v.llmRepair(ctx, tc.Name, args)
	if err != nil {
		return tc, fmt.Errorf("%w: %v", ErrRepairFailed, err)
	}
	if !isValidJSON(fixed) {
		return tc, ErrRepairFailed
	}
	tc.Arguments = fixed
	return tc, nil
}

func (v *Validator) llmRepair(ctx context.Context, toolName, broken string) (string, error) {
	prompt := fmt.Sprintf(
		"The following is supposed to be a JSON object of arguments for the tool %q but fails to parse:\n\n%s\n\nRespond with ONLY the corrected JSON object, no commentary.",
		toolName, broken,
	)
	resp, err := v.Repair.Chat(ctx, &agent.ChatRequest{
		Model:    v.RepairModelSlot,
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (v *Validator) validateAgainstSchema(toolName, args string) error {
	if v.Tools == nil {
		return nil
	}
	tool, ok := v.Tools.Get(toolName)
	if !ok {
		return nil
	}
	schema, err := v.compiledSchema(toolName, tool.Schema())
	if err != nil {
		return nil // an uncompilable declared schema should not block dispatch
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(args), &decoded); err != nil {
		return err
	}
	return schema.Validate(decoded)
}

func (v *Validator) compiledSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	v.schemaMu.Lock()
	defer v.schemaMu.Unlock()
	if cached, ok := v.schemaCache[name]; ok {
		return cached, nil
	}
	compiled, err := jsonschema.CompileString(name+".schema.json", string(raw))
	if err != nil {
		return nil, err
	}
	v.schemaCache[name] = compiled
	return compiled, nil
}

func isValidJSON(s string) bool {
	var v interface{}
	return json.Unmarshal([]byte(s), &v) == nil
}
