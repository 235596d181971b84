package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/config"
)

// SwitchModelTool implements switch_model: changes the model slot the
// conversation uses for subsequent iterations, validated against the
// slots configured in Config.Models at runtime.
type SwitchModelTool struct {
	config   *config.Config
	switcher *agent.ModelSwitch
}

// NewSwitchModelTool creates a switch_model tool that writes accepted
// switches into switcher for the loop to pick up.
func NewSwitchModelTool(cfg *config.Config, switcher *agent.ModelSwitch) *SwitchModelTool {
	return &SwitchModelTool{config: cfg, switcher: switcher}
}

func (t *SwitchModelTool) Name() string { return "switch_model" }

func (t *SwitchModelTool) Description() string {
	return "Switch the model slot used for the rest of this conversation."
}

func (t *SwitchModelTool) Schema() json.RawMessage {
	names := t.validSlotNames()
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"model": map[string]interface{}{
				"type":        "string",
				"description": fmt.Sprintf("Target model slot. Valid slots: %s.", strings.Join(names, ", ")),
			},
		},
		"required": []string{"model"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *SwitchModelTool) validSlotNames() []string {
	if t.config == nil {
		return nil
	}
	names := make([]string, 0, len(t.config.Models))
	for _, m := range t.config.Models {
		names = append(names, m.Name)
	}
	return names
}

func (t *SwitchModelTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	target := strings.TrimSpace(input.Model)
	if target == "" {
		return toolError("model is required"), nil
	}
	if t.config != nil {
		if _, ok := t.config.ModelSlot(target); !ok {
			return toolError(fmt.Sprintf("unknown model slot %q; valid slots: %s", target, strings.Join(t.validSlotNames(), ", "))), nil
		}
	}
	t.switcher.Request(target)
	payload, _ := json.MarshalIndent(map[string]interface{}{"switched_to": target}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}
