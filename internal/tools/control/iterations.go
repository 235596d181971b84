package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/config"
)

// RequestMoreIterationsTool implements request_more_iterations: grants the
// current turn additional loop iterations, bounded by the configured
// IterationPolicy (at most 5 at a time, a justification of at least 100
// characters, rejecting any justification containing a banned phrase).
type RequestMoreIterationsTool struct {
	policy config.IterationPolicy
	grant  *agent.IterationGrant
}

// NewRequestMoreIterationsTool creates a request_more_iterations tool.
func NewRequestMoreIterationsTool(policy config.IterationPolicy, grant *agent.IterationGrant) *RequestMoreIterationsTool {
	return &RequestMoreIterationsTool{policy: policy, grant: grant}
}

func (t *RequestMoreIterationsTool) Name() string { return "request_more_iterations" }

func (t *RequestMoreIterationsTool) Description() string {
	return fmt.Sprintf(
		"Request up to %d additional loop iterations for this turn, with a justification of at least %d characters.",
		t.policy.MaxRequestable, t.policy.MinJustificationLen)
}

func (t *RequestMoreIterationsTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"count": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Additional iterations requested (1-%d).", t.policy.MaxRequestable),
				"minimum":     1,
			},
			"justification": map[string]interface{}{
				"type":        "string",
				"description": fmt.Sprintf("Why more iterations are needed (at least %d characters).", t.policy.MinJustificationLen),
			},
		},
		"required": []string{"count", "justification"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *RequestMoreIterationsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Count         int    `json:"count"`
		Justification string `json:"justification"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	policy := t.policy
	if policy.MaxRequestable <= 0 {
		policy = config.DefaultIterationPolicy()
	}

	if input.Count < 1 || input.Count > policy.MaxRequestable {
		return toolError(fmt.Sprintf("count must be between 1 and %d", policy.MaxRequestable)), nil
	}
	if len(input.Justification) < policy.MinJustificationLen {
		return toolError(fmt.Sprintf("justification must be at least %d characters", policy.MinJustificationLen)), nil
	}
	lower := strings.ToLower(input.Justification)
	for _, banned := range policy.RejectSubstrings {
		if strings.Contains(lower, strings.ToLower(banned)) {
			return toolError(fmt.Sprintf("justification rejected: contains banned phrase %q", banned)), nil
		}
	}

	t.grant.Grant(input.Count)
	payload, _ := json.MarshalIndent(map[string]interface{}{"granted": input.Count}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}
