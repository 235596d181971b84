package control

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/skills"
)

// ListSkillsTool implements list_skills: the set of skills eligible for
// this session (gating already applied by the skills.Manager).
type ListSkillsTool struct {
	manager *skills.Manager
}

// NewListSkillsTool creates a list_skills tool backed by manager.
func NewListSkillsTool(manager *skills.Manager) *ListSkillsTool {
	return &ListSkillsTool{manager: manager}
}

func (t *ListSkillsTool) Name() string        { return "list_skills" }
func (t *ListSkillsTool) Description() string { return "List skills eligible for this session." }
func (t *ListSkillsTool) ReadOnly() bool      { return true }

func (t *ListSkillsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *ListSkillsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("skills manager unavailable"), nil
	}
	entries := t.manager.ListEligible()
	type summary struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	out := make([]summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summary{Name: e.Name, Description: e.Description})
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"skills": out}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// LoadSkillTool implements load_skill: returns the full markdown content
// of one eligible skill by name.
type LoadSkillTool struct {
	manager *skills.Manager
}

// NewLoadSkillTool creates a load_skill tool backed by manager.
func NewLoadSkillTool(manager *skills.Manager) *LoadSkillTool {
	return &LoadSkillTool{manager: manager}
}

func (t *LoadSkillTool) Name() string        { return "load_skill" }
func (t *LoadSkillTool) Description() string { return "Load the full content of a named skill." }
func (t *LoadSkillTool) ReadOnly() bool      { return true }

func (t *LoadSkillTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string", "description": "Skill name."},
		},
		"required": []string{"name"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *LoadSkillTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("skills manager unavailable"), nil
	}
	var input struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if _, ok := t.manager.GetEligible(input.Name); !ok {
		return toolError(fmt.Sprintf("skill %q is not eligible for this session", input.Name)), nil
	}
	content, err := t.manager.LoadContent(input.Name)
	if err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"name": input.Name, "content": content}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// FindRelevantSkillsTool implements find_relevant_skills: a keyword match
// against eligible skill names and descriptions, used when the candidate
// set is too large to list in full.
type FindRelevantSkillsTool struct {
	manager *skills.Manager
}

// NewFindRelevantSkillsTool creates a find_relevant_skills tool backed by manager.
func NewFindRelevantSkillsTool(manager *skills.Manager) *FindRelevantSkillsTool {
	return &FindRelevantSkillsTool{manager: manager}
}

func (t *FindRelevantSkillsTool) Name() string { return "find_relevant_skills" }

func (t *FindRelevantSkillsTool) Description() string {
	return "Search eligible skills by keyword match against name and description."
}

func (t *FindRelevantSkillsTool) ReadOnly() bool { return true }

func (t *FindRelevantSkillsTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "Keywords to search for."},
		},
		"required": []string{"query"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *FindRelevantSkillsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("skills manager unavailable"), nil
	}
	var input struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	keywords := strings.Fields(strings.ToLower(input.Query))
	if len(keywords) == 0 {
		return toolError("query is required"), nil
	}

	type scored struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Score       int    `json:"-"`
	}
	var matches []scored
	for _, e := range t.manager.ListEligible() {
		haystack := strings.ToLower(e.Name + " " + e.Description)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{Name: e.Name, Description: e.Description, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	payload, _ := json.MarshalIndent(map[string]interface{}{"matches": matches}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}
