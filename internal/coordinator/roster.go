package coordinator

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed agents.default.yaml
var defaultRosterFS embed.FS

type rosterFile struct {
	Agents []rosterEntry `yaml:"agents"`
}

type rosterEntry struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	ModelSlot    string   `yaml:"model_slot"`
	SystemPrompt string   `yaml:"system_prompt"`
	ToolAllow    []string `yaml:"tool_allow"`
	Capabilities []string `yaml:"capabilities"`
	Planner      bool     `yaml:"planner"`
}

func (e rosterEntry) toDefinition() AgentDefinition {
	caps := make([]Capability, len(e.Capabilities))
	for i, c := range e.Capabilities {
		caps[i] = Capability(c)
	}
	return AgentDefinition{
		Name:         e.Name,
		Description:  e.Description,
		ModelSlot:    e.ModelSlot,
		SystemPrompt: e.SystemPrompt,
		ToolAllow:    e.ToolAllow,
		Capabilities: caps,
		Planner:      e.Planner,
	}
}

// LoadRoster reads the embedded default agent roster, then layers any
// on-disk override file on top by name (disk entries replace embedded ones
// with the same Name; new names are appended).
func LoadRoster(overridePath string) ([]AgentDefinition, error) {
	raw, err := defaultRosterFS.ReadFile("agents.default.yaml")
	if err != nil {
		return nil, fmt.Errorf("coordinator: read embedded roster: %w", err)
	}
	var base rosterFile
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("coordinator: parse embedded roster: %w", err)
	}

	byName := make(map[string]rosterEntry, len(base.Agents))
	order := make([]string, 0, len(base.Agents))
	for _, e := range base.Agents {
		byName[e.Name] = e
		order = append(order, e.Name)
	}

	if overridePath != "" {
		if data, err := os.ReadFile(overridePath); err == nil {
			var overrides rosterFile
			if err := yaml.Unmarshal(data, &overrides); err != nil {
				return nil, fmt.Errorf("coordinator: parse override roster %s: %w", overridePath, err)
			}
			for _, e := range overrides.Agents {
				if _, exists := byName[e.Name]; !exists {
					order = append(order, e.Name)
				}
				byName[e.Name] = e
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("coordinator: read override roster %s: %w", overridePath, err)
		}
	}

	defs := make([]AgentDefinition, 0, len(order))
	for _, name := range order {
		defs = append(defs, byName[name].toDefinition())
	}
	return defs, nil
}
