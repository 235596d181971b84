package models

import "encoding/json"

// ToolDefinition describes a tool's calling contract as advertised to an
// LLM provider: name, human description, and a JSON Schema subset
// (object with typed properties and a required[] list).
//
// Produced by the tool registry from each registered tool's declared
// parameter table, and re-sorted by Name before every request so the
// provider sees a stable ordering (stable ordering keeps prompt caching
// effective across turns).
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
