// Package toolcall implements the C6 tool-call validator: recovering
// tool calls a model embedded as XML inside its content instead of using
// the structured tool_calls slot, and repairing malformed JSON arguments
// before dispatch.
package toolcall

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nexusagent/core/pkg/models"
)

var toolCallBlockRe = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)
var argRe = regexp.MustCompile(`(?s)<arg_key>(.*?)</arg_key>\s*<arg_value>(.*?)</arg_value>`)

// extractedCall is one <tool_call> block parsed out of assistant content.
type extractedCall struct {
	Name      string
	Arguments string // JSON-encoded object
}

// extractXMLToolCalls scans content for <tool_call>NAME<arg_key>K</arg_key>
// <arg_value>V</arg_value>...</tool_call> blocks. It returns the extracted
// calls and the content with every matched block removed. If content has
// no such blocks, it returns (nil, content) unchanged.
func extractXMLToolCalls(content string) ([]extractedCall, string) {
	blocks := toolCallBlockRe.FindAllStringSubmatchIndex(content, -1)
	if len(blocks) == 0 {
		return nil, content
	}

	var calls []extractedCall
	var cleaned strings.Builder
	last := 0
	for _, b := range blocks {
		start, end := b[0], b[1]
		inner := content[b[2]:b[3]]
		cleaned.WriteString(content[last:start])
		last = end

		name, args := parseToolCallBlock(inner)
		if name == "" {
			continue
		}
		calls = append(calls, extractedCall{Name: name, Arguments: args})
	}
	cleaned.WriteString(content[last:])

	if len(calls) == 0 {
		return nil, content
	}
	return calls, strings.TrimSpace(cleaned.String())
}

// parseToolCallBlock splits a <tool_call> block's inner text into the tool
// name (everything before the first <arg_key>) and a JSON object built
// from its arg_key/arg_value pairs, inferring JSON types for each value.
func parseToolCallBlock(inner string) (string, string) {
	nameEnd := len(inner)
	if idx := strings.Index(inner, "<arg_key>"); idx != -1 {
		nameEnd = idx
	}
	name := strings.TrimSpace(inner[:nameEnd])
	if name == "" {
		return "", ""
	}

	matches := argRe.FindAllStringSubmatch(inner, -1)
	var b strings.Builder
	b.WriteByte('{')
	for i, m := range matches {
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(key))
		b.WriteByte(':')
		b.WriteString(inferJSONValue(value))
	}
	b.WriteByte('}')
	return name, b.String()
}

// inferJSONValue renders a raw XML arg_value as a JSON literal, guessing
// integer, boolean, or string based on its shape.
func inferJSONValue(value string) string {
	if value == "true" || value == "false" {
		return value
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return value
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil && value != "" {
		return value
	}
	return strconv.Quote(value)
}

// synthesizeIDs assigns call_0, call_1, ... ids to extracted calls, which
// have none of their own since they never passed through the provider's
// structured tool_calls wire format.
func synthesizeIDs(calls []extractedCall) []models.ToolCall {
	out := make([]models.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = models.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      c.Name,
			Arguments: c.Arguments,
		}
	}
	return out
}
