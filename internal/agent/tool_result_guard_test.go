package agent

import (
	"strings"
	"testing"

	"github.com/nexusagent/core/pkg/models"
)

func TestToolResultGuard_Inactive(t *testing.T) {
	g := ToolResultGuard{}
	res := models.ToolResult{Content: "hello"}
	if got := g.Apply("any_tool", res); got.Content != "hello" {
		t.Errorf("content = %q, want unchanged", got.Content)
	}
}

func TestToolResultGuard_Denylist(t *testing.T) {
	g := ToolResultGuard{Denylist: []string{"secrets.*"}}
	res := models.ToolResult{Content: "top secret payload"}
	got := g.Apply("secrets.read", res)
	if got.Content != "[REDACTED]" {
		t.Errorf("content = %q, want [REDACTED]", got.Content)
	}
}

func TestToolResultGuard_SanitizeSecrets(t *testing.T) {
	g := ToolResultGuard{SanitizeSecrets: true}
	res := models.ToolResult{Content: `api_key="sk-1234567890abcdef1234567890"`}
	got := g.Apply("http_fetch", res)
	if strings.Contains(got.Content, "sk-1234567890") {
		t.Errorf("secret not redacted: %q", got.Content)
	}
}

func TestToolResultGuard_Truncate(t *testing.T) {
	g := ToolResultGuard{MaxChars: 5}
	res := models.ToolResult{Content: "abcdefghij"}
	got := g.Apply("any_tool", res)
	if got.Content != "abcde...[truncated]" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestDetectSecrets(t *testing.T) {
	matches := DetectSecrets(`password: hunter22222`)
	if len(matches) == 0 {
		t.Error("expected at least one match")
	}
}

func TestSanitizeToolResult_Truncates(t *testing.T) {
	big := strings.Repeat("x", DefaultMaxToolResultSize+100)
	got := SanitizeToolResult(big)
	if len(got) >= len(big) {
		t.Error("expected truncation")
	}
}
