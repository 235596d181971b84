package agent

import (
	"regexp"
	"strings"

	"github.com/nexusagent/core/pkg/models"
)

// DefaultMaxToolResultSize is the default maximum size for tool results (64KB).
const DefaultMaxToolResultSize = 64 * 1024

// builtinSecretPatterns are always applied when SanitizeSecrets is enabled.
var builtinSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[\w-]{20,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[\w-\.]+`),
	regexp.MustCompile(`(?i)(aws|amazon).*?(key|secret|token)\s*[:=]\s*['"]?[\w/+=]{20,}['"]?`),
	regexp.MustCompile(`(?i)(password|passwd|secret|token)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

// ToolResultGuard controls how tool results are redacted before they are
// appended to conversation history.
type ToolResultGuard struct {
	Enabled         bool
	MaxChars        int
	Denylist        []string
	RedactPatterns  []string
	RedactionText   string
	TruncateSuffix  string
	SanitizeSecrets bool
}

func (g ToolResultGuard) active() bool {
	return g.Enabled || g.MaxChars > 0 || len(g.Denylist) > 0 || len(g.RedactPatterns) > 0 ||
		g.RedactionText != "" || g.TruncateSuffix != "" || g.SanitizeSecrets
}

// Apply redacts and truncates a tool result per the guard's configuration.
func (g ToolResultGuard) Apply(toolName string, result models.ToolResult) models.ToolResult {
	if !g.active() {
		return result
	}

	redaction := strings.TrimSpace(g.RedactionText)
	if redaction == "" {
		redaction = "[REDACTED]"
	}
	truncateSuffix := strings.TrimSpace(g.TruncateSuffix)
	if truncateSuffix == "" {
		truncateSuffix = "...[truncated]"
	}

	if len(g.Denylist) > 0 && matchesNamePatterns(g.Denylist, toolName) {
		result.Content = redaction
		return result
	}

	content := result.Content
	if g.SanitizeSecrets && content != "" {
		for _, re := range builtinSecretPatterns {
			content = re.ReplaceAllString(content, redaction)
		}
	}
	if len(g.RedactPatterns) > 0 && content != "" {
		for _, pattern := range g.RedactPatterns {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			content = re.ReplaceAllString(content, redaction)
		}
	}
	result.Content = content

	if g.MaxChars > 0 && len(result.Content) > g.MaxChars {
		cutoff := g.MaxChars
		if cutoff > len(result.Content) {
			cutoff = len(result.Content)
		}
		result.Content = result.Content[:cutoff] + truncateSuffix
	}

	return result
}

// matchesNamePatterns reports whether name matches any pattern. A pattern
// ending in ".*" matches by prefix; otherwise the match is exact.
func matchesNamePatterns(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == "" || name == "" {
			continue
		}
		if strings.HasSuffix(p, ".*") {
			if strings.HasPrefix(name, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if p == name {
			return true
		}
	}
	return false
}

// DetectSecrets scans content for potential secrets and returns a list of
// matched pattern names, useful for logging or alerting.
func DetectSecrets(content string) []string {
	if content == "" {
		return nil
	}
	names := []string{"api_key", "bearer_token", "aws_key", "generic_secret", "private_key"}
	var matches []string
	for i, re := range builtinSecretPatterns {
		if re.MatchString(content) {
			matches = append(matches, names[i])
		}
	}
	return matches
}

// SanitizeToolResult applies the default truncation and secret-redaction
// policy to a raw string, independent of a ToolResultGuard value.
func SanitizeToolResult(result string) string {
	if len(result) > DefaultMaxToolResultSize {
		result = result[:DefaultMaxToolResultSize] + "\n...[truncated]"
	}
	for _, re := range builtinSecretPatterns {
		result = re.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}
