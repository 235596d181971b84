package coordinator

import (
	"fmt"
	"strings"

	"github.com/nexusagent/core/pkg/models"
)

// aggregate combines every leaf AgentResult into one assistant-visible
// Report: a per-task summary section, the files each task's metadata
// claims to have touched, and any failures.
func (c *Coordinator) aggregate(results []models.AgentResult) *Report {
	report := &Report{TaskResults: results}

	var b strings.Builder
	for _, r := range results {
		status := "done"
		if !r.Success {
			status = "failed"
			report.Errors = append(report.Errors, fmt.Sprintf("%s (%s): %s", r.TaskID, r.AgentName, r.Content))
		}
		fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", status, r.TaskID, r.AgentName, truncate(r.Content, 200))

		if files, ok := r.Metadata["files_modified"].([]string); ok {
			report.FilesTouched = append(report.FilesTouched, files...)
		}
		if v, ok := r.Metadata["input_tokens"].(int); ok {
			report.InputTokens += v
		}
		if v, ok := r.Metadata["output_tokens"].(int); ok {
			report.OutputTokens += v
		}
	}

	report.Summary = strings.TrimSpace(b.String())
	return report
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
