package coordinator

import (
	"testing"

	"github.com/nexusagent/core/pkg/models"
)

func TestCanHandleSimpleAcceptedByAll(t *testing.T) {
	a := AgentDefinition{Name: "bare"}
	if !canHandle(a, models.Task{Kind: models.TaskSimple}) {
		t.Fatal("expected Simple task to be accepted by an agent with no capabilities")
	}
}

func TestCanHandleComplexRequiresThreeCapabilities(t *testing.T) {
	weak := AgentDefinition{Capabilities: []Capability{CapabilityCodeAnalysis}}
	strong := AgentDefinition{Capabilities: []Capability{CapabilityCodeAnalysis, CapabilityFileOperations, CapabilitySearch}}

	if canHandle(weak, models.Task{Kind: models.TaskComplex}) {
		t.Fatal("expected agent with <3 capabilities to fail Complex can_handle")
	}
	if !canHandle(strong, models.Task{Kind: models.TaskComplex}) {
		t.Fatal("expected agent with 3 capabilities to pass Complex can_handle")
	}
}

func TestCanHandleParallelRequiresArchitectureOrReview(t *testing.T) {
	plain := AgentDefinition{Capabilities: []Capability{CapabilityFileOperations, CapabilitySearch, CapabilityTesting}}
	architect := AgentDefinition{Capabilities: []Capability{CapabilityArchitectureDesign}}

	if canHandle(plain, models.Task{Kind: models.TaskParallel}) {
		t.Fatal("expected non-architect/reviewer to fail Parallel can_handle")
	}
	if !canHandle(architect, models.Task{Kind: models.TaskParallel}) {
		t.Fatal("expected architect to pass Parallel can_handle")
	}
}

func TestScorePrefersKeywordMatch(t *testing.T) {
	m := newMetrics()
	reviewer := AgentDefinition{Name: "reviewer", Capabilities: []Capability{CapabilityCodeReview}}
	tester := AgentDefinition{Name: "tester", Capabilities: []Capability{CapabilityTesting}}

	task := models.Task{Description: "please review this diff for issues"}
	if score(reviewer, task, m) <= score(tester, task, m) {
		t.Fatal("expected reviewer to outscore tester on a review-themed task")
	}
}

func TestScorePlannerNeverWins(t *testing.T) {
	m := newMetrics()
	planner := AgentDefinition{Name: "planner", Planner: true, Capabilities: []Capability{CapabilityCodeReview}}
	if score(planner, models.Task{Description: "review this"}, m) >= 0 {
		t.Fatal("expected planner score to always be negative")
	}
}

func TestSelectAgentPicksEligibleHighestScore(t *testing.T) {
	m := newMetrics()
	agents := []AgentDefinition{
		{Name: "weak", Capabilities: []Capability{CapabilityTesting}},
		{Name: "strong", Capabilities: []Capability{CapabilityCodeReview, CapabilitySecurityAnalysis}},
	}
	chosen, ok := selectAgent(agents, models.Task{Kind: models.TaskSimple, Description: "review this for security issues"}, m)
	if !ok {
		t.Fatal("expected an agent to be selected")
	}
	if chosen.Name != "strong" {
		t.Fatalf("chosen = %q, want strong", chosen.Name)
	}
}

func TestMetricsBonusNeutralForUnseenAgent(t *testing.T) {
	m := newMetrics()
	if m.bonus("never-run") != 0.5 {
		t.Fatalf("bonus() = %v, want 0.5", m.bonus("never-run"))
	}
	m.record("a", true)
	m.record("a", false)
	if m.bonus("a") != 0.5 {
		t.Fatalf("bonus() = %v, want 0.5 after 1/2 success", m.bonus("a"))
	}
}
