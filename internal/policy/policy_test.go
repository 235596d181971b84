package policy

import (
	"errors"
	"testing"

	"github.com/nexusagent/core/pkg/models"
)

func TestArbiter_FirstMatchWins(t *testing.T) {
	a := NewArbiter(false, false)
	a.Load([]models.PolicyRule{
		{ActionKind: models.ActionFileWrite, TargetPattern: "**/*.md", Decision: models.DecisionAllow},
		{ActionKind: models.ActionFileWrite, TargetPattern: "secrets/**", Decision: models.DecisionDeny},
	})

	decision, rule, err := a.Evaluate(Request{ActionKind: models.ActionFileWrite, Target: "docs/readme.md"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision != models.DecisionAllow {
		t.Errorf("decision = %v, want Allow", decision)
	}
	if rule == nil {
		t.Fatal("expected matched rule")
	}
}

func TestArbiter_GlobMatchesNested(t *testing.T) {
	a := NewArbiter(false, false)
	a.Load([]models.PolicyRule{
		{ActionKind: models.ActionFileRead, TargetPattern: "secrets/**", Decision: models.DecisionDeny},
	})

	decision, _, _ := a.Evaluate(Request{ActionKind: models.ActionFileRead, Target: "secrets/nested/key.pem"})
	if decision != models.DecisionDeny {
		t.Errorf("decision = %v, want Deny", decision)
	}
}

func TestArbiter_NoMatchFallsToDefault(t *testing.T) {
	a := NewArbiter(false, false)
	decision, rule, err := a.Evaluate(Request{ActionKind: models.ActionFileRead, Target: "README.md"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision != models.DecisionAsk {
		t.Errorf("decision = %v, want Ask", decision)
	}
	if rule != nil {
		t.Error("expected no matched rule")
	}
}

func TestArbiter_NonInteractiveAskDegradesToDeny(t *testing.T) {
	a := NewArbiter(false, true)
	decision, _, err := a.Evaluate(Request{ActionKind: models.ActionFileDelete, Target: "foo.txt"})
	if !errors.Is(err, ErrNonInteractiveAsk) {
		t.Fatalf("err = %v, want ErrNonInteractiveAsk", err)
	}
	if decision != models.DecisionDeny {
		t.Errorf("decision = %v, want Deny", decision)
	}
}

func TestArbiter_DefaultAllowMode(t *testing.T) {
	a := NewArbiter(true, false)
	decision, _, err := a.Evaluate(Request{ActionKind: models.ActionFileRead, Target: "anything.txt"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision != models.DecisionAllow {
		t.Errorf("decision = %v, want Allow", decision)
	}
}

func TestMatchCommand(t *testing.T) {
	tests := []struct {
		pattern, command string
		want             bool
	}{
		{"cargo *", "cargo build --release", true},
		{"cargo *", "npm install", false},
		{"* --force", "git push --force", true},
		{"* --force", "git push", false},
		{"*", "anything at all", true},
		{"exact-command", "exact-command", true},
		{"exact-command", "exact-command extra", false},
	}
	for _, tt := range tests {
		if got := matchCommand(tt.pattern, tt.command); got != tt.want {
			t.Errorf("matchCommand(%q, %q) = %v, want %v", tt.pattern, tt.command, got, tt.want)
		}
	}
}

func TestArbiter_Learn(t *testing.T) {
	a := NewArbiter(false, false)
	a.Learn(models.PolicyRule{ActionKind: models.ActionCommandExecution, TargetPattern: "ls *", Decision: models.DecisionAllow})

	decision, _, _ := a.Evaluate(Request{ActionKind: models.ActionCommandExecution, Target: "ls -la"})
	if decision != models.DecisionAllow {
		t.Errorf("decision = %v, want Allow after Learn", decision)
	}
}
