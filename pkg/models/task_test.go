package models

import "testing"

func TestTaskPriority_Ordering(t *testing.T) {
	if !(PriorityLow < PriorityMedium && PriorityMedium < PriorityHigh && PriorityHigh < PriorityCritical) {
		t.Fatal("TaskPriority ordering must be Low < Medium < High < Critical")
	}
}

func TestTaskPriority_String(t *testing.T) {
	tests := []struct {
		p    TaskPriority
		want string
	}{
		{PriorityLow, "low"},
		{PriorityMedium, "medium"},
		{PriorityHigh, "high"},
		{PriorityCritical, "critical"},
		{TaskPriority(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTask_ParallelChildren(t *testing.T) {
	parent := Task{
		ID:          "t-1",
		Description: "run two subtasks",
		Kind:        TaskParallel,
		Priority:    PriorityHigh,
		Children: []Task{
			{ID: "t-1a", Description: "sub a", Kind: TaskSimple},
			{ID: "t-1b", Description: "sub b", Kind: TaskSimple},
		},
	}

	if len(parent.Children) != 2 {
		t.Fatalf("Children length = %d, want 2", len(parent.Children))
	}
	if parent.Kind != TaskParallel {
		t.Errorf("Kind = %v, want %v", parent.Kind, TaskParallel)
	}
}

func TestAgentResult_Struct(t *testing.T) {
	res := AgentResult{
		Success:   true,
		Content:   "done",
		TaskID:    "t-1",
		AgentName: "researcher",
		WallMS:    1500,
		FollowUps: []Task{{ID: "t-2", Description: "follow up", Kind: TaskSimple}},
	}

	if !res.Success {
		t.Error("Success should be true")
	}
	if len(res.FollowUps) != 1 {
		t.Errorf("FollowUps length = %d, want 1", len(res.FollowUps))
	}
}
