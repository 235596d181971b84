package models

import (
	"errors"
	"testing"
)

func TestValidateTodoList_AllowsZeroOrOneInProgress(t *testing.T) {
	tests := [][]TodoTask{
		{},
		{{ID: "1", Status: TodoPending}, {ID: "2", Status: TodoCompleted}},
		{{ID: "1", Status: TodoInProgress}, {ID: "2", Status: TodoPending}},
	}

	for _, tasks := range tests {
		if err := ValidateTodoList(tasks); err != nil {
			t.Errorf("ValidateTodoList(%v) = %v, want nil", tasks, err)
		}
	}
}

func TestValidateTodoList_RejectsMultipleInProgress(t *testing.T) {
	tasks := []TodoTask{
		{ID: "1", Status: TodoInProgress},
		{ID: "2", Status: TodoInProgress},
	}

	err := ValidateTodoList(tasks)
	if !errors.Is(err, ErrMultipleInProgress) {
		t.Fatalf("ValidateTodoList() = %v, want ErrMultipleInProgress", err)
	}
}
