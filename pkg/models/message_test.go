package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		constant Role
		expected string
	}{
		{RoleSystem, "system"},
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleTool, "tool"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestToolCall_Struct(t *testing.T) {
	tc := ToolCall{
		ID:        "tc-123",
		Name:      "web_search",
		Arguments: `{"query":"test query"}`,
	}

	if tc.ID != "tc-123" {
		t.Errorf("ID = %q, want %q", tc.ID, "tc-123")
	}
	if tc.Name != "web_search" {
		t.Errorf("Name = %q, want %q", tc.Name, "web_search")
	}
	if tc.Arguments != `{"query":"test query"}` {
		t.Errorf("Arguments = %q, want raw JSON string", tc.Arguments)
	}
}

func TestToolResult_Struct(t *testing.T) {
	tr := ToolResult{
		ToolCallID: "tc-123",
		Content:    "Search results here",
		IsError:    false,
	}

	if tr.ToolCallID != "tc-123" {
		t.Errorf("ToolCallID = %q, want %q", tr.ToolCallID, "tc-123")
	}
	if tr.IsError {
		t.Error("IsError should be false")
	}

	trError := ToolResult{
		ToolCallID: "tc-456",
		Content:    "Error occurred",
		IsError:    true,
	}
	if !trError.IsError {
		t.Error("IsError should be true")
	}
}

func TestChatMessage_JSONRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	original := ChatMessage{
		Role:      RoleAssistant,
		Content:   "Hello!",
		ToolCalls: []ToolCall{{ID: "tc-1", Name: "search", Arguments: `{"q":"test"}`}},
		CreatedAt: now,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded ChatMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Role != original.Role {
		t.Errorf("Role = %v, want %v", decoded.Role, original.Role)
	}
	if decoded.Content != original.Content {
		t.Errorf("Content = %q, want %q", decoded.Content, original.Content)
	}
	if len(decoded.ToolCalls) != 1 {
		t.Fatalf("ToolCalls length = %d, want 1", len(decoded.ToolCalls))
	}
	if decoded.ToolCalls[0].Arguments != `{"q":"test"}` {
		t.Errorf("ToolCalls[0].Arguments = %q, want %q", decoded.ToolCalls[0].Arguments, `{"q":"test"}`)
	}
}

func TestChatMessage_ToolResultFields(t *testing.T) {
	msg := ChatMessage{
		Role:       RoleTool,
		Content:    "42",
		ToolCallID: "tc-1",
		ToolName:   "calculator",
	}

	if msg.ToolCallID != "tc-1" {
		t.Errorf("ToolCallID = %q, want %q", msg.ToolCallID, "tc-1")
	}
	if msg.ToolName != "calculator" {
		t.Errorf("ToolName = %q, want %q", msg.ToolName, "calculator")
	}
}

func TestChatMessage_IsSummary(t *testing.T) {
	tests := []struct {
		name string
		msg  ChatMessage
		want bool
	}{
		{
			name: "summary tagged assistant message",
			msg:  ChatMessage{Role: RoleAssistant, Content: "[summary-of-prior-context] the user asked about X."},
			want: true,
		},
		{
			name: "plain assistant message",
			msg:  ChatMessage{Role: RoleAssistant, Content: "Sure, I can help with that."},
			want: false,
		},
		{
			name: "tagged content on wrong role",
			msg:  ChatMessage{Role: RoleUser, Content: "[summary-of-prior-context] not really"},
			want: false,
		},
		{
			name: "empty content",
			msg:  ChatMessage{Role: RoleAssistant, Content: ""},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsSummary(); got != tt.want {
				t.Errorf("IsSummary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatMessage_SizeBytes(t *testing.T) {
	msg := ChatMessage{Role: RoleUser, Content: "hello"}
	size := msg.SizeBytes()
	if size <= 0 {
		t.Fatalf("SizeBytes() = %d, want > 0", size)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if size != len(data) {
		t.Errorf("SizeBytes() = %d, want %d (len of marshaled JSON)", size, len(data))
	}
}

func TestConversationState_SizeBytes(t *testing.T) {
	cs := ConversationState{
		ID:     "conv-1",
		System: "you are a helpful agent",
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello there"},
		},
	}

	total := cs.SizeBytes()
	var want int
	want += len(cs.System)
	for _, m := range cs.Messages {
		want += m.SizeBytes()
	}
	if total != want {
		t.Errorf("SizeBytes() = %d, want %d", total, want)
	}
}
