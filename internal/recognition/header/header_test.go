package header

import (
	"encoding/json"
	"testing"
)

func TestParseResult(t *testing.T) {
	raw := json.RawMessage(`{"reason": "Name line reads Zhang Wei, ID box reads 20230115", "name": "Zhang Wei", "student_id": "20230115"}`)

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.Name != "Zhang Wei" {
		t.Errorf("Name = %q, want Zhang Wei", result.Name)
	}
	if result.StudentID != "20230115" {
		t.Errorf("StudentID = %q, want 20230115", result.StudentID)
	}
	if result.Empty() {
		t.Error("result with name and ID should not be empty")
	}
}

func TestResult_Empty(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{"both_set", Result{Name: "A", StudentID: "1"}, false},
		{"name_only", Result{Name: "A"}, false},
		{"id_only", Result{StudentID: "1"}, false},
		{"neither", Result{Reason: "illegible"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateWorkUnit(t *testing.T) {
	unit := CreateWorkUnit(Input{Image: []byte("fake-png")})

	if unit.ChatRequest == nil {
		t.Fatal("ChatRequest is nil")
	}
	if len(unit.ChatRequest.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(unit.ChatRequest.Messages))
	}
	if unit.ChatRequest.Messages[0].Role != "system" {
		t.Error("first message should be the system prompt")
	}
	if len(unit.ChatRequest.Messages[1].Images) != 1 {
		t.Error("user message should carry the header crop")
	}
	if unit.ChatRequest.ResponseFormat == nil {
		t.Error("ResponseFormat should be set")
	}
	if unit.ChatRequest.Temperature != 0.1 {
		t.Errorf("Temperature = %g, want 0.1", unit.ChatRequest.Temperature)
	}
}
