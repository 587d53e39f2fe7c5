package objective

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Extazy1/ezmark/internal/jobs"
)

func TestParseResult(t *testing.T) {
	raw := json.RawMessage(`{"reason": "Option B is circled", "answer": ["B"]}`)

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.Reason == "" {
		t.Error("reason should not be empty")
	}
	if len(result.Answer) != 1 || result.Answer[0] != "B" {
		t.Errorf("Answer = %v, want [B]", result.Answer)
	}
}

func TestResult_IsUncertain(t *testing.T) {
	tests := []struct {
		name   string
		answer []string
		want   bool
	}{
		{"single_answer", []string{"B"}, false},
		{"multi_answer", []string{"A", "C"}, false},
		{"empty", []string{}, true},
		{"nil", nil, true},
		{"unknown", []string{"Unknown"}, true},
		{"unknown_among_answers", []string{"A", "Unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Answer: tt.answer}
			if got := r.IsUncertain(); got != tt.want {
				t.Errorf("IsUncertain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateWorkUnit(t *testing.T) {
	image := []byte("fake-png")
	unit := CreateWorkUnit(Input{Image: image, MultipleChoice: true})

	if unit.Type != jobs.WorkUnitTypeLLM {
		t.Errorf("Type = %s, want llm", unit.Type)
	}
	if unit.ChatRequest == nil {
		t.Fatal("ChatRequest is nil")
	}
	if len(unit.ChatRequest.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(unit.ChatRequest.Messages))
	}

	user := unit.ChatRequest.Messages[1]
	if len(user.Images) != 1 || string(user.Images[0]) != "fake-png" {
		t.Error("user message should carry the crop image")
	}
	if !strings.Contains(user.Content, "every marked letter") {
		t.Error("multi-choice prompt should allow multiple selections")
	}

	if unit.ChatRequest.ResponseFormat == nil {
		t.Fatal("ResponseFormat is nil")
	}
	if unit.ChatRequest.ResponseFormat.Type != "json_schema" {
		t.Errorf("ResponseFormat.Type = %s, want json_schema", unit.ChatRequest.ResponseFormat.Type)
	}

	// Single-choice prompt differs
	single := CreateWorkUnit(Input{Image: image})
	if !strings.Contains(single.ChatRequest.Messages[1].Content, "Exactly one option") {
		t.Error("single-choice prompt should expect one selection")
	}
}
