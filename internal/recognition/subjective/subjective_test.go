package subjective

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseResult(t *testing.T) {
	raw := json.RawMessage(`{
		"reasoning": "Covers the first key point, misses the second",
		"ocr_result": "Photosynthesis converts light to chemical energy",
		"suggestion": "Award 7 of 10: mechanism missing",
		"score": 7
	}`)

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.Score != 7 {
		t.Errorf("Score = %g, want 7", result.Score)
	}
	if result.Failed() {
		t.Error("score 7 should not be a failure")
	}
	if result.OCRResult == "" {
		t.Error("ocr_result should not be empty")
	}
}

func TestResult_Failed(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  bool
	}{
		{"sentinel", -1, true},
		{"zero", 0, false},
		{"positive", 8.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Score: tt.score}
			if got := r.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResult_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		maxScore float64
		want     float64
	}{
		{"in_range", 7, 10, 7},
		{"over_max", 12, 10, 10},
		{"failed_preserved", -1, 10, -1},
		{"zero", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Score: tt.score}
			if got := r.Clamp(tt.maxScore); got != tt.want {
				t.Errorf("Clamp(%g) = %g, want %g", tt.maxScore, got, tt.want)
			}
		})
	}
}

func TestCreateWorkUnit(t *testing.T) {
	unit := CreateWorkUnit(Input{
		QuestionHTML:    "<p>Explain photosynthesis.</p>",
		ReferenceAnswer: "Light energy becomes chemical energy in chloroplasts.",
		MaxScore:        10,
		AnswerImage:     []byte("fake-png"),
	})

	if unit.ChatRequest == nil {
		t.Fatal("ChatRequest is nil")
	}

	user := unit.ChatRequest.Messages[1]
	if !strings.Contains(user.Content, "Explain photosynthesis") {
		t.Error("prompt should include the question")
	}
	if !strings.Contains(user.Content, "chloroplasts") {
		t.Error("prompt should include the reference answer")
	}
	if !strings.Contains(user.Content, "<max_score>10</max_score>") {
		t.Error("prompt should state the max score")
	}
	if len(user.Images) != 1 {
		t.Error("user message should carry the answer image")
	}
	if unit.ChatRequest.ResponseFormat == nil {
		t.Error("ResponseFormat should be set")
	}
}
