package subjective

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Extazy1/ezmark/internal/providers"
)

func TestRecognize(t *testing.T) {
	input := Input{
		QuestionHTML:    "<p>Explain photosynthesis.</p>",
		ReferenceAnswer: "Light energy becomes chemical energy in chloroplasts.",
		MaxScore:        10,
		AnswerImage:     []byte("fake-png"),
	}

	t.Run("returns the parsed suggestion", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Latency = 0
		client.ResponseJSON = json.RawMessage(`{
			"reasoning": "Covers the conversion, misses the organelle",
			"ocr_result": "Light becomes chemical energy",
			"suggestion": "Award 7 of 10",
			"score": 7
		}`)

		result, err := Recognize(context.Background(), client, input)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if result.Score != 7 {
			t.Errorf("Score = %g, want 7", result.Score)
		}
		if result.Suggestion != "Award 7 of 10" {
			t.Errorf("Suggestion = %q, want the grading note", result.Suggestion)
		}
	})

	t.Run("clamps an overshooting score", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Latency = 0
		client.ResponseJSON = json.RawMessage(`{
			"reasoning": "r", "ocr_result": "o", "suggestion": "s", "score": 15
		}`)

		result, err := Recognize(context.Background(), client, input)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if result.Score != 10 {
			t.Errorf("Score = %g, want clamped to 10", result.Score)
		}
	})

	t.Run("preserves the failure sentinel", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Latency = 0
		client.ResponseJSON = json.RawMessage(`{
			"reasoning": "unreadable", "ocr_result": "", "suggestion": "", "score": -1
		}`)

		result, err := Recognize(context.Background(), client, input)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if !result.Failed() {
			t.Errorf("Score = %g, want the failure sentinel", result.Score)
		}
	})

	t.Run("errors when the request fails", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Latency = 0
		client.ShouldFail = true

		if _, err := Recognize(context.Background(), client, input); err == nil {
			t.Fatal("Recognize() should surface the request error")
		}
	})

	t.Run("errors when no structured output arrives", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Latency = 0
		// No ResponseJSON configured, only plain text.

		if _, err := Recognize(context.Background(), client, input); err == nil {
			t.Fatal("Recognize() should reject a response without structured output")
		}
	})
}
