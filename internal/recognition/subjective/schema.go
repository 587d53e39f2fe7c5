package subjective

// RecognitionSchema is the JSON schema for subjective grading suggestions.
// Field order is load-bearing for quality: the model transcribes and
// reasons before committing to a score.
var RecognitionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "subjective_suggestion",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reasoning": map[string]any{
					"type":        "string",
					"description": "Comparison of the student's answer against the reference: what is correct, what is missing or wrong, and how that maps to the score. Produce this BEFORE the score.",
				},
				"ocr_result": map[string]any{
					"type":        "string",
					"description": "Verbatim transcription of the student's handwritten answer. Empty string if the region is blank.",
				},
				"suggestion": map[string]any{
					"type":        "string",
					"description": "A short grading note a teacher can act on (what to award or deduct points for).",
				},
				"score": map[string]any{
					"type":        "number",
					"description": "Suggested score between 0 and the stated maximum. -1 when the answer cannot be read or scored.",
				},
			},
			"required":             []string{"reasoning", "ocr_result", "suggestion", "score"},
			"additionalProperties": false,
		},
	},
}

// FailedScore is the sentinel for a suggestion that could not be produced.
const FailedScore = -1

// Result is the parsed subjective suggestion response.
type Result struct {
	Reasoning  string  `json:"reasoning"`
	OCRResult  string  `json:"ocr_result"`
	Suggestion string  `json:"suggestion"`
	Score      float64 `json:"score"`
}

// Failed reports whether the model declined to score the answer.
func (r *Result) Failed() bool {
	return r.Score < 0
}

// Clamp bounds the suggested score to [0, maxScore], preserving the
// failure sentinel.
func (r *Result) Clamp(maxScore float64) float64 {
	if r.Failed() {
		return FailedScore
	}
	if r.Score > maxScore {
		return maxScore
	}
	return r.Score
}
