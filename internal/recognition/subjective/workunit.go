package subjective

import (
	"encoding/json"

	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/providers"
)

// Input contains the data needed for a subjective suggestion work unit.
type Input struct {
	QuestionHTML    string
	ReferenceAnswer string
	MaxScore        float64
	AnswerImage     []byte // PNG crop of the student's answer region
}

// CreateWorkUnit creates a subjective suggestion LLM work unit.
// The caller must set ID, JobID, Provider, and Metrics on the returned unit.
func CreateWorkUnit(input Input) *jobs.WorkUnit {
	userPrompt := BuildUserPrompt(input.QuestionHTML, input.ReferenceAnswer, input.MaxScore)

	return &jobs.WorkUnit{
		Type: jobs.WorkUnitTypeLLM,
		ChatRequest: &providers.ChatRequest{
			Messages: []providers.Message{
				{Role: "system", Content: SystemPrompt},
				{Role: "user", Content: userPrompt, Images: [][]byte{input.AnswerImage}},
			},
			ResponseFormat: buildResponseFormat(),
			Temperature:    0.1,
			MaxTokens:      4096, // Transcription plus reasoning can run long
		},
	}
}

// ParseResult parses the structured response into a Result.
func ParseResult(raw json.RawMessage) (*Result, error) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func buildResponseFormat() *providers.ResponseFormat {
	jsonSchema, _ := json.Marshal(RecognitionSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}
