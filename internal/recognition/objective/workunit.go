package objective

import (
	"encoding/json"

	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/providers"
)

// Input contains the data needed for an objective recognition work unit.
type Input struct {
	Image          []byte // PNG crop of the question region
	MultipleChoice bool   // More than one option may be marked
}

// CreateWorkUnit creates an objective recognition LLM work unit.
// The caller must set ID, JobID, Provider, and Metrics on the returned unit.
func CreateWorkUnit(input Input) *jobs.WorkUnit {
	return &jobs.WorkUnit{
		Type: jobs.WorkUnitTypeLLM,
		ChatRequest: &providers.ChatRequest{
			Messages: []providers.Message{
				{Role: "system", Content: SystemPrompt},
				{Role: "user", Content: BuildUserPrompt(input.MultipleChoice), Images: [][]byte{input.Image}},
			},
			ResponseFormat: buildResponseFormat(),
			Temperature:    0.1,
			MaxTokens:      1024,
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
