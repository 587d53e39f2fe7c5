package objective

// RecognitionSchema is the JSON schema for choice-question recognition
// output. The reason field comes first so the model commits to a reading
// of the marks before emitting the answer.
var RecognitionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "objective_recognition",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{
					"type":        "string",
					"description": "Step-by-step reading of the answer region: which options are marked, how overwrites or erasures were interpreted. Produce this BEFORE the answer field.",
				},
				"answer": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
					},
					"description": `Selected option letters, e.g. ["B"] or ["A", "C"]. Empty array if nothing is marked. ["Unknown"] if the marks cannot be read with confidence.`,
				},
			},
			"required":             []string{"reason", "answer"},
			"additionalProperties": false,
		},
	},
}

// UnknownAnswer is the sentinel the model returns when the marks cannot
// be read with confidence.
const UnknownAnswer = "Unknown"

// Result is the parsed objective recognition response.
type Result struct {
	Reason string   `json:"reason"`
	Answer []string `json:"answer"`
}

// IsUncertain reports whether the recognition needs manual adjudication:
// either no option was read or the model flagged the read as Unknown.
func (r *Result) IsUncertain() bool {
	if len(r.Answer) == 0 {
		return true
	}
	for _, a := range r.Answer {
		if a == UnknownAnswer {
			return true
		}
	}
	return false
}
