package header

// RecognitionSchema is the JSON schema for header recognition output.
// The reason field comes first so the model commits to a reading of the
// handwriting before emitting the answer fields.
var RecognitionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "header_recognition",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{
					"type":        "string",
					"description": "Step-by-step reading of the header region: what text is visible, which parts are the name and student ID, and how ambiguous characters were resolved. Produce this BEFORE the answer fields.",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "The student's name exactly as written. Empty string if unreadable.",
				},
				"student_id": map[string]any{
					"type":        "string",
					"description": "The student's ID exactly as written, digits only when the ID is numeric. Empty string if unreadable.",
				},
			},
			"required":             []string{"reason", "name", "student_id"},
			"additionalProperties": false,
		},
	},
}

// Result is the parsed header recognition response.
type Result struct {
	Reason    string `json:"reason"`
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
}

// Empty reports whether recognition produced neither a name nor an ID.
func (r *Result) Empty() bool {
	return r.Name == "" && r.StudentID == ""
}
