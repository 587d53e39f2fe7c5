package types

import "time"

// PendingScore is the sentinel for a score that has not been determined.
const PendingScore = -1

// UnknownMarker is the literal the recognition service returns when it
// cannot read a field.
const UnknownMarker = "Unknown"

// Progress is the pipeline state machine's persisted marker.
type Progress string

const (
	ProgressCreated         Progress = "CREATED"
	ProgressUploaded        Progress = "UPLOADED"
	ProgressMatchStart      Progress = "MATCH_START"
	ProgressMatchDone       Progress = "MATCH_DONE"
	ProgressObjectiveStart  Progress = "OBJECTIVE_START"
	ProgressObjectiveDone   Progress = "OBJECTIVE_DONE"
	ProgressSubjectiveStart Progress = "SUBJECTIVE_START"
	ProgressSubjectiveDone  Progress = "SUBJECTIVE_DONE"
	ProgressResultStart     Progress = "RESULT_START"
	ProgressResultDone      Progress = "RESULT_DONE"
)

// progressSequence is the forward-only pipeline order.
var progressSequence = []Progress{
	ProgressCreated,
	ProgressUploaded,
	ProgressMatchStart,
	ProgressMatchDone,
	ProgressObjectiveStart,
	ProgressObjectiveDone,
	ProgressSubjectiveStart,
	ProgressSubjectiveDone,
	ProgressResultStart,
	ProgressResultDone,
}

func (p Progress) index() int {
	for i, candidate := range progressSequence {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the defined progress values.
func (p Progress) Valid() bool {
	return p.index() >= 0
}

// Before reports whether p comes strictly before other in the pipeline.
func (p Progress) Before(other Progress) bool {
	return p.index() < other.index()
}

// Next returns the progress value that follows p, or p itself for the
// terminal state.
func (p Progress) Next() Progress {
	idx := p.index()
	if idx < 0 || idx+1 >= len(progressSequence) {
		return p
	}
	return progressSequence[idx+1]
}

// Paper is the physical scanned pages attributed to one student slot.
// StudentID and Name are recognized by matching; StudentDocID is filled
// when the match is finalized.
type Paper struct {
	PaperID        string `json:"paper_id"`
	StartPage      int    `json:"start_page"`
	EndPage        int    `json:"end_page"`
	Name           string `json:"name,omitempty"`
	StudentID      string `json:"student_id,omitempty"`
	StudentDocID   string `json:"student_doc_id,omitempty"`
	HeaderImageRef string `json:"header_image_ref,omitempty"`
}

// ObjectiveAnswer is a recognized and scored choice answer.
// Score is PendingScore until scored or adjudicated.
type ObjectiveAnswer struct {
	QuestionID    string   `json:"question_id"`
	StudentAnswer []string `json:"student_answer"`
	Uncertain     bool     `json:"uncertain"`
	Score         float64  `json:"score"`
}

// AISuggestion is the cached recognition output for a subjective answer.
// Score is PendingScore while no suggestion has been computed.
type AISuggestion struct {
	Reasoning  string  `json:"reasoning,omitempty"`
	OCRText    string  `json:"ocr_text,omitempty"`
	Suggestion string  `json:"suggestion,omitempty"`
	Score      float64 `json:"score"`
}

// SubjectiveAnswer is a free-response answer pending a human score.
type SubjectiveAnswer struct {
	QuestionID   string       `json:"question_id"`
	ImageRef     string       `json:"image_ref"`
	AISuggestion AISuggestion `json:"ai_suggestion"`
	Score        float64      `json:"score"`
	Done         bool         `json:"done"`
}

// StudentPaper is the logical grading record for one student, valid once
// matching is finalized. Exactly one StudentPaper per Paper.
type StudentPaper struct {
	Student           Student            `json:"student"`
	PaperID           string             `json:"paper_id"`
	ObjectiveAnswers  []ObjectiveAnswer  `json:"objective_answers"`
	SubjectiveAnswers []SubjectiveAnswer `json:"subjective_answers"`
	TotalScore        float64            `json:"total_score"`
}

// MatchedPair links a paper to a roster student.
type MatchedPair struct {
	StudentID      string `json:"student_id"`
	PaperID        string `json:"paper_id"`
	HeaderImageRef string `json:"header_image_ref,omitempty"`
}

// Unmatched holds the papers and students not yet paired.
type Unmatched struct {
	StudentIDs []string `json:"student_ids"`
	Papers     []string `json:"papers"`
}

// MatchResult tracks identity matching state. Done is true iff both
// unmatched collections are empty.
type MatchResult struct {
	Matched   []MatchedPair `json:"matched"`
	Unmatched Unmatched     `json:"unmatched"`
	Done      bool          `json:"done"`
}

// QuestionStatistics are per-question aggregate figures. Correct and
// Incorrect are only meaningful for objective questions.
type QuestionStatistics struct {
	QuestionID        string  `json:"question_id"`
	Average           float64 `json:"average"`
	Highest           float64 `json:"highest"`
	Lowest            float64 `json:"lowest"`
	Median            float64 `json:"median"`
	StandardDeviation float64 `json:"standard_deviation"`
	Correct           int     `json:"correct,omitempty"`
	Incorrect         int     `json:"incorrect,omitempty"`
}

// Statistics are corpus-level aggregate figures over student totals.
type Statistics struct {
	Average           float64              `json:"average"`
	Highest           float64              `json:"highest"`
	Lowest            float64              `json:"lowest"`
	Median            float64              `json:"median"`
	StandardDeviation float64              `json:"standard_deviation"`
	Questions         []QuestionStatistics `json:"questions,omitempty"`
}

// Result is the Schedule's mutable result blob, rewritten by each stage.
type Result struct {
	PDFRef        string         `json:"pdf_ref,omitempty"`
	Papers        []Paper        `json:"papers,omitempty"`
	StudentPapers []StudentPaper `json:"student_papers,omitempty"`
	MatchResult   *MatchResult   `json:"match_result,omitempty"`
	Statistics    *Statistics    `json:"statistics,omitempty"`
}

// Schedule is one grading run: an exam layout bound to a class roster,
// plus the pipeline's progress and accumulated result.
type Schedule struct {
	ID        string    `json:"id"`
	ExamID    string    `json:"exam_id"`
	ClassID   string    `json:"class_id"`
	Progress  Progress  `json:"progress"`
	Result    Result    `json:"result"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// PaperByID returns the paper with the given id, or nil.
func (r *Result) PaperByID(paperID string) *Paper {
	for i := range r.Papers {
		if r.Papers[i].PaperID == paperID {
			return &r.Papers[i]
		}
	}
	return nil
}

// StudentPaperByID returns the student paper for the given paper id, or nil.
func (r *Result) StudentPaperByID(paperID string) *StudentPaper {
	for i := range r.StudentPapers {
		if r.StudentPapers[i].PaperID == paperID {
			return &r.StudentPapers[i]
		}
	}
	return nil
}

// UncertainCount counts objective answers still flagged uncertain.
func (r *Result) UncertainCount() int {
	n := 0
	for i := range r.StudentPapers {
		for j := range r.StudentPapers[i].ObjectiveAnswers {
			if r.StudentPapers[i].ObjectiveAnswers[j].Uncertain {
				n++
			}
		}
	}
	return n
}

// SubjectiveDone reports whether every subjective answer has a final score.
func (r *Result) SubjectiveDone() bool {
	for i := range r.StudentPapers {
		for j := range r.StudentPapers[i].SubjectiveAnswers {
			if !r.StudentPapers[i].SubjectiveAnswers[j].Done {
				return false
			}
		}
	}
	return true
}
