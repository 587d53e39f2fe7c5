package schedule

import (
	"context"
	"fmt"

	"github.com/Extazy1/ezmark/internal/types"
)

// ScoreObjective scores a recognized answer against the defined answer by
// set equality: order does not matter, duplicates do not help, and any
// missing or extra selection scores zero.
func ScoreObjective(defined, recognized []string, maxScore float64) float64 {
	if len(defined) == 0 {
		return 0
	}

	want := make(map[string]bool, len(defined))
	for _, a := range defined {
		want[a] = true
	}
	got := make(map[string]bool, len(recognized))
	for _, a := range recognized {
		got[a] = true
	}

	if len(want) != len(got) {
		return 0
	}
	for a := range want {
		if !got[a] {
			return 0
		}
	}
	return maxScore
}

// UncertainAnswer identifies one objective answer awaiting adjudication.
type UncertainAnswer struct {
	PaperID       string   `json:"paper_id"`
	StudentID     string   `json:"student_id"`
	StudentName   string   `json:"student_name"`
	QuestionID    string   `json:"question_id"`
	StudentAnswer []string `json:"student_answer"`
}

// ListUncertain returns the objective answers still flagged uncertain,
// in roster order then question order, so the teacher can walk them
// one at a time.
func ListUncertain(result *types.Result) []UncertainAnswer {
	var out []UncertainAnswer
	for i := range result.StudentPapers {
		paper := &result.StudentPapers[i]
		for j := range paper.ObjectiveAnswers {
			ans := &paper.ObjectiveAnswers[j]
			if !ans.Uncertain {
				continue
			}
			out = append(out, UncertainAnswer{
				PaperID:       paper.PaperID,
				StudentID:     paper.Student.StudentID,
				StudentName:   paper.Student.Name,
				QuestionID:    ans.QuestionID,
				StudentAnswer: ans.StudentAnswer,
			})
		}
	}
	return out
}

// Adjudicate resolves one uncertain objective answer with the teacher's
// correct/incorrect verdict: full marks or zero. When the last uncertain
// answer is resolved, progress advances to OBJECTIVE_DONE.
func (s *Store) Adjudicate(ctx context.Context, scheduleID, paperID, questionID string, correct bool) (*types.Schedule, error) {
	sched, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	exam, err := s.GetExam(ctx, sched.ExamID)
	if err != nil {
		return nil, err
	}

	component := exam.ComponentByID(questionID)
	if component == nil {
		return nil, fmt.Errorf("question %s not in exam layout", questionID)
	}
	if !component.Type.IsObjective() {
		return nil, fmt.Errorf("question %s is not an objective question", questionID)
	}

	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		if err := CanAdjudicate(sched.Progress); err != nil {
			return err
		}

		paper := sched.Result.StudentPaperByID(paperID)
		if paper == nil {
			return fmt.Errorf("paper %s not found", paperID)
		}

		var target *types.ObjectiveAnswer
		for i := range paper.ObjectiveAnswers {
			if paper.ObjectiveAnswers[i].QuestionID == questionID {
				target = &paper.ObjectiveAnswers[i]
				break
			}
		}
		if target == nil {
			return fmt.Errorf("question %s not found on paper %s", questionID, paperID)
		}
		if !target.Uncertain {
			return fmt.Errorf("question %s on paper %s is not awaiting adjudication", questionID, paperID)
		}

		target.Uncertain = false
		if correct {
			target.Score = component.Score
		} else {
			target.Score = 0
		}

		if sched.Result.UncertainCount() == 0 {
			return AdvanceProgress(sched, types.ProgressObjectiveDone)
		}
		return nil
	})
}

// SetAISuggestion caches a computed grading suggestion on a subjective
// answer. It never overwrites the teacher's final score.
func (s *Store) SetAISuggestion(ctx context.Context, scheduleID, paperID, questionID string, suggestion types.AISuggestion) (*types.Schedule, error) {
	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		target, err := findSubjectiveAnswer(sched, paperID, questionID)
		if err != nil {
			return err
		}
		target.AISuggestion = suggestion
		return nil
	})
}

// SetSubjectiveScore records the teacher's final score for a
// free-response answer. When the last answer is scored, progress
// advances to SUBJECTIVE_DONE.
func (s *Store) SetSubjectiveScore(ctx context.Context, scheduleID, paperID, questionID string, score float64) (*types.Schedule, error) {
	sched, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	exam, err := s.GetExam(ctx, sched.ExamID)
	if err != nil {
		return nil, err
	}

	component := exam.ComponentByID(questionID)
	if component == nil {
		return nil, fmt.Errorf("question %s not in exam layout", questionID)
	}
	if !component.Type.IsSubjective() {
		return nil, fmt.Errorf("question %s is not a subjective question", questionID)
	}
	if score < 0 || score > component.Score {
		return nil, fmt.Errorf("score %g out of range [0, %g]", score, component.Score)
	}

	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		if err := CanScoreSubjective(sched.Progress); err != nil {
			return err
		}

		target, err := findSubjectiveAnswer(sched, paperID, questionID)
		if err != nil {
			return err
		}
		target.Score = score
		target.Done = true

		if sched.Result.SubjectiveDone() {
			return AdvanceProgress(sched, types.ProgressSubjectiveDone)
		}
		return nil
	})
}

func findSubjectiveAnswer(sched *types.Schedule, paperID, questionID string) (*types.SubjectiveAnswer, error) {
	paper := sched.Result.StudentPaperByID(paperID)
	if paper == nil {
		return nil, fmt.Errorf("paper %s not found", paperID)
	}
	for i := range paper.SubjectiveAnswers {
		if paper.SubjectiveAnswers[i].QuestionID == questionID {
			return &paper.SubjectiveAnswers[i], nil
		}
	}
	return nil, fmt.Errorf("question %s not found on paper %s", questionID, paperID)
}
