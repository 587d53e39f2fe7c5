package stats

import (
	"math"
	"testing"

	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarize(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		s := Summarize(nil)
		if s.Average != 0 || s.Highest != 0 || s.Lowest != 0 {
			t.Fatalf("expected zero summary, got %+v", s)
		}
	})

	t.Run("odd count median is the middle element", func(t *testing.T) {
		s := Summarize([]float64{70, 90, 80})
		if s.Median != 80 {
			t.Fatalf("expected median 80, got %v", s.Median)
		}
	})

	t.Run("even count median is the upper middle", func(t *testing.T) {
		s := Summarize([]float64{60, 70, 80, 90})
		if s.Median != 80 {
			t.Fatalf("expected median 80, got %v", s.Median)
		}
	})

	t.Run("population standard deviation", func(t *testing.T) {
		// Variance of {2,4,4,4,5,5,7,9} around mean 5 is 32/8 = 4.
		s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		if !almostEqual(s.StdDev, 2) {
			t.Fatalf("expected stddev 2, got %v", s.StdDev)
		}
		if !almostEqual(s.Average, 5) {
			t.Fatalf("expected mean 5, got %v", s.Average)
		}
	})

	t.Run("extremes", func(t *testing.T) {
		s := Summarize([]float64{40, 100, 70})
		if s.Highest != 100 || s.Lowest != 40 {
			t.Fatalf("expected highest 100 lowest 40, got %+v", s)
		}
	})
}

func TestTotalScore(t *testing.T) {
	sp := types.StudentPaper{
		ObjectiveAnswers: []types.ObjectiveAnswer{
			{QuestionID: "q1", Score: 5},
			{QuestionID: "q2", Score: 0},
		},
		SubjectiveAnswers: []types.SubjectiveAnswer{
			{QuestionID: "q3", Score: 8.5},
		},
	}
	if got := TotalScore(sp); !almostEqual(got, 13.5) {
		t.Fatalf("expected total 13.5, got %v", got)
	}
}

func TestCompute(t *testing.T) {
	exam := &types.Exam{
		Components: []types.Component{
			{ID: "header", Type: types.ComponentHeader},
			{ID: "q1", Type: types.ComponentSingleChoice, Score: 5},
			{ID: "q2", Type: types.ComponentOpenEnded, Score: 10},
		},
	}
	papers := []types.StudentPaper{
		{
			PaperID:    "p1",
			TotalScore: 13,
			ObjectiveAnswers: []types.ObjectiveAnswer{
				{QuestionID: "q1", Score: 5},
			},
			SubjectiveAnswers: []types.SubjectiveAnswer{
				{QuestionID: "q2", Score: 8},
			},
		},
		{
			PaperID:    "p2",
			TotalScore: 6,
			ObjectiveAnswers: []types.ObjectiveAnswer{
				{QuestionID: "q1", Score: 0},
			},
			SubjectiveAnswers: []types.SubjectiveAnswer{
				{QuestionID: "q2", Score: 6},
			},
		},
	}

	got := Compute(exam, papers)

	if !almostEqual(got.Average, 9.5) {
		t.Fatalf("expected corpus average 9.5, got %v", got.Average)
	}
	if got.Highest != 13 || got.Lowest != 6 {
		t.Fatalf("unexpected corpus extremes: %+v", got)
	}
	if got.Median != 13 {
		t.Fatalf("expected upper-middle median 13, got %v", got.Median)
	}

	if len(got.Questions) != 2 {
		t.Fatalf("expected stats for 2 questions, got %d", len(got.Questions))
	}

	q1 := got.Questions[0]
	if q1.QuestionID != "q1" {
		t.Fatalf("expected q1 first, got %s", q1.QuestionID)
	}
	if q1.Correct != 1 || q1.Incorrect != 1 {
		t.Fatalf("expected 1 correct 1 incorrect, got %d/%d", q1.Correct, q1.Incorrect)
	}

	q2 := got.Questions[1]
	if q2.Correct != 0 || q2.Incorrect != 0 {
		t.Fatalf("expected no correct counts for subjective question, got %+v", q2)
	}
	if !almostEqual(q2.Average, 7) {
		t.Fatalf("expected q2 average 7, got %v", q2.Average)
	}
}

// TestGradingFlow walks two papers through objective scoring, teacher
// adjudication, subjective scoring and the final tally the way the
// grading stages do.
func TestGradingFlow(t *testing.T) {
	exam := &types.Exam{
		Components: []types.Component{
			{ID: "q1", Type: types.ComponentSingleChoice, Answer: []string{"B"}, Score: 5},
			{ID: "q2", Type: types.ComponentOpenEnded, Score: 10},
		},
	}
	mcq := exam.Components[0]

	recognized := [][]string{{"B"}, {"A"}}
	uncertain := []bool{false, true}
	subjScores := []float64{7, 9}

	papers := make([]types.StudentPaper, 2)
	for i := range papers {
		papers[i] = types.StudentPaper{
			PaperID: []string{"p1", "p2"}[i],
			ObjectiveAnswers: []types.ObjectiveAnswer{{
				QuestionID:    mcq.ID,
				StudentAnswer: recognized[i],
				Score:         schedule.ScoreObjective(mcq.Answer, recognized[i], mcq.Score),
				Uncertain:     uncertain[i],
			}},
			SubjectiveAnswers: []types.SubjectiveAnswer{{
				QuestionID: "q2",
				Score:      subjScores[i],
				Done:       true,
			}},
		}
	}

	if papers[0].ObjectiveAnswers[0].Score != 5 {
		t.Fatalf("expected correct answer to score 5, got %v", papers[0].ObjectiveAnswers[0].Score)
	}
	if papers[1].ObjectiveAnswers[0].Score != 0 {
		t.Fatalf("expected unrecognized answer to score 0, got %v", papers[1].ObjectiveAnswers[0].Score)
	}

	// The teacher reviews the flagged answer and rules it correct,
	// which awards full marks for the question.
	papers[1].ObjectiveAnswers[0].Uncertain = false
	papers[1].ObjectiveAnswers[0].Score = mcq.Score

	for i := range papers {
		papers[i].TotalScore = TotalScore(papers[i])
	}
	if !almostEqual(papers[0].TotalScore, 12) || !almostEqual(papers[1].TotalScore, 14) {
		t.Fatalf("expected totals 12 and 14, got %v and %v",
			papers[0].TotalScore, papers[1].TotalScore)
	}

	got := Compute(exam, papers)
	if !almostEqual(got.Average, 13) {
		t.Fatalf("expected class average 13, got %v", got.Average)
	}
	if got.Highest != 14 || got.Lowest != 12 {
		t.Fatalf("unexpected extremes: %+v", got)
	}
}
