// Package stats computes score statistics for a completed grading run.
package stats

import (
	"math"
	"sort"

	"github.com/Extazy1/ezmark/internal/types"
)

// Summary holds the five corpus-level measures for a list of scores.
type Summary struct {
	Average float64
	Highest float64
	Lowest  float64
	Median  float64
	StdDev  float64
}

// Summarize computes the summary measures for scores. The median of an
// even-length list is the upper-middle element of the sorted order, and
// the standard deviation is the population form (divide by N).
func Summarize(scores []float64) Summary {
	if len(scores) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	mean := sum / float64(len(sorted))

	var sqSum float64
	for _, s := range sorted {
		d := s - mean
		sqSum += d * d
	}

	return Summary{
		Average: mean,
		Highest: sorted[len(sorted)-1],
		Lowest:  sorted[0],
		Median:  sorted[len(sorted)/2],
		StdDev:  math.Sqrt(sqSum / float64(len(sorted))),
	}
}

// TotalScore sums every objective and subjective score on a student paper.
// Callers must only invoke this once all scores are finalized.
func TotalScore(sp types.StudentPaper) float64 {
	var total float64
	for _, a := range sp.ObjectiveAnswers {
		total += a.Score
	}
	for _, a := range sp.SubjectiveAnswers {
		total += a.Score
	}
	return total
}

// Compute builds the full statistics block for a schedule: corpus totals
// plus per-question breakdowns across all student papers. For objective
// questions the correct count is the number of students with full marks.
func Compute(exam *types.Exam, papers []types.StudentPaper) types.Statistics {
	totals := make([]float64, 0, len(papers))
	for _, sp := range papers {
		totals = append(totals, sp.TotalScore)
	}
	corpus := Summarize(totals)

	questions := make([]types.QuestionStatistics, 0, len(exam.Components))
	for _, c := range exam.Components {
		if !c.Type.IsObjective() && !c.Type.IsSubjective() {
			continue
		}
		scores := questionScores(c.ID, c.Type, papers)
		qs := Summarize(scores)
		stat := types.QuestionStatistics{
			QuestionID:        c.ID,
			Average:           qs.Average,
			Highest:           qs.Highest,
			Lowest:            qs.Lowest,
			Median:            qs.Median,
			StandardDeviation: qs.StdDev,
		}
		if c.Type.IsObjective() {
			for _, s := range scores {
				if s == c.Score {
					stat.Correct++
				}
			}
			stat.Incorrect = len(scores) - stat.Correct
		}
		questions = append(questions, stat)
	}

	return types.Statistics{
		Average:           corpus.Average,
		Highest:           corpus.Highest,
		Lowest:            corpus.Lowest,
		Median:            corpus.Median,
		StandardDeviation: corpus.StdDev,
		Questions:         questions,
	}
}

func questionScores(questionID string, ct types.ComponentType, papers []types.StudentPaper) []float64 {
	scores := make([]float64, 0, len(papers))
	for _, sp := range papers {
		if ct.IsObjective() {
			for _, a := range sp.ObjectiveAnswers {
				if a.QuestionID == questionID {
					scores = append(scores, a.Score)
				}
			}
			continue
		}
		for _, a := range sp.SubjectiveAnswers {
			if a.QuestionID == questionID {
				scores = append(scores, a.Score)
			}
		}
	}
	return scores
}
