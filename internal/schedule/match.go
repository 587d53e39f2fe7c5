package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/Extazy1/ezmark/internal/types"
)

var (
	// ErrAlreadyMatched is returned when connecting a student or paper
	// that is not in the unmatched pool.
	ErrAlreadyMatched = errors.New("student or paper is not awaiting a match")

	// ErrPairNotMatched is returned when disconnecting a pair that is
	// not currently matched.
	ErrPairNotMatched = errors.New("pair is not matched")
)

// connectPair moves a student/paper pair from the unmatched pools into
// the matched set. Both sides must be unmatched.
func connectPair(result *types.MatchResult, studentID, paperID, headerRef string) error {
	studentIdx := indexOf(result.Unmatched.StudentIDs, studentID)
	paperIdx := indexOf(result.Unmatched.Papers, paperID)
	if studentIdx < 0 || paperIdx < 0 {
		return fmt.Errorf("connect %s/%s: %w", studentID, paperID, ErrAlreadyMatched)
	}

	result.Unmatched.StudentIDs = removeAt(result.Unmatched.StudentIDs, studentIdx)
	result.Unmatched.Papers = removeAt(result.Unmatched.Papers, paperIdx)
	result.Matched = append(result.Matched, types.MatchedPair{
		StudentID:      studentID,
		PaperID:        paperID,
		HeaderImageRef: headerRef,
	})

	recomputeDone(result)
	return nil
}

// disconnectPair moves a matched pair back into the unmatched pools.
func disconnectPair(result *types.MatchResult, studentID, paperID string) error {
	idx := -1
	for i, pair := range result.Matched {
		if pair.StudentID == studentID && pair.PaperID == paperID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("disconnect %s/%s: %w", studentID, paperID, ErrPairNotMatched)
	}

	result.Matched = append(result.Matched[:idx], result.Matched[idx+1:]...)
	result.Unmatched.StudentIDs = append(result.Unmatched.StudentIDs, studentID)
	result.Unmatched.Papers = append(result.Unmatched.Papers, paperID)
	result.Done = false
	return nil
}

// recomputeDone sets Done iff both unmatched pools are empty.
func recomputeDone(result *types.MatchResult) {
	result.Done = len(result.Unmatched.StudentIDs) == 0 && len(result.Unmatched.Papers) == 0
}

// finalizeMatch stamps roster identity onto the matched papers and
// materializes one StudentPaper per matched pair, in roster order.
// Called when objective scoring launches on a done match.
func finalizeMatch(sched *types.Schedule, class *types.Class) error {
	result := sched.Result.MatchResult
	if result == nil || !result.Done {
		return fmt.Errorf("match result is not done")
	}

	byStudent := make(map[string]string, len(result.Matched))
	for _, pair := range result.Matched {
		byStudent[pair.StudentID] = pair.PaperID
	}

	papers := make([]types.StudentPaper, 0, len(result.Matched))
	for _, student := range class.Students {
		paperID, ok := byStudent[student.StudentID]
		if !ok {
			return fmt.Errorf("student %s has no matched paper", student.StudentID)
		}

		paper := sched.Result.PaperByID(paperID)
		if paper == nil {
			return fmt.Errorf("matched paper %s not found", paperID)
		}
		paper.StudentID = student.StudentID
		paper.Name = student.Name
		paper.StudentDocID = student.StudentID

		papers = append(papers, types.StudentPaper{
			Student:    student,
			PaperID:    paperID,
			TotalScore: 0,
		})
	}

	sched.Result.StudentPapers = papers
	return nil
}

// Connect manually pairs an unmatched student with an unmatched paper.
// The match result's done flag is recomputed; identity stamping waits
// until objective scoring launches.
func (s *Store) Connect(ctx context.Context, scheduleID, studentID, paperID string) (*types.Schedule, error) {
	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		if err := CanReconcileMatch(sched.Progress); err != nil {
			return err
		}
		if sched.Result.MatchResult == nil {
			return fmt.Errorf("schedule %s has no match result", scheduleID)
		}
		var headerRef string
		if paper := sched.Result.PaperByID(paperID); paper != nil {
			headerRef = paper.HeaderImageRef
		}
		return connectPair(sched.Result.MatchResult, studentID, paperID, headerRef)
	})
}

// Disconnect undoes a match, returning both sides to the unmatched pools.
func (s *Store) Disconnect(ctx context.Context, scheduleID, studentID, paperID string) (*types.Schedule, error) {
	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		if err := CanReconcileMatch(sched.Progress); err != nil {
			return err
		}
		if sched.Result.MatchResult == nil {
			return fmt.Errorf("schedule %s has no match result", scheduleID)
		}
		return disconnectPair(sched.Result.MatchResult, studentID, paperID)
	})
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

func removeAt(list []string, i int) []string {
	return append(list[:i], list[i+1:]...)
}
