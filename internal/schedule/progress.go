package schedule

import (
	"context"
	"fmt"

	"github.com/Extazy1/ezmark/internal/types"
)

// ProgressError reports an operation attempted in the wrong pipeline state.
type ProgressError struct {
	Op       string
	Current  types.Progress
	Required []types.Progress
}

func (e *ProgressError) Error() string {
	return fmt.Sprintf("%s requires progress %v, schedule is %s", e.Op, e.Required, e.Current)
}

// requireProgress returns a ProgressError unless current is one of the
// allowed states.
func requireProgress(op string, current types.Progress, allowed ...types.Progress) error {
	for _, p := range allowed {
		if current == p {
			return nil
		}
	}
	return &ProgressError{Op: op, Current: current, Required: allowed}
}

// CanUpload checks that a scan upload is allowed. Re-uploading before
// matching starts replaces the previous scan.
func CanUpload(current types.Progress) error {
	return requireProgress("upload", current, types.ProgressCreated, types.ProgressUploaded)
}

// CanStartMatch checks that the decompose-and-match stage may launch.
func CanStartMatch(current types.Progress) error {
	return requireProgress("match", current, types.ProgressUploaded)
}

// CanReconcileMatch checks that manual connect/disconnect is allowed.
// Reconciliation runs after the match stage and closes when objective
// scoring launches.
func CanReconcileMatch(current types.Progress) error {
	return requireProgress("match reconciliation", current, types.ProgressMatchDone)
}

// CanStartObjective checks that objective scoring may launch.
func CanStartObjective(current types.Progress) error {
	return requireProgress("objective scoring", current, types.ProgressMatchDone)
}

// CanAdjudicate checks that manual resolution of uncertain objective
// answers is allowed.
func CanAdjudicate(current types.Progress) error {
	return requireProgress("adjudication", current, types.ProgressObjectiveStart)
}

// CanStartSubjective checks that subjective grading may launch.
func CanStartSubjective(current types.Progress) error {
	return requireProgress("subjective grading", current, types.ProgressObjectiveDone)
}

// CanScoreSubjective checks that human scoring of free-response answers
// is allowed.
func CanScoreSubjective(current types.Progress) error {
	return requireProgress("subjective scoring", current, types.ProgressSubjectiveStart)
}

// CanStartResult checks that the final tally stage may launch.
func CanStartResult(current types.Progress) error {
	return requireProgress("result computation", current, types.ProgressSubjectiveDone)
}

// SetDecomposition records the outcome of the decompose stage: the stored
// scan reference and one synthetic paper per student answer sheet. A
// re-upload before matching starts replaces the previous decomposition and
// discards any derived results.
func (s *Store) SetDecomposition(ctx context.Context, scheduleID, pdfRef string, papers []types.Paper) (*types.Schedule, error) {
	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		if err := CanUpload(sched.Progress); err != nil {
			return err
		}
		sched.Result = types.Result{PDFRef: pdfRef, Papers: papers}
		if sched.Progress == types.ProgressCreated {
			return AdvanceProgress(sched, types.ProgressUploaded)
		}
		return nil
	})
}

// BeginStage gates and records the launch of a pipeline stage. Only
// *_START states are valid arguments; OBJECTIVE_START goes through
// BeginObjective because it also finalizes the roster match.
func (s *Store) BeginStage(ctx context.Context, scheduleID string, next types.Progress) (*types.Schedule, error) {
	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		var err error
		switch next {
		case types.ProgressMatchStart:
			err = CanStartMatch(sched.Progress)
		case types.ProgressSubjectiveStart:
			err = CanStartSubjective(sched.Progress)
			if err == nil && sched.Result.UncertainCount() > 0 {
				err = fmt.Errorf("%d objective answers still uncertain", sched.Result.UncertainCount())
			}
		case types.ProgressResultStart:
			err = CanStartResult(sched.Progress)
			if err == nil && !sched.Result.SubjectiveDone() {
				err = fmt.Errorf("subjective grading is not finished")
			}
		default:
			return fmt.Errorf("%s is not a stage-start progress value", next)
		}
		if err != nil {
			return err
		}
		return AdvanceProgress(sched, next)
	})
}

// BeginObjective launches objective scoring. It requires a fully matched
// roster; at that point each pair's student identity is stamped onto its
// paper and the per-student papers are materialized in roster order.
func (s *Store) BeginObjective(ctx context.Context, scheduleID string) (*types.Schedule, error) {
	sched, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	class, err := s.GetClass(ctx, sched.ClassID)
	if err != nil {
		return nil, err
	}

	return s.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		if err := CanStartObjective(sched.Progress); err != nil {
			return err
		}
		if sched.Result.MatchResult == nil || !sched.Result.MatchResult.Done {
			return fmt.Errorf("roster match is not complete")
		}
		if err := finalizeMatch(sched, class); err != nil {
			return err
		}
		return AdvanceProgress(sched, types.ProgressObjectiveStart)
	})
}

// AdvanceProgress moves the schedule to next if that is the immediate
// successor of its current state. Backward or skipping moves are rejected:
// progress is forward-only, one step at a time.
func AdvanceProgress(sched *types.Schedule, next types.Progress) error {
	if !next.Valid() {
		return fmt.Errorf("invalid progress value %q", next)
	}
	if sched.Progress.Next() != next {
		return fmt.Errorf("cannot advance from %s to %s", sched.Progress, next)
	}
	sched.Progress = next
	return nil
}
