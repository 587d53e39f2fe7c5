package schedule

import (
	"testing"

	"github.com/Extazy1/ezmark/internal/types"
)

func TestScoreObjective(t *testing.T) {
	tests := []struct {
		name       string
		defined    []string
		recognized []string
		maxScore   float64
		want       float64
	}{
		{"exact_match", []string{"B"}, []string{"B"}, 5, 5},
		{"order_independent", []string{"A", "C"}, []string{"C", "A"}, 4, 4},
		{"wrong_answer", []string{"B"}, []string{"A"}, 5, 0},
		{"partial_selection", []string{"A", "C"}, []string{"A"}, 4, 0},
		{"extra_selection", []string{"A"}, []string{"A", "B"}, 4, 0},
		{"empty_recognized", []string{"B"}, nil, 5, 0},
		{"duplicates_do_not_help", []string{"A", "C"}, []string{"A", "A"}, 4, 0},
		{"no_defined_answer", nil, []string{"A"}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreObjective(tt.defined, tt.recognized, tt.maxScore)
			if got != tt.want {
				t.Errorf("ScoreObjective(%v, %v) = %g, want %g", tt.defined, tt.recognized, got, tt.want)
			}
		})
	}
}

func TestProgressGates(t *testing.T) {
	tests := []struct {
		name    string
		gate    func(types.Progress) error
		allowed types.Progress
		denied  types.Progress
	}{
		{"upload", CanUpload, types.ProgressCreated, types.ProgressMatchStart},
		{"match", CanStartMatch, types.ProgressUploaded, types.ProgressCreated},
		{"reconcile", CanReconcileMatch, types.ProgressMatchDone, types.ProgressMatchStart},
		{"objective", CanStartObjective, types.ProgressMatchDone, types.ProgressUploaded},
		{"adjudicate", CanAdjudicate, types.ProgressObjectiveStart, types.ProgressObjectiveDone},
		{"subjective", CanStartSubjective, types.ProgressObjectiveDone, types.ProgressMatchDone},
		{"score", CanScoreSubjective, types.ProgressSubjectiveStart, types.ProgressSubjectiveDone},
		{"result", CanStartResult, types.ProgressSubjectiveDone, types.ProgressResultDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.gate(tt.allowed); err != nil {
				t.Errorf("gate(%s) = %v, want nil", tt.allowed, err)
			}
			if err := tt.gate(tt.denied); err == nil {
				t.Errorf("gate(%s) = nil, want error", tt.denied)
			}
		})
	}
}

func TestAdvanceProgress(t *testing.T) {
	t.Run("single step forward", func(t *testing.T) {
		sched := &types.Schedule{Progress: types.ProgressUploaded}
		if err := AdvanceProgress(sched, types.ProgressMatchStart); err != nil {
			t.Fatalf("AdvanceProgress() error = %v", err)
		}
		if sched.Progress != types.ProgressMatchStart {
			t.Errorf("progress = %s, want MATCH_START", sched.Progress)
		}
	})

	t.Run("rejects skip", func(t *testing.T) {
		sched := &types.Schedule{Progress: types.ProgressUploaded}
		if err := AdvanceProgress(sched, types.ProgressMatchDone); err == nil {
			t.Error("skipping a state should be rejected")
		}
	})

	t.Run("rejects backward", func(t *testing.T) {
		sched := &types.Schedule{Progress: types.ProgressObjectiveDone}
		if err := AdvanceProgress(sched, types.ProgressMatchStart); err == nil {
			t.Error("moving backward should be rejected")
		}
	})

	t.Run("rejects invalid value", func(t *testing.T) {
		sched := &types.Schedule{Progress: types.ProgressCreated}
		if err := AdvanceProgress(sched, types.Progress("BOGUS")); err == nil {
			t.Error("invalid progress should be rejected")
		}
	})
}
