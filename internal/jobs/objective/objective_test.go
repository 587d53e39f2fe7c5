package objective

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/providers"
	"github.com/Extazy1/ezmark/internal/types"
)

func newGridJob() *Job {
	j := New("sched-1")
	j.started = true
	j.components = []types.Component{
		{ID: "q1", Type: types.ComponentSingleChoice, Answer: []string{"B"}, Score: 5},
		{ID: "q2", Type: types.ComponentMultiChoice, Answer: []string{"A", "C"}, Score: 4},
	}
	j.answers["paper-0"] = make([]types.ObjectiveAnswer, 2)
	j.unitRefs["u1"] = unitRef{paperID: "paper-0", component: 0}
	j.unitRefs["u2"] = unitRef{paperID: "paper-0", component: 1}
	j.pending = 3 // keep finalize out of reach
	return j
}

func TestOnComplete_ScoresRecognizedAnswer(t *testing.T) {
	j := newGridJob()

	_, err := j.OnComplete(context.Background(), jobs.WorkResult{
		WorkUnitID: "u1",
		Success:    true,
		ChatResult: &providers.ChatResult{
			ParsedJSON: json.RawMessage(`{"reason":"clear mark on B","answer":["B"]}`),
		},
	})
	if err != nil {
		t.Fatalf("OnComplete() error = %v", err)
	}

	got := j.answers["paper-0"][0]
	if got.Uncertain {
		t.Error("answer flagged uncertain")
	}
	if got.Score != 5 {
		t.Errorf("score = %g, want 5", got.Score)
	}
	if len(got.StudentAnswer) != 1 || got.StudentAnswer[0] != "B" {
		t.Errorf("student answer = %v, want [B]", got.StudentAnswer)
	}
}

func TestOnComplete_UncertainReadingStaysPending(t *testing.T) {
	j := newGridJob()

	_, err := j.OnComplete(context.Background(), jobs.WorkResult{
		WorkUnitID: "u2",
		Success:    true,
		ChatResult: &providers.ChatResult{
			ParsedJSON: json.RawMessage(`{"reason":"smudged","answer":["A","Unknown"]}`),
		},
	})
	if err != nil {
		t.Fatalf("OnComplete() error = %v", err)
	}

	got := j.answers["paper-0"][1]
	if !got.Uncertain {
		t.Error("answer should be flagged uncertain")
	}
	if got.Score != types.PendingScore {
		t.Errorf("score = %g, want pending sentinel", got.Score)
	}
}

func TestOnComplete_FailureFlagsUncertain(t *testing.T) {
	j := newGridJob()

	_, err := j.OnComplete(context.Background(), jobs.WorkResult{
		WorkUnitID: "u1",
		Success:    false,
		Error:      fmt.Errorf("provider timeout"),
	})
	if err != nil {
		t.Fatalf("OnComplete() error = %v", err)
	}

	got := j.answers["paper-0"][0]
	if !got.Uncertain {
		t.Error("failed recognition should be flagged uncertain")
	}
	if got.Score != types.PendingScore {
		t.Errorf("score = %g, want pending sentinel", got.Score)
	}
	if len(got.StudentAnswer) != 1 || got.StudentAnswer[0] != types.UnknownMarker {
		t.Errorf("student answer = %v, want [Unknown]", got.StudentAnswer)
	}
}

func TestOnComplete_IgnoresForeignUnit(t *testing.T) {
	j := newGridJob()

	units, err := j.OnComplete(context.Background(), jobs.WorkResult{WorkUnitID: "other", Success: true})
	if err != nil || len(units) != 0 {
		t.Fatalf("foreign unit: units=%d err=%v", len(units), err)
	}
	if j.done != 0 {
		t.Errorf("done = %d, want 0", j.done)
	}
}
