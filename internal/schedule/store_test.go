package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Extazy1/ezmark/internal/defra"
	"github.com/Extazy1/ezmark/internal/types"
)

// scheduleServer mocks the Schedule collection with CAS semantics:
// reads return the current version, updates only apply when the filter
// version matches.
type scheduleServer struct {
	server *httptest.Server

	mu       sync.Mutex
	version  int
	progress string
	result   string
	updates  int
	// conflictUpdates makes the first N updates miss their filter.
	conflictUpdates int
}

func newScheduleServer(t *testing.T) *scheduleServer {
	t.Helper()
	s := &scheduleServer{
		version:  1,
		progress: "CREATED",
		result:   "{}",
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		s.mu.Lock()
		defer s.mu.Unlock()

		switch {
		case strings.Contains(body.Query, "create_Schedule"):
			fmt.Fprint(w, `{"data": {"create_Schedule": [{"_docID": "sched-1", "_version": [{"cid": "bafytest"}]}]}}`)

		case strings.Contains(body.Query, "update_Schedule"):
			s.updates++
			expected := fmt.Sprintf("_eq: %d", s.version)
			if s.conflictUpdates > 0 || !strings.Contains(body.Query, expected) {
				if s.conflictUpdates > 0 {
					s.conflictUpdates--
					s.version++ // another writer won
				}
				fmt.Fprint(w, `{"data": {"update_Schedule": []}}`)
				return
			}
			s.version++
			fmt.Fprint(w, `{"data": {"update_Schedule": [{"_docID": "sched-1"}]}}`)

		case strings.Contains(body.Query, "Schedule("):
			resultJSON, _ := json.Marshal(s.result)
			fmt.Fprintf(w, `{"data": {"Schedule": [{
				"_docID": "sched-1",
				"exam_id": "exam-1",
				"class_id": "class-1",
				"progress": %q,
				"result": %s,
				"version": %d,
				"created_at": "2026-01-10T10:00:00Z"
			}]}}`, s.progress, resultJSON, s.version)

		default:
			fmt.Fprint(w, `{"data": {}}`)
		}
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *scheduleServer) store() *Store {
	return NewStore(defra.NewClient(s.server.URL), nil)
}

func TestStore_CreateSchedule(t *testing.T) {
	mock := newScheduleServer(t)
	store := mock.store()

	id, err := store.CreateSchedule(context.Background(), "exam-1", "class-1")
	if err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}
	if id != "sched-1" {
		t.Errorf("id = %s, want sched-1", id)
	}
}

func TestStore_GetSchedule(t *testing.T) {
	mock := newScheduleServer(t)
	mock.progress = "MATCH_START"
	mock.result = `{"papers": [{"paper_id": "p1", "start_page": 1, "end_page": 2}]}`
	store := mock.store()

	sched, err := store.GetSchedule(context.Background(), "sched-1")
	if err != nil {
		t.Fatalf("GetSchedule() error = %v", err)
	}
	if sched.Progress != types.ProgressMatchStart {
		t.Errorf("progress = %s, want MATCH_START", sched.Progress)
	}
	if sched.Version != 1 {
		t.Errorf("version = %d, want 1", sched.Version)
	}
	if len(sched.Result.Papers) != 1 || sched.Result.Papers[0].PaperID != "p1" {
		t.Errorf("papers = %+v, want one paper p1", sched.Result.Papers)
	}
}

func TestStore_UpdateSchedule(t *testing.T) {
	t.Run("advances version on success", func(t *testing.T) {
		mock := newScheduleServer(t)
		store := mock.store()

		sched, err := store.GetSchedule(context.Background(), "sched-1")
		if err != nil {
			t.Fatalf("GetSchedule() error = %v", err)
		}

		sched.Progress = types.ProgressUploaded
		if err := store.UpdateSchedule(context.Background(), sched); err != nil {
			t.Fatalf("UpdateSchedule() error = %v", err)
		}
		if sched.Version != 2 {
			t.Errorf("version = %d, want 2", sched.Version)
		}
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		mock := newScheduleServer(t)
		mock.version = 5
		store := mock.store()

		sched := &types.Schedule{ID: "sched-1", Version: 3, Progress: types.ProgressUploaded}
		err := store.UpdateSchedule(context.Background(), sched)
		if !errors.Is(err, ErrVersionConflict) {
			t.Errorf("error = %v, want ErrVersionConflict", err)
		}
		if sched.Version != 3 {
			t.Error("version must not advance on conflict")
		}
	})
}

func TestStore_Mutate(t *testing.T) {
	t.Run("retries through conflicts", func(t *testing.T) {
		mock := newScheduleServer(t)
		mock.conflictUpdates = 2
		store := mock.store()

		calls := 0
		sched, err := store.Mutate(context.Background(), "sched-1", func(sched *types.Schedule) error {
			calls++
			sched.Progress = types.ProgressUploaded
			return nil
		})
		if err != nil {
			t.Fatalf("Mutate() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("mutation ran %d times, want 3", calls)
		}
		if sched.Progress != types.ProgressUploaded {
			t.Errorf("progress = %s, want UPLOADED", sched.Progress)
		}
	})

	t.Run("mutation error aborts without retry", func(t *testing.T) {
		mock := newScheduleServer(t)
		store := mock.store()

		wantErr := errors.New("domain rule violated")
		_, err := store.Mutate(context.Background(), "sched-1", func(sched *types.Schedule) error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want the mutation error", err)
		}
		if mock.updates != 0 {
			t.Errorf("server saw %d updates, want 0", mock.updates)
		}
	})
}

func TestStore_SetDecomposition(t *testing.T) {
	papers := []types.Paper{
		{PaperID: "paper-0", StartPage: 1, EndPage: 2},
		{PaperID: "paper-1", StartPage: 3, EndPage: 4},
	}

	t.Run("first decomposition advances progress", func(t *testing.T) {
		mock := newScheduleServer(t)
		store := mock.store()

		sched, err := store.SetDecomposition(context.Background(), "sched-1", "sched-1/exam.pdf", papers)
		if err != nil {
			t.Fatalf("SetDecomposition() error = %v", err)
		}
		if sched.Progress != types.ProgressUploaded {
			t.Errorf("progress = %s, want UPLOADED", sched.Progress)
		}
		if sched.Result.PDFRef != "sched-1/exam.pdf" {
			t.Errorf("pdf ref = %s, want sched-1/exam.pdf", sched.Result.PDFRef)
		}
		if len(sched.Result.Papers) != 2 {
			t.Errorf("papers = %d, want 2", len(sched.Result.Papers))
		}
	})

	t.Run("rejected once matching started", func(t *testing.T) {
		mock := newScheduleServer(t)
		mock.progress = "MATCH_START"
		store := mock.store()

		_, err := store.SetDecomposition(context.Background(), "sched-1", "sched-1/exam.pdf", papers)
		var progressErr *ProgressError
		if !errors.As(err, &progressErr) {
			t.Errorf("error = %v, want ProgressError", err)
		}
	})
}

func TestStore_BeginStage(t *testing.T) {
	t.Run("gated launch", func(t *testing.T) {
		mock := newScheduleServer(t)
		mock.progress = "UPLOADED"
		store := mock.store()

		sched, err := store.BeginStage(context.Background(), "sched-1", types.ProgressMatchStart)
		if err != nil {
			t.Fatalf("BeginStage() error = %v", err)
		}
		if sched.Progress != types.ProgressMatchStart {
			t.Errorf("progress = %s, want MATCH_START", sched.Progress)
		}
	})

	t.Run("wrong state rejected", func(t *testing.T) {
		mock := newScheduleServer(t)
		mock.progress = "CREATED"
		store := mock.store()

		if _, err := store.BeginStage(context.Background(), "sched-1", types.ProgressObjectiveStart); err == nil {
			t.Error("objective launch from CREATED should be rejected")
		}
	})

	t.Run("non-start value rejected", func(t *testing.T) {
		mock := newScheduleServer(t)
		store := mock.store()

		if _, err := store.BeginStage(context.Background(), "sched-1", types.ProgressMatchDone); err == nil {
			t.Error("MATCH_DONE is not a stage-start value")
		}
	})
}
