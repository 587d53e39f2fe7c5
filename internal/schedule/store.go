// Package schedule implements the grading pipeline's state: the Schedule
// document with its forward-only progress marker, the exam/class stores it
// references, identity matching, adjudication, and subjective scoring.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Extazy1/ezmark/internal/defra"
	"github.com/Extazy1/ezmark/internal/types"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a CAS write missed: another
	// writer advanced the schedule version first.
	ErrVersionConflict = errors.New("schedule version conflict")
)

// maxCASRetries bounds the read-mutate-write retry loop.
const maxCASRetries = 5

// Store persists exams, classes, and schedules in DefraDB.
type Store struct {
	client *defra.Client
	logger *slog.Logger
}

// NewStore creates a store backed by the given DefraDB client.
func NewStore(client *defra.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// Exams

// CreateExam persists a new exam layout and returns its document ID.
func (s *Store) CreateExam(ctx context.Context, exam *types.Exam) (string, error) {
	components, err := toJSONValue(exam.Components)
	if err != nil {
		return "", fmt.Errorf("failed to encode components: %w", err)
	}

	return s.client.Create(ctx, "Exam", map[string]any{
		"name":       exam.Name,
		"components": components,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetExam returns the exam with the given document ID.
func (s *Store) GetExam(ctx context.Context, examID string) (*types.Exam, error) {
	resp, err := defra.SafeQueryByDocID(ctx, s.client, "Exam", examID,
		"_docID", "name", "components", "created_at")
	if err != nil {
		return nil, err
	}

	doc, err := singleDoc(resp.Data, "Exam")
	if err != nil {
		return nil, err
	}
	return parseExam(doc)
}

// ListExams returns all exam layouts.
func (s *Store) ListExams(ctx context.Context) ([]*types.Exam, error) {
	resp, err := defra.NewQuery("Exam").
		Fields("_docID", "name", "components", "created_at").
		OrderBy("created_at", "DESC").
		Execute(ctx, s.client)
	if err != nil {
		return nil, err
	}

	docs, _ := resp.Data["Exam"].([]any)
	exams := make([]*types.Exam, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		exam, err := parseExam(doc)
		if err != nil {
			s.logger.Warn("skipping malformed exam", "error", err)
			continue
		}
		exams = append(exams, exam)
	}
	return exams, nil
}

// DeleteExam removes an exam layout.
func (s *Store) DeleteExam(ctx context.Context, examID string) error {
	return s.client.Delete(ctx, "Exam", examID)
}

// Classes

// CreateClass persists a new class roster and returns its document ID.
func (s *Store) CreateClass(ctx context.Context, class *types.Class) (string, error) {
	students, err := toJSONValue(class.Students)
	if err != nil {
		return "", fmt.Errorf("failed to encode students: %w", err)
	}

	return s.client.Create(ctx, "Class", map[string]any{
		"name":       class.Name,
		"students":   students,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetClass returns the class with the given document ID.
func (s *Store) GetClass(ctx context.Context, classID string) (*types.Class, error) {
	resp, err := defra.SafeQueryByDocID(ctx, s.client, "Class", classID,
		"_docID", "name", "students", "created_at")
	if err != nil {
		return nil, err
	}

	doc, err := singleDoc(resp.Data, "Class")
	if err != nil {
		return nil, err
	}
	return parseClass(doc)
}

// ListClasses returns all class rosters.
func (s *Store) ListClasses(ctx context.Context) ([]*types.Class, error) {
	resp, err := defra.NewQuery("Class").
		Fields("_docID", "name", "students", "created_at").
		OrderBy("created_at", "DESC").
		Execute(ctx, s.client)
	if err != nil {
		return nil, err
	}

	docs, _ := resp.Data["Class"].([]any)
	classes := make([]*types.Class, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		class, err := parseClass(doc)
		if err != nil {
			s.logger.Warn("skipping malformed class", "error", err)
			continue
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// DeleteClass removes a class roster.
func (s *Store) DeleteClass(ctx context.Context, classID string) error {
	return s.client.Delete(ctx, "Class", classID)
}

// Schedules

// CreateSchedule creates a new grading run in the CREATED state.
func (s *Store) CreateSchedule(ctx context.Context, examID, classID string) (string, error) {
	result, err := toJSONValue(types.Result{})
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	id, err := s.client.Create(ctx, "Schedule", map[string]any{
		"exam_id":    examID,
		"class_id":   classID,
		"progress":   string(types.ProgressCreated),
		"result":     result,
		"version":    1,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("schedule created", "id", id, "exam_id", examID, "class_id", classID)
	return id, nil
}

// GetSchedule returns the schedule with the given document ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID string) (*types.Schedule, error) {
	resp, err := defra.SafeQueryByDocID(ctx, s.client, "Schedule", scheduleID,
		"_docID", "exam_id", "class_id", "progress", "result", "version", "created_at")
	if err != nil {
		return nil, err
	}

	doc, err := singleDoc(resp.Data, "Schedule")
	if err != nil {
		return nil, err
	}
	return parseSchedule(doc)
}

// ListSchedules returns all grading runs, newest first.
func (s *Store) ListSchedules(ctx context.Context) ([]*types.Schedule, error) {
	resp, err := defra.NewQuery("Schedule").
		Fields("_docID", "exam_id", "class_id", "progress", "result", "version", "created_at").
		OrderBy("created_at", "DESC").
		Execute(ctx, s.client)
	if err != nil {
		return nil, err
	}

	docs, _ := resp.Data["Schedule"].([]any)
	schedules := make([]*types.Schedule, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		sched, err := parseSchedule(doc)
		if err != nil {
			s.logger.Warn("skipping malformed schedule", "error", err)
			continue
		}
		schedules = append(schedules, sched)
	}
	return schedules, nil
}

// UpdateSchedule writes the schedule's progress and result with an
// optimistic-concurrency check on Version. On success the in-memory
// Version is advanced to the stored value.
func (s *Store) UpdateSchedule(ctx context.Context, sched *types.Schedule) error {
	result, err := toJSONValue(sched.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	updated, err := s.client.UpdateWithFilter(ctx, "Schedule", sched.ID,
		map[string]any{"version": map[string]any{"_eq": sched.Version}},
		map[string]any{
			"progress": string(sched.Progress),
			"result":   result,
			"version":  sched.Version + 1,
		})
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrVersionConflict
	}

	sched.Version++
	return nil
}

// Mutate runs a read-mutate-write cycle against the schedule, retrying on
// version conflicts. The mutation function must be idempotent: it may run
// more than once against fresh reads.
func (s *Store) Mutate(ctx context.Context, scheduleID string, fn func(*types.Schedule) error) (*types.Schedule, error) {
	var lastErr error
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		sched, err := s.GetSchedule(ctx, scheduleID)
		if err != nil {
			return nil, err
		}

		if err := fn(sched); err != nil {
			return nil, err
		}

		err = s.UpdateSchedule(ctx, sched)
		if err == nil {
			return sched, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("schedule CAS conflict, retrying", "id", scheduleID, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("schedule %s: %w after %d attempts", scheduleID, lastErr, maxCASRetries)
}

// DeleteSchedule removes a grading run.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID string) error {
	return s.client.Delete(ctx, "Schedule", scheduleID)
}

// Parsing helpers

func singleDoc(data map[string]any, collection string) (map[string]any, error) {
	docs, ok := data[collection].([]any)
	if !ok || len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", collection, ErrNotFound)
	}
	doc, ok := docs[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected document shape", collection)
	}
	return doc, nil
}

func parseExam(doc map[string]any) (*types.Exam, error) {
	exam := &types.Exam{}
	if id, ok := doc["_docID"].(string); ok {
		exam.ID = id
	}
	if name, ok := doc["name"].(string); ok {
		exam.Name = name
	}
	if components, ok := doc["components"]; ok && components != nil {
		if err := fromJSONValue(components, &exam.Components); err != nil {
			return nil, fmt.Errorf("failed to decode components: %w", err)
		}
	}
	exam.CreatedAt = parseTime(doc["created_at"])
	return exam, nil
}

func parseClass(doc map[string]any) (*types.Class, error) {
	class := &types.Class{}
	if id, ok := doc["_docID"].(string); ok {
		class.ID = id
	}
	if name, ok := doc["name"].(string); ok {
		class.Name = name
	}
	if students, ok := doc["students"]; ok && students != nil {
		if err := fromJSONValue(students, &class.Students); err != nil {
			return nil, fmt.Errorf("failed to decode students: %w", err)
		}
	}
	class.CreatedAt = parseTime(doc["created_at"])
	return class, nil
}

func parseSchedule(doc map[string]any) (*types.Schedule, error) {
	sched := &types.Schedule{}
	if id, ok := doc["_docID"].(string); ok {
		sched.ID = id
	}
	if examID, ok := doc["exam_id"].(string); ok {
		sched.ExamID = examID
	}
	if classID, ok := doc["class_id"].(string); ok {
		sched.ClassID = classID
	}
	if progress, ok := doc["progress"].(string); ok {
		sched.Progress = types.Progress(progress)
	}
	if result, ok := doc["result"]; ok && result != nil {
		if err := fromJSONValue(result, &sched.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}
	if version, ok := doc["version"].(float64); ok {
		sched.Version = int(version)
	}
	sched.CreatedAt = parseTime(doc["created_at"])
	return sched, nil
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// toJSONValue converts a typed value into the generic shape the GraphQL
// input builder accepts for JSON fields.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromJSONValue decodes a generic GraphQL JSON value into dst. Some Defra
// versions return JSON fields as strings, so both shapes are accepted.
func fromJSONValue(v any, dst any) error {
	var b []byte
	switch val := v.(type) {
	case string:
		b = []byte(val)
	default:
		var err error
		b, err = json.Marshal(val)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(b, dst)
}
