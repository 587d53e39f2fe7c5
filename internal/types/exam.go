// Package types defines the domain model shared across the grading pipeline.
package types

import "time"

// ComponentType identifies the kind of a layout component.
type ComponentType string

const (
	ComponentHeader       ComponentType = "header"
	ComponentSingleChoice ComponentType = "single_choice"
	ComponentMultiChoice  ComponentType = "multi_choice"
	ComponentFillBlank    ComponentType = "fill_blank"
	ComponentOpenEnded    ComponentType = "open_ended"
	ComponentText         ComponentType = "text"
	ComponentLine         ComponentType = "line"
)

// IsObjective reports whether the component is scored by answer-set equality.
func (t ComponentType) IsObjective() bool {
	return t == ComponentSingleChoice || t == ComponentMultiChoice
}

// IsSubjective reports whether the component is scored by a human with an
// AI suggestion.
func (t ComponentType) IsSubjective() bool {
	return t == ComponentFillBlank || t == ComponentOpenEnded
}

// Position is a component's placement on the printed exam in millimeters.
// PageIndex is 0-based within one student's exam.
type Position struct {
	TopMM     float64 `json:"top_mm"`
	LeftMM    float64 `json:"left_mm"`
	WidthMM   float64 `json:"width_mm"`
	HeightMM  float64 `json:"height_mm"`
	PageIndex int     `json:"page_index"`
}

// Component is one element of an exam layout. Scoring metadata is only
// meaningful for question types: Answer for objective components,
// QuestionHTML/ReferenceAnswer for subjective ones.
type Component struct {
	ID              string        `json:"id"`
	Type            ComponentType `json:"type"`
	Position        Position      `json:"position"`
	Score           float64       `json:"score,omitempty"`
	Answer          []string      `json:"answer,omitempty"`
	QuestionHTML    string        `json:"question_html,omitempty"`
	ReferenceAnswer string        `json:"reference_answer,omitempty"`
}

// Exam is a layout definition: the ordered components of one student's
// printed exam. Read-only to the grading core.
type Exam struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Components []Component `json:"components"`
	CreatedAt  time.Time   `json:"created_at"`
}

// PagesPerExam is 1 + the highest page index used by any component.
func (e *Exam) PagesPerExam() int {
	maxPage := 0
	for _, c := range e.Components {
		if c.Position.PageIndex > maxPage {
			maxPage = c.Position.PageIndex
		}
	}
	return maxPage + 1
}

// HeaderComponent returns the layout's identity block, or nil if the
// layout has none.
func (e *Exam) HeaderComponent() *Component {
	for i := range e.Components {
		if e.Components[i].Type == ComponentHeader {
			return &e.Components[i]
		}
	}
	return nil
}

// ObjectiveComponents returns the choice questions in layout order.
func (e *Exam) ObjectiveComponents() []Component {
	var out []Component
	for _, c := range e.Components {
		if c.Type.IsObjective() {
			out = append(out, c)
		}
	}
	return out
}

// SubjectiveComponents returns the free-response questions in layout order.
func (e *Exam) SubjectiveComponents() []Component {
	var out []Component
	for _, c := range e.Components {
		if c.Type.IsSubjective() {
			out = append(out, c)
		}
	}
	return out
}

// ComponentByID returns the component with the given id, or nil.
func (e *Exam) ComponentByID(id string) *Component {
	for i := range e.Components {
		if e.Components[i].ID == id {
			return &e.Components[i]
		}
	}
	return nil
}

// Student is one roster entry.
type Student struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// Class is an ordered student roster.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Students  []Student `json:"students"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentByID returns the roster entry with the given student id, or nil.
func (c *Class) StudentByID(studentID string) *Student {
	for i := range c.Students {
		if c.Students[i].StudentID == studentID {
			return &c.Students[i]
		}
	}
	return nil
}
