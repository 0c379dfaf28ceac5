package models

import (
	"github.com/go-playground/validator/v10"
)

type ComponentType string

const (
	ComponentCAT        ComponentType = "CAT"
	ComponentAssignment ComponentType = "ASSIGNMENT"
	ComponentProject    ComponentType = "PROJECT"
	ComponentExam       ComponentType = "EXAM"
	ComponentPractical  ComponentType = "PRACTICAL"
)

// AssessmentComponent is one weighted piece of a unit's evaluation.
// Weights of all components of a unit must sum to 100 before a final
// grade can be computed.
type AssessmentComponent struct {
	ID            int64         `db:"id" json:"id"`
	UnitID        int64         `db:"unit_id" json:"unit_id" validate:"required"`
	Name          string        `db:"name" json:"name" validate:"required,max=100"`
	ComponentType ComponentType `db:"component_type" json:"component_type" validate:"required,oneof=CAT ASSIGNMENT PROJECT EXAM PRACTICAL"`
	Weight        float64       `db:"weight_percentage" json:"weight_percentage" validate:"gt=0,max=100"`
	MaxMarks      float64       `db:"max_marks" json:"max_marks" validate:"gt=0"`
}

type StudentMark struct {
	ID            int64   `db:"id" json:"id"`
	EnrollmentID  int64   `db:"enrollment_id" json:"enrollment_id" validate:"required"`
	ComponentID   int64   `db:"component_id" json:"component_id" validate:"required"`
	MarksObtained float64 `db:"marks_obtained" json:"marks_obtained" validate:"min=0"`
	EnteredBy     int64   `db:"entered_by" json:"entered_by" validate:"required"`
	EnteredAt     int64   `db:"entered_at" json:"entered_at"`
	Remarks       string  `db:"remarks" json:"remarks"`
}

// FinalGrade is derived 1:1 from an enrollment's marks. Once approved it is
// never recomputed without an explicit override.
type FinalGrade struct {
	ID           int64   `db:"id" json:"id"`
	EnrollmentID int64   `db:"enrollment_id" json:"enrollment_id"`
	TotalMarks   float64 `db:"total_marks" json:"total_marks"`
	Grade        string  `db:"grade" json:"grade"`
	GradePoint   float64 `db:"grade_point" json:"grade_point"`
	ComputedAt   int64   `db:"computed_at" json:"computed_at"`
	ApprovedBy   *int64  `db:"approved_by" json:"approved_by,omitempty"`
	IsApproved   bool    `db:"is_approved" json:"is_approved"`
}

func (c *AssessmentComponent) Validate() error {
	return validator.New().Struct(c)
}

func (m *StudentMark) Validate() error {
	return validator.New().Struct(m)
}
