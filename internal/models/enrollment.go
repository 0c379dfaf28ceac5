package models

import (
	"github.com/go-playground/validator/v10"
)

type EnrollmentStatus string

const (
	StatusEnrolled  EnrollmentStatus = "ENROLLED"
	StatusDropped   EnrollmentStatus = "DROPPED"
	StatusCompleted EnrollmentStatus = "COMPLETED"
	StatusFailed    EnrollmentStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s EnrollmentStatus) Terminal() bool {
	return s == StatusDropped || s == StatusCompleted || s == StatusFailed
}

// UnitEnrollment binds a student to a unit within a semester. A student may
// hold at most one enrollment per unit across its lifetime (DB-unique).
type UnitEnrollment struct {
	ID         int64            `db:"id" json:"id"`
	StudentID  int64            `db:"student_id" json:"student_id" validate:"required"`
	UnitID     int64            `db:"unit_id" json:"unit_id" validate:"required"`
	SemesterID int64            `db:"semester_id" json:"semester_id" validate:"required"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt int64            `db:"enrolled_at" json:"enrolled_at"`
}

func (e *UnitEnrollment) Validate() error {
	return validator.New().Struct(e)
}
