package models

import (
	"github.com/go-playground/validator/v10"
)

// Student is the academic profile behind a user account. The programme link
// decides which grading scheme applies to the student's totals.
type Student struct {
	ID                 int64  `db:"id" json:"id"`
	UserID             int64  `db:"user_id" json:"user_id" validate:"required"`
	RegistrationNumber string `db:"registration_number" json:"registration_number" validate:"required,max=50"`
	ProgrammeID        int64  `db:"programme_id" json:"programme_id" validate:"required"`
	CurrentYear        int    `db:"current_year" json:"current_year" validate:"min=1,max=4"`
	IsActive           bool   `db:"is_active" json:"is_active"`
}

func (s *Student) Validate() error {
	return validator.New().Struct(s)
}
