package models

import (
	"github.com/go-playground/validator/v10"
)

type Department struct {
	ID   int64  `db:"id" json:"id"`
	Code string `db:"code" json:"code" validate:"required,max=20"`
	Name string `db:"name" json:"name" validate:"required,max=200"`
}

type ProgrammeLevel string

const (
	LevelCertificate ProgrammeLevel = "CERTIFICATE"
	LevelDiploma     ProgrammeLevel = "DIPLOMA"
	LevelBachelors   ProgrammeLevel = "BACHELORS"
	LevelMasters     ProgrammeLevel = "MASTERS"
	LevelPhD         ProgrammeLevel = "PHD"
)

type Programme struct {
	ID            int64          `db:"id" json:"id"`
	Code          string         `db:"code" json:"code" validate:"required,max=20"`
	Name          string         `db:"name" json:"name" validate:"required,max=200"`
	Level         ProgrammeLevel `db:"level" json:"level" validate:"required,oneof=CERTIFICATE DIPLOMA BACHELORS MASTERS PHD"`
	DepartmentID  int64          `db:"department_id" json:"department_id" validate:"required"`
	DurationYears int            `db:"duration_years" json:"duration_years" validate:"min=1,max=5"`
}

type Unit struct {
	ID           int64  `db:"id" json:"id"`
	Code         string `db:"code" json:"code" validate:"required,max=20"`
	Name         string `db:"name" json:"name" validate:"required,max=200"`
	CreditHours  int    `db:"credit_hours" json:"credit_hours" validate:"required,min=1"`
	DepartmentID int64  `db:"department_id" json:"department_id" validate:"required"`
	IsCore       bool   `db:"is_core" json:"is_core"`
}

// ProgrammeUnit places a unit in a programme's curriculum slot.
// The (programme, unit, year_level, semester) combination is unique at the DB level.
type ProgrammeUnit struct {
	ID          int64 `db:"id" json:"id"`
	ProgrammeID int64 `db:"programme_id" json:"programme_id" validate:"required"`
	UnitID      int64 `db:"unit_id" json:"unit_id" validate:"required"`
	YearLevel   int   `db:"year_level" json:"year_level" validate:"min=1,max=4"`
	Semester    int   `db:"semester" json:"semester" validate:"min=1,max=3"`
	IsMandatory bool  `db:"is_mandatory" json:"is_mandatory"`
}

// GradeBand is one row of a programme's grading scheme: an inclusive marks
// interval mapped to a letter grade and its GPA point.
type GradeBand struct {
	ID          int64   `db:"id" json:"id"`
	ProgrammeID int64   `db:"programme_id" json:"programme_id" validate:"required"`
	Grade       string  `db:"grade" json:"grade" validate:"required,max=5"`
	MinMarks    float64 `db:"min_marks" json:"min_marks" validate:"min=0,max=100"`
	MaxMarks    float64 `db:"max_marks" json:"max_marks" validate:"min=0,max=100"`
	GradePoint  float64 `db:"grade_point" json:"grade_point" validate:"min=0"`
	Description string  `db:"description" json:"description" validate:"max=50"`
}

// Contains reports whether total falls inside the band, boundaries inclusive.
func (b GradeBand) Contains(total float64) bool {
	return total >= b.MinMarks && total <= b.MaxMarks
}

func (d *Department) Validate() error {
	return validator.New().Struct(d)
}

func (p *Programme) Validate() error {
	return validator.New().Struct(p)
}

func (u *Unit) Validate() error {
	return validator.New().Struct(u)
}

func (pu *ProgrammeUnit) Validate() error {
	return validator.New().Struct(pu)
}

func (b *GradeBand) Validate() error {
	return validator.New().Struct(b)
}
