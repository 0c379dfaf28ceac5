package grading

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/models"
	"github.com/wekesa/registrar/internal/store"
)

// weightTolerance absorbs NUMERIC(5,2) rounding when checking that a unit's
// component weights sum to 100.
const weightTolerance = 0.01

// Engine computes grades and GPAs against a programme's grading scheme.
// Uniqueness of marks and final grades is enforced by the store's
// constraints, not by existence checks, so concurrent writers cannot race
// past each other.
type Engine struct {
	store store.AcademicStore

	// MinPassingGradePoint decides COMPLETED vs FAILED at approval time.
	MinPassingGradePoint float64

	now func() time.Time
}

func NewEngine(s store.AcademicStore, minPassingGradePoint float64) *Engine {
	return &Engine{
		store:                s,
		MinPassingGradePoint: minPassingGradePoint,
		now:                  time.Now,
	}
}

// ComputeGrade resolves a total in [0,100] to the programme's grade band.
// The grading scheme table is the single source of truth: there is no
// fallback ladder.
func (e *Engine) ComputeGrade(total float64, programmeID int64) (models.GradeBand, error) {
	bands, err := e.store.ListGradingScheme(programmeID)
	if err != nil {
		return models.GradeBand{}, fmt.Errorf("failed to load grading scheme: %w", err)
	}

	band, ok := bandFor(bands, total)
	if !ok {
		return models.GradeBand{}, fmt.Errorf(
			"programme %d, total %.2f: %w", programmeID, total, ErrNoMatchingGradeBand)
	}
	return band, nil
}

// RecordMark stores a lecturer's mark for one assessment component of an
// enrollment. It validates the range against the component's max and that
// the component actually belongs to the enrollment's unit. A second write
// for the same (enrollment, component) pair fails with ErrDuplicateMark;
// corrections must go through UpdateMark. Recording a mark never triggers
// grade computation.
func (e *Engine) RecordMark(enrollmentID, componentID int64, marks float64, enteredBy int64, remarks string) (*models.StudentMark, error) {
	_, component, err := e.markTargets(enrollmentID, componentID, marks)
	if err != nil {
		return nil, err
	}

	mark := &models.StudentMark{
		EnrollmentID:  enrollmentID,
		ComponentID:   componentID,
		MarksObtained: marks,
		EnteredBy:     enteredBy,
		EnteredAt:     e.now().Unix(),
		Remarks:       remarks,
	}
	if err := e.store.CreateMark(mark); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("enrollment %d component %d: %w",
				enrollmentID, componentID, ErrDuplicateMark)
		}
		return nil, err
	}

	logger.Debug.Printf("Recorded %.2f/%.2f for enrollment %d component %q",
		marks, component.MaxMarks, enrollmentID, component.Name)
	return mark, nil
}

// UpdateMark is the explicit correction path for an existing mark.
func (e *Engine) UpdateMark(enrollmentID, componentID int64, marks float64, enteredBy int64, remarks string) (*models.StudentMark, error) {
	if _, _, err := e.markTargets(enrollmentID, componentID, marks); err != nil {
		return nil, err
	}

	mark := &models.StudentMark{
		EnrollmentID:  enrollmentID,
		ComponentID:   componentID,
		MarksObtained: marks,
		EnteredBy:     enteredBy,
		EnteredAt:     e.now().Unix(),
		Remarks:       remarks,
	}
	if err := e.store.UpdateMark(mark); err != nil {
		return nil, err
	}
	return mark, nil
}

func (e *Engine) markTargets(enrollmentID, componentID int64, marks float64) (*models.UnitEnrollment, *models.AssessmentComponent, error) {
	enrollment, err := e.store.GetEnrollment(enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	if enrollment == nil {
		return nil, nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrEnrollmentNotFound)
	}

	component, err := e.store.GetComponent(componentID)
	if err != nil {
		return nil, nil, err
	}
	if component == nil {
		return nil, nil, fmt.Errorf("component %d: %w", componentID, ErrComponentNotFound)
	}

	if component.UnitID != enrollment.UnitID {
		return nil, nil, fmt.Errorf("component unit %d vs enrollment unit %d: %w",
			component.UnitID, enrollment.UnitID, ErrUnitMismatch)
	}
	if marks < 0 || marks > component.MaxMarks {
		return nil, nil, fmt.Errorf("marks %.2f, max %.2f: %w",
			marks, component.MaxMarks, ErrMarksOutOfRange)
	}

	return enrollment, component, nil
}

// ComputeFinalGrade derives the enrollment's final grade from its marks:
// total = sum over components of (marks/max) * weight, clamped to [0,100].
// Every component of the unit must have a mark and the weights must sum to
// 100. An existing approved grade is only recomputed with override=true.
func (e *Engine) ComputeFinalGrade(enrollmentID int64, override bool) (*models.FinalGrade, error) {
	enrollment, err := e.store.GetEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrEnrollmentNotFound)
	}

	existing, err := e.store.GetFinalGrade(enrollmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsApproved && !override {
		return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrGradeAlreadyApproved)
	}

	components, err := e.store.ListUnitComponents(enrollment.UnitID)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("unit %d has no components: %w", enrollment.UnitID, ErrIncompleteAssessment)
	}

	var weightTotal float64
	for _, c := range components {
		weightTotal += c.Weight
	}
	if math.Abs(weightTotal-100) > weightTolerance {
		return nil, fmt.Errorf("unit %d weights sum to %.2f: %w",
			enrollment.UnitID, weightTotal, ErrWeightSum)
	}

	marks, err := e.store.ListEnrollmentMarks(enrollmentID)
	if err != nil {
		return nil, err
	}
	byComponent := make(map[int64]models.StudentMark, len(marks))
	for _, m := range marks {
		byComponent[m.ComponentID] = m
	}

	var total float64
	for _, c := range components {
		m, ok := byComponent[c.ID]
		if !ok {
			return nil, fmt.Errorf("component %q has no mark: %w", c.Name, ErrIncompleteAssessment)
		}
		total += m.MarksObtained / c.MaxMarks * c.Weight
	}
	total = clamp(total, 0, 100)

	student, err := e.store.GetStudent(enrollment.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", enrollment.StudentID, ErrStudentNotFound)
	}

	band, err := e.ComputeGrade(total, student.ProgrammeID)
	if err != nil {
		return nil, err
	}

	grade := &models.FinalGrade{
		EnrollmentID: enrollmentID,
		TotalMarks:   total,
		Grade:        band.Grade,
		GradePoint:   band.GradePoint,
		ComputedAt:   e.now().Unix(),
	}

	if existing == nil {
		if err := e.store.CreateFinalGrade(grade); err != nil {
			// Lost a create race: the other writer's row stands.
			if errors.Is(err, store.ErrConflict) {
				return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrGradeAlreadyApproved)
			}
			return nil, err
		}
	} else {
		grade.ID = existing.ID
		if err := e.store.UpdateFinalGrade(grade); err != nil {
			return nil, err
		}
	}

	logger.Info.Printf("Computed final grade for enrollment %d: %.2f => %s (%.2f)",
		enrollmentID, total, grade.Grade, grade.GradePoint)
	return grade, nil
}

// ApproveFinalGrade locks the grade and moves the enrollment to COMPLETED
// or FAILED depending on the minimum passing grade point. The store runs
// both writes in one transaction.
func (e *Engine) ApproveFinalGrade(enrollmentID, approvedBy int64) (*models.FinalGrade, error) {
	grade, err := e.store.GetFinalGrade(enrollmentID)
	if err != nil {
		return nil, err
	}
	if grade == nil {
		return nil, fmt.Errorf("enrollment %d has no computed grade: %w", enrollmentID, ErrEnrollmentNotFound)
	}
	if grade.IsApproved {
		return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrGradeAlreadyApproved)
	}

	passed := grade.GradePoint >= e.MinPassingGradePoint
	if err := e.store.ApproveFinalGrade(enrollmentID, approvedBy, passed); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrGradeAlreadyApproved)
		}
		return nil, err
	}

	grade.IsApproved = true
	grade.ApprovedBy = &approvedBy
	return grade, nil
}

// GPA is a credit-hour-weighted average of approved grade points.
type GPA struct {
	Value       float64 `json:"gpa"`
	CreditHours int     `json:"credit_hours"`
	Units       int     `json:"units"`
}

// ComputeGPA aggregates approved grades over COMPLETED and FAILED
// enrollments. Failed units count with their grade points; dropped and
// still-open enrollments never contribute. Pass semesterID 0 for the
// cumulative GPA.
func (e *Engine) ComputeGPA(studentID, semesterID int64) (GPA, error) {
	rows, err := e.store.ListGradePoints(studentID, semesterID)
	if err != nil {
		return GPA{}, err
	}

	var points float64
	var hours int
	for _, r := range rows {
		points += r.GradePoint * float64(r.CreditHours)
		hours += r.CreditHours
	}
	if hours == 0 {
		return GPA{}, fmt.Errorf("student %d semester %d: %w", studentID, semesterID, ErrNoGradedUnits)
	}

	return GPA{
		Value:       points / float64(hours),
		CreditHours: hours,
		Units:       len(rows),
	}, nil
}

// DropEnrollment is the one manual terminal transition; only an open
// enrollment can be dropped.
func (e *Engine) DropEnrollment(enrollmentID int64) error {
	return e.store.TransitionEnrollment(enrollmentID, models.StatusEnrolled, models.StatusDropped)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
