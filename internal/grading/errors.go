package grading

import "errors"

var (
	// ErrNoMatchingGradeBand means the programme's grading scheme does not
	// cover the computed total. Surfaced, never silently defaulted.
	ErrNoMatchingGradeBand = errors.New("no grading band covers the total")

	// ErrDuplicateMark means a mark already exists for the
	// (enrollment, component) pair; corrections go through UpdateMark.
	ErrDuplicateMark = errors.New("mark already recorded for component")

	// ErrIncompleteAssessment means at least one of the unit's components
	// has no mark for the enrollment yet.
	ErrIncompleteAssessment = errors.New("marks missing for one or more components")

	// ErrGradeAlreadyApproved means recomputation was attempted on an
	// approved grade without the explicit override flag.
	ErrGradeAlreadyApproved = errors.New("final grade already approved")

	// ErrNoGradedUnits means the GPA denominator is zero: no approved
	// grades in the requested scope.
	ErrNoGradedUnits = errors.New("no graded units in scope")

	// ErrWeightSum means the unit's component weights do not add up to 100.
	ErrWeightSum = errors.New("component weights do not sum to 100")

	// ErrUnitMismatch means the component belongs to a different unit than
	// the enrollment.
	ErrUnitMismatch = errors.New("component does not belong to enrollment unit")

	// ErrMarksOutOfRange means marks fall outside [0, component max].
	ErrMarksOutOfRange = errors.New("marks outside component range")

	// ErrInvalidScheme means a grading scheme fails validation: malformed
	// bounds, overlapping bands, or gaps in [0,100].
	ErrInvalidScheme = errors.New("invalid grading scheme")

	// ErrEnrollmentNotFound / ErrComponentNotFound signal missing inputs.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrComponentNotFound  = errors.New("assessment component not found")
	ErrStudentNotFound    = errors.New("student not found")
)
