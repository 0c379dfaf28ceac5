package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wekesa/registrar/internal/models"
)

// ErrConflict is returned when an insert hits a uniqueness constraint or a
// guarded update finds the row in an unexpected state. Callers must choose an
// explicit update/override path rather than re-inserting.
var ErrConflict = errors.New("store: conflict")

type AcademicStore interface {
	Close() error
	ApplyMigrations(dir string) error

	// catalog
	CreateDepartment(d *models.Department) error
	CreateProgramme(p *models.Programme) error
	CreateUnit(u *models.Unit) error
	GetUnitByCode(code string) (*models.Unit, error)
	GetUnit(id int64) (*models.Unit, error)
	AddProgrammeUnit(pu *models.ProgrammeUnit) error
	ListProgrammeUnits(programmeID int64, yearLevel, semester int) ([]models.ProgrammeUnit, error)
	ListGradingScheme(programmeID int64) ([]models.GradeBand, error)
	ReplaceGradingScheme(programmeID int64, bands []models.GradeBand) error

	// people
	CreateUser(u *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	CreateStudent(s *models.Student) error
	GetStudent(id int64) (*models.Student, error)

	// enrollment
	CreateEnrollment(e *models.UnitEnrollment) error
	GetEnrollment(id int64) (*models.UnitEnrollment, error)
	TransitionEnrollment(id int64, from, to models.EnrollmentStatus) error
	ListStudentEnrollments(studentID int64) ([]models.UnitEnrollment, error)

	// assessment
	CreateAssessmentComponent(c *models.AssessmentComponent) error
	GetComponent(id int64) (*models.AssessmentComponent, error)
	ListUnitComponents(unitID int64) ([]models.AssessmentComponent, error)
	CreateMark(m *models.StudentMark) error
	UpdateMark(m *models.StudentMark) error
	ListEnrollmentMarks(enrollmentID int64) ([]models.StudentMark, error)

	// grades
	GetFinalGrade(enrollmentID int64) (*models.FinalGrade, error)
	CreateFinalGrade(g *models.FinalGrade) error
	UpdateFinalGrade(g *models.FinalGrade) error
	ApproveFinalGrade(enrollmentID, approvedBy int64, passed bool) error
	ListGradePoints(studentID, semesterID int64) ([]GradePointRow, error)

	// security
	RecordLoginAttempt(a *models.LoginAttempt) error
	CountRecentFailures(ip string, since time.Time) (int, error)
	GetActiveBlock(ip string) (*models.BlockedIP, error)
	UpsertBlock(b *models.BlockedIP) error
	DeactivateBlock(ip string) error
	CreateAuditLog(l *models.AuditLog) error
	ListAuditLogs(username string, severity models.AuditSeverity, limit int) ([]models.AuditLog, error)
	UpsertSession(s *models.UserSession) error
	GetSession(sessionKey string) (*models.UserSession, error)
	EndSession(sessionKey string, at time.Time) error
	ExpireIdleSessions(idleSince time.Time) (int64, error)
	CreateSecurityEvent(ev *models.SecurityEvent) error
}

// BaseStore provides the SQL shared by the Postgres and SQLite stores.
// Converter rewrites `?` placeholders for the dialect; IsConflict recognises
// the driver's uniqueness-violation errors.
type BaseStore struct {
	DB         *sqlx.DB
	Converter  func(string) string
	IsConflict func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) translateErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if s.IsConflict != nil && s.IsConflict(err) {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}

// ---- catalog ----

func (s *BaseStore) CreateDepartment(d *models.Department) error {
	query := s.Converter(`INSERT INTO departments (code, name) VALUES (?, ?) RETURNING id`)
	if err := s.DB.Get(&d.ID, query, d.Code, d.Name); err != nil {
		return s.translateErr(err, "create department")
	}
	return nil
}

func (s *BaseStore) CreateProgramme(p *models.Programme) error {
	query := s.Converter(`
		INSERT INTO programmes (code, name, level, department_id, duration_years)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&p.ID, query, p.Code, p.Name, p.Level, p.DepartmentID, p.DurationYears); err != nil {
		return s.translateErr(err, "create programme")
	}
	return nil
}

func (s *BaseStore) CreateUnit(u *models.Unit) error {
	query := s.Converter(`
		INSERT INTO units (code, name, credit_hours, department_id, is_core)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&u.ID, query, u.Code, u.Name, u.CreditHours, u.DepartmentID, u.IsCore); err != nil {
		return s.translateErr(err, "create unit")
	}
	return nil
}

func (s *BaseStore) GetUnitByCode(code string) (*models.Unit, error) {
	var unit models.Unit
	query := s.Converter(`
		SELECT id, code, name, credit_hours, department_id, is_core
		FROM units
		WHERE code = ?
	`)
	err := s.DB.Get(&unit, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return &unit, nil
}

func (s *BaseStore) GetUnit(id int64) (*models.Unit, error) {
	var unit models.Unit
	query := s.Converter(`
		SELECT id, code, name, credit_hours, department_id, is_core
		FROM units
		WHERE id = ?
	`)
	err := s.DB.Get(&unit, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return &unit, nil
}

func (s *BaseStore) AddProgrammeUnit(pu *models.ProgrammeUnit) error {
	query := s.Converter(`
		INSERT INTO programme_units (programme_id, unit_id, year_level, semester, is_mandatory)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.DB.Exec(query, pu.ProgrammeID, pu.UnitID, pu.YearLevel, pu.Semester, pu.IsMandatory)
	return s.translateErr(err, "add programme unit")
}

func (s *BaseStore) ListProgrammeUnits(programmeID int64, yearLevel, semester int) ([]models.ProgrammeUnit, error) {
	var pus []models.ProgrammeUnit
	query := s.Converter(`
		SELECT id, programme_id, unit_id, year_level, semester, is_mandatory
		FROM programme_units
		WHERE programme_id = ?
		AND year_level = ?
		AND semester = ?
		ORDER BY unit_id
	`)
	if err := s.DB.Select(&pus, query, programmeID, yearLevel, semester); err != nil {
		return nil, fmt.Errorf("failed to list programme units: %w", err)
	}
	return pus, nil
}

func (s *BaseStore) ListGradingScheme(programmeID int64) ([]models.GradeBand, error) {
	var bands []models.GradeBand
	query := s.Converter(`
		SELECT id, programme_id, grade, min_marks, max_marks, grade_point, description
		FROM grading_schemes
		WHERE programme_id = ?
		ORDER BY min_marks DESC
	`)
	if err := s.DB.Select(&bands, query, programmeID); err != nil {
		return nil, fmt.Errorf("failed to list grading scheme: %w", err)
	}
	return bands, nil
}

// ReplaceGradingScheme swaps a programme's bands in one transaction so no
// request ever observes a partially written scheme.
func (s *BaseStore) ReplaceGradingScheme(programmeID int64, bands []models.GradeBand) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin scheme replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.Converter(`DELETE FROM grading_schemes WHERE programme_id = ?`), programmeID); err != nil {
		return fmt.Errorf("failed to clear grading scheme: %w", err)
	}

	insert := s.Converter(`
		INSERT INTO grading_schemes (programme_id, grade, min_marks, max_marks, grade_point, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for _, b := range bands {
		if _, err := tx.Exec(insert, programmeID, b.Grade, b.MinMarks, b.MaxMarks, b.GradePoint, b.Description); err != nil {
			return s.translateErr(err, "insert grade band")
		}
	}

	return tx.Commit()
}

// ---- people ----

func (s *BaseStore) CreateUser(u *models.User) error {
	query := s.Converter(`
		INSERT INTO users (username, password_hash, role, is_active)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&u.ID, query, u.Username, u.PasswordHash, u.Role, u.IsActive); err != nil {
		return s.translateErr(err, "create user")
	}
	return nil
}

func (s *BaseStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := s.Converter(`
		SELECT id, username, password_hash, role, is_active
		FROM users
		WHERE username = ?
	`)
	err := s.DB.Get(&user, query, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *BaseStore) CreateStudent(st *models.Student) error {
	query := s.Converter(`
		INSERT INTO students (user_id, registration_number, programme_id, current_year, is_active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&st.ID, query, st.UserID, st.RegistrationNumber, st.ProgrammeID, st.CurrentYear, st.IsActive); err != nil {
		return s.translateErr(err, "create student")
	}
	return nil
}

func (s *BaseStore) GetStudent(id int64) (*models.Student, error) {
	var st models.Student
	query := s.Converter(`
		SELECT id, user_id, registration_number, programme_id, current_year, is_active
		FROM students
		WHERE id = ?
	`)
	err := s.DB.Get(&st, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &st, nil
}

// ---- enrollment ----

func (s *BaseStore) CreateEnrollment(e *models.UnitEnrollment) error {
	if e.Status == "" {
		e.Status = models.StatusEnrolled
	}
	query := s.Converter(`
		INSERT INTO unit_enrollments (student_id, unit_id, semester_id, status, enrolled_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&e.ID, query, e.StudentID, e.UnitID, e.SemesterID, e.Status, e.EnrolledAt); err != nil {
		return s.translateErr(err, "create enrollment")
	}
	return nil
}

func (s *BaseStore) GetEnrollment(id int64) (*models.UnitEnrollment, error) {
	var e models.UnitEnrollment
	query := s.Converter(`
		SELECT id, student_id, unit_id, semester_id, status, enrolled_at
		FROM unit_enrollments
		WHERE id = ?
	`)
	err := s.DB.Get(&e, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &e, nil
}

// TransitionEnrollment moves an enrollment between statuses with a guarded
// update: the row must still be in the expected `from` status, otherwise the
// transition lost a race and ErrConflict is returned.
func (s *BaseStore) TransitionEnrollment(id int64, from, to models.EnrollmentStatus) error {
	query := s.Converter(`
		UPDATE unit_enrollments
		SET status = ?
		WHERE id = ? AND status = ?
	`)
	res, err := s.DB.Exec(query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to transition enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transition: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("enrollment %d not in status %s: %w", id, from, ErrConflict)
	}
	return nil
}

func (s *BaseStore) ListStudentEnrollments(studentID int64) ([]models.UnitEnrollment, error) {
	var out []models.UnitEnrollment
	query := s.Converter(`
		SELECT id, student_id, unit_id, semester_id, status, enrolled_at
		FROM unit_enrollments
		WHERE student_id = ?
		ORDER BY enrolled_at DESC
	`)
	if err := s.DB.Select(&out, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return out, nil
}

// ---- assessment ----

func (s *BaseStore) CreateAssessmentComponent(c *models.AssessmentComponent) error {
	query := s.Converter(`
		INSERT INTO assessment_components (unit_id, name, component_type, weight_percentage, max_marks)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&c.ID, query, c.UnitID, c.Name, c.ComponentType, c.Weight, c.MaxMarks); err != nil {
		return s.translateErr(err, "create assessment component")
	}
	return nil
}

func (s *BaseStore) GetComponent(id int64) (*models.AssessmentComponent, error) {
	var c models.AssessmentComponent
	query := s.Converter(`
		SELECT id, unit_id, name, component_type, weight_percentage, max_marks
		FROM assessment_components
		WHERE id = ?
	`)
	err := s.DB.Get(&c, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component: %w", err)
	}
	return &c, nil
}

func (s *BaseStore) ListUnitComponents(unitID int64) ([]models.AssessmentComponent, error) {
	var out []models.AssessmentComponent
	query := s.Converter(`
		SELECT id, unit_id, name, component_type, weight_percentage, max_marks
		FROM assessment_components
		WHERE unit_id = ?
		ORDER BY component_type, name
	`)
	if err := s.DB.Select(&out, query, unitID); err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	return out, nil
}

func (s *BaseStore) CreateMark(m *models.StudentMark) error {
	query := s.Converter(`
		INSERT INTO student_marks (enrollment_id, component_id, marks_obtained, entered_by, entered_at, remarks)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&m.ID, query, m.EnrollmentID, m.ComponentID, m.MarksObtained, m.EnteredBy, m.EnteredAt, m.Remarks); err != nil {
		return s.translateErr(err, "create mark")
	}
	return nil
}

func (s *BaseStore) UpdateMark(m *models.StudentMark) error {
	query := s.Converter(`
		UPDATE student_marks
		SET marks_obtained = ?, entered_by = ?, entered_at = ?, remarks = ?
		WHERE enrollment_id = ? AND component_id = ?
	`)
	res, err := s.DB.Exec(query, m.MarksObtained, m.EnteredBy, m.EnteredAt, m.Remarks, m.EnrollmentID, m.ComponentID)
	if err != nil {
		return fmt.Errorf("failed to update mark: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no mark to update for enrollment %d component %d: %w",
			m.EnrollmentID, m.ComponentID, ErrConflict)
	}
	return nil
}

func (s *BaseStore) ListEnrollmentMarks(enrollmentID int64) ([]models.StudentMark, error) {
	var out []models.StudentMark
	query := s.Converter(`
		SELECT id, enrollment_id, component_id, marks_obtained, entered_by, entered_at, remarks
		FROM student_marks
		WHERE enrollment_id = ?
		ORDER BY component_id
	`)
	if err := s.DB.Select(&out, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("failed to list marks: %w", err)
	}
	return out, nil
}

// ---- grades ----

func (s *BaseStore) GetFinalGrade(enrollmentID int64) (*models.FinalGrade, error) {
	var g models.FinalGrade
	query := s.Converter(`
		SELECT id, enrollment_id, total_marks, grade, grade_point, computed_at, approved_by, is_approved
		FROM final_grades
		WHERE enrollment_id = ?
	`)
	err := s.DB.Get(&g, query, enrollmentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get final grade: %w", err)
	}
	return &g, nil
}

func (s *BaseStore) CreateFinalGrade(g *models.FinalGrade) error {
	query := s.Converter(`
		INSERT INTO final_grades (enrollment_id, total_marks, grade, grade_point, computed_at, is_approved)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := s.DB.Get(&g.ID, query, g.EnrollmentID, g.TotalMarks, g.Grade, g.GradePoint, g.ComputedAt, g.IsApproved); err != nil {
		return s.translateErr(err, "create final grade")
	}
	return nil
}

func (s *BaseStore) UpdateFinalGrade(g *models.FinalGrade) error {
	query := s.Converter(`
		UPDATE final_grades
		SET total_marks = ?, grade = ?, grade_point = ?, computed_at = ?, is_approved = ?, approved_by = ?
		WHERE enrollment_id = ?
	`)
	_, err := s.DB.Exec(query, g.TotalMarks, g.Grade, g.GradePoint, g.ComputedAt, g.IsApproved, g.ApprovedBy, g.EnrollmentID)
	if err != nil {
		return fmt.Errorf("failed to update final grade: %w", err)
	}
	return nil
}

// ApproveFinalGrade stamps the approval and flips the enrollment to
// COMPLETED or FAILED in the same transaction, so grade and enrollment state
// cannot drift apart. Besides ENROLLED, the grade-derived terminal statuses
// are accepted as starting points: approving an override-recomputed grade
// re-stamps COMPLETED/FAILED to match the new grade point. DROPPED
// enrollments stay unapprovable.
func (s *BaseStore) ApproveFinalGrade(enrollmentID, approvedBy int64, passed bool) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin approval: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(s.Converter(`
		UPDATE final_grades
		SET is_approved = ?, approved_by = ?
		WHERE enrollment_id = ? AND is_approved = ?
	`), true, approvedBy, enrollmentID, false)
	if err != nil {
		return fmt.Errorf("failed to approve grade: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("grade for enrollment %d missing or already approved: %w", enrollmentID, ErrConflict)
	}

	status := models.StatusCompleted
	if !passed {
		status = models.StatusFailed
	}
	res, err = tx.Exec(s.Converter(`
		UPDATE unit_enrollments
		SET status = ?
		WHERE id = ? AND status IN (?, ?, ?)
	`), status, enrollmentID, models.StatusEnrolled, models.StatusCompleted, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to complete enrollment: %w", err)
	}
	n, _ = res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("enrollment %d not open for completion: %w", enrollmentID, ErrConflict)
	}

	return tx.Commit()
}

// ListGradePoints returns the approved grade points and credit hours feeding
// a GPA. Pass semesterID 0 for the cumulative scope.
func (s *BaseStore) ListGradePoints(studentID, semesterID int64) ([]GradePointRow, error) {
	query := `
		SELECT g.grade_point, u.credit_hours
		FROM final_grades g
		JOIN unit_enrollments e ON e.id = g.enrollment_id
		JOIN units u ON u.id = e.unit_id
		WHERE e.student_id = ?
		AND g.is_approved = ?
		AND e.status IN ('COMPLETED', 'FAILED')
	`
	args := []interface{}{studentID, true}
	if semesterID != 0 {
		query += ` AND e.semester_id = ?`
		args = append(args, semesterID)
	}

	var rows []GradePointRow
	if err := s.DB.Select(&rows, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list grade points: %w", err)
	}
	return rows, nil
}

// ---- security ----

func (s *BaseStore) RecordLoginAttempt(a *models.LoginAttempt) error {
	query := s.Converter(`
		INSERT INTO login_attempts (username, ip_address, success, fail_reason, user_agent, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.DB.Exec(query, a.Username, a.IPAddress, a.Success, a.FailReason, a.UserAgent, a.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

func (s *BaseStore) CountRecentFailures(ip string, since time.Time) (int, error) {
	var count int
	query := s.Converter(`
		SELECT COUNT(*)
		FROM login_attempts
		WHERE ip_address = ?
		AND success = ?
		AND attempted_at >= ?
	`)
	if err := s.DB.Get(&count, query, ip, false, since.Unix()); err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

func (s *BaseStore) GetActiveBlock(ip string) (*models.BlockedIP, error) {
	var b models.BlockedIP
	query := s.Converter(`
		SELECT id, ip_address, reason, blocked_until, is_active
		FROM blocked_ips
		WHERE ip_address = ? AND is_active = ?
	`)
	err := s.DB.Get(&b, query, ip, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked ip: %w", err)
	}
	return &b, nil
}

// UpsertBlock creates or refreshes the single row for an address. Repeat
// offenders extend their existing block rather than stacking rows.
func (s *BaseStore) UpsertBlock(b *models.BlockedIP) error {
	query := s.Converter(`
		INSERT INTO blocked_ips (ip_address, reason, blocked_until, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ip_address) DO UPDATE SET
			reason = excluded.reason,
			blocked_until = excluded.blocked_until,
			is_active = excluded.is_active
	`)
	_, err := s.DB.Exec(query, b.IPAddress, b.Reason, b.BlockedUntil, b.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert block: %w", err)
	}
	return nil
}

func (s *BaseStore) DeactivateBlock(ip string) error {
	query := s.Converter(`UPDATE blocked_ips SET is_active = ? WHERE ip_address = ?`)
	if _, err := s.DB.Exec(query, false, ip); err != nil {
		return fmt.Errorf("failed to deactivate block: %w", err)
	}
	return nil
}

func (s *BaseStore) CreateAuditLog(l *models.AuditLog) error {
	query := s.Converter(`
		INSERT INTO audit_logs (username, user_role, action_type, description, ip_address, request_path, method, severity, status_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.DB.Exec(query,
		l.Username, l.UserRole, l.ActionType, l.Description,
		l.IPAddress, l.RequestPath, l.Method, l.Severity, l.StatusCode, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (s *BaseStore) ListAuditLogs(username string, severity models.AuditSeverity, limit int) ([]models.AuditLog, error) {
	query := `
		SELECT id, username, user_role, action_type, description, ip_address, request_path, method, severity, status_code, created_at
		FROM audit_logs
		WHERE 1=1
	`
	var args []interface{}
	if username != "" {
		query += ` AND username = ?`
		args = append(args, username)
	}
	if severity != "" {
		query += ` AND severity = ?`
		args = append(args, severity)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	var out []models.AuditLog
	if err := s.DB.Select(&out, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return out, nil
}

func (s *BaseStore) UpsertSession(sess *models.UserSession) error {
	query := s.Converter(`
		INSERT INTO user_sessions (session_key, username, ip_address, user_agent, device_type, browser, os, is_active, started_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE SET
			last_activity = excluded.last_activity,
			is_active = excluded.is_active
	`)
	_, err := s.DB.Exec(query,
		sess.SessionKey, sess.Username, sess.IPAddress, sess.UserAgent,
		sess.DeviceType, sess.Browser, sess.OS, sess.IsActive,
		sess.StartedAt, sess.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (s *BaseStore) GetSession(sessionKey string) (*models.UserSession, error) {
	var sess models.UserSession
	query := s.Converter(`
		SELECT id, session_key, username, ip_address, user_agent, device_type, browser, os, is_active, started_at, last_activity, logout_at
		FROM user_sessions
		WHERE session_key = ?
	`)
	err := s.DB.Get(&sess, query, sessionKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

func (s *BaseStore) EndSession(sessionKey string, at time.Time) error {
	query := s.Converter(`
		UPDATE user_sessions
		SET is_active = ?, logout_at = ?
		WHERE session_key = ?
	`)
	if _, err := s.DB.Exec(query, false, at.Unix(), sessionKey); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

func (s *BaseStore) ExpireIdleSessions(idleSince time.Time) (int64, error) {
	query := s.Converter(`
		UPDATE user_sessions
		SET is_active = ?
		WHERE is_active = ? AND last_activity < ?
	`)
	res, err := s.DB.Exec(query, false, true, idleSince.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired sessions: %w", err)
	}
	return n, nil
}

func (s *BaseStore) CreateSecurityEvent(ev *models.SecurityEvent) error {
	query := s.Converter(`
		INSERT INTO security_events (event_type, risk_level, description, username, ip_address, auto_blocked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.DB.Exec(query,
		ev.EventType, ev.RiskLevel, ev.Description,
		ev.Username, ev.IPAddress, ev.AutoBlocked, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create security event: %w", err)
	}
	return nil
}
