package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wekesa/registrar/internal/models"
	"github.com/wekesa/registrar/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLiteStore(dsn, "../../../migrations")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedEnrollment(t *testing.T, st *SQLiteStore) models.UnitEnrollment {
	t.Helper()

	dept := models.Department{Code: "BUS", Name: "Business Administration"}
	require.NoError(t, st.CreateDepartment(&dept))

	prog := models.Programme{
		Code: "BCOM", Name: "Bachelor of Commerce",
		Level: models.LevelBachelors, DepartmentID: dept.ID, DurationYears: 4,
	}
	require.NoError(t, st.CreateProgramme(&prog))

	unit := models.Unit{Code: "ACC101", Name: "Financial Accounting I", CreditHours: 3, DepartmentID: dept.ID}
	require.NoError(t, st.CreateUnit(&unit))

	user := models.User{Username: "jdoe", PasswordHash: "x", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, st.CreateUser(&user))

	student := models.Student{
		UserID: user.ID, RegistrationNumber: "BCOM/001/2025",
		ProgrammeID: prog.ID, CurrentYear: 1, IsActive: true,
	}
	require.NoError(t, st.CreateStudent(&student))

	e := models.UnitEnrollment{
		StudentID: student.ID, UnitID: unit.ID, SemesterID: 1,
		Status: models.StatusEnrolled, EnrolledAt: time.Now().Unix(),
	}
	require.NoError(t, st.CreateEnrollment(&e))
	return e
}

func TestTranslateToSQLite(t *testing.T) {
	t.Run("stable across repeated calls", func(t *testing.T) {
		ddl := "id BIGSERIAL PRIMARY KEY,\nscore SERIAL PRIMARY KEY"
		want := "id INTEGER PRIMARY KEY AUTOINCREMENT,\nscore INTEGER PRIMARY KEY AUTOINCREMENT"
		for i := 0; i < 200; i++ {
			require.Equal(t, want, translateToSQLite(ddl))
		}
	})

	t.Run("type rewrites", func(t *testing.T) {
		testCases := []struct{ in, want string }{
			{"blocked_until BIGINT NOT NULL", "blocked_until INTEGER NOT NULL"},
			{"is_active BOOLEAN NOT NULL DEFAULT TRUE", "is_active INTEGER NOT NULL DEFAULT 1"},
			{"is_approved BOOLEAN NOT NULL DEFAULT FALSE", "is_approved INTEGER NOT NULL DEFAULT 0"},
			{"min_marks NUMERIC(5,2) NOT NULL", "min_marks REAL NOT NULL"},
			{"grade_point NUMERIC(3,2) NOT NULL", "grade_point REAL NOT NULL"},
			{"grade VARCHAR(5) NOT NULL", "grade TEXT NOT NULL"},
			{"name VARCHAR(200) NOT NULL", "name TEXT NOT NULL"},
		}
		for _, tc := range testCases {
			assert.Equal(t, tc.want, translateToSQLite(tc.in))
		}
	})
}

func TestIsConflict_OnlyUniqueViolations(t *testing.T) {
	st := newTestStore(t)

	// FK violation: neither student 999 nor unit 999 exists
	err := st.CreateEnrollment(&models.UnitEnrollment{
		StudentID: 999, UnitID: 999, SemesterID: 1,
		Status: models.StatusEnrolled, EnrolledAt: time.Now().Unix(),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrConflict)
}

func TestUniqueConstraints(t *testing.T) {
	st := newTestStore(t)
	e := seedEnrollment(t, st)

	t.Run("duplicate unit code", func(t *testing.T) {
		dup := models.Unit{Code: "ACC101", Name: "Shadow Unit", CreditHours: 3, DepartmentID: 1}
		assert.ErrorIs(t, st.CreateUnit(&dup), store.ErrConflict)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := models.User{Username: "jdoe", PasswordHash: "y", Role: models.RoleStudent, IsActive: true}
		assert.ErrorIs(t, st.CreateUser(&dup), store.ErrConflict)
	})

	t.Run("second enrollment in same unit", func(t *testing.T) {
		dup := models.UnitEnrollment{
			StudentID: e.StudentID, UnitID: e.UnitID, SemesterID: 2,
			Status: models.StatusEnrolled, EnrolledAt: time.Now().Unix(),
		}
		assert.ErrorIs(t, st.CreateEnrollment(&dup), store.ErrConflict)
	})

	t.Run("second final grade for enrollment", func(t *testing.T) {
		g1 := models.FinalGrade{EnrollmentID: e.ID, TotalMarks: 80, Grade: "A", GradePoint: 4.0, ComputedAt: 1}
		require.NoError(t, st.CreateFinalGrade(&g1))

		g2 := models.FinalGrade{EnrollmentID: e.ID, TotalMarks: 70, Grade: "A", GradePoint: 4.0, ComputedAt: 2}
		assert.ErrorIs(t, st.CreateFinalGrade(&g2), store.ErrConflict)
	})
}

func TestTransitionEnrollment(t *testing.T) {
	st := newTestStore(t)
	e := seedEnrollment(t, st)

	require.NoError(t, st.TransitionEnrollment(e.ID, models.StatusEnrolled, models.StatusDropped))

	got, err := st.GetEnrollment(e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDropped, got.Status)

	t.Run("stale transition conflicts", func(t *testing.T) {
		err := st.TransitionEnrollment(e.ID, models.StatusEnrolled, models.StatusDropped)
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestApproveFinalGrade(t *testing.T) {
	st := newTestStore(t)
	e := seedEnrollment(t, st)

	g := models.FinalGrade{EnrollmentID: e.ID, TotalMarks: 80, Grade: "A", GradePoint: 4.0, ComputedAt: 1}
	require.NoError(t, st.CreateFinalGrade(&g))

	require.NoError(t, st.ApproveFinalGrade(e.ID, 42, true))

	approved, err := st.GetFinalGrade(e.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, int64(42), *approved.ApprovedBy)

	enrollment, err := st.GetEnrollment(e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, enrollment.Status)

	t.Run("second approval conflicts", func(t *testing.T) {
		assert.ErrorIs(t, st.ApproveFinalGrade(e.ID, 43, true), store.ErrConflict)
	})
}

func TestApproveFinalGrade_NotOpen(t *testing.T) {
	st := newTestStore(t)
	e := seedEnrollment(t, st)

	g := models.FinalGrade{EnrollmentID: e.ID, TotalMarks: 30, Grade: "E", GradePoint: 0, ComputedAt: 1}
	require.NoError(t, st.CreateFinalGrade(&g))
	require.NoError(t, st.TransitionEnrollment(e.ID, models.StatusEnrolled, models.StatusDropped))

	err := st.ApproveFinalGrade(e.ID, 42, false)
	assert.ErrorIs(t, err, store.ErrConflict)

	// the rollback must leave the grade unapproved
	grade, err := st.GetFinalGrade(e.ID)
	require.NoError(t, err)
	assert.False(t, grade.IsApproved)
}

func TestUpsertBlock(t *testing.T) {
	st := newTestStore(t)

	first := models.BlockedIP{IPAddress: "203.0.113.1", Reason: "first", BlockedUntil: 100, IsActive: true}
	require.NoError(t, st.UpsertBlock(&first))

	second := models.BlockedIP{IPAddress: "203.0.113.1", Reason: "second", BlockedUntil: 200, IsActive: true}
	require.NoError(t, st.UpsertBlock(&second))

	block, err := st.GetActiveBlock("203.0.113.1")
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, "second", block.Reason)
	assert.Equal(t, int64(200), block.BlockedUntil)

	var rows int
	require.NoError(t, st.DB.Get(&rows, `SELECT COUNT(*) FROM blocked_ips`))
	assert.Equal(t, 1, rows)

	t.Run("deactivated block no longer active", func(t *testing.T) {
		require.NoError(t, st.DeactivateBlock("203.0.113.1"))
		block, err := st.GetActiveBlock("203.0.113.1")
		require.NoError(t, err)
		assert.Nil(t, block)
	})
}

func TestCountRecentFailures(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()

	for i, offset := range []time.Duration{-10 * time.Minute, -30 * time.Minute, -2 * time.Hour} {
		a := models.LoginAttempt{
			Username: "jdoe", IPAddress: "203.0.113.2",
			Success: false, FailReason: "bad password",
			AttemptedAt: now.Add(offset).Unix(),
		}
		require.NoError(t, st.RecordLoginAttempt(&a), "attempt %d", i)
	}
	ok := models.LoginAttempt{Username: "jdoe", IPAddress: "203.0.113.2", Success: true, AttemptedAt: now.Unix()}
	require.NoError(t, st.RecordLoginAttempt(&ok))

	count, err := st.CountRecentFailures("203.0.113.2", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReplaceGradingScheme(t *testing.T) {
	st := newTestStore(t)
	seedEnrollment(t, st)

	bands := []models.GradeBand{
		{Grade: "PASS", MinMarks: 50, MaxMarks: 100, GradePoint: 4.0},
		{Grade: "FAIL", MinMarks: 0, MaxMarks: 49.99, GradePoint: 0.0},
	}
	require.NoError(t, st.ReplaceGradingScheme(1, bands))

	replacement := []models.GradeBand{
		{Grade: "A", MinMarks: 70, MaxMarks: 100, GradePoint: 4.0},
		{Grade: "B", MinMarks: 60, MaxMarks: 69.99, GradePoint: 3.0},
		{Grade: "F", MinMarks: 0, MaxMarks: 59.99, GradePoint: 0.0},
	}
	require.NoError(t, st.ReplaceGradingScheme(1, replacement))

	got, err := st.ListGradingScheme(1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// descending min_marks
	assert.Equal(t, "A", got[0].Grade)
	assert.Equal(t, "F", got[2].Grade)
}
