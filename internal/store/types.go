package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

// GradePointRow is one approved grade feeding a GPA computation.
type GradePointRow struct {
	GradePoint  float64 `db:"grade_point"`
	CreditHours int     `db:"credit_hours"`
}
