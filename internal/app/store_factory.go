package app

import (
	"strings"

	"github.com/wekesa/registrar/internal/store"
	"github.com/wekesa/registrar/internal/store/postgres"
	"github.com/wekesa/registrar/internal/store/sqlite"
)

func NewStore(dsn, migrationsDir string) (store.AcademicStore, error) {
	dbType := store.DBTypeSQLite
	if strings.HasPrefix(dsn, "postgres") {
		dbType = store.DBTypePostgres
	}

	switch dbType {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dsn, migrationsDir)
	default:
		return sqlite.NewSQLiteStore(dsn, migrationsDir)
	}
}
