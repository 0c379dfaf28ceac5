package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/wekesa/registrar/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	// DSN parameter rather than a PRAGMA so every pooled connection
	// enforces foreign keys, not just the one that ran the statement.
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
		// Only uniqueness violations map to conflicts. Other constraint
		// classes (FK, CHECK, NOT NULL) stay plain errors, matching what
		// the Postgres store reports for the same inputs.
		IsConflict: func(err error) bool {
			var sqErr sqlite3.Error
			if !errors.As(err, &sqErr) {
				return false
			}
			return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
		},
	}}

	if migrationsDir != "" {
		if err := s.ApplyMigrations(migrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect. The rewrites are
// an ordered list, longest key first: SERIAL PRIMARY KEY is a substring of
// BIGSERIAL PRIMARY KEY, so applying it first would mangle the latter.
var sqliteRewrites = []struct {
	from, to string
}{
	{"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"BIGINT", "INTEGER"},
	{"BOOLEAN", "INTEGER"},
	{"TRUE", "1"},
	{"FALSE", "0"},
	{"NUMERIC(5,2)", "REAL"},
	{"NUMERIC(3,2)", "REAL"},
	{"VARCHAR(100)", "TEXT"},
	{"VARCHAR(150)", "TEXT"},
	{"VARCHAR(200)", "TEXT"},
	{"VARCHAR(20)", "TEXT"},
	{"VARCHAR(50)", "TEXT"},
	{"VARCHAR(5)", "TEXT"},
}

func translateToSQLite(sql string) string {
	result := sql
	for _, r := range sqliteRewrites {
		result = strings.ReplaceAll(result, r.from, r.to)
	}
	return result
}
