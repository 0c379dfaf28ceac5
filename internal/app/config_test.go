package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":8080"
maintenance_mode = false

[database]
dsn = "file:portal.db"
migrations_dir = "./migrations"

[redis]
enabled = false

[security]
max_login_attempts = 5
audit_enabled = true

[grading]
min_passing_grade_point = 2.0
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Server.Port)
	assert.Equal(t, 5, config.Security.MaxLoginAttempts)
	assert.True(t, config.Security.AuditEnabled)

	t.Run("defaults fill the gaps", func(t *testing.T) {
		assert.Equal(t, "X-Session-Key", config.Server.SessionHeader)
		assert.Equal(t, time.Hour, config.Window())
		assert.Equal(t, 30*time.Minute, config.Lockout())
		assert.Equal(t, 2*time.Hour, config.SessionIdleTimeout())
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name: "missing port",
			content: `
[security]
max_login_attempts = 5
[grading]
min_passing_grade_point = 2.0
`,
		},
		{
			name: "missing login attempt limit",
			content: `
[server]
port = ":8080"
[grading]
min_passing_grade_point = 2.0
`,
		},
		{
			name: "missing passing grade point",
			content: `
[server]
port = ":8080"
[security]
max_login_attempts = 5
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig("does-not-exist.toml")
		assert.Error(t, err)
	})
}
