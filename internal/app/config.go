package app

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type Config struct {
	Server struct {
		Port            string `toml:"port"`
		MaintenanceMode bool   `toml:"maintenance_mode"`
		SessionHeader   string `toml:"session_header"`
	} `toml:"server"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Redis struct {
		Enabled bool   `toml:"enabled"`
		URL     string `toml:"url"`
	} `toml:"redis"`

	Security struct {
		MaxLoginAttempts       int  `toml:"max_login_attempts"`
		LockoutDurationMinutes int  `toml:"lockout_duration_minutes"`
		WindowMinutes          int  `toml:"window_minutes"`
		SessionIdleMinutes     int  `toml:"session_idle_minutes"`
		AuditEnabled           bool `toml:"audit_enabled"`
	} `toml:"security"`

	Grading struct {
		MinPassingGradePoint float64 `toml:"min_passing_grade_point"`
	} `toml:"grading"`
}

func (c *Config) Window() time.Duration {
	return time.Duration(c.Security.WindowMinutes) * time.Minute
}

func (c *Config) Lockout() time.Duration {
	return time.Duration(c.Security.LockoutDurationMinutes) * time.Minute
}

func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Security.SessionIdleMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("server port is not specified in config, use a value like :8080")
	}
	if config.Server.SessionHeader == "" {
		config.Server.SessionHeader = "X-Session-Key"
	}
	if config.Security.MaxLoginAttempts <= 0 {
		return nil, fmt.Errorf("security.max_login_attempts must be positive")
	}
	if config.Security.WindowMinutes <= 0 {
		config.Security.WindowMinutes = 60
	}
	if config.Security.LockoutDurationMinutes <= 0 {
		config.Security.LockoutDurationMinutes = 30
	}
	if config.Security.SessionIdleMinutes <= 0 {
		config.Security.SessionIdleMinutes = 120
	}
	if config.Grading.MinPassingGradePoint <= 0 {
		return nil, fmt.Errorf("grading.min_passing_grade_point must be positive")
	}

	logger.Debug.Printf("Loaded security config: %+v", config.Security)

	return &config, nil
}
