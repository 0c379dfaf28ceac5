package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type LoginAttempt struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username" validate:"required,max=150"`
	IPAddress   string `db:"ip_address" json:"ip_address" validate:"required"`
	Success     bool   `db:"success" json:"success"`
	FailReason  string `db:"fail_reason" json:"fail_reason"`
	UserAgent   string `db:"user_agent" json:"user_agent"`
	AttemptedAt int64  `db:"attempted_at" json:"attempted_at"`
}

// BlockedIP is mutated in place: one row per address, refreshed on repeat
// offences and deactivated once the block expires.
type BlockedIP struct {
	ID           int64  `db:"id" json:"id"`
	IPAddress    string `db:"ip_address" json:"ip_address" validate:"required"`
	Reason       string `db:"reason" json:"reason"`
	BlockedUntil int64  `db:"blocked_until" json:"blocked_until"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}

// Expired reports whether the block has lapsed at the given instant.
func (b *BlockedIP) Expired(now time.Time) bool {
	return now.Unix() >= b.BlockedUntil
}

type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "LOW"
	SeverityMedium   AuditSeverity = "MEDIUM"
	SeverityHigh     AuditSeverity = "HIGH"
	SeverityCritical AuditSeverity = "CRITICAL"
)

type AuditLog struct {
	ID          int64         `db:"id" json:"id"`
	Username    string        `db:"username" json:"username"`
	UserRole    string        `db:"user_role" json:"user_role"`
	ActionType  string        `db:"action_type" json:"action_type"`
	Description string        `db:"description" json:"description"`
	IPAddress   string        `db:"ip_address" json:"ip_address"`
	RequestPath string        `db:"request_path" json:"request_path"`
	Method      string        `db:"method" json:"method"`
	Severity    AuditSeverity `db:"severity" json:"severity"`
	StatusCode  int           `db:"status_code" json:"status_code"`
	CreatedAt   int64         `db:"created_at" json:"created_at"`
}

type UserSession struct {
	ID           int64  `db:"id" json:"id"`
	SessionKey   string `db:"session_key" json:"session_key" validate:"required"`
	Username     string `db:"username" json:"username" validate:"required"`
	IPAddress    string `db:"ip_address" json:"ip_address"`
	UserAgent    string `db:"user_agent" json:"user_agent"`
	DeviceType   string `db:"device_type" json:"device_type"`
	Browser      string `db:"browser" json:"browser"`
	OS           string `db:"os" json:"os"`
	IsActive     bool   `db:"is_active" json:"is_active"`
	StartedAt    int64  `db:"started_at" json:"started_at"`
	LastActivity int64  `db:"last_activity" json:"last_activity"`
	LogoutAt     *int64 `db:"logout_at" json:"logout_at,omitempty"`
}

type SecurityEvent struct {
	ID          int64  `db:"id" json:"id"`
	EventType   string `db:"event_type" json:"event_type" validate:"required"`
	RiskLevel   string `db:"risk_level" json:"risk_level" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Description string `db:"description" json:"description"`
	Username    string `db:"username" json:"username"`
	IPAddress   string `db:"ip_address" json:"ip_address"`
	AutoBlocked bool   `db:"auto_blocked" json:"auto_blocked"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
}

func (a *LoginAttempt) Validate() error {
	return validator.New().Struct(a)
}

func (s *UserSession) Validate() error {
	return validator.New().Struct(s)
}

func (ev *SecurityEvent) Validate() error {
	return validator.New().Struct(ev)
}
