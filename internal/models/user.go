package models

import (
	"github.com/go-playground/validator/v10"
)

type UserRole string

const (
	RoleStudent  UserRole = "STUDENT"
	RoleLecturer UserRole = "LECTURER"
	RoleCOD      UserRole = "COD"
	RoleDean     UserRole = "DEAN"
	RoleICTAdmin UserRole = "ICT_ADMIN"
)

// Privileged roles bypass the maintenance gate and may read block reasons.
func (r UserRole) Privileged() bool {
	return r == RoleICTAdmin || r == RoleDean
}

type User struct {
	ID           int64    `db:"id" json:"id"`
	Username     string   `db:"username" json:"username" validate:"required,max=150"`
	PasswordHash string   `db:"password_hash" json:"-"`
	Role         UserRole `db:"role" json:"role" validate:"required,oneof=STUDENT LECTURER COD DEAN ICT_ADMIN"`
	IsActive     bool     `db:"is_active" json:"is_active"`
}

func (u *User) Validate() error {
	return validator.New().Struct(u)
}
