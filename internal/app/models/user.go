package models

import (
	"time"
)

// User is a staff account. UniversityID is nil until the user creates
// their university.
type User struct {
	ID           string     `json:"id" db:"id" validate:"required"`
	Email        string     `json:"email" db:"email" validate:"required,email"`
	FullName     string     `json:"fullName" db:"full_name"`
	Password     string     `json:"-" db:"password_hash"`
	UniversityID *string    `json:"universityId,omitempty" db:"university_id"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// HasUniversity reports whether the user has been assigned a university.
func (u *User) HasUniversity() bool {
	return u.UniversityID != nil && *u.UniversityID != ""
}

// RefreshToken is an opaque, revocable refresh token row
type RefreshToken struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	Revoked   bool      `db:"revoked"`
	CreatedAt time.Time `db:"created_at"`
}
