package models

import (
	"time"

	"cinema/internal/access"
)

// User represents an account of the cinema.
type User struct {
	Base
	Email    string      `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password string      `json:"-" gorm:"column:hashed_password;type:varchar(255);not null"` // bcrypt hash
	IsActive bool        `json:"is_active" gorm:"not null;default:false"`
	Role     access.Role `json:"role" gorm:"type:varchar(20);not null;default:USER"`
}

// TokenKind distinguishes the purposes a UserToken is issued for.
type TokenKind string

const (
	TokenActivation    TokenKind = "activation"
	TokenPasswordReset TokenKind = "password_reset"
	TokenRefresh       TokenKind = "refresh"
)

// UserToken is an opaque, expiring token bound to a user.
type UserToken struct {
	Base
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Kind      TokenKind `json:"kind" gorm:"type:varchar(20);index;not null"`
	Token     string    `json:"-" gorm:"uniqueIndex;type:varchar(64);not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

// Expired reports whether the token is no longer valid at now.
func (t *UserToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
