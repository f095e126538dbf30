// ABOUTME: User account model.
// ABOUTME: Only the bcrypt hash of the password is ever stored.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account that owns samples, a profile, and reports.
type User struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Email        string    `json:"email" yaml:"email"`
	PasswordHash string    `json:"-" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// NewUser creates a User with a normalized email.
func NewUser(email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
