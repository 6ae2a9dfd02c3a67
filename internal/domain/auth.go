// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEmail is returned by UserRepository.Create when the email is
// already registered. Callers treat it as a benign conflict and may re-fetch.
var ErrDuplicateEmail = errors.New("email already registered")

// User represents an account in the system. Accounts created through
// federated sign-in carry an empty PasswordHash until a local credential is
// set via password reset.
type User struct {
	ID             int64
	Email          string
	Username       string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
}

// Session represents an active user session. Persistent sessions outlive the
// browser interaction that created them.
type Session struct {
	Token      string
	UserID     int64
	Persistent bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// UserRepository defines the port for user persistence operations.
// Email lookup is case-insensitive on the normalized address.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// SessionRepository defines the port for session persistence operations.
// Delete is idempotent: deleting an absent session is not an error.
type SessionRepository interface {
	Create(ctx context.Context, userID int64, token string, persistent bool, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}
