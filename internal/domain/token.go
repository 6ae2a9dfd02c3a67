package domain

import (
	"context"
	"time"
)

// ResetToken is a single-use capability authorizing one password change for
// the owning user within its validity window.
type ResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}

// ResetTokenRepository defines the port for reset token persistence.
// Consume atomically flips the consumed flag from false to true and reports
// whether this caller won; under concurrent attempts on the same token
// exactly one caller observes true.
type ResetTokenRepository interface {
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetByValue(ctx context.Context, token string) (*ResetToken, error)
	Consume(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context) error
}
