package postgres

import (
	"context"
	"database/sql"
	"time"

	"gatekeeper/internal/domain"
)

// TokenRepo implements reset token repository operations on DB.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo wraps a DB as a ResetTokenRepository.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Create stores a new reset token.
func (r *TokenRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO reset_tokens (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		token, userID, expiresAt, time.Now(),
	)
	return err
}

// GetByValue retrieves a reset token by its opaque value.
func (r *TokenRepo) GetByValue(ctx context.Context, token string) (*domain.ResetToken, error) {
	var t domain.ResetToken
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, consumed, created_at FROM reset_tokens WHERE token = $1",
		token,
	).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Consumed, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Consume flips the consumed flag in a single conditional update so that
// exactly one of any concurrent callers wins.
func (r *TokenRepo) Consume(ctx context.Context, token string) (bool, error) {
	res, err := r.db.sql.ExecContext(ctx,
		"UPDATE reset_tokens SET consumed = TRUE WHERE token = $1 AND consumed = FALSE",
		token,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpired deletes all expired reset tokens.
func (r *TokenRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM reset_tokens WHERE expires_at < $1", time.Now())
	return err
}
