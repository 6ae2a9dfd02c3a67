// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"gatekeeper/internal/domain"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// GetByEmail retrieves a user by email, case-insensitively.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, email, username, password_hash, failed_attempts, locked_until, created_at FROM users WHERE lower(email) = lower($1)",
		email,
	))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, email, username, password_hash, failed_attempts, locked_until, created_at FROM users WHERE id = $1",
		id,
	))
}

// Create creates a new user. The username defaults to the email. A duplicate
// email maps to domain.ErrDuplicateEmail so callers can resolve the conflict.
func (d *DB) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	u, err := d.scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users (email, username, password_hash, created_at) VALUES ($1, $1, $2, $3) RETURNING id, email, username, password_hash, failed_attempts, locked_until, created_at",
		email, passwordHash, time.Now(),
	))
	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
		return nil, domain.ErrDuplicateEmail
	}
	return u, err
}

// UpdatePassword replaces the stored credential hash for a user.
func (d *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := d.sql.ExecContext(ctx,
		"UPDATE users SET password_hash = $2 WHERE id = $1",
		id, passwordHash,
	)
	return err
}

func (d *DB) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var lockedUntil sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FailedAttempts, &lockedUntil, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		u.LockedUntil = &lockedUntil.Time
	}
	return &u, nil
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, persistent bool, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, persistent, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)",
		token, userID, persistent, expiresAt, time.Now(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, persistent, expires_at, created_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.Persistent, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now())
	return err
}
