// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"gatekeeper/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	sessions map[string]*domain.Session
	tokens   map[string]*domain.ResetToken

	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
		tokens:   make(map[string]*domain.ResetToken),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.ResetTokenRepository = (*TokenRepo)(nil)

// --- UserRepository ---

// GetByEmail retrieves a user by email, case-insensitively. Like GetByValue
// on tokens, a copy is returned so callers cannot mutate stored state
// outside the mutex.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

// Create creates a new user with the username defaulted to the email.
func (db *DB) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			return nil, domain.ErrDuplicateEmail
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Email:        email,
		Username:     email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	copy := *u
	return &copy, nil
}

// UpdatePassword replaces the stored credential hash for a user.
func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, persistent bool, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:      token,
		UserID:     userID,
		Persistent: persistent,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if time.Now().After(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		return s, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// --- ResetTokenRepository ---

// TokenRepo implements reset token persistence.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo creates a new reset token repository.
func (db *DB) NewTokenRepo() *TokenRepo {
	return &TokenRepo{db: db}
}

// Create stores a new reset token.
func (r *TokenRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.tokens[token] = &domain.ResetToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByValue retrieves a reset token by its opaque value.
func (r *TokenRepo) GetByValue(ctx context.Context, token string) (*domain.ResetToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if t, ok := r.db.tokens[token]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, nil
}

// Consume flips the consumed flag under the lock; exactly one of any
// concurrent callers for the same token observes true.
func (r *TokenRepo) Consume(ctx context.Context, token string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tokens[token]
	if !ok || t.Consumed {
		return false, nil
	}
	t.Consumed = true
	return true, nil
}

// DeleteExpired deletes all expired reset tokens.
func (r *TokenRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.tokens {
		if now.After(v.ExpiresAt) {
			delete(r.db.tokens, k)
		}
	}
	return nil
}
