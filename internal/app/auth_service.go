// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"gatekeeper/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided password was incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates that no account exists for the email.
	// Callers must present this identically to ErrInvalidCredentials.
	ErrUserNotFound = errors.New("user not found")
	// ErrLockedOut indicates that the account is temporarily locked.
	ErrLockedOut = errors.New("account locked")
	// ErrEmailTaken indicates that registration collided with an existing account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrWeakPassword indicates that a password fails the credential policy.
	ErrWeakPassword = errors.New("password too weak")
)

// MinPasswordLength is the credential-strength policy applied on
// registration and password reset.
const MinPasswordLength = 8

// AuthService handles credential verification, registration, session
// issuance and federated identity reconciliation.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository

	sessionTTL    time.Duration
	persistentTTL time.Duration
}

// NewAuthService creates a new authentication service with the given
// session lifetimes.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, sessionTTL, persistentTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if persistentTTL <= 0 {
		persistentTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		users:         users,
		sessions:      sessions,
		sessionTTL:    sessionTTL,
		persistentTTL: persistentTTL,
	}
}

// SignIn verifies the email/password pair and establishes a session.
// The distinct ErrUserNotFound and ErrInvalidCredentials results exist for
// internal use only; the boundary collapses them into one generic message.
func (s *AuthService) SignIn(ctx context.Context, email, password string, persistent bool) (*domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrLockedOut
	}

	// Federation-only accounts have no local credential to check against.
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Lockout is turned off: failed attempts are not counted here, but
		// the LockedOut branch above stays reachable so the policy can be
		// enabled without reworking callers.
		return nil, ErrInvalidCredentials
	}

	return s.establish(ctx, user, persistent)
}

// Register creates a local account and immediately signs it in with the
// freshly supplied credentials, so callers get a session in one round trip.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.Session, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.Create(ctx, NormalizeEmail(email), string(hash)); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.SignIn(ctx, email, password, false)
}

// FederatedSignIn reconciles a provider-verified email with the local user
// directory and establishes a persistent session. Unknown emails get a new
// account with no local credential; a creation race resolves by re-fetching.
func (s *AuthService) FederatedSignIn(ctx context.Context, email string) (*domain.Session, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.users.Create(ctx, email, "")
		if errors.Is(err, domain.ErrDuplicateEmail) {
			// Concurrent first-time sign-in from the same identity.
			user, err = s.users.GetByEmail(ctx, email)
		}
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}

	return s.establish(ctx, user, true)
}

// Logout invalidates a session. Terminating an absent or already-terminated
// session is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ValidateSession checks if a session token is valid and returns its user.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) establish(ctx context.Context, user *domain.User, persistent bool) (*domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	ttl := s.sessionTTL
	if persistent {
		ttl = s.persistentTTL
	}
	expiresAt := time.Now().Add(ttl)
	if err := s.sessions.Create(ctx, user.ID, token, persistent, expiresAt); err != nil {
		return nil, err
	}

	return &domain.Session{
		Token:      token,
		UserID:     user.ID,
		Persistent: persistent,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
	}, nil
}

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
