package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gatekeeper/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenInvalid indicates that a reset token does not resolve to the
	// presented account.
	ErrTokenInvalid = errors.New("invalid reset token")
	// ErrTokenExpired indicates that a reset token is past its validity window.
	ErrTokenExpired = errors.New("reset token expired")
	// ErrTokenUsed indicates that a reset token has already authorized a
	// password change.
	ErrTokenUsed = errors.New("reset token already used")
)

// DefaultResetTokenTTL bounds a reset token's validity when no explicit
// window is configured.
const DefaultResetTokenTTL = 1 * time.Hour

// ResetService issues and consumes single-use password reset tokens and
// drives the forgot-password email flow.
type ResetService struct {
	users  domain.UserRepository
	tokens domain.ResetTokenRepository
	sender domain.Sender
	render domain.Renderer

	baseURL  string
	tokenTTL time.Duration
}

// NewResetService creates a reset service. baseURL is the externally
// reachable address embedded in reset links.
func NewResetService(users domain.UserRepository, tokens domain.ResetTokenRepository, sender domain.Sender, render domain.Renderer, baseURL string, tokenTTL time.Duration) *ResetService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultResetTokenTTL
	}
	return &ResetService{
		users:    users,
		tokens:   tokens,
		sender:   sender,
		render:   render,
		baseURL:  baseURL,
		tokenTTL: tokenTTL,
	}
}

// RequestReset issues a reset token and emails a reset link to the account.
// Unknown emails return nil without issuing or sending anything, so the
// caller's response never reveals whether the account exists. A delivery
// failure is surfaced as a hard error; there is no retry here.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Create(ctx, user.ID, token, time.Now().Add(s.tokenTTL)); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		s.baseURL, url.QueryEscape(token), url.QueryEscape(user.Email))

	html, err := s.render.Render("password_reset", map[string]any{
		"Username": user.Username,
		"ResetURL": resetURL,
	})
	if err != nil {
		return err
	}

	return s.sender.Send(user.Email, "Password Reset From FileSharing", html)
}

// ResetPassword validates a token against the presented email and, in the
// same logical step, consumes it and updates the stored credential. A token
// authorizes at most one password change: under concurrent submissions
// exactly one caller succeeds and the rest observe ErrTokenUsed.
func (s *ResetService) ResetPassword(ctx context.Context, token, email, newPassword string) error {
	rt, err := s.tokens.GetByValue(ctx, token)
	if err != nil {
		return err
	}
	if rt == nil {
		return ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil {
		return err
	}
	// The token must match the account it was issued for; a mismatch is
	// indistinguishable from an unknown token.
	if user == nil || NormalizeEmail(email) != NormalizeEmail(user.Email) {
		return ErrTokenInvalid
	}

	if rt.Consumed {
		return ErrTokenUsed
	}
	if time.Now().After(rt.ExpiresAt) {
		return ErrTokenExpired
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	// Consume must precede the credential write. If the update then fails the
	// token is spent with the password unchanged; reversing the order could
	// leave a live token that already changed a password.
	ok, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenUsed
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}
