// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"errors"
	"net/http"
	"strings"

	"gatekeeper/internal/app"
)

// Generic messages returned at the boundary. Internal results stay precise,
// but user-facing authentication failures never reveal whether an account
// exists.
const (
	msgInvalidLogin = "invalid login attempt"
	msgLockedOut    = "this account is locked, please try again later"
	msgResetSent    = "if that email exists, a reset link has been sent"
	msgBadToken     = "invalid or expired reset token"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := map[string]string{}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errs["email"] = "a valid email is required"
	}
	if len(req.Password) < app.MinPasswordLength {
		errs["password"] = "password must be at least 8 characters"
	}
	if req.Password != req.ConfirmPassword {
		errs["confirmPassword"] = "passwords do not match"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	session, err := s.auth.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, app.ErrEmailTaken):
		writeFieldErrors(w, map[string]string{"email": "email is already registered"})
		return
	case errors.Is(err, app.ErrWeakPassword):
		writeFieldErrors(w, map[string]string{"password": "password must be at least 8 characters"})
		return
	case err != nil:
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"rememberMe"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	session, err := s.auth.SignIn(r.Context(), req.Email, req.Password, req.RememberMe)
	switch {
	// Unknown account and wrong password must be indistinguishable.
	case errors.Is(err, app.ErrUserNotFound), errors.Is(err, app.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, msgInvalidLogin)
		return
	case errors.Is(err, app.ErrLockedOut):
		writeMessage(w, http.StatusForbidden, msgLockedOut)
		return
	case err != nil:
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogout terminates the session. Proof of origin is checked by an
// outer anti-forgery collaborator before this handler runs; here only the
// method is enforced.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie("session")
	if err == nil {
		_ = s.auth.Logout(r.Context(), cookie.Value)
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":    user.Email,
		"username": user.Username,
	})
}
