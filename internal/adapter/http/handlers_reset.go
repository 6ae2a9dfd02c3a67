package adapthttp

import (
	"errors"
	"net/http"

	"gatekeeper/internal/app"
)

// handleForgotPassword always answers with the same confirmation body; only
// a delivery failure surfaces as an error, never the absence of the account.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := parseJSON(r, &req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := s.reset.RequestReset(r.Context(), req.Email); err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": msgResetSent})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Token           string `json:"token"`
		Email           string `json:"email"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := map[string]string{}
	if req.Token == "" || req.Email == "" {
		errs["token"] = "token and email are required"
	}
	if req.NewPassword != req.ConfirmPassword {
		errs["confirmPassword"] = "passwords do not match"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	err := s.reset.ResetPassword(r.Context(), req.Token, req.Email, req.NewPassword)
	switch {
	case errors.Is(err, app.ErrWeakPassword):
		writeFieldErrors(w, map[string]string{"newPassword": "password must be at least 8 characters"})
		return
	// Expired, consumed and unknown tokens collapse into one message.
	case errors.Is(err, app.ErrTokenInvalid), errors.Is(err, app.ErrTokenExpired), errors.Is(err, app.ErrTokenUsed):
		writeMessage(w, http.StatusBadRequest, msgBadToken)
		return
	case err != nil:
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
