package adapthttp

import (
	"net/http"

	"gatekeeper/internal/app"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth  *app.AuthService
	reset *app.ResetService
	oidc  *OIDCConfig

	disableAuth bool
}

// New creates a Server wired to the given application services. oidc may be
// nil when federated sign-in is not configured.
func New(auth *app.AuthService, reset *app.ResetService, oidc *OIDCConfig) *Server {
	if oidc == nil {
		oidc = &OIDCConfig{}
	}
	return &Server{auth: auth, reset: reset, oidc: oidc}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/register", s.handleRegister)
	api.HandleFunc("/signin", s.handleSignIn)
	api.HandleFunc("/logout", s.handleLogout)

	api.HandleFunc("/password/forgot", s.handleForgotPassword)
	api.HandleFunc("/password/reset", s.handleResetPassword)

	api.Handle("/me", s.authMiddleware(http.HandlerFunc(s.handleMe)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	root.HandleFunc("/auth/google/callback", s.handleGoogleCallback)

	return s.loggingMiddleware(withNoCache(root))
}
