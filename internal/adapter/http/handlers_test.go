package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	adapthttp "gatekeeper/internal/adapter/http"
	"gatekeeper/internal/adapter/mail"
	"gatekeeper/internal/adapter/memory"
	"gatekeeper/internal/app"
	"gatekeeper/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// captureSender records outgoing mail instead of delivering it.
type captureSender struct {
	mu   sync.Mutex
	sent int
	last string
}

func (c *captureSender) Send(to, subject, html string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent++
	c.last = html
	return nil
}

type fixture struct {
	db      *memory.DB
	sender  *captureSender
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	authSvc := app.NewAuthService(db, db.NewSessionRepo(), 0, 0)

	renderer, err := mail.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	sender := &captureSender{}
	resetSvc := app.NewResetService(db, db.NewTokenRepo(), sender, renderer, "http://localhost:8080", time.Hour)

	srv := adapthttp.New(authSvc, resetSvc, nil)
	return &fixture{db: db, sender: sender, handler: srv.Handler()}
}

func (f *fixture) post(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("expected a session cookie")
	return nil
}

func TestRegister_EstablishesSession(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	sessionCookie(t, w)

	u, err := f.db.GetByEmail(context.Background(), "a@x.com")
	if err != nil || u == nil {
		t.Fatalf("expected user created, got %v, %v", u, err)
	}
}

func TestRegister_FieldErrors(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/api/register", map[string]any{
		"email":           "not-an-email",
		"password":        "short",
		"confirmPassword": "different",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"email", "password", "confirmPassword"} {
		if resp.Errors[field] == "" {
			t.Errorf("expected field error for %s", field)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	}
	f.post(t, "/api/register", body)

	w := f.post(t, "/api/register", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := w.Result().Cookies(); len(got) != 0 {
		t.Error("expected no session on failed registration")
	}
}

func TestSignIn_UnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})

	wrong := f.post(t, "/api/signin", map[string]any{"email": "a@x.com", "password": "wrongpass1"})
	ghost := f.post(t, "/api/signin", map[string]any{"email": "ghost@x.com", "password": "wrongpass1"})

	if wrong.Code != http.StatusUnauthorized || ghost.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.Code, ghost.Code)
	}
	if wrong.Body.String() != ghost.Body.String() {
		t.Errorf("responses must be indistinguishable: %q vs %q", wrong.Body.String(), ghost.Body.String())
	}
}

// lockedUsers reports every stored account as locked.
type lockedUsers struct {
	domain.UserRepository
	until time.Time
}

func (l *lockedUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := l.UserRepository.GetByEmail(ctx, email)
	if u != nil {
		u.LockedUntil = &l.until
	}
	return u, err
}

func TestSignIn_LockedAccount(t *testing.T) {
	db := memory.New()
	users := &lockedUsers{UserRepository: db, until: time.Now().Add(time.Hour)}
	authSvc := app.NewAuthService(users, db.NewSessionRepo(), 0, 0)
	handler := adapthttp.New(authSvc, nil, nil).Handler()

	if _, err := db.Create(context.Background(), "a@x.com", hashPassword(t, "P@ssw0rd1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"email": "a@x.com", "password": "P@ssw0rd1"})
	req := httptest.NewRequest(http.MethodPost, "/api/signin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "locked") {
		t.Errorf("expected the lockout message, got %q", w.Body.String())
	}
}

func TestSignIn_RememberMeSetsPersistentCookie(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})

	w := f.post(t, "/api/signin", map[string]any{"email": "a@x.com", "password": "P@ssw0rd1", "rememberMe": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	c := sessionCookie(t, w)
	if c.MaxAge <= 0 {
		t.Error("expected persistent cookie with MaxAge set")
	}
}

func TestMe_RequiresSession(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})
	signin := f.post(t, "/api/signin", map[string]any{"email": "a@x.com", "password": "P@ssw0rd1"})
	cookie := sessionCookie(t, signin)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	anon := httptest.NewRecorder()
	f.handler.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", anon.Code)
	}
}

func TestLogout_TerminatesSession(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})
	signin := f.post(t, "/api/signin", map[string]any{"email": "a@x.com", "password": "P@ssw0rd1"})
	cookie := sessionCookie(t, signin)

	w := f.post(t, "/api/logout", map[string]any{}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	after := httptest.NewRecorder()
	f.handler.ServeHTTP(after, req)
	if after.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", after.Code)
	}

	// Logging out again is not an error.
	again := f.post(t, "/api/logout", map[string]any{}, cookie)
	if again.Code != http.StatusOK {
		t.Fatalf("expected idempotent logout, got %d", again.Code)
	}
}

func TestForgotPassword_GenericForUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})

	known := f.post(t, "/api/password/forgot", map[string]any{"email": "a@x.com"})
	ghost := f.post(t, "/api/password/forgot", map[string]any{"email": "ghost@x.com"})

	if known.Code != http.StatusOK || ghost.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", known.Code, ghost.Code)
	}
	if known.Body.String() != ghost.Body.String() {
		t.Errorf("responses must be indistinguishable: %q vs %q", known.Body.String(), ghost.Body.String())
	}
	if f.sender.sent != 1 {
		t.Errorf("expected exactly one email dispatched, got %d", f.sender.sent)
	}
}

var tokenPattern = regexp.MustCompile(`token=([^&"]+)`)

func capturedToken(t *testing.T, f *fixture) string {
	t.Helper()
	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	m := tokenPattern.FindStringSubmatch(f.sender.last)
	if m == nil {
		t.Fatalf("no reset token in captured email: %q", f.sender.last)
	}
	token, err := url.QueryUnescape(m[1])
	if err != nil {
		t.Fatalf("unescape token: %v", err)
	}
	return token
}

func TestPasswordResetJourney(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/register", map[string]any{
		"email":           "a@x.com",
		"password":        "P@ssw0rd1",
		"confirmPassword": "P@ssw0rd1",
	})

	f.post(t, "/api/password/forgot", map[string]any{"email": "a@x.com"})
	token := capturedToken(t, f)

	w := f.post(t, "/api/password/reset", map[string]any{
		"token":           token,
		"email":           "a@x.com",
		"newPassword":     "NewP@ss1",
		"confirmPassword": "NewP@ss1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Old password no longer works, new one does.
	old := f.post(t, "/api/signin", map[string]any{"email": "a@x.com", "password": "P@ssw0rd1"})
	if old.Code != http.StatusUnauthorized {
		t.Errorf("expected old password rejected, got %d", old.Code)
	}
	fresh := f.post(t, "/api/signin", map[string]any{"email": "a@x.com", "password": "NewP@ss1"})
	if fresh.Code != http.StatusOK {
		t.Errorf("expected new password accepted, got %d", fresh.Code)
	}

	// The token is spent: replaying it fails with the generic message.
	replay := f.post(t, "/api/password/reset", map[string]any{
		"token":           token,
		"email":           "a@x.com",
		"newPassword":     "OtherP@ss1",
		"confirmPassword": "OtherP@ss1",
	})
	if replay.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on token reuse, got %d", replay.Code)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/api/password/reset", map[string]any{
		"token":           "bogus",
		"email":           "a@x.com",
		"newPassword":     "NewP@ss1",
		"confirmPassword": "NewP@ss1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGoogleLogin_DisabledWithoutConfig(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when federation is disabled, got %d", w.Code)
	}
}
