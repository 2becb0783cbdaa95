package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// memDirectory is an in-memory UserDirectory for handler tests.
type memDirectory struct {
	byUsername map[string]memUser
}

type memUser struct {
	id           string
	username     string
	passwordHash string
}

func (d memDirectory) Authenticate(_ context.Context, username, password string) (User, bool) {
	u, ok := d.byUsername[username]
	if !ok {
		_ = verifyPassword(password, dummyPasswordHash)
		return User{}, false
	}
	if !verifyPassword(password, u.passwordHash) {
		return User{}, false
	}
	return User{ID: u.id, Username: u.username}, true
}

func (d memDirectory) ByID(_ context.Context, id string) (User, bool) {
	for _, u := range d.byUsername {
		if u.id == id {
			return User{ID: u.id, Username: u.username}, true
		}
	}
	return User{}, false
}

// newTestConfig returns a Config with a temp upload dir and one seeded
// user, alice/hunter2.
func newTestConfig(t *testing.T) Config {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	return Config{
		Build: BuildInfo{Version: "test"},
		Auth: AuthConfig{
			SessionSecret: "0123456789abcdef0123456789abcdef",
			SessionTTL:    time.Hour,
			Users: memDirectory{byUsername: map[string]memUser{
				"alice": {id: "u-alice", username: "alice", passwordHash: string(hash)},
			}},
		},
		Store: DiskStore{Dir: t.TempDir()},
	}
}

// sessionCookie issues a valid session cookie for the given user ID.
func sessionCookie(t *testing.T, a AuthConfig, sub string) *http.Cookie {
	t.Helper()
	tok, _, err := a.makeToken(sub)
	if err != nil {
		t.Fatalf("makeToken: %v", err)
	}
	return &http.Cookie{Name: a.cookieName(), Value: tok}
}

func TestMakeAndVerifyToken(t *testing.T) {
	cfg := AuthConfig{SessionSecret: "test-secret", SessionTTL: 1 * time.Hour}
	tok, exp, err := cfg.makeToken("u-alice")
	if err != nil {
		t.Fatalf("makeToken error: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expected exp in the future")
	}

	p, err := cfg.verifyToken(tok)
	if err != nil {
		t.Fatalf("verifyToken error: %v", err)
	}
	if p.Sub != "u-alice" {
		t.Fatalf("unexpected sub: %s", p.Sub)
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	// craft an expired token manually
	secret := []byte("s")
	exp := time.Now().Add(-1 * time.Hour).Unix()
	sp := sessionPayload{Sub: "u-alice", Exp: exp}
	b, _ := json.Marshal(sp)
	payload := base64.RawURLEncoding.EncodeToString(b)
	sig := signPayload(secret, payload)
	tok := payload + "." + sig

	cfg := AuthConfig{SessionSecret: string(secret)}
	if _, err := cfg.verifyToken(tok); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifyTokenTamperedSignature(t *testing.T) {
	cfg := AuthConfig{SessionSecret: "test-secret", SessionTTL: 1 * time.Hour}
	tok, _, err := cfg.makeToken("u-alice")
	if err != nil {
		t.Fatalf("makeToken error: %v", err)
	}

	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + strings.Repeat("0", len(parts[1]))
	if _, err := cfg.verifyToken(tampered); err == nil {
		t.Fatalf("expected error for tampered signature")
	}
}

func TestResolveUserRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, cfg.Auth, "u-alice"))

	u, ok := cfg.Auth.resolveUser(req)
	if !ok {
		t.Fatalf("expected session to resolve")
	}
	if u.Username != "alice" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestResolveUserUnknownSubject(t *testing.T) {
	cfg := newTestConfig(t)

	// Valid signature, but the subject no longer exists in the directory.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, cfg.Auth, "u-gone"))

	if _, ok := cfg.Auth.resolveUser(req); ok {
		t.Fatalf("expected anonymous for unknown subject")
	}
}

func TestResolveUserNoCookie(t *testing.T) {
	cfg := newTestConfig(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := cfg.Auth.resolveUser(req); ok {
		t.Fatalf("expected anonymous without a cookie")
	}
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	cfg := newTestConfig(t)

	invoked := false
	h := cfg.Auth.requireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
	if invoked {
		t.Fatalf("wrapped handler must not run for anonymous callers")
	}
}

func TestRequireLoginAttachesUser(t *testing.T) {
	cfg := newTestConfig(t)

	var got User
	h := cfg.Auth.requireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.AddCookie(sessionCookie(t, cfg.Auth, "u-alice"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got.Username != "alice" {
		t.Fatalf("expected alice in context, got %+v", got)
	}
}

func TestLoginHandlerSuccess(t *testing.T) {
	cfg := newTestConfig(t)

	form := url.Values{"username": {"alice"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	cfg.loginHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/upload" {
		t.Fatalf("expected redirect to /upload, got %q", loc)
	}

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == cfg.Auth.cookieName() {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("expected a session cookie to be set")
	}
	if p, err := cfg.Auth.verifyToken(session.Value); err != nil || p.Sub != "u-alice" {
		t.Fatalf("session cookie does not verify: %v", err)
	}
}

func TestLoginHandlerRejectsBadCredentials(t *testing.T) {
	cfg := newTestConfig(t)

	// Wrong password and unknown username must be indistinguishable.
	for _, form := range []url.Values{
		{"username": {"alice"}, "password": {"wrong"}},
		{"username": {"bob"}, "password": {"x"}},
	} {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		cfg.loginHandler().ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v, got %d", form, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Invalid username or password.") {
			t.Fatalf("expected the generic rejection message")
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == cfg.Auth.cookieName() {
				t.Fatalf("no session cookie may be set on rejection")
			}
		}
	}
}

func TestLoginHandlerMissingFields(t *testing.T) {
	cfg := newTestConfig(t)

	form := url.Values{"username": {"alice"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	cfg.loginHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	cfg := newTestConfig(t)

	h := cfg.Auth.requireLogin(cfg.logoutHandler())
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(sessionCookie(t, cfg.Auth, "u-alice"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect home, got %q", loc)
	}

	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == cfg.Auth.cookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected the session cookie to be cleared")
	}

	// The cleared cookie value no longer resolves.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: cfg.Auth.cookieName(), Value: ""})
	if _, ok := cfg.Auth.resolveUser(req2); ok {
		t.Fatalf("expected anonymous after logout")
	}
}
