// auth.go - Stateless session cookies and the login/logout handlers.
//
// Sessions are HMAC-signed cookie tokens ("payload.signature"); the payload
// carries the user ID and an expiry. Resolving a session rehydrates the
// user through the injected UserDirectory, so a token whose subject no
// longer exists is treated the same as no token at all.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// AuthConfig holds session settings and the user directory used to verify
// credentials and rehydrate identities. Unit tests construct this directly
// with an in-memory directory.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	Users         UserDirectory
}

type sessionPayload struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

func (a AuthConfig) cookieName() string {
	if a.CookieName == "" {
		return "portal_session"
	}
	return a.CookieName
}

func (a AuthConfig) ttl() time.Duration {
	if a.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return a.SessionTTL
}

func (a AuthConfig) secretBytes() []byte {
	return []byte(a.SessionSecret)
}

func signPayload(secret []byte, msg string) string {
	m := hmac.New(sha256.New, secret)
	_, _ = m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}

func encodeSession(p sessionPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeSession(token string) (sessionPayload, error) {
	var p sessionPayload
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, err
	}
	return p, nil
}

// makeToken returns "payload.signature" bound to the given user ID.
func (a AuthConfig) makeToken(sub string) (string, time.Time, error) {
	exp := time.Now().Add(a.ttl())
	p := sessionPayload{Sub: sub, Exp: exp.Unix()}
	payload, err := encodeSession(p)
	if err != nil {
		return "", time.Time{}, err
	}
	sig := signPayload(a.secretBytes(), payload)
	return payload + "." + sig, exp, nil
}

func (a AuthConfig) verifyToken(tok string) (sessionPayload, error) {
	var p sessionPayload
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return p, errors.New("invalid token format")
	}
	payload := parts[0]
	sig := parts[1]
	want := signPayload(a.secretBytes(), payload)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return p, errors.New("invalid signature")
	}
	decoded, err := decodeSession(payload)
	if err != nil {
		return p, err
	}
	if decoded.Exp <= time.Now().Unix() {
		return p, errors.New("expired")
	}
	return decoded, nil
}

func (a AuthConfig) setSessionCookie(w http.ResponseWriter, tok string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName(),
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	})
}

func (a AuthConfig) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	})
}

// resolveUser reconstructs the identity from the session cookie. Absence,
// expiry, a bad signature, or a vanished user all resolve to anonymous;
// none of them are errors.
func (a AuthConfig) resolveUser(r *http.Request) (User, bool) {
	c, err := r.Cookie(a.cookieName())
	if err != nil {
		return User{}, false
	}
	payload, err := a.verifyToken(c.Value)
	if err != nil {
		return User{}, false
	}
	if a.Users == nil {
		return User{}, false
	}
	return a.Users.ByID(r.Context(), payload.Sub)
}

type ctxKey string

const userKey ctxKey = "auth_user"

// CurrentUser returns the user attached to the request context by
// requireLogin, if any.
func CurrentUser(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

// requireLogin guards a handler: anonymous callers are redirected to the
// login page and the wrapped handler never runs. Authenticated callers get
// their user attached to the request context.
func (a AuthConfig) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := a.resolveUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loginHandler renders the login form on GET and verifies credentials on
// POST. Unknown usernames and wrong passwords produce the same generic
// message. On success it issues the session cookie and redirects to the
// upload form.
func (cfg Config) loginHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if _, ok := cfg.Auth.resolveUser(r); ok {
				http.Redirect(w, r, "/upload", http.StatusSeeOther)
				return
			}
			cfg.render(w, r, http.StatusOK, "login", pageData{Title: "Log In"})
		case http.MethodPost:
			if err := r.ParseForm(); err != nil {
				cfg.render(w, r, http.StatusBadRequest, "login", pageData{
					Title: "Log In",
					Error: "Could not read the submitted form.",
				})
				return
			}

			username := strings.TrimSpace(r.PostFormValue("username"))
			password := r.PostFormValue("password")
			if username == "" || password == "" {
				cfg.render(w, r, http.StatusBadRequest, "login", pageData{
					Title: "Log In",
					Error: "Username and password are required.",
				})
				return
			}

			u, ok := cfg.Auth.Users.Authenticate(r.Context(), username, password)
			if !ok {
				GetMetrics().RecordLoginFailure()
				cfg.render(w, r, http.StatusUnauthorized, "login", pageData{
					Title: "Log In",
					Error: "Invalid username or password.",
				})
				return
			}

			tok, exp, err := cfg.Auth.makeToken(u.ID)
			if err != nil {
				cfg.serverError(w, r, err)
				return
			}
			cfg.Auth.setSessionCookie(w, tok, exp)
			GetMetrics().RecordLoginSuccess()

			setFlash(w, "success", "Login successful. Welcome back, "+u.Username+".")
			http.Redirect(w, r, "/upload", http.StatusSeeOther)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// logoutHandler ends the session and redirects home. It sits behind
// requireLogin, matching the rest of the authenticated surface.
func (cfg Config) logoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cfg.Auth.clearSessionCookie(w)
		setFlash(w, "info", "You have been logged out.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}
