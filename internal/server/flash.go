// flash.go - One-shot flash messages carried in a short-lived cookie.
//
// A flash is set right before a redirect and popped by the next rendered
// page. The cookie holds base64-encoded JSON; it is display-only, so it is
// not signed.
package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "portal_flash"

// Flash is a one-shot user-facing message with a display category
// (success, info, danger).
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// setFlash queues a message for the next rendered page.
func setFlash(w http.ResponseWriter, category, message string) {
	b, err := json.Marshal([]Flash{{Category: category, Message: message}})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns any queued messages and clears the cookie. A missing
// or malformed cookie yields no flashes.
func popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(b, &flashes); err != nil {
		return nil
	}
	return flashes
}
