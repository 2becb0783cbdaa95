package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHomePage(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	cfg.rootHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Upload Portal") {
		t.Fatalf("expected the home page body")
	}
	// Anonymous visitors see the login link, not the upload link.
	if !strings.Contains(body, `href="/login"`) {
		t.Fatalf("expected a login link for anonymous visitors")
	}
	if strings.Contains(body, `href="/logout"`) {
		t.Fatalf("did not expect a logout link for anonymous visitors")
	}
}

func TestHomePageShowsCurrentUser(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, cfg.Auth, "u-alice"))
	rr := httptest.NewRecorder()
	cfg.rootHandler().ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "alice") {
		t.Fatalf("expected the logged-in username in the nav")
	}
}

func TestAboutPage(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/about/", nil)
	rr := httptest.NewRecorder()
	cfg.aboutHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "About") {
		t.Fatalf("expected the about page body")
	}
}

func TestUnknownRouteRenders404(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/no/such/page", nil)
	rr := httptest.NewRecorder()
	cfg.rootHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Page Not Found") {
		t.Fatalf("expected the custom 404 page")
	}
}

func TestStaticTextFile(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	rr := httptest.NewRecorder()
	cfg.rootHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "User-agent") {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestStaticTextFileMissing(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/no-such-resource.txt", nil)
	rr := httptest.NewRecorder()
	cfg.rootHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestFlashRoundTrip(t *testing.T) {
	rr := httptest.NewRecorder()
	setFlash(rr, "success", "it worked")

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != flashCookieName {
		t.Fatalf("expected one flash cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr2 := httptest.NewRecorder()
	flashes := popFlashes(rr2, req)

	if len(flashes) != 1 || flashes[0].Message != "it worked" || flashes[0].Category != "success" {
		t.Fatalf("unexpected flashes: %+v", flashes)
	}

	// Popping clears the cookie.
	var cleared bool
	for _, c := range rr2.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected the flash cookie to be cleared")
	}
}

func TestPopFlashesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%not-base64%%%"})
	rr := httptest.NewRecorder()

	if flashes := popFlashes(rr, req); flashes != nil {
		t.Fatalf("expected no flashes from a malformed cookie, got %+v", flashes)
	}
}

func TestRenderShowsFlash(t *testing.T) {
	cfg := newTestConfig(t)

	setRR := httptest.NewRecorder()
	setFlash(setRR, "info", "see you soon")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(setRR.Result().Cookies()[0])
	rr := httptest.NewRecorder()
	cfg.rootHandler().ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "see you soon") {
		t.Fatalf("expected the flash message on the rendered page")
	}
}
