// pages.go - Server-rendered pages: home, about, static text files, 404.
//
// Templates and static text resources are embedded so the binary is
// self-contained. Each page template defines "title" and "content" and is
// parsed together with the shared base layout.
package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*.txt
var staticFS embed.FS

var pageTemplates = mustParseTemplates()

func mustParseTemplates() map[string]*template.Template {
	pages := []string{"home", "about", "login", "upload", "files", "404", "500"}
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		out[page] = template.Must(template.ParseFS(templateFS,
			"templates/base.html",
			"templates/"+page+".html",
		))
	}
	return out
}

// pageData is the payload handed to every template. Error carries an
// inline form error; Files and StoredName are page-specific.
type pageData struct {
	Title      string
	User       string
	Flashes    []Flash
	Error      string
	Files      []string
	StoredName string
}

// render writes a page. The current user is resolved softly for display
// (public pages show a login link, authenticated pages a logout link) and
// pending flash messages are popped into the view.
func (cfg Config) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tpl, ok := pageTemplates[page]
	if !ok {
		cfg.serverError(w, r, fmt.Errorf("unknown page template %q", page))
		return
	}

	if data.User == "" {
		if u, ok := CurrentUser(r.Context()); ok {
			data.User = u.Username
		} else if u, ok := cfg.Auth.resolveUser(r); ok {
			data.User = u.Username
		}
	}
	data.Flashes = append(data.Flashes, popFlashes(w, r)...)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.ExecuteTemplate(w, "base", data); err != nil {
		Error("template execution failed", map[string]interface{}{"page": page}, err)
	}
}

// serverError logs an unexpected failure and renders the generic error
// page. Expected failures never reach this path.
func (cfg Config) serverError(w http.ResponseWriter, r *http.Request, err error) {
	Error("request failed", map[string]interface{}{
		"rid":    RequestIDFromContext(r.Context()),
		"method": r.Method,
		"path":   r.URL.Path,
	}, err)
	cfg.render(w, r, http.StatusInternalServerError, "500", pageData{Title: "Server Error"})
}

// notFound renders the custom 404 page.
func (cfg Config) notFound(w http.ResponseWriter, r *http.Request) {
	cfg.render(w, r, http.StatusNotFound, "404", pageData{Title: "Page Not Found"})
}

// staticTextName matches the /{name}.txt routes served from the embedded
// static directory.
var staticTextName = regexp.MustCompile(`^[A-Za-z0-9_-]+\.txt$`)

// rootHandler serves the home page at "/", static text resources at
// /{name}.txt, and the 404 page for everything else that fell through the
// mux.
func (cfg Config) rootHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		switch {
		case r.URL.Path == "/":
			cfg.render(w, r, http.StatusOK, "home", pageData{Title: "Home"})
		case staticTextName.MatchString(strings.TrimPrefix(r.URL.Path, "/")):
			cfg.serveStaticText(w, r, strings.TrimPrefix(r.URL.Path, "/"))
		default:
			cfg.notFound(w, r)
		}
	})
}

func (cfg Config) aboutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/about/" {
			cfg.notFound(w, r)
			return
		}
		cfg.render(w, r, http.StatusOK, "about", pageData{Title: "About"})
	})
}

// serveStaticText writes an embedded .txt resource, or the 404 page when
// no such resource is bundled.
func (cfg Config) serveStaticText(w http.ResponseWriter, r *http.Request, name string) {
	b, err := staticFS.ReadFile("static/" + name)
	if err != nil {
		cfg.notFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
