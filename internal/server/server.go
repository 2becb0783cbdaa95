package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"
)

// BuildInfo identifies the running binary in logs and metrics.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries everything the HTTP surface depends on. Handlers hang off
// Config so tests can assemble just the pieces they need.
type Config struct {
	Addr    string // e.g. ":8080"
	Build   BuildInfo
	Auth    AuthConfig
	Store   DiskStore
	Archive *Archive // optional S3 mirror of stored uploads
	DB      *sql.DB
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// New wires the routes and middleware. The route table mirrors the page
// surface: public home/about/login/static text, and a guarded
// upload/files/uploads/logout group.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	mux.Handle("/", cfg.rootHandler())
	mux.Handle("/about/", cfg.aboutHandler())
	mux.Handle("/login", cfg.loginHandler())
	mux.Handle("/logout", cfg.Auth.requireLogin(cfg.logoutHandler()))
	mux.Handle("/upload", cfg.Auth.requireLogin(cfg.uploadHandler()))
	mux.Handle("/files", cfg.Auth.requireLogin(cfg.filesHandler()))
	mux.Handle("/uploads/", cfg.Auth.requireLogin(cfg.serveUploadHandler()))
	mux.Handle("/healthz", cfg.healthHandler())
	mux.Handle("/metrics", NewPrometheusExporter(cfg.Build).Handler())

	// Wrap middleware: requestID -> logging -> headers -> mux
	var handler http.Handler = mux
	handler = cacheHeadersMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s, handler: handler}
}

// Handler exposes the fully wired handler chain for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
