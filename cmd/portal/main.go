package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"upload-portal/internal/db"
	"upload-portal/internal/server"
)

func main() {
	if err := server.ValidateAllConfiguration(); err != nil {
		log.Printf("service=portal msg=%q err=%v", "invalid_configuration", err)
		os.Exit(1)
	}

	addr := getenvDefault("UPL_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("UPL_VERSION", "dev"),
		Commit:  getenvDefault("UPL_COMMIT", "unknown"),
	}

	sessionTTL := 12 * time.Hour
	if raw := os.Getenv("UPL_SESSION_TTL_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			log.Printf("service=portal msg=%q value=%q", "bad_session_ttl", raw)
			os.Exit(1)
		}
		sessionTTL = time.Duration(hours) * time.Hour
	}

	// Database
	dsn := getenvDefault("DATABASE_URL", "")
	dbConn, err := server.OpenDB(dsn)
	if err != nil {
		log.Printf("service=portal msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	// Run migrations
	log.Printf("service=portal msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=portal msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=portal msg=%q", "migrations_complete")

	// Upload directory
	uploadDir := getenvDefault("UPL_UPLOAD_DIR", "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Printf("service=portal msg=%q dir=%s err=%v", "upload_dir_failed", uploadDir, err)
		os.Exit(1)
	}

	var maxUploadBytes int64
	if raw := os.Getenv("UPL_MAX_UPLOAD_BYTES"); raw != "" {
		maxUploadBytes, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("service=portal msg=%q value=%q", "bad_max_upload_bytes", raw)
			os.Exit(1)
		}
	}

	// Optional S3 archive of stored uploads
	archive, err := server.NewArchiveFromEnv()
	if err != nil {
		log.Printf("service=portal msg=%q err=%v", "archive_config_failed", err)
		os.Exit(1)
	}
	if archive != nil {
		log.Printf("service=portal msg=%q", "archive_enabled")
	}

	srv := server.New(server.Config{
		Addr:  addr,
		Build: build,
		Auth: server.AuthConfig{
			SessionSecret: os.Getenv("UPL_SESSION_SECRET"),
			SessionTTL:    sessionTTL,
			CookieName:    getenvDefault("UPL_COOKIE_NAME", "portal_session"),
			Users:         server.NewUserDirectory(dbConn),
		},
		Store:   server.DiskStore{Dir: uploadDir, MaxBytes: maxUploadBytes},
		Archive: archive,
		DB:      dbConn,
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=portal msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Block until either a shutdown signal arrives or the server fails.
	select {
	case sig := <-sigCh:
		log.Printf("service=portal msg=%q signal=%s", "shutting_down", sig.String())
		// Give in-flight requests 5 seconds to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=portal msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=portal msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=portal msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// getenvDefault reads an environment variable and returns a default value
// if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
