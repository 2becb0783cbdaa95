package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth is the health of a single component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
}

// healthHandler reports component health: database connectivity, upload
// directory writability, and the optional archive. The archive is a
// best-effort mirror, so its failure degrades rather than fails the check.
func (cfg Config) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		health := Health{
			Timestamp:  time.Now().UTC(),
			Version:    cfg.Build.Version,
			Components: make(map[string]ComponentHealth),
		}

		health.Components["database"] = cfg.checkDatabaseHealth(r.Context())
		health.Components["uploads"] = cfg.checkUploadDirHealth()
		if cfg.Archive != nil {
			health.Components["archive"] = cfg.checkArchiveHealth(r.Context())
		}

		health.Status = HealthStatusHealthy
		for name, c := range health.Components {
			if c.Status == ComponentStatusDown {
				if name == "archive" {
					health.Status = HealthStatusDegraded
					continue
				}
				health.Status = HealthStatusUnhealthy
				break
			}
		}

		statusCode := http.StatusOK
		if health.Status == HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(health)
	})
}

func (cfg Config) checkDatabaseHealth(ctx context.Context) ComponentHealth {
	if cfg.DB == nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "no database configured"}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := cfg.DB.PingContext(ctx); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "database ping failed: " + err.Error()}
	}

	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   "database healthy",
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}
}

// checkUploadDirHealth probes the upload directory with a create+remove,
// since a stat alone won't catch a read-only mount.
func (cfg Config) checkUploadDirHealth() ComponentHealth {
	probe := filepath.Join(cfg.Store.Dir, tmpPrefix+"healthz-"+uuid.NewString())
	f, err := os.OpenFile(probe, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "upload dir not writable: " + err.Error()}
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return ComponentHealth{Status: ComponentStatusUp, Message: "upload dir writable"}
}

func (cfg Config) checkArchiveHealth(ctx context.Context) ComponentHealth {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := cfg.Archive.Ping(ctx); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "archive unreachable: " + err.Error()}
	}

	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   "archive reachable",
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}
}
