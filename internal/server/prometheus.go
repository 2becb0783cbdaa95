// prometheus.go - Prometheus text exposition for the in-process counters.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// PrometheusExporter converts internal metrics to Prometheus format
type PrometheusExporter struct {
	build BuildInfo
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(build BuildInfo) *PrometheusExporter {
	return &PrometheusExporter{build: build}
}

// Handler returns an HTTP handler for the /metrics endpoint
func (p *PrometheusExporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := GetMetrics().Snapshot()

		var output strings.Builder

		output.WriteString("# HELP portal_info Application version info\n")
		output.WriteString("# TYPE portal_info gauge\n")
		output.WriteString(fmt.Sprintf("portal_info{version=%q,commit=%q} 1\n\n", p.build.Version, p.build.Commit))

		output.WriteString("# HELP portal_requests_total Total number of HTTP requests\n")
		output.WriteString("# TYPE portal_requests_total counter\n")
		output.WriteString(fmt.Sprintf("portal_requests_total %d\n\n", snapshot.RequestsTotal))

		output.WriteString("# HELP portal_request_errors_total HTTP error responses by class\n")
		output.WriteString("# TYPE portal_request_errors_total counter\n")
		output.WriteString(fmt.Sprintf("portal_request_errors_total{class=\"4xx\"} %d\n", snapshot.RequestErrors4xx))
		output.WriteString(fmt.Sprintf("portal_request_errors_total{class=\"5xx\"} %d\n\n", snapshot.RequestErrors5xx))

		output.WriteString("# HELP portal_uploads_total Total number of stored uploads\n")
		output.WriteString("# TYPE portal_uploads_total counter\n")
		output.WriteString(fmt.Sprintf("portal_uploads_total %d\n\n", snapshot.UploadsTotal))

		output.WriteString("# HELP portal_upload_bytes_total Total bytes accepted for upload\n")
		output.WriteString("# TYPE portal_upload_bytes_total counter\n")
		output.WriteString(fmt.Sprintf("portal_upload_bytes_total %d\n\n", snapshot.UploadBytesTotal))

		output.WriteString("# HELP portal_upload_errors_total Rejected or failed uploads\n")
		output.WriteString("# TYPE portal_upload_errors_total counter\n")
		output.WriteString(fmt.Sprintf("portal_upload_errors_total %d\n\n", snapshot.UploadErrorsTotal))

		output.WriteString("# HELP portal_logins_total Login attempts by result\n")
		output.WriteString("# TYPE portal_logins_total counter\n")
		output.WriteString(fmt.Sprintf("portal_logins_total{result=\"success\"} %d\n", snapshot.LoginSuccessTotal))
		output.WriteString(fmt.Sprintf("portal_logins_total{result=\"failure\"} %d\n", snapshot.LoginFailuresTotal))

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(output.String()))
	}
}
