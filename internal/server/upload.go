// upload.go - Disk-backed upload store and the upload form handlers.
//
// Uploads land as flat files in one configured directory. Writes go to a
// temp file first and are renamed into place, so a failed upload never
// leaves a partial file under a stored name. Name collisions resolve
// deterministically: report.pdf, report-1.pdf, report-2.pdf, first free
// slot wins.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	uploadFormField = "file"

	// defaultStoredName is used when sanitization strips the client
	// filename down to nothing.
	defaultStoredName = "upload"

	// tmpPrefix marks in-flight writes; the listing skips these.
	tmpPrefix = ".tmp-"

	// maxCollisionAttempts bounds the rename-with-counter scan.
	maxCollisionAttempts = 10000

	// maxMultipartMemory is the in-memory threshold for multipart parsing;
	// larger bodies spill to disk.
	maxMultipartMemory = 32 << 20
)

// ErrEmptyUpload is returned when the submitted file has no content.
var ErrEmptyUpload = errors.New("uploaded file is empty")

// DiskStore persists uploads as flat files inside Dir. MaxBytes, when
// positive, caps the accepted request body size.
type DiskStore struct {
	Dir      string
	MaxBytes int64
}

// Save streams src into the store under the given sanitized name and
// returns the final stored name after collision resolution. Empty content
// fails with ErrEmptyUpload and leaves nothing behind.
func (s DiskStore) Save(name string, src io.Reader) (string, error) {
	tmpPath := filepath.Join(s.Dir, tmpPrefix+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(tmp, src)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written == 0 {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", ErrEmptyUpload
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close upload: %w", err)
	}

	stored, err := s.nextFreeName(name)
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.Dir, stored)); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("store upload: %w", err)
	}

	return stored, nil
}

// nextFreeName returns name unchanged when unused, otherwise the first
// free counter-suffixed variant (name-1.ext, name-2.ext, ...).
func (s DiskStore) nextFreeName(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; i <= maxCollisionAttempts; i++ {
		_, err := os.Lstat(filepath.Join(s.Dir, candidate))
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", name, maxCollisionAttempts)
}

// uploadHandler renders the upload form on GET and stores the submitted
// file on POST. Reachable only through requireLogin; it performs no
// authorization of its own.
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.render(w, r, http.StatusOK, "upload", pageData{Title: "Upload"})
		case http.MethodPost:
			cfg.processUpload(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (cfg Config) processUpload(w http.ResponseWriter, r *http.Request) {
	if cfg.Store.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.Store.MaxBytes)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		GetMetrics().RecordUploadError()
		cfg.render(w, r, http.StatusBadRequest, "upload", pageData{
			Title: "Upload",
			Error: "Could not read the upload. Check the file size and try again.",
		})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadFormField]
	if len(headers) != 1 {
		GetMetrics().RecordUploadError()
		cfg.render(w, r, http.StatusBadRequest, "upload", pageData{
			Title: "Upload",
			Error: "Choose exactly one file to upload.",
		})
		return
	}
	header := headers[0]

	name := sanitizeFilename(header.Filename)
	if name == "" {
		name = defaultStoredName
	}
	if ok, reason := validateUploadName(name); !ok {
		GetMetrics().RecordUploadError()
		cfg.render(w, r, http.StatusBadRequest, "upload", pageData{
			Title: "Upload",
			Error: reason,
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		GetMetrics().RecordUploadError()
		cfg.serverError(w, r, fmt.Errorf("open multipart file: %w", err))
		return
	}
	defer func() { _ = f.Close() }()

	stored, err := cfg.Store.Save(name, f)
	if err != nil {
		GetMetrics().RecordUploadError()
		if errors.Is(err, ErrEmptyUpload) {
			cfg.render(w, r, http.StatusBadRequest, "upload", pageData{
				Title: "Upload",
				Error: "The selected file is empty.",
			})
			return
		}
		cfg.serverError(w, r, err)
		return
	}
	GetMetrics().RecordUpload(header.Size)

	// Best-effort mirror to the S3 archive; a failure is logged but never
	// fails the upload the user already completed.
	if cfg.Archive != nil {
		contentType := header.Header.Get("Content-Type")
		if err := cfg.Archive.Store(r.Context(), stored, filepath.Join(cfg.Store.Dir, stored), contentType); err != nil {
			Warn("archive mirror failed", map[string]interface{}{"name": stored, "error": err.Error()})
		}
	}

	setFlash(w, "success", "File uploaded successfully as "+stored+".")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
