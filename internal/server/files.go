// files.go - Upload listing and serving stored files.
package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List enumerates the regular files currently in the upload directory,
// sorted lexicographically. Subdirectories, dotfiles, and in-flight temp
// files are skipped.
func (s DiskStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// filesHandler renders the listing of uploaded files. Guarded by
// requireLogin.
func (cfg Config) filesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		names, err := cfg.Store.List()
		if err != nil {
			cfg.serverError(w, r, err)
			return
		}
		cfg.render(w, r, http.StatusOK, "files", pageData{Title: "Files", Files: names})
	})
}

// serveUploadHandler serves the bytes of one stored file at
// /uploads/{filename}. Guarded by requireLogin like the listing. Only
// names that survive sanitization unchanged are looked up, so traversal
// sequences can never reach outside the upload directory.
func (cfg Config) serveUploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/uploads/")
		if name == "" || name != sanitizeFilename(name) {
			cfg.notFound(w, r)
			return
		}

		path := filepath.Join(cfg.Store.Dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			cfg.notFound(w, r)
			return
		}

		http.ServeFile(w, r, path)
	})
}
