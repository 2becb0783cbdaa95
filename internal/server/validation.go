// validation.go - Filename sanitization and upload validation helpers.
package server

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// filenameUnsafe matches every run of characters that may not appear in a
// stored filename. Anything outside the allowlist collapses to a single
// underscore.
var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// sanitizeFilename reduces a client-supplied filename to a bare path
// component safe to join directly under the upload directory. Directory
// parts, path separators (both kinds), NUL bytes, and leading or trailing
// dots are stripped. Returns "" when nothing usable remains; the caller
// must substitute a default name.
func sanitizeFilename(raw string) string {
	raw = strings.ReplaceAll(raw, "\x00", "")
	raw = strings.ReplaceAll(raw, "\\", "/")
	raw = path.Base(raw)
	if raw == "." || raw == ".." || raw == "/" {
		return ""
	}
	raw = filenameUnsafe.ReplaceAllString(raw, "_")
	raw = strings.Trim(raw, "._ ")
	// ".." can survive Base for inputs like "..%2F"; never let a stored
	// name consist solely of dots or underscores.
	if strings.Trim(raw, "._") == "" {
		return ""
	}
	return raw
}

// dangerousExtensions lists extensions that are refused outright. The
// upload directory is served back over HTTP, so anything a browser or
// shell might execute stays out.
var dangerousExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".com": true,
	".pif": true,
	".scr": true,
	".vbs": true,
	".jar": true,
	".app": true,
	".msi": true,
	".dll": true,
	".sh":  true,
}

// validateUploadName reports whether a sanitized filename is acceptable to
// store, with a user-facing reason when it is not.
func validateUploadName(name string) (bool, string) {
	ext := strings.ToLower(filepath.Ext(name))
	if dangerousExtensions[ext] {
		return false, "Files of type " + ext + " are not accepted."
	}
	return true, ""
}
