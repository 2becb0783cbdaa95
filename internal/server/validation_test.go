package server

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces", "my report.pdf", "my_report.pdf"},
		{"unix traversal", "../../etc/passwd", "passwd"},
		{"windows traversal", `..\..\boot.ini`, "boot.ini"},
		{"absolute path", "/etc/shadow", "shadow"},
		{"windows drive", `C:\Users\x\doc.docx`, "doc.docx"},
		{"unicode", "café photo.png", "caf_photo.png"},
		{"leading dot", ".hidden", "hidden"},
		{"dot dot", "..", ""},
		{"dots only", "...", ""},
		{"empty", "", ""},
		{"separators only", "////", ""},
		{"nul byte", "a\x00b.txt", "ab.txt"},
		{"mixed", "  ../up loads/..\\x.tar.gz ", "x.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.in); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateUploadName(t *testing.T) {
	if ok, _ := validateUploadName("report.pdf"); !ok {
		t.Errorf("expected report.pdf to be accepted")
	}
	if ok, _ := validateUploadName("photo.JPG"); !ok {
		t.Errorf("expected photo.JPG to be accepted")
	}
	for _, name := range []string{"virus.exe", "run.BAT", "lib.dll", "setup.msi", "script.sh"} {
		ok, reason := validateUploadName(name)
		if ok {
			t.Errorf("expected %s to be refused", name)
		}
		if reason == "" {
			t.Errorf("expected a user-facing reason for %s", name)
		}
	}
}
