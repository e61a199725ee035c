package contenttype

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		key      string
		want     string
	}{
		{"declared wins", "application/pdf", "cert.bin", "application/pdf"},
		{"declared with params", "image/png; charset=binary", "x", "image/png"},
		{"extension fallback", "", "uploads/cert.pdf", "application/pdf"},
		{"url with query", "", "https://cdn.example/scan.JPG?sig=abc", "image/jpeg"},
		{"generic declared defers to extension", "application/octet-stream", "report.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"unknown everything", "", "mystery.zzz9", "application/octet-stream"},
		{"empty input", "", "", "application/octet-stream"},
		{"malformed declared", "not a type", "doc.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.declared, tc.key); got != tc.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.declared, tc.key, got, tc.want)
			}
		})
	}
}

func TestByExtensionUnknown(t *testing.T) {
	if got := ByExtension("no-extension"); got != "" {
		t.Fatalf("ByExtension(no-extension) = %q, want empty", got)
	}
	if got := ByExtension("frag.pdf#page=2"); got != "application/pdf" {
		t.Fatalf("ByExtension with fragment = %q", got)
	}
}
