package contenttype

import (
	"mime"
	"path"
	"strings"
)

const Fallback = "application/octet-stream"

// Resolve picks the content type for a stored artifact: the declared type
// when the client sent one, an extension guess from the key or URL
// otherwise, and the generic octet-stream when both fail. Re-detection by
// extension is the contract for re-linked files whose original declared type
// was not preserved.
func Resolve(declared, keyOrURL string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != Fallback {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" {
			return mt
		}
	}
	if guessed := ByExtension(keyOrURL); guessed != "" {
		return guessed
	}
	return Fallback
}

// ExtensionFor returns the canonical extension (with dot) for a content
// type, or "" when there is no obvious one. Used to build storage keys for
// uploads that arrive as raw bytes plus a declared type.
func ExtensionFor(contentType string) string {
	mt := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	case "application/pdf":
		return ".pdf"
	case "application/json":
		return ".json"
	case "text/csv":
		return ".csv"
	case "text/plain":
		return ".txt"
	default:
		if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
			return exts[0]
		}
		return ""
	}
}

// ByExtension guesses from the file extension alone, ignoring any query
// string. Returns "" when the extension is unknown.
func ByExtension(keyOrURL string) string {
	s := strings.ToLower(strings.TrimSpace(keyOrURL))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}

	switch ext := path.Ext(s); ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		if mt := mime.TypeByExtension(ext); mt != "" {
			if i := strings.Index(mt, ";"); i >= 0 {
				mt = mt[:i]
			}
			return strings.TrimSpace(mt)
		}
		return ""
	}
}
