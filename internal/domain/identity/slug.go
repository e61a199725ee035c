package identity

import "strings"

const maxSlugLen = 100

// Slugify turns a display name into a URL-safe tenant handle: lowercased,
// runs of non-alphanumerics collapsed to single hyphens, trimmed. Uniqueness
// (the -1/-2 suffix walk) is handled by the caller against the database.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "tenant"
	}
	return slug
}
