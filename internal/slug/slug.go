// internal/slug/slug.go
//
// URL-safe slugs for categories, recipes, and blog posts.
//
// Rules (Make)
// ------------
// 1. Lower-case everything.
// 2. Convert any run of characters outside [a-z0-9] to one "-".  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Trim leading and trailing "-".
// 4. If the result is empty, return Fallback.
// 5. Cap at MaxLen bytes without leaving a trailing "-".
//
// Notes
// -----
// • No Unicode transliteration; "Crème Brûlée" becomes "cr-me-br-l-e".
// • Uniqueness is enforced by the tables, not here.
package slug

import "strings"

const (
	MaxLen   = 100
	Fallback = "item"
)

// Make converts text to lower-kebab ASCII.
func Make(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastWasDash := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return Fallback
	}
	if len(s) > MaxLen {
		s = strings.TrimRight(s[:MaxLen], "-")
	}
	return s
}

// Valid reports whether s is already a slug Make would leave unchanged.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}

// OrDerive returns explicit when it is non-blank (normalised through
// Make), otherwise a slug derived from source.
func OrDerive(explicit, source string) string {
	if strings.TrimSpace(explicit) != "" {
		return Make(explicit)
	}
	return Make(source)
}
