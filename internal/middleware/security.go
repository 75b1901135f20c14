// internal/middleware/security.go
//
// Security-header middleware for the JSON API.
//
// Sets on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy   –  nothing may be loaded from an API reply
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; once a handler writes the
//   status line, later header changes are lost.  Handlers that need a
//   different value (the theme CSS endpoint, for one) simply Set their own.
// • HSTS is only sent when hsts is true, so plain-HTTP development hosts
//   are not pinned.

package middleware

import "net/http"

// Security returns a wrapper that sets security headers.
func Security(hsts bool) func(http.Handler) http.Handler {
	const (
		sts   = "max-age=63072000; includeSubDomains"
		csp   = "default-src 'none'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if hsts {
				h.Set("Strict-Transport-Security", sts)
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Frame-Options", xfo)
			h.Set("X-Content-Type-Options", nosn)
			h.Set("Referrer-Policy", refer)
			next.ServeHTTP(w, r)
		})
	}
}
