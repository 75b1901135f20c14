package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestForceHTTPSRedirects(t *testing.T) {
	h := ForceHTTPS(true, ok)
	req := httptest.NewRequest(http.MethodGet, "http://chef.example.com/api/events?x=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusPermanentRedirect {
		t.Fatalf("code = %d, want 308", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://chef.example.com/api/events?x=1" {
		t.Fatalf("Location = %q", got)
	}
}

func TestForceHTTPSPassesThrough(t *testing.T) {
	cases := map[string]func(*http.Request){
		"localhost": func(r *http.Request) { r.Host = "localhost:8080" },
		"proxy":     func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") },
	}
	for name, mut := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://chef.example.com/", nil)
		mut(req)
		rec := httptest.NewRecorder()
		ForceHTTPS(true, ok).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: code = %d, want 200", name, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	ForceHTTPS(false, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://chef.example.com/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("disabled: code = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rec.Header().Get(h) == "" {
			t.Fatalf("missing %s", h)
		}
	}

	rec = httptest.NewRecorder()
	Security(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS sent with hsts disabled")
	}
}

func TestStripPort(t *testing.T) {
	for in, want := range map[string]string{
		"example.com:80": "example.com",
		"example.com":    "example.com",
		"[::1]:8080":     "[::1]",
	} {
		if got := stripPort(in); got != want {
			t.Fatalf("stripPort(%q) = %q, want %q", in, got, want)
		}
	}
}
