package util

import (
	"net/http"
	"strings"
)

const (
	apiCSP   = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	assetCSP = "default-src 'self' https:; script-src 'self' 'unsafe-inline' https:; style-src 'self' 'unsafe-inline' https:; img-src 'self' data: https:; frame-ancestors 'none'; base-uri 'self'"
)

// WithSecurityHeaders adds security headers suited to JSON endpoints.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return withSecurityHeaders(apiCSP, next)
}

// WithAssetSecurityHeaders adds security headers suited to the proxied page
// and its scripts, which load from the page origin and its CDNs.
func WithAssetSecurityHeaders(next http.Handler) http.Handler {
	return withSecurityHeaders(assetCSP, next)
}

func withSecurityHeaders(csp string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		h.Set("Content-Security-Policy", csp)

		// HSTS only when the request came over HTTPS, directly or forwarded.
		if r.TLS != nil || strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
