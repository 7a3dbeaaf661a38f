package middleware

import "net/http"

// SecurityHeadersConfig holds environment-dependent header settings.
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders adds standard browser security headers to every response.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	production := config.Env == "production"

	csp := "default-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"
	if !production {
		csp = "default-src 'self' http: https: ws:; frame-ancestors 'self'; base-uri 'self'; form-action 'self'"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

			if production && r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
