package middleware

import (
	"net/http"
	"slices"
)

// CORSMiddleware creates a CORS middleware with the specified allowed origins.
// Only the JSON API is called cross-origin; pages are same-origin.
// Listed origins may send the session cookie. "*" opens the API to any origin without credentials.
// An empty list answers no cross-origin request.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed, credentials := getAllowedOrigin(origin, allowedOrigins); allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				if credentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getAllowedOrigin returns the Access-Control-Allow-Origin value, or "" if the origin is not allowed,
// and whether credentials may be sent.
func getAllowedOrigin(origin string, allowedOrigins []string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if slices.Contains(allowedOrigins, origin) {
		return origin, true
	}
	if slices.Contains(allowedOrigins, "*") {
		return "*", false
	}
	return "", false
}
