package httpapi

import (
	"net/http"
	"os"
	"strings"
)

// CORSMiddleware adds the headers the mobile and web clients need. Allowed
// origins come from ALLOWED_ORIGINS as a comma separated list; the default
// covers local web and Expo development servers.
func CORSMiddleware(next http.Handler) http.Handler {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		raw = "http://localhost:3000,http://localhost:19006"
	}
	allowed := make([]string, 0, 4)
	for _, o := range strings.Split(raw, ",") {
		allowed = append(allowed, strings.TrimSpace(o))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			for _, candidate := range allowed {
				if candidate == origin || candidate == "*" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
