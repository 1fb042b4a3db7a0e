package auth

import (
	"encoding/json"
	"net/http"

	"github.com/rubiojr/filefinder/pkg/log"
)

// Middleware authenticates requests with chain. Rejected credentials get
// a 401. Anonymous requests pass through without a user; paths in bypass
// skip authentication.
func Middleware(chain Chain, bypass ...string) func(http.Handler) http.Handler {
	logger := log.ForService("auth")
	skip := make(map[string]bool, len(bypass))
	for _, p := range bypass {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			res := chain.Authenticate(r.Context(), r)
			switch res.Decision {
			case No:
				logger.Warnf("authentication failed for %s from %s: %v", r.URL.Path, r.RemoteAddr, res.Err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": "authentication required",
				})
				return
			case Yes:
				logger.Debugf("authenticated %s for %s", res.User, r.URL.Path)
				r = r.WithContext(WithUser(r.Context(), res.User))
			}
			next.ServeHTTP(w, r)
		})
	}
}
