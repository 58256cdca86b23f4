package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tonetuner/tonetuner/internal/api"
)

// KeyMatches compares candidate with the configured admin key in constant
// time. An unset key never matches.
func KeyMatches(configured, candidate string) bool {
	if configured == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) == 1
}

// AdminGuard admits requests carrying either ?key=<admin key> or a bearer
// token issued by tokens. Everything else gets 403.
func AdminGuard(adminKey string, tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if KeyMatches(adminKey, r.URL.Query().Get("key")) {
				next.ServeHTTP(w, r)
				return
			}

			if bearer, ok := bearerToken(r); ok && tokens != nil {
				if _, err := tokens.Validate(bearer); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("admin access denied", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			api.HandleError(w, api.ErrForbidden)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
