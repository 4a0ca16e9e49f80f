package agent

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// bearerAuth wraps next with an opaque bearer-credential check. The
// secret is compared in constant time. An empty secret disables the
// check entirely. Health stays open so load balancers can probe it.
func bearerAuth(token string, logger *slog.Logger, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			logger.Warn("rejected request with bad credential", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
