package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireAuth guards every /api route with the shared bearer token.
//
// The token is the last whitespace-separated field of the Authorization
// header, so "Bearer abc", "Token abc" and a bare "abc" all work. WebSocket
// clients that cannot set headers may pass ?token= instead.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if s.authToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.logger.Warn().
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("rejected unauthenticated request")
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		fields := strings.Fields(header)
		return fields[len(fields)-1]
	}
	return r.URL.Query().Get("token")
}
