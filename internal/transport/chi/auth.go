package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Probes and scrapes stay reachable without a key.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// BearerAuthMiddleware rejects requests whose Authorization header does not carry one of apiKeys.
// With no non-empty key configured the API is open. CORS preflights are never challenged.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if msg := checkBearer(keys, r.Header.Get("Authorization")); msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ragchat"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns the rejection reason, or "" when the header carries a known key.
// The scheme name is case-insensitive.
func checkBearer(keys [][]byte, header string) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use Bearer scheme"
	}
	if !keyAllowed(keys, []byte(strings.TrimSpace(token))) {
		return "invalid api key"
	}
	return ""
}

// keyAllowed compares against every key so timing does not reveal which one matched.
func keyAllowed(keys [][]byte, token []byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(k, token)
	}
	return match == 1
}
