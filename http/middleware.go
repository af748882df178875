package http

import (
	"crypto/subtle"
	"net/http"
)

// Credentials is the single configured basic-auth credential pair
// protecting the write and admin surfaces.
type Credentials struct {
	Username string
	Password string
}

// Authenticate reports whether the request carries valid basic-auth
// credentials. Comparison is constant-time.
func (c Credentials) Authenticate(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password)) == 1
	return userOK && passOK
}

// RequireUnauthorized writes the 401 challenge for a protected path.
func RequireUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Admin"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// BasicAuthMiddleware enforces basic-auth on every request it wraps.
func BasicAuthMiddleware(creds Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !creds.Authenticate(r) {
				RequireUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
