package api

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const (
	msgNoAuthHeader       = "No authorization header provided."
	msgInvalidCredentials = "Invalid credentials."
	basicRealm            = `Basic realm="members"`
)

// Credentials is the single username/password pair the API accepts.
// When PasswordHash is set it must be a bcrypt hash and Password is ignored.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (c Credentials) match(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// BasicAuth rejects requests that do not carry creds in an HTTP Basic
// Authorization header.
func BasicAuth(creds Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				unauthorized(w, msgNoAuthHeader)
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok || !creds.match(username, password) {
				unauthorized(w, msgInvalidCredentials)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", basicRealm)
	RespondWithError(w, http.StatusUnauthorized, message)
}
