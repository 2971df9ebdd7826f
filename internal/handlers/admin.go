package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
)

const sessionCookie = "admin_session"

// AdminSession gates write-shaped operations behind a password-backed
// cookie. The persistence layer performs no authorization of its own;
// it trusts this check.
type AdminSession struct {
	password string
}

// NewAdminSession creates the session check. An empty password
// disables admin access entirely.
func NewAdminSession(password string) *AdminSession {
	return &AdminSession{password: password}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/admin/login and sets the session cookie on a
// correct password.
func (a *AdminSession) Login(w http.ResponseWriter, r *http.Request) {
	if a.password == "" {
		http.Error(w, "admin access is not configured", http.StatusForbidden)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.password)) != 1 {
		http.Error(w, "invalid password", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    a.sessionToken(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the session cookie.
func (a *AdminSession) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// IsAdmin reports whether the request carries a valid session cookie.
func (a *AdminSession) IsAdmin(r *http.Request) bool {
	if a.password == "" {
		return false
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(a.sessionToken())) == 1
}

// Require wraps a handler so only admin sessions reach it.
func (a *AdminSession) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.IsAdmin(r) {
			http.Error(w, "admin session required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// The cookie stores a digest of the password rather than the password
// itself.
func (a *AdminSession) sessionToken() string {
	sum := sha256.Sum256([]byte(a.password))
	return hex.EncodeToString(sum[:])
}
