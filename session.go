package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
)

const sessionCookieName = "sentence_session"

// sessionRegistry maps opaque cookie tokens to resolved identities. It is
// in-memory only; a restart just asks everyone to log in again.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]Identity
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]Identity),
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// create stores an identity under a fresh token and sets the session
// cookie on the response.
func (sr *sessionRegistry) create(w http.ResponseWriter, id Identity) error {
	token, err := newSessionToken()
	if err != nil {
		return err
	}

	sr.mu.Lock()
	sr.sessions[token] = id
	sr.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// identity resolves the request's session cookie, if any.
func (sr *sessionRegistry) identity(r *http.Request) (Identity, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return Identity{}, false
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	id, ok := sr.sessions[c.Value]
	return id, ok
}

// drop forgets the request's session and clears the cookie.
func (sr *sessionRegistry) drop(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		sr.mu.Lock()
		delete(sr.sessions, c.Value)
		sr.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
