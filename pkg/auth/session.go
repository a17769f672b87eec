package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the browser session cookie.
const SessionName = "taskflow-session"

// sessionKeyToken is the session value holding the access token.
const sessionKeyToken = "token"

// SessionStore keeps the access token in a signed cookie for browser clients.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates the cookie-backed session store.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive the
// 32-byte signing key, so it must be stable across restarts and instances.
//
// Security settings:
// - HttpOnly: true (inaccessible to JavaScript)
// - Secure: from CookieSettings (HTTPS only outside localhost)
// - SameSite: Strict (prevents CSRF)
func NewSessionStore(secret string, settings CookieSettings, maxAge time.Duration) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &SessionStore{store: store}
}

// Token returns the access token stored in the request's session, or "".
// A cookie with a bad signature is treated as absent.
func (s *SessionStore) Token(r *http.Request) string {
	if _, err := r.Cookie(SessionName); err != nil {
		return ""
	}
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return ""
	}
	token, _ := session.Values[sessionKeyToken].(string)
	return token
}

// SaveToken stores token in the session cookie.
func (s *SessionStore) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := s.store.Get(r, SessionName)
	session.Values[sessionKeyToken] = token
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	delete(session.Values, sessionKeyToken)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
