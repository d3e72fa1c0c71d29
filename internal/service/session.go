package service

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
)

// SessionService manages login sessions backed by Redis.
type SessionService struct {
	store         redis.Store
	cookieOptions sessions.Options
}

// sessionKeyAuthed marks a session as logged in.
const sessionKeyAuthed = "authed"

// NewSessionService creates the Redis-backed session store.
// The `isDev` flag controls whether cookies are marked Secure.
func NewSessionService(isDev bool, redisAddr string, secret []byte) (*SessionService, error) {
	store, err := redis.NewStoreWithDB(10, "tcp", redisAddr, "", "", "0", secret)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}

	cookieOptions := sessions.Options{
		Path:     "/api",
		MaxAge:   4 * 3600,
		Secure:   !isDev,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	store.Options(cookieOptions)

	return &SessionService{store: store, cookieOptions: cookieOptions}, nil
}

// Middleware attaches session handling.
func (s *SessionService) Middleware() gin.HandlerFunc {
	return sessions.Sessions("sid" /* Cookie name */, s.store)
}

// Open marks the session as authenticated and persists it.
func (s *SessionService) Open(session sessions.Session) error {
	session.Set(sessionKeyAuthed, true)

	if err := session.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close clears all session data and expires the cookie.
func (s *SessionService) Close(session sessions.Session) error {
	session.Clear()

	opts := s.cookieOptions
	opts.MaxAge = -1
	session.Options(opts)

	if err := session.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// IsOpen reports whether the session is authenticated.
func (s *SessionService) IsOpen(session sessions.Session) bool {
	authed, ok := session.Get(sessionKeyAuthed).(bool)
	return ok && authed
}
