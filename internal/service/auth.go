package service

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService handles login against the settings-stored password.
type AuthService struct {
	log      *zap.Logger
	settings *SettingsService
	Session  *SessionService
}

func NewAuthService(log *zap.Logger, settingsSvc *SettingsService, sessionSvc *SessionService) *AuthService {
	return &AuthService{
		log:      log.Named("auth"),
		settings: settingsSvc,
		Session:  sessionSvc,
	}
}

// Login verifies the password and opens a session. With no password set,
// access is open and any login succeeds trivially.
func (s *AuthService) Login(c *gin.Context, password string) error {
	if err := s.settings.VerifyPassword(password); err != nil {
		return err
	}
	if err := s.Session.Open(sessions.Default(c)); err != nil {
		return err
	}
	return nil
}

// Logout closes the session.
func (s *AuthService) Logout(c *gin.Context) error {
	return s.Session.Close(sessions.Default(c))
}

// Authenticated reports whether the request may act. Requests pass when no
// password is configured or the session is open.
func (s *AuthService) Authenticated(c *gin.Context) bool {
	if !s.settings.PasswordRequired() {
		return true
	}
	return s.Session.IsOpen(sessions.Default(c))
}
