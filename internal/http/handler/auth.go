package handler

import (
	"net/http"

	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler serves session login and logout.
type AuthHandler struct {
	log *zap.Logger
	svc *service.AuthService
}

// NewAuthHandler constructs an AuthHandler instance.
func NewAuthHandler(log *zap.Logger, svc *service.AuthService) *AuthHandler {
	return &AuthHandler{log: log.Named("auth"), svc: svc}
}

// Login handles POST /login. With no password configured any attempt
// succeeds; the session is opened either way so later password setup
// does not cut the caller off.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if !bind(c, &req) {
		return
	}

	if err := h.svc.Login(c, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
