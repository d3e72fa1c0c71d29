package handler

import (
	"net/http"

	"github.com/edgemux/restream-server/internal/service"
	"github.com/edgemux/restream-server/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler serves server settings and password management.
//
// Supported operations:
//   - GET  /settings  → public settings view (no password hash)
//   - POST /settings  → update title and confirmation flags
//   - POST /password  → change or clear the access password
type SettingsHandler struct {
	log *zap.Logger
	svc *service.SettingsService
}

// NewSettingsHandler constructs a SettingsHandler instance.
func NewSettingsHandler(log *zap.Logger, svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{log: log.Named("settings"), svc: svc}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Public())
}

// Set handles POST /settings. An absent title key keeps the stored
// title; an explicit null clears it.
func (h *SettingsHandler) Set(c *gin.Context) {
	var req struct {
		Title              jsonx.Field[string] `json:"title"`
		DeleteConfirmation bool                `json:"delete_confirmation"`
		EnableConfirmation bool                `json:"enable_confirmation"`
	}
	if !bind(c, &req) {
		return
	}

	title := h.svc.Get().Title
	if req.Title.IsSet() {
		title = req.Title.Value()
	}

	if err := h.svc.SetSettings(c.Request.Context(), title, req.DeleteConfirmation, req.EnableConfirmation); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SetPassword handles POST /password.
//
// Body: {"old_password": "...", "new_password": "..."}. When a password
// is set, old_password must verify or 401 is returned and nothing
// changes. An empty new_password clears protection.
func (h *SettingsHandler) SetPassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if !bind(c, &req) {
		return
	}

	if err := h.svc.SetPassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
