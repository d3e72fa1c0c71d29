package handler

import (
	"net/http"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RestreamsHandler provides the RESTful surface over restream resources.
//
// Supported operations:
//   - POST   /restreams                      → Create or replace a restream
//   - DELETE /restreams/{id}                 → Remove a restream
//   - POST   /restreams/{id}/input/enable    → Enable its input
//   - POST   /restreams/{id}/input/disable   → Disable its input
type RestreamsHandler struct {
	log      *zap.Logger
	registry *service.Registry
}

// NewRestreamsHandler constructs a RestreamsHandler instance.
func NewRestreamsHandler(log *zap.Logger, registry *service.Registry) *RestreamsHandler {
	return &RestreamsHandler{log: log.Named("restreams"), registry: registry}
}

// Set handles POST /restreams.
//
// The body is one restream definition in spec form. An absent id creates;
// a supplied id must name an existing restream and replaces it in place.
// Worker-start verification runs before the change commits.
//
// Status Codes:
//   - 200 OK → {"id": "..."}
//   - 400 / 404 / 409 / 423 / 502 per the failure taxonomy
func (h *RestreamsHandler) Set(c *gin.Context) {
	var spec restream.RestreamSpec
	if !bind(c, &spec) {
		return
	}

	r, err := spec.Restream()
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := h.registry.SetRestream(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Remove handles DELETE /restreams/{id}.
func (h *RestreamsHandler) Remove(c *gin.Context) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	if err := h.registry.RemoveRestream(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableInput handles POST /restreams/{id}/input/enable.
//
// Status Codes:
//   - 200 OK
//   - 502 Bad Gateway → the input's workers could not start; nothing changed
func (h *RestreamsHandler) EnableInput(c *gin.Context) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	if err := h.registry.EnableInput(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// DisableInput handles POST /restreams/{id}/input/disable.
func (h *RestreamsHandler) DisableInput(c *gin.Context) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	if err := h.registry.DisableInput(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
