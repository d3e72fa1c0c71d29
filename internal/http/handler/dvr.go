package handler

import (
	"net/http"

	"github.com/edgemux/restream-server/internal/dvr"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DvrHandler serves the recordings directory of an output.
//
// Supported operations:
//   - GET    /outputs/{oid}/dvr         → list recording file names
//   - DELETE /outputs/{oid}/dvr/{file}  → remove one recording
type DvrHandler struct {
	log      *zap.Logger
	store    *dvr.Store
	registry *service.Registry
}

// NewDvrHandler constructs a DvrHandler instance.
func NewDvrHandler(log *zap.Logger, store *dvr.Store, registry *service.Registry) *DvrHandler {
	return &DvrHandler{log: log.Named("dvr"), store: store, registry: registry}
}

// List handles GET /outputs/{oid}/dvr. The output must exist; an output
// with no recordings yet lists empty.
func (h *DvrHandler) List(c *gin.Context) {
	oid, ok := pathOutputID(c)
	if !ok {
		return
	}
	if _, _, err := h.registry.FindOutput(oid); err != nil {
		respondError(c, err)
		return
	}

	files, err := h.store.List(oid)
	if err != nil {
		respondError(c, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Remove handles DELETE /outputs/{oid}/dvr/{file}.
func (h *DvrHandler) Remove(c *gin.Context) {
	oid, ok := pathOutputID(c)
	if !ok {
		return
	}
	if _, _, err := h.registry.FindOutput(oid); err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.Remove(oid, c.Param("file")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
