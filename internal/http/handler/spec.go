package handler

import (
	"net/http"
	"strings"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SpecHandler serves textual spec export and import.
//
// Supported operations:
//   - GET  /export?ids=a,b  → versioned spec text (all restreams without ids)
//   - POST /import          → {"spec": "...", "mode": "merge"|"replace", "restream_id": "..."}
type SpecHandler struct {
	log      *zap.Logger
	registry *service.Registry
}

// NewSpecHandler constructs a SpecHandler instance.
func NewSpecHandler(log *zap.Logger, registry *service.Registry) *SpecHandler {
	return &SpecHandler{log: log.Named("spec"), registry: registry}
}

// Export handles GET /export.
func (h *SpecHandler) Export(c *gin.Context) {
	var ids []restream.RestreamID
	if raw := c.Query("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := restream.ParseRestreamID(strings.TrimSpace(part))
			if err != nil {
				respondError(c, err)
				return
			}
			ids = append(ids, id)
		}
	}

	spec, err := h.registry.Export(ids)
	if err != nil {
		respondError(c, err)
		return
	}
	text, err := restream.EncodeSpec(spec)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(text))
}

// Import handles POST /import.
//
// Status Codes:
//   - 200 OK
//   - 400 malformed spec / unknown mode
//   - 404 replace target missing
//   - 409 merge key collision (whole import rejected)
func (h *SpecHandler) Import(c *gin.Context) {
	var req struct {
		Spec       string              `json:"spec"`
		Mode       service.ImportMode  `json:"mode"`
		RestreamID *restream.RestreamID `json:"restream_id"`
	}
	if !bind(c, &req) {
		return
	}

	if err := h.registry.Import(c.Request.Context(), req.Spec, req.Mode, req.RestreamID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
