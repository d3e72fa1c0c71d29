package handler

import (
	"context"
	"net/http"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OutputsHandler provides HTTP handlers for outputs, mixins and audio
// tuning.
//
// Supported operations:
//   - POST   /restreams/{id}/outputs                     → Create or replace an output
//   - DELETE /restreams/{id}/outputs/{oid}               → Remove an output
//   - POST   /restreams/{id}/outputs/{oid}/enable        → Enable one
//   - POST   /restreams/{id}/outputs/{oid}/disable       → Disable one
//   - POST   /restreams/{id}/outputs/enable-all          → Enable all of one restream
//   - POST   /restreams/{id}/outputs/disable-all         → Disable all of one restream
//   - POST   /outputs/enable-all                         → Enable all, globally
//   - POST   /outputs/disable-all                        → Disable all, globally
//   - POST   /restreams/{id}/outputs/{oid}/tune-volume   → Live volume tuning
//   - POST   /restreams/{id}/outputs/{oid}/tune-delay    → Live mixin delay tuning
type OutputsHandler struct {
	log      *zap.Logger
	registry *service.Registry
}

// NewOutputsHandler constructs an OutputsHandler instance.
func NewOutputsHandler(log *zap.Logger, registry *service.Registry) *OutputsHandler {
	return &OutputsHandler{log: log.Named("outputs"), registry: registry}
}

// Set handles POST /restreams/{id}/outputs. The body is one output in
// spec form; an absent id creates, a known id replaces in place.
func (h *OutputsHandler) Set(c *gin.Context) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}

	var spec restream.OutputSpec
	if !bind(c, &spec) {
		return
	}

	out, err := spec.Output()
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.registry.SetOutput(c.Request.Context(), id, out); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Remove handles DELETE /restreams/{id}/outputs/{oid}.
func (h *OutputsHandler) Remove(c *gin.Context) {
	h.outputOp(c, h.registry.RemoveOutput)
}

// Enable handles POST /restreams/{id}/outputs/{oid}/enable.
func (h *OutputsHandler) Enable(c *gin.Context) {
	h.outputOp(c, h.registry.EnableOutput)
}

// Disable handles POST /restreams/{id}/outputs/{oid}/disable.
func (h *OutputsHandler) Disable(c *gin.Context) {
	h.outputOp(c, h.registry.DisableOutput)
}

// EnableAll handles POST /restreams/{id}/outputs/enable-all.
func (h *OutputsHandler) EnableAll(c *gin.Context) {
	h.restreamOp(c, h.registry.EnableAllOutputs)
}

// DisableAll handles POST /restreams/{id}/outputs/disable-all.
func (h *OutputsHandler) DisableAll(c *gin.Context) {
	h.restreamOp(c, h.registry.DisableAllOutputs)
}

// EnableAllGlobal handles POST /outputs/enable-all.
func (h *OutputsHandler) EnableAllGlobal(c *gin.Context) {
	if err := h.registry.EnableAllOutputsOfRestreams(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// DisableAllGlobal handles POST /outputs/disable-all.
func (h *OutputsHandler) DisableAllGlobal(c *gin.Context) {
	if err := h.registry.DisableAllOutputsOfRestreams(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// TuneVolume handles POST /restreams/{id}/outputs/{oid}/tune-volume.
//
// Body: {"volume": 0..1000, "mixin_id": "..."}; mixin_id absent tunes
// the output's own gain. The change restarts the forward worker with the
// new filter graph.
func (h *OutputsHandler) TuneVolume(c *gin.Context) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	oid, ok := pathOutputID(c)
	if !ok {
		return
	}

	var req struct {
		Volume  restream.Volume   `json:"volume"`
		MixinID *restream.MixinID `json:"mixin_id"`
	}
	if !bind(c, &req) {
		return
	}

	if err := h.registry.TuneVolume(c.Request.Context(), id, oid, req.MixinID, req.Volume); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// TuneDelay handles POST /restreams/{id}/outputs/{oid}/tune-delay.
//
// Body: {"mixin_id": "...", "delay_ms": n}.
func (h *OutputsHandler) TuneDelay(c *gin.Context) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	oid, ok := pathOutputID(c)
	if !ok {
		return
	}

	var req struct {
		MixinID restream.MixinID `json:"mixin_id"`
		DelayMs int64            `json:"delay_ms"`
	}
	if !bind(c, &req) {
		return
	}

	if err := h.registry.TuneDelay(c.Request.Context(), id, oid, req.MixinID, restream.DurationFromMillis(req.DelayMs)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// ----- Helpers -----

func (h *OutputsHandler) outputOp(c *gin.Context, op func(ctx context.Context, id restream.RestreamID, oid restream.OutputID) error) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	oid, ok := pathOutputID(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), id, oid); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *OutputsHandler) restreamOp(c *gin.Context, op func(ctx context.Context, id restream.RestreamID) error) {
	id, ok := pathRestreamID(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
