package handler

import (
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/edgemux/restream-server/internal/infrastructure/processmgr"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorkerInspector is the pool surface the debug handler reads.
type WorkerInspector interface {
	Keys() []string
	Statuses() map[string]processmgr.Status
	Logs(key string, n int) []string
}

// DebugHandler exposes dev-only introspection endpoints. Never routed in
// production.
//
//   - GET /debug/state              → spew dump of the registry snapshot
//   - GET /debug/workers            → worker keys and statuses
//   - GET /debug/workers/{key}/logs → newest-first stderr tail of one worker
type DebugHandler struct {
	log      *zap.Logger
	registry *service.Registry
	pool     WorkerInspector
}

// NewDebugHandler constructs a DebugHandler instance.
func NewDebugHandler(log *zap.Logger, registry *service.Registry, pool WorkerInspector) *DebugHandler {
	return &DebugHandler{log: log.Named("debug"), registry: registry, pool: pool}
}

// State handles GET /debug/state.
func (h *DebugHandler) State(c *gin.Context) {
	dump := spew.Sdump(h.registry.Snapshot())
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(dump))
}

// Workers handles GET /debug/workers.
func (h *DebugHandler) Workers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"keys":     h.pool.Keys(),
		"statuses": h.pool.Statuses(),
	})
}

// WorkerLogs handles GET /debug/workers/{key}/logs.
func (h *DebugHandler) WorkerLogs(c *gin.Context) {
	lines := h.pool.Logs(c.Param("key"), 100)
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}
