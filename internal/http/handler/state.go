package handler

import (
	"net/http"
	"strconv"

	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StateHandler serves the polling state endpoint over the TTL cache.
//
// Supported operations:
//   - GET /state → JSON array of restreams with live statuses
//
// Response headers:
//   - X-Cache: HIT | MISS
//   - X-State-Generated-At: unix millis of snapshot encoding
type StateHandler struct {
	log   *zap.Logger
	cache *service.StateCache
}

// NewStateHandler constructs a StateHandler instance.
func NewStateHandler(log *zap.Logger, cache *service.StateCache) *StateHandler {
	return &StateHandler{log: log.Named("state"), cache: cache}
}

// Get handles GET /state.
func (h *StateHandler) Get(c *gin.Context) {
	res, err := h.cache.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if res.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("X-State-Generated-At", strconv.FormatInt(res.GeneratedAt.UnixMilli(), 10))
	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Data)
}
