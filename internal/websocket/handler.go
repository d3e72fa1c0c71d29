package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades feed requests and attaches clients to a hub. Access
// control happens upstream in the router's auth middleware.
type Handler struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the upgrade handler. With no allowed origins every
// origin passes, which suits same-host deployments behind the UI proxy.
func NewHandler(log *zap.Logger, allowedOrigins []string) *Handler {
	h := &Handler{log: log.Named("ws")}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Attach returns a gin handler that upgrades the request and pumps the
// hub's feed over it.
func (h *Handler) Attach(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			h.log.Warn("feed upgrade failed", zap.Error(err))
			return
		}

		client := newClient(hub, conn, h.log)
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
