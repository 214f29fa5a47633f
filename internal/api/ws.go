package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/guardpost/internal/auth"
	"github.com/lalith-99/guardpost/internal/realtime"
	"go.uber.org/zap"
)

// WSHandler upgrades GET /ws into a live session. Browsers cannot set an
// Authorization header on a websocket handshake, so the token travels in
// the query string.
type WSHandler struct {
	server    *realtime.Server
	upgrader  websocket.Upgrader
	jwtSecret string
	logger    *zap.Logger
}

func NewWSHandler(server *realtime.Server, jwtSecret, allowedOrigin string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		server: server,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Handle handles GET /ws?token=<jwt>
func (h *WSHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthenticated"})
		return
	}
	claims, err := auth.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "code": "unauthenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.server.Serve(conn, claims.UserID)
}
