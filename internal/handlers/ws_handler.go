package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/loopline-app/loopline/backend/internal/hub"
	"github.com/loopline-app/loopline/backend/internal/middleware"
	"github.com/loopline-app/loopline/backend/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated connections and binds them to the hub.
type WSHandler struct {
	hub *hub.Hub
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{hub: h}
}

// RegisterWSRoutes registers the realtime endpoint
func (h *WSHandler) RegisterWSRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve joins the connection to the caller's room and streams hub events
// as JSON frames until the client disconnects. The token travels as a
// query parameter since browsers cannot set headers on websocket dials.
func (h *WSHandler) Serve(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}
	claims, err := middleware.ParseToken(token)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "WebSocket upgrade failed")
	}

	session := h.hub.Join(claims.UserID)
	logger.Log.WithField("user", claims.UserID).WithField("session", session.ID).Info("websocket connected")

	// Writer: drain the session into the socket. Ends when Disconnect
	// closes the event channel.
	go func() {
		for ev := range session.Events() {
			if err := conn.WriteJSON(ev); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// Reader: the client sends nothing after joining; this loop only
	// notices the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Disconnect(session)
	logger.Log.WithField("user", claims.UserID).WithField("session", session.ID).Info("websocket disconnected")
	return nil
}
