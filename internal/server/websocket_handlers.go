package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles GET /api/ws, the notification channel. Anonymous
// connections are allowed; clients send {"type":"join","room":"feed"} to
// subscribe.
// @Summary Notification channel
// @Tags realtime
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(localsUserID).(string)

		client, err := s.notifications.Register(conn, userID)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused", "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, notifications.ErrorFrame(err.Error()))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if s.notifications == nil {
			return models.Respond(c, models.NewUnavailableError("Notification channel unavailable"))
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}
