package server

import (
	"log/slog"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler upgrades GET /api/ws and registers the connection with
// the notification hub. Authentication is handled by route middleware and
// the user is read from connection locals.
// @Summary Realtime notifications
// @Tags realtime
// @Security BearerAuth
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals("user").(*models.User)
		if !ok || user == nil || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(user.ID, user.IsWellnessTeam(), conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if s.hub == nil {
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewInternalError(errRealtimeUnavailable))
		}
		return upgrade(c)
	}
}
