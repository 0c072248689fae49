package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"edumesh/config"
	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/services/websocket"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// UpgradeCheck gates the websocket route and authenticates the handshake.
// Browsers cannot set an Authorization header on a socket, so the access
// token travels as a query parameter.
func (wc *WebSocketController) UpgradeCheck(c *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Token required")
	}
	claims, err := middleware.ParseToken(token, config.AppConfig.JWTSecret)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	var user models.User
	if err := database.DB.Where("id = ? AND active = ?", claims.UserID, true).
		First(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "User not found or inactive")
	}

	c.Locals("ws_user_id", claims.UserID)
	c.Locals("ws_school_id", claims.SchoolID)
	c.Locals("ws_role", claims.Role)
	return c.Next()
}

// Handle runs the connection inside the hub.
func (wc *WebSocketController) Handle() fiber.Handler {
	return fiberws.New(func(conn *fiberws.Conn) {
		userID, _ := conn.Locals("ws_user_id").(uint)
		schoolID, _ := conn.Locals("ws_school_id").(uint)
		role, _ := conn.Locals("ws_role").(string)
		if userID == 0 {
			conn.Close()
			return
		}
		wc.hub.ServeFiberWS(conn, userID, schoolID, role)
	})
}
