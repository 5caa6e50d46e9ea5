package handlers

import (
	"log"
	"sync"

	"chat-relay/internal/chat"
	"chat-relay/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// wsSender adapts a fiber websocket connection to chat.Sender. Fiber's
// websocket connection is not safe for concurrent writes, and typing
// expiry timers broadcast from their own goroutines, so writes are
// serialized here.
type wsSender struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (s *wsSender) Send(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.WriteJSON(event)
}

// WebSocketHandler runs the event loop for one connection. The connection
// authenticates in-band with an authenticate event carrying its JWT; the
// close of the transport unwinds everything the connection left behind.
func WebSocketHandler(core *chat.Core) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		connID := uuid.New().String()
		sender := &wsSender{c: c}
		core.Register(connID, sender)

		defer func() {
			core.Unwind(connID)
			c.Close()
		}()

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("error: %v", err)
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}
			dispatch(core, connID, sender, msg)
		}
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// AuthMiddleware verifies the JWT token on protected HTTP routes.
func AuthMiddleware(c *fiber.Ctx) error {
	// Get token from query param `access_token` or Authorization header
	token := c.Query("access_token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}

	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	// claims["user_id"] comes as float64 from JSON
	if uid, ok := claims["user_id"].(float64); ok {
		c.Locals("user_id", int(uid))
	} else {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	if u, ok := claims["username"].(string); ok {
		c.Locals("username", u)
	}

	return c.Next()
}
