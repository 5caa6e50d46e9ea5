package handlers

import (
	"strings"

	"chat-relay/internal/models"
	"chat-relay/internal/store"

	"github.com/gofiber/fiber/v2"
)

// CreateRoomHandler creates a named room owned by the authenticated user.
func CreateRoomHandler(rooms *store.RoomStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int)

		var req models.CreateRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Room name required"})
		}

		room, err := rooms.Create(c.Context(), req.Name, req.Description, userID)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(room)
	}
}

// ListRoomsHandler returns all rooms with their persisted member counts.
func ListRoomsHandler(rooms *store.RoomStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := rooms.List(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to fetch rooms"})
		}
		if items == nil {
			items = []models.RoomListItem{}
		}
		return c.JSON(items)
	}
}
