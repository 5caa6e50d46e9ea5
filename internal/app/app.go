package app

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/chat"
	"chat-relay/internal/db"
	"chat-relay/internal/handlers"
	"chat-relay/internal/models"
	"chat-relay/internal/services"
	"chat-relay/internal/store"
	"chat-relay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Init DB
	connString := utils.GetEnv("DATABASE_URL", "")
	if connString == "" {
		// Fallback to individual vars
		connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "chatdb") + "?sslmode=disable"
	}

	pool, err := db.Connect(context.Background(), connString)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Stores and services
	userService := services.NewUserService(pool)
	roomStore := store.NewRoomStore(pool)

	// Chat engine
	core := chat.New(chat.Config{
		Identity:     store.NewIdentityStore(pool),
		Rooms:        roomStore,
		History:      store.NewHistoryStore(pool),
		TypingIdle:   utils.GetEnvSeconds("TYPING_IDLE_SEC", 3*time.Second),
		HistoryLimit: utils.GetEnvInt("HISTORY_LIMIT", 50),
	})

	// Fiber App
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Post("/register", func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		user, err := userService.Register(c.Context(), req)
		if err != nil {
			if errors.Is(err, services.ErrUserExists) {
				return c.Status(400).JSON(fiber.Map{"error": "username already exists"})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(user)
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		res, err := userService.Login(c.Context(), req)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(res)
	})

	// Protected Routes
	protected := api.Group("/")
	protected.Use(handlers.AuthMiddleware)

	// Room Routes
	protected.Post("/rooms", handlers.CreateRoomHandler(roomStore))
	protected.Get("/rooms", handlers.ListRoomsHandler(roomStore))

	// List users (excluding the caller). Returns live status per user.
	protected.Get("/users", func(c *fiber.Ctx) error {
		authUserID := c.Locals("user_id").(int)

		users, err := userService.ListUsers(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to fetch users"})
		}

		var resp []map[string]interface{}
		for _, u := range users {
			if u.ID == authUserID {
				continue
			}
			status := "offline"
			if core.IsUserOnline(u.ID) {
				status = "online"
			}
			resp = append(resp, map[string]interface{}{
				"id":         u.ID,
				"username":   u.Username,
				"avatar_url": u.AvatarURL,
				"created_at": u.CreatedAt,
				"status":     status,
			})
		}

		return c.JSON(resp)
	})

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Route. Authentication happens in-band over the socket, so
	// only the upgrade check runs here.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Get("/ws", handlers.WebSocketHandler(core))

	// Start Server
	port := utils.GetEnv("PORT", "3001")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}
