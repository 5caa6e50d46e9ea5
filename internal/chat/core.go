package chat

import (
	"context"
	"time"

	"chat-relay/internal/models"
)

const (
	defaultTypingIdle   = 3 * time.Second
	defaultHistoryLimit = 50
)

// Config carries the external collaborators and tuning knobs for a Core.
type Config struct {
	Identity IdentityStore
	Rooms    RoomStore
	History  HistoryStore

	// TypingIdle is how long a typing entry survives without a refresh.
	TypingIdle time.Duration
	// HistoryLimit is how many recent messages a join snapshot carries.
	HistoryLimit int
}

// Core wires the registry, presence tracker, typing aggregator,
// broadcaster, and reaper into the engine the transport layer drives.
type Core struct {
	Registry  *ConnectionRegistry
	Presence  *RoomPresenceTracker
	Typing    *TypingAggregator
	Broadcast *MessageBroadcaster
	Reaper    *DisconnectReaper
}

func New(cfg Config) *Core {
	if cfg.TypingIdle <= 0 {
		cfg.TypingIdle = defaultTypingIdle
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	registry := NewConnectionRegistry(cfg.Identity)
	presence := NewRoomPresenceTracker(registry, cfg.Rooms, cfg.History, cfg.HistoryLimit)
	typing := NewTypingAggregator(registry, presence, cfg.TypingIdle)
	return &Core{
		Registry:  registry,
		Presence:  presence,
		Typing:    typing,
		Broadcast: NewMessageBroadcaster(registry, presence, cfg.History),
		Reaper:    NewDisconnectReaper(registry, presence, typing),
	}
}

func (c *Core) Register(connID string, sender Sender) {
	c.Registry.Register(connID, sender)
}

func (c *Core) Authenticate(ctx context.Context, connID string, userID int) (models.User, error) {
	return c.Registry.Authenticate(ctx, connID, userID)
}

func (c *Core) Join(ctx context.Context, connID, roomID string) (JoinResult, error) {
	return c.Presence.Join(ctx, connID, roomID)
}

// Leave drops the connection's presence in the room and clears any typing
// entry it held there.
func (c *Core) Leave(connID, roomID string) {
	c.Presence.Leave(connID, roomID)
	c.Typing.Clear(connID, roomID)
}

func (c *Core) Publish(ctx context.Context, connID, roomID, content string) (models.Message, error) {
	return c.Broadcast.Publish(ctx, connID, roomID, content)
}

func (c *Core) SetTyping(connID, roomID string, isTyping bool) error {
	return c.Typing.SetTyping(connID, roomID, isTyping)
}

func (c *Core) Unwind(connID string) {
	c.Reaper.Unwind(connID)
}

func (c *Core) IsUserOnline(userID int) bool {
	return c.Registry.IsUserOnline(userID)
}
