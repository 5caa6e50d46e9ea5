package chat

import (
	"context"

	"chat-relay/internal/models"
)

// IdentityStore resolves user identities at authentication time. The
// returned user is a read-only snapshot; the engine never writes it back.
type IdentityStore interface {
	FindUser(ctx context.Context, userID int) (models.User, bool, error)
}

// RoomStore owns room identity and long-term membership. The engine only
// attaches presence to rooms the store knows about.
type RoomStore interface {
	Find(ctx context.Context, roomID string) (models.Room, bool, error)
	AddMember(ctx context.Context, roomID string, userID int) error
	Members(ctx context.Context, roomID string) ([]models.User, error)
}

// HistoryStore persists messages. Append assigns the message ID and
// creation timestamp.
type HistoryStore interface {
	Append(ctx context.Context, roomID string, userID int, content string) (models.Message, error)
	Recent(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

// Sender delivers one server event to one connection. Implementations must
// be safe for concurrent use: typing expiry broadcasts from timer
// goroutines while the connection's own event loop may also be writing.
type Sender interface {
	Send(event any) error
}
