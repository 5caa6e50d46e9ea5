package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"chat-relay/internal/models"
	"chat-relay/internal/utils"
)

// MessageBroadcaster validates, persists, stamps, and fans out messages.
// Publishes to the same room are serialized so messages reach the store
// and the wire in acceptance order; rooms are independent of each other.
type MessageBroadcaster struct {
	registry *ConnectionRegistry
	presence *RoomPresenceTracker
	history  HistoryStore

	mu    sync.Mutex
	order map[string]*sync.Mutex // per-room publish serialization
}

func NewMessageBroadcaster(registry *ConnectionRegistry, presence *RoomPresenceTracker, history HistoryStore) *MessageBroadcaster {
	return &MessageBroadcaster{
		registry: registry,
		presence: presence,
		history:  history,
		order:    make(map[string]*sync.Mutex),
	}
}

// Publish persists the message, stamps it with the author's display
// metadata, and delivers it to every connection present in the room at the
// moment of fan-out. Membership is re-read after persistence completes, so
// a connection that left during the write is excluded and one that joined
// during it is included.
func (b *MessageBroadcaster) Publish(ctx context.Context, connID, roomID, content string) (models.Message, error) {
	user, ok := b.registry.IdentityOf(connID)
	if !ok {
		return models.Message{}, ErrNotAuthenticated
	}
	if !b.presence.IsMember(connID, roomID) {
		return models.Message{}, ErrNotAMember
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyContent
	}

	lock := b.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := b.history.Append(ctx, roomID, user.ID, content)
	if err != nil {
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}
	msg.Room = roomID
	msg.UserID = user.ID
	msg.Username = user.Username
	msg.AvatarURL = user.AvatarURL
	msg.Content = content

	event := models.ChatEvent{
		Event:     models.EventChat,
		ID:        msg.ID,
		Room:      msg.Room,
		UserID:    msg.UserID,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		Text:      msg.Content,
		Timestamp: msg.CreatedAt.UnixMilli(),
	}
	// Live membership read, not a copy taken before the write. The sender
	// is a present member and receives its own message as confirmation.
	for _, id := range b.presence.MembersOf(roomID) {
		if sender, ok := b.registry.SenderOf(id); ok {
			utils.LogError(sender.Send(event), "message fan-out")
		}
	}
	return msg, nil
}

func (b *MessageBroadcaster) roomLock(roomID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.order[roomID]
	if !ok {
		lock = &sync.Mutex{}
		b.order[roomID] = lock
	}
	return lock
}
