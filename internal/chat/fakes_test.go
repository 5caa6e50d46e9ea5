package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"chat-relay/internal/models"
)

type fakeIdentityStore struct {
	users   map[int]models.User
	findErr error
}

func (f *fakeIdentityStore) FindUser(ctx context.Context, userID int) (models.User, bool, error) {
	if f.findErr != nil {
		return models.User{}, false, f.findErr
	}
	user, ok := f.users[userID]
	return user, ok, nil
}

type fakeRoomStore struct {
	rooms   map[string]models.Room
	findErr error

	mu      sync.Mutex
	members map[string][]int
}

func (f *fakeRoomStore) Find(ctx context.Context, roomID string) (models.Room, bool, error) {
	if f.findErr != nil {
		return models.Room{}, false, f.findErr
	}
	room, ok := f.rooms[roomID]
	return room, ok, nil
}

func (f *fakeRoomStore) AddMember(ctx context.Context, roomID string, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members == nil {
		f.members = make(map[string][]int)
	}
	for _, id := range f.members[roomID] {
		if id == userID {
			return nil
		}
	}
	f.members[roomID] = append(f.members[roomID], userID)
	return nil
}

func (f *fakeRoomStore) Members(ctx context.Context, roomID string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]models.User, 0, len(f.members[roomID]))
	for _, id := range f.members[roomID] {
		users = append(users, models.User{ID: id})
	}
	return users, nil
}

type fakeHistoryStore struct {
	mu       sync.Mutex
	nextID   int
	messages []models.Message

	// appendGate, when set, blocks Append until the gate is closed. Used
	// to hold a publish in its persistence window.
	appendGate chan struct{}
	appendErr  error
}

func (f *fakeHistoryStore) Append(ctx context.Context, roomID string, userID int, content string) (models.Message, error) {
	f.mu.Lock()
	gate := f.appendGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.appendErr != nil {
		return models.Message{}, f.appendErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg := models.Message{
		ID:        f.nextID,
		Room:      roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeHistoryStore) Recent(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, msg := range f.messages {
		if msg.Room == roomID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeSender struct {
	mu     sync.Mutex
	events []any
}

func (s *fakeSender) Send(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSender) all() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.events...)
}

func presenceEvents(s *fakeSender, name string) []models.PresenceEvent {
	var out []models.PresenceEvent
	for _, e := range s.all() {
		if pe, ok := e.(models.PresenceEvent); ok && pe.Event == name {
			out = append(out, pe)
		}
	}
	return out
}

func chatEvents(s *fakeSender) []models.ChatEvent {
	var out []models.ChatEvent
	for _, e := range s.all() {
		if ce, ok := e.(models.ChatEvent); ok {
			out = append(out, ce)
		}
	}
	return out
}

func typingEvents(s *fakeSender) []models.TypingUsersEvent {
	var out []models.TypingUsersEvent
	for _, e := range s.all() {
		if te, ok := e.(models.TypingUsersEvent); ok {
			out = append(out, te)
		}
	}
	return out
}

type fixture struct {
	core     *Core
	identity *fakeIdentityStore
	rooms    *fakeRoomStore
	history  *fakeHistoryStore
}

func newFixture(typingIdle time.Duration) *fixture {
	identity := &fakeIdentityStore{users: map[int]models.User{
		1: {ID: 1, Username: "alice", AvatarURL: "https://cdn.example/alice.png"},
		2: {ID: 2, Username: "bob"},
		3: {ID: 3, Username: "carol"},
	}}
	rooms := &fakeRoomStore{rooms: map[string]models.Room{
		"42": {ID: "42", Name: "general"},
		"99": {ID: "99", Name: "random"},
	}}
	history := &fakeHistoryStore{}
	return &fixture{
		core:     New(Config{Identity: identity, Rooms: rooms, History: history, TypingIdle: typingIdle}),
		identity: identity,
		rooms:    rooms,
		history:  history,
	}
}

// connect registers a connection and, for userID > 0, authenticates it.
func (f *fixture) connect(t *testing.T, connID string, userID int) *fakeSender {
	t.Helper()
	sender := &fakeSender{}
	f.core.Register(connID, sender)
	if userID > 0 {
		if _, err := f.core.Authenticate(context.Background(), connID, userID); err != nil {
			t.Fatalf("authenticate %s: %v", connID, err)
		}
	}
	return sender
}

func (f *fixture) join(t *testing.T, connID, roomID string) {
	t.Helper()
	if _, err := f.core.Join(context.Background(), connID, roomID); err != nil {
		t.Fatalf("join %s to %s: %v", connID, roomID, err)
	}
}
