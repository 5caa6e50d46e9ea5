package chat

import (
	"context"
	"fmt"
	"sync"

	"chat-relay/internal/models"
	"chat-relay/internal/utils"
)

// JoinResult is the snapshot a connection receives on entering a room.
type JoinResult struct {
	Room    models.Room
	Members []models.User    // persisted membership, for member-count display
	History []models.Message // recent messages, oldest first
}

// RoomPresenceTracker owns the inverted index of which connections
// currently occupy which rooms. Presence is disjoint from the room store's
// persisted membership: joining records both, but a persisted member need
// not be present.
type RoomPresenceTracker struct {
	registry     *ConnectionRegistry
	rooms        RoomStore
	history      HistoryStore
	historyLimit int

	mu      sync.RWMutex
	members map[string]map[string]struct{} // roomID -> connIDs
	joined  map[string]map[string]struct{} // connID -> roomIDs
}

func NewRoomPresenceTracker(registry *ConnectionRegistry, rooms RoomStore, history HistoryStore, historyLimit int) *RoomPresenceTracker {
	return &RoomPresenceTracker{
		registry:     registry,
		rooms:        rooms,
		history:      history,
		historyLimit: historyLimit,
		members:      make(map[string]map[string]struct{}),
		joined:       make(map[string]map[string]struct{}),
	}
}

// Join registers the connection's presence in the room, records long-term
// membership through the room store, and announces the arrival to every
// other present member. Re-joining a room the connection already occupies
// is idempotent and announces nothing.
func (t *RoomPresenceTracker) Join(ctx context.Context, connID, roomID string) (JoinResult, error) {
	user, ok := t.registry.IdentityOf(connID)
	if !ok {
		return JoinResult{}, ErrNotAuthenticated
	}

	room, found, err := t.rooms.Find(ctx, roomID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("find room: %w", err)
	}
	if !found {
		return JoinResult{}, ErrRoomNotFound
	}

	if err := t.rooms.AddMember(ctx, roomID, user.ID); err != nil {
		return JoinResult{}, fmt.Errorf("add member: %w", err)
	}

	t.mu.Lock()
	_, already := t.members[roomID][connID]
	var notify []string
	if !already {
		if t.members[roomID] == nil {
			t.members[roomID] = make(map[string]struct{})
		}
		if t.joined[connID] == nil {
			t.joined[connID] = make(map[string]struct{})
		}
		for id := range t.members[roomID] {
			notify = append(notify, id)
		}
		t.members[roomID][connID] = struct{}{}
		t.joined[connID][roomID] = struct{}{}
	}
	t.mu.Unlock()

	result := JoinResult{Room: room}
	if result.Members, err = t.rooms.Members(ctx, roomID); err != nil {
		utils.LogError(err, "room members")
	}
	if result.History, err = t.history.Recent(ctx, roomID, t.historyLimit); err != nil {
		utils.LogError(err, "recent history")
	}

	t.announce(notify, models.PresenceEvent{
		Event:   models.EventUserJoined,
		Room:    roomID,
		User:    user,
		Message: fmt.Sprintf("%s joined the room", user.Username),
	})
	return result, nil
}

// Leave removes the connection's presence from the room and announces the
// departure to the remaining members. No-op if the connection was not
// present.
func (t *RoomPresenceTracker) Leave(connID, roomID string) {
	t.mu.Lock()
	if _, ok := t.members[roomID][connID]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.members[roomID], connID)
	if len(t.members[roomID]) == 0 {
		delete(t.members, roomID)
	}
	delete(t.joined[connID], roomID)
	if len(t.joined[connID]) == 0 {
		delete(t.joined, connID)
	}
	var notify []string
	for id := range t.members[roomID] {
		notify = append(notify, id)
	}
	t.mu.Unlock()

	user, _ := t.registry.IdentityOf(connID)
	t.announce(notify, models.PresenceEvent{
		Event:   models.EventUserLeft,
		Room:    roomID,
		User:    user,
		Message: fmt.Sprintf("%s left the room", user.Username),
	})
}

// MembersOf returns the connections currently present in the room.
func (t *RoomPresenceTracker) MembersOf(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conns := make([]string, 0, len(t.members[roomID]))
	for id := range t.members[roomID] {
		conns = append(conns, id)
	}
	return conns
}

// RoomsOf returns the rooms the connection currently occupies.
func (t *RoomPresenceTracker) RoomsOf(connID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rooms := make([]string, 0, len(t.joined[connID]))
	for id := range t.joined[connID] {
		rooms = append(rooms, id)
	}
	return rooms
}

func (t *RoomPresenceTracker) IsMember(connID, roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[roomID][connID]
	return ok
}

func (t *RoomPresenceTracker) announce(connIDs []string, event models.PresenceEvent) {
	for _, id := range connIDs {
		if sender, ok := t.registry.SenderOf(id); ok {
			utils.LogError(sender.Send(event), "presence announce")
		}
	}
}
