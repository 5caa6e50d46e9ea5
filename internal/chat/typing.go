package chat

import (
	"sync"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/utils"
)

type typingEntry struct {
	connID    string
	user      models.User
	expiresAt time.Time
	timer     *time.Timer
}

// TypingAggregator tracks transient per-room typing state. Entries expire
// on their own after the idle window even when the client never sends an
// explicit stop signal. Broadcasts are edge-triggered: only a state
// transition emits an event, never a repeated keystroke signal.
type TypingAggregator struct {
	registry *ConnectionRegistry
	presence *RoomPresenceTracker
	idle     time.Duration

	mu    sync.Mutex
	rooms map[string][]*typingEntry // per room, ascending insertion order
}

func NewTypingAggregator(registry *ConnectionRegistry, presence *RoomPresenceTracker, idle time.Duration) *TypingAggregator {
	return &TypingAggregator{
		registry: registry,
		presence: presence,
		idle:     idle,
		rooms:    make(map[string][]*typingEntry),
	}
}

// SetTyping inserts, refreshes, or removes the connection's typing entry
// for the room. The connection must currently occupy the room.
func (t *TypingAggregator) SetTyping(connID, roomID string, isTyping bool) error {
	if !t.presence.IsMember(connID, roomID) {
		return ErrNotAMember
	}
	if !isTyping {
		t.Clear(connID, roomID)
		return nil
	}

	user, ok := t.registry.IdentityOf(connID)
	if !ok {
		return ErrNotAuthenticated
	}

	t.mu.Lock()
	t.sweepLocked(roomID, time.Now())
	for _, e := range t.rooms[roomID] {
		if e.connID == connID {
			// Refresh only; no broadcast on repeated signals.
			e.expiresAt = time.Now().Add(t.idle)
			e.timer.Reset(t.idle)
			t.mu.Unlock()
			return nil
		}
	}
	entry := &typingEntry{
		connID:    connID,
		user:      user,
		expiresAt: time.Now().Add(t.idle),
	}
	entry.timer = time.AfterFunc(t.idle, func() { t.expire(roomID, connID) })
	t.rooms[roomID] = append(t.rooms[roomID], entry)
	typers := t.snapshotLocked(roomID)
	t.mu.Unlock()

	t.broadcast(roomID, typers)
	return nil
}

// Clear drops the connection's typing entry for the room, cancelling its
// expiry timer, and broadcasts the change if an entry existed. Used for an
// explicit stop signal and when the connection leaves the room.
func (t *TypingAggregator) Clear(connID, roomID string) {
	t.mu.Lock()
	removed := false
	entries := t.rooms[roomID]
	for i, e := range entries {
		if e.connID == connID {
			e.timer.Stop()
			t.rooms[roomID] = append(entries[:i], entries[i+1:]...)
			removed = true
			break
		}
	}
	if len(t.rooms[roomID]) == 0 {
		delete(t.rooms, roomID)
	}
	var typers []typerRef
	if removed {
		typers = t.snapshotLocked(roomID)
	}
	t.mu.Unlock()

	if removed {
		t.broadcast(roomID, typers)
	}
}

// CurrentTypers returns the users typing in the room in ascending
// insertion order, never including the excluded connection's own entry.
func (t *TypingAggregator) CurrentTypers(roomID, excludingConnID string) []models.User {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked(roomID, time.Now())
	users := make([]models.User, 0, len(t.rooms[roomID]))
	for _, e := range t.rooms[roomID] {
		if e.connID == excludingConnID {
			continue
		}
		users = append(users, e.user)
	}
	return users
}

// expire fires from the entry's timer. A refresh that raced the timer is
// detected by the expiry timestamp; the reset timer will fire again.
func (t *TypingAggregator) expire(roomID, connID string) {
	t.mu.Lock()
	entries := t.rooms[roomID]
	idx := -1
	for i, e := range entries {
		if e.connID == connID {
			idx = i
			break
		}
	}
	if idx < 0 || time.Now().Before(entries[idx].expiresAt) {
		t.mu.Unlock()
		return
	}
	t.rooms[roomID] = append(entries[:idx], entries[idx+1:]...)
	if len(t.rooms[roomID]) == 0 {
		delete(t.rooms, roomID)
	}
	typers := t.snapshotLocked(roomID)
	t.mu.Unlock()

	t.broadcast(roomID, typers)
}

// sweepLocked lazily drops elapsed entries on read paths. The entry's own
// timer is the emitter for expiry events, so the sweep stays silent.
func (t *TypingAggregator) sweepLocked(roomID string, now time.Time) {
	entries := t.rooms[roomID]
	kept := entries[:0]
	for _, e := range entries {
		if now.Before(e.expiresAt) {
			kept = append(kept, e)
		} else {
			e.timer.Stop()
		}
	}
	if len(kept) == 0 {
		delete(t.rooms, roomID)
	} else {
		t.rooms[roomID] = kept
	}
}

type typerRef struct {
	connID string
	user   models.User
}

func (t *TypingAggregator) snapshotLocked(roomID string) []typerRef {
	typers := make([]typerRef, 0, len(t.rooms[roomID]))
	for _, e := range t.rooms[roomID] {
		typers = append(typers, typerRef{connID: e.connID, user: e.user})
	}
	return typers
}

// broadcast sends the typing list to every present member, excluding each
// recipient's own entry from the list it receives.
func (t *TypingAggregator) broadcast(roomID string, typers []typerRef) {
	for _, connID := range t.presence.MembersOf(roomID) {
		sender, ok := t.registry.SenderOf(connID)
		if !ok {
			continue
		}
		users := make([]models.User, 0, len(typers))
		for _, typer := range typers {
			if typer.connID == connID {
				continue
			}
			users = append(users, typer.user)
		}
		utils.LogError(sender.Send(models.TypingUsersEvent{
			Event:       models.EventTypingUsers,
			Room:        roomID,
			TypingUsers: users,
		}), "typing broadcast")
	}
}
