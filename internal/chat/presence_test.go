package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-relay/internal/models"
)

func TestJoinRequiresAuthentication(t *testing.T) {
	f := newFixture(time.Second)
	f.connect(t, "conn-1", 0) // registered, never authenticated

	if _, err := f.core.Join(context.Background(), "conn-1", "42"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(f.core.Presence.MembersOf("42")) != 0 {
		t.Fatal("no membership should be created")
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(time.Second)
	f.connect(t, "conn-1", 1)

	if _, err := f.core.Join(context.Background(), "conn-1", "no-such-room"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinReturnsSnapshotAndRecordsMembership(t *testing.T) {
	f := newFixture(time.Second)
	f.history.messages = []models.Message{
		{ID: 1, Room: "42", UserID: 2, Content: "old message"},
	}
	f.connect(t, "conn-1", 1)

	res, err := f.core.Join(context.Background(), "conn-1", "42")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if res.Room.ID != "42" || res.Room.Name != "general" {
		t.Fatalf("unexpected room snapshot: %+v", res.Room)
	}
	if len(res.History) != 1 || res.History[0].Content != "old message" {
		t.Fatalf("unexpected history: %+v", res.History)
	}
	if len(res.Members) != 1 || res.Members[0].ID != 1 {
		t.Fatalf("expected persisted membership for user 1, got %+v", res.Members)
	}
	if !f.core.Presence.IsMember("conn-1", "42") {
		t.Fatal("presence not recorded")
	}
}

func TestJoinNotifiesOthersNotSelf(t *testing.T) {
	f := newFixture(time.Second)
	x := f.connect(t, "conn-x", 1)
	y := f.connect(t, "conn-y", 2)
	f.join(t, "conn-x", "42")
	f.join(t, "conn-y", "42")

	// X was present when Y joined.
	joins := presenceEvents(x, models.EventUserJoined)
	if len(joins) != 1 {
		t.Fatalf("expected 1 user_joined at X, got %d", len(joins))
	}
	if joins[0].User.ID != 2 {
		t.Fatalf("expected join notice about user 2, got %+v", joins[0].User)
	}

	// Y never observes its own join, and X's earlier join predates Y.
	if got := presenceEvents(y, models.EventUserJoined); len(got) != 0 {
		t.Fatalf("self join notification leaked: %+v", got)
	}
}

func TestRejoinIsIdempotent(t *testing.T) {
	f := newFixture(time.Second)
	x := f.connect(t, "conn-x", 1)
	f.connect(t, "conn-y", 2)
	f.join(t, "conn-x", "42")
	f.join(t, "conn-y", "42")
	f.join(t, "conn-y", "42") // re-join

	if got := presenceEvents(x, models.EventUserJoined); len(got) != 1 {
		t.Fatalf("re-join emitted a duplicate notification: %d events", len(got))
	}
	if got := len(f.core.Presence.MembersOf("42")); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}
}

func TestLeaveRemovesMembershipAndNotifiesRemaining(t *testing.T) {
	f := newFixture(time.Second)
	x := f.connect(t, "conn-x", 1)
	y := f.connect(t, "conn-y", 2)
	f.join(t, "conn-x", "42")
	f.join(t, "conn-y", "42")

	f.core.Leave("conn-y", "42")

	if f.core.Presence.IsMember("conn-y", "42") {
		t.Fatal("membership survived leave")
	}
	lefts := presenceEvents(x, models.EventUserLeft)
	if len(lefts) != 1 {
		t.Fatalf("expected exactly 1 user_left at X, got %d", len(lefts))
	}
	if lefts[0].User.ID != 2 {
		t.Fatalf("expected leave notice about user 2, got %+v", lefts[0].User)
	}
	if got := presenceEvents(y, models.EventUserLeft); len(got) != 0 {
		t.Fatalf("self leave notification leaked: %+v", got)
	}
}

func TestLeaveWithoutMembershipIsNoop(t *testing.T) {
	f := newFixture(time.Second)
	x := f.connect(t, "conn-x", 1)
	f.join(t, "conn-x", "42")

	f.core.Leave("conn-x", "99") // never joined 99

	if !f.core.Presence.IsMember("conn-x", "42") {
		t.Fatal("unrelated membership was dropped")
	}
	if got := presenceEvents(x, models.EventUserLeft); len(got) != 0 {
		t.Fatalf("unexpected user_left events: %+v", got)
	}
}

func TestRoomsOfTracksMultipleRooms(t *testing.T) {
	f := newFixture(time.Second)
	f.connect(t, "conn-x", 1)
	f.join(t, "conn-x", "42")
	f.join(t, "conn-x", "99")

	rooms := f.core.Presence.RoomsOf("conn-x")
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}
}
