package chat

import (
	"testing"
	"time"

	"chat-relay/internal/models"
)

func TestUnwindCleansUpEverything(t *testing.T) {
	f := newFixture(time.Minute)
	f.connect(t, "conn-x", 1)
	y := f.connect(t, "conn-y", 2)
	f.join(t, "conn-x", "42")
	f.join(t, "conn-x", "99")
	f.join(t, "conn-y", "42")
	if err := f.core.SetTyping("conn-x", "42", true); err != nil {
		t.Fatalf("set typing: %v", err)
	}

	f.core.Unwind("conn-x")

	if got := f.core.Presence.RoomsOf("conn-x"); len(got) != 0 {
		t.Fatalf("rooms survived unwind: %v", got)
	}
	for _, room := range []string{"42", "99"} {
		if got := f.core.Typing.CurrentTypers(room, ""); len(got) != 0 {
			t.Fatalf("typing entry survived unwind in room %s: %+v", room, got)
		}
	}
	if _, ok := f.core.Registry.IdentityOf("conn-x"); ok {
		t.Fatal("identity binding survived unwind")
	}

	// The remaining member saw the departure and the typing change.
	if got := presenceEvents(y, models.EventUserLeft); len(got) != 1 {
		t.Fatalf("expected 1 user_left at Y, got %d", len(got))
	}
	events := typingEvents(y)
	if len(events) == 0 || len(events[len(events)-1].TypingUsers) != 0 {
		t.Fatalf("typing list not cleared for remaining member: %+v", events)
	}
}

func TestUnwindNeverAuthenticated(t *testing.T) {
	f := newFixture(time.Minute)
	f.connect(t, "conn-x", 0)

	// Must not panic and must leave no state behind.
	f.core.Unwind("conn-x")

	if _, ok := f.core.Registry.SenderOf("conn-x"); ok {
		t.Fatal("sender survived unwind")
	}
}

func TestUnwindUnknownConnection(t *testing.T) {
	f := newFixture(time.Minute)
	f.core.Unwind("ghost")
}

func TestUnwindDoesNotDisturbOtherConnections(t *testing.T) {
	f := newFixture(time.Minute)
	f.connect(t, "conn-x", 1)
	f.connect(t, "conn-y", 2)
	f.join(t, "conn-x", "42")
	f.join(t, "conn-y", "42")

	f.core.Unwind("conn-x")

	if !f.core.Presence.IsMember("conn-y", "42") {
		t.Fatal("unwind of X removed Y's membership")
	}
	if _, ok := f.core.Registry.IdentityOf("conn-y"); !ok {
		t.Fatal("unwind of X dropped Y's identity")
	}
}
