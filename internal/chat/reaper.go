package chat

// DisconnectReaper unwinds everything a closed connection left behind:
// presence in every room, typing entries, and the identity binding.
type DisconnectReaper struct {
	registry *ConnectionRegistry
	presence *RoomPresenceTracker
	typing   *TypingAggregator
}

func NewDisconnectReaper(registry *ConnectionRegistry, presence *RoomPresenceTracker, typing *TypingAggregator) *DisconnectReaper {
	return &DisconnectReaper{registry: registry, presence: presence, typing: typing}
}

// Unwind is called exactly once per transport close. It is a no-op for
// connections that never authenticated or never joined a room.
func (d *DisconnectReaper) Unwind(connID string) {
	for _, roomID := range d.presence.RoomsOf(connID) {
		d.presence.Leave(connID, roomID)
		d.typing.Clear(connID, roomID)
	}
	d.registry.Forget(connID)
}
