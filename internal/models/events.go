package models

// Client-to-server event names.
const (
	EventAuthenticate = "authenticate"
	EventJoin         = "join"
	EventLeave        = "leave"
	EventChat         = "chat"
	EventTyping       = "typing"
)

// Server-to-client event names.
const (
	EventAuthenticated = "authenticated"
	EventHistory       = "history"
	EventRoomMembers   = "room_members"
	EventUserJoined    = "user_joined"
	EventUserLeft      = "user_left"
	EventTypingUsers   = "typing_users"
	EventError         = "error"
)

// ClientEvent is the envelope for everything a client sends over the
// socket. The event field selects the variant; unknown events never reach
// the chat core.
type ClientEvent struct {
	Event    string `json:"event"`
	Token    string `json:"token,omitempty"`
	Room     string `json:"room,omitempty"`
	Text     string `json:"text,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

type AuthenticatedEvent struct {
	Event string `json:"event"`
	User  User   `json:"user"`
}

type HistoryEvent struct {
	Event    string    `json:"event"`
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type RoomMembersEvent struct {
	Event   string `json:"event"`
	Room    string `json:"room"`
	Members []User `json:"members"`
}

// PresenceEvent announces a join or leave to the other members of a room.
type PresenceEvent struct {
	Event   string `json:"event"`
	Room    string `json:"room"`
	User    User   `json:"user"`
	Message string `json:"message"`
}

type ChatEvent struct {
	Event     string `json:"event"`
	ID        int    `json:"id"`
	Room      string `json:"room"`
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type TypingUsersEvent struct {
	Event       string `json:"event"`
	Room        string `json:"room"`
	TypingUsers []User `json:"typing_users"`
}

type ErrorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
