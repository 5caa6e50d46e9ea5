package models

import "time"

type Message struct {
	ID        int       `json:"id"`
	Room      string    `json:"room"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
