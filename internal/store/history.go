package store

import (
	"context"

	"chat-relay/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryStore persists messages. The database assigns message IDs and
// creation timestamps.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (s *HistoryStore) Append(ctx context.Context, roomID string, userID int, content string) (models.Message, error) {
	msg := models.Message{Room: roomID, UserID: userID, Content: content}
	query := `INSERT INTO messages (room_id, user_id, content) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := s.pool.QueryRow(ctx, query, roomID, userID, content).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *HistoryStore) Recent(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	query := `
		SELECT m.id, m.room_id, m.user_id, u.username, COALESCE(u.avatar_url, ''), m.content, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Room, &msg.UserID, &msg.Username, &msg.AvatarURL, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
