package store

import (
	"context"
	"errors"

	"chat-relay/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomStore owns room metadata and long-term room membership.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func (s *RoomStore) Find(ctx context.Context, roomID string) (models.Room, bool, error) {
	var room models.Room
	query := `SELECT id, name, COALESCE(description, ''), created_by, created_at FROM rooms WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, roomID).Scan(&room.ID, &room.Name, &room.Description, &room.CreatedBy, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Room{}, false, nil
	}
	if err != nil {
		return models.Room{}, false, err
	}
	return room, true, nil
}

func (s *RoomStore) Create(ctx context.Context, name, description string, createdBy int) (models.Room, error) {
	room := models.Room{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
	}
	query := `INSERT INTO rooms (id, name, description, created_by) VALUES ($1, $2, $3, $4) RETURNING created_at`
	if err := s.pool.QueryRow(ctx, query, room.ID, room.Name, room.Description, room.CreatedBy).Scan(&room.CreatedAt); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (s *RoomStore) List(ctx context.Context) ([]models.RoomListItem, error) {
	query := `
		SELECT r.id, r.name, COALESCE(r.description, ''), r.created_by, r.created_at, COUNT(m.user_id)
		FROM rooms r
		LEFT JOIN room_members m ON r.id = m.room_id
		GROUP BY r.id
		ORDER BY r.created_at
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.RoomListItem
	for rows.Next() {
		var item models.RoomListItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.CreatedBy, &item.CreatedAt, &item.MemberCount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddMember records long-term membership. Re-adding an existing member is
// a no-op.
func (s *RoomStore) AddMember(ctx context.Context, roomID string, userID int) error {
	query := `INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := s.pool.Exec(ctx, query, roomID, userID)
	return err
}

func (s *RoomStore) Members(ctx context.Context, roomID string) ([]models.User, error) {
	query := `
		SELECT u.id, u.username, COALESCE(u.avatar_url, ''), u.created_at
		FROM room_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY u.username
	`
	rows, err := s.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.AvatarURL, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
