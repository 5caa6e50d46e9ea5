package store

import (
	"context"
	"errors"

	"chat-relay/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityStore resolves users from the users table.
type IdentityStore struct {
	pool *pgxpool.Pool
}

func NewIdentityStore(pool *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

func (s *IdentityStore) FindUser(ctx context.Context, userID int) (models.User, bool, error) {
	var user models.User
	query := `SELECT id, username, COALESCE(avatar_url, ''), created_at FROM users WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Username, &user.AvatarURL, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}
