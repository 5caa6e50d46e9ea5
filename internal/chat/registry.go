package chat

import (
	"context"
	"fmt"
	"sync"

	"chat-relay/internal/models"
)

type connBinding struct {
	sender Sender
	user   *models.User // nil until authenticated
}

// ConnectionRegistry binds live connections to authenticated identities.
// A connection authenticates at most once for its lifetime; the binding is
// released only by Forget.
type ConnectionRegistry struct {
	identities IdentityStore

	mu    sync.RWMutex
	conns map[string]*connBinding
}

func NewConnectionRegistry(identities IdentityStore) *ConnectionRegistry {
	return &ConnectionRegistry{
		identities: identities,
		conns:      make(map[string]*connBinding),
	}
}

// Register stores the transport handle for a new connection. It must be
// called before any other operation on that connection.
func (r *ConnectionRegistry) Register(connID string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &connBinding{sender: sender}
}

// Authenticate resolves userID through the identity store and binds the
// result to the connection. Rebinding is immutable: a second call fails
// with ErrAlreadyAuthenticated no matter which user it names.
func (r *ConnectionRegistry) Authenticate(ctx context.Context, connID string, userID int) (models.User, error) {
	r.mu.RLock()
	b, ok := r.conns[connID]
	bound := ok && b.user != nil
	r.mu.RUnlock()

	if !ok {
		return models.User{}, ErrNotAuthenticated
	}
	if bound {
		return models.User{}, ErrAlreadyAuthenticated
	}

	user, found, err := r.identities.FindUser(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if !found {
		return models.User{}, ErrUnknownUser
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok = r.conns[connID]
	if !ok {
		// Connection closed while the lookup was in flight.
		return models.User{}, ErrNotAuthenticated
	}
	if b.user != nil {
		return models.User{}, ErrAlreadyAuthenticated
	}
	b.user = &user
	return user, nil
}

// IdentityOf returns the identity bound to the connection, if any.
func (r *ConnectionRegistry) IdentityOf(connID string) (models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[connID]; ok && b.user != nil {
		return *b.user, true
	}
	return models.User{}, false
}

// SenderOf returns the transport handle for the connection, if it is still
// registered.
func (r *ConnectionRegistry) SenderOf(connID string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[connID]; ok {
		return b.sender, true
	}
	return nil, false
}

// Forget releases the binding. Idempotent.
func (r *ConnectionRegistry) Forget(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

// IsUserOnline reports whether any open connection is bound to the user.
func (r *ConnectionRegistry) IsUserOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.conns {
		if b.user != nil && b.user.ID == userID {
			return true
		}
	}
	return false
}
