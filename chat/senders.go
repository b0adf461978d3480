package chat

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

// sender is a cached projection and the number of open connections holding it
type sender struct {
	profile SenderProfile
	refs    int
}

// Senders caches the projection attached to outbound messages so that sending does
// not cost a user lookup. An entry lives while its user has at least one admitted
// connection; the next admission after that reloads it.
type Senders struct {
	users databases.UserDatabase

	mu    sync.RWMutex
	cache map[primitive.ObjectID]*sender
}

// NewSenders creates an empty sender cache backed by users
func NewSenders(users databases.UserDatabase) *Senders {
	return &Senders{
		users: users,
		cache: make(map[primitive.ObjectID]*sender),
	}
}

func profileOf(u *models.User) SenderProfile {
	return SenderProfile{ID: u.ID.Hex(), Name: u.Name}
}

// Acquire stores the projection of u for one more connection and returns it. The
// freshly loaded record replaces whatever was cached.
func (s *Senders) Acquire(u *models.User) SenderProfile {
	p := profileOf(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[u.ID]
	if !ok {
		entry = &sender{}
		s.cache[u.ID] = entry
	}
	entry.profile = p
	entry.refs++
	return p
}

// Release drops one connection's hold on id, evicting the entry with the last one
func (s *Senders) Release(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.cache, id)
	}
}

// Len reports how many users are cached
func (s *Senders) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Resolve returns the projection for id. Users without a connection are loaded from
// the store and not cached. When the user cannot be loaded the projection carries
// the id alone.
func (s *Senders) Resolve(ctx context.Context, id primitive.ObjectID) SenderProfile {
	s.mu.RLock()
	entry, ok := s.cache[id]
	var p SenderProfile
	if ok {
		p = entry.profile
	}
	s.mu.RUnlock()
	if ok {
		return p
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		zap.S().Warnw("failed to resolve message sender", "userId", id.Hex(), "error", err)
		return SenderProfile{ID: id.Hex()}
	}
	return profileOf(u)
}
