package sessions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
)

const defaultTTL = 60 * time.Minute

// Registry keeps live sessions in memory. A session expires after ttl
// without being looked up.
type Registry struct {
	sessions *cache.Cache
	ttl      time.Duration
	newFn    func() ports.ChatSession
}

func NewRegistry(ttl time.Duration, newFn func() ports.ChatSession, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(id string, _ any) {
		logger.Info("session_expired", "session_id", id)
	})
	return &Registry{sessions: c, ttl: ttl, newFn: newFn}
}

func (r *Registry) Create() (ports.ChatSession, error) {
	session := r.newFn()
	if err := r.sessions.Add(session.ID(), session, r.ttl); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	return session, nil
}

func (r *Registry) Get(id string) (ports.ChatSession, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id=%s", id))
	}
	session, ok := v.(ports.ChatSession)
	if !ok {
		return nil, fmt.Errorf("session %s has unexpected type %T", id, v)
	}
	r.sessions.Set(id, session, r.ttl)
	return session, nil
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}
