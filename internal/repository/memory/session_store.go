package memory

import (
	"context"
	"sync"
	"time"

	"procedure-qa-be/internal/repository/contract"
	"procedure-qa-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionStore keeps sessions in process memory with a sliding TTL.
// Each Get re-sets the entry so active conversations never expire mid-dialogue.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	// Purge sweep at a tenth of the TTL keeps the map from holding
	// long-dead sessions between accesses.
	c := cache.New(ttl, ttl/10)
	s := &SessionStore{
		cache: c,
		ttl:   ttl,
		locks: make(map[string]*sync.Mutex),
	}
	c.OnEvicted(func(key string, _ interface{}) {
		s.mu.Lock()
		delete(s.locks, key)
		s.mu.Unlock()
	})
	return s
}

func (s *SessionStore) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// Save stores a clone so later mutation of the caller's pointer cannot
// reach into the cache.
func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	session.LastAccessed = time.Now()
	s.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *SessionStore) Add(ctx context.Context, session *store.Session) error {
	session.LastAccessed = time.Now()
	// An existing entry wins; the caller proceeds through Update either way.
	_ = s.cache.Add(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

// Get returns a clone. Cached sessions are never mutated in place, only
// replaced whole through Save, so concurrent reads stay safe.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	x, found := s.cache.Get(sessionID)
	if !found {
		return nil, contract.ErrSessionNotFound
	}
	stored := x.(*store.Session)
	// Re-set to slide the expiration window.
	s.cache.Set(sessionID, stored, cache.DefaultExpiration)

	session := stored.Clone()
	session.LastAccessed = time.Now()
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

func (s *SessionStore) Update(ctx context.Context, sessionID string, fn func(*store.Session) error) error {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	return s.Save(ctx, session)
}
