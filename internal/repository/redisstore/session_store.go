package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"procedure-qa-be/internal/repository/contract"
	"procedure-qa-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "qa:session:"

// SessionStore persists sessions in Redis so resolution state survives
// process restarts and can be shared across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	session.LastAccessed = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.key(session.ID), raw, s.ttl).Err()
}

// Add writes with SETNX so a concurrent first request on the same id
// cannot overwrite state another instance just created.
func (s *SessionStore) Add(ctx context.Context, session *store.Session) error {
	session.LastAccessed = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.SetNX(ctx, s.key(session.ID), raw, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, err
	}

	var session store.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	session.LastAccessed = time.Now()
	// Slide the TTL on every read.
	if err := s.client.Expire(ctx, s.key(sessionID), s.ttl).Err(); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) Update(ctx context.Context, sessionID string, fn func(*store.Session) error) error {
	// Optimistic locking via WATCH. Retried a few times on contention.
	key := s.key(sessionID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return contract.ErrSessionNotFound
			}
			return err
		}

		var session store.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}

		if err := fn(&session); err != nil {
			return err
		}

		session.LastAccessed = time.Now()
		updated, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("session update contention on %s", sessionID)
}
