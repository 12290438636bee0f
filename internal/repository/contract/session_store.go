package contract

import (
	"context"
	"errors"

	"procedure-qa-be/pkg/store"
)

// ErrSessionNotFound covers both an unknown session id and one whose TTL
// elapsed. Callers treat the two identically and start a fresh session.
var ErrSessionNotFound = errors.New("session not found or expired")

// SessionStore holds per-conversation state with a sliding TTL. Every Get
// renews the expiration clock.
type SessionStore interface {
	Save(ctx context.Context, session *store.Session) error
	// Add stores the session only when the id is absent, so two concurrent
	// first requests on one id cannot clobber each other's state.
	Add(ctx context.Context, session *store.Session) error
	Get(ctx context.Context, sessionID string) (*store.Session, error)
	Delete(ctx context.Context, sessionID string) error
	// Update applies fn to the session under the store's lock so two
	// concurrent requests on one id cannot interleave their writes. This is
	// the only write path that preserves read-modify-write atomicity.
	Update(ctx context.Context, sessionID string, fn func(*store.Session) error) error
}
