package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"procedure-qa-be/internal/repository/contract"
	"procedure-qa-be/pkg/store"
)

func newTestSession(id string) *store.Session {
	return &store.Session{
		ID:        id,
		CreatedAt: time.Now(),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Minute)

	if err := s.Save(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("ID = %q, want %q", got.ID, "s1")
	}
	if got.LastAccessed.IsZero() {
		t.Error("LastAccessed not set on Get")
	}
}

func TestSessionStore_GetUnknown(t *testing.T) {
	s := NewSessionStore(time.Minute)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, contract.ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(50 * time.Millisecond)

	if err := s.Save(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	_, err := s.Get(ctx, "s1")
	if !errors.Is(err, contract.ErrSessionNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_GetSlidesTTL(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(100 * time.Millisecond)

	if err := s.Save(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Keep touching the session past the original deadline.
	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		if _, err := s.Get(ctx, "s1"); err != nil {
			t.Fatalf("Get() on touch %d error = %v", i, err)
		}
	}
}

func TestSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Minute)

	if err := s.Save(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := s.Get(ctx, "s1")
	if !errors.Is(err, contract.ErrSessionNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_GetReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Minute)

	saved := newTestSession("s1")
	saved.History = []store.Turn{{Query: "first"}}
	if err := s.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	a, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	a.TurnCount = 99
	a.History = append(a.History, store.Turn{Query: "second"})
	a.RoutingContext = &store.RoutingContext{CollectionID: "x"}

	b, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if b.TurnCount != 0 || len(b.History) != 1 || b.RoutingContext != nil {
		t.Errorf("mutation of one snapshot leaked into another: %+v", b)
	}
}

func TestSessionStore_AddDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Minute)

	existing := newTestSession("s1")
	existing.TurnCount = 3
	if err := s.Save(ctx, existing); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Add(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TurnCount != 3 {
		t.Errorf("TurnCount = %d, Add overwrote an existing session", got.TurnCount)
	}
}

func TestSessionStore_UpdateConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Minute)

	if err := s.Save(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "s1", func(session *store.Session) error {
				session.TurnCount++
				return nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TurnCount != writers {
		t.Errorf("TurnCount = %d, want %d", got.TurnCount, writers)
	}
}

func TestSessionStore_UpdatePropagatesError(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Minute)

	if err := s.Save(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	wantErr := errors.New("turn cap reached")
	err := s.Update(ctx, "s1", func(*store.Session) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Update() error = %v, want %v", err, wantErr)
	}
}
