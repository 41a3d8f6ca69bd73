package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "lg:s", time.Hour), mr
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 123)
	sess := New("sid-1", "alice", now, 3*time.Hour)

	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.FindSession(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "sid-1" || got.User != "alice" {
		t.Fatalf("unexpected session %+v", got)
	}
	if !got.Registered.Equal(now) || !got.Until.Equal(now.Add(3*time.Hour)) {
		t.Fatalf("timestamps not preserved: %+v", got)
	}
	if got.Lifetime() != 3*time.Hour {
		t.Fatalf("lifetime = %v", got.Lifetime())
	}

	n, err := store.CountForUser(ctx, "alice")
	if err != nil || n != 1 {
		t.Fatalf("CountForUser = %d, %v", n, err)
	}
}

func TestCreateNeverOverwrites(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, New("sid-1", "alice", now, time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.CreateSession(ctx, New("sid-1", "mallory", now, time.Hour))
	if !errors.Is(err, ErrIDExists) {
		t.Fatalf("expected ErrIDExists, got %v", err)
	}

	got, err := store.FindSession(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.User != "alice" {
		t.Fatalf("record overwritten: owner %q", got.User)
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	if _, err := store.FindSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordOutlivesExpiryByRetention(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, New("sid-1", "alice", now, time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(90 * time.Minute)
	got, err := store.FindSession(ctx, "sid-1")
	if err != nil {
		t.Fatalf("expected record inside retention window, got %v", err)
	}
	if got.ValidAt(now.Add(90 * time.Minute)) {
		t.Fatal("session must not be valid after Until")
	}

	mr.FastForward(time.Hour)
	if _, err := store.FindSession(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record to be gone after retention, got %v", err)
	}
}

func TestCorruptRecord(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	if err := mr.Set("lg:s:bad", "garbage"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.FindSession(context.Background(), "bad"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })
	store := NewStore(rdb, "", 0)

	ctx := context.Background()
	if _, err := store.FindSession(ctx, "sid"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from FindSession, got %v", err)
	}
	if err := store.CreateSession(ctx, New("sid", "alice", time.Now(), time.Hour)); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from CreateSession, got %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Ping, got %v", err)
	}
}

func TestValidityBoundary(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New("sid", "alice", now, time.Hour)

	for _, eps := range []time.Duration{time.Nanosecond, time.Millisecond, time.Minute} {
		if !s.ValidAt(s.Until.Add(-eps)) {
			t.Fatalf("expected valid at until-%v", eps)
		}
		if s.ValidAt(s.Until.Add(eps)) {
			t.Fatalf("expected invalid at until+%v", eps)
		}
	}
	if s.ValidAt(s.Until) {
		t.Fatal("expected invalid exactly at until")
	}
}
