package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps every backend failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned by FindSession when no record exists for the id.
	ErrNotFound = errors.New("session not found")
	// ErrIDExists is returned by CreateSession when the id is already taken.
	ErrIDExists = errors.New("session id already exists")
)

// DefaultRetention keeps a record past its expiry so that late requests are
// reported as expired rather than unknown.
const DefaultRetention = 24 * time.Hour

const minTTL = time.Second

// createSessionScript stores the record only if the id is free and indexes
// it under its owner.
const createSessionScript = `
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
  redis.call("SADD", KEYS[2], ARGV[3])
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
  return 1
end
return 0
`

var createSessionLua = redis.NewScript(createSessionScript)

// Store is a Redis-backed session store. Records are immutable once written
// and expire on their own after Until plus the retention window.
//
//	Docs: docs/session.md
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewStore creates a session [Store]. prefix sets the key namespace;
// retention <= 0 selects [DefaultRetention].
func NewStore(rdb redis.UniversalClient, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = "lg:s"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		redis:     rdb,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) userKey(user string) string {
	return s.prefix + ":u:" + user
}

// CreateSession persists sess under sess.ID. It never overwrites: an existing id
// yields [ErrIDExists] and the caller is expected to retry with a new id.
//
//	Performance: 1 Lua script (SET NX + SADD).
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return errors.New("session: empty id")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ttl := sess.Lifetime() + s.retention
	if ttl < minTTL {
		ttl = minTTL
	}

	created, err := createSessionLua.Run(ctx, s.redis,
		[]string{s.key(sess.ID), s.userKey(sess.User)},
		data, ttl.Milliseconds(), sess.ID,
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrIDExists
	}
	return nil
}

// FindSession loads the session stored under id. Expired sessions inside the
// retention window are returned as-is; validity is the caller's decision.
//
//	Performance: 1 Redis GET.
func (s *Store) FindSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.ID = id
	return sess, nil
}

// CountForUser returns the number of session ids indexed under user,
// including expired ones still inside the retention window.
func (s *Store) CountForUser(ctx context.Context, user string) (int64, error) {
	n, err := s.redis.SCard(ctx, s.userKey(user)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Ping checks backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
