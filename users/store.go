package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/ledgergate/permission"
	"github.com/redis/go-redis/v9"
)

const (
	fieldPasswordHash = "password_hash"
	fieldPermission   = "permission"
	fieldCreatedAt    = "created_at"
)

const createUserScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "password_hash", ARGV[1], "permission", ARGV[2], "created_at", ARGV[3])
return 1
`

const updatePasswordScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "password_hash", ARGV[1])
return 1
`

var (
	createUserLua     = redis.NewScript(createUserScript)
	updatePasswordLua = redis.NewScript(updatePasswordScript)
)

// Store keeps one Redis hash per user. Writes are single Lua scripts, so a
// create or password change is committed before the call returns.
//
//	Docs: docs/users.md
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a user [Store]; prefix sets the key namespace.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "lg:u"
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

// FindUserByName loads the user called name.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) FindUserByName(ctx context.Context, name string) (*User, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	hash := fields[fieldPasswordHash]
	if hash == "" {
		return nil, ErrCorrupt
	}
	lvl, err := strconv.ParseUint(fields[fieldPermission], 10, 8)
	if err != nil || !permission.Level(lvl).Valid() {
		return nil, ErrCorrupt
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}

	return &User{
		Name:         name,
		PasswordHash: hash,
		Permission:   permission.Level(lvl),
		CreatedAt:    time.Unix(created, 0).UTC(),
	}, nil
}

// CreateUser inserts u. It fails with [ErrExists] if the name is taken and with
// [ErrInvalidName] if the name has the wrong shape.
//
//	Performance: 1 Lua script (EXISTS + HSET).
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	if !u.Permission.Valid() {
		return fmt.Errorf("users: invalid permission %d", u.Permission)
	}
	if u.PasswordHash == "" {
		return errors.New("users: empty password hash")
	}

	created, err := createUserLua.Run(ctx, s.redis,
		[]string{s.key(u.Name)},
		u.PasswordHash, uint8(u.Permission), u.CreatedAt.Unix(),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrExists
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash of an existing user.
//
//	Performance: 1 Lua script (EXISTS + HSET).
func (s *Store) UpdatePasswordHash(ctx context.Context, name, hash string) error {
	if hash == "" {
		return errors.New("users: empty password hash")
	}

	updated, err := updatePasswordLua.Run(ctx, s.redis, []string{s.key(name)}, hash).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
