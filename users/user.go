package users

import (
	"errors"
	"time"

	"github.com/MrEthical07/ledgergate/permission"
)

// MaxNameLength bounds user names in bytes.
const MaxNameLength = 64

var (
	// ErrNotFound is returned when no user has the requested name.
	ErrNotFound = errors.New("user not found")
	// ErrExists is returned by CreateUser for a name that is already taken.
	ErrExists = errors.New("user already exists")
	// ErrInvalidName is returned for names outside [A-Za-z0-9_.@-]{1,64}.
	ErrInvalidName = errors.New("invalid user name")
	// ErrRedisUnavailable wraps every backend failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrCorrupt is returned when a stored record cannot be parsed.
	ErrCorrupt = errors.New("user record corrupt")
)

// User is a stored identity. PasswordHash is an argon2id PHC string.
type User struct {
	Name         string
	PasswordHash string
	Permission   permission.Level
	CreatedAt    time.Time
}

// ValidateName checks the shape of a user name.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return ErrInvalidName
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '@', c == '-':
		default:
			return ErrInvalidName
		}
	}
	return nil
}
