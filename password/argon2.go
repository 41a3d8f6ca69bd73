package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	phcAlgorithm          = "argon2id"
)

var (
	// ErrTooShort is returned by Hash when the input is below Config.MinLength.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned by Hash when the input exceeds Config.MaxLength.
	ErrTooLong = errors.New("password too long")
	// ErrInvalidHash is returned by Verify for strings that are not argon2id PHC.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Config holds the Argon2id cost parameters and the plaintext length policy.
// Lengths are counted in bytes; the input is hashed exactly as supplied.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

// DefaultConfig returns interactive-login parameters (64 MiB, t=3, p=2).
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   1,
		MaxLength:   1024,
	}
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config Config
	// dummy is verified against when no stored hash exists so that a
	// missing account costs the same as a wrong password.
	dummy string
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and precomputes the dummy hash used by
// [Argon2.Burn].
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Argon2{config: cfg}
	dummy, err := a.encode(make([]byte, 0))
	if err != nil {
		return nil, err
	}
	a.dummy = dummy
	return a, nil
}

// Validate checks the cost parameters against the package floors.
func (c Config) Validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case c.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	case c.MinLength < 1:
		return errors.New("password min length must be >= 1")
	case c.MaxLength != 0 && c.MaxLength < c.MinLength:
		return errors.New("password max length must be >= min length")
	}
	return nil
}

// CheckPolicy reports whether plaintext satisfies the length policy.
func (a *Argon2) CheckPolicy(plaintext string) error {
	if len(plaintext) < a.config.MinLength {
		return ErrTooShort
	}
	if a.config.MaxLength > 0 && len(plaintext) > a.config.MaxLength {
		return ErrTooLong
	}
	return nil
}

// Hash returns the PHC encoding of plaintext under a fresh random salt.
func (a *Argon2) Hash(plaintext string) (string, error) {
	if err := a.CheckPolicy(plaintext); err != nil {
		return "", err
	}
	return a.encode([]byte(plaintext))
}

func (a *Argon2) encode(plaintext []byte) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(plaintext, salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares plaintext against encoded in constant time. The cost
// parameters are taken from encoded, not from the receiver.
func (a *Argon2) Verify(plaintext, encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plaintext), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

// Burn performs one verification against an internal hash and discards the
// result.
func (a *Argon2) Burn(plaintext string) {
	_, _ = a.Verify(plaintext, a.dummy)
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the receiver's.
func (a *Argon2) NeedsRehash(encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != uint32(len(parsed.key)), nil
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != phcAlgorithm {
		return nil, ErrInvalidHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	out := &phc{}
	if err := out.parseParams(parts[3]); err != nil {
		return nil, err
	}

	var err error
	if out.salt, err = decodeSegment(parts[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if out.key, err = decodeSegment(parts[5]); err != nil || len(out.key) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	return out, nil
}

// decodeSegment accepts both padded and unpadded base64.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func (p *phc) parseParams(segment string) error {
	var seen int
	for _, pair := range strings.Split(segment, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}
		switch k {
		case "m":
			if n < uint64(minMemoryKB) {
				return fmt.Errorf("%w: memory below floor", ErrInvalidHash)
			}
			p.memory = uint32(n)
		case "t":
			if n < uint64(minTimeCost) {
				return fmt.Errorf("%w: time below floor", ErrInvalidHash)
			}
			p.time = uint32(n)
		case "p":
			if n < uint64(minParallelism) || n > 255 {
				return fmt.Errorf("%w: parallelism out of range", ErrInvalidHash)
			}
			p.parallelism = uint8(n)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, k)
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	return nil
}
