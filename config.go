package ledgergate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/ledgergate/password"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/sessionkey"
)

/*
====================================
CONFIG TYPES
====================================
*/

// Config is the complete gateway configuration. It is copied at Build and
// never read again through the caller's value.
type Config struct {
	Session  SessionConfig
	Password PasswordConfig
	Account  AccountConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// SessionConfig controls session lifetime, storage and key signing.
type SessionConfig struct {
	// Lifetime is the fixed validity window of a new session.
	Lifetime time.Duration
	// RedisPrefix namespaces session keys in Redis.
	RedisPrefix string
	// Retention keeps expired records readable so late requests are told
	// the session expired.
	Retention time.Duration
	// IDAttempts bounds id generation when the store reports a collision.
	IDAttempts int

	// SigningSecret signs session keys. When empty, Build generates a
	// random secret; keys then do not survive a restart.
	SigningSecret []byte
	Issuer        string
	KeyID         string
	VerifyKeys    map[string][]byte
}

// PasswordConfig holds argon2id parameters and the plaintext length policy.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
	// UpgradeOnLogin rehashes a stored password during the session operation
	// when its parameters differ from the current ones.
	UpgradeOnLogin bool
}

// AccountConfig controls user provisioning.
type AccountConfig struct {
	RedisPrefix string
	// DefaultPermission applies when new_user does not name a level.
	DefaultPermission permission.Level
}

// AuditConfig controls audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used when WithConfig is not called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Session: SessionConfig{
			Lifetime:    time.Hour,
			RedisPrefix: "lg:s",
			Retention:   24 * time.Hour,
			IDAttempts:  3,
			Issuer:      sessionkey.DefaultIssuer,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      pw.MinLength,
			MaxLength:      pw.MaxLength,
			UpgradeOnLogin: true,
		},
		Account: AccountConfig{
			RedisPrefix:       "lg:u",
			DefaultPermission: permission.User,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.SigningSecret = cloneBytes(cfg.Session.SigningSecret)
	if cfg.Session.VerifyKeys != nil {
		out.Session.VerifyKeys = make(map[string][]byte, len(cfg.Session.VerifyKeys))
		for kid, key := range cfg.Session.VerifyKeys {
			out.Session.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c PasswordConfig) argon2() password.Config {
	return password.Config{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
		MinLength:   c.MinLength,
		MaxLength:   c.MaxLength,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.Retention < 0 {
		return errors.New("Session Retention must be >= 0")
	}
	if c.Session.IDAttempts <= 0 {
		return errors.New("Session IDAttempts must be > 0")
	}
	if len(c.Session.SigningSecret) > 0 && len(c.Session.SigningSecret) < sessionkey.MinSecretLength {
		return fmt.Errorf("Session SigningSecret must be at least %d bytes", sessionkey.MinSecretLength)
	}
	if len(c.Session.VerifyKeys) > 0 && c.Session.KeyID == "" {
		return errors.New("Session VerifyKeys requires KeyID")
	}

	// Password
	if err := c.Password.argon2().Validate(); err != nil {
		return fmt.Errorf("Password: %w", err)
	}

	// Account
	if !c.Account.DefaultPermission.Valid() {
		return errors.New("Account DefaultPermission is not a known level")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
