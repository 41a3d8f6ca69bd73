// Package config loads the ledgergated daemon configuration from a YAML
// file and LEDGERGATE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/ledgergate"
	"github.com/MrEthical07/ledgergate/internal/logging"
	"github.com/MrEthical07/ledgergate/permission"
	"gopkg.in/yaml.v3"
)

// Config is the resolved daemon configuration.
type Config struct {
	Listen       string
	MaxBodyBytes int64

	Redis     RedisConfig
	Session   SessionConfig
	Password  PasswordConfig
	Account   AccountConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Audit     AuditConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	Lifetime      time.Duration
	Retention     time.Duration
	SigningSecret string
	Issuer        string
	KeyID         string
}

type PasswordConfig struct {
	MemoryKB       uint32
	Time           uint32
	Parallelism    uint8
	MinLength      int
	UpgradeOnLogin bool
}

type AccountConfig struct {
	DefaultPermission permission.Level
}

// RateLimitConfig configures per-client throttling. RPS <= 0 disables the
// in-process bucket; WindowMax <= 0 disables the shared Redis window.
type RateLimitConfig struct {
	RPS       float64
	Burst     int
	WindowMax int
	Window    time.Duration
}

type LogConfig struct {
	Level            string
	Format           string
	FingerprintUsers bool
}

type AuditConfig struct {
	Enabled bool
	// Path receives JSON lines; empty logs audit events through slog.
	Path string
}

// file mirrors the YAML document. Pointers distinguish "unset" from zero.
type file struct {
	Listen       string `yaml:"listen"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
	Redis        struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Session struct {
		LifetimeHours  float64 `yaml:"lifetimeHours"`
		RetentionHours float64 `yaml:"retentionHours"`
		SigningSecret  string  `yaml:"signingSecret"`
		Issuer         string  `yaml:"issuer"`
		KeyID          string  `yaml:"keyId"`
	} `yaml:"session"`
	Password struct {
		MemoryKB       uint32 `yaml:"memoryKB"`
		Time           uint32 `yaml:"time"`
		Parallelism    uint8  `yaml:"parallelism"`
		MinLength      int    `yaml:"minLength"`
		UpgradeOnLogin *bool  `yaml:"upgradeOnLogin"`
	} `yaml:"password"`
	Account struct {
		DefaultPermission string `yaml:"defaultPermission"`
	} `yaml:"account"`
	RateLimit struct {
		RPS       *float64      `yaml:"rps"`
		Burst     *int          `yaml:"burst"`
		WindowMax int           `yaml:"windowMax"`
		Window    time.Duration `yaml:"window"`
	} `yaml:"rateLimit"`
	Log struct {
		Level            string `yaml:"level"`
		Format           string `yaml:"format"`
		FingerprintUsers *bool  `yaml:"fingerprintUsers"`
	} `yaml:"log"`
	Audit struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"audit"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	gw := ledgergate.DefaultConfig()
	return Config{
		Listen:       ":8080",
		MaxBodyBytes: 1 << 20,
		Redis:        RedisConfig{Addr: "localhost:6379"},
		Session: SessionConfig{
			Lifetime:  gw.Session.Lifetime,
			Retention: gw.Session.Retention,
			Issuer:    gw.Session.Issuer,
		},
		Password: PasswordConfig{
			MemoryKB:       gw.Password.Memory,
			Time:           gw.Password.Time,
			Parallelism:    gw.Password.Parallelism,
			MinLength:      gw.Password.MinLength,
			UpgradeOnLogin: gw.Password.UpgradeOnLogin,
		},
		Account:   AccountConfig{DefaultPermission: gw.Account.DefaultPermission},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40, Window: time.Minute},
		Log:       LogConfig{Level: "info", Format: "json", FingerprintUsers: true},
		Audit:     AuditConfig{Enabled: true},
	}
}

// Load reads path when non-empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ApplyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse merges a YAML document into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	var parsed file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&parsed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return merge(cfg, &parsed)
}

func merge(dst *Config, src *file) error {
	if src.Listen != "" {
		dst.Listen = src.Listen
	}
	if src.MaxBodyBytes != 0 {
		dst.MaxBodyBytes = src.MaxBodyBytes
	}
	if src.Redis.Addr != "" {
		dst.Redis.Addr = src.Redis.Addr
	}
	if src.Redis.Password != "" {
		dst.Redis.Password = src.Redis.Password
	}
	if src.Redis.DB != 0 {
		dst.Redis.DB = src.Redis.DB
	}

	if src.Session.LifetimeHours != 0 {
		dst.Session.Lifetime = hours(src.Session.LifetimeHours)
	}
	if src.Session.RetentionHours != 0 {
		dst.Session.Retention = hours(src.Session.RetentionHours)
	}
	if src.Session.SigningSecret != "" {
		dst.Session.SigningSecret = src.Session.SigningSecret
	}
	if src.Session.Issuer != "" {
		dst.Session.Issuer = src.Session.Issuer
	}
	if src.Session.KeyID != "" {
		dst.Session.KeyID = src.Session.KeyID
	}

	if src.Password.MemoryKB != 0 {
		dst.Password.MemoryKB = src.Password.MemoryKB
	}
	if src.Password.Time != 0 {
		dst.Password.Time = src.Password.Time
	}
	if src.Password.Parallelism != 0 {
		dst.Password.Parallelism = src.Password.Parallelism
	}
	if src.Password.MinLength != 0 {
		dst.Password.MinLength = src.Password.MinLength
	}
	if src.Password.UpgradeOnLogin != nil {
		dst.Password.UpgradeOnLogin = *src.Password.UpgradeOnLogin
	}

	if src.Account.DefaultPermission != "" {
		level, err := permission.ParseLevel(src.Account.DefaultPermission)
		if err != nil {
			return fmt.Errorf("account.defaultPermission: %w", err)
		}
		dst.Account.DefaultPermission = level
	}

	if src.RateLimit.RPS != nil {
		dst.RateLimit.RPS = *src.RateLimit.RPS
	}
	if src.RateLimit.Burst != nil {
		dst.RateLimit.Burst = *src.RateLimit.Burst
	}
	if src.RateLimit.WindowMax != 0 {
		dst.RateLimit.WindowMax = src.RateLimit.WindowMax
	}
	if src.RateLimit.Window != 0 {
		dst.RateLimit.Window = src.RateLimit.Window
	}

	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
	if src.Log.FingerprintUsers != nil {
		dst.Log.FingerprintUsers = *src.Log.FingerprintUsers
	}

	if src.Audit.Enabled != nil {
		dst.Audit.Enabled = *src.Audit.Enabled
	}
	if src.Audit.Path != "" {
		dst.Audit.Path = src.Audit.Path
	}
	return nil
}

// ApplyEnvOverrides applies LEDGERGATE_* variables read through lookup.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup("LEDGERGATE_" + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("LISTEN"); ok {
		cfg.Listen = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
	if v, ok := get("SIGNING_SECRET"); ok {
		cfg.Session.SigningSecret = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := get("SESSION_LIFETIME_HOURS"); ok {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LEDGERGATE_SESSION_LIFETIME_HOURS: %w", err)
		}
		cfg.Session.Lifetime = hours(h)
	}
	if v, ok := get("RATE_LIMIT_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LEDGERGATE_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = rps
	}
	return nil
}

// Validate checks daemon-only settings. Gateway settings are validated
// again by the builder.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address must be set")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("maxBodyBytes must be > 0")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be > 0")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return errors.New("rateLimit.burst must be > 0 when rps is set")
	}
	if c.RateLimit.WindowMax > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rateLimit.window must be > 0 when windowMax is set")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Gateway maps the daemon configuration onto a gateway configuration.
func (c Config) Gateway() ledgergate.Config {
	gw := ledgergate.DefaultConfig()
	gw.Session.Lifetime = c.Session.Lifetime
	gw.Session.Retention = c.Session.Retention
	gw.Session.Issuer = c.Session.Issuer
	gw.Session.KeyID = c.Session.KeyID
	if c.Session.SigningSecret != "" {
		gw.Session.SigningSecret = []byte(c.Session.SigningSecret)
	}
	gw.Password.Memory = c.Password.MemoryKB
	gw.Password.Time = c.Password.Time
	gw.Password.Parallelism = c.Password.Parallelism
	gw.Password.MinLength = c.Password.MinLength
	gw.Password.UpgradeOnLogin = c.Password.UpgradeOnLogin
	gw.Account.DefaultPermission = c.Account.DefaultPermission
	gw.Audit.Enabled = c.Audit.Enabled
	return gw
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
