// Package logging wraps slog handlers so credentials never reach a log sink.
package logging

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// Redacted replaces the value of every sensitive attribute.
const Redacted = "[REDACTED]"

var sensitiveKeyParts = []string{"password", "secret", "token", "session_key", "authorization"}

// Options controls a SanitizingHandler.
type Options struct {
	// FingerprintUsers replaces "user" values with a per-process
	// fingerprint under the key "user_fp".
	FingerprintUsers bool
}

// SanitizingHandler redacts sensitive attributes before delegating.
type SanitizingHandler struct {
	next  slog.Handler
	opts  Options
	nonce string
}

// Wrap returns next wrapped in a SanitizingHandler. Wrapping an already
// sanitizing handler returns it unchanged.
func Wrap(next slog.Handler, opts Options) slog.Handler {
	if next == nil {
		return nil
	}
	if h, ok := next.(*SanitizingHandler); ok {
		return h
	}
	return &SanitizingHandler{next: next, opts: opts, nonce: randomNonce()}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(h.sanitize(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		clean = append(clean, h.sanitize(attr))
	}
	return &SanitizingHandler{next: h.next.WithAttrs(clean), opts: h.opts, nonce: h.nonce}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name), opts: h.opts, nonce: h.nonce}
}

func (h *SanitizingHandler) sanitize(attr slog.Attr) slog.Attr {
	key := strings.ToLower(strings.TrimSpace(attr.Key))
	switch {
	case IsSensitiveKey(key):
		return slog.String(attr.Key, Redacted)
	case h.opts.FingerprintUsers && key == "user":
		return slog.String(attr.Key+"_fp", h.fingerprint(attr.Value.Resolve().String()))
	case attr.Value.Kind() == slog.KindGroup:
		group := attr.Value.Group()
		clean := make([]any, 0, len(group))
		for _, a := range group {
			clean = append(clean, h.sanitize(a))
		}
		return slog.Group(attr.Key, clean...)
	}
	return attr
}

func (h *SanitizingHandler) fingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value + "|" + h.nonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// ParseLevel maps a configuration string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
