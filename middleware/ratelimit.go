package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/ledgergate/internal/rate"
)

// RateLimit consults limiter once per request, keyed by client address.
// onLimited runs for each rejected request. Limiter backend failures are
// logged and the request is let through.
func RateLimit(limiter rate.Limiter, logger *slog.Logger, onLimited func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := limiter.Allow(r.Context(), ClientKey(r))
			switch {
			case err == nil:
			case errors.Is(err, rate.ErrRateLimited):
				if onLimited != nil {
					onLimited()
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			default:
				if logger != nil {
					logger.Warn("rate limiter unavailable", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey returns the host part of the request's remote address.
func ClientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
