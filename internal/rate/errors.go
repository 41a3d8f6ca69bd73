package rate

import "errors"

var (
	// ErrRateLimited is returned when a key has exhausted its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps backend failures of the Redis window.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
