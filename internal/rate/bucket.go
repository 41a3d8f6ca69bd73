package rate

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Buckets applies an in-process token bucket per key and evicts idle keys.
// A nil *Buckets allows everything.
type Buckets struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewBuckets returns nil when rps or burst is not positive.
func NewBuckets(rps float64, burst int, idleTTL time.Duration) *Buckets {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Buckets{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		byKey:   make(map[string]*bucket),
	}
}

// Allow consumes one token for key. Empty keys are not limited.
func (b *Buckets) Allow(_ context.Context, key string) error {
	if b == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.byKey[key]
	if !ok {
		e = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	b.hits++
	if b.hits%512 == 0 {
		cutoff := now.Add(-b.idleTTL)
		for k, v := range b.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(b.byKey, k)
			}
		}
	}

	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// Len returns the number of tracked keys.
func (b *Buckets) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKey)
}
