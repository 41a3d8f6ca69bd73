package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter.
type ID uint16

const (
	DecodeFailure ID = iota
	UnknownOperation
	AuthenticationFailure
	AuthorizationFailure
	SessionNotFound
	SessionNotOwned
	SessionExpired
	GuardStoreError
	Authorized
	Dispatched
	HandlerFailure
	HandlerPanic
	SessionCreated
	SessionIDCollision
	UserCreated
	UserCreationRejected
	PasswordChanged
	PasswordRehashed
	RateLimited
	DispatchLatency
	idCount
)

// Count is the number of declared IDs.
const Count = int(idCount)

const (
	// BucketCount is the number of latency buckets, the last one being +Inf.
	BucketCount   = 8
	cacheLineSize = 64
)

type histogram struct {
	buckets [BucketCount]uint64
	sumNs   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds lock-free counters and one latency histogram. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	latency       histogram
}

// Snapshot is a point-in-time copy. Histogram buckets are non-cumulative.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
	// LatencySum is the total observed dispatch latency.
	LatencySum time.Duration
}

// New creates a [Metrics] from cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a dispatch duration. Only DispatchLatency has a histogram.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || id != DispatchLatency {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.latency.sumNs, uint64(d))
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, Count),
		Histograms: make(map[ID][]uint64, 1),
	}
	for id := ID(0); id < idCount; id++ {
		if id == DispatchLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, BucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		s.Histograms[DispatchLatency] = buckets
		s.LatencySum = time.Duration(atomic.LoadUint64(&m.latency.sumNs))
	}
	return s
}

func bucketIndex(d time.Duration) int {
	switch ms := d.Milliseconds(); {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
