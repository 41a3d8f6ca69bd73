package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestIncAndSnapshot(t *testing.T) {
	m := New(Config{Enabled: true})

	m.Inc(AuthenticationFailure)
	m.Inc(AuthenticationFailure)
	m.Inc(Dispatched)
	m.Inc(ID(9999))

	snap := m.Snapshot()
	if snap.Counters[AuthenticationFailure] != 2 {
		t.Fatalf("AuthenticationFailure = %d", snap.Counters[AuthenticationFailure])
	}
	if snap.Counters[Dispatched] != 1 {
		t.Fatalf("Dispatched = %d", snap.Counters[Dispatched])
	}
	if _, ok := snap.Histograms[DispatchLatency]; ok {
		t.Fatal("histogram present while latency disabled")
	}
}

func TestDisabledAndNil(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.Inc(Dispatched)
	nilMetrics.Observe(DispatchLatency, time.Millisecond)
	if nilMetrics.Value(Dispatched) != 0 || nilMetrics.Enabled() {
		t.Fatal("nil metrics must be inert")
	}

	m := New(Config{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(Dispatched)
	m.Observe(DispatchLatency, time.Millisecond)
	if m.Value(Dispatched) != 0 || len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled metrics must record nothing")
	}
}

func TestLatencyBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(DispatchLatency, 2*time.Millisecond)
	m.Observe(DispatchLatency, 40*time.Millisecond)
	m.Observe(DispatchLatency, time.Second)
	m.Observe(Dispatched, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[DispatchLatency]
	if len(buckets) != BucketCount {
		t.Fatalf("bucket count = %d", len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if snap.LatencySum != 1042*time.Millisecond {
		t.Fatalf("sum = %v", snap.LatencySum)
	}
}

func TestConcurrentInc(t *testing.T) {
	m := New(Config{Enabled: true})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(Dispatched)
			}
		}()
	}
	wg.Wait()
	if got := m.Value(Dispatched); got != 8000 {
		t.Fatalf("Dispatched = %d, want 8000", got)
	}
}
