package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/ledgergate/internal/metrics"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[metrics.ID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] || names[def.Name] {
			t.Fatalf("duplicate definition %+v", def)
		}
		if !strings.HasPrefix(def.Name, "ledgergate_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := metrics.ID(0); int(id) < metrics.Count; id++ {
		if id == metrics.DispatchLatency {
			continue
		}
		if !seen[id] {
			t.Fatalf("counter %d has no export definition", id)
		}
	}
}

func TestBucketHelpers(t *testing.T) {
	if len(UpperBounds)+1 != metrics.BucketCount || len(HistogramBoundSuffix) != metrics.BucketCount {
		t.Fatal("bucket definitions out of sync with metrics.BucketCount")
	}
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [metrics.BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}
