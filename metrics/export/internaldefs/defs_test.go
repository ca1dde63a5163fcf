package internaldefs

import (
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[goSession.MetricID]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate definition for %s", def.ID)
		}
		seen[def.ID] = true
		want := Namespace + "_" + def.ID.String() + "_total"
		if def.Name != want {
			t.Fatalf("name = %q, want %q", def.Name, want)
		}
	}

	snap := goSession.NewMetrics(goSession.MetricsConfig{Enabled: true}).Snapshot()
	for id := range snap.Counters {
		if !seen[id] {
			t.Fatalf("counter %s has no exported definition", id)
		}
	}
}

func TestBuckets(t *testing.T) {
	raw := NormalizeBuckets([]uint64{1, 2, 3})
	if len(raw) != BucketCount {
		t.Fatalf("len = %d, want %d", len(raw), BucketCount)
	}
	cum := CumulativeBuckets(raw)
	if cum[len(cum)-1] != 6 || cum[1] != 3 {
		t.Fatalf("unexpected cumulative buckets %v", cum)
	}

	if got := BoundSuffix(0); got != "0_001" {
		t.Fatalf("BoundSuffix(0) = %q", got)
	}
	if got := BoundSuffix(BucketCount - 1); got != "inf" {
		t.Fatalf("BoundSuffix(last) = %q", got)
	}
}
