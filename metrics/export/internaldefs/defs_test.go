package internaldefs

import (
	"strings"
	"testing"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}

func TestDefinitionsAreUniqueAndSuffixed(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "idrelay_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q must be idrelay_*_total", def.Name)
		}
		if seen[def.Name] {
			t.Fatalf("duplicate metric name %q", def.Name)
		}
		seen[def.Name] = true
	}
	if len(UpperBounds)+1 != len(BucketLabels) {
		t.Fatalf("expected one label per bucket including +Inf")
	}
	if BucketLabels[0] != "0.005" || BucketLabels[len(BucketLabels)-1] != "+Inf" {
		t.Fatalf("unexpected bucket labels %v", BucketLabels)
	}
}
