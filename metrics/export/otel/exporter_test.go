package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/idrelay"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot idrelay.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() idrelay.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := idrelay.MetricsSnapshot{
		Counters:   make(map[idrelay.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[idrelay.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// findValue returns the int64 point of name, restricted to the series whose
// "le" attribute equals le when le is set.
func findValue(rm metricdata.ResourceMetrics, name, le string) (int64, bool) {
	match := func(set attribute.Set) bool {
		if le == "" {
			return true
		}
		v, ok := set.Value("le")
		return ok && v.AsString() == le
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		snapshot: idrelay.MetricsSnapshot{
			Counters: map[idrelay.MetricID]uint64{
				idrelay.MetricLoginSuccess: 3,
			},
			Histograms: map[idrelay.MetricID][]uint64{
				idrelay.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporter(provider.Meter("idrelay-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := []struct {
		name, le string
		want     int64
	}{
		{"idrelay_login_success_total", "", 3},
		{"idrelay_login_failure_total", "", 0},
		{"idrelay_audit_dropped_total", "", 1},
		{"idrelay_verify_latency_seconds_bucket", "0.005", 1},
		{"idrelay_verify_latency_seconds_bucket", "0.01", 2},
		{"idrelay_verify_latency_seconds_bucket", "+Inf", 8},
		{"idrelay_verify_latency_seconds_count", "", 8},
	}
	for _, c := range checks {
		got, ok := findValue(rm, c.name, c.le)
		if !ok {
			t.Fatalf("metric %s{le=%q} not collected", c.name, c.le)
		}
		if got != c.want {
			t.Fatalf("%s{le=%q} = %d, want %d", c.name, c.le, got, c.want)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newMeter()

	if _, err := NewExporter(provider.Meter("idrelay-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	var exp *Exporter
	if err := exp.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		snapshot: idrelay.MetricsSnapshot{
			Counters: map[idrelay.MetricID]uint64{
				idrelay.MetricVerifySuccess: 1,
			},
			Histograms: map[idrelay.MetricID][]uint64{},
		},
	}

	exp, err := NewExporter(provider.Meter("idrelay-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[idrelay.MetricVerifySuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
