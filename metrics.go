package idrelay

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one relay counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected login callbacks.
	MetricLoginFailure
	// MetricLoginRateLimited counts login callbacks refused by the attempt limiter.
	MetricLoginRateLimited
	// MetricCredentialIssued counts signed credentials.
	MetricCredentialIssued
	// MetricVerifySuccess counts accepted credentials.
	MetricVerifySuccess
	// MetricVerifyAbsent counts requests without a credential cookie.
	MetricVerifyAbsent
	// MetricVerifyMalformed counts malformed credentials.
	MetricVerifyMalformed
	// MetricVerifyBadSignature counts credentials with a bad signature or algorithm.
	MetricVerifyBadSignature
	// MetricVerifyExpired counts expired credentials.
	MetricVerifyExpired
	// MetricVerifyRevoked counts denylisted credentials.
	MetricVerifyRevoked
	// MetricLogout counts logouts.
	MetricLogout
	// MetricVerifyLatency is the Authenticate latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets are
// non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricVerifyLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	switch {
	case d <= 5*time.Millisecond:
		return 0
	case d <= 10*time.Millisecond:
		return 1
	case d <= 25*time.Millisecond:
		return 2
	case d <= 50*time.Millisecond:
		return 3
	case d <= 100*time.Millisecond:
		return 4
	case d <= 250*time.Millisecond:
		return 5
	case d <= 500*time.Millisecond:
		return 6
	default:
		return 7
	}
}

// metricForReason maps a rejected verification to its counter.
func metricForReason(reason Reason) MetricID {
	switch reason {
	case ReasonNone:
		return MetricVerifySuccess
	case ReasonBadSignature:
		return MetricVerifyBadSignature
	case ReasonExpired:
		return MetricVerifyExpired
	case ReasonRevoked:
		return MetricVerifyRevoked
	default:
		return MetricVerifyMalformed
	}
}
