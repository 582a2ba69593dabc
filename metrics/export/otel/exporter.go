package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/idrelay"
	"github.com/MrEthical07/idrelay/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *idrelay.Relay.
type MetricsSource interface {
	MetricsSnapshot() idrelay.MetricsSnapshot
	AuditDropped() uint64
}

// latencySeries exports one relay histogram as a cumulative bucket gauge,
// one series per "le" attribute, plus a sample count gauge.
type latencySeries struct {
	id      idrelay.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes a relay snapshot through observable instruments. The
// snapshot is read once per collection.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	counters     map[idrelay.MetricID]metric.Int64ObservableCounter
	series       []latencySeries
	auditDropped metric.Int64ObservableCounter
	bucketAttrs  []metric.ObserveOption
}

// NewExporter registers the relay instruments on meter and reads source on
// each collection. Close unregisters them.
func NewExporter(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	switch {
	case meter == nil:
		return nil, ErrNilMeter
	case source == nil:
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[idrelay.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for _, le := range internaldefs.BucketLabels {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String("le", le)))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		s, err := newLatencySeries(meter, def)
		if err != nil {
			return nil, err
		}
		e.series = append(e.series, s)
		observables = append(observables, s.buckets, s.count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func newLatencySeries(meter metric.Meter, def internaldefs.HistogramDef) (latencySeries, error) {
	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."),
		metric.WithUnit("{request}"))
	if err != nil {
		return latencySeries{}, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Total samples."),
		metric.WithUnit("{request}"))
	if err != nil {
		return latencySeries{}, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	return latencySeries{id: def.ID, buckets: buckets, count: count}, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}
	for _, s := range e.series {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[s.id]))
		for i, v := range cumulative {
			o.ObserveInt64(s.buckets, int64(v), e.bucketAttrs[i])
		}
		o.ObserveInt64(s.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. It is safe on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
