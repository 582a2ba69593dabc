// Package otel binds relay counters to OpenTelemetry observable instruments.
//
// Counters map one to one. The verify latency histogram is exported as a
// cumulative gauge with an "le" attribute per bucket plus a _count gauge.
// The caller owns the MeterProvider.
package otel
