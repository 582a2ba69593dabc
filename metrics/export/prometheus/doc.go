// Package prometheus exposes relay counters through client_golang.
//
// [NewCollector] adapts an [idrelay.Relay] snapshot into const metrics on every
// scrape. Counter names are idrelay_*_total; the single histogram is
// idrelay_verify_latency_seconds. [NewRegistry] builds a private registry and
// [Handler] serves it; nothing is registered globally.
package prometheus
