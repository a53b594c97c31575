// Package metrics defines the Prometheus instruments exposed at
// /v1/metrics: session counters, per-runway status and latency
// gauges, transition counters, and dial-outcome counters. Every
// metric is registered once at construction via promauto against the
// default registry.
package metrics
