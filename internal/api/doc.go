// Package api exposes the small HTTP control-plane spec.md §6 calls
// the "operator surface": JSON reads of session stats, the runway
// view, and recent status-change events, plus POST /v1/reload and the
// Prometheus /v1/metrics scrape endpoint.
//
// Separation of Concerns
//
// api defines public JSON types decoupled from internal/control and
// internal/registry, maps between them, and hosts an HTTP server with
// minimal middleware. internal/control remains unaware of HTTP or
// JSON.
//
// Versioning
//
// All routes are versioned under /v1. Non-breaking additions extend
// types; breaking changes would require a new prefix (/v2).
//
// Server
//
// NewServer wires handlers onto a ServeMux and configures timeouts.
// Start runs ListenAndServe in a goroutine; Stop performs a graceful
// shutdown bounded by ShutdownTimeout.
//
// Error Model
//
// APIError carries a string message and an RFC3339 timestamp.
// Handlers validate methods and respond 405 where appropriate.
//
// Current Endpoints
//
//   - GET  /v1/healthz: liveness/readiness
//   - GET  /v1/stats: total/active/failed session counters
//   - GET  /v1/runways: per-runway status, last-probe age, latencies
//   - GET  /v1/events: recent_events(n) ring buffer tail
//   - GET  /v1/logs: recent daemon log lines, in-memory tail only
//   - POST /v1/reload: reload_config()
//   - GET  /v1/metrics: Prometheus exposition
package api
