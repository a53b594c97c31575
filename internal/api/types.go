package api

import "time"

// Public JSON types returned by the API. These are intentionally
// decoupled from internal/control and internal/registry to preserve
// API stability and allow internal refactors without breaking
// clients.

// StatsResponse is the payload for GET /v1/stats.
type StatsResponse struct {
	TotalSessions  int64  `json:"total_sessions"`
	ActiveSessions int64  `json:"active_sessions"`
	FailedSessions int64  `json:"failed_sessions"`
	GeneratedAt    string `json:"generated_at"`
}

// RunwaysResponse is the payload for GET /v1/runways.
type RunwaysResponse struct {
	Runways     []RunwayView `json:"runways"`
	GeneratedAt string       `json:"generated_at"`
}

// RunwayView is one runway's read model: identity, status, and its
// most recently observed latency per probe target.
type RunwayView struct {
	Interface      string           `json:"interface"`
	Upstream       *UpstreamView    `json:"upstream,omitempty"`
	Status         string           `json:"status"`
	LastProbeAgeMs int64            `json:"last_probe_age_ms"`
	LatenciesMs    map[string]int64 `json:"latencies_ms"`
}

// UpstreamView identifies a chained upstream proxy.
type UpstreamView struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EventsResponse is the payload for GET /v1/events.
type EventsResponse struct {
	Events      []EventView `json:"events"`
	GeneratedAt string      `json:"generated_at"`
}

// EventView is one runway status-change event.
type EventView struct {
	Interface  string `json:"interface"`
	Upstream   string `json:"upstream,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	LatencyMs  int64  `json:"latency_ms"`
	OccurredAt string `json:"occurred_at"`
}

// LogsResponse is the payload for GET /v1/logs.
type LogsResponse struct {
	Logs        []string `json:"logs"`
	GeneratedAt string   `json:"generated_at"`
}

// ReloadResponse is the payload for POST /v1/reload.
type ReloadResponse struct {
	SelectionMode string  `json:"selection_mode"`
	ProbeInterval int     `json:"probe_interval"`
	TCPTimeout    float64 `json:"tcp_timeout"`
	BindIP        string  `json:"bind_ip"`
	BindPort      int     `json:"bind_port"`
	GeneratedAt   string  `json:"generated_at"`
}

// APIError is a standard error payload.
type APIError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// TimeNow abstracts time for tests; overridden in tests.
var TimeNow = func() time.Time { return time.Now() }
