package api

import (
	"time"

	"github.com/sanverite/smartproxy/internal/control"
	"github.com/sanverite/smartproxy/internal/registry"
)

// FromStatsSnapshot converts control.StatsSnapshot to the public
// StatsResponse.
func FromStatsSnapshot(s control.StatsSnapshot) StatsResponse {
	return StatsResponse{
		TotalSessions:  s.Total,
		ActiveSessions: s.Active,
		FailedSessions: s.Failed,
		GeneratedAt:    TimeNow().UTC().Format(time.RFC3339),
	}
}

// FromRunwayEntries converts control.RunwayEntry values to the public
// RunwaysResponse.
func FromRunwayEntries(entries []control.RunwayEntry) RunwaysResponse {
	out := make([]RunwayView, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunwayView{
			Interface:      e.Interface,
			Upstream:       fromUpstream(e.Upstream),
			Status:         string(e.Status),
			LastProbeAgeMs: e.LastProbeAge.Milliseconds(),
			LatenciesMs:    cloneLatenciesMs(e.Latencies),
		})
	}
	return RunwaysResponse{
		Runways:     out,
		GeneratedAt: TimeNow().UTC().Format(time.RFC3339),
	}
}

// FromStatusChanges converts registry.StatusChange events to the
// public EventsResponse.
func FromStatusChanges(events []registry.StatusChange) EventsResponse {
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, EventView{
			Interface:  ev.Runway.Interface,
			Upstream:   ev.Runway.Upstream,
			From:       string(ev.From),
			To:         string(ev.To),
			LatencyMs:  ev.Latency.Milliseconds(),
			OccurredAt: ev.At.UTC().Format(time.RFC3339),
		})
	}
	return EventsResponse{
		Events:      out,
		GeneratedAt: TimeNow().UTC().Format(time.RFC3339),
	}
}

// FromLogLines converts a slice of raw log lines into the public
// LogsResponse.
func FromLogLines(lines []string) LogsResponse {
	return LogsResponse{
		Logs:        lines,
		GeneratedAt: TimeNow().UTC().Format(time.RFC3339),
	}
}

func fromUpstream(u *registry.UpstreamProxy) *UpstreamView {
	if u == nil {
		return nil
	}
	return &UpstreamView{Host: u.Host, Port: u.Port}
}

func cloneLatenciesMs(in map[string]time.Duration) map[string]int64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v.Milliseconds()
	}
	return out
}
