package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/config"
	"github.com/sanverite/smartproxy/internal/registry"
)

func TestStatsSnapshotReflectsIncrementsAndDecrements(t *testing.T) {
	s := NewStats(nil)
	s.IncTotal()
	s.IncTotal()
	s.IncActive()
	s.IncActive()
	s.DecActive()
	s.IncFailed()

	got := s.Snapshot()
	want := StatsSnapshot{Total: 2, Active: 1, Failed: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

type fakeObserver struct {
	started int
	delta   int
	failed  int
}

func (o *fakeObserver) ObserveSessionStarted()          { o.started++ }
func (o *fakeObserver) ObserveSessionActiveDelta(d int) { o.delta += d }
func (o *fakeObserver) ObserveSessionFailed()           { o.failed++ }

func TestStatsMirrorsToObserver(t *testing.T) {
	obs := &fakeObserver{}
	s := NewStats(obs)
	s.IncTotal()
	s.IncActive()
	s.DecActive()
	s.IncFailed()

	if obs.started != 1 || obs.delta != 0 || obs.failed != 1 {
		t.Fatalf("observer not mirrored correctly: %+v", obs)
	}
}

func TestEventFeedRecentReturnsOldestFirstWithinCapacity(t *testing.T) {
	feed := NewEventFeed(3)
	for i := 0; i < 5; i++ {
		feed.Publish(registry.StatusChange{From: registry.StatusUnknown, To: registry.Status(string(rune('a' + i)))})
	}
	recent := feed.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", len(recent))
	}
	// Events 0,1 were overwritten; 2,3,4 survive in publish order.
	if recent[0].To != registry.Status(string(rune('a'+2))) || recent[2].To != registry.Status(string(rune('a'+4))) {
		t.Fatalf("unexpected ordering: %+v", recent)
	}
}

func TestEventFeedRecentNBoundsResult(t *testing.T) {
	feed := NewEventFeed(10)
	feed.Publish(registry.StatusChange{To: registry.StatusUp})
	feed.Publish(registry.StatusChange{To: registry.StatusDown})
	feed.Publish(registry.StatusChange{To: registry.StatusUp})

	recent := feed.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[1].To != registry.StatusUp {
		t.Fatalf("expected most recent event last, got %+v", recent)
	}
}

func fixedIfaceIPv4(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		ip, ok := m[name]
		return ip, ok
	}
}

func TestRunwayViewReportsStatusAndLatency(t *testing.T) {
	reg := registry.New([]string{"eth0"}, nil, fixedIfaceIPv4(map[string]string{"eth0": "10.0.0.5"}))
	key := registry.Key{Interface: "eth0"}
	now := time.Now()
	reg.UpdateStatus(key, true, 50*time.Millisecond, now)
	reg.RecordLatency("8.8.8.8:53", key, 50*time.Millisecond)

	view := RunwayView(reg, []string{"8.8.8.8:53"}, now.Add(time.Second))
	if len(view) != 1 {
		t.Fatalf("expected 1 runway, got %d", len(view))
	}
	if view[0].Status != registry.StatusUp {
		t.Fatalf("expected status up, got %v", view[0].Status)
	}
	if view[0].Latencies["8.8.8.8:53"] != 50*time.Millisecond {
		t.Fatalf("expected recorded latency, got %+v", view[0].Latencies)
	}
	if view[0].LastProbeAge < time.Second {
		t.Fatalf("expected last probe age >= 1s, got %v", view[0].LastProbeAge)
	}
}

func TestConfigHolderReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	initial := config.Defaults()
	initial.ProbeInterval = 42
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	holder := NewConfigHolder(path, initial, zap.NewNop())
	got := holder.Reload()
	if got.ProbeInterval != 42 {
		t.Fatalf("expected previous config retained, got %+v", got)
	}
	if holder.Current().ProbeInterval != 42 {
		t.Fatalf("holder did not keep previous config current")
	}
}

func TestConfigHolderReloadSwapsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	initial := config.Defaults()
	holder := NewConfigHolder(path, initial, zap.NewNop())

	updated := config.Defaults()
	updated.ProbeInterval = 99
	if err := config.Save(path, updated); err != nil {
		t.Fatal(err)
	}

	got := holder.Reload()
	if got.ProbeInterval != 99 {
		t.Fatalf("expected reload to pick up new value, got %+v", got)
	}
}
