package prober

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanverite/smartproxy/internal/control"
	"github.com/sanverite/smartproxy/internal/dialer"
	"github.com/sanverite/smartproxy/internal/registry"
)

// DefaultDNSTarget is the fixed reachability target spec.md §4.3
// names: "Targets default to 8.8.8.8:53 plus each configured
// upstream's own (host, port)".
const DefaultDNSTarget = "8.8.8.8:53"

// Targets builds the prober's reachability target set for one cycle:
// the fixed DNS target plus each configured upstream's own address.
func Targets(upstreams []registry.UpstreamProxy) []string {
	out := []string{DefaultDNSTarget}
	for _, u := range upstreams {
		out = append(out, net.JoinHostPort(u.Host, strconv.Itoa(u.Port)))
	}
	return out
}

// Prober runs the periodic probe cycle described in spec.md §4.3.
type Prober struct {
	reg      *registry.Registry
	feed     *control.EventFeed
	metrics  *MetricsSink
	logger   *zap.Logger
	interval func() time.Duration
	timeout  func() time.Duration
	targets  func() []string
}

// MetricsSink is the subset of metrics.Metrics the prober writes to.
// Declared locally so this package doesn't import internal/metrics
// for four callbacks.
type MetricsSink struct {
	ObserveRunwayStatus     func(iface, upstream string, up bool)
	ObserveRunwayLatency    func(iface, upstream, target string, latency time.Duration)
	ObserveRunwayTransition func(iface, upstream, from, to string)
	ObserveCycleDuration    func(d time.Duration)
}

// New constructs a Prober. interval, timeout, and targets are read
// fresh at the start of every cycle, so a config reload changes the
// next cycle's behavior without requiring a restart (probe_interval
// and tcp_timeout take effect on the next cycle per spec.md §4.9).
func New(reg *registry.Registry, feed *control.EventFeed, metrics *MetricsSink, logger *zap.Logger, interval, timeout func() time.Duration, targets func() []string) *Prober {
	return &Prober{reg: reg, feed: feed, metrics: metrics, logger: logger, interval: interval, timeout: timeout, targets: targets}
}

// Run loops until ctx is cancelled, running one cycle per interval.
// It never returns an error: probe failures manifest as a down
// status, not as a surfaced error, per spec.md §7.
func (p *Prober) Run(ctx context.Context) error {
	for {
		start := time.Now()
		p.runCycle(ctx)
		if p.metrics != nil && p.metrics.ObserveCycleDuration != nil {
			p.metrics.ObserveCycleDuration(time.Since(start))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval()):
		}
	}
}

// runCycle fans out one probe per (runway, target) pair and blocks
// until every probe completes or the cycle's deadline expires.
func (p *Prober) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	group, groupCtx := errgroup.WithContext(cycleCtx)
	runways := p.reg.SnapshotRunways()
	targets := p.targets()

	for _, runway := range runways {
		for _, target := range targets {
			runway, target := runway, target
			group.Go(func() error {
				p.probeOne(groupCtx, runway, target)
				return nil
			})
		}
	}
	// Errors are never returned from the probe closures themselves;
	// Wait only blocks until the fan-out drains or the deadline fires.
	_ = group.Wait()
}

func (p *Prober) probeOne(ctx context.Context, runway registry.Snapshot, target string) {
	now := time.Now()
	latency, up := p.probe(ctx, runway, target)

	if up {
		p.reg.RecordLatency(target, runway.Key, latency)
	}
	change, changed := p.reg.UpdateStatus(runway.Key, up, latency, now)

	if p.metrics != nil {
		if p.metrics.ObserveRunwayStatus != nil {
			p.metrics.ObserveRunwayStatus(runway.Interface, runway.Key.Upstream, up)
		}
		if up && p.metrics.ObserveRunwayLatency != nil {
			p.metrics.ObserveRunwayLatency(runway.Interface, runway.Key.Upstream, target, latency)
		}
	}

	if !changed {
		return
	}
	p.feed.Publish(change)
	if p.metrics != nil && p.metrics.ObserveRunwayTransition != nil {
		p.metrics.ObserveRunwayTransition(runway.Interface, runway.Key.Upstream, string(change.From), string(change.To))
	}
	p.logger.Info("prober: runway status changed",
		zap.Any("runway", runway.Key),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Duration("latency", latency),
	)
}

// probe runs a single reachability check against target through
// runway, returning the elapsed latency and whether it succeeded.
func (p *Prober) probe(ctx context.Context, runway registry.Snapshot, target string) (time.Duration, bool) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, false
	}

	if runway.Key.Direct() {
		return p.probeDirect(ctx, runway, host, port)
	}
	return p.probeUpstream(ctx, runway, host, port)
}

func (p *Prober) probeDirect(ctx context.Context, runway registry.Snapshot, host string, port int) (time.Duration, bool) {
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
		if err != nil || len(ips) == 0 {
			return 0, false
		}
		ip = ips[0]
	}

	start := time.Now()
	conn, err := dialer.RunwayDialer(runway).DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return 0, false
	}
	latency := time.Since(start)
	conn.Close()
	return latency, true
}

func (p *Prober) probeUpstream(ctx context.Context, runway registry.Snapshot, targetHost string, targetPort int) (time.Duration, bool) {
	up := runway.Upstream
	if up == nil {
		return 0, false
	}
	start := time.Now()
	conn, err := dialer.RunwayDialer(runway).DialContext(ctx, "tcp", net.JoinHostPort(up.Host, strconv.Itoa(up.Port)))
	if err != nil {
		return 0, false
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	readTimeout := dialer.UpstreamReadTimeout
	if ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < readTimeout {
			readTimeout = remaining
		}
	}
	if err := dialer.SendConnectAndCheck200(conn, targetHost, targetPort, readTimeout); err != nil {
		return 0, false
	}
	return time.Since(start), true
}
