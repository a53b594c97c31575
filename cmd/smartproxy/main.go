package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sanverite/smartproxy/internal/api"
	"github.com/sanverite/smartproxy/internal/config"
	"github.com/sanverite/smartproxy/internal/control"
	"github.com/sanverite/smartproxy/internal/dialer"
	"github.com/sanverite/smartproxy/internal/metrics"
	"github.com/sanverite/smartproxy/internal/platform"
	"github.com/sanverite/smartproxy/internal/prober"
	"github.com/sanverite/smartproxy/internal/registry"
	"github.com/sanverite/smartproxy/internal/session"
)

const version = "1.0.0"

func main() {
	var (
		configPath = flag.String("config", "config.json", "path to the JSON configuration document")
		apiAddr    = flag.String("api-addr", api.DefaultAddress, "HTTP control-plane listen address")
	)
	flag.Parse()

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	logTail := control.NewLogTail(control.LogTailCapacity)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), logTail),
		zap.InfoLevel,
	)
	logger := zap.New(core)
	defer logger.Sync()

	logger.Info("smartproxy starting", zap.String("version", version), zap.String("config", *configPath))

	cfg := config.Load(*configPath, logger)

	interfaces := platform.ListInterfaces()
	reg := registry.New(interfaces, cfg.Upstreams(), func(name string) (string, bool) {
		return platform.MustIfaceIPv4(name), true
	})
	logger.Info("runway registry built",
		zap.Strings("interfaces", interfaces),
		zap.Int("upstreams", len(cfg.Upstreams())),
		zap.Int("runways", len(reg.SnapshotRunways())),
	)

	m := metrics.New()
	stats := control.NewStats(m)
	feed := control.NewEventFeed(control.EventFeedCapacity)
	holder := control.NewConfigHolder(*configPath, cfg, logger)

	sink := &prober.MetricsSink{
		ObserveRunwayStatus: func(iface, upstream string, up bool) {
			v := 0.0
			if up {
				v = 1.0
			}
			m.RunwayStatus.WithLabelValues(iface, upstream).Set(v)
		},
		ObserveRunwayLatency: func(iface, upstream, target string, latency time.Duration) {
			m.RunwayLatency.WithLabelValues(iface, upstream, target).Set(latency.Seconds())
		},
		ObserveRunwayTransition: func(iface, upstream, from, to string) {
			m.RunwayTransition.WithLabelValues(iface, upstream, from, to).Inc()
		},
		ObserveCycleDuration: func(d time.Duration) {
			m.ProbeCycleTime.Observe(d.Seconds())
		},
	}

	p := prober.New(reg, feed, sink, logger,
		func() time.Duration { return holder.Current().ProbeIntervalDuration() },
		func() time.Duration { return holder.Current().TCPTimeoutDuration() },
		func() []string { return prober.Targets(holder.Current().Upstreams()) },
	)

	apiServer := api.NewServer(stats, feed, reg, holder, logTail, api.ServerOptions{
		Addr:         *apiAddr,
		Logger:       logger,
		ProbeTargets: prober.Targets(cfg.Upstreams()),
	})
	apiServer.Start()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dialObserver := func(result string) {
		m.DialAttempts.WithLabelValues(result).Inc()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return p.Run(groupCtx)
	})
	group.Go(func() error {
		return runListener(groupCtx, holder, reg, stats, dialObserver, logger)
	})

	// groupCtx is canceled both by the shutdown signal (derived from ctx)
	// and by either background loop returning an error (e.g. a listener
	// bind failure). Propagate the latter back to ctx so main always
	// wakes up and can report a non-zero exit instead of hanging.
	go func() {
		<-groupCtx.Done()
		cancel()
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("api server shutdown error", zap.Error(err))
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("smartproxy: background loop exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("smartproxy stopped")
}

// runListener accepts client connections on the configured bind
// address and dispatches each to session.Handle in its own goroutine.
// A panic inside a session never reaches this goroutine: it is
// recovered and logged so one malformed connection can't take down
// the daemon, per spec.md §7.
func runListener(ctx context.Context, holder *control.ConfigHolder, reg *registry.Registry, stats *control.Stats, dialObserver dialer.AttemptObserver, logger *zap.Logger) error {
	cfg := holder.Current()
	bindAddr := net.JoinHostPort(cfg.BindIP, fmt.Sprintf("%d", cfg.BindPort))

	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", bindAddr, err)
	}
	logger.Info("client listener up", zap.String("addr", bindAddr))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	deps := session.Deps{
		Registry:     reg,
		DNS:          &net.Resolver{PreferGo: true},
		Stats:        stats,
		ConfigNow:    holder.Current,
		Logger:       logger,
		DialObserver: dialObserver,
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go acceptOne(ctx, conn, deps, logger)
	}
}

func acceptOne(ctx context.Context, conn net.Conn, deps session.Deps, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("session panicked, recovered", zap.Any("recover", r))
			conn.Close()
		}
	}()
	session.Handle(ctx, conn, deps)
}
