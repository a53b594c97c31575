package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/control"
	"github.com/sanverite/smartproxy/internal/registry"
)

// Constants for route prefixing. Versioning is explicit to allow
// non-breaking additions.
const (
	APIVersion     = "v1"
	DefaultAddress = "127.0.0.1:8787"
)

// ServerOptions configures the HTTP server. Timeouts are conservative
// defaults suitable for a local control-plane server.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.Logger

	// ProbeTargets is the reachability target set the prober checks
	// every cycle, used to shape GET /v1/runways' per-target latency
	// map.
	ProbeTargets []string
}

// Server hosts the HTTP control-plane API described in spec.md §6.
type Server struct {
	http   *http.Server
	stats  *control.Stats
	feed   *control.EventFeed
	reg    *registry.Registry
	holder *control.ConfigHolder
	logs   *control.LogTail
	logger *zap.Logger
	opts   ServerOptions
}

// NewServer constructs a new API server. logs may be nil, in which
// case GET /v1/logs always reports an empty tail. The server does not
// start listening until Start is called.
func NewServer(stats *control.Stats, feed *control.EventFeed, reg *registry.Registry, holder *control.ConfigHolder, logs *control.LogTail, opts ServerOptions) *Server {
	if stats == nil || feed == nil || reg == nil || holder == nil {
		panic("api.NewServer: stats, feed, reg, and holder must be non-nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		stats:  stats,
		feed:   feed,
		reg:    reg,
		holder: holder,
		logs:   logs,
		logger: opts.Logger,
		opts:   opts,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           withBasicMiddleware(mux, opts.Logger),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			BaseContext: func(l net.Listener) context.Context {
				return context.Background()
			},
		},
	}

	mux.HandleFunc("/"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("/"+APIVersion+"/stats", s.handleStats)
	mux.HandleFunc("/"+APIVersion+"/runways", s.handleRunways)
	mux.HandleFunc("/"+APIVersion+"/events", s.handleEvents)
	mux.HandleFunc("/"+APIVersion+"/logs", s.handleLogs)
	mux.HandleFunc("/"+APIVersion+"/reload", s.handleReload)
	mux.Handle("/"+APIVersion+"/metrics", promhttp.Handler())

	return s
}

// Start begins serving HTTP in a background goroutine. It returns
// immediately; use Stop for graceful shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api: listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api: listen failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server, waiting up to
// ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": TimeNow().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, FromStatsSnapshot(s.stats.Snapshot()))
}

func (s *Server) handleRunways(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := control.RunwayView(s.reg, s.opts.ProbeTargets, TimeNow())
	writeJSON(w, http.StatusOK, FromRunwayEntries(entries))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	n := 100
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			n = parsed
		}
	}
	writeJSON(w, http.StatusOK, FromStatusChanges(s.feed.Recent(n)))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	n := 100
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			n = parsed
		}
	}
	var lines []string
	if s.logs != nil {
		lines = s.logs.Recent(n)
	}
	writeJSON(w, http.StatusOK, FromLogLines(lines))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cfg := s.holder.Reload()
	writeJSON(w, http.StatusOK, ReloadResponse{
		SelectionMode: string(cfg.SelectionMode),
		ProbeInterval: cfg.ProbeInterval,
		TCPTimeout:    cfg.TCPTimeout,
		BindIP:        cfg.BindIP,
		BindPort:      cfg.BindPort,
		GeneratedAt:   TimeNow().UTC().Format(time.RFC3339),
	})
}

// withBasicMiddleware sets JSON content type and logs method, path,
// and duration for every request.
func withBasicMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := TimeNow()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
		logger.Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{
		Error:     msg,
		Timestamp: TimeNow().UTC().Format(time.RFC3339),
	})
}
