package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/apperr"
	"github.com/sanverite/smartproxy/internal/registry"
)

// SelectionMode names one of the three pluggable selector policies.
type SelectionMode string

const (
	SelectionLatency       SelectionMode = "latency"
	SelectionFirstAvail    SelectionMode = "first_available"
	SelectionRoundRobin    SelectionMode = "round_robin"
)

// Auth holds the daemon's optional username/password table, gating
// both the SOCKS5 and HTTP CONNECT front ends.
type Auth struct {
	Enabled bool              `json:"enabled"`
	Users   map[string]string `json:"users"`
}

// UpstreamProxyConfig is the JSON shape of one configured upstream.
type UpstreamProxyConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Config is the whole-object configuration document described in
// spec.md §3 and §6. Reload replaces the active Config wholesale; there
// is no partial/field-level reload.
type Config struct {
	UpstreamProxies []UpstreamProxyConfig `json:"upstream_proxies"`
	ProbeInterval   int                   `json:"probe_interval"` // seconds, >= 1
	TCPTimeout      float64               `json:"tcp_timeout"`    // seconds, > 0
	SelectionMode   SelectionMode         `json:"selection_mode"`
	Auth            Auth                  `json:"auth"`
	BindIP          string                `json:"bind_ip"`
	BindPort        int                   `json:"bind_port"`
}

// Defaults returns the canonical default configuration document. Config
// written by Load's "missing file" path and re-read must yield this
// same object (the package's round-trip law).
func Defaults() Config {
	return Config{
		UpstreamProxies: []UpstreamProxyConfig{},
		ProbeInterval:   10,
		TCPTimeout:      5.0,
		SelectionMode:   SelectionLatency,
		Auth: Auth{
			Enabled: false,
			Users:   map[string]string{},
		},
		BindIP:   "0.0.0.0",
		BindPort: 3123,
	}
}

// ProbeIntervalDuration returns ProbeInterval as a time.Duration.
func (c Config) ProbeIntervalDuration() time.Duration {
	return time.Duration(c.ProbeInterval) * time.Second
}

// TCPTimeoutDuration returns TCPTimeout as a time.Duration.
func (c Config) TCPTimeoutDuration() time.Duration {
	return time.Duration(c.TCPTimeout * float64(time.Second))
}

// Upstreams converts the JSON upstream list into registry.UpstreamProxy
// values.
func (c Config) Upstreams() []registry.UpstreamProxy {
	out := make([]registry.UpstreamProxy, 0, len(c.UpstreamProxies))
	for _, u := range c.UpstreamProxies {
		out = append(out, registry.UpstreamProxy{Host: u.Host, Port: u.Port})
	}
	return out
}

// Validate checks the invariants spec.md places on Config: probe
// interval >= 1s, timeout > 0, and a recognized selection policy.
func (c Config) Validate() error {
	if c.ProbeInterval < 1 {
		return fmt.Errorf("%w: probe_interval must be >= 1 second, got %d", apperr.ErrConfig, c.ProbeInterval)
	}
	if c.TCPTimeout <= 0 {
		return fmt.Errorf("%w: tcp_timeout must be > 0, got %f", apperr.ErrConfig, c.TCPTimeout)
	}
	switch c.SelectionMode {
	case SelectionLatency, SelectionFirstAvail, SelectionRoundRobin:
	default:
		return fmt.Errorf("%w: unrecognized selection_mode %q", apperr.ErrConfig, c.SelectionMode)
	}
	for _, u := range c.UpstreamProxies {
		if u.Port < 1 || u.Port > 65535 {
			return fmt.Errorf("%w: upstream %s has invalid port %d", apperr.ErrConfig, u.Host, u.Port)
		}
	}
	return nil
}

// Load reads the JSON document at path. A missing file is not an
// error: defaults are written to path and returned. A malformed file
// is logged and defaults are returned without touching the file, so a
// corrupt config never prevents startup.
func Load(path string, logger *zap.Logger) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaults := Defaults()
			if werr := Save(path, defaults); werr != nil {
				logger.Warn("config: failed writing defaults", zap.String("path", path), zap.Error(werr))
			}
			return defaults
		}
		logger.Warn("config: failed reading file, using defaults", zap.String("path", path), zap.Error(err))
		return Defaults()
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Warn("config: malformed JSON, falling back to defaults", zap.String("path", path), zap.Error(err))
		return Defaults()
	}
	fillDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		logger.Warn("config: invalid document, falling back to defaults", zap.String("path", path), zap.Error(err))
		return Defaults()
	}
	return cfg
}

// Reload re-parses the document at path. On any failure — read error,
// malformed JSON, or a failed Validate — it returns the previous
// config unchanged, per spec.md §7 ("config parse errors during
// reload are rejected with the current config retained").
func Reload(path string, previous Config, logger *zap.Logger) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("config: reload failed to read file, keeping previous config", zap.String("path", path), zap.Error(err))
		return previous
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Warn("config: reload found malformed JSON, keeping previous config", zap.String("path", path), zap.Error(err))
		return previous
	}
	fillDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		logger.Warn("config: reload found invalid document, keeping previous config", zap.String("path", path), zap.Error(err))
		return previous
	}
	return cfg
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// fillDefaults patches zero-valued fields left absent by a partial
// JSON document, mirroring the teacher's field-by-field defaulting of
// ServerOptions in internal/api/server.go.
func fillDefaults(cfg *Config) {
	defaults := Defaults()
	if cfg.ProbeInterval == 0 {
		cfg.ProbeInterval = defaults.ProbeInterval
	}
	if cfg.TCPTimeout == 0 {
		cfg.TCPTimeout = defaults.TCPTimeout
	}
	if cfg.SelectionMode == "" {
		cfg.SelectionMode = defaults.SelectionMode
	}
	if cfg.BindIP == "" {
		cfg.BindIP = defaults.BindIP
	}
	if cfg.BindPort == 0 {
		cfg.BindPort = defaults.BindPort
	}
	if cfg.Auth.Users == nil {
		cfg.Auth.Users = map[string]string{}
	}
	if cfg.UpstreamProxies == nil {
		cfg.UpstreamProxies = []UpstreamProxyConfig{}
	}
}
