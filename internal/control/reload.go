package control

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/config"
)

// ConfigHolder is the read-mostly, reload-swapped config cell spec.md
// §5 describes: many readers capture the pointer once per operation,
// a single writer (Reload) replaces it wholesale. The runway set is
// never rebuilt from a reload; probe_interval, tcp_timeout,
// selection_mode, and auth take effect going forward, while the
// listener keeps the bind address it read at startup.
type ConfigHolder struct {
	path    string
	logger  *zap.Logger
	current atomic.Pointer[config.Config]
}

// NewConfigHolder seeds the holder with an already-loaded config.
func NewConfigHolder(path string, initial config.Config, logger *zap.Logger) *ConfigHolder {
	h := &ConfigHolder{path: path, logger: logger}
	h.current.Store(&initial)
	return h
}

// Current returns the active config. Safe for concurrent use.
func (h *ConfigHolder) Current() config.Config {
	return *h.current.Load()
}

// Reload re-reads the config file and swaps it in on success. On any
// failure the previous config remains active; the returned value is
// always the config now in effect.
func (h *ConfigHolder) Reload() config.Config {
	previous := h.Current()
	next := config.Reload(h.path, previous, h.logger)
	h.current.Store(&next)
	return next
}
