package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Watcher polls the main config file and hands every valid new version to a
// callback. A version that fails to load is logged and skipped; the running
// config stays in force until the file changes again.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *zerolog.Logger

	lastMod time.Time
}

// NewWatcher creates a watcher for path. An empty path means DefaultPath and
// a non-positive interval means 30 seconds.
func NewWatcher(path string, interval time.Duration, logger *zerolog.Logger) *Watcher {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Watcher{path: path, interval: interval, logger: logger}
}

// Start loads the config once, passes it to onUpdate and then polls in the
// background until ctx is done. Only the initial load error is returned.
func (w *Watcher) Start(ctx context.Context, onUpdate func(*Config)) error {
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	w.lastMod = info.ModTime()
	if onUpdate != nil {
		onUpdate(cfg)
	}

	go w.loop(ctx, onUpdate)
	return nil
}

func (w *Watcher) loop(ctx context.Context, onUpdate func(*Config)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg := w.poll()
			if cfg != nil && onUpdate != nil {
				onUpdate(cfg)
			}
		}
	}
}

// poll returns the reloaded config, or nil when the file is unchanged or
// could not be used.
func (w *Watcher) poll() *Config {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Debug().Err(err).Str("path", w.path).Msg("config stat failed")
		return nil
	}
	if !info.ModTime().After(w.lastMod) {
		return nil
	}
	// Remember the version even if it is broken so it is reported once.
	w.lastMod = info.ModTime()

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("config reload skipped")
		return nil
	}
	w.logger.Info().Str("path", w.path).Msg("config reloaded")
	return cfg
}
