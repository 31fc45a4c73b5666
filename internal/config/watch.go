package config

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tsbridge/internal/paths"
	"tsbridge/internal/slogutil"
	"tsbridge/internal/watcher"
)

// ReloadDelay is how long Watch waits for writes to settle.
const ReloadDelay = 200 * time.Millisecond

// Watcher reloads the configuration when the file changes.
type Watcher struct {
	debouncer *watcher.Debouncer
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Watch starts watching the configuration file under root and calls
// onChange with every configuration that loads and validates. Invalid
// edits are logged and skipped. It fails when there is no file to watch.
func Watch(root string, logger *slog.Logger, onChange func(*Config)) (*Watcher, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(paths.ConfigDir(root))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}

	w := &Watcher{
		debouncer: watcher.NewDebouncer(ReloadDelay),
		logger:    slogutil.Component(logger, "config"),
	}
	v.OnConfigChange(func(ev fsnotify.Event) {
		w.debouncer.Trigger(func() {
			w.mu.Lock()
			closed := w.closed
			w.mu.Unlock()
			if closed {
				return
			}
			cfg, err := Load(root)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				w.logger.Warn("ignoring configuration change", "file", ev.Name, "error", err)
				return
			}
			w.logger.Info("configuration reloaded", "file", ev.Name)
			onChange(cfg)
		})
	})
	v.WatchConfig()
	return w, nil
}

// Close stops delivering changes. The underlying file watch ends with the
// process.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.debouncer.Cancel()
}
