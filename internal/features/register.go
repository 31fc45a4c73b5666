package features

import (
	"log/slog"
	"time"

	"tsbridge/internal/editor"
	"tsbridge/internal/lifecycle"
)

type registerConfig struct {
	debounce time.Duration
	logger   *slog.Logger
}

// Option tunes Register.
type Option func(*registerConfig)

// WithDebounce sets the diagnostics quiet period.
func WithDebounce(d time.Duration) Option {
	return func(c *registerConfig) { c.debounce = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *registerConfig) { c.logger = l }
}

// Register registers every provider for selector and starts the
// diagnostics adapter. Disposing the result undoes all of it.
func Register(selector string, cfg DiagnosticsConfig, store ModelEvents, registry *editor.Registry,
	markers *editor.Markers, worker WorkerFunc, opts ...Option) lifecycle.Disposable {
	rc := registerConfig{debounce: DefaultDebounce}
	for _, o := range opts {
		o(&rc)
	}

	a := &Adapters{Worker: worker, Docs: store, Logger: rc.logger}
	group := &lifecycle.Group{}
	for _, p := range []editor.Provider{
		a.Completion(),
		a.SignatureHelp(),
		a.Hover(),
		a.DocumentHighlights(),
		a.Definition(),
		a.References(),
		a.Outline(),
		a.DocumentFormatting(),
		a.RangeFormatting(),
		a.OnTypeFormatting(),
	} {
		group.Add(registry.Register(selector, p))
	}
	group.Add(NewDiagnosticsAdapter(DiagnosticsOptions{
		Selector: selector,
		Config:   cfg,
		Store:    store,
		Markers:  markers,
		Worker:   worker,
		Debounce: rc.debounce,
		Logger:   rc.logger,
	}))
	return group
}
