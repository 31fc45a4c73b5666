// Package bridge assembles one language mode per registered language: its
// defaults, its worker supervisor and its feature adapters. Modes are set
// up lazily, the first time a document of their language is opened.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tsbridge/internal/config"
	"tsbridge/internal/defaults"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/features"
	"tsbridge/internal/lifecycle"
	"tsbridge/internal/model"
	"tsbridge/internal/paths"
	"tsbridge/internal/slogutil"
	"tsbridge/internal/supervisor"
)

// Options configures a Bridge.
type Options struct {
	// Config defaults to config.DefaultConfig.
	Config *config.Config
	// Factory builds the language service of in-process workers.
	Factory engine.Factory
	Logger  *slog.Logger
}

// Bridge owns the document store and the editor-facing registries shared by
// every language mode.
type Bridge struct {
	Store     *model.Store
	Registry  *editor.Registry
	Markers   *editor.Markers
	Languages *editor.Languages

	factory engine.Factory
	logger  *slog.Logger
	subs    lifecycle.Group

	mu     sync.Mutex
	cfg    *config.Config
	modes  map[string]*Mode
	closed bool
}

// Mode is the per-language assembly.
type Mode struct {
	Language string
	Defaults *defaults.Defaults

	mu           sync.Mutex
	manager      *supervisor.Manager
	adapters     *features.Adapters
	registration lifecycle.Disposable
}

// Active reports whether the mode has been set up.
func (m *Mode) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manager != nil
}

// Manager returns the worker supervisor, nil before activation.
func (m *Mode) Manager() *supervisor.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manager
}

// Adapters returns the feature adapters, nil before activation.
func (m *Mode) Adapters() *features.Adapters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adapters
}

func (m *Mode) dispose() {
	m.mu.Lock()
	reg, mgr := m.registration, m.manager
	m.registration = nil
	m.mu.Unlock()
	if reg != nil {
		reg.Dispose()
	}
	if mgr != nil {
		mgr.Dispose()
	}
}

// New registers the default languages and prepares a mode for each.
func New(opts Options) (*Bridge, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Worker.Mode != config.ModeProcess && opts.Factory == nil {
		return nil, fmt.Errorf("bridge: in-process workers need an engine factory")
	}

	b := &Bridge{
		Store:     model.NewStore(),
		Registry:  editor.NewRegistry(),
		Markers:   editor.NewMarkers(),
		Languages: editor.NewLanguages(),
		factory:   opts.Factory,
		logger:    slogutil.Component(opts.Logger, "bridge"),
		cfg:       cfg,
		modes:     map[string]*Mode{},
	}
	for _, lang := range editor.DefaultLanguages() {
		if err := b.Languages.Register(lang); err != nil {
			return nil, err
		}
		d := defaults.New(nil, defaults.DiagnosticsOptions{})
		if err := cfg.Apply(lang.ID, d); err != nil {
			return nil, fmt.Errorf("language %s: %w", lang.ID, err)
		}
		mode := &Mode{Language: lang.ID, Defaults: d}
		b.modes[lang.ID] = mode
		b.subs.Add(b.Languages.OnLanguage(lang.ID, func() { b.activate(mode) }))
	}
	return b, nil
}

// Mode returns the mode of a language.
func (b *Bridge) Mode(language string) (*Mode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modes[language]
	return m, ok
}

func (b *Bridge) spawner() supervisor.Spawner {
	w := b.cfg.Worker
	if w.Mode == config.ModeProcess {
		return &supervisor.ProcessSpawner{
			Command: w.Command,
			Args:    w.Args,
			Dir:     b.cfg.Root,
			Logger:  b.logger,
		}
	}
	return &supervisor.InProcessSpawner{Factory: b.factory, Logger: b.logger}
}

func (b *Bridge) activate(mode *Mode) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	cfg := b.cfg
	spawner := b.spawner()
	b.mu.Unlock()

	logger := b.logger.With("language", mode.Language)
	manager := supervisor.NewManager(supervisor.Options{
		Language:       mode.Language,
		Spawner:        spawner,
		Defaults:       mode.Defaults,
		Documents:      b.Store,
		IdleTimeout:    time.Duration(cfg.Worker.IdleTimeoutMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Worker.RequestTimeoutMs) * time.Millisecond,
		Logger:         b.logger,
	})
	workerFn := func(ctx context.Context, resources ...string) (features.LanguageWorker, error) {
		c, err := manager.GetWorker(ctx, resources...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	mode.mu.Lock()
	mode.manager = manager
	mode.adapters = &features.Adapters{Worker: workerFn, Docs: b.Store, Logger: logger}
	mode.registration = features.Register(mode.Language, mode.Defaults, b.Store, b.Registry, b.Markers, workerFn,
		features.WithDebounce(time.Duration(cfg.Diagnostics.DebounceMs)*time.Millisecond),
		features.WithLogger(logger))
	mode.mu.Unlock()
	logger.Debug("Language mode activated", "worker", spawner.Mode())
}

// Open adds a document, given as a path or URI, and activates its language.
func (b *Bridge) Open(path, text string) (*model.Document, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, errors.New(errors.WorkerUnavailable, "bridge disposed", nil)
	}

	uri := path
	if !strings.Contains(path, "://") {
		uri = paths.ToURI(path)
	}
	firstLine, _, _ := strings.Cut(text, "\n")
	lang := b.Languages.ForPath(paths.FromURI(uri), strings.TrimSuffix(firstLine, "\r"))
	if lang == "" {
		return nil, errors.Newf(errors.InvalidParams, "no language registered for %s", path)
	}
	// activation first, so the diagnostics adapter sees the new document
	b.Languages.Activate(lang)
	return b.Store.Create(uri, lang, text)
}

// Close disposes a document.
func (b *Bridge) Close(uri string) bool {
	return b.Store.Dispose(uri)
}

// Document resolves an open document, or fails with UnknownDocument.
func (b *Bridge) Document(uri string) (*model.Document, error) {
	if doc := b.Store.Get(uri); doc != nil {
		return doc, nil
	}
	return nil, errors.Newf(errors.UnknownDocument, "document %s is not open", uri)
}

// Adapters returns the feature adapters serving doc.
func (b *Bridge) Adapters(doc *model.Document) (*features.Adapters, error) {
	mode, ok := b.Mode(doc.LanguageID())
	if !ok {
		return nil, errors.Newf(errors.InvalidParams, "no mode for language %s", doc.LanguageID())
	}
	a := mode.Adapters()
	if a == nil {
		return nil, errors.Newf(errors.WorkerUnavailable, "language %s is not active", mode.Language)
	}
	return a, nil
}

// Emit returns the transpiled output of doc.
func (b *Bridge) Emit(ctx context.Context, doc *model.Document) (*engine.EmitOutput, error) {
	a, err := b.Adapters(doc)
	if err != nil {
		return nil, err
	}
	return a.Emit(ctx, doc)
}

// ApplyConfig pushes new language settings into every mode. Worker and
// diagnostics timing settings only affect modes activated afterwards.
func (b *Bridge) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.cfg = cfg
	modes := make([]*Mode, 0, len(b.modes))
	for _, m := range b.modes {
		modes = append(modes, m)
	}
	b.mu.Unlock()

	for _, m := range modes {
		if err := cfg.Apply(m.Language, m.Defaults); err != nil {
			return fmt.Errorf("language %s: %w", m.Language, err)
		}
	}
	b.logger.Info("Configuration applied", "languages", len(modes))
	return nil
}

// Dispose stops every worker and unregisters every provider. Open
// documents and published markers are left in place.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	modes := make([]*Mode, 0, len(b.modes))
	for _, m := range b.modes {
		modes = append(modes, m)
	}
	b.mu.Unlock()

	b.subs.Dispose()
	for _, m := range modes {
		m.dispose()
	}
}
