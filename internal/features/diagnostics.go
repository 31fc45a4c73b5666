package features

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tsbridge/internal/defaults"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/lifecycle"
	"tsbridge/internal/model"
	"tsbridge/internal/slogutil"
	"tsbridge/internal/watcher"
)

// DefaultDebounce is the quiet period before a changed document is validated.
const DefaultDebounce = 500 * time.Millisecond

// DiagnosticsConfig supplies the validation switches.
type DiagnosticsConfig interface {
	DiagnosticsOptions() defaults.DiagnosticsOptions
}

// ModelEvents is the part of the document store the diagnostics adapter
// follows.
type ModelEvents interface {
	DocumentSource
	Documents() []*model.Document
	OnDidCreate(fn func(*model.Document)) lifecycle.Disposable
	OnWillDispose(fn func(*model.Document)) lifecycle.Disposable
	OnDidChangeLanguage(fn func(model.LanguageChange)) lifecycle.Disposable
}

// DiagnosticsOptions configures a DiagnosticsAdapter.
type DiagnosticsOptions struct {
	Selector string
	Config   DiagnosticsConfig
	Store    ModelEvents
	Markers  *editor.Markers
	Worker   WorkerFunc
	Debounce time.Duration
	Logger   *slog.Logger
}

type tracked struct {
	doc      *model.Document
	listener lifecycle.Disposable
	// gen increases with every validation start and with detach
	gen    uint64
	cancel context.CancelFunc
}

// DiagnosticsAdapter republishes diagnostics of every document of one
// language as markers owned by the selector.
type DiagnosticsAdapter struct {
	opts      DiagnosticsOptions
	logger    *slog.Logger
	debouncer *watcher.KeyedDebouncer
	subs      lifecycle.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards docs and disposed and orders publication against detach
	mu       sync.Mutex
	docs     map[string]*tracked
	disposed bool
}

// NewDiagnosticsAdapter subscribes to the store and validates every open
// document of the selector's language.
func NewDiagnosticsAdapter(opts DiagnosticsOptions) *DiagnosticsAdapter {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &DiagnosticsAdapter{
		opts:      opts,
		logger:    slogutil.Component(opts.Logger, "diagnostics").With("language", opts.Selector),
		debouncer: watcher.NewKeyedDebouncer(opts.Debounce),
		ctx:       ctx,
		cancel:    cancel,
		docs:      make(map[string]*tracked),
	}

	a.subs.Add(opts.Store.OnDidCreate(a.onModelAdd))
	a.subs.Add(opts.Store.OnWillDispose(func(doc *model.Document) { a.detach(doc.URI()) }))
	a.subs.Add(opts.Store.OnDidChangeLanguage(func(ev model.LanguageChange) {
		a.detach(ev.Document.URI())
		a.onModelAdd(ev.Document)
	}))
	for _, doc := range opts.Store.Documents() {
		a.onModelAdd(doc)
	}
	return a
}

func (a *DiagnosticsAdapter) onModelAdd(doc *model.Document) {
	if doc.LanguageID() != a.opts.Selector {
		return
	}
	uri := doc.URI()

	a.mu.Lock()
	if a.disposed || a.docs[uri] != nil {
		a.mu.Unlock()
		return
	}
	t := &tracked{doc: doc}
	t.listener = doc.OnDidChangeContent(func(model.ContentChange) {
		a.debouncer.Trigger(uri, func() { a.spawn(uri) })
	})
	a.docs[uri] = t
	a.mu.Unlock()

	a.spawn(uri)
}

// detach is the single removal path for a tracked document: it drops the
// listener, the pending debounce and any in-flight run, and clears the
// document's markers.
func (a *DiagnosticsAdapter) detach(uri string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := a.docs[uri]
	if t == nil {
		return
	}
	delete(a.docs, uri)
	t.listener.Dispose()
	a.debouncer.Cancel(uri)
	t.gen++
	if t.cancel != nil {
		t.cancel()
	}
	a.opts.Markers.Set(uri, a.opts.Selector, nil)
}

func (a *DiagnosticsAdapter) spawn(uri string) {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	go func() {
		defer a.wg.Done()
		a.Validate(uri)
	}()
}

// Validate runs one validation of uri now and publishes the result unless
// it went stale. It is what the debounce timer runs.
func (a *DiagnosticsAdapter) Validate(uri string) {
	a.mu.Lock()
	t := a.docs[uri]
	if a.disposed || t == nil {
		a.mu.Unlock()
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	gen := t.gen
	ctx, cancel := context.WithCancel(a.ctx)
	t.cancel = cancel
	doc := t.doc
	a.mu.Unlock()
	defer cancel()

	version := doc.Version()
	ctx, span := tracer.Start(ctx, "diagnostics.validate", trace.WithAttributes(
		attribute.String("uri", uri),
		attribute.Int("version", version),
	))
	defer span.End()

	diags, err := a.collect(ctx, uri)
	if err != nil {
		if ctx.Err() != nil {
			a.logger.Debug("validation cancelled", "uri", uri)
			recordValidation(ctx, a.opts.Selector, "discarded", 0)
			return
		}
		err = errors.New(errors.ValidationFailure, "validation of "+uri+" failed", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn("validation failed", "uri", uri, "error", err)
		recordValidation(ctx, a.opts.Selector, "failed", 0)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed || a.docs[uri] != t || t.gen != gen || doc.Disposed() || doc.Version() != version {
		a.logger.Debug("discarding stale validation", "uri", uri, "version", version)
		recordValidation(ctx, a.opts.Selector, "discarded", 0)
		return
	}
	t.cancel = nil
	markers, err := toMarkers(doc, diags)
	if err != nil {
		a.logger.Warn("validation failed", "uri", uri, "error", err)
		recordValidation(ctx, a.opts.Selector, "failed", 0)
		return
	}
	a.opts.Markers.Set(uri, a.opts.Selector, markers)
	span.SetAttributes(attribute.Int("markers", len(markers)))
	recordValidation(ctx, a.opts.Selector, "published", len(markers))
}

func (a *DiagnosticsAdapter) collect(ctx context.Context, uri string) ([]engine.Diagnostic, error) {
	w, err := a.opts.Worker(ctx, uri)
	if err != nil {
		return nil, err
	}
	return collectDiagnostics(ctx, w, uri, a.opts.Config.DiagnosticsOptions())
}

// collectDiagnostics requests the enabled diagnostic passes concurrently.
func collectDiagnostics(ctx context.Context, w LanguageWorker, uri string, opts defaults.DiagnosticsOptions) ([]engine.Diagnostic, error) {
	var syntactic, semantic []engine.Diagnostic
	g, gctx := errgroup.WithContext(ctx)
	if !opts.NoSyntaxValidation {
		g.Go(func() error {
			var err error
			syntactic, err = w.SyntacticDiagnostics(gctx, uri)
			return err
		})
	}
	if !opts.NoSemanticValidation {
		g.Go(func() error {
			var err error
			semantic, err = w.SemanticDiagnostics(gctx, uri)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(syntactic, semantic...), nil
}

func toMarkers(doc *model.Document, diags []engine.Diagnostic) ([]editor.Marker, error) {
	out := make([]editor.Marker, 0, len(diags))
	for _, d := range diags {
		r, err := spanToRange(doc, d.Span())
		if err != nil {
			return nil, err
		}
		out = append(out, editor.Marker{
			Severity: severity(d.Category),
			Range:    r,
			Message:  engine.FlattenDiagnosticMessageText(d, "\n"),
			Code:     d.Code,
			Source:   doc.LanguageID(),
		})
	}
	editor.SortMarkers(out)
	return out, nil
}

func severity(c engine.DiagnosticCategory) editor.Severity {
	switch c {
	case engine.CategoryError:
		return editor.SeverityError
	case engine.CategoryWarning:
		return editor.SeverityWarning
	}
	return editor.SeverityInfo
}

// Tracked reports whether uri is followed by the adapter.
func (a *DiagnosticsAdapter) Tracked(uri string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.docs[uri] != nil
}

// Dispose removes every listener and stops pending and in-flight runs.
// Published markers are left in place.
func (a *DiagnosticsAdapter) Dispose() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.disposed = true
	for uri, t := range a.docs {
		t.listener.Dispose()
		if t.cancel != nil {
			t.cancel()
		}
		delete(a.docs, uri)
	}
	a.mu.Unlock()

	a.subs.Dispose()
	a.debouncer.Close()
	a.cancel()
	a.wg.Wait()
}
