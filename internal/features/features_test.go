package features

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsbridge/internal/defaults"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
	"tsbridge/internal/engine/enginetest"
	"tsbridge/internal/errors"
	"tsbridge/internal/model"
	"tsbridge/internal/slogutil"
	"tsbridge/internal/worker"
)

// env wires the adapters to an in-memory endpoint without a transport.
type env struct {
	store    *model.Store
	registry *editor.Registry
	markers  *editor.Markers
	ep       *worker.Endpoint

	mu      sync.Mutex
	fake    *enginetest.Fake
	workers int
}

func newEnv(t *testing.T, configure func(*enginetest.Fake)) *env {
	t.Helper()
	e := &env{
		store:    model.NewStore(),
		registry: editor.NewRegistry(),
		markers:  editor.NewMarkers(),
	}
	e.ep = worker.NewEndpoint(enginetest.NewFactory(func(f *enginetest.Fake) {
		if configure != nil {
			configure(f)
		}
		e.fake = f
	}), slogutil.NewDiscardLogger())
	require.NoError(t, e.ep.AcceptDefaults(context.Background(), engine.CompilerOptions{}, nil))
	t.Cleanup(e.ep.Dispose)
	return e
}

func (e *env) worker(ctx context.Context, resources ...string) (LanguageWorker, error) {
	e.mu.Lock()
	e.workers++
	e.mu.Unlock()
	var params worker.SyncModelsParams
	for _, uri := range resources {
		if d := e.store.Get(uri); d != nil {
			params.Models = append(params.Models, d.State())
		}
	}
	e.ep.SyncModels(ctx, params)
	return e.ep, nil
}

func (e *env) adapters() *Adapters {
	return &Adapters{Worker: e.worker, Docs: e.store}
}

func (e *env) open(t *testing.T, uri, text string) *model.Document {
	t.Helper()
	d, err := e.store.Create(uri, editor.LanguageTypeScript, text)
	require.NoError(t, err)
	return d
}

func TestHoverSample(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "let x = 1\nlet y = x + 2\n")

	h, err := e.adapters().Hover().Provide(context.Background(), doc, editor.Position{LineNumber: 2, Column: 9})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, editor.Range{StartLineNumber: 2, StartColumn: 9, EndLineNumber: 2, EndColumn: 10}, h.Range)
	assert.Equal(t, []string{"let x: number"}, h.Contents)
}

func TestHoverAbsentResult(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "   ")
	h, err := e.adapters().Hover().Provide(context.Background(), doc, editor.Position{LineNumber: 1, Column: 2})
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestHoverOutOfRangePosition(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "let x")
	_, err := e.adapters().Hover().Provide(context.Background(), doc, editor.Position{LineNumber: 3, Column: 1})
	assert.True(t, errors.HasCode(err, errors.OutOfRange), "got %v", err)
}

func TestSignatureHelpLabel(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "fn(1, ")

	p := e.adapters().SignatureHelp()
	assert.Equal(t, []string{"(", ","}, p.TriggerCharacters)
	help, err := p.Provide(context.Background(), doc, editor.Position{LineNumber: 1, Column: 7})
	require.NoError(t, err)
	require.Len(t, help.Signatures, 1)
	sig := help.Signatures[0]
	assert.Equal(t, "fn(a: number, b: string): void", sig.Label)
	assert.Equal(t, 1, help.ActiveParameter)
	require.Len(t, sig.Parameters, 2)
	assert.Equal(t, "the b", sig.Parameters[1].Documentation)
	assert.Equal(t, "does fn things", sig.Documentation)
}

func TestDocumentHighlightKinds(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "let v = 1;\nv = v + 1;")

	hl, err := e.adapters().DocumentHighlights().Provide(context.Background(), doc, editor.Position{LineNumber: 1, Column: 5})
	require.NoError(t, err)
	require.Len(t, hl, 3)
	assert.Equal(t, editor.HighlightWrite, hl[0].Kind)
	assert.Equal(t, editor.HighlightText, hl[1].Kind)
	assert.Equal(t, editor.Range{StartLineNumber: 2, StartColumn: 1, EndLineNumber: 2, EndColumn: 2}, hl[1].Range)
}

func TestDefinitionAndReferencesDropClosedTargets(t *testing.T) {
	e := newEnv(t, nil)
	a := e.open(t, "file:///a.ts", "foo();")
	e.open(t, "file:///b.ts", "function foo() {}")

	ctx := context.Background()
	// push both documents, then close b on the editor side only
	_, err := e.worker(ctx, "file:///a.ts", "file:///b.ts")
	require.NoError(t, err)
	require.True(t, e.store.Dispose("file:///b.ts"))

	ad := e.adapters()
	defs, err := ad.Definition().Provide(ctx, a, editor.Position{LineNumber: 1, Column: 1})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "file:///a.ts", defs[0].URI)

	refs, err := ad.References().Provide(ctx, a, editor.Position{LineNumber: 1, Column: 2})
	require.NoError(t, err)
	for _, r := range refs {
		assert.Equal(t, "file:///a.ts", r.URI)
	}
	assert.Len(t, refs, 1)
}

// stubWorker answers only what a test overrides; the rest panics.
type stubWorker struct {
	LanguageWorker
	definitions func(ctx context.Context) ([]engine.DefinitionInfo, error)
	quickInfo   func(ctx context.Context) (*engine.QuickInfo, error)
}

func (s stubWorker) DefinitionAtPosition(ctx context.Context, _ string, _ int) ([]engine.DefinitionInfo, error) {
	return s.definitions(ctx)
}

func (s stubWorker) QuickInfoAtPosition(ctx context.Context, _ string, _ int) (*engine.QuickInfo, error) {
	return s.quickInfo(ctx)
}

func TestDefinitionAllDroppedIsEmpty(t *testing.T) {
	store := model.NewStore()
	doc, err := store.Create("file:///a.ts", editor.LanguageTypeScript, "x")
	require.NoError(t, err)
	w := stubWorker{definitions: func(context.Context) ([]engine.DefinitionInfo, error) {
		return []engine.DefinitionInfo{{FileName: "file:///gone.ts", TextSpan: engine.TextSpan{Start: 0, Length: 1}}}, nil
	}}
	ad := &Adapters{Docs: store, Worker: func(context.Context, ...string) (LanguageWorker, error) { return w, nil }}

	defs, err := ad.Definition().Provide(context.Background(), doc, editor.Position{LineNumber: 1, Column: 1})
	require.NoError(t, err)
	assert.NotNil(t, defs)
	assert.Empty(t, defs)
}

func TestNoResultAfterCancellation(t *testing.T) {
	store := model.NewStore()
	doc, err := store.Create("file:///a.ts", editor.LanguageTypeScript, "x")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w := stubWorker{quickInfo: func(context.Context) (*engine.QuickInfo, error) {
		// the engine finishes anyway, after the caller gave up
		cancel()
		return &engine.QuickInfo{TextSpan: engine.TextSpan{Start: 0, Length: 1}}, nil
	}}
	ad := &Adapters{Docs: store, Worker: func(context.Context, ...string) (LanguageWorker, error) { return w, nil }}

	h, err := ad.Hover().Provide(ctx, doc, editor.Position{LineNumber: 1, Column: 1})
	assert.Nil(t, h)
	assert.True(t, errors.HasCode(err, errors.Cancelled), "got %v", err)
}

func TestCancelledBeforeCall(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "let x = 1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := e.adapters().Hover().Provide(ctx, doc, editor.Position{LineNumber: 1, Column: 5})
	assert.Nil(t, h)
	assert.True(t, errors.HasCode(err, errors.Cancelled), "got %v", err)
}

func TestOutlinePreOrderWithContainers(t *testing.T) {
	span := []engine.TextSpan{{Start: 0, Length: 1}}
	e := newEnv(t, func(f *enginetest.Fake) {
		f.NavItems = []engine.NavigationBarItem{{
			Text: "m", Kind: engine.KindModule, Spans: span,
			ChildItems: []engine.NavigationBarItem{
				{Text: "C", Kind: engine.KindClass, Spans: span, ChildItems: []engine.NavigationBarItem{
					{Text: "run", Kind: engine.KindMethod, Spans: span},
				}},
				{Text: "helper", Kind: engine.KindFunction, Spans: span},
				{Text: "odd", Kind: "call", Spans: span},
			},
		}}
	})
	doc := e.open(t, "file:///a.ts", "module m {}")

	syms, err := e.adapters().Outline().Provide(context.Background(), doc)
	require.NoError(t, err)

	var names, containers []string
	var kinds []editor.SymbolKind
	for _, s := range syms {
		names = append(names, s.Name)
		containers = append(containers, s.ContainerName)
		kinds = append(kinds, s.Kind)
		assert.Equal(t, "file:///a.ts", s.Location.URI)
	}
	assert.Equal(t, []string{"m", "C", "run", "helper", "odd"}, names)
	assert.Equal(t, []string{"", "m", "C", "m", "m"}, containers)
	assert.Equal(t, []editor.SymbolKind{
		editor.SymbolModule, editor.SymbolClass, editor.SymbolMethod, editor.SymbolFunction, editor.SymbolVariable,
	}, kinds)
}

func TestFormattingMapsOptionsAndEdits(t *testing.T) {
	e := newEnv(t, func(f *enginetest.Fake) {
		f.Edits = []engine.TextChange{{Span: engine.TextSpan{Start: 0, Length: 3}, NewText: "const"}}
	})
	doc := e.open(t, "file:///a.ts", "var a=1;\n")
	ad := e.adapters()
	ctx := context.Background()
	opts := editor.FormattingOptions{TabSize: 2, InsertSpaces: true}

	edits, err := ad.DocumentFormatting().Provide(ctx, doc, opts)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "const", edits[0].Text)
	assert.Equal(t, editor.Range{StartLineNumber: 1, StartColumn: 1, EndLineNumber: 1, EndColumn: 4}, edits[0].Range)

	got := e.fake.LastFormatOptions()
	assert.True(t, got.ConvertTabsToSpaces)
	assert.Equal(t, 2, got.TabSize)
	assert.Equal(t, 2, got.IndentSize)
	assert.Equal(t, engine.IndentSmart, got.IndentStyle)
	assert.Equal(t, "\n", got.NewLineCharacter)
	assert.True(t, got.InsertSpaceAfterCommaDelimiter)
	assert.True(t, got.InsertSpaceBeforeAndAfterBinaryOperators)
	assert.False(t, got.PlaceOpenBraceOnNewLineForFunctions)

	_, err = ad.RangeFormatting().Provide(ctx, doc, editor.Range{StartLineNumber: 1, StartColumn: 1, EndLineNumber: 1, EndColumn: 9}, opts)
	require.NoError(t, err)

	r := e.registry
	r.Register(editor.LanguageTypeScript, ad.OnTypeFormatting())
	_, err = r.FormatOnType(ctx, doc, editor.Position{LineNumber: 1, Column: 9}, ";", opts)
	require.NoError(t, err)

	assert.Contains(t, e.fake.Calls(), "formatDocument")
	assert.Contains(t, e.fake.Calls(), "formatRange")
	assert.Contains(t, e.fake.Calls(), "formatKeystroke:;")
}

func TestCompletionAndResolve(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "al")
	p := e.adapters().Completion()
	ctx := context.Background()

	list, err := p.Provide(ctx, doc, editor.Position{LineNumber: 1, Column: 3})
	require.NoError(t, err)
	assert.Equal(t, "al", list.CurrentWord)
	require.Len(t, list.Items, 2)
	assert.Equal(t, editor.CompletionVariable, list.Items[0].Kind)
	assert.Equal(t, editor.CompletionFunction, list.Items[1].Kind)

	item, err := p.Resolve(ctx, doc, list.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "let alpha: number", item.Detail)
	assert.Equal(t, "docs for alpha", item.Documentation)
}

func TestEmit(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "let a = 1;")
	out, err := e.adapters().Emit(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, out.OutputFiles, 1)
	assert.Equal(t, "file:///a.js", out.OutputFiles[0].Name)
}

func TestDiagnosticsOnDemand(t *testing.T) {
	e := newEnv(t, nil)
	doc := e.open(t, "file:///a.ts", "let error = @@;")
	a := e.adapters()

	markers, err := a.Diagnostics(context.Background(), doc, defaults.DiagnosticsOptions{})
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, 2, markers[0].Code)
	assert.Equal(t, editor.Range{StartLineNumber: 1, StartColumn: 5, EndLineNumber: 1, EndColumn: 10}, markers[0].Range)
	assert.Equal(t, 1, markers[1].Code)

	markers, err = a.Diagnostics(context.Background(), doc, defaults.DiagnosticsOptions{NoSemanticValidation: true})
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, "Unexpected token.", markers[0].Message)
}

func TestRegisterAllProviders(t *testing.T) {
	e := newEnv(t, nil)
	d := Register(editor.LanguageTypeScript, staticConfig{}, e.store, e.registry, e.markers, e.worker)
	assert.Len(t, e.registry.Registrations(), 10)

	doc := e.open(t, "file:///a.ts", "let x = 1")
	h, err := e.registry.Hover(context.Background(), doc, editor.Position{LineNumber: 1, Column: 5})
	require.NoError(t, err)
	require.NotNil(t, h)

	d.Dispose()
	assert.Empty(t, e.registry.Registrations())
}
