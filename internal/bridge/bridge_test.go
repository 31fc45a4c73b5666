package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsbridge/internal/config"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine/enginetest"
	"tsbridge/internal/errors"
	"tsbridge/internal/supervisor"
)

func newBridge(t *testing.T, cfg *config.Config) *Bridge {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Diagnostics.DebounceMs = 10
	b, err := New(Options{Config: cfg, Factory: enginetest.NewFactory(nil)})
	require.NoError(t, err)
	t.Cleanup(b.Dispose)
	return b
}

func TestNewRequiresFactoryInProcess(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Worker.Mode = "remote"
	_, err := New(Options{Config: cfg, Factory: enginetest.NewFactory(nil)})
	var ce *config.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "worker.mode", ce.Field)
}

func TestModesActivateLazily(t *testing.T) {
	b := newBridge(t, nil)

	ts, ok := b.Mode(editor.LanguageTypeScript)
	require.True(t, ok)
	js, ok := b.Mode(editor.LanguageJavaScript)
	require.True(t, ok)
	assert.False(t, ts.Active())
	assert.Empty(t, b.Registry.Providers(editor.LanguageTypeScript, editor.CapabilityHover))

	_, err := b.Open("/src/app.ts", "let x = 1;\n")
	require.NoError(t, err)

	assert.True(t, ts.Active())
	assert.False(t, js.Active())
	assert.Len(t, b.Registry.Providers(editor.LanguageTypeScript, editor.CapabilityHover), 1)
	assert.Equal(t, supervisor.StateUnstarted, ts.Manager().State())
}

func TestOpenDetectsLanguage(t *testing.T) {
	b := newBridge(t, nil)

	tests := []struct {
		path string
		text string
		want string
	}{
		{"/src/a.ts", "", editor.LanguageTypeScript},
		{"/src/b.js", "", editor.LanguageJavaScript},
		{"/src/c.es6", "", editor.LanguageJavaScript},
		{"/src/Jakefile", "", editor.LanguageJavaScript},
		{"/bin/tool", "#!/usr/bin/env node\r\nrun();\n", editor.LanguageJavaScript},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			doc, err := b.Open(tt.path, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.LanguageID())
		})
	}
}

func TestOpenUnknownLanguage(t *testing.T) {
	b := newBridge(t, nil)
	_, err := b.Open("/notes/readme.txt", "hello")
	assert.True(t, errors.HasCode(err, errors.InvalidParams))
}

func TestOpenAcceptsURI(t *testing.T) {
	b := newBridge(t, nil)
	doc, err := b.Open("file:///src/a.ts", "")
	require.NoError(t, err)
	assert.Equal(t, "file:///src/a.ts", doc.URI())

	got, err := b.Document("file:///src/a.ts")
	require.NoError(t, err)
	assert.Same(t, doc, got)

	_, err = b.Open("file:///src/a.ts", "")
	assert.Error(t, err)
}

func TestDocumentUnknown(t *testing.T) {
	b := newBridge(t, nil)
	_, err := b.Document("file:///missing.ts")
	assert.True(t, errors.HasCode(err, errors.UnknownDocument))
}

func TestDiagnosticsPublished(t *testing.T) {
	b := newBridge(t, nil)
	doc, err := b.Open("/src/app.ts", "let error = 1;\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(b.Markers.ForDocument(doc.URI())) == 1
	}, 5*time.Second, 10*time.Millisecond)
	m := b.Markers.ForDocument(doc.URI())[0]
	assert.Equal(t, editor.SeverityError, m.Severity)
	assert.Equal(t, "Found error.", m.Message)

	doc.SetText("let fine = 1;\n")
	require.Eventually(t, func() bool {
		return len(b.Markers.ForDocument(doc.URI())) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHoverThroughRegistry(t *testing.T) {
	b := newBridge(t, nil)
	doc, err := b.Open("/src/app.ts", "let count = 1;\n")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hover, err := b.Registry.Hover(ctx, doc, editor.Position{LineNumber: 1, Column: 6})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, []string{"let count: number"}, hover.Contents)

	mode, _ := b.Mode(editor.LanguageTypeScript)
	assert.Equal(t, supervisor.StateReady, mode.Manager().State())
}

func TestEmit(t *testing.T) {
	b := newBridge(t, nil)
	doc, err := b.Open("/src/app.ts", "let a = 1;\n")
	require.NoError(t, err)

	out, err := b.Emit(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, out.OutputFiles, 1)
	assert.Equal(t, "let a = 1;\n", out.OutputFiles[0].Text)
}

func TestApplyConfigUpdatesDefaults(t *testing.T) {
	b := newBridge(t, nil)
	mode, _ := b.Mode(editor.LanguageJavaScript)
	assert.False(t, mode.Defaults.CompilerOptions().Bool("checkJs"))

	changed := make(chan struct{}, 1)
	sub := mode.Defaults.OnDidChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer sub.Dispose()

	cfg := config.DefaultConfig()
	lc := cfg.Languages[editor.LanguageJavaScript]
	lc.CompilerOptions["checkJs"] = true
	lc.Diagnostics.NoSemanticValidation = true
	cfg.Languages[editor.LanguageJavaScript] = lc
	require.NoError(t, b.ApplyConfig(cfg))

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("defaults did not change")
	}
	assert.True(t, mode.Defaults.CompilerOptions().Bool("checkJs"))
	assert.True(t, mode.Defaults.DiagnosticsOptions().NoSemanticValidation)
}

func TestApplyConfigRejectsInvalid(t *testing.T) {
	b := newBridge(t, nil)
	cfg := config.DefaultConfig()
	cfg.Format.TabSize = 0
	assert.Error(t, b.ApplyConfig(cfg))
}

func TestDisposeUnregisters(t *testing.T) {
	b := newBridge(t, nil)
	_, err := b.Open("/src/app.ts", "")
	require.NoError(t, err)
	require.NotEmpty(t, b.Registry.Providers(editor.LanguageTypeScript, editor.CapabilityCompletion))

	b.Dispose()
	b.Dispose()

	assert.Empty(t, b.Registry.Providers(editor.LanguageTypeScript, editor.CapabilityCompletion))
	_, err = b.Open("/src/other.ts", "")
	assert.True(t, errors.HasCode(err, errors.WorkerUnavailable))
}
