package worker

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsbridge/internal/engine"
	"tsbridge/internal/engine/enginetest"
	"tsbridge/internal/errors"
	"tsbridge/internal/model"
	"tsbridge/internal/slogutil"
)

func TestHostScriptFileNamesIsUnion(t *testing.T) {
	m := NewMirror()
	m.Sync([]model.State{{URI: "file:///b.ts", Version: 1, Text: "b"}, {URI: "file:///a.ts", Version: 3, Text: "a"}}, nil)
	h := NewHost(m)
	h.SetDefaults(nil, map[string]string{"file:///a.ts": "dup", "lib/extra.d.ts": "declare var extra: number;"})

	assert.Equal(t, []string{"file:///a.ts", "file:///b.ts", "lib/extra.d.ts"}, h.ScriptFileNames())
}

func TestHostVersionsAndSnapshots(t *testing.T) {
	m := NewMirror()
	m.Sync([]model.State{{URI: "file:///a.ts", Version: 7, Text: "let a = 1;"}}, nil)
	h := NewHost(m)
	h.SetDefaults(engine.CompilerOptions{"target": 1}, map[string]string{"extra.d.ts": "declare var e: string;"})

	tests := []struct {
		name    string
		file    string
		version string
		known   bool
		text    string
	}{
		{"document", "file:///a.ts", "7", true, "let a = 1;"},
		{"extra lib", "extra.d.ts", "1", true, "declare var e: string;"},
		{"active default lib", engine.LibES5, "1", true, ""},
		{"inactive default lib", engine.LibES6, "", false, ""},
		{"unknown", "file:///nope.ts", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := h.ScriptVersion(tt.file)
			assert.Equal(t, tt.known, ok)
			assert.Equal(t, tt.version, v)

			snap := h.ScriptSnapshot(tt.file)
			if !tt.known {
				assert.Nil(t, snap)
				return
			}
			require.NotNil(t, snap)
			if tt.text != "" {
				assert.Equal(t, tt.text, engine.SnapshotText(snap))
			} else {
				assert.Contains(t, engine.SnapshotText(snap), "interface Array<T>")
			}
		})
	}
	assert.Equal(t, "", h.CurrentDirectory())
}

func TestDefaultLibFileName(t *testing.T) {
	tests := []struct {
		options engine.CompilerOptions
		want    string
	}{
		{engine.CompilerOptions{}, engine.LibES5},
		{engine.CompilerOptions{"target": "ES3"}, engine.LibES5},
		{engine.CompilerOptions{"target": "ES5"}, engine.LibES5},
		{engine.CompilerOptions{"target": "ES2015"}, engine.LibES6},
		{engine.CompilerOptions{"target": float64(engine.ESNext)}, engine.LibES6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultLibFileName(tt.options), "options %v", tt.options)
	}

	es6, ok := DefaultLibText(engine.LibES6)
	require.True(t, ok)
	assert.Contains(t, es6, "declare var Promise")
	es5, ok := DefaultLibText(engine.LibES5)
	require.True(t, ok)
	assert.NotContains(t, es5, "declare var Promise")
}

func TestMirrorSync(t *testing.T) {
	m := NewMirror()
	m.Sync([]model.State{{URI: "u", Version: 2, Text: "new"}}, nil)
	m.Sync([]model.State{{URI: "u", Version: 1, Text: "new"}}, nil)
	v, ok := m.Version("u")
	require.True(t, ok)
	assert.Equal(t, 2, v, "same text at an older version is ignored")

	m.Sync(nil, []string{"u"})
	_, ok = m.Version("u")
	assert.False(t, ok)
}

func newTestEndpoint(t *testing.T, configure func(*enginetest.Fake)) (*Endpoint, *enginetest.Fake) {
	t.Helper()
	var fake *enginetest.Fake
	ep := NewEndpoint(enginetest.NewFactory(func(f *enginetest.Fake) {
		fake = f
		if configure != nil {
			configure(f)
		}
	}), slogutil.NewDiscardLogger())
	require.NoError(t, ep.AcceptDefaults(context.Background(), engine.CompilerOptions{}, nil))
	return ep, fake
}

func TestEndpointStripsFileAndHandlesUnknown(t *testing.T) {
	ep, _ := newTestEndpoint(t, nil)
	ctx := context.Background()
	ep.SyncModels(ctx, SyncModelsParams{Models: []model.State{{URI: "file:///a.ts", Version: 1, Text: "let error = @@;"}}})

	syn, err := ep.SyntacticDiagnostics(ctx, "file:///a.ts")
	require.NoError(t, err)
	require.Len(t, syn, 1)
	assert.Empty(t, syn[0].File)

	sem, err := ep.SemanticDiagnostics(ctx, "file:///a.ts")
	require.NoError(t, err)
	require.Len(t, sem, 1)
	assert.Empty(t, sem[0].File)
	assert.Equal(t, 4, sem[0].Start)

	none, err := ep.SemanticDiagnostics(ctx, "file:///missing.ts")
	require.NoError(t, err)
	assert.Empty(t, none)

	qi, err := ep.QuickInfoAtPosition(ctx, "file:///missing.ts", 0)
	require.NoError(t, err)
	assert.Nil(t, qi)
}

func TestEndpointRequiresDefaults(t *testing.T) {
	ep := NewEndpoint(enginetest.NewFactory(nil), nil)
	_, err := ep.SemanticDiagnostics(context.Background(), "x")
	assert.True(t, errors.HasCode(err, errors.InvalidParams))
}

func TestEndpointCancelledContext(t *testing.T) {
	ep, _ := newTestEndpoint(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ep.SyntacticDiagnostics(ctx, "file:///a.ts")
	assert.True(t, errors.HasCode(err, errors.Cancelled))
}

func TestEndpointDisposeReleasesEngine(t *testing.T) {
	ep, fake := newTestEndpoint(t, nil)
	ep.Dispose()
	assert.True(t, fake.Disposed())
}

// dialServer starts Serve on one end of a pipe and returns a client conn.
func dialServer(t *testing.T, ep *Endpoint) *jsonrpc2.Conn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Serve(ctx, serverSide, ep, slogutil.NewDiscardLogger())
	}()
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
		return nil, nil
	}))
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return conn
}

func TestServeRoundTrip(t *testing.T) {
	ep := NewEndpoint(enginetest.NewFactory(nil), slogutil.NewDiscardLogger())
	conn := dialServer(t, ep)
	ctx := context.Background()

	require.NoError(t, conn.Call(ctx, MethodAcceptDefaults, AcceptDefaultsParams{CompilerOptions: engine.CompilerOptions{"target": "ES2015"}}, nil))

	var synced SyncModelsResult
	require.NoError(t, conn.Call(ctx, MethodSyncModels, SyncModelsParams{Models: []model.State{{URI: "file:///a.ts", Version: 4, Text: "let x = error;"}}}, &synced))
	assert.Equal(t, map[string]int{"file:///a.ts": 4}, synced.Versions)

	var diags []engine.Diagnostic
	require.NoError(t, conn.Call(ctx, MethodSemanticDiagnostics, FileParams{FileName: "file:///a.ts"}, &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, 8, diags[0].Start)
	assert.Empty(t, diags[0].File)

	var raw json.RawMessage
	require.NoError(t, conn.Call(ctx, MethodQuickInfoAtPosition, PositionParams{FileName: "file:///nope.ts", Position: 0}, &raw))
	assert.Equal(t, "null", string(raw))

	err := conn.Call(ctx, "bogus", FileParams{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(FromRPCError(err), errors.InternalError))

	err = conn.Call(ctx, MethodSemanticDiagnostics, nil, nil)
	assert.True(t, errors.HasCode(FromRPCError(err), errors.InvalidParams))
}

func TestServeCancelRequest(t *testing.T) {
	gate := make(chan struct{})
	ep := NewEndpoint(enginetest.NewFactory(func(f *enginetest.Fake) { f.Gate = gate }), slogutil.NewDiscardLogger())
	conn := dialServer(t, ep)
	ctx := context.Background()

	require.NoError(t, conn.Call(ctx, MethodAcceptDefaults, AcceptDefaultsParams{}, nil))
	require.NoError(t, conn.Call(ctx, MethodSyncModels, SyncModelsParams{Models: []model.State{{URI: "a.ts", Version: 1, Text: "x"}}}, nil))

	id := jsonrpc2.ID{Str: "req-1", IsString: true}
	errCh := make(chan error, 1)
	go func() {
		errCh <- conn.Call(ctx, MethodSemanticDiagnostics, FileParams{FileName: "a.ts"}, nil, jsonrpc2.PickID(id))
	}()

	// the request is parked on the gate; cancel must release it with a cancelled error
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Notify(ctx, MethodCancelRequest, CancelParams{ID: id}))

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, errors.HasCode(FromRPCError(err), errors.Cancelled), "err = %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestRPCErrorRoundTrip(t *testing.T) {
	in := errors.New(errors.OutOfRange, "offset 99", nil)
	out := FromRPCError(ToRPCError(in))
	assert.True(t, errors.HasCode(out, errors.OutOfRange))
	assert.Contains(t, out.Error(), "offset 99")
}
