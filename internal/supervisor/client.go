package supervisor

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
	"go.opentelemetry.io/otel/codes"

	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/model"
	"tsbridge/internal/worker"
)

// DocumentSource resolves open documents by URI.
type DocumentSource interface {
	Get(uri string) *model.Document
}

type syncedDoc struct {
	doc     *model.Document
	version int
}

// Client is the host-side proxy of one worker instance. Every method is an
// asynchronous request; results from a client that has been torn down are
// reported as StaleConfiguration.
type Client struct {
	id      string
	conn    *jsonrpc2.Conn
	stream  io.ReadWriteCloser
	timeout time.Duration
	logger  *slog.Logger

	stale    atomic.Bool
	inflight atomic.Int64
	lastUsed atomic.Int64

	// syncMu serializes resource syncs and guards synced
	syncMu sync.Mutex
	synced map[string]syncedDoc
}

// noopHandler rejects worker-initiated requests; the protocol has none.
type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if !req.Notif {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method})
	}
}

func newClient(stream io.ReadWriteCloser, timeout time.Duration, logger *slog.Logger) *Client {
	id := uuid.NewString()
	c := &Client{
		id:      id,
		stream:  stream,
		timeout: timeout,
		logger:  logger.With("worker", id[:8]),
		synced:  make(map[string]syncedDoc),
	}
	c.conn = jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}),
		noopHandler{},
		jsonrpc2.SetLogger(worker.RPCLogger(c.logger)))
	c.touch()
	return c
}

// ID identifies the worker instance.
func (c *Client) ID() string { return c.id }

// Stale reports whether the client has been torn down.
func (c *Client) Stale() bool { return c.stale.Load() }

// Done is closed when the connection to the worker is gone.
func (c *Client) Done() <-chan struct{} { return c.conn.DisconnectNotify() }

func (c *Client) touch() { c.lastUsed.Store(time.Now().UnixNano()) }

func (c *Client) idleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastUsed.Load()))
}

// Dispose marks the client stale, closes the stream and waits until the
// connection is gone. Safe to call more than once; only the first call has
// effect.
func (c *Client) Dispose() bool {
	if !c.retire() {
		return false
	}
	c.shutdown()
	return true
}

// retire marks the client stale and reports whether this call did so.
func (c *Client) retire() bool { return c.stale.CompareAndSwap(false, true) }

// shutdown closes only the stream. The connection's reader fails its next
// read and closes the connection itself; closing the connection from here
// races with replies the reader is still delivering.
func (c *Client) shutdown() {
	_ = c.stream.Close()
	<-c.conn.DisconnectNotify()
}

func (c *Client) staleErr() error {
	return errors.Newf(errors.StaleConfiguration, "worker %s was torn down", c.id[:8])
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) (err error) {
	if c.stale.Load() {
		return c.staleErr()
	}
	c.inflight.Add(1)
	defer func() {
		c.inflight.Add(-1)
		c.touch()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, span := startCallSpan(ctx, c.id, method)
	started := time.Now()
	defer func() {
		recordRequest(ctx, method, started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		}
		span.End()
	}()

	id := jsonrpc2.ID{Str: uuid.NewString(), IsString: true}
	callErr := c.conn.Call(ctx, method, params, result, jsonrpc2.PickID(id))
	if c.stale.Load() {
		return c.staleErr()
	}
	if callErr == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		// best effort; a late reply is dropped by the connection
		if nerr := c.conn.Notify(context.Background(), worker.MethodCancelRequest, worker.CancelParams{ID: id}); nerr != nil {
			c.logger.Debug("cancel notification failed", "method", method, "err", nerr)
		}
		return errors.FromContext(ctxErr)
	}
	if stderrors.Is(callErr, jsonrpc2.ErrClosed) || stderrors.Is(callErr, io.ErrUnexpectedEOF) || stderrors.Is(callErr, io.EOF) {
		return errors.New(errors.WorkerUnavailable, "worker connection closed", callErr)
	}
	return worker.FromRPCError(callErr)
}

// AcceptDefaults pushes compiler options and extra sources into the worker.
func (c *Client) AcceptDefaults(ctx context.Context, options engine.CompilerOptions, extraLibs map[string]string) error {
	return c.call(ctx, worker.MethodAcceptDefaults, worker.AcceptDefaultsParams{CompilerOptions: options, ExtraLibs: extraLibs}, nil)
}

// SyncResources makes the worker's mirror reflect the current content of
// uris. Documents already synced at their current version are skipped and
// documents that are no longer open are removed.
func (c *Client) SyncResources(ctx context.Context, docs DocumentSource, uris []string) error {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	var params worker.SyncModelsParams
	pending := make(map[string]syncedDoc)
	removed := make(map[string]bool)
	for _, uri := range uris {
		d := docs.Get(uri)
		if d == nil {
			continue
		}
		st := d.State()
		if cur, ok := c.synced[uri]; ok && cur.doc == d && cur.version == st.Version {
			continue
		}
		if _, dup := pending[uri]; dup {
			continue
		}
		pending[uri] = syncedDoc{doc: d, version: st.Version}
		params.Models = append(params.Models, st)
	}
	for uri, cur := range c.synced {
		if d := docs.Get(uri); d == nil || (d != cur.doc && pending[uri].doc == nil) {
			removed[uri] = true
			params.Removed = append(params.Removed, uri)
		}
	}
	if len(params.Models) == 0 && len(params.Removed) == 0 {
		return nil
	}

	var res worker.SyncModelsResult
	if err := c.call(ctx, worker.MethodSyncModels, params, &res); err != nil {
		return err
	}
	for uri := range removed {
		delete(c.synced, uri)
	}
	for uri, s := range pending {
		c.synced[uri] = s
	}
	return nil
}

func (c *Client) SyntacticDiagnostics(ctx context.Context, uri string) ([]engine.Diagnostic, error) {
	var out []engine.Diagnostic
	err := c.call(ctx, worker.MethodSyntacticDiagnostics, worker.FileParams{FileName: uri}, &out)
	return out, err
}

func (c *Client) SemanticDiagnostics(ctx context.Context, uri string) ([]engine.Diagnostic, error) {
	var out []engine.Diagnostic
	err := c.call(ctx, worker.MethodSemanticDiagnostics, worker.FileParams{FileName: uri}, &out)
	return out, err
}

func (c *Client) CompilerOptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	var out []engine.Diagnostic
	err := c.call(ctx, worker.MethodCompilerOptionsDiagnostics, nil, &out)
	return out, err
}

func (c *Client) CompletionsAtPosition(ctx context.Context, uri string, offset int) (*engine.CompletionInfo, error) {
	var out *engine.CompletionInfo
	err := c.call(ctx, worker.MethodCompletionsAtPosition, worker.PositionParams{FileName: uri, Position: offset}, &out)
	return out, err
}

func (c *Client) CompletionEntryDetails(ctx context.Context, uri string, offset int, entry string) (*engine.CompletionEntryDetails, error) {
	var out *engine.CompletionEntryDetails
	err := c.call(ctx, worker.MethodCompletionEntryDetails, worker.CompletionDetailsParams{FileName: uri, Position: offset, EntryName: entry}, &out)
	return out, err
}

func (c *Client) SignatureHelpItems(ctx context.Context, uri string, offset int) (*engine.SignatureHelpItems, error) {
	var out *engine.SignatureHelpItems
	err := c.call(ctx, worker.MethodSignatureHelpItems, worker.PositionParams{FileName: uri, Position: offset}, &out)
	return out, err
}

func (c *Client) QuickInfoAtPosition(ctx context.Context, uri string, offset int) (*engine.QuickInfo, error) {
	var out *engine.QuickInfo
	err := c.call(ctx, worker.MethodQuickInfoAtPosition, worker.PositionParams{FileName: uri, Position: offset}, &out)
	return out, err
}

func (c *Client) OccurrencesAtPosition(ctx context.Context, uri string, offset int) ([]engine.ReferenceEntry, error) {
	var out []engine.ReferenceEntry
	err := c.call(ctx, worker.MethodOccurrencesAtPosition, worker.PositionParams{FileName: uri, Position: offset}, &out)
	return out, err
}

func (c *Client) DefinitionAtPosition(ctx context.Context, uri string, offset int) ([]engine.DefinitionInfo, error) {
	var out []engine.DefinitionInfo
	err := c.call(ctx, worker.MethodDefinitionAtPosition, worker.PositionParams{FileName: uri, Position: offset}, &out)
	return out, err
}

func (c *Client) ReferencesAtPosition(ctx context.Context, uri string, offset int) ([]engine.ReferenceEntry, error) {
	var out []engine.ReferenceEntry
	err := c.call(ctx, worker.MethodReferencesAtPosition, worker.PositionParams{FileName: uri, Position: offset}, &out)
	return out, err
}

func (c *Client) NavigationBarItems(ctx context.Context, uri string) ([]engine.NavigationBarItem, error) {
	var out []engine.NavigationBarItem
	err := c.call(ctx, worker.MethodNavigationBarItems, worker.FileParams{FileName: uri}, &out)
	return out, err
}

func (c *Client) FormattingEditsForDocument(ctx context.Context, uri string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	var out []engine.TextChange
	err := c.call(ctx, worker.MethodFormattingEditsForDocument, worker.DocumentFormatParams{FileName: uri, Options: options}, &out)
	return out, err
}

func (c *Client) FormattingEditsForRange(ctx context.Context, uri string, start, end int, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	var out []engine.TextChange
	err := c.call(ctx, worker.MethodFormattingEditsForRange, worker.RangeFormatParams{FileName: uri, Start: start, End: end, Options: options}, &out)
	return out, err
}

func (c *Client) FormattingEditsAfterKeystroke(ctx context.Context, uri string, offset int, key string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	var out []engine.TextChange
	err := c.call(ctx, worker.MethodFormattingEditsAfterKeystroke, worker.KeystrokeFormatParams{FileName: uri, Position: offset, Key: key, Options: options}, &out)
	return out, err
}

func (c *Client) EmitOutput(ctx context.Context, uri string) (*engine.EmitOutput, error) {
	var out *engine.EmitOutput
	err := c.call(ctx, worker.MethodEmitOutput, worker.FileParams{FileName: uri}, &out)
	return out, err
}
