package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"tsbridge/internal/errors"
	"tsbridge/internal/slogutil"
)

// Server answers worker protocol requests on one connection. Requests run
// concurrently with the reader so $/cancelRequest can reach them.
type Server struct {
	endpoint *Endpoint
	logger   *slog.Logger

	// mu protects inflight
	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewServer creates a server for ep.
func NewServer(ep *Endpoint, logger *slog.Logger) *Server {
	return &Server{
		endpoint: ep,
		logger:   slogutil.Component(logger, "worker.server"),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Serve answers requests on rwc until the peer disconnects or ctx ends, then
// disposes the endpoint.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, ep *Endpoint, logger *slog.Logger) error {
	s := NewServer(ep, logger)
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), s,
		jsonrpc2.SetLogger(RPCLogger(s.logger)))
	defer ep.Dispose()
	defer s.cancelAll()

	select {
	case <-conn.DisconnectNotify():
		s.logger.Debug("peer disconnected")
		return nil
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.DisconnectNotify()
		return ctx.Err()
	}
}

// Handle implements jsonrpc2.Handler.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		if req.Method == MethodCancelRequest {
			s.cancel(req)
		}
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	key := req.ID.String()
	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()

		result, err := s.dispatch(reqCtx, req)
		if err != nil {
			s.logger.Debug("request failed", "method", req.Method, "id", key, "err", err)
			if replyErr := conn.ReplyWithError(ctx, req.ID, ToRPCError(err)); replyErr != nil {
				s.logger.Debug("reply failed", "method", req.Method, "err", replyErr)
			}
			return
		}
		if replyErr := conn.Reply(ctx, req.ID, result); replyErr != nil {
			s.logger.Debug("reply failed", "method", req.Method, "err", replyErr)
		}
	}()
}

func (s *Server) cancel(req *jsonrpc2.Request) {
	var p CancelParams
	if err := decode(req, &p); err != nil {
		return
	}
	s.mu.Lock()
	cancel, ok := s.inflight[p.ID.String()]
	s.mu.Unlock()
	if ok {
		s.logger.Debug("cancelling request", "id", p.ID.String())
		cancel()
	}
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.inflight {
		cancel()
	}
}

type rpcLogger struct{ logger *slog.Logger }

func (l rpcLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// RPCLogger routes the JSON-RPC connection's own messages to logger at debug level.
func RPCLogger(logger *slog.Logger) jsonrpc2.Logger {
	return rpcLogger{logger: logger}
}

func decode(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil || string(*req.Params) == "null" {
		return errors.Newf(errors.InvalidParams, "%s: missing params", req.Method)
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return errors.New(errors.InvalidParams, req.Method+": malformed params", err)
	}
	return nil
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	ep := s.endpoint
	switch req.Method {
	case MethodAcceptDefaults:
		var p AcceptDefaultsParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return nil, ep.AcceptDefaults(ctx, p.CompilerOptions, p.ExtraLibs)

	case MethodSyncModels:
		var p SyncModelsParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return ep.SyncModels(ctx, p), nil

	case MethodSyntacticDiagnostics, MethodSemanticDiagnostics, MethodNavigationBarItems, MethodEmitOutput:
		var p FileParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		switch req.Method {
		case MethodSyntacticDiagnostics:
			return ep.SyntacticDiagnostics(ctx, p.FileName)
		case MethodSemanticDiagnostics:
			return ep.SemanticDiagnostics(ctx, p.FileName)
		case MethodNavigationBarItems:
			return ep.NavigationBarItems(ctx, p.FileName)
		default:
			return ep.EmitOutput(ctx, p.FileName)
		}

	case MethodCompilerOptionsDiagnostics:
		return ep.CompilerOptionsDiagnostics(ctx)

	case MethodCompletionsAtPosition, MethodSignatureHelpItems, MethodQuickInfoAtPosition,
		MethodOccurrencesAtPosition, MethodDefinitionAtPosition, MethodReferencesAtPosition:
		var p PositionParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		switch req.Method {
		case MethodCompletionsAtPosition:
			return ep.CompletionsAtPosition(ctx, p.FileName, p.Position)
		case MethodSignatureHelpItems:
			return ep.SignatureHelpItems(ctx, p.FileName, p.Position)
		case MethodQuickInfoAtPosition:
			return ep.QuickInfoAtPosition(ctx, p.FileName, p.Position)
		case MethodOccurrencesAtPosition:
			return ep.OccurrencesAtPosition(ctx, p.FileName, p.Position)
		case MethodDefinitionAtPosition:
			return ep.DefinitionAtPosition(ctx, p.FileName, p.Position)
		default:
			return ep.ReferencesAtPosition(ctx, p.FileName, p.Position)
		}

	case MethodCompletionEntryDetails:
		var p CompletionDetailsParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return ep.CompletionEntryDetails(ctx, p.FileName, p.Position, p.EntryName)

	case MethodFormattingEditsForDocument:
		var p DocumentFormatParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return ep.FormattingEditsForDocument(ctx, p.FileName, p.Options)

	case MethodFormattingEditsForRange:
		var p RangeFormatParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return ep.FormattingEditsForRange(ctx, p.FileName, p.Start, p.End, p.Options)

	case MethodFormattingEditsAfterKeystroke:
		var p KeystrokeFormatParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return ep.FormattingEditsAfterKeystroke(ctx, p.FileName, p.Position, p.Key, p.Options)
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
}
