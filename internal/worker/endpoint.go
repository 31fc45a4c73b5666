// Package worker is the worker side of the bridge: the document mirror, the
// host adapter the engine reads from, and the endpoint that answers protocol
// requests.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/slogutil"
)

// Endpoint exposes the language service operations as plain-value calls.
// Engine access is serialized; the engine is not safe for concurrent use.
type Endpoint struct {
	mirror  *Mirror
	host    *Host
	factory engine.Factory
	logger  *slog.Logger

	// mu serializes engine access and guards service/accepted
	mu       sync.Mutex
	service  engine.LanguageService
	accepted bool
}

// NewEndpoint creates an endpoint whose engine is built by factory on the
// first acceptDefaults.
func NewEndpoint(factory engine.Factory, logger *slog.Logger) *Endpoint {
	mirror := NewMirror()
	return &Endpoint{
		mirror:  mirror,
		host:    NewHost(mirror),
		factory: factory,
		logger:  slogutil.Component(logger, "worker"),
	}
}

// Host returns the endpoint's host adapter.
func (e *Endpoint) Host() *Host { return e.host }

// AcceptDefaults installs compiler options and extra sources. It must precede
// every query.
func (e *Endpoint) AcceptDefaults(ctx context.Context, options engine.CompilerOptions, extraLibs map[string]string) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.host.SetDefaults(options, extraLibs)
	if e.service == nil {
		svc, err := e.factory(e.host, e.logger)
		if err != nil {
			return errors.New(errors.WorkerUnavailable, "create language service", err)
		}
		e.service = svc
	}
	e.accepted = true
	e.logger.Debug("defaults accepted", "extraLibs", len(extraLibs), "target", options.Target().String())
	return nil
}

// SyncModels applies document updates to the mirror.
func (e *Endpoint) SyncModels(_ context.Context, params SyncModelsParams) SyncModelsResult {
	e.mirror.Sync(params.Models, params.Removed)
	return SyncModelsResult{Versions: e.mirror.Versions()}
}

// Dispose releases the engine.
func (e *Endpoint) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.service != nil {
		e.service.Dispose()
		e.service = nil
	}
	e.accepted = false
}

// query runs fn against the engine. An unknown fileName yields the zero value.
func query[T any](ctx context.Context, e *Endpoint, fileName string, fn func(context.Context, engine.LanguageService) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, errors.FromContext(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.accepted || e.service == nil {
		return zero, errors.Newf(errors.InvalidParams, "defaults not accepted")
	}
	if fileName != "" && !e.host.Known(fileName) {
		return zero, nil
	}
	out, err := fn(ctx, e.service)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, errors.FromContext(ctxErr)
		}
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, errors.FromContext(err)
	}
	return out, nil
}

func stripFiles(diags []engine.Diagnostic) []engine.Diagnostic {
	if diags == nil {
		return []engine.Diagnostic{}
	}
	for i := range diags {
		diags[i].File = ""
	}
	return diags
}

func (e *Endpoint) SyntacticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	d, err := query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.Diagnostic, error) {
		return s.SyntacticDiagnostics(ctx, fileName)
	})
	if err != nil {
		return nil, err
	}
	return stripFiles(d), nil
}

func (e *Endpoint) SemanticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	d, err := query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.Diagnostic, error) {
		return s.SemanticDiagnostics(ctx, fileName)
	})
	if err != nil {
		return nil, err
	}
	return stripFiles(d), nil
}

// CompilerOptionsDiagnostics ignores the file name; option problems are program-wide.
func (e *Endpoint) CompilerOptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	d, err := query(ctx, e, "", func(ctx context.Context, s engine.LanguageService) ([]engine.Diagnostic, error) {
		return s.CompilerOptionsDiagnostics(ctx)
	})
	if err != nil {
		return nil, err
	}
	return stripFiles(d), nil
}

func (e *Endpoint) CompletionsAtPosition(ctx context.Context, fileName string, position int) (*engine.CompletionInfo, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) (*engine.CompletionInfo, error) {
		return s.CompletionsAtPosition(ctx, fileName, position)
	})
}

func (e *Endpoint) CompletionEntryDetails(ctx context.Context, fileName string, position int, entryName string) (*engine.CompletionEntryDetails, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) (*engine.CompletionEntryDetails, error) {
		return s.CompletionEntryDetails(ctx, fileName, position, entryName)
	})
}

func (e *Endpoint) SignatureHelpItems(ctx context.Context, fileName string, position int) (*engine.SignatureHelpItems, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) (*engine.SignatureHelpItems, error) {
		return s.SignatureHelpItems(ctx, fileName, position)
	})
}

func (e *Endpoint) QuickInfoAtPosition(ctx context.Context, fileName string, position int) (*engine.QuickInfo, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) (*engine.QuickInfo, error) {
		return s.QuickInfoAtPosition(ctx, fileName, position)
	})
}

func (e *Endpoint) OccurrencesAtPosition(ctx context.Context, fileName string, position int) ([]engine.ReferenceEntry, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.ReferenceEntry, error) {
		return s.OccurrencesAtPosition(ctx, fileName, position)
	})
}

func (e *Endpoint) DefinitionAtPosition(ctx context.Context, fileName string, position int) ([]engine.DefinitionInfo, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.DefinitionInfo, error) {
		return s.DefinitionAtPosition(ctx, fileName, position)
	})
}

func (e *Endpoint) ReferencesAtPosition(ctx context.Context, fileName string, position int) ([]engine.ReferenceEntry, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.ReferenceEntry, error) {
		return s.ReferencesAtPosition(ctx, fileName, position)
	})
}

func (e *Endpoint) NavigationBarItems(ctx context.Context, fileName string) ([]engine.NavigationBarItem, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.NavigationBarItem, error) {
		return s.NavigationBarItems(ctx, fileName)
	})
}

func (e *Endpoint) FormattingEditsForDocument(ctx context.Context, fileName string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.TextChange, error) {
		return s.FormattingEditsForDocument(ctx, fileName, options)
	})
}

func (e *Endpoint) FormattingEditsForRange(ctx context.Context, fileName string, start, end int, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.TextChange, error) {
		return s.FormattingEditsForRange(ctx, fileName, start, end, options)
	})
}

func (e *Endpoint) FormattingEditsAfterKeystroke(ctx context.Context, fileName string, position int, key string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) ([]engine.TextChange, error) {
		return s.FormattingEditsAfterKeystroke(ctx, fileName, position, key, options)
	})
}

func (e *Endpoint) EmitOutput(ctx context.Context, fileName string) (*engine.EmitOutput, error) {
	return query(ctx, e, fileName, func(ctx context.Context, s engine.LanguageService) (*engine.EmitOutput, error) {
		return s.EmitOutput(ctx, fileName)
	})
}
