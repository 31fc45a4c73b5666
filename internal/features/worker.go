// Package features adapts editor requests to worker calls and worker results
// back to editor coordinates. Every adapter is a provider record registered
// with the editor registry; the diagnostics adapter is the one stateful
// exception.
package features

import (
	"context"

	"tsbridge/internal/engine"
)

// LanguageWorker is the worker surface the adapters call. The supervisor's
// client implements it.
type LanguageWorker interface {
	SyntacticDiagnostics(ctx context.Context, uri string) ([]engine.Diagnostic, error)
	SemanticDiagnostics(ctx context.Context, uri string) ([]engine.Diagnostic, error)
	CompilerOptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error)
	CompletionsAtPosition(ctx context.Context, uri string, offset int) (*engine.CompletionInfo, error)
	CompletionEntryDetails(ctx context.Context, uri string, offset int, entry string) (*engine.CompletionEntryDetails, error)
	SignatureHelpItems(ctx context.Context, uri string, offset int) (*engine.SignatureHelpItems, error)
	QuickInfoAtPosition(ctx context.Context, uri string, offset int) (*engine.QuickInfo, error)
	OccurrencesAtPosition(ctx context.Context, uri string, offset int) ([]engine.ReferenceEntry, error)
	DefinitionAtPosition(ctx context.Context, uri string, offset int) ([]engine.DefinitionInfo, error)
	ReferencesAtPosition(ctx context.Context, uri string, offset int) ([]engine.ReferenceEntry, error)
	NavigationBarItems(ctx context.Context, uri string) ([]engine.NavigationBarItem, error)
	FormattingEditsForDocument(ctx context.Context, uri string, options engine.FormatCodeOptions) ([]engine.TextChange, error)
	FormattingEditsForRange(ctx context.Context, uri string, start, end int, options engine.FormatCodeOptions) ([]engine.TextChange, error)
	FormattingEditsAfterKeystroke(ctx context.Context, uri string, offset int, key string, options engine.FormatCodeOptions) ([]engine.TextChange, error)
	EmitOutput(ctx context.Context, uri string) (*engine.EmitOutput, error)
}

// WorkerFunc returns a worker whose view includes resources.
type WorkerFunc func(ctx context.Context, resources ...string) (LanguageWorker, error)
