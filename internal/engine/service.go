// Package engine defines the contract between the worker and the analysis
// engine: the host the engine reads program state from, the language service
// operations it answers, and the plain-value result types.
package engine

import (
	"context"
	"log/slog"
)

// Default library file names.
const (
	LibES5 = "lib.d.ts"
	LibES6 = "lib.es6.d.ts"
)

// Host supplies the engine with the program: which files exist, their
// versions and contents, and the compiler options.
type Host interface {
	ScriptFileNames() []string
	// ScriptVersion returns false for files the host does not know.
	ScriptVersion(fileName string) (string, bool)
	// ScriptSnapshot returns nil for files the host does not know.
	ScriptSnapshot(fileName string) Snapshot
	CompilationSettings() CompilerOptions
	DefaultLibFileName(options CompilerOptions) string
	CurrentDirectory() string
}

// LanguageService answers analysis queries against the host's program.
// Positions and spans are UTF-16 offsets. Unknown files yield empty results,
// never errors.
type LanguageService interface {
	SyntacticDiagnostics(ctx context.Context, fileName string) ([]Diagnostic, error)
	SemanticDiagnostics(ctx context.Context, fileName string) ([]Diagnostic, error)
	CompilerOptionsDiagnostics(ctx context.Context) ([]Diagnostic, error)

	CompletionsAtPosition(ctx context.Context, fileName string, position int) (*CompletionInfo, error)
	CompletionEntryDetails(ctx context.Context, fileName string, position int, entryName string) (*CompletionEntryDetails, error)
	SignatureHelpItems(ctx context.Context, fileName string, position int) (*SignatureHelpItems, error)
	QuickInfoAtPosition(ctx context.Context, fileName string, position int) (*QuickInfo, error)
	OccurrencesAtPosition(ctx context.Context, fileName string, position int) ([]ReferenceEntry, error)
	DefinitionAtPosition(ctx context.Context, fileName string, position int) ([]DefinitionInfo, error)
	ReferencesAtPosition(ctx context.Context, fileName string, position int) ([]ReferenceEntry, error)
	NavigationBarItems(ctx context.Context, fileName string) ([]NavigationBarItem, error)

	FormattingEditsForDocument(ctx context.Context, fileName string, options FormatCodeOptions) ([]TextChange, error)
	FormattingEditsForRange(ctx context.Context, fileName string, start, end int, options FormatCodeOptions) ([]TextChange, error)
	FormattingEditsAfterKeystroke(ctx context.Context, fileName string, position int, key string, options FormatCodeOptions) ([]TextChange, error)

	EmitOutput(ctx context.Context, fileName string) (*EmitOutput, error)

	Dispose()
}

// Factory creates a language service bound to host.
type Factory func(host Host, logger *slog.Logger) (LanguageService, error)
