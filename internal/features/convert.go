package features

import (
	"context"
	"log/slog"

	"tsbridge/internal/coords"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/model"
)

// DocumentSource resolves open documents.
type DocumentSource interface {
	Get(uri string) *model.Document
}

// afterCall enforces that nothing is returned once ctx is done.
func afterCall(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.FromContext(ctxErr)
	}
	return err
}

func spanToRange(doc *model.Document, span engine.TextSpan) (editor.Range, error) {
	return coords.TextSpanToRange(doc, span)
}

// outlineKinds maps engine element kinds to outline symbol kinds; anything
// else is a variable.
var outlineKinds = map[string]editor.SymbolKind{
	engine.KindModule:        editor.SymbolModule,
	engine.KindClass:         editor.SymbolClass,
	engine.KindEnum:          editor.SymbolEnum,
	engine.KindInterface:     editor.SymbolInterface,
	engine.KindMethod:        editor.SymbolMethod,
	engine.KindProperty:      editor.SymbolProperty,
	engine.KindGetter:        editor.SymbolProperty,
	engine.KindSetter:        editor.SymbolProperty,
	engine.KindVariable:      editor.SymbolVariable,
	engine.KindConst:         editor.SymbolVariable,
	engine.KindLocalVariable: editor.SymbolVariable,
	engine.KindFunction:      editor.SymbolFunction,
	engine.KindLocalFunction: editor.SymbolFunction,
}

func outlineKind(kind string) editor.SymbolKind {
	if k, ok := outlineKinds[kind]; ok {
		return k
	}
	return editor.SymbolVariable
}

func completionKind(kind string) editor.CompletionItemKind {
	switch kind {
	case engine.KindGetter, engine.KindSetter, engine.KindConstructor, engine.KindMethod, engine.KindProperty:
		return editor.CompletionProperty
	case engine.KindFunction, engine.KindLocalFunction:
		return editor.CompletionFunction
	case engine.KindClass:
		return editor.CompletionClass
	case engine.KindInterface:
		return editor.CompletionInterface
	case engine.KindKeyword:
		return editor.CompletionKeyword
	case engine.KindModule:
		return editor.CompletionModule
	}
	return editor.CompletionVariable
}

// FormatCodeOptions maps editor formatting options onto the engine's fixed
// formatting policy.
func FormatCodeOptions(opts editor.FormattingOptions) engine.FormatCodeOptions {
	return engine.FormatCodeOptions{
		ConvertTabsToSpaces: opts.InsertSpaces,
		TabSize:             opts.TabSize,
		IndentSize:          opts.TabSize,
		IndentStyle:         engine.IndentSmart,
		NewLineCharacter:    "\n",

		InsertSpaceAfterCommaDelimiter:                              true,
		InsertSpaceAfterFunctionKeywordForAnonymousFunctions:        false,
		InsertSpaceAfterKeywordsInControlFlowStatements:             false,
		InsertSpaceAfterOpeningAndBeforeClosingNonemptyParenthesis:  true,
		InsertSpaceAfterOpeningAndBeforeClosingNonemptyBrackets:     true,
		InsertSpaceAfterOpeningAndBeforeClosingTemplateStringBraces: true,
		InsertSpaceAfterSemicolonInForStatements:                    false,
		InsertSpaceBeforeAndAfterBinaryOperators:                    true,
		PlaceOpenBraceOnNewLineForControlBlocks:                     false,
		PlaceOpenBraceOnNewLineForFunctions:                         false,
	}
}

func textEdits(doc *model.Document, changes []engine.TextChange) ([]editor.TextEdit, error) {
	if changes == nil {
		return nil, nil
	}
	out := make([]editor.TextEdit, 0, len(changes))
	for _, c := range changes {
		r, err := spanToRange(doc, c.Span)
		if err != nil {
			return nil, err
		}
		out = append(out, editor.TextEdit{Range: r, Text: c.NewText})
	}
	return out, nil
}

// locations keeps entries whose target document is open.
func locations(docs DocumentSource, logger *slog.Logger, entries []locatable) ([]editor.Location, error) {
	out := make([]editor.Location, 0, len(entries))
	for _, e := range entries {
		target := docs.Get(e.fileName)
		if target == nil {
			logger.Debug("dropping target in a document that is not open", "uri", e.fileName)
			continue
		}
		r, err := spanToRange(target, e.span)
		if err != nil {
			return nil, err
		}
		out = append(out, editor.Location{URI: e.fileName, Range: r})
	}
	return out, nil
}

type locatable struct {
	fileName string
	span     engine.TextSpan
}
