package features

import (
	"context"
	"log/slog"
	"unicode"
	"unicode/utf16"

	"tsbridge/internal/coords"
	"tsbridge/internal/defaults"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
	"tsbridge/internal/model"
	"tsbridge/internal/slogutil"
)

// Adapters builds the stateless provider records for one language.
type Adapters struct {
	Worker WorkerFunc
	Docs   DocumentSource
	Logger *slog.Logger
}

var (
	SignatureHelpTriggerCharacters    = []string{"(", ","}
	OnTypeFormattingTriggerCharacters = []string{";", "}", "\n"}
	CompletionTriggerCharacters       = []string{"."}
)

func (a *Adapters) logger() *slog.Logger {
	if a.Logger == nil {
		return slogutil.NewDiscardLogger()
	}
	return a.Logger
}

// at resolves doc's worker and the offset of pos.
func (a *Adapters) at(ctx context.Context, doc *model.Document, pos editor.Position) (LanguageWorker, int, error) {
	offset, err := coords.PositionToOffset(doc, pos)
	if err != nil {
		return nil, 0, err
	}
	w, err := a.Worker(ctx, doc.URI())
	if err != nil {
		return nil, 0, err
	}
	return w, offset, nil
}

func (a *Adapters) SignatureHelp() editor.SignatureHelpProvider {
	return editor.SignatureHelpProvider{
		TriggerCharacters: SignatureHelpTriggerCharacters,
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position) (*editor.SignatureHelp, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			info, err := w.SignatureHelpItems(ctx, doc.URI(), offset)
			if err := afterCall(ctx, err); err != nil || info == nil {
				return nil, err
			}
			help := &editor.SignatureHelp{
				ActiveSignature: info.SelectedItemIndex,
				ActiveParameter: info.ArgumentIndex,
				Signatures:      make([]editor.SignatureInformation, 0, len(info.Items)),
			}
			for _, item := range info.Items {
				sig := editor.SignatureInformation{
					Label:         engine.DisplayPartsToString(item.PrefixDisplayParts),
					Documentation: engine.DisplayPartsToString(item.Documentation),
					Parameters:    make([]editor.ParameterInformation, 0, len(item.Parameters)),
				}
				for i, p := range item.Parameters {
					label := engine.DisplayPartsToString(p.DisplayParts)
					sig.Parameters = append(sig.Parameters, editor.ParameterInformation{
						Label:         label,
						Documentation: engine.DisplayPartsToString(p.Documentation),
					})
					sig.Label += label
					if i < len(item.Parameters)-1 {
						sig.Label += engine.DisplayPartsToString(item.SeparatorDisplayParts)
					}
				}
				sig.Label += engine.DisplayPartsToString(item.SuffixDisplayParts)
				help.Signatures = append(help.Signatures, sig)
			}
			return help, nil
		},
	}
}

func (a *Adapters) Hover() editor.HoverProvider {
	return editor.HoverProvider{
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position) (*editor.Hover, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			info, err := w.QuickInfoAtPosition(ctx, doc.URI(), offset)
			if err := afterCall(ctx, err); err != nil || info == nil {
				return nil, err
			}
			r, err := spanToRange(doc, info.TextSpan)
			if err != nil {
				return nil, err
			}
			contents := []string{engine.DisplayPartsToString(info.DisplayParts)}
			if docs := engine.DisplayPartsToString(info.Documentation); docs != "" {
				contents = append(contents, docs)
			}
			return &editor.Hover{Range: r, Contents: contents}, nil
		},
	}
}

func (a *Adapters) DocumentHighlights() editor.DocumentHighlightProvider {
	return editor.DocumentHighlightProvider{
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position) ([]editor.DocumentHighlight, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			entries, err := w.OccurrencesAtPosition(ctx, doc.URI(), offset)
			if err := afterCall(ctx, err); err != nil || entries == nil {
				return nil, err
			}
			out := make([]editor.DocumentHighlight, 0, len(entries))
			for _, e := range entries {
				r, err := spanToRange(doc, e.TextSpan)
				if err != nil {
					return nil, err
				}
				kind := editor.HighlightText
				if e.IsWriteAccess {
					kind = editor.HighlightWrite
				}
				out = append(out, editor.DocumentHighlight{Range: r, Kind: kind})
			}
			return out, nil
		},
	}
}

func (a *Adapters) Definition() editor.DefinitionProvider {
	return editor.DefinitionProvider{
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position) ([]editor.Location, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			entries, err := w.DefinitionAtPosition(ctx, doc.URI(), offset)
			if err := afterCall(ctx, err); err != nil || entries == nil {
				return nil, err
			}
			targets := make([]locatable, 0, len(entries))
			for _, e := range entries {
				targets = append(targets, locatable{fileName: e.FileName, span: e.TextSpan})
			}
			return locations(a.Docs, a.logger(), targets)
		},
	}
}

func (a *Adapters) References() editor.ReferenceProvider {
	return editor.ReferenceProvider{
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position) ([]editor.Location, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			entries, err := w.ReferencesAtPosition(ctx, doc.URI(), offset)
			if err := afterCall(ctx, err); err != nil || entries == nil {
				return nil, err
			}
			targets := make([]locatable, 0, len(entries))
			for _, e := range entries {
				targets = append(targets, locatable{fileName: e.FileName, span: e.TextSpan})
			}
			return locations(a.Docs, a.logger(), targets)
		},
	}
}

func (a *Adapters) Outline() editor.DocumentSymbolProvider {
	return editor.DocumentSymbolProvider{
		Provide: func(ctx context.Context, doc *model.Document) ([]editor.SymbolInformation, error) {
			w, err := a.Worker(ctx, doc.URI())
			if err != nil {
				return nil, err
			}
			items, err := w.NavigationBarItems(ctx, doc.URI())
			if err := afterCall(ctx, err); err != nil || items == nil {
				return nil, err
			}
			var out []editor.SymbolInformation
			for _, item := range items {
				if out, err = flattenOutline(out, doc, item, ""); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	}
}

// flattenOutline appends item and then its descendants, each tagged with
// the name of its parent.
func flattenOutline(out []editor.SymbolInformation, doc *model.Document, item engine.NavigationBarItem, container string) ([]editor.SymbolInformation, error) {
	var span engine.TextSpan
	if len(item.Spans) > 0 {
		span = item.Spans[0]
	}
	r, err := spanToRange(doc, span)
	if err != nil {
		return out, err
	}
	out = append(out, editor.SymbolInformation{
		Name:          item.Text,
		Kind:          outlineKind(item.Kind),
		Location:      editor.Location{URI: doc.URI(), Range: r},
		ContainerName: container,
	})
	for _, child := range item.ChildItems {
		if out, err = flattenOutline(out, doc, child, item.Text); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (a *Adapters) DocumentFormatting() editor.DocumentFormattingProvider {
	return editor.DocumentFormattingProvider{
		Provide: func(ctx context.Context, doc *model.Document, opts editor.FormattingOptions) ([]editor.TextEdit, error) {
			w, err := a.Worker(ctx, doc.URI())
			if err != nil {
				return nil, err
			}
			changes, err := w.FormattingEditsForDocument(ctx, doc.URI(), FormatCodeOptions(opts))
			if err := afterCall(ctx, err); err != nil {
				return nil, err
			}
			return textEdits(doc, changes)
		},
	}
}

func (a *Adapters) RangeFormatting() editor.RangeFormattingProvider {
	return editor.RangeFormattingProvider{
		Provide: func(ctx context.Context, doc *model.Document, r editor.Range, opts editor.FormattingOptions) ([]editor.TextEdit, error) {
			start, end, err := coords.RangeToOffsets(doc, r)
			if err != nil {
				return nil, err
			}
			w, err := a.Worker(ctx, doc.URI())
			if err != nil {
				return nil, err
			}
			changes, err := w.FormattingEditsForRange(ctx, doc.URI(), start, end, FormatCodeOptions(opts))
			if err := afterCall(ctx, err); err != nil {
				return nil, err
			}
			return textEdits(doc, changes)
		},
	}
}

func (a *Adapters) OnTypeFormatting() editor.OnTypeFormattingProvider {
	return editor.OnTypeFormattingProvider{
		TriggerCharacters: OnTypeFormattingTriggerCharacters,
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position, ch string, opts editor.FormattingOptions) ([]editor.TextEdit, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			changes, err := w.FormattingEditsAfterKeystroke(ctx, doc.URI(), offset, ch, FormatCodeOptions(opts))
			if err := afterCall(ctx, err); err != nil {
				return nil, err
			}
			return textEdits(doc, changes)
		},
	}
}

func (a *Adapters) Completion() editor.CompletionProvider {
	return editor.CompletionProvider{
		TriggerCharacters: CompletionTriggerCharacters,
		Provide: func(ctx context.Context, doc *model.Document, pos editor.Position) (*editor.CompletionList, error) {
			w, offset, err := a.at(ctx, doc, pos)
			if err != nil {
				return nil, err
			}
			info, err := w.CompletionsAtPosition(ctx, doc.URI(), offset)
			if err := afterCall(ctx, err); err != nil || info == nil {
				return nil, err
			}
			list := &editor.CompletionList{
				CurrentWord: wordUntil(doc, pos),
				Items:       make([]editor.CompletionItem, 0, len(info.Entries)),
			}
			for _, e := range info.Entries {
				list.Items = append(list.Items, editor.CompletionItem{
					Label:      e.Name,
					Kind:       completionKind(e.Kind),
					InsertText: e.Name,
					SortText:   e.SortText,
					Position:   pos,
				})
			}
			return list, nil
		},
		Resolve: func(ctx context.Context, doc *model.Document, item editor.CompletionItem) (editor.CompletionItem, error) {
			w, offset, err := a.at(ctx, doc, item.Position)
			if err != nil {
				return item, err
			}
			details, err := w.CompletionEntryDetails(ctx, doc.URI(), offset, item.Label)
			if err := afterCall(ctx, err); err != nil || details == nil {
				return item, err
			}
			item.Label = details.Name
			item.InsertText = details.Name
			item.Kind = completionKind(details.Kind)
			item.Detail = engine.DisplayPartsToString(details.DisplayParts)
			item.Documentation = engine.DisplayPartsToString(details.Documentation)
			return item, nil
		},
	}
}

// wordUntil returns the identifier characters left of pos.
func wordUntil(doc *model.Document, pos editor.Position) string {
	if pos.LineNumber < 1 || pos.LineNumber > doc.LineCount() {
		return ""
	}
	line := utf16.Encode([]rune(doc.LineContent(pos.LineNumber)))
	end := pos.Column - 1
	if end > len(line) {
		end = len(line)
	}
	start := end
	for start > 0 {
		r := rune(line[start-1])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$') {
			break
		}
		start--
	}
	if start >= end {
		return ""
	}
	return string(utf16.Decode(line[start:end]))
}

// Emit returns the compiled output of doc.
func (a *Adapters) Emit(ctx context.Context, doc *model.Document) (*engine.EmitOutput, error) {
	w, err := a.Worker(ctx, doc.URI())
	if err != nil {
		return nil, err
	}
	out, err := w.EmitOutput(ctx, doc.URI())
	if err := afterCall(ctx, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Diagnostics validates doc once, outside the debounced loop.
func (a *Adapters) Diagnostics(ctx context.Context, doc *model.Document, opts defaults.DiagnosticsOptions) ([]editor.Marker, error) {
	w, err := a.Worker(ctx, doc.URI())
	if err != nil {
		return nil, err
	}
	diags, err := collectDiagnostics(ctx, w, doc.URI(), opts)
	if err := afterCall(ctx, err); err != nil {
		return nil, err
	}
	return toMarkers(doc, diags)
}

// CompilerOptionsDiagnostics reports problems with the configuration itself.
func (a *Adapters) CompilerOptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	w, err := a.Worker(ctx)
	if err != nil {
		return nil, err
	}
	diags, err := w.CompilerOptionsDiagnostics(ctx)
	if err := afterCall(ctx, err); err != nil {
		return nil, err
	}
	return diags, nil
}
