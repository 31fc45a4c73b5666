// Package enginetest provides a scripted language service for tests of the
// worker, supervisor and feature layers.
package enginetest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"

	"tsbridge/internal/engine"
)

// Fake is a language service whose answers are derived from plain text
// searches over the host's files:
//   - "@@" is a syntax error (code 1)
//   - the word "error" is a semantic error (code 2)
//   - quick info, occurrences, definitions and references work on words
type Fake struct {
	host engine.Host

	// Gate, when set, makes every operation wait for a receive or ctx.
	Gate chan struct{}
	// NavItems is returned by NavigationBarItems.
	NavItems []engine.NavigationBarItem
	// Edits is returned by every formatting operation.
	Edits []engine.TextChange
	// Err, when set, is returned by every operation.
	Err error

	mu          sync.Mutex
	calls       []string
	lastOptions engine.FormatCodeOptions
	disposed    bool
}

// NewFactory returns a factory producing a Fake, passing it to configure first.
func NewFactory(configure func(*Fake)) engine.Factory {
	return func(host engine.Host, _ *slog.Logger) (engine.LanguageService, error) {
		f := &Fake{host: host}
		if configure != nil {
			configure(f)
		}
		return f, nil
	}
}

// Calls returns the operations invoked so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// LastFormatOptions returns the options of the most recent formatting call.
func (f *Fake) LastFormatOptions() engine.FormatCodeOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}

// Disposed reports whether Dispose was called.
func (f *Fake) Disposed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disposed
}

func (f *Fake) enter(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate := f.Gate
	err := f.Err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// SetErr changes the error returned by every operation.
func (f *Fake) SetErr(err error) {
	f.mu.Lock()
	f.Err = err
	f.mu.Unlock()
}

func (f *Fake) text(fileName string) ([]uint16, bool) {
	s := f.host.ScriptSnapshot(fileName)
	if s == nil {
		return nil, false
	}
	return utf16.Encode([]rune(engine.SnapshotText(s))), true
}

func indexAll(text []uint16, needle string) []int {
	n := utf16.Encode([]rune(needle))
	var out []int
	for i := 0; i+len(n) <= len(text); i++ {
		match := true
		for j := range n {
			if text[i+j] != n[j] {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

func isWordUnit(u uint16) bool {
	return u < 0x80 && (unicode.IsLetter(rune(u)) || unicode.IsDigit(rune(u)) || u == '_' || u == '$')
}

// wordAt returns the identifier covering position and its start.
func wordAt(text []uint16, position int) (string, int) {
	if position < 0 || position > len(text) {
		return "", 0
	}
	start, end := position, position
	for start > 0 && isWordUnit(text[start-1]) {
		start--
	}
	for end < len(text) && isWordUnit(text[end]) {
		end++
	}
	if start == end {
		return "", 0
	}
	return string(utf16.Decode(text[start:end])), start
}

func wordOccurrences(text []uint16, word string) []int {
	var out []int
	for _, i := range indexAll(text, word) {
		end := i + len(utf16.Encode([]rune(word)))
		if (i > 0 && isWordUnit(text[i-1])) || (end < len(text) && isWordUnit(text[end])) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (f *Fake) SyntacticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	if err := f.enter(ctx, "syntactic"); err != nil {
		return nil, err
	}
	text, _ := f.text(fileName)
	var out []engine.Diagnostic
	for _, i := range indexAll(text, "@@") {
		out = append(out, engine.Diagnostic{File: fileName, Start: i, Length: 2, MessageText: "Unexpected token.", Category: engine.CategoryError, Code: 1})
	}
	return out, nil
}

func (f *Fake) SemanticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	if err := f.enter(ctx, "semantic"); err != nil {
		return nil, err
	}
	text, _ := f.text(fileName)
	var out []engine.Diagnostic
	for _, i := range wordOccurrences(text, "error") {
		out = append(out, engine.Diagnostic{File: fileName, Start: i, Length: 5, MessageText: "Found error.", Category: engine.CategoryError, Code: 2})
	}
	for _, i := range wordOccurrences(text, "warning") {
		out = append(out, engine.Diagnostic{File: fileName, Start: i, Length: 7, MessageText: "Found warning.", Category: engine.CategoryWarning, Code: 3})
	}
	return out, nil
}

func (f *Fake) CompilerOptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	if err := f.enter(ctx, "options"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *Fake) CompletionsAtPosition(ctx context.Context, fileName string, position int) (*engine.CompletionInfo, error) {
	if err := f.enter(ctx, "completions"); err != nil {
		return nil, err
	}
	return &engine.CompletionInfo{Entries: []engine.CompletionEntry{
		{Name: "alpha", Kind: engine.KindLet, SortText: "0"},
		{Name: "beta", Kind: engine.KindFunction, SortText: "0"},
	}}, nil
}

func (f *Fake) CompletionEntryDetails(ctx context.Context, fileName string, position int, entryName string) (*engine.CompletionEntryDetails, error) {
	if err := f.enter(ctx, "details"); err != nil {
		return nil, err
	}
	return &engine.CompletionEntryDetails{
		Name:          entryName,
		Kind:          engine.KindLet,
		DisplayParts:  []engine.SymbolDisplayPart{engine.Part("let "+entryName+": number", "text")},
		Documentation: []engine.SymbolDisplayPart{engine.Part("docs for "+entryName, "text")},
	}, nil
}

func (f *Fake) SignatureHelpItems(ctx context.Context, fileName string, position int) (*engine.SignatureHelpItems, error) {
	if err := f.enter(ctx, "signature"); err != nil {
		return nil, err
	}
	return &engine.SignatureHelpItems{
		Items: []engine.SignatureHelpItem{{
			PrefixDisplayParts:    []engine.SymbolDisplayPart{engine.Part("fn(", "text")},
			SuffixDisplayParts:    []engine.SymbolDisplayPart{engine.Part("): void", "text")},
			SeparatorDisplayParts: []engine.SymbolDisplayPart{engine.Part(", ", "text")},
			Parameters: []engine.SignatureHelpParameter{
				{Name: "a", DisplayParts: []engine.SymbolDisplayPart{engine.Part("a: number", "text")}},
				{Name: "b", DisplayParts: []engine.SymbolDisplayPart{engine.Part("b: string", "text")}, Documentation: []engine.SymbolDisplayPart{engine.Part("the b", "text")}},
			},
			Documentation: []engine.SymbolDisplayPart{engine.Part("does fn things", "text")},
		}},
		ArgumentIndex: 1,
		ArgumentCount: 2,
	}, nil
}

func (f *Fake) QuickInfoAtPosition(ctx context.Context, fileName string, position int) (*engine.QuickInfo, error) {
	if err := f.enter(ctx, "quickinfo"); err != nil {
		return nil, err
	}
	text, _ := f.text(fileName)
	word, start := wordAt(text, position)
	if word == "" {
		return nil, nil
	}
	return &engine.QuickInfo{
		Kind:         engine.KindLet,
		TextSpan:     engine.TextSpan{Start: start, Length: len(utf16.Encode([]rune(word)))},
		DisplayParts: []engine.SymbolDisplayPart{engine.Part("let ", "keyword"), engine.Part(word, "localName"), engine.Part(": number", "text")},
	}, nil
}

func (f *Fake) OccurrencesAtPosition(ctx context.Context, fileName string, position int) ([]engine.ReferenceEntry, error) {
	if err := f.enter(ctx, "occurrences"); err != nil {
		return nil, err
	}
	text, _ := f.text(fileName)
	word, _ := wordAt(text, position)
	if word == "" {
		return nil, nil
	}
	width := len(utf16.Encode([]rune(word)))
	var out []engine.ReferenceEntry
	for n, i := range wordOccurrences(text, word) {
		out = append(out, engine.ReferenceEntry{FileName: fileName, TextSpan: engine.TextSpan{Start: i, Length: width}, IsWriteAccess: n == 0})
	}
	return out, nil
}

// references lists word occurrences across every script file plus the
// default library.
func (f *Fake) references(fileName string, position int) (string, []engine.ReferenceEntry) {
	text, _ := f.text(fileName)
	word, _ := wordAt(text, position)
	if word == "" {
		return "", nil
	}
	width := len(utf16.Encode([]rune(word)))
	files := f.host.ScriptFileNames()
	files = append(files, f.host.DefaultLibFileName(f.host.CompilationSettings()))
	var out []engine.ReferenceEntry
	for _, name := range files {
		t, ok := f.text(name)
		if !ok {
			continue
		}
		for n, i := range wordOccurrences(t, word) {
			out = append(out, engine.ReferenceEntry{FileName: name, TextSpan: engine.TextSpan{Start: i, Length: width}, IsWriteAccess: n == 0})
		}
	}
	return word, out
}

func (f *Fake) DefinitionAtPosition(ctx context.Context, fileName string, position int) ([]engine.DefinitionInfo, error) {
	if err := f.enter(ctx, "definition"); err != nil {
		return nil, err
	}
	word, refs := f.references(fileName, position)
	var out []engine.DefinitionInfo
	for _, r := range refs {
		if r.IsWriteAccess {
			out = append(out, engine.DefinitionInfo{FileName: r.FileName, TextSpan: r.TextSpan, Kind: engine.KindLet, Name: word})
		}
	}
	return out, nil
}

func (f *Fake) ReferencesAtPosition(ctx context.Context, fileName string, position int) ([]engine.ReferenceEntry, error) {
	if err := f.enter(ctx, "references"); err != nil {
		return nil, err
	}
	_, refs := f.references(fileName, position)
	return refs, nil
}

func (f *Fake) NavigationBarItems(ctx context.Context, fileName string) ([]engine.NavigationBarItem, error) {
	if err := f.enter(ctx, "navbar"); err != nil {
		return nil, err
	}
	return f.NavItems, nil
}

func (f *Fake) format(ctx context.Context, name string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	if err := f.enter(ctx, name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastOptions = options
	f.mu.Unlock()
	return f.Edits, nil
}

func (f *Fake) FormattingEditsForDocument(ctx context.Context, fileName string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	return f.format(ctx, "formatDocument", options)
}

func (f *Fake) FormattingEditsForRange(ctx context.Context, fileName string, start, end int, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	return f.format(ctx, "formatRange", options)
}

func (f *Fake) FormattingEditsAfterKeystroke(ctx context.Context, fileName string, position int, key string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	return f.format(ctx, "formatKeystroke:"+key, options)
}

func (f *Fake) EmitOutput(ctx context.Context, fileName string) (*engine.EmitOutput, error) {
	if err := f.enter(ctx, "emit"); err != nil {
		return nil, err
	}
	s := f.host.ScriptSnapshot(fileName)
	if s == nil {
		return &engine.EmitOutput{EmitSkipped: true}, nil
	}
	name := strings.TrimSuffix(fileName, ".ts") + ".js"
	return &engine.EmitOutput{OutputFiles: []engine.OutputFile{{Name: name, Text: engine.SnapshotText(s)}}}, nil
}

func (f *Fake) Dispose() {
	f.mu.Lock()
	f.disposed = true
	f.mu.Unlock()
}
