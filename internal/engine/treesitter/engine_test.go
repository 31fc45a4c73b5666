//go:build cgo

package treesitter

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsbridge/internal/engine"
	"tsbridge/internal/slogutil"
	"tsbridge/internal/worker"
)

// mapHost serves a fixed set of files plus the bundled default library.
type mapHost struct {
	files   map[string]string
	names   []string
	options engine.CompilerOptions
}

func newMapHost(files ...string) *mapHost {
	h := &mapHost{files: map[string]string{}, options: engine.CompilerOptions{}}
	for i := 0; i+1 < len(files); i += 2 {
		h.files[files[i]] = files[i+1]
		h.names = append(h.names, files[i])
	}
	return h
}

func (h *mapHost) ScriptFileNames() []string { return append([]string(nil), h.names...) }

func (h *mapHost) ScriptVersion(name string) (string, bool) {
	if _, ok := h.files[name]; ok || worker.IsDefaultLib(name) {
		return "1", true
	}
	return "", false
}

func (h *mapHost) ScriptSnapshot(name string) engine.Snapshot {
	if text, ok := h.files[name]; ok {
		return engine.NewStringSnapshot(text)
	}
	if text, ok := worker.DefaultLibText(name); ok {
		return engine.NewStringSnapshot(text)
	}
	return nil
}

func (h *mapHost) CompilationSettings() engine.CompilerOptions { return h.options }

func (h *mapHost) DefaultLibFileName(o engine.CompilerOptions) string {
	return worker.DefaultLibFileName(o)
}

func (h *mapHost) CurrentDirectory() string { return "/" }

func newService(t *testing.T, h *mapHost) engine.LanguageService {
	t.Helper()
	svc, err := New(h, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(svc.Dispose)
	return svc
}

func codes(diags []engine.Diagnostic) []int {
	out := make([]int, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

// apply applies changes to ASCII text.
func apply(text string, changes []engine.TextChange) string {
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Span.Start > changes[j].Span.Start })
	for _, c := range changes {
		text = text[:c.Span.Start] + c.NewText + text[c.Span.Start+c.Span.Length:]
	}
	return text
}

func TestNewRejectsNilHost(t *testing.T) {
	_, err := New(nil, slogutil.NewDiscardLogger())
	require.Error(t, err)
	assert.True(t, Available())
}

func TestSyntacticDiagnostics(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost(
		"/clean.ts", "let a = 1;\n",
		"/broken.ts", "let a = ;\n}\n",
	))

	clean, err := svc.SyntacticDiagnostics(ctx, "/clean.ts")
	require.NoError(t, err)
	assert.Empty(t, clean)

	broken, err := svc.SyntacticDiagnostics(ctx, "/broken.ts")
	require.NoError(t, err)
	require.NotEmpty(t, broken)
	for _, d := range broken {
		assert.Equal(t, engine.CategoryError, d.Category)
		assert.Contains(t, []int{CodeIdentifierExpected, CodeTokenExpected, CodeDeclarationExpected}, d.Code)
	}
}

func TestSemanticDiagnostics(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost(
		"/a.ts", "let dup = 1;\nlet dup = 2;\nfunction use(v) {}\nuse(missing);\n",
	))

	diags, err := svc.SemanticDiagnostics(ctx, "/a.ts")
	require.NoError(t, err)
	assert.Equal(t, []int{CodeCannotRedeclare, CodeCannotRedeclare, CodeCannotFindName}, codes(diags))
	assert.Equal(t, "Cannot find name 'missing'.", diags[2].MessageText)
	assert.Equal(t, strings.Index("let dup = 1;\nlet dup = 2;\nfunction use(v) {}\nuse(missing);\n", "missing"), diags[2].Start)
	assert.Equal(t, len("missing"), diags[2].Length)
}

func TestSemanticDiagnosticsAcrossScripts(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost(
		"/a.ts", "let shared = 1;\n",
		"/b.ts", "let shared = 2;\nshared;\n",
		"/c.ts", "shared;\n",
	))

	b, err := svc.SemanticDiagnostics(ctx, "/b.ts")
	require.NoError(t, err)
	assert.Equal(t, []int{CodeCannotRedeclare}, codes(b))

	c, err := svc.SemanticDiagnostics(ctx, "/c.ts")
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestSemanticDiagnosticsSkipsJavaScript(t *testing.T) {
	ctx := context.Background()
	h := newMapHost("/a.js", "missing;\n")
	svc := newService(t, h)

	diags, err := svc.SemanticDiagnostics(ctx, "/a.js")
	require.NoError(t, err)
	assert.Empty(t, diags)

	h.options = engine.CompilerOptions{"checkJs": true}
	diags, err = svc.SemanticDiagnostics(ctx, "/a.js")
	require.NoError(t, err)
	assert.Equal(t, []int{CodeCannotFindName}, codes(diags))
}

func TestCompilerOptionsDiagnostics(t *testing.T) {
	ctx := context.Background()
	h := newMapHost("/a.ts", "")
	svc := newService(t, h)

	diags, err := svc.CompilerOptionsDiagnostics(ctx)
	require.NoError(t, err)
	assert.Empty(t, diags)

	h.options = engine.CompilerOptions{"target": "es99"}
	diags, err = svc.CompilerOptionsDiagnostics(ctx)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, CodeInvalidOptionArgument, diags[0].Code)
	assert.True(t, strings.HasPrefix(diags[0].MessageText, "Argument for '--target' option must be:"))
}

func TestUnknownFileYieldsNothing(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost("/a.ts", "let a = 1;\n"))

	diags, err := svc.SyntacticDiagnostics(ctx, "/nope.ts")
	require.NoError(t, err)
	assert.Nil(t, diags)

	info, err := svc.QuickInfoAtPosition(ctx, "/nope.ts", 0)
	require.NoError(t, err)
	assert.Nil(t, info)

	out, err := svc.EmitOutput(ctx, "/nope.ts")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestQuickInfo(t *testing.T) {
	ctx := context.Background()
	src := "let count = 1;\nconst label = \"x\";\nfunction greet(who: string) {}\ncount;\n"
	svc := newService(t, newMapHost("/a.ts", src))

	info, err := svc.QuickInfoAtPosition(ctx, "/a.ts", strings.LastIndex(src, "count")+1)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, engine.KindLet, info.Kind)
	assert.Equal(t, "let count: number", engine.DisplayPartsToString(info.DisplayParts))
	assert.Equal(t, engine.TextSpan{Start: strings.LastIndex(src, "count"), Length: 5}, info.TextSpan)

	info, err = svc.QuickInfoAtPosition(ctx, "/a.ts", strings.Index(src, "label"))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "const label: \"x\"", engine.DisplayPartsToString(info.DisplayParts))

	info, err = svc.QuickInfoAtPosition(ctx, "/a.ts", strings.Index(src, "greet"))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "function greet(who: string): void", engine.DisplayPartsToString(info.DisplayParts))

	info, err = svc.QuickInfoAtPosition(ctx, "/a.ts", strings.Index(src, "="))
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestCompletions(t *testing.T) {
	ctx := context.Background()
	src := "let text = \"abc\";\ntext.toUpperCase();\nfunction helper() {}\n\n"
	svc := newService(t, newMapHost("/a.ts", src))

	member, err := svc.CompletionsAtPosition(ctx, "/a.ts", strings.Index(src, "toUpperCase"))
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.True(t, member.IsMemberCompletion)
	var names []string
	for _, e := range member.Entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "toUpperCase")
	assert.Contains(t, names, "charAt")

	scope, err := svc.CompletionsAtPosition(ctx, "/a.ts", len(src))
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.False(t, scope.IsMemberCompletion)
	entries := map[string]engine.CompletionEntry{}
	for _, e := range scope.Entries {
		entries[e.Name] = e
	}
	require.Contains(t, entries, "helper")
	assert.Equal(t, engine.KindFunction, entries["helper"].Kind)
	assert.Equal(t, "0", entries["helper"].SortText)
	require.Contains(t, entries, "let")
	assert.Equal(t, engine.KindKeyword, entries["let"].Kind)

	details, err := svc.CompletionEntryDetails(ctx, "/a.ts", len(src), "helper")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "function helper(): void", engine.DisplayPartsToString(details.DisplayParts))

	none, err := svc.CompletionEntryDetails(ctx, "/a.ts", len(src), "absent")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNoCompletionsInComments(t *testing.T) {
	ctx := context.Background()
	src := "// note here\nlet a = 1;\n"
	svc := newService(t, newMapHost("/a.ts", src))

	info, err := svc.CompletionsAtPosition(ctx, "/a.ts", strings.Index(src, "here"))
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSignatureHelp(t *testing.T) {
	ctx := context.Background()
	src := "function add(a: number, b: number): number { return a + b; }\nadd(1, 2);\n"
	svc := newService(t, newMapHost("/a.ts", src))

	call := strings.LastIndex(src, "add(")
	items, err := svc.SignatureHelpItems(ctx, "/a.ts", call+len("add(1, "))
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Len(t, items.Items, 1)
	assert.Equal(t, 1, items.ArgumentIndex)
	assert.Equal(t, 2, items.ArgumentCount)
	assert.Equal(t, engine.TextSpan{Start: call + 4, Length: len("1, 2")}, items.ApplicableSpan)

	item := items.Items[0]
	require.Len(t, item.Parameters, 2)
	assert.Equal(t, "a", item.Parameters[0].Name)
	assert.Equal(t, "b", item.Parameters[1].Name)
	assert.Equal(t, "add(", engine.DisplayPartsToString(item.PrefixDisplayParts))
	assert.Equal(t, "): number", engine.DisplayPartsToString(item.SuffixDisplayParts))

	outside, err := svc.SignatureHelpItems(ctx, "/a.ts", 0)
	require.NoError(t, err)
	assert.Nil(t, outside)
}

func TestOccurrencesAndDefinition(t *testing.T) {
	ctx := context.Background()
	src := "let n = 1;\nn = 2;\nn;\n"
	svc := newService(t, newMapHost("/a.ts", src))

	occ, err := svc.OccurrencesAtPosition(ctx, "/a.ts", 4)
	require.NoError(t, err)
	require.Len(t, occ, 3)
	assert.True(t, occ[0].IsWriteAccess)
	assert.True(t, occ[1].IsWriteAccess)
	assert.False(t, occ[2].IsWriteAccess)
	assert.Equal(t, strings.LastIndex(src, "n"), occ[2].TextSpan.Start)

	defs, err := svc.DefinitionAtPosition(ctx, "/a.ts", strings.LastIndex(src, "n"))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "/a.ts", defs[0].FileName)
	assert.Equal(t, engine.TextSpan{Start: 4, Length: 1}, defs[0].TextSpan)
	assert.Equal(t, engine.KindLet, defs[0].Kind)
	assert.Equal(t, "n", defs[0].Name)
}

func TestReferencesAcrossFiles(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost(
		"/a.ts", "function common() {}\n",
		"/b.ts", "common();\ncommon();\n",
	))

	refs, err := svc.ReferencesAtPosition(ctx, "/b.ts", 0)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "/a.ts", refs[0].FileName)
	assert.True(t, refs[0].IsWriteAccess)
	assert.Equal(t, "/b.ts", refs[1].FileName)
	assert.Equal(t, "/b.ts", refs[2].FileName)
}

func TestReferencesStayInModule(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost(
		"/a.ts", "export function local() {}\nlocal();\n",
		"/b.ts", "local();\n",
	))

	refs, err := svc.ReferencesAtPosition(ctx, "/a.ts", strings.Index("export function local() {}\n", "local"))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, r := range refs {
		assert.Equal(t, "/a.ts", r.FileName)
	}
}

func TestNavigationBarItems(t *testing.T) {
	ctx := context.Background()
	src := "class Box {\n    size = 1;\n    open() {}\n}\ninterface Shape {}\nenum Tone { Low }\n"
	svc := newService(t, newMapHost("/a.ts", src))

	items, err := svc.NavigationBarItems(ctx, "/a.ts")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Box", items[0].Text)
	assert.Equal(t, engine.KindClass, items[0].Kind)
	require.Len(t, items[0].ChildItems, 2)
	assert.Equal(t, "size", items[0].ChildItems[0].Text)
	assert.Equal(t, engine.KindProperty, items[0].ChildItems[0].Kind)
	assert.Equal(t, "open", items[0].ChildItems[1].Text)
	assert.Equal(t, engine.KindMethod, items[0].ChildItems[1].Kind)

	assert.Equal(t, "Shape", items[1].Text)
	assert.Equal(t, engine.KindInterface, items[1].Kind)
	assert.Equal(t, "Tone", items[2].Text)
	assert.Equal(t, engine.KindEnum, items[2].Kind)
}

func TestFormattingEditsForDocument(t *testing.T) {
	ctx := context.Background()
	src := "function f() {\nreturn 1;   \n}\n"
	svc := newService(t, newMapHost("/a.ts", src))

	opts := engine.FormatCodeOptions{IndentSize: 4, TabSize: 4, ConvertTabsToSpaces: true, IndentStyle: engine.IndentSmart}
	edits, err := svc.FormattingEditsForDocument(ctx, "/a.ts", opts)
	require.NoError(t, err)
	assert.Equal(t, "function f() {\n    return 1;\n}\n", apply(src, edits))

	formatted := newService(t, newMapHost("/a.ts", "function f() {\n    return 1;\n}\n"))
	edits, err = formatted.FormattingEditsForDocument(ctx, "/a.ts", opts)
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestFormattingSpacing(t *testing.T) {
	ctx := context.Background()
	src := "let a=1,b=2;\n"
	svc := newService(t, newMapHost("/a.ts", src))

	opts := engine.FormatCodeOptions{
		IndentSize:                               4,
		TabSize:                                  4,
		ConvertTabsToSpaces:                      true,
		IndentStyle:                              engine.IndentSmart,
		InsertSpaceAfterCommaDelimiter:           true,
		InsertSpaceBeforeAndAfterBinaryOperators: true,
	}
	edits, err := svc.FormattingEditsForDocument(ctx, "/a.ts", opts)
	require.NoError(t, err)
	assert.Equal(t, "let a = 1, b = 2;\n", apply(src, edits))
}

func TestFormattingAfterUnknownKey(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMapHost("/a.ts", "let a   = 1;   \n"))

	edits, err := svc.FormattingEditsAfterKeystroke(ctx, "/a.ts", 3, "x", engine.FormatCodeOptions{})
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestEmitErasesTypes(t *testing.T) {
	ctx := context.Background()
	src := "interface P { x: number }\nconst p: number = 1;\nfunction id<T>(v: T): T { return v; }\nenum Color { Red, Green }\n"
	svc := newService(t, newMapHost("/src/a.ts", src))

	out, err := svc.EmitOutput(ctx, "/src/a.ts")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.False(t, out.EmitSkipped)
	require.Len(t, out.OutputFiles, 1)
	assert.Equal(t, "/src/a.js", out.OutputFiles[0].Name)

	text := out.OutputFiles[0].Text
	assert.NotContains(t, text, "interface")
	assert.Contains(t, text, "const p = 1;")
	assert.Contains(t, text, "function id(v) { return v; }")
	assert.Contains(t, text, "var Color;\n(function (Color) {\n")
	assert.Contains(t, text, "    Color[Color[\"Red\"] = 0] = \"Red\";\n")
	assert.Contains(t, text, "    Color[Color[\"Green\"] = 1] = \"Green\";\n")
	assert.Contains(t, text, "})(Color || (Color = {}));")
}

func TestEmitParameterProperties(t *testing.T) {
	ctx := context.Background()
	src := "class Point {\n    constructor(private x: number) {}\n}\n"
	svc := newService(t, newMapHost("/a.ts", src))

	out, err := svc.EmitOutput(ctx, "/a.ts")
	require.NoError(t, err)
	require.NotNil(t, out)
	text := out.OutputFiles[0].Text
	assert.NotContains(t, text, "private")
	assert.Contains(t, text, "constructor(x)")
	assert.Contains(t, text, "this.x = x;")
}

func TestEmitSkipsDeclarationsAndCopiesJavaScript(t *testing.T) {
	ctx := context.Background()
	js := "var a = 1; // kept\n"
	h := newMapHost(
		"/types.d.ts", "declare var g: number;\n",
		"/plain.js", js,
		"/bad.ts", "let a = ;\n",
	)
	svc := newService(t, h)

	out, err := svc.EmitOutput(ctx, "/types.d.ts")
	require.NoError(t, err)
	assert.True(t, out.EmitSkipped)
	assert.Empty(t, out.OutputFiles)

	out, err = svc.EmitOutput(ctx, "/plain.js")
	require.NoError(t, err)
	require.Len(t, out.OutputFiles, 1)
	assert.Equal(t, "/plain.js", out.OutputFiles[0].Name)
	assert.Equal(t, js, out.OutputFiles[0].Text)

	h.options = engine.CompilerOptions{"noEmitOnError": true}
	out, err = svc.EmitOutput(ctx, "/bad.ts")
	require.NoError(t, err)
	assert.True(t, out.EmitSkipped)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "/a.js", outputName("/a.ts", nil))
	assert.Equal(t, "/a.js", outputName("/a.tsx", nil))
	assert.Equal(t, "/a.jsx", outputName("/a.tsx", engine.CompilerOptions{"jsx": "preserve"}))
	assert.Equal(t, "/a.js", outputName("/a.js", nil))
	assert.Equal(t, "/a.js", outputName("/a", nil))
}

func TestDisposedServiceFails(t *testing.T) {
	svc, err := New(newMapHost("/a.ts", ""), slogutil.NewDiscardLogger())
	require.NoError(t, err)
	svc.Dispose()
	_, err = svc.SyntacticDiagnostics(context.Background(), "/a.ts")
	assert.Error(t, err)
}
