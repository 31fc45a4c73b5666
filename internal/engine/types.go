package engine

import (
	"strings"

	"tsbridge/internal/coords"
)

// TextSpan is a flat span in UTF-16 code units.
type TextSpan = coords.TextSpan

// DiagnosticCategory classifies a diagnostic.
type DiagnosticCategory int

const (
	CategoryWarning DiagnosticCategory = iota
	CategoryError
	CategorySuggestion
	CategoryMessage
)

func (c DiagnosticCategory) String() string {
	switch c {
	case CategoryWarning:
		return "warning"
	case CategoryError:
		return "error"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	}
	return "unknown"
}

// DiagnosticMessageChain is a nested message; each Next level is indented
// one step further when flattened.
type DiagnosticMessageChain struct {
	MessageText string                  `json:"messageText"`
	Category    DiagnosticCategory      `json:"category"`
	Code        int                     `json:"code"`
	Next        *DiagnosticMessageChain `json:"next,omitempty"`
}

// Diagnostic is a problem report. File is the back-reference to the source
// file and is always empty once the diagnostic leaves the worker.
type Diagnostic struct {
	File         string                  `json:"file,omitempty"`
	Start        int                     `json:"start"`
	Length       int                     `json:"length"`
	MessageText  string                  `json:"messageText"`
	MessageChain *DiagnosticMessageChain `json:"messageChain,omitempty"`
	Category     DiagnosticCategory      `json:"category"`
	Code         int                     `json:"code"`
}

// Span returns the diagnostic's text span.
func (d Diagnostic) Span() TextSpan { return TextSpan{Start: d.Start, Length: d.Length} }

// FlattenDiagnosticMessageText renders the message, expanding a chain with
// two spaces of indentation per level.
func FlattenDiagnosticMessageText(d Diagnostic, newLine string) string {
	if d.MessageChain == nil {
		return d.MessageText
	}
	var b strings.Builder
	indent := 0
	for c := d.MessageChain; c != nil; c = c.Next {
		if indent > 0 {
			b.WriteString(newLine)
			b.WriteString(strings.Repeat("  ", indent))
		}
		b.WriteString(c.MessageText)
		indent++
	}
	return b.String()
}

// SymbolDisplayPart is one fragment of rendered symbol text.
type SymbolDisplayPart struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// DisplayPartsToString concatenates display parts.
func DisplayPartsToString(parts []SymbolDisplayPart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Part builds a display part.
func Part(text, kind string) SymbolDisplayPart { return SymbolDisplayPart{Text: text, Kind: kind} }

// Element kinds reported in quick info, navigation items, definitions and completions.
const (
	KindUnknown       = ""
	KindKeyword       = "keyword"
	KindModule        = "module"
	KindClass         = "class"
	KindInterface     = "interface"
	KindType          = "type"
	KindEnum          = "enum"
	KindVariable      = "var"
	KindLocalVariable = "local var"
	KindLet           = "let"
	KindConst         = "const"
	KindFunction      = "function"
	KindLocalFunction = "local function"
	KindMethod        = "method"
	KindGetter        = "getter"
	KindSetter        = "setter"
	KindProperty      = "property"
	KindConstructor   = "constructor"
	KindParameter     = "parameter"
	KindAlias         = "alias"
	KindEnumMember    = "enum member"
)

// QuickInfo is hover information for a position.
type QuickInfo struct {
	Kind          string              `json:"kind"`
	KindModifiers string              `json:"kindModifiers"`
	TextSpan      TextSpan            `json:"textSpan"`
	DisplayParts  []SymbolDisplayPart `json:"displayParts"`
	Documentation []SymbolDisplayPart `json:"documentation,omitempty"`
}

// SignatureHelpParameter describes one parameter of a signature.
type SignatureHelpParameter struct {
	Name          string              `json:"name"`
	DisplayParts  []SymbolDisplayPart `json:"displayParts"`
	Documentation []SymbolDisplayPart `json:"documentation,omitempty"`
	IsOptional    bool                `json:"isOptional"`
}

// SignatureHelpItem is one overload.
type SignatureHelpItem struct {
	IsVariadic            bool                     `json:"isVariadic"`
	PrefixDisplayParts    []SymbolDisplayPart      `json:"prefixDisplayParts"`
	SuffixDisplayParts    []SymbolDisplayPart      `json:"suffixDisplayParts"`
	SeparatorDisplayParts []SymbolDisplayPart      `json:"separatorDisplayParts"`
	Parameters            []SignatureHelpParameter `json:"parameters"`
	Documentation         []SymbolDisplayPart      `json:"documentation,omitempty"`
}

// SignatureHelpItems is the signature help result.
type SignatureHelpItems struct {
	Items             []SignatureHelpItem `json:"items"`
	ApplicableSpan    TextSpan            `json:"applicableSpan"`
	SelectedItemIndex int                 `json:"selectedItemIndex"`
	ArgumentIndex     int                 `json:"argumentIndex"`
	ArgumentCount     int                 `json:"argumentCount"`
}

// ReferenceEntry is an occurrence or reference.
type ReferenceEntry struct {
	FileName      string   `json:"fileName"`
	TextSpan      TextSpan `json:"textSpan"`
	IsWriteAccess bool     `json:"isWriteAccess"`
}

// DefinitionInfo is a declaration site.
type DefinitionInfo struct {
	FileName      string   `json:"fileName"`
	TextSpan      TextSpan `json:"textSpan"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	ContainerKind string   `json:"containerKind"`
	ContainerName string   `json:"containerName"`
}

// NavigationBarItem is a node of the document outline.
type NavigationBarItem struct {
	Text          string              `json:"text"`
	Kind          string              `json:"kind"`
	KindModifiers string              `json:"kindModifiers"`
	Spans         []TextSpan          `json:"spans"`
	ChildItems    []NavigationBarItem `json:"childItems,omitempty"`
	Indent        int                 `json:"indent"`
}

// TextChange replaces Span with NewText.
type TextChange struct {
	Span    TextSpan `json:"span"`
	NewText string   `json:"newText"`
}

// IndentStyle controls how the formatter indents new lines.
type IndentStyle int

const (
	IndentNone IndentStyle = iota
	IndentBlock
	IndentSmart
)

// FormatCodeOptions are the engine-side formatting settings.
type FormatCodeOptions struct {
	IndentSize                                                  int         `json:"indentSize"`
	TabSize                                                     int         `json:"tabSize"`
	NewLineCharacter                                            string      `json:"newLineCharacter"`
	ConvertTabsToSpaces                                         bool        `json:"convertTabsToSpaces"`
	IndentStyle                                                 IndentStyle `json:"indentStyle"`
	InsertSpaceAfterCommaDelimiter                              bool        `json:"insertSpaceAfterCommaDelimiter"`
	InsertSpaceAfterSemicolonInForStatements                    bool        `json:"insertSpaceAfterSemicolonInForStatements"`
	InsertSpaceBeforeAndAfterBinaryOperators                    bool        `json:"insertSpaceBeforeAndAfterBinaryOperators"`
	InsertSpaceAfterKeywordsInControlFlowStatements             bool        `json:"insertSpaceAfterKeywordsInControlFlowStatements"`
	InsertSpaceAfterFunctionKeywordForAnonymousFunctions        bool        `json:"insertSpaceAfterFunctionKeywordForAnonymousFunctions"`
	InsertSpaceAfterOpeningAndBeforeClosingNonemptyParenthesis  bool        `json:"insertSpaceAfterOpeningAndBeforeClosingNonemptyParenthesis"`
	InsertSpaceAfterOpeningAndBeforeClosingNonemptyBrackets     bool        `json:"insertSpaceAfterOpeningAndBeforeClosingNonemptyBrackets"`
	InsertSpaceAfterOpeningAndBeforeClosingTemplateStringBraces bool        `json:"insertSpaceAfterOpeningAndBeforeClosingTemplateStringBraces"`
	PlaceOpenBraceOnNewLineForFunctions                         bool        `json:"placeOpenBraceOnNewLineForFunctions"`
	PlaceOpenBraceOnNewLineForControlBlocks                     bool        `json:"placeOpenBraceOnNewLineForControlBlocks"`
}

// CompletionEntry is one completion candidate.
type CompletionEntry struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	KindModifiers string `json:"kindModifiers"`
	SortText      string `json:"sortText"`
}

// CompletionInfo is the completion list at a position.
type CompletionInfo struct {
	IsMemberCompletion bool              `json:"isMemberCompletion"`
	Entries            []CompletionEntry `json:"entries"`
}

// CompletionEntryDetails resolves one entry.
type CompletionEntryDetails struct {
	Name          string              `json:"name"`
	Kind          string              `json:"kind"`
	KindModifiers string              `json:"kindModifiers"`
	DisplayParts  []SymbolDisplayPart `json:"displayParts"`
	Documentation []SymbolDisplayPart `json:"documentation,omitempty"`
}

// OutputFile is one emitted file.
type OutputFile struct {
	Name               string `json:"name"`
	Text               string `json:"text"`
	WriteByteOrderMark bool   `json:"writeByteOrderMark"`
}

// EmitOutput is the result of emitting one source file.
type EmitOutput struct {
	OutputFiles []OutputFile `json:"outputFiles"`
	EmitSkipped bool         `json:"emitSkipped"`
}
