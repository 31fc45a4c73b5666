// Package editor is the editing surface the adapters publish into: result
// shapes in line/column coordinates, the marker store, the capability
// registry and the language registry.
package editor

import (
	"tsbridge/internal/coords"
)

type (
	Position = coords.Position
	Range    = coords.Range
)

// Hover is the content shown for a position.
type Hover struct {
	Range    Range    `json:"range"`
	Contents []string `json:"contents"`
}

type ParameterInformation struct {
	Label         string `json:"label"`
	Documentation string `json:"documentation,omitempty"`
}

type SignatureInformation struct {
	Label         string                 `json:"label"`
	Documentation string                 `json:"documentation,omitempty"`
	Parameters    []ParameterInformation `json:"parameters"`
}

type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature int                    `json:"activeSignature"`
	ActiveParameter int                    `json:"activeParameter"`
}

// DocumentHighlightKind distinguishes plain, read and write occurrences.
type DocumentHighlightKind int

const (
	HighlightText DocumentHighlightKind = iota
	HighlightRead
	HighlightWrite
)

func (k DocumentHighlightKind) String() string {
	switch k {
	case HighlightRead:
		return "read"
	case HighlightWrite:
		return "write"
	}
	return "text"
}

func (k DocumentHighlightKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type DocumentHighlight struct {
	Range Range                 `json:"range"`
	Kind  DocumentHighlightKind `json:"kind"`
}

type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// SymbolKind is the outline icon class of a symbol.
type SymbolKind int

const (
	SymbolFile SymbolKind = iota
	SymbolModule
	SymbolNamespace
	SymbolPackage
	SymbolClass
	SymbolMethod
	SymbolProperty
	SymbolField
	SymbolConstructor
	SymbolEnum
	SymbolInterface
	SymbolFunction
	SymbolVariable
	SymbolConstant
)

var symbolKindNames = [...]string{
	"file", "module", "namespace", "package", "class", "method", "property",
	"field", "constructor", "enum", "interface", "function", "variable", "constant",
}

func (k SymbolKind) String() string {
	if k >= 0 && int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return "unknown"
}

func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// TextEdit replaces Range with Text.
type TextEdit struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// FormattingOptions are the editor-neutral formatting settings.
type FormattingOptions struct {
	TabSize      int  `json:"tabSize" mapstructure:"tabSize" toml:"tabSize"`
	InsertSpaces bool `json:"insertSpaces" mapstructure:"insertSpaces" toml:"insertSpaces"`
}

// CompletionItemKind classifies a completion entry.
type CompletionItemKind string

const (
	CompletionProperty  CompletionItemKind = "property"
	CompletionFunction  CompletionItemKind = "function"
	CompletionClass     CompletionItemKind = "class"
	CompletionInterface CompletionItemKind = "interface"
	CompletionVariable  CompletionItemKind = "variable"
	CompletionKeyword   CompletionItemKind = "keyword"
	CompletionModule    CompletionItemKind = "module"
)

type CompletionItem struct {
	Label         string             `json:"label"`
	Kind          CompletionItemKind `json:"kind"`
	InsertText    string             `json:"insertText"`
	SortText      string             `json:"sortText,omitempty"`
	Detail        string             `json:"detail,omitempty"`
	Documentation string             `json:"documentation,omitempty"`
	// Position is where the completion was requested; resolve needs it.
	Position Position `json:"position"`
}

type CompletionList struct {
	CurrentWord string           `json:"currentWord,omitempty"`
	Items       []CompletionItem `json:"items"`
}
