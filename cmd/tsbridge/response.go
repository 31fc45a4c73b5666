package main

import (
	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
)

// DiagnosticsResponse is the result of check.
type DiagnosticsResponse struct {
	Files []FileDiagnostics `json:"files" yaml:"files" toml:"files"`
	// CompilerOptions holds problems with the configured compiler options.
	CompilerOptions []string `json:"compilerOptions,omitempty" yaml:"compilerOptions,omitempty" toml:"compilerOptions,omitempty"`
	Errors          int      `json:"errors" yaml:"errors" toml:"errors"`
	Warnings        int      `json:"warnings" yaml:"warnings" toml:"warnings"`
}

type FileDiagnostics struct {
	File    string          `json:"file" yaml:"file" toml:"file"`
	Markers []editor.Marker `json:"markers" yaml:"markers" toml:"markers"`
}

// PositionRequest echoes where a position-based query was made.
type PositionRequest struct {
	File     string          `json:"file" yaml:"file" toml:"file"`
	Position editor.Position `json:"position" yaml:"position" toml:"position"`
}

type HoverResponse struct {
	PositionRequest `yaml:",inline"`
	Hover           *editor.Hover `json:"hover" yaml:"hover,omitempty" toml:"hover,omitempty"`
}

type LocationsResponse struct {
	PositionRequest `yaml:",inline"`
	Kind            string            `json:"kind" yaml:"kind" toml:"kind"`
	Locations       []editor.Location `json:"locations" yaml:"locations" toml:"locations"`
}

type HighlightsResponse struct {
	PositionRequest `yaml:",inline"`
	Highlights      []editor.DocumentHighlight `json:"highlights" yaml:"highlights" toml:"highlights"`
}

type SignatureResponse struct {
	PositionRequest `yaml:",inline"`
	Help            *editor.SignatureHelp `json:"signatureHelp" yaml:"signatureHelp,omitempty" toml:"signatureHelp,omitempty"`
}

type CompletionResponse struct {
	PositionRequest `yaml:",inline"`
	Completions     *editor.CompletionList `json:"completions" yaml:"completions,omitempty" toml:"completions,omitempty"`
}

type OutlineResponse struct {
	File    string                     `json:"file" yaml:"file" toml:"file"`
	Symbols []editor.SymbolInformation `json:"symbols" yaml:"symbols" toml:"symbols"`
}

// EditsResponse is the result of format.
type EditsResponse struct {
	File    string            `json:"file" yaml:"file" toml:"file"`
	Edits   []editor.TextEdit `json:"edits" yaml:"edits" toml:"edits"`
	Written bool              `json:"written" yaml:"written" toml:"written"`
}

type EmitResponse struct {
	File        string              `json:"file" yaml:"file" toml:"file"`
	OutputFiles []engine.OutputFile `json:"outputFiles" yaml:"outputFiles" toml:"outputFiles"`
	EmitSkipped bool                `json:"emitSkipped" yaml:"emitSkipped" toml:"emitSkipped"`
}
