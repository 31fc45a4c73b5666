//go:build !cgo

// Package treesitter is a language service for TypeScript and JavaScript
// built on tree-sitter syntax trees. Without cgo the engine is not compiled
// in and New always fails.
package treesitter

import (
	"log/slog"

	"tsbridge/internal/engine"
)

var _ engine.Factory = New

// New reports ErrUnavailable.
func New(host engine.Host, logger *slog.Logger) (engine.LanguageService, error) {
	return nil, ErrUnavailable
}

// Available reports whether the engine is compiled in.
func Available() bool { return false }
