//go:build cgo

// Package treesitter is a language service for TypeScript and JavaScript
// built on tree-sitter syntax trees. It binds declarations per file, merges
// script-level declarations into a global scope and answers the editor
// queries from that model; there is no type checker beyond declared and
// literal types.
package treesitter

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"tsbridge/internal/engine"
	"tsbridge/internal/slogutil"
)

// dialect selects the grammar of a file.
type dialect int

const (
	dialectTypeScript dialect = iota
	dialectTSX
	dialectJavaScript
)

func dialectFor(fileName string) dialect {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".tsx":
		return dialectTSX
	case ".js", ".jsx", ".mjs", ".cjs", ".es6":
		return dialectJavaScript
	}
	return dialectTypeScript
}

func (d dialect) grammar() *sitter.Language {
	switch d {
	case dialectTSX:
		return tsx.GetLanguage()
	case dialectJavaScript:
		return javascript.GetLanguage()
	}
	return typescript.GetLanguage()
}

// sourceFile is one parsed program file.
type sourceFile struct {
	name    string
	version string
	src     []byte
	tree    *sitter.Tree
	root    *sitter.Node
	offsets *offsetMap
	dialect dialect
	lib     bool

	binding *fileBinding
}

func (f *sourceFile) text(n *sitter.Node) string { return n.Content(f.src) }

func (f *sourceFile) span(n *sitter.Node) engine.TextSpan {
	return f.spanOf(int(n.StartByte()), int(n.EndByte()))
}

func (f *sourceFile) spanOf(start, end int) engine.TextSpan {
	s := f.offsets.toUnit(start)
	return engine.TextSpan{Start: s, Length: f.offsets.toUnit(end) - s}
}

func (f *sourceFile) declarationFile() bool {
	return strings.HasSuffix(strings.ToLower(f.name), ".d.ts")
}

// Service implements engine.LanguageService. It is not safe for concurrent
// use; the worker endpoint serializes access.
type Service struct {
	host   engine.Host
	logger *slog.Logger
	parser *sitter.Parser

	files    map[string]*sourceFile
	order    []string
	globals  *globalScope
	disposed bool
}

var (
	_ engine.LanguageService = (*Service)(nil)
	_ engine.Factory         = New
)

// New creates a service reading its program from host.
func New(host engine.Host, logger *slog.Logger) (engine.LanguageService, error) {
	if host == nil {
		return nil, fmt.Errorf("treesitter: nil host")
	}
	return &Service{
		host:   host,
		logger: slogutil.Component(logger, "engine"),
		parser: sitter.NewParser(),
		files:  make(map[string]*sourceFile),
	}, nil
}

// Available reports whether the engine is compiled in.
func Available() bool { return true }

// sync brings the parsed program up to date with the host. Files are parsed
// again only when their version changes.
func (s *Service) sync(ctx context.Context) error {
	if s.disposed {
		return fmt.Errorf("treesitter: service disposed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := s.host.CompilationSettings()
	names := s.host.ScriptFileNames()
	lib := ""
	if !opts.Bool("noLib") {
		lib = s.host.DefaultLibFileName(opts)
		names = append(names, lib)
	}

	seen := make(map[string]bool, len(names))
	order := make([]string, 0, len(names))
	changed := false
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		version, ok := s.host.ScriptVersion(name)
		if !ok {
			continue
		}
		if f := s.files[name]; f != nil && f.version == version {
			order = append(order, name)
			continue
		}
		snap := s.host.ScriptSnapshot(name)
		if snap == nil {
			continue
		}
		f, err := s.parse(ctx, name, version, engine.SnapshotText(snap))
		if err != nil {
			return err
		}
		f.lib = name == lib
		s.files[name] = f
		order = append(order, name)
		changed = true
	}
	for name := range s.files {
		if !seen[name] {
			delete(s.files, name)
			changed = true
		}
	}
	if len(order) != len(s.order) {
		changed = true
	}
	s.order = order
	if changed {
		s.globals = nil
		s.logger.Debug("program updated", "files", len(order))
	}
	return nil
}

func (s *Service) parse(ctx context.Context, name, version, text string) (*sourceFile, error) {
	d := dialectFor(name)
	src := []byte(text)
	s.parser.SetLanguage(d.grammar())
	tree, err := s.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &sourceFile{
		name:    name,
		version: version,
		src:     src,
		tree:    tree,
		root:    tree.RootNode(),
		offsets: newOffsetMap(src),
		dialect: d,
	}, nil
}

// file syncs the program and returns the named file, nil when the program
// does not contain it.
func (s *Service) file(ctx context.Context, name string) (*sourceFile, error) {
	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	return s.files[name], nil
}

func (s *Service) programFiles() []*sourceFile {
	out := make([]*sourceFile, 0, len(s.order))
	for _, name := range s.order {
		if f := s.files[name]; f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Dispose drops the program. Later calls fail.
func (s *Service) Dispose() {
	s.disposed = true
	s.files = nil
	s.order = nil
	s.globals = nil
}
