//go:build cgo

package treesitter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

// Diagnostic codes reported by the engine.
const (
	CodeIdentifierExpected    = 1003
	CodeTokenExpected         = 1005
	CodeDeclarationExpected   = 1128
	CodeCannotFindName        = 2304
	CodeCannotRedeclare       = 2451
	CodeInvalidOptionArgument = 6046
)

func (s *Service) SyntacticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	return syntaxErrors(f), nil
}

func syntaxErrors(f *sourceFile) []engine.Diagnostic {
	var out []engine.Diagnostic
	walk(f.root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			d := engine.Diagnostic{
				File:     f.name,
				Category: engine.CategoryError,
				Code:     CodeTokenExpected,
			}
			d.Start = f.offsets.toUnit(int(n.StartByte()))
			if t := n.Type(); isNameType(t) {
				d.Code = CodeIdentifierExpected
				d.MessageText = "Identifier expected."
			} else {
				d.MessageText = fmt.Sprintf("'%s' expected.", t)
			}
			out = append(out, d)
			return false
		case n.IsError() || n.Type() == "ERROR":
			leaf := firstLeaf(n)
			span := f.span(leaf)
			if span.Length == 0 {
				span = f.span(n)
			}
			out = append(out, engine.Diagnostic{
				File:        f.name,
				Start:       span.Start,
				Length:      span.Length,
				MessageText: "Declaration or statement expected.",
				Category:    engine.CategoryError,
				Code:        CodeDeclarationExpected,
			})
			return false
		}
		return n.HasError()
	})
	return out
}

func (s *Service) SemanticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	if f.dialect == dialectJavaScript && !s.host.CompilationSettings().Bool("checkJs") {
		return []engine.Diagnostic{}, nil
	}
	fb := bindFile(f)
	out := []engine.Diagnostic{}
	out = append(out, s.unresolved(f, fb)...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out = append(out, s.redeclarations(f, fb)...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (s *Service) unresolved(f *sourceFile, fb *fileBinding) []engine.Diagnostic {
	var out []engine.Diagnostic
	for _, r := range fb.refs {
		name := f.text(r.node)
		if implicitNames[name] || f.declarationFile() {
			continue
		}
		if s.resolve(r.scope, name, flagValue) != nil {
			continue
		}
		span := f.span(r.node)
		out = append(out, engine.Diagnostic{
			File:        f.name,
			Start:       span.Start,
			Length:      span.Length,
			MessageText: fmt.Sprintf("Cannot find name '%s'.", name),
			Category:    engine.CategoryError,
			Code:        CodeCannotFindName,
		})
	}
	return out
}

// redeclarations reports let and const declarations that share a scope with
// another value declaration of the same name. The global scope spans every
// script file.
func (s *Service) redeclarations(f *sourceFile, fb *fileBinding) []engine.Diagnostic {
	var out []engine.Diagnostic
	report := func(pool []*symbol) {
		var values []*symbol
		blockScoped := false
		for _, sym := range pool {
			if !sym.has(flagValue) || sym.kind == engine.KindModule {
				continue
			}
			values = append(values, sym)
			blockScoped = blockScoped || sym.has(flagBlockScoped)
		}
		if len(values) < 2 || !blockScoped {
			return
		}
		for _, sym := range values {
			if sym.file != f || !sym.has(flagBlockScoped) {
				continue
			}
			span := f.span(sym.nameNode)
			out = append(out, engine.Diagnostic{
				File:        f.name,
				Start:       span.Start,
				Length:      span.Length,
				MessageText: fmt.Sprintf("Cannot redeclare block-scoped variable '%s'.", sym.name),
				Category:    engine.CategoryError,
				Code:        CodeCannotRedeclare,
			})
		}
	}

	var visit func(sc *scope)
	visit = func(sc *scope) {
		for _, name := range sc.names {
			pool := sc.symbols[name]
			if sc == fb.root && !fb.module {
				pool = s.globalScope().symbols[name]
			}
			report(pool)
		}
		for _, c := range sc.children {
			visit(c)
		}
	}
	visit(fb.root)
	return out
}

// optionValues lists the accepted names of the enumerated compiler options.
var optionValues = []struct {
	name   string
	values []string
}{
	{"target", []string{"es3", "es5", "es6", "es2015", "es2016", "es2017", "esnext"}},
	{"module", []string{"none", "commonjs", "amd", "umd", "system", "es6", "es2015", "esnext"}},
	{"jsx", []string{"preserve", "react", "react-native"}},
	{"moduleResolution", []string{"node", "classic"}},
	{"newLine", []string{"crlf", "lf"}},
}

func (s *Service) CompilerOptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	opts := s.host.CompilationSettings()
	out := []engine.Diagnostic{}
	for _, o := range optionValues {
		v, ok := opts[o.name]
		if !ok || v == nil || validOption(v, o.values) {
			continue
		}
		quoted := make([]string, len(o.values))
		for i, name := range o.values {
			quoted[i] = "'" + name + "'"
		}
		out = append(out, engine.Diagnostic{
			MessageText: fmt.Sprintf("Argument for '--%s' option must be: %s.", o.name, strings.Join(quoted, ", ")),
			Category:    engine.CategoryError,
			Code:        CodeInvalidOptionArgument,
		})
	}
	return out, nil
}

// validOption accepts a listed name in any case or the numeric value of one.
func validOption(v interface{}, values []string) bool {
	switch x := v.(type) {
	case string:
		for _, name := range values {
			if strings.EqualFold(x, name) {
				return true
			}
		}
	case float64:
		return x == float64(int(x)) && x >= 0 && int(x) < len(values)+2
	case int:
		return x >= 0 && x < len(values)+2
	case int64:
		return x >= 0 && int(x) < len(values)+2
	}
	return false
}
