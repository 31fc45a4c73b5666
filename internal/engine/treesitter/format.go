//go:build cgo

package treesitter

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

// indentContainers are the nodes whose interior lines are indented one level.
var indentContainers = map[string]bool{
	"statement_block":   true,
	"class_body":        true,
	"object":            true,
	"object_pattern":    true,
	"object_type":       true,
	"interface_body":    true,
	"enum_body":         true,
	"switch_body":       true,
	"switch_case":       true,
	"switch_default":    true,
	"array":             true,
	"array_pattern":     true,
	"arguments":         true,
	"formal_parameters": true,
	"named_imports":     true,
	"export_clause":     true,
}

// controlKeywords take a space before their parenthesis.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "with": true,
}

// edit is a byte range replacement.
type edit struct {
	start, end int
	text       string
}

func (s *Service) FormattingEditsForDocument(ctx context.Context, fileName string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	return formatRange(f, 0, len(f.src), options), nil
}

func (s *Service) FormattingEditsForRange(ctx context.Context, fileName string, start, end int, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	return formatRange(f, f.offsets.toByte(start), f.offsets.toByte(end), options), nil
}

func (s *Service) FormattingEditsAfterKeystroke(ctx context.Context, fileName string, position int, key string, options engine.FormatCodeOptions) ([]engine.TextChange, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	b := f.offsets.toByte(position)
	switch key {
	case "\n":
		// the line just finished and the new one
		prev := lineStart(f.src, b)
		if prev > 0 {
			prev = lineStart(f.src, prev-1)
		}
		return formatRange(f, prev, lineEnd(f.src, b), options), nil
	case ";":
		return formatRange(f, lineStart(f.src, b), lineEnd(f.src, b), options), nil
	case "}":
		if b == 0 {
			return nil, nil
		}
		n := nodeAt(f.root, b-1)
		if n.Type() == "}" && n.Parent() != nil {
			return formatRange(f, int(n.Parent().StartByte()), b, options), nil
		}
		return formatRange(f, lineStart(f.src, b), lineEnd(f.src, b), options), nil
	}
	return []engine.TextChange{}, nil
}

func lineStart(src []byte, b int) int {
	if b > len(src) {
		b = len(src)
	}
	for b > 0 && src[b-1] != '\n' {
		b--
	}
	return b
}

func lineEnd(src []byte, b int) int {
	for b < len(src) && src[b] != '\n' {
		b++
	}
	return b
}

func normalize(o engine.FormatCodeOptions) engine.FormatCodeOptions {
	if o.TabSize <= 0 {
		o.TabSize = 4
	}
	if o.IndentSize <= 0 {
		o.IndentSize = o.TabSize
	}
	return o
}

func indentString(level int, o engine.FormatCodeOptions) string {
	width := level * o.IndentSize
	if o.ConvertTabsToSpaces {
		return strings.Repeat(" ", width)
	}
	return strings.Repeat("\t", width/o.TabSize) + strings.Repeat(" ", width%o.TabSize)
}

// formatRange computes the edits for every line touching [start, end).
func formatRange(f *sourceFile, start, end int, opts engine.FormatCodeOptions) []engine.TextChange {
	opts = normalize(opts)
	if end < start {
		start, end = end, start
	}
	first := lineStart(f.src, start)
	var edits []edit

	row := pointRow(f.src, first)
	for ls := first; ls <= len(f.src); row++ {
		le := lineEnd(f.src, ls)
		edits = append(edits, formatLine(f, ls, le, row, opts)...)
		if le >= end || le >= len(f.src) {
			break
		}
		ls = le + 1
	}
	edits = append(edits, spacing(f, first, lineEnd(f.src, end), opts)...)

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	out := []engine.TextChange{}
	last := -1
	for _, e := range edits {
		if e.start < last {
			continue
		}
		out = append(out, engine.TextChange{Span: f.spanOf(e.start, e.end), NewText: e.text})
		last = e.end
	}
	return out
}

// inLiteral reports whether b lies inside a comment, string or template that
// starts before it.
func inLiteral(f *sourceFile, b int) bool {
	for n := nodeAt(f.root, b); n != nil; n = n.Parent() {
		switch n.Type() {
		case "comment", "template_string", "string":
			return int(n.StartByte()) < b
		}
	}
	return false
}

func formatLine(f *sourceFile, ls, le int, row uint32, opts engine.FormatCodeOptions) []edit {
	text := f.src[ls:le]
	content := strings.TrimRight(string(text), "\r")
	le = ls + len(content)
	trimmed := strings.TrimRight(content, " \t")
	lead := len(trimmed) - len(strings.TrimLeft(trimmed, " \t"))
	var out []edit

	if len(trimmed) == 0 {
		if len(content) > 0 && !inLiteral(f, ls) {
			out = append(out, edit{start: ls, end: le})
		}
		return out
	}
	if inLiteral(f, ls) {
		return nil
	}
	if opts.IndentStyle != engine.IndentNone {
		want := indentString(indentLevel(f, ls+lead, row), opts)
		if string(text[:lead]) != want {
			out = append(out, edit{start: ls, end: ls + lead, text: want})
		}
	}
	if tail := ls + len(trimmed); tail < le && !inLiteral(f, tail) {
		out = append(out, edit{start: tail, end: le})
	}
	return out
}

// indentLevel counts the containers opened on earlier lines around b. Each
// line opening containers contributes one level, none when the line at b
// starts by closing one of them.
func indentLevel(f *sourceFile, b int, row uint32) int {
	rows := map[uint32]bool{}
	closed := map[uint32]bool{}
	for p := nodeAt(f.root, b); p != nil; p = p.Parent() {
		if !indentContainers[p.Type()] || p.StartPoint().Row >= row {
			continue
		}
		r := p.StartPoint().Row
		rows[r] = true
		if int(p.EndByte())-1 == b && isCloser(f.src[b]) {
			closed[r] = true
		}
	}
	level := 0
	for r := range rows {
		if !closed[r] {
			level++
		}
	}
	return level
}

func isCloser(c byte) bool { return c == '}' || c == ')' || c == ']' }

func pointRow(src []byte, b int) uint32 {
	var row uint32
	for i := 0; i < b && i < len(src); i++ {
		if src[i] == '\n' {
			row++
		}
	}
	return row
}

// spacing applies the token spacing rules to tokens starting in [start, end).
func spacing(f *sourceFile, start, end int, opts engine.FormatCodeOptions) []edit {
	toks := leaves(f.root)
	var out []edit
	gap := func(a, b *sitter.Node, want bool) {
		gs, ge := int(a.EndByte()), int(b.StartByte())
		if gs < start || gs > end || ge < gs {
			return
		}
		between := string(f.src[gs:ge])
		if strings.ContainsAny(between, "\r\n") || strings.Trim(between, " \t") != "" {
			return
		}
		switch {
		case want && between != " ":
			out = append(out, edit{start: gs, end: ge, text: " "})
		case !want && between != "":
			out = append(out, edit{start: gs, end: ge})
		}
	}
	for i := 0; i+1 < len(toks); i++ {
		t, next := toks[i], toks[i+1]
		if t.IsMissing() || next.IsMissing() || inside(t, "ERROR") {
			continue
		}
		p := t.Parent()
		if p == nil {
			continue
		}
		switch typ := t.Type(); {
		case typ == ",":
			if isCloser(f.src[next.StartByte()]) {
				continue
			}
			gap(t, next, opts.InsertSpaceAfterCommaDelimiter)
		case typ == ";" && p.Type() == "for_statement":
			if next.Type() == ")" || next.Type() == ";" {
				continue
			}
			gap(t, next, opts.InsertSpaceAfterSemicolonInForStatements)
		case controlKeywords[typ] && next.Type() == "(":
			gap(t, next, opts.InsertSpaceAfterKeywordsInControlFlowStatements)
		case typ == "function" && next.Type() == "formal_parameters",
			typ == "function" && next.Type() == "(":
			gap(t, next, opts.InsertSpaceAfterFunctionKeywordForAnonymousFunctions)
		case isBinaryOperator(t, p):
			if i > 0 {
				gap(toks[i-1], t, opts.InsertSpaceBeforeAndAfterBinaryOperators)
			}
			gap(t, next, opts.InsertSpaceBeforeAndAfterBinaryOperators)
		}
	}
	return out
}

func isBinaryOperator(t, parent *sitter.Node) bool {
	if t.IsNamed() {
		return false
	}
	switch parent.Type() {
	case "binary_expression", "assignment_expression", "augmented_assignment_expression":
		if op := parent.ChildByFieldName("operator"); op != nil {
			return key(op) == key(t)
		}
		return t.Type() == "="
	case "variable_declarator", "public_field_definition", "field_definition", "enum_assignment", "assignment_pattern", "required_parameter", "optional_parameter":
		return t.Type() == "="
	}
	return false
}
