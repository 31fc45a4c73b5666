//go:build cgo

package treesitter

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

func (s *Service) EmitOutput(ctx context.Context, fileName string) (*engine.EmitOutput, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	if f.declarationFile() {
		return &engine.EmitOutput{OutputFiles: []engine.OutputFile{}, EmitSkipped: true}, nil
	}
	opts := s.host.CompilationSettings()
	if opts.Bool("noEmit") || (opts.Bool("noEmitOnError") && len(syntaxErrors(f)) > 0) {
		return &engine.EmitOutput{OutputFiles: []engine.OutputFile{}, EmitSkipped: true}, nil
	}

	text := string(f.src)
	if f.dialect != dialectJavaScript {
		e := &eraser{f: f}
		e.visit(f.root)
		text = e.apply()
	}
	if opts.Bool("removeComments") {
		text = s.stripComments(ctx, text)
	}
	return &engine.EmitOutput{OutputFiles: []engine.OutputFile{{Name: outputName(f.name, opts), Text: text}}}, nil
}

func outputName(name string, opts engine.CompilerOptions) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	switch strings.ToLower(ext) {
	case ".ts":
		return base + ".js"
	case ".tsx":
		if jsx, _ := opts["jsx"].(string); strings.EqualFold(jsx, "preserve") {
			return base + ".jsx"
		}
		return base + ".js"
	case ".js", ".jsx", ".mjs", ".cjs":
		return name
	}
	return name + ".js"
}

// stripComments removes comment nodes from already emitted JavaScript.
func (s *Service) stripComments(ctx context.Context, text string) string {
	s.parser.SetLanguage(dialectJavaScript.grammar())
	tree, err := s.parser.ParseCtx(ctx, nil, []byte(text))
	if err != nil {
		return text
	}
	src := []byte(text)
	var cuts []edit
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Type() == "comment" {
			cuts = append(cuts, lineCut(src, int(n.StartByte()), int(n.EndByte())))
			return false
		}
		return true
	})
	return applyEdits(src, cuts)
}

// eraser collects the edits turning TypeScript into JavaScript.
type eraser struct {
	f     *sourceFile
	edits []edit
}

func (e *eraser) del(n *sitter.Node) {
	e.edits = append(e.edits, edit{start: int(n.StartByte()), end: int(n.EndByte())})
}

// delWord deletes a keyword or modifier with the whitespace after it.
func (e *eraser) delWord(n *sitter.Node) {
	end := int(n.EndByte())
	for end < len(e.f.src) && (e.f.src[end] == ' ' || e.f.src[end] == '\t') {
		end++
	}
	e.edits = append(e.edits, edit{start: int(n.StartByte()), end: end})
}

// delStatement removes a whole statement, with its line when it stands alone.
func (e *eraser) delStatement(n *sitter.Node) {
	e.edits = append(e.edits, lineCut(e.f.src, int(n.StartByte()), int(n.EndByte())))
}

func (e *eraser) insert(at int, text string) {
	e.edits = append(e.edits, edit{start: at, end: at, text: text})
}

func (e *eraser) replace(start, end int, text string) {
	e.edits = append(e.edits, edit{start: start, end: end, text: text})
}

func (e *eraser) apply() string { return applyEdits(e.f.src, e.edits) }

// lineCut widens [start, end) to whole lines when nothing else is on them.
func lineCut(src []byte, start, end int) edit {
	ls := start
	for ls > 0 && (src[ls-1] == ' ' || src[ls-1] == '\t') {
		ls--
	}
	le := end
	for le < len(src) && (src[le] == ' ' || src[le] == '\t' || src[le] == '\r') {
		le++
	}
	if (ls == 0 || src[ls-1] == '\n') && (le == len(src) || src[le] == '\n') {
		if le < len(src) {
			le++
		}
		return edit{start: ls, end: le}
	}
	return edit{start: start, end: end}
}

func applyEdits(src []byte, edits []edit) string {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var b strings.Builder
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		b.Write(src[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.Write(src[pos:])
	return b.String()
}

func typeOnlyDeclaration(n *sitter.Node) bool {
	switch n.Type() {
	case "interface_declaration", "type_alias_declaration", "ambient_declaration", "function_signature":
		return true
	case "enum_declaration":
		return hasChild(n, "const")
	}
	return false
}

func (e *eraser) visit(n *sitter.Node) {
	if typeOnlyDeclaration(n) {
		e.delStatement(n)
		return
	}
	switch n.Type() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil && typeOnlyDeclaration(decl) {
			e.delStatement(n)
			return
		}
		if hasChild(n, "type") {
			e.delStatement(n)
			return
		}
	case "import_statement":
		if hasChild(n, "type") {
			e.delStatement(n)
			return
		}
	case "type_annotation", "type_parameters", "type_arguments", "type_predicate_annotation",
		"asserts_annotation", "opting_type_annotation", "omitting_type_annotation":
		e.del(n)
		return
	case "implements_clause":
		start := int(n.StartByte())
		for start > 0 && (e.f.src[start-1] == ' ' || e.f.src[start-1] == '\t') {
			start--
		}
		e.replace(start, int(n.EndByte()), "")
		return
	case "accessibility_modifier", "override_modifier":
		e.delWord(n)
		return
	case "abstract_class_declaration":
		if kw := childOfType(n, "abstract"); kw != nil {
			e.delWord(kw)
		}
	case "abstract_method_signature", "index_signature", "method_signature":
		if p := n.Parent(); p != nil && p.Type() == "class_body" {
			e.delStatement(n)
			return
		}
	case "public_field_definition", "field_definition":
		if n.ChildByFieldName("value") == nil || hasChild(n, "declare") || hasChild(n, "abstract") {
			e.delStatement(n)
			return
		}
		for _, c := range children(n) {
			switch c.Type() {
			case "readonly", "declare", "abstract":
				e.delWord(c)
			case "?", "!":
				e.del(c)
			}
		}
	case "required_parameter", "optional_parameter":
		for _, c := range children(n) {
			switch c.Type() {
			case "readonly":
				e.delWord(c)
			case "?":
				e.del(c)
			}
		}
	case "variable_declarator":
		if bang := childOfType(n, "!"); bang != nil {
			e.del(bang)
		}
	case "method_definition":
		if name := n.ChildByFieldName("name"); name != nil && e.f.text(name) == "constructor" {
			e.parameterProperties(n)
		}
		if q := childOfType(n, "?"); q != nil {
			e.del(q)
		}
		if n.ChildByFieldName("body") == nil {
			e.delStatement(n)
			return
		}
	case "as_expression", "satisfies_expression":
		if expr := n.NamedChild(0); expr != nil {
			e.replace(int(expr.EndByte()), int(n.EndByte()), "")
			e.visit(expr)
		}
		return
	case "non_null_expression":
		if last := n.Child(int(n.ChildCount()) - 1); last != nil && last.Type() == "!" {
			e.del(last)
		}
	case "enum_declaration":
		e.replace(int(n.StartByte()), int(n.EndByte()), e.enum(n))
		return
	case "internal_module", "module":
		if e.namespace(n) {
			return
		}
	}
	for _, c := range children(n) {
		e.visit(c)
	}
}

// parameterProperties assigns constructor parameter properties in the body,
// after the super call when there is one.
func (e *eraser) parameterProperties(ctor *sitter.Node) {
	params := ctor.ChildByFieldName("parameters")
	body := ctor.ChildByFieldName("body")
	if params == nil || body == nil {
		return
	}
	var assigns []string
	for _, p := range namedChildren(params) {
		if !hasChild(p, "accessibility_modifier") && !hasChild(p, "readonly") {
			continue
		}
		if pattern := p.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
			name := e.f.text(pattern)
			assigns = append(assigns, fmt.Sprintf("this.%s = %s;", name, name))
		}
	}
	if len(assigns) == 0 {
		return
	}
	at := int(body.StartByte()) + 1
	for _, stmt := range namedChildren(body) {
		if stmt.Type() != "expression_statement" {
			continue
		}
		if call := stmt.NamedChild(0); call != nil && call.Type() == "call_expression" {
			if fn := call.ChildByFieldName("function"); fn != nil && fn.Type() == "super" {
				at = int(stmt.EndByte())
			}
		}
		break
	}
	indent := lineIndent(e.f.src, int(ctor.StartByte())) + "    "
	var b strings.Builder
	for _, a := range assigns {
		b.WriteString("\n" + indent + a)
	}
	e.insert(at, b.String())
}

func lineIndent(src []byte, b int) string {
	ls := lineStart(src, b)
	i := ls
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return string(src[ls:i])
}

// enum lowers an enum declaration to the object-populating function the
// compiler emits. Members without an initializer continue the numbering.
func (e *eraser) enum(n *sitter.Node) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	en := e.f.text(name)
	indent := lineIndent(e.f.src, int(n.StartByte()))
	var b strings.Builder
	fmt.Fprintf(&b, "var %s;\n%s(function (%s) {\n", en, indent, en)
	next := 0
	numeric := true
	if body := n.ChildByFieldName("body"); body != nil {
		for _, m := range namedChildren(body) {
			var mname string
			var value *sitter.Node
			switch m.Type() {
			case "property_identifier":
				mname = strconv.Quote(e.f.text(m))
			case "string":
				mname = e.f.text(m)
			case "enum_assignment":
				nn := m.ChildByFieldName("name")
				if nn == nil {
					continue
				}
				mname = e.f.text(nn)
				if nn.Type() == "property_identifier" {
					mname = strconv.Quote(mname)
				}
				value = m.ChildByFieldName("value")
			default:
				continue
			}
			switch {
			case value == nil && numeric:
				fmt.Fprintf(&b, "%s    %s[%s[%s] = %d] = %s;\n", indent, en, en, mname, next, mname)
				next++
			case value == nil:
				fmt.Fprintf(&b, "%s    %s[%s] = undefined;\n", indent, en, mname)
			case value.Type() == "string" || value.Type() == "template_string":
				fmt.Fprintf(&b, "%s    %s[%s] = %s;\n", indent, en, mname, e.f.text(value))
				numeric = false
			default:
				v := e.f.text(value)
				if i, err := strconv.Atoi(v); err == nil {
					next = i + 1
					numeric = true
				} else {
					numeric = false
				}
				fmt.Fprintf(&b, "%s    %s[%s[%s] = %s] = %s;\n", indent, en, en, mname, v, mname)
			}
		}
	}
	fmt.Fprintf(&b, "%s})(%s || (%s = {}));", indent, en, en)
	return b.String()
}

// namespace lowers an identifier-named namespace to a function populating
// the namespace object. It reports false when the declaration is left alone.
func (e *eraser) namespace(n *sitter.Node) bool {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if name == nil || body == nil || name.Type() != "identifier" {
		return false
	}
	ns := e.f.text(name)
	if !instantiated(body) {
		target := n
		if p := n.Parent(); p != nil && (p.Type() == "expression_statement" || p.Type() == "export_statement") {
			target = p
		}
		e.delStatement(target)
		return true
	}
	indent := lineIndent(e.f.src, int(n.StartByte()))
	e.replace(int(n.StartByte()), int(body.StartByte())+1, fmt.Sprintf("var %s;\n%s(function (%s) {", ns, indent, ns))
	for _, stmt := range namedChildren(body) {
		if stmt.Type() != "export_statement" {
			e.visit(stmt)
			continue
		}
		decl := stmt.ChildByFieldName("declaration")
		if decl == nil || typeOnlyDeclaration(decl) {
			e.visit(stmt)
			continue
		}
		if kw := childOfType(stmt, "export"); kw != nil {
			e.delWord(kw)
		}
		e.visit(decl)
		var binds []string
		for _, exported := range declaredNames(e.f, decl) {
			binds = append(binds, fmt.Sprintf(" %s.%s = %s;", ns, exported, exported))
		}
		e.insert(int(stmt.EndByte()), strings.Join(binds, ""))
	}
	e.replace(int(body.EndByte())-1, int(n.EndByte()), fmt.Sprintf("})(%s || (%s = {}));", ns, ns))
	return true
}

// instantiated reports whether a namespace body holds any value.
func instantiated(body *sitter.Node) bool {
	for _, stmt := range namedChildren(body) {
		n := stmt
		if n.Type() == "export_statement" {
			if d := n.ChildByFieldName("declaration"); d != nil {
				n = d
			}
		}
		if n.Type() == "comment" || typeOnlyDeclaration(n) {
			continue
		}
		if n.Type() == "expression_statement" {
			if c := n.NamedChild(0); c != nil && c.Type() == "internal_module" {
				if b := c.ChildByFieldName("body"); b != nil && !instantiated(b) {
					continue
				}
			}
		}
		return true
	}
	return false
}

func declaredNames(f *sourceFile, decl *sitter.Node) []string {
	switch decl.Type() {
	case "lexical_declaration", "variable_declaration":
		var out []string
		for _, d := range namedChildren(decl) {
			if name := d.ChildByFieldName("name"); d.Type() == "variable_declarator" && name != nil && name.Type() == "identifier" {
				out = append(out, f.text(name))
			}
		}
		return out
	default:
		if name := decl.ChildByFieldName("name"); name != nil && isNameType(name.Type()) {
			return []string{f.text(name)}
		}
	}
	return nil
}
