//go:build cgo

package treesitter

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

// implicitNames resolve without a declaration.
var implicitNames = map[string]bool{
	"arguments":  true,
	"undefined":  true,
	"globalThis": true,
}

// globalScope merges the top-level declarations of every script file,
// including the default library and extra sources.
type globalScope struct {
	names   []string
	symbols map[string][]*symbol
}

func (g *globalScope) lookup(name string, meaning symbolFlags) *symbol {
	for _, s := range g.symbols[name] {
		if s.flags&meaning != 0 {
			return s
		}
	}
	return nil
}

func (s *Service) globalScope() *globalScope {
	if s.globals != nil {
		return s.globals
	}
	g := &globalScope{symbols: make(map[string][]*symbol)}
	for _, f := range s.programFiles() {
		fb := bindFile(f)
		if fb.module {
			continue
		}
		for _, name := range fb.root.names {
			if _, ok := g.symbols[name]; !ok {
				g.names = append(g.names, name)
			}
			g.symbols[name] = append(g.symbols[name], fb.root.symbols[name]...)
		}
	}
	s.globals = g
	return g
}

func (s *Service) resolve(sc *scope, name string, meaning symbolFlags) *symbol {
	for x := sc; x != nil; x = x.parent {
		if sym := x.lookup(name, meaning); sym != nil {
			return sym
		}
	}
	return s.globalScope().lookup(name, meaning)
}

// resolveNode resolves a name node in f to its symbol.
func (s *Service) resolveNode(f *sourceFile, n *sitter.Node) *symbol {
	fb := bindFile(f)
	if sym := fb.decls[key(n)]; sym != nil {
		return sym
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		return s.resolve(fb.scopeAt(int(n.StartByte())), f.text(n), flagValue)
	case "type_identifier":
		return s.resolve(fb.scopeAt(int(n.StartByte())), f.text(n), flagType)
	case "property_identifier", "private_property_identifier":
		p := n.Parent()
		if p == nil || p.Type() != "member_expression" {
			return nil
		}
		return s.member(s.typeOfExpr(f, p.ChildByFieldName("object"), 0), f.text(n))
	}
	return nil
}

// symbolAt returns the symbol named at byte b and the name node.
func (s *Service) symbolAt(f *sourceFile, b int) (*symbol, *sitter.Node) {
	n := nameAt(f.root, b)
	if n == nil {
		return nil, nil
	}
	return s.resolveNode(f, n), n
}

// declarations returns every declaration merged with sym.
func (s *Service) declarations(sym *symbol) []*symbol {
	if sym.scope == nil {
		return []*symbol{sym}
	}
	pool := sym.scope.symbols[sym.name]
	if sym.scope.parent == nil && !bindFile(sym.file).module {
		pool = s.globalScope().symbols[sym.name]
	}
	var out []*symbol
	for _, d := range pool {
		if d.kind == sym.kind {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = []*symbol{sym}
	}
	return out
}

// typeRef is what member access resolves against: the instance side of a
// class or interface, the static side of a class, or an enum or namespace.
type typeRef struct {
	sym    *symbol
	static bool
}

func (s *Service) libType(name string) *typeRef {
	if sym := s.globalScope().lookup(name, flagType); sym != nil {
		return &typeRef{sym: sym}
	}
	return nil
}

func (s *Service) members(t *typeRef) []*symbol {
	return s.collectMembers(t, 0, map[*symbol]bool{})
}

func (s *Service) collectMembers(t *typeRef, depth int, seen map[*symbol]bool) []*symbol {
	if t == nil || t.sym == nil || depth > 8 || seen[t.sym] {
		return nil
	}
	seen[t.sym] = true
	var out []*symbol
	switch t.sym.kind {
	case engine.KindClass:
		for _, m := range t.sym.members {
			if m.has(flagStatic) == t.static && m.kind != engine.KindConstructor {
				out = append(out, m)
			}
		}
		if base := s.baseClass(t.sym); base != nil {
			out = append(out, s.collectMembers(&typeRef{sym: base, static: t.static}, depth+1, seen)...)
		}
	case engine.KindInterface:
		for _, d := range s.declarations(t.sym) {
			seen[d] = true
			out = append(out, d.members...)
			for _, base := range s.baseInterfaces(d) {
				out = append(out, s.collectMembers(&typeRef{sym: base}, depth+1, seen)...)
			}
		}
	case engine.KindEnum:
		out = append(out, t.sym.members...)
	case engine.KindModule:
		for _, body := range t.sym.bodies {
			for _, name := range body.names {
				for _, m := range body.symbols[name] {
					if m.has(flagExported) || m.has(flagAmbient) {
						out = append(out, m)
					}
				}
			}
		}
	}
	return out
}

func (s *Service) member(t *typeRef, name string) *symbol {
	for _, m := range s.members(t) {
		if m.name == name {
			return m
		}
	}
	return nil
}

func (s *Service) baseClass(class *symbol) *symbol {
	h := childOfType(class.decl, "class_heritage")
	if h == nil {
		return nil
	}
	var value *sitter.Node
	if ext := childOfType(h, "extends_clause"); ext != nil {
		value = ext.ChildByFieldName("value")
		if value == nil {
			value = ext.NamedChild(0)
		}
	} else {
		value = h.NamedChild(0)
	}
	if value == nil || value.Type() != "identifier" {
		return nil
	}
	base := s.resolveNode(class.file, value)
	if base == nil || base.kind != engine.KindClass {
		return nil
	}
	return base
}

func (s *Service) baseInterfaces(iface *symbol) []*symbol {
	ext := childOfType(iface.decl, "extends_type_clause", "extends_clause")
	if ext == nil {
		return nil
	}
	var out []*symbol
	walk(ext, func(n *sitter.Node) bool {
		if n.Type() == "type_identifier" {
			if sym := s.resolveNode(iface.file, n); sym != nil && sym.kind == engine.KindInterface {
				out = append(out, sym)
			}
			return false
		}
		return n.Type() != "type_arguments"
	})
	return out
}

// typeOfExpr approximates the type of an expression from declarations and
// literals.
func (s *Service) typeOfExpr(f *sourceFile, n *sitter.Node, depth int) *typeRef {
	if n == nil || depth > 8 {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression":
		return s.typeOfExpr(f, n.NamedChild(0), depth+1)
	case "identifier":
		return s.typeOfSymbol(s.resolveNode(f, n), depth+1)
	case "this":
		for p := n.Parent(); p != nil; p = p.Parent() {
			switch p.Type() {
			case "class_declaration", "abstract_class_declaration", "class":
				if name := p.ChildByFieldName("name"); name != nil {
					if sym := bindFile(f).decls[key(name)]; sym != nil {
						return &typeRef{sym: sym}
					}
				}
				return nil
			}
		}
	case "member_expression":
		prop := n.ChildByFieldName("property")
		if prop == nil {
			return nil
		}
		t := s.typeOfExpr(f, n.ChildByFieldName("object"), depth+1)
		return s.typeOfSymbol(s.member(t, f.text(prop)), depth+1)
	case "call_expression":
		callee := s.callee(f, n.ChildByFieldName("function"))
		if callee == nil {
			return nil
		}
		if rt := callee.decl.ChildByFieldName("return_type"); rt != nil {
			return s.typeOfTypeNode(callee.file, rt.NamedChild(0), depth+1)
		}
	case "new_expression":
		if c := n.ChildByFieldName("constructor"); c != nil {
			if t := s.typeOfExpr(f, c, depth+1); t != nil && t.sym.kind == engine.KindClass {
				return &typeRef{sym: t.sym}
			}
		}
	case "string", "template_string":
		return s.libType("String")
	case "number":
		return s.libType("Number")
	case "true", "false":
		return s.libType("Boolean")
	case "array":
		return s.libType("Array")
	case "regex":
		return s.libType("RegExp")
	case "as_expression", "satisfies_expression":
		if cnt := int(n.NamedChildCount()); cnt > 1 {
			return s.typeOfTypeNode(f, n.NamedChild(cnt-1), depth+1)
		}
	}
	return nil
}

// callee resolves the function or method a call expression invokes.
func (s *Service) callee(f *sourceFile, fn *sitter.Node) *symbol {
	if fn == nil {
		return nil
	}
	switch fn.Type() {
	case "identifier":
		return s.resolveNode(f, fn)
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return s.member(s.typeOfExpr(f, fn.ChildByFieldName("object"), 0), f.text(prop))
		}
	}
	return nil
}

func (s *Service) typeOfSymbol(sym *symbol, depth int) *typeRef {
	if sym == nil || depth > 8 {
		return nil
	}
	switch sym.kind {
	case engine.KindClass:
		return &typeRef{sym: sym, static: true}
	case engine.KindEnum, engine.KindModule:
		return &typeRef{sym: sym}
	case engine.KindFunction, engine.KindLocalFunction, engine.KindMethod, engine.KindAlias:
		return nil
	}
	if tn := annotation(sym); tn != nil {
		return s.typeOfTypeNode(sym.file, tn, depth+1)
	}
	if v := initializer(sym); v != nil {
		return s.typeOfExpr(sym.file, v, depth+1)
	}
	return nil
}

func (s *Service) typeOfTypeNode(f *sourceFile, tn *sitter.Node, depth int) *typeRef {
	if tn == nil || depth > 8 {
		return nil
	}
	switch tn.Type() {
	case "type_identifier":
		sym := s.resolveNode(f, tn)
		if sym == nil {
			return nil
		}
		switch sym.kind {
		case engine.KindClass, engine.KindInterface:
			return &typeRef{sym: sym}
		case engine.KindType:
			if v := sym.decl.ChildByFieldName("value"); v != nil {
				return s.typeOfTypeNode(sym.file, v, depth+1)
			}
		}
	case "generic_type":
		if name := tn.ChildByFieldName("name"); name != nil {
			return s.typeOfTypeNode(f, name, depth+1)
		}
		return s.typeOfTypeNode(f, tn.NamedChild(0), depth+1)
	case "predefined_type":
		switch f.text(tn) {
		case "string":
			return s.libType("String")
		case "number":
			return s.libType("Number")
		case "boolean":
			return s.libType("Boolean")
		}
	case "array_type":
		return s.libType("Array")
	case "parenthesized_type":
		return s.typeOfTypeNode(f, tn.NamedChild(0), depth+1)
	case "literal_type":
		return s.typeOfExpr(f, tn.NamedChild(0), depth+1)
	}
	return nil
}

// annotation returns the declared type node of a variable, parameter or
// property symbol.
func annotation(sym *symbol) *sitter.Node {
	if sym.decl == nil {
		return nil
	}
	if name := sym.decl.ChildByFieldName("name"); sym.decl.Type() == "variable_declarator" && (name == nil || key(name) != key(sym.nameNode)) {
		return nil
	}
	if ta := sym.decl.ChildByFieldName("type"); ta != nil && ta.Type() == "type_annotation" {
		return ta.NamedChild(0)
	}
	return nil
}

func initializer(sym *symbol) *sitter.Node {
	if sym.decl == nil {
		return nil
	}
	if name := sym.decl.ChildByFieldName("name"); sym.decl.Type() == "variable_declarator" && (name == nil || key(name) != key(sym.nameNode)) {
		return nil
	}
	return sym.decl.ChildByFieldName("value")
}

// literalType names the type of a literal initializer. Const declarations
// keep number and string literal types.
func (s *Service) literalType(f *sourceFile, v *sitter.Node, keepLiteral bool) string {
	switch v.Type() {
	case "number":
		if keepLiteral {
			return f.text(v)
		}
		return "number"
	case "string":
		if keepLiteral {
			return f.text(v)
		}
		return "string"
	case "template_string":
		return "string"
	case "true", "false":
		if keepLiteral {
			return v.Type()
		}
		return "boolean"
	case "null":
		return "any"
	case "array":
		elem := "any"
		for i, c := range namedChildren(v) {
			t := s.literalType(f, c, false)
			if i > 0 && t != elem {
				elem = "any"
				break
			}
			elem = t
		}
		return elem + "[]"
	case "arrow_function", "function", "function_expression":
		return s.signatureText(f, v, "", " => ")
	case "new_expression":
		if c := v.ChildByFieldName("constructor"); c != nil {
			return f.text(c)
		}
	case "parenthesized_expression":
		if c := v.NamedChild(0); c != nil {
			return s.literalType(f, c, keepLiteral)
		}
	case "unary_expression":
		if arg := v.ChildByFieldName("argument"); arg != nil && arg.Type() == "number" {
			if keepLiteral && strings.HasPrefix(f.text(v), "-") {
				return f.text(v)
			}
			return "number"
		}
		if op := v.ChildByFieldName("operator"); op != nil && f.text(op) == "!" {
			return "boolean"
		}
	case "binary_expression":
		l, r := v.ChildByFieldName("left"), v.ChildByFieldName("right")
		op := v.ChildByFieldName("operator")
		if l == nil || r == nil || op == nil {
			return "any"
		}
		switch f.text(op) {
		case "==", "===", "!=", "!==", "<", ">", "<=", ">=", "instanceof", "in":
			return "boolean"
		case "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>":
			return "number"
		case "+":
			lt, rt := s.exprType(f, l), s.exprType(f, r)
			if lt == "string" || rt == "string" {
				return "string"
			}
			if lt == "number" && rt == "number" {
				return "number"
			}
		}
	case "identifier":
		return s.exprType(f, v)
	case "call_expression":
		if callee := s.callee(f, v.ChildByFieldName("function")); callee != nil {
			if rt := callee.decl.ChildByFieldName("return_type"); rt != nil {
				return typeText(callee.file, rt)
			}
		}
	}
	return "any"
}

// exprType is the widened display type of an expression.
func (s *Service) exprType(f *sourceFile, v *sitter.Node) string {
	if v.Type() == "identifier" {
		sym := s.resolveNode(f, v)
		if sym == nil {
			return "any"
		}
		return s.declaredType(sym, false)
	}
	return s.literalType(f, v, false)
}

// declaredType is the display type of a variable, parameter or property.
func (s *Service) declaredType(sym *symbol, keepLiteral bool) string {
	if tn := annotation(sym); tn != nil {
		return collapse(sym.file.text(tn))
	}
	if v := initializer(sym); v != nil {
		return s.literalType(sym.file, v, keepLiteral && sym.has(flagConst))
	}
	if sym.kind == engine.KindEnumMember {
		return sym.parent.name
	}
	return "any"
}

func typeText(f *sourceFile, ta *sitter.Node) string {
	if ta.Type() == "type_annotation" && ta.NamedChildCount() > 0 {
		return collapse(f.text(ta.NamedChild(0)))
	}
	return collapse(strings.TrimSpace(strings.TrimPrefix(f.text(ta), ":")))
}

// collapse folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// returnType renders the declared return type, inferring void or the first
// returned literal when missing.
func (s *Service) returnType(f *sourceFile, fn *sitter.Node) string {
	if rt := fn.ChildByFieldName("return_type"); rt != nil {
		return typeText(f, rt)
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return "any"
	}
	if body.Type() != "statement_block" {
		return s.literalType(f, body, false)
	}
	result := "void"
	walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function", "function_expression", "arrow_function", "function_declaration", "class", "class_declaration", "method_definition":
			return false
		case "return_statement":
			if v := n.NamedChild(0); v != nil && result == "void" {
				result = s.literalType(f, v, false)
			}
			return false
		}
		return true
	})
	return result
}

// parameterText renders one parameter as "name?: type".
func (s *Service) parameterText(f *sourceFile, p *sitter.Node) (name, text string, optional, rest bool) {
	pattern := p.ChildByFieldName("pattern")
	if pattern == nil {
		pattern = p
	}
	var def *sitter.Node
	switch pattern.Type() {
	case "assignment_pattern":
		def = pattern.ChildByFieldName("right")
		pattern = pattern.ChildByFieldName("left")
	case "rest_pattern":
		rest = true
	}
	if pattern == nil {
		return "", "", false, false
	}
	if v := p.ChildByFieldName("value"); v != nil {
		def = v
	}
	name = f.text(pattern)
	optional = p.Type() == "optional_parameter" || def != nil
	typ := "any"
	if ta := p.ChildByFieldName("type"); ta != nil {
		typ = typeText(f, ta)
	} else if def != nil {
		typ = s.literalType(f, def, false)
	}
	if rest && typ == "any" {
		typ = "any[]"
	}
	text = name
	if optional && !rest {
		text += "?"
	}
	return strings.TrimPrefix(name, "..."), text + ": " + typ, optional, rest
}

func parameterNodes(fn *sitter.Node) []*sitter.Node {
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return []*sitter.Node{single}
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []*sitter.Node
	for _, p := range namedChildren(params) {
		switch p.Type() {
		case "comment", "decorator":
			continue
		}
		out = append(out, p)
	}
	return out
}

// signatureText renders "name(params)<sep>ret" for any function-like node.
func (s *Service) signatureText(f *sourceFile, fn *sitter.Node, name, sep string) string {
	var params []string
	for _, p := range parameterNodes(fn) {
		_, text, _, _ := s.parameterText(f, p)
		params = append(params, text)
	}
	return name + "(" + strings.Join(params, ", ") + ")" + sep + s.returnType(f, fn)
}

// qualifiedName prefixes members with their container.
func qualifiedName(sym *symbol) string {
	if sym.parent != nil {
		return sym.parent.name + "." + sym.name
	}
	return sym.name
}

// displayParts renders a symbol the way hover and completion details show it.
func (s *Service) displayParts(sym *symbol) []engine.SymbolDisplayPart {
	f := sym.file
	kw := func(k string) []engine.SymbolDisplayPart {
		return []engine.SymbolDisplayPart{engine.Part(k, "keyword"), engine.Part(" ", "space")}
	}
	label := func(l string) []engine.SymbolDisplayPart {
		return []engine.SymbolDisplayPart{engine.Part("(", "punctuation"), engine.Part(l, "text"), engine.Part(")", "punctuation"), engine.Part(" ", "space")}
	}
	typed := func(parts []engine.SymbolDisplayPart, nameKind, name, typ string) []engine.SymbolDisplayPart {
		return append(parts, engine.Part(name, nameKind), engine.Part(":", "punctuation"), engine.Part(" ", "space"), engine.Part(typ, "text"))
	}

	switch sym.kind {
	case engine.KindVariable, engine.KindLocalVariable, engine.KindLet, engine.KindConst:
		keyword := "var"
		switch {
		case sym.kind == engine.KindLet:
			keyword = "let"
		case sym.kind == engine.KindConst:
			keyword = "const"
		case sym.decl != nil && sym.decl.Type() == "catch_clause":
			return typed(label("local var"), "localName", sym.name, "any")
		}
		return typed(kw(keyword), "localName", sym.name, s.declaredType(sym, true))
	case engine.KindParameter:
		return typed(label("parameter"), "parameterName", sym.name, s.parameterType(sym))
	case engine.KindFunction, engine.KindLocalFunction:
		return append(kw("function"), engine.Part(sym.name, "functionName"), engine.Part(s.signatureText(f, sym.decl, "", ": "), "text"))
	case engine.KindClass:
		return append(kw("class"), engine.Part(sym.name, "className"))
	case engine.KindInterface:
		return append(kw("interface"), engine.Part(sym.name, "interfaceName"))
	case engine.KindType:
		parts := append(kw("type"), engine.Part(sym.name, "aliasName"))
		if v := sym.decl.ChildByFieldName("value"); v != nil {
			parts = append(parts, engine.Part(" = ", "operator"), engine.Part(collapse(f.text(v)), "text"))
		}
		return parts
	case kindTypeParameter:
		return append(label("type parameter"), engine.Part(sym.name, "typeParameterName"))
	case engine.KindEnum:
		if sym.has(flagConst) {
			return append(kw("const enum"), engine.Part(sym.name, "enumName"))
		}
		return append(kw("enum"), engine.Part(sym.name, "enumName"))
	case engine.KindEnumMember:
		parts := append(label("enum member"), engine.Part(qualifiedName(sym), "enumMemberName"))
		if v := sym.decl.ChildByFieldName("value"); v != nil {
			parts = append(parts, engine.Part(" = ", "operator"), engine.Part(f.text(v), "text"))
		} else if i := enumIndex(sym); i >= 0 {
			parts = append(parts, engine.Part(" = ", "operator"), engine.Part(strconv.Itoa(i), "text"))
		}
		return parts
	case engine.KindModule:
		return append(kw("namespace"), engine.Part(sym.name, "moduleName"))
	case engine.KindMethod:
		return append(label("method"), engine.Part(qualifiedName(sym), "methodName"), engine.Part(s.signatureText(f, sym.decl, "", ": "), "text"))
	case engine.KindConstructor:
		sig := s.signatureText(f, sym.decl, "", ": ")
		if i := strings.LastIndex(sig, ")"); i >= 0 {
			sig = sig[:i+1]
		}
		return append(kw("constructor"), engine.Part(sym.parent.name, "className"), engine.Part(sig, "text"))
	case engine.KindProperty, engine.KindGetter, engine.KindSetter:
		return typed(label("property"), "propertyName", qualifiedName(sym), s.memberType(sym))
	case engine.KindAlias:
		return append(label("alias"), engine.Part("import", "keyword"), engine.Part(" ", "space"), engine.Part(sym.name, "aliasName"))
	}
	return []engine.SymbolDisplayPart{engine.Part(sym.name, "text")}
}

func (s *Service) parameterType(sym *symbol) string {
	if sym.decl == nil {
		return "any"
	}
	if pattern := sym.decl.ChildByFieldName("pattern"); pattern != nil && key(pattern) != key(sym.nameNode) {
		return "any"
	}
	_, text, _, _ := s.parameterText(sym.file, sym.decl)
	if i := strings.Index(text, ": "); i >= 0 {
		return text[i+2:]
	}
	return "any"
}

func (s *Service) memberType(sym *symbol) string {
	switch sym.decl.Type() {
	case "method_definition":
		// getter and setter
		if sym.kind == engine.KindSetter {
			if ps := parameterNodes(sym.decl); len(ps) > 0 {
				_, text, _, _ := s.parameterText(sym.file, ps[0])
				if i := strings.Index(text, ": "); i >= 0 {
					return text[i+2:]
				}
			}
			return "any"
		}
		return s.returnType(sym.file, sym.decl)
	case "required_parameter", "optional_parameter":
		return s.parameterType(sym)
	}
	return s.declaredType(sym, false)
}

func enumIndex(sym *symbol) int {
	if sym.parent == nil {
		return -1
	}
	next := 0
	for _, m := range sym.parent.members {
		if v := m.decl.ChildByFieldName("value"); v != nil {
			if v.Type() != "number" {
				return -1
			}
			n, err := strconv.Atoi(m.file.text(v))
			if err != nil {
				return -1
			}
			next = n
		}
		if m == sym {
			return next
		}
		next++
	}
	return -1
}

// documentation extracts the JSDoc comment directly preceding the
// declaration of sym.
func documentation(sym *symbol) []engine.SymbolDisplayPart {
	n := sym.decl
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "variable_declarator":
		if p := n.Parent(); p != nil {
			n = p
		}
	case "required_parameter", "optional_parameter":
		return nil
	}
	for p := n.Parent(); p != nil && (p.Type() == "export_statement" || p.Type() == "ambient_declaration"); p = p.Parent() {
		n = p
	}
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return nil
	}
	text := sym.file.text(prev)
	if !strings.HasPrefix(text, "/**") || int(n.StartPoint().Row) > int(prev.EndPoint().Row)+1 {
		return nil
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if strings.HasPrefix(line, "@") {
			break
		}
		lines = append(lines, line)
	}
	doc := strings.TrimSpace(strings.Join(lines, "\n"))
	if doc == "" {
		return nil
	}
	return []engine.SymbolDisplayPart{engine.Part(doc, "text")}
}

func kindModifiers(sym *symbol) string {
	var mods []string
	if sym.has(flagExported) {
		mods = append(mods, "export")
	}
	if sym.has(flagAmbient) || (sym.file != nil && (sym.file.lib || sym.file.declarationFile())) {
		mods = append(mods, "declare")
	}
	if sym.has(flagStatic) {
		mods = append(mods, "static")
	}
	if sym.has(flagOptional) {
		mods = append(mods, "optional")
	}
	return strings.Join(mods, ",")
}
