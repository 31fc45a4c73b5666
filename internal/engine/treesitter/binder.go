//go:build cgo

package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

const kindTypeParameter = "type parameter"

type symbolFlags uint

const (
	flagValue symbolFlags = 1 << iota
	flagType
	flagBlockScoped
	flagConst
	flagStatic
	flagOptional
	flagAmbient
	flagExported
)

// symbol is a declaration. Members of classes, interfaces and enums have a
// parent and no scope.
type symbol struct {
	name     string
	kind     string
	flags    symbolFlags
	file     *sourceFile
	decl     *sitter.Node
	nameNode *sitter.Node
	scope    *scope
	parent   *symbol
	members  []*symbol
	// overloads are bodiless signatures merged into a function
	overloads []*sitter.Node
	// bodies are the scopes of every declaration of a namespace
	bodies []*scope
}

func (s *symbol) has(f symbolFlags) bool { return s.flags&f != 0 }

type scopeKind int

const (
	scopeFile scopeKind = iota
	scopeModule
	scopeFunction
	scopeBlock
	scopeClass
)

type scope struct {
	kind     scopeKind
	node     *sitter.Node
	parent   *scope
	children []*scope
	names    []string
	symbols  map[string][]*symbol
}

func newScope(kind scopeKind, node *sitter.Node, parent *scope) *scope {
	sc := &scope{kind: kind, node: node, parent: parent, symbols: make(map[string][]*symbol)}
	if parent != nil {
		parent.children = append(parent.children, sc)
	}
	return sc
}

func (sc *scope) add(sym *symbol) {
	if _, ok := sc.symbols[sym.name]; !ok {
		sc.names = append(sc.names, sym.name)
	}
	sc.symbols[sym.name] = append(sc.symbols[sym.name], sym)
}

func (sc *scope) lookup(name string, meaning symbolFlags) *symbol {
	for _, s := range sc.symbols[name] {
		if s.flags&meaning != 0 {
			return s
		}
	}
	return nil
}

// hoist returns the scope var and function declarations land in.
func (sc *scope) hoist() *scope {
	for s := sc; s != nil; s = s.parent {
		switch s.kind {
		case scopeFile, scopeModule, scopeFunction:
			return s
		}
	}
	return sc
}

// reference is a value identifier to resolve in scope.
type reference struct {
	node  *sitter.Node
	scope *scope
}

// fileBinding is the bound form of one file.
type fileBinding struct {
	file   *sourceFile
	root   *scope
	decls  map[nodeKey]*symbol
	refs   []reference
	module bool
}

// scopeAt returns the innermost scope whose node covers byte b.
func (fb *fileBinding) scopeAt(b int) *scope {
	sc := fb.root
	for {
		var next *scope
		for _, c := range sc.children {
			if contains(c.node, b) {
				next = c
				break
			}
		}
		if next == nil {
			return sc
		}
		sc = next
	}
}

type binder struct {
	f        *sourceFile
	fb       *fileBinding
	errDepth int
}

// bindFile binds f once per parsed version.
func bindFile(f *sourceFile) *fileBinding {
	if f.binding != nil {
		return f.binding
	}
	b := &binder{f: f, fb: &fileBinding{file: f, decls: make(map[nodeKey]*symbol)}}
	b.fb.root = newScope(scopeFile, f.root, nil)
	b.fb.module = isModule(f)
	for _, c := range children(f.root) {
		b.bind(c, b.fb.root, 0)
	}
	f.binding = b.fb
	return b.fb
}

// isModule reports whether the file has top-level imports or exports; the
// declarations of other files are merged into the global scope.
func isModule(f *sourceFile) bool {
	if f.lib {
		return false
	}
	for _, c := range children(f.root) {
		switch c.Type() {
		case "import_statement", "export_statement":
			return true
		}
	}
	return false
}

func (b *binder) declare(sc *scope, name *sitter.Node, kind string, flags symbolFlags, decl *sitter.Node) *symbol {
	sym := &symbol{
		name:     b.f.text(name),
		kind:     kind,
		flags:    flags,
		file:     b.f,
		decl:     decl,
		nameNode: name,
		scope:    sc,
	}
	sc.add(sym)
	b.fb.decls[key(name)] = sym
	return sym
}

func (b *binder) member(parent *symbol, name *sitter.Node, kind string, flags symbolFlags, decl *sitter.Node) *symbol {
	m := &symbol{
		name:     b.f.text(name),
		kind:     kind,
		flags:    flags | flagValue,
		file:     b.f,
		decl:     decl,
		nameNode: name,
		parent:   parent,
	}
	parent.members = append(parent.members, m)
	b.fb.decls[key(name)] = m
	return m
}

func (b *binder) ref(n *sitter.Node, sc *scope) {
	if b.errDepth == 0 {
		b.fb.refs = append(b.fb.refs, reference{node: n, scope: sc})
	}
}

func (b *binder) bindChildren(n *sitter.Node, sc *scope) {
	for _, c := range children(n) {
		b.bind(c, sc, 0)
	}
}

func (b *binder) bind(n *sitter.Node, sc *scope, mods symbolFlags) {
	switch n.Type() {
	case "comment":
	case "ERROR":
		b.errDepth++
		b.bindChildren(n, sc)
		b.errDepth--

	case "identifier", "shorthand_property_identifier":
		b.ref(n, sc)

	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			b.bind(decl, sc, mods|flagExported)
			return
		}
		for _, c := range children(n) {
			if c.Type() == "export_clause" {
				if n.ChildByFieldName("source") != nil {
					continue
				}
				for _, spec := range namedChildren(c) {
					if name := spec.ChildByFieldName("name"); spec.Type() == "export_specifier" && name != nil && name.Type() == "identifier" {
						b.ref(name, sc)
					}
				}
				continue
			}
			if c.IsNamed() {
				b.bind(c, sc, mods)
			}
		}

	case "ambient_declaration":
		for _, c := range namedChildren(n) {
			if c.Type() == "statement_block" {
				// declare global { ... }
				for _, s := range children(c) {
					b.bind(s, sc, mods|flagAmbient)
				}
				continue
			}
			b.bind(c, sc, mods|flagAmbient)
		}

	case "function_declaration", "generator_function_declaration", "function_signature":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declareFunction(n, name, sc.hoist(), mods)
		}
		b.bindFunction(n, sc)

	case "function", "function_expression", "generator_function", "arrow_function", "method_definition":
		b.bindFunction(n, sc)

	case "lexical_declaration", "variable_declaration":
		b.bindVariables(n, sc, mods)

	case "class_declaration", "abstract_class_declaration", "class":
		b.bindClass(n, sc, mods)

	case "interface_declaration":
		b.bindInterface(n, sc, mods)

	case "type_alias_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(sc, name, engine.KindType, flagType|mods, n)
		}

	case "enum_declaration":
		b.bindEnum(n, sc, mods)

	case "internal_module", "module":
		b.bindModule(n, sc, mods)

	case "import_statement":
		b.bindImport(n, sc)

	case "statement_block", "switch_body", "class_static_block":
		bs := newScope(scopeBlock, n, sc)
		b.bindChildren(n, bs)

	case "for_statement":
		fs := newScope(scopeBlock, n, sc)
		b.bindChildren(n, fs)

	case "for_in_statement":
		b.bindForIn(n, sc)

	case "catch_clause":
		cs := newScope(scopeBlock, n, sc)
		if p := n.ChildByFieldName("parameter"); p != nil {
			b.declarePattern(p, cs, engine.KindLocalVariable, flagValue, n)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.bindChildren(body, cs)
		}

	case "as_expression", "satisfies_expression":
		if c := n.NamedChild(0); c != nil {
			b.bind(c, sc, 0)
		}

	case "type_assertion":
		if cnt := int(n.NamedChildCount()); cnt > 0 {
			b.bind(n.NamedChild(cnt-1), sc, 0)
		}

	case "jsx_opening_element", "jsx_closing_element", "jsx_self_closing_element":
		name := n.ChildByFieldName("name")
		for _, c := range namedChildren(n) {
			if name != nil && key(c) == key(name) {
				continue
			}
			b.bind(c, sc, 0)
		}

	case "type_annotation", "type_arguments", "type_parameters", "implements_clause",
		"type_predicate_annotation", "asserts_annotation", "opting_type_annotation",
		"omitting_type_annotation", "nested_identifier", "import_alias":

	default:
		b.bindChildren(n, sc)
	}
}

func (b *binder) declareFunction(n, name *sitter.Node, target *scope, mods symbolFlags) {
	kind := engine.KindFunction
	if target.kind == scopeFunction {
		kind = engine.KindLocalFunction
	}
	text := b.f.text(name)
	for _, existing := range target.symbols[text] {
		if existing.kind != kind {
			continue
		}
		if existing.decl.Type() == "function_signature" {
			existing.overloads = append(existing.overloads, existing.decl)
			existing.decl = n
			existing.nameNode = name
		} else {
			existing.overloads = append(existing.overloads, n)
		}
		b.fb.decls[key(name)] = existing
		return
	}
	b.declare(target, name, kind, flagValue|mods, n)
}

// bindFunction binds the parameters and body of any function-like node.
func (b *binder) bindFunction(n *sitter.Node, sc *scope) *scope {
	fs := newScope(scopeFunction, n, sc)
	switch n.Type() {
	case "function", "function_expression", "generator_function":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(fs, name, engine.KindLocalFunction, flagValue, n)
		}
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		b.typeParameters(tp, fs)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.parameters(params, fs)
	} else if p := n.ChildByFieldName("parameter"); p != nil {
		b.declarePattern(p, fs, engine.KindParameter, flagValue, p)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Type() == "statement_block" {
			b.bindChildren(body, fs)
		} else {
			b.bind(body, fs, 0)
		}
	}
	return fs
}

func (b *binder) parameters(params *sitter.Node, fs *scope) {
	for _, p := range namedChildren(params) {
		switch p.Type() {
		case "comment", "decorator":
		case "required_parameter", "optional_parameter":
			flags := flagValue
			if p.Type() == "optional_parameter" {
				flags |= flagOptional
			}
			if pattern := p.ChildByFieldName("pattern"); pattern != nil {
				b.declarePattern(pattern, fs, engine.KindParameter, flags, p)
			}
			if v := p.ChildByFieldName("value"); v != nil {
				b.bind(v, fs, 0)
			}
		default:
			b.declarePattern(p, fs, engine.KindParameter, flagValue, p)
		}
	}
}

func (b *binder) typeParameters(tp *sitter.Node, sc *scope) {
	for _, p := range namedChildren(tp) {
		if p.Type() != "type_parameter" {
			continue
		}
		if name := p.ChildByFieldName("name"); name != nil {
			b.declare(sc, name, kindTypeParameter, flagType, p)
		} else if name := childOfType(p, "type_identifier"); name != nil {
			b.declare(sc, name, kindTypeParameter, flagType, p)
		}
	}
}

// declarePattern declares every name bound by a binding pattern. Default
// values are bound as references in sc.
func (b *binder) declarePattern(p *sitter.Node, sc *scope, kind string, flags symbolFlags, decl *sitter.Node) {
	if p == nil {
		return
	}
	switch p.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.declare(sc, p, kind, flags, decl)
	case "object_pattern", "array_pattern":
		for _, c := range namedChildren(p) {
			b.declarePattern(c, sc, kind, flags, decl)
		}
	case "pair_pattern":
		if k := p.ChildByFieldName("key"); k != nil && k.Type() == "computed_property_name" {
			b.bind(k, sc, 0)
		}
		b.declarePattern(p.ChildByFieldName("value"), sc, kind, flags, decl)
	case "assignment_pattern", "object_assignment_pattern":
		b.declarePattern(p.ChildByFieldName("left"), sc, kind, flags, decl)
		if r := p.ChildByFieldName("right"); r != nil {
			b.bind(r, sc, 0)
		}
	case "rest_pattern":
		if c := p.NamedChild(0); c != nil {
			b.declarePattern(c, sc, kind, flags, decl)
		}
	}
}

func (b *binder) bindVariables(n *sitter.Node, sc *scope, mods symbolFlags) {
	kind := engine.KindVariable
	flags := flagValue | mods
	target := sc
	first := ""
	if n.ChildCount() > 0 {
		first = n.Child(0).Type()
	}
	switch first {
	case "let":
		kind = engine.KindLet
		flags |= flagBlockScoped
	case "const":
		kind = engine.KindConst
		flags |= flagBlockScoped | flagConst
	default:
		target = sc.hoist()
		if target.kind == scopeFunction {
			kind = engine.KindLocalVariable
		}
	}
	for _, d := range namedChildren(n) {
		if d.Type() != "variable_declarator" {
			continue
		}
		b.declarePattern(d.ChildByFieldName("name"), target, kind, flags, d)
		if v := d.ChildByFieldName("value"); v != nil {
			b.bind(v, sc, 0)
		}
	}
}

func (b *binder) bindForIn(n *sitter.Node, sc *scope) {
	fs := newScope(scopeBlock, n, sc)
	kw := childOfType(n, "var", "let", "const")
	left := n.ChildByFieldName("left")
	if kw == nil || left == nil {
		b.bindChildren(n, fs)
		return
	}
	kind, flags, target := engine.KindVariable, flagValue, sc.hoist()
	switch kw.Type() {
	case "let":
		kind, flags, target = engine.KindLet, flagValue|flagBlockScoped, fs
	case "const":
		kind, flags, target = engine.KindConst, flagValue|flagBlockScoped|flagConst, fs
	}
	b.declarePattern(left, target, kind, flags, n)
	for _, c := range children(n) {
		if key(c) == key(left) {
			continue
		}
		b.bind(c, fs, 0)
	}
}

func (b *binder) bindClass(n *sitter.Node, sc *scope, mods symbolFlags) {
	cs := newScope(scopeClass, n, sc)
	name := n.ChildByFieldName("name")
	var sym *symbol
	switch {
	case name != nil && n.Type() == "class":
		sym = b.declare(cs, name, engine.KindClass, flagValue|flagType, n)
	case name != nil:
		sym = b.declare(sc, name, engine.KindClass, flagValue|flagType|mods, n)
	default:
		sym = &symbol{name: "<class>", kind: engine.KindClass, flags: flagValue | flagType, file: b.f, decl: n}
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		b.typeParameters(tp, cs)
	}
	if h := childOfType(n, "class_heritage"); h != nil {
		for _, c := range namedChildren(h) {
			switch c.Type() {
			case "extends_clause":
				b.bindChildren(c, sc)
			case "implements_clause":
			default:
				b.bind(c, sc, 0)
			}
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, m := range namedChildren(body) {
		b.classMember(sym, m, cs)
	}
}

func memberFlags(m *sitter.Node) symbolFlags {
	var flags symbolFlags
	if hasChild(m, "static") {
		flags |= flagStatic
	}
	if hasChild(m, "?") {
		flags |= flagOptional
	}
	return flags
}

func (b *binder) classMember(class *symbol, m *sitter.Node, cs *scope) {
	switch m.Type() {
	case "method_definition", "method_signature", "abstract_method_signature":
		name := m.ChildByFieldName("name")
		if name == nil {
			return
		}
		kind := engine.KindMethod
		switch {
		case b.f.text(name) == "constructor":
			kind = engine.KindConstructor
		case hasChild(m, "get"):
			kind = engine.KindGetter
		case hasChild(m, "set"):
			kind = engine.KindSetter
		}
		b.member(class, name, kind, memberFlags(m), m)
		if m.Type() == "method_definition" {
			b.bindFunction(m, cs)
		}
		if kind == engine.KindConstructor {
			b.parameterProperties(class, m)
		}
	case "public_field_definition", "field_definition":
		name := m.ChildByFieldName("name")
		if name == nil {
			name = childOfType(m, "property_identifier", "private_property_identifier")
		}
		if name != nil {
			b.member(class, name, engine.KindProperty, memberFlags(m), m)
		}
		if v := m.ChildByFieldName("value"); v != nil {
			b.bind(v, cs, 0)
		}
	case "class_static_block":
		b.bind(m, cs, 0)
	}
}

// parameterProperties adds constructor parameters with an accessibility or
// readonly modifier as instance properties.
func (b *binder) parameterProperties(class *symbol, ctor *sitter.Node) {
	params := ctor.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for _, p := range namedChildren(params) {
		if !hasChild(p, "accessibility_modifier") && !hasChild(p, "readonly") {
			continue
		}
		if pattern := p.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
			m := &symbol{name: b.f.text(pattern), kind: engine.KindProperty, flags: flagValue, file: b.f, decl: p, nameNode: pattern, parent: class}
			class.members = append(class.members, m)
		}
	}
}

func (b *binder) bindInterface(n *sitter.Node, sc *scope, mods symbolFlags) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	sym := b.declare(sc, name, engine.KindInterface, flagType|mods, n)
	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfType(n, "object_type", "interface_body")
	}
	if body == nil {
		return
	}
	for _, m := range namedChildren(body) {
		name := m.ChildByFieldName("name")
		if name == nil {
			continue
		}
		switch m.Type() {
		case "property_signature":
			b.member(sym, name, engine.KindProperty, memberFlags(m), m)
		case "method_signature":
			b.member(sym, name, engine.KindMethod, memberFlags(m), m)
		}
	}
}

func (b *binder) bindEnum(n *sitter.Node, sc *scope, mods symbolFlags) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	flags := flagValue | flagType | mods
	if hasChild(n, "const") {
		flags |= flagConst
	}
	sym := b.declare(sc, name, engine.KindEnum, flags, n)
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, m := range namedChildren(body) {
		switch m.Type() {
		case "property_identifier", "string":
			b.member(sym, m, engine.KindEnumMember, 0, m)
		case "enum_assignment":
			if mn := m.ChildByFieldName("name"); mn != nil {
				b.member(sym, mn, engine.KindEnumMember, 0, m)
			}
			if v := m.ChildByFieldName("value"); v != nil {
				b.bind(v, sc, 0)
			}
		}
	}
}

func (b *binder) bindModule(n *sitter.Node, sc *scope, mods symbolFlags) {
	var sym *symbol
	if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
		for _, existing := range sc.symbols[b.f.text(name)] {
			if existing.kind == engine.KindModule {
				sym = existing
				b.fb.decls[key(name)] = existing
				break
			}
		}
		if sym == nil {
			sym = b.declare(sc, name, engine.KindModule, flagValue|flagType|mods, n)
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	ms := newScope(scopeModule, n, sc)
	if sym != nil {
		sym.bodies = append(sym.bodies, ms)
	}
	b.bindChildren(body, ms)
}

func (b *binder) bindImport(n *sitter.Node, sc *scope) {
	flags := flagValue | flagType
	if c := childOfType(n, "import_clause"); c != nil {
		for _, part := range namedChildren(c) {
			switch part.Type() {
			case "identifier":
				b.declare(sc, part, engine.KindAlias, flags, n)
			case "namespace_import":
				if id := childOfType(part, "identifier"); id != nil {
					b.declare(sc, id, engine.KindAlias, flags, n)
				}
			case "named_imports":
				for _, spec := range namedChildren(part) {
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("alias")
					if name == nil {
						name = spec.ChildByFieldName("name")
					}
					if name != nil && name.Type() == "identifier" {
						b.declare(sc, name, engine.KindAlias, flags, n)
					}
				}
			}
		}
	}
	if rc := childOfType(n, "import_require_clause"); rc != nil {
		if id := childOfType(rc, "identifier"); id != nil {
			b.declare(sc, id, engine.KindAlias, flags, n)
		}
	}
}
