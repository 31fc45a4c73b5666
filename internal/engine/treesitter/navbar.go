//go:build cgo

package treesitter

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

func (s *Service) NavigationBarItems(ctx context.Context, fileName string) ([]engine.NavigationBarItem, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	items := navStatements(f, children(f.root), 0)
	if items == nil {
		items = []engine.NavigationBarItem{}
	}
	return items, nil
}

func navItem(f *sourceFile, name *sitter.Node, kind string, mods []string, decl *sitter.Node, indent int) engine.NavigationBarItem {
	return engine.NavigationBarItem{
		Text:          f.text(name),
		Kind:          kind,
		KindModifiers: strings.Join(mods, ","),
		Spans:         []engine.TextSpan{f.span(decl)},
		Indent:        indent,
	}
}

// navStatements builds the outline of a statement list. Containers carry
// their members and nested declarations as child items.
func navStatements(f *sourceFile, stmts []*sitter.Node, indent int) []engine.NavigationBarItem {
	var out []engine.NavigationBarItem
	for _, n := range stmts {
		out = append(out, navDeclaration(f, n, nil, indent)...)
	}
	return out
}

func navDeclaration(f *sourceFile, n *sitter.Node, mods []string, indent int) []engine.NavigationBarItem {
	switch n.Type() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			return navDeclaration(f, decl, append(mods, "export"), indent)
		}
	case "ambient_declaration":
		var out []engine.NavigationBarItem
		for _, c := range namedChildren(n) {
			out = append(out, navDeclaration(f, c, append(mods, "declare"), indent)...)
		}
		return out
	case "expression_statement":
		if c := n.NamedChild(0); c != nil && (c.Type() == "internal_module" || c.Type() == "module") {
			return navDeclaration(f, c, mods, indent)
		}
	case "function_declaration", "generator_function_declaration", "function_signature":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		item := navItem(f, name, engine.KindFunction, mods, n, indent)
		if body := n.ChildByFieldName("body"); body != nil {
			item.ChildItems = navNested(f, body, indent+1)
		}
		return []engine.NavigationBarItem{item}
	case "lexical_declaration", "variable_declaration":
		kind := engine.KindVariable
		if first := n.Child(0); first != nil {
			switch first.Type() {
			case "let":
				kind = engine.KindLet
			case "const":
				kind = engine.KindConst
			}
		}
		var out []engine.NavigationBarItem
		for _, d := range namedChildren(n) {
			name := d.ChildByFieldName("name")
			if d.Type() != "variable_declarator" || name == nil || name.Type() != "identifier" {
				continue
			}
			item := navItem(f, name, kind, mods, d, indent)
			if v := d.ChildByFieldName("value"); v != nil {
				switch v.Type() {
				case "arrow_function", "function", "function_expression":
					if body := v.ChildByFieldName("body"); body != nil && body.Type() == "statement_block" {
						item.ChildItems = navNested(f, body, indent+1)
					}
				case "class":
					item.ChildItems = navClassMembers(f, v, indent+1)
				}
			}
			out = append(out, item)
		}
		return out
	case "class_declaration", "abstract_class_declaration":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		if n.Type() == "abstract_class_declaration" {
			mods = append(mods, "abstract")
		}
		item := navItem(f, name, engine.KindClass, mods, n, indent)
		item.ChildItems = navClassMembers(f, n, indent+1)
		return []engine.NavigationBarItem{item}
	case "interface_declaration":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		item := navItem(f, name, engine.KindInterface, mods, n, indent)
		body := n.ChildByFieldName("body")
		if body == nil {
			body = childOfType(n, "object_type", "interface_body")
		}
		if body != nil {
			for _, m := range namedChildren(body) {
				mname := m.ChildByFieldName("name")
				if mname == nil {
					continue
				}
				switch m.Type() {
				case "property_signature":
					item.ChildItems = append(item.ChildItems, navItem(f, mname, engine.KindProperty, nil, m, indent+1))
				case "method_signature":
					item.ChildItems = append(item.ChildItems, navItem(f, mname, engine.KindMethod, nil, m, indent+1))
				}
			}
		}
		return []engine.NavigationBarItem{item}
	case "type_alias_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			return []engine.NavigationBarItem{navItem(f, name, engine.KindType, mods, n, indent)}
		}
	case "enum_declaration":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		item := navItem(f, name, engine.KindEnum, mods, n, indent)
		if body := n.ChildByFieldName("body"); body != nil {
			for _, m := range namedChildren(body) {
				switch m.Type() {
				case "property_identifier", "string":
					item.ChildItems = append(item.ChildItems, navItem(f, m, engine.KindEnumMember, nil, m, indent+1))
				case "enum_assignment":
					if mn := m.ChildByFieldName("name"); mn != nil {
						item.ChildItems = append(item.ChildItems, navItem(f, mn, engine.KindEnumMember, nil, m, indent+1))
					}
				}
			}
		}
		return []engine.NavigationBarItem{item}
	case "internal_module", "module":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		item := navItem(f, name, engine.KindModule, mods, n, indent)
		if body := n.ChildByFieldName("body"); body != nil {
			item.ChildItems = navStatements(f, children(body), indent+1)
		}
		return []engine.NavigationBarItem{item}
	}
	return nil
}

// navNested lists the function and class declarations inside a function
// body; local variables are left out.
func navNested(f *sourceFile, body *sitter.Node, indent int) []engine.NavigationBarItem {
	var out []engine.NavigationBarItem
	for _, c := range children(body) {
		switch c.Type() {
		case "function_declaration", "generator_function_declaration", "class_declaration", "abstract_class_declaration":
			out = append(out, navDeclaration(f, c, nil, indent)...)
		}
	}
	return out
}

func navClassMembers(f *sourceFile, class *sitter.Node, indent int) []engine.NavigationBarItem {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []engine.NavigationBarItem
	for _, m := range namedChildren(body) {
		name := m.ChildByFieldName("name")
		if name == nil {
			continue
		}
		var mods []string
		if am := childOfType(m, "accessibility_modifier"); am != nil {
			mods = append(mods, f.text(am))
		}
		if hasChild(m, "static") {
			mods = append(mods, "static")
		}
		switch m.Type() {
		case "method_definition", "method_signature", "abstract_method_signature":
			kind := engine.KindMethod
			switch {
			case f.text(name) == "constructor":
				kind = engine.KindConstructor
			case hasChild(m, "get"):
				kind = engine.KindGetter
			case hasChild(m, "set"):
				kind = engine.KindSetter
			}
			out = append(out, navItem(f, name, kind, mods, m, indent))
		case "public_field_definition", "field_definition":
			out = append(out, navItem(f, name, engine.KindProperty, mods, m, indent))
		}
	}
	return out
}
