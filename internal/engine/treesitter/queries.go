//go:build cgo

package treesitter

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsbridge/internal/engine"
)

var keywords = []string{
	"break", "case", "catch", "class", "const", "continue", "debugger", "default",
	"delete", "do", "else", "enum", "export", "extends", "false", "finally", "for",
	"function", "if", "import", "in", "instanceof", "interface", "let", "new",
	"null", "return", "super", "switch", "this", "throw", "true", "try", "type",
	"typeof", "var", "void", "while", "with", "yield",
}

func (s *Service) QuickInfoAtPosition(ctx context.Context, fileName string, position int) (*engine.QuickInfo, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	sym, n := s.symbolAt(f, f.offsets.toByte(position))
	if sym == nil {
		return nil, nil
	}
	return &engine.QuickInfo{
		Kind:          sym.kind,
		KindModifiers: kindModifiers(sym),
		TextSpan:      f.span(n),
		DisplayParts:  s.displayParts(sym),
		Documentation: documentation(sym),
	}, nil
}

// candidate is a completion entry and the symbol behind it.
type candidate struct {
	entry engine.CompletionEntry
	sym   *symbol
}

func (s *Service) CompletionsAtPosition(ctx context.Context, fileName string, position int) (*engine.CompletionInfo, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	cands, member, ok := s.completions(f, f.offsets.toByte(position))
	if !ok {
		return nil, nil
	}
	info := &engine.CompletionInfo{IsMemberCompletion: member, Entries: make([]engine.CompletionEntry, 0, len(cands))}
	for _, c := range cands {
		info.Entries = append(info.Entries, c.entry)
	}
	return info, nil
}

func (s *Service) CompletionEntryDetails(ctx context.Context, fileName string, position int, entryName string) (*engine.CompletionEntryDetails, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	cands, _, ok := s.completions(f, f.offsets.toByte(position))
	if !ok {
		return nil, nil
	}
	for _, c := range cands {
		if c.entry.Name != entryName {
			continue
		}
		if c.sym == nil {
			return &engine.CompletionEntryDetails{
				Name:         entryName,
				Kind:         c.entry.Kind,
				DisplayParts: []engine.SymbolDisplayPart{engine.Part(entryName, "keyword")},
			}, nil
		}
		return &engine.CompletionEntryDetails{
			Name:          entryName,
			Kind:          c.sym.kind,
			KindModifiers: kindModifiers(c.sym),
			DisplayParts:  s.displayParts(c.sym),
			Documentation: documentation(c.sym),
		}, nil
	}
	return nil, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// completions lists the names visible at b. ok is false where no
// completion applies: inside comments and strings and at declaration names.
func (s *Service) completions(f *sourceFile, b int) (cands []candidate, member, ok bool) {
	if b > 0 {
		switch n := nodeAt(f.root, b-1); n.Type() {
		case "comment":
			if b < int(n.EndByte()) || strings.HasPrefix(f.text(n), "//") {
				return nil, false, false
			}
		case "string_fragment", "string", "template_string", "regex_pattern":
			if b < int(n.EndByte()) {
				return nil, false, false
			}
		}
	}
	start := b
	for start > 0 && isWordByte(f.src[start-1]) {
		start--
	}
	if n := nameAt(f.root, b); n != nil && start < b {
		if sym := bindFile(f).decls[key(n)]; sym != nil && sym.parent == nil && key(sym.nameNode) == key(n) {
			return nil, false, false
		}
	}

	dot := start - 1
	for dot >= 0 && (f.src[dot] == ' ' || f.src[dot] == '\t') {
		dot--
	}
	if dot >= 0 && f.src[dot] == '.' && (dot == 0 || f.src[dot-1] != '.') {
		return s.memberCompletions(f, dot), true, true
	}
	return s.scopeCompletions(f, b), false, true
}

// memberCompletions lists members of the expression ending before the dot.
func (s *Service) memberCompletions(f *sourceFile, dot int) []candidate {
	end := dot
	for end > 0 && (f.src[end-1] == ' ' || f.src[end-1] == '\t' || f.src[end-1] == '\n' || f.src[end-1] == '\r') {
		end--
	}
	if end == 0 {
		return nil
	}
	n := nodeAt(f.root, end-1)
	for n != nil && !(isExpression(n.Type()) && int(n.EndByte()) == end) {
		n = n.Parent()
	}
	if n == nil {
		return []candidate{}
	}
	for p := n.Parent(); p != nil && isExpression(p.Type()) && int(p.EndByte()) == end; p = p.Parent() {
		n = p
	}
	t := s.typeOfExpr(f, n, 0)
	if t == nil {
		return []candidate{}
	}
	out := []candidate{}
	seen := map[string]bool{}
	for _, m := range s.members(t) {
		if seen[m.name] {
			continue
		}
		seen[m.name] = true
		out = append(out, candidate{entry: engine.CompletionEntry{Name: m.name, Kind: m.kind, KindModifiers: kindModifiers(m), SortText: "0"}, sym: m})
	}
	return out
}

func isExpression(t string) bool {
	switch t {
	case "identifier", "member_expression", "call_expression", "this", "super",
		"string", "template_string", "number", "array", "object", "parenthesized_expression",
		"new_expression", "subscript_expression", "regex", "true", "false", "as_expression",
		"non_null_expression":
		return true
	}
	return false
}

func (s *Service) scopeCompletions(f *sourceFile, b int) []candidate {
	fb := bindFile(f)
	seen := map[string]bool{}
	var locals, globals []candidate
	add := func(dst *[]candidate, sym *symbol, sortText string) {
		if seen[sym.name] {
			return
		}
		seen[sym.name] = true
		*dst = append(*dst, candidate{entry: engine.CompletionEntry{Name: sym.name, Kind: sym.kind, KindModifiers: kindModifiers(sym), SortText: sortText}, sym: sym})
	}
	for sc := fb.scopeAt(b); sc != nil; sc = sc.parent {
		for _, name := range sc.names {
			add(&locals, sc.symbols[name][0], "0")
		}
	}
	g := s.globalScope()
	for _, name := range g.names {
		add(&globals, g.symbols[name][0], "1")
	}
	sort.SliceStable(globals, func(i, j int) bool { return globals[i].entry.Name < globals[j].entry.Name })
	out := append(locals, globals...)
	for _, kw := range keywords {
		if !seen[kw] {
			out = append(out, candidate{entry: engine.CompletionEntry{Name: kw, Kind: engine.KindKeyword, SortText: "2"}})
		}
	}
	return out
}

func (s *Service) SignatureHelpItems(ctx context.Context, fileName string, position int) (*engine.SignatureHelpItems, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	b := f.offsets.toByte(position)
	args, callee := s.enclosingCall(f, b)
	if args == nil || callee == nil {
		return nil, nil
	}

	var sigs []*sitter.Node
	name := callee.name
	switch callee.kind {
	case engine.KindFunction, engine.KindLocalFunction:
		sigs = append(sigs, callee.overloads...)
		if len(sigs) == 0 || callee.decl.ChildByFieldName("body") == nil {
			sigs = append(sigs, callee.decl)
		}
	case engine.KindMethod:
		for _, m := range callee.parent.members {
			if m.name == callee.name && m.kind == engine.KindMethod {
				sigs = append(sigs, m.decl)
			}
		}
	case engine.KindClass:
		for _, m := range callee.members {
			if m.kind == engine.KindConstructor {
				sigs = append(sigs, m.decl)
			}
		}
		if len(sigs) == 0 {
			sigs = append(sigs, nil)
		}
	default:
		if v := initializer(callee); v != nil && (v.Type() == "arrow_function" || v.Type() == "function" || v.Type() == "function_expression") {
			sigs = append(sigs, v)
		}
	}
	if len(sigs) == 0 {
		return nil, nil
	}

	index, count := 0, 1
	for _, c := range children(args) {
		if c.Type() == "," {
			count++
			if int(c.StartByte()) < b {
				index++
			}
		}
	}
	spanEnd := int(args.EndByte())
	if last := args.Child(int(args.ChildCount()) - 1); last != nil && last.Type() == ")" && !last.IsMissing() {
		spanEnd = int(last.StartByte())
	}
	items := &engine.SignatureHelpItems{
		ApplicableSpan: f.spanOf(int(args.StartByte())+1, spanEnd),
		ArgumentIndex:  index,
		ArgumentCount:  count,
	}
	for _, sig := range sigs {
		items.Items = append(items.Items, s.signatureItem(callee, name, sig))
	}
	return items, nil
}

// enclosingCall finds the argument list around b and the symbol called.
func (s *Service) enclosingCall(f *sourceFile, b int) (*sitter.Node, *symbol) {
	for n := nodeAt(f.root, b); n != nil; n = n.Parent() {
		if n.Type() != "arguments" || b <= int(n.StartByte()) {
			continue
		}
		last := n.Child(int(n.ChildCount()) - 1)
		if b >= int(n.EndByte()) && last != nil && last.Type() == ")" && !last.IsMissing() {
			continue
		}
		call := n.Parent()
		if call == nil {
			return nil, nil
		}
		switch call.Type() {
		case "call_expression":
			return n, s.callee(f, call.ChildByFieldName("function"))
		case "new_expression":
			if c := call.ChildByFieldName("constructor"); c != nil {
				if t := s.typeOfExpr(f, c, 0); t != nil {
					return n, t.sym
				}
			}
			return n, nil
		}
	}
	return nil, nil
}

func (s *Service) signatureItem(callee *symbol, name string, sig *sitter.Node) engine.SignatureHelpItem {
	item := engine.SignatureHelpItem{
		PrefixDisplayParts:    []engine.SymbolDisplayPart{engine.Part(name, "text"), engine.Part("(", "punctuation")},
		SeparatorDisplayParts: []engine.SymbolDisplayPart{engine.Part(",", "punctuation"), engine.Part(" ", "space")},
		Documentation:         documentation(callee),
	}
	ret := name
	f := callee.file
	if sig != nil {
		if callee.kind != engine.KindClass {
			ret = s.returnType(f, sig)
		}
		for _, p := range parameterNodes(sig) {
			pname, text, optional, rest := s.parameterText(f, p)
			item.Parameters = append(item.Parameters, engine.SignatureHelpParameter{
				Name:         pname,
				DisplayParts: []engine.SymbolDisplayPart{engine.Part(text, "text")},
				IsOptional:   optional,
			})
			item.IsVariadic = item.IsVariadic || rest
		}
	}
	if callee.kind == engine.KindClass {
		item.PrefixDisplayParts = append([]engine.SymbolDisplayPart{engine.Part("new", "keyword"), engine.Part(" ", "space")}, item.PrefixDisplayParts...)
	}
	item.SuffixDisplayParts = []engine.SymbolDisplayPart{engine.Part(")", "punctuation"), engine.Part(":", "punctuation"), engine.Part(" ", "space"), engine.Part(ret, "text")}
	return item
}

// nameNodes lists the identifier-like nodes of f.
func nameNodes(f *sourceFile) []*sitter.Node {
	var out []*sitter.Node
	walk(f.root, func(n *sitter.Node) bool {
		if isNameType(n.Type()) {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

func writeAccess(n *sitter.Node, sym *symbol) bool {
	if sym.nameNode != nil && key(n) == key(sym.nameNode) {
		return true
	}
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "assignment_expression", "augmented_assignment_expression":
		if l := p.ChildByFieldName("left"); l != nil && key(l) == key(n) {
			return true
		}
	case "update_expression":
		return true
	}
	return false
}

// occurrencesIn lists the names in f bound to sym.
func (s *Service) occurrencesIn(f *sourceFile, sym *symbol) []engine.ReferenceEntry {
	var out []engine.ReferenceEntry
	for _, n := range nameNodes(f) {
		if f.text(n) != sym.name {
			continue
		}
		if s.resolveNode(f, n) != sym {
			continue
		}
		out = append(out, engine.ReferenceEntry{FileName: f.name, TextSpan: f.span(n), IsWriteAccess: writeAccess(n, sym)})
	}
	return out
}

func (s *Service) OccurrencesAtPosition(ctx context.Context, fileName string, position int) ([]engine.ReferenceEntry, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	sym, _ := s.symbolAt(f, f.offsets.toByte(position))
	if sym == nil {
		return nil, nil
	}
	return s.occurrencesIn(f, sym), nil
}

func containerOf(sym *symbol) (kind, name string) {
	if sym.parent != nil {
		return sym.parent.kind, sym.parent.name
	}
	return "", ""
}

func (s *Service) DefinitionAtPosition(ctx context.Context, fileName string, position int) ([]engine.DefinitionInfo, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	sym, _ := s.symbolAt(f, f.offsets.toByte(position))
	if sym == nil || sym.nameNode == nil {
		return nil, nil
	}
	var out []engine.DefinitionInfo
	for _, d := range s.declarations(sym) {
		ck, cn := containerOf(d)
		out = append(out, engine.DefinitionInfo{
			FileName:      d.file.name,
			TextSpan:      d.file.span(d.nameNode),
			Kind:          d.kind,
			Name:          d.name,
			ContainerKind: ck,
			ContainerName: cn,
		})
	}
	return out, nil
}

// global reports whether references to sym may appear in other files.
func global(sym *symbol) bool {
	if sym.parent != nil {
		return true
	}
	return sym.scope != nil && sym.scope.parent == nil && !bindFile(sym.file).module
}

func (s *Service) ReferencesAtPosition(ctx context.Context, fileName string, position int) ([]engine.ReferenceEntry, error) {
	f, err := s.file(ctx, fileName)
	if err != nil || f == nil {
		return nil, err
	}
	sym, _ := s.symbolAt(f, f.offsets.toByte(position))
	if sym == nil {
		return nil, nil
	}
	if !global(sym) {
		return s.occurrencesIn(sym.file, sym), nil
	}
	var out []engine.ReferenceEntry
	for _, pf := range s.programFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.Contains(string(pf.src), sym.name) {
			continue
		}
		out = append(out, s.occurrencesIn(pf, sym)...)
	}
	return out, nil
}
