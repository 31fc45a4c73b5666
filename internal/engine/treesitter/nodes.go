//go:build cgo

package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// nodeKey identifies a node within one tree.
type nodeKey struct {
	start, end uint32
	typ        string
}

func key(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

func children(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// childOfType returns the first direct child of one of the given types.
func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

func hasChild(n *sitter.Node, typ string) bool {
	return childOfType(n, typ) != nil
}

// walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}

func contains(n *sitter.Node, b int) bool {
	return int(n.StartByte()) <= b && b < int(n.EndByte())
}

func isNameType(t string) bool {
	switch t {
	case "identifier", "property_identifier", "type_identifier",
		"shorthand_property_identifier", "shorthand_property_identifier_pattern",
		"private_property_identifier":
		return true
	}
	return false
}

// nodeAt returns the deepest node covering byte b. A name ending exactly at
// b is preferred over the token that follows it.
func nodeAt(root *sitter.Node, b int) *sitter.Node {
	n := root
	for {
		var next *sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if int(c.EndByte()) == b && isNameType(c.Type()) {
				next = c
				break
			}
			if contains(c, b) {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// nameAt returns the name node touching b, or nil.
func nameAt(root *sitter.Node, b int) *sitter.Node {
	n := nodeAt(root, b)
	if n != nil && isNameType(n.Type()) {
		return n
	}
	return nil
}

func firstLeaf(n *sitter.Node) *sitter.Node {
	for n.ChildCount() > 0 {
		n = n.Child(0)
	}
	return n
}

// leaves returns the tokens under n in source order, skipping the interior
// of strings, templates, regular expressions and comments.
func leaves(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	walk(n, func(c *sitter.Node) bool {
		switch c.Type() {
		case "string", "template_string", "regex", "comment":
			out = append(out, c)
			return false
		}
		if c.ChildCount() == 0 {
			out = append(out, c)
			return false
		}
		return true
	})
	return out
}

func inside(n *sitter.Node, types ...string) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
	}
	return false
}
