package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ReceiverKind describes how a method binds its receiver or self parameter.
type ReceiverKind int

const (
	// ReceiverNone marks free functions.
	ReceiverNone ReceiverKind = iota
	// ReceiverByRefImmutable is a shared borrow (&self, value receiver read).
	ReceiverByRefImmutable
	// ReceiverByRefMutable is an exclusive borrow (&mut self, pointer receiver).
	ReceiverByRefMutable
	// ReceiverOwned consumes the receiver by value (self).
	ReceiverOwned
	// ReceiverOwnedMutable consumes a mutable receiver (mut self).
	ReceiverOwnedMutable
)

func (k ReceiverKind) String() string {
	switch k {
	case ReceiverByRefImmutable:
		return "by_ref"
	case ReceiverByRefMutable:
		return "by_ref_mut"
	case ReceiverOwned:
		return "owned"
	case ReceiverOwnedMutable:
		return "owned_mut"
	default:
		return "none"
	}
}

// Param is a declared function parameter.
type Param struct {
	Name    string
	Mutable bool
	ByRef   bool
}

// FunctionNode is a function or method definition found in a parse tree.
type FunctionNode struct {
	Name          string
	QualifiedName string
	Node          *sitter.Node
	Body          *sitter.Node
	Params        []Param
	Receiver      ReceiverKind
	ReceiverType  string
	ReceiverName  string
	StartLine     int
	EndLine       int
}

// ExtractFunctions walks the parsed tree and returns every function and
// method definition, with receiver and parameter binding information filled
// in per language.
func ExtractFunctions(res *ParseResult) []FunctionNode {
	if res == nil || res.Tree == nil {
		return nil
	}
	root := res.Tree.RootNode()
	switch res.Language {
	case LangGo:
		return extractGoFunctions(root, res.Source)
	case LangRust:
		return extractRustFunctions(root, res.Source)
	case LangPython:
		return extractPythonFunctions(root, res.Source)
	case LangTypeScript, LangJavaScript, LangTSX:
		return extractJSFunctions(root, res.Source)
	case LangJava:
		return extractJavaFunctions(root, res.Source)
	case LangRuby:
		return extractRubyFunctions(root, res.Source)
	default:
		return nil
	}
}

func lineSpan(n *sitter.Node) (int, int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1
}

func extractGoFunctions(root *sitter.Node, src []byte) []FunctionNode {
	var fns []FunctionNode
	for _, n := range FindNodesByType(root, "function_declaration", "method_declaration") {
		fn := FunctionNode{Node: n}
		fn.StartLine, fn.EndLine = lineSpan(n)
		if name := n.ChildByFieldName("name"); name != nil {
			fn.Name = GetNodeText(name, src)
		}
		fn.Body = n.ChildByFieldName("body")
		fn.QualifiedName = fn.Name

		if n.Type() == "method_declaration" {
			if recv := n.ChildByFieldName("receiver"); recv != nil {
				fn.Receiver, fn.ReceiverType, fn.ReceiverName = goReceiver(recv, src)
				if fn.ReceiverType != "" {
					fn.QualifiedName = fn.ReceiverType + "." + fn.Name
				}
			}
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			fn.Params = goParams(params, src)
		}
		if fn.Name != "" {
			fns = append(fns, fn)
		}
	}
	return fns
}

// goReceiver reads the receiver declaration. Pointer receivers mutate the
// caller's value directly. Value receivers copy the struct header, but any
// reference-typed fields (slices, maps, pointers) in the copy still alias
// caller-owned memory, so they are kept as shared borrows rather than owned.
func goReceiver(recv *sitter.Node, src []byte) (ReceiverKind, string, string) {
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		decl := recv.NamedChild(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		typ := decl.ChildByFieldName("type")
		if typ == nil {
			continue
		}
		var recvName string
		if name := decl.ChildByFieldName("name"); name != nil {
			recvName = GetNodeText(name, src)
		}
		text := GetNodeText(typ, src)
		base := strings.TrimPrefix(text, "*")
		if idx := strings.IndexByte(base, '['); idx >= 0 {
			base = base[:idx]
		}
		if strings.HasPrefix(text, "*") {
			return ReceiverByRefMutable, base, recvName
		}
		return ReceiverByRefImmutable, base, recvName
	}
	return ReceiverNone, "", ""
}

func goParams(params *sitter.Node, src []byte) []Param {
	var out []Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		decl := params.NamedChild(i)
		variadic := decl.Type() == "variadic_parameter_declaration"
		if decl.Type() != "parameter_declaration" && !variadic {
			continue
		}
		byRef := variadic
		if typ := decl.ChildByFieldName("type"); typ != nil && goSharedBacking(GetNodeText(typ, src)) {
			byRef = true
		}
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			c := decl.NamedChild(j)
			if c.Type() == "identifier" {
				out = append(out, Param{Name: GetNodeText(c, src), ByRef: byRef, Mutable: byRef})
			}
		}
	}
	return out
}

// goSharedBacking reports whether a parameter of this type shares backing
// storage with the caller: element and field writes through pointers,
// slices, and maps land in caller-owned memory even though the header is
// passed by value. Fixed-size arrays are full copies and stay local.
func goSharedBacking(typeText string) bool {
	return strings.HasPrefix(typeText, "*") ||
		strings.HasPrefix(typeText, "[]") ||
		strings.HasPrefix(typeText, "map[") ||
		strings.HasPrefix(typeText, "...")
}

func extractRustFunctions(root *sitter.Node, src []byte) []FunctionNode {
	var fns []FunctionNode
	for _, n := range FindNodesByType(root, "function_item") {
		fn := FunctionNode{Node: n}
		fn.StartLine, fn.EndLine = lineSpan(n)
		if name := n.ChildByFieldName("name"); name != nil {
			fn.Name = GetNodeText(name, src)
		}
		fn.Body = n.ChildByFieldName("body")
		fn.QualifiedName = fn.Name

		if params := n.ChildByFieldName("parameters"); params != nil {
			fn.Receiver = rustSelfKind(params, src)
			fn.Params = rustParams(params, src)
		}
		if implType := enclosingImplType(n, src); implType != "" {
			fn.ReceiverType = implType
			fn.QualifiedName = implType + "::" + fn.Name
		}
		if fn.Name != "" {
			fns = append(fns, fn)
		}
	}
	return fns
}

// rustSelfKind distinguishes &self, &mut self, self and mut self.
func rustSelfKind(params *sitter.Node, src []byte) ReceiverKind {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		if c.Type() != "self_parameter" {
			continue
		}
		text := GetNodeText(c, src)
		switch {
		case strings.Contains(text, "&mut"):
			return ReceiverByRefMutable
		case strings.Contains(text, "&"):
			return ReceiverByRefImmutable
		case strings.HasPrefix(strings.TrimSpace(text), "mut"):
			return ReceiverOwnedMutable
		default:
			return ReceiverOwned
		}
	}
	return ReceiverNone
}

func rustParams(params *sitter.Node, src []byte) []Param {
	var out []Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		if c.Type() != "parameter" {
			continue
		}
		pat := c.ChildByFieldName("pattern")
		typ := c.ChildByFieldName("type")
		if pat == nil {
			continue
		}
		p := Param{}
		patText := GetNodeText(pat, src)
		if strings.HasPrefix(patText, "mut ") {
			p.Mutable = true
			patText = strings.TrimPrefix(patText, "mut ")
		}
		p.Name = patText
		if typ != nil {
			typText := GetNodeText(typ, src)
			p.ByRef = strings.HasPrefix(typText, "&")
			if strings.HasPrefix(typText, "&mut") {
				p.Mutable = true
			}
		}
		out = append(out, p)
	}
	return out
}

func enclosingImplType(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "impl_item":
			if typ := p.ChildByFieldName("type"); typ != nil {
				text := GetNodeText(typ, src)
				if idx := strings.IndexByte(text, '<'); idx >= 0 {
					text = text[:idx]
				}
				return text
			}
		case "trait_item":
			// Default methods belong to the trait itself.
			if name := p.ChildByFieldName("name"); name != nil {
				return GetNodeText(name, src)
			}
		}
	}
	return ""
}

func extractPythonFunctions(root *sitter.Node, src []byte) []FunctionNode {
	var fns []FunctionNode
	for _, n := range FindNodesByType(root, "function_definition") {
		fn := FunctionNode{Node: n}
		fn.StartLine, fn.EndLine = lineSpan(n)
		if name := n.ChildByFieldName("name"); name != nil {
			fn.Name = GetNodeText(name, src)
		}
		fn.Body = n.ChildByFieldName("body")
		fn.QualifiedName = fn.Name

		if cls := enclosingClassName(n, src); cls != "" {
			fn.ReceiverType = cls
			fn.QualifiedName = cls + "." + fn.Name
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				c := params.NamedChild(i)
				name := paramName(c, src)
				if name == "" {
					continue
				}
				if i == 0 && fn.ReceiverType != "" && (name == "self" || name == "cls") {
					// Python objects are reference-like; self mutation is
					// visible to the caller.
					fn.Receiver = ReceiverByRefMutable
					continue
				}
				out := Param{Name: name, ByRef: true, Mutable: true}
				fn.Params = append(fn.Params, out)
			}
		}
		if fn.Name != "" {
			fns = append(fns, fn)
		}
	}
	return fns
}

func paramName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "identifier":
		return GetNodeText(n, src)
	case "typed_parameter", "default_parameter", "typed_default_parameter":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "identifier" {
				return GetNodeText(c, src)
			}
		}
	}
	return ""
}

func enclosingClassName(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_definition", "class_declaration", "class", "class_body", "impl_item":
			if name := p.ChildByFieldName("name"); name != nil {
				return GetNodeText(name, src)
			}
		}
	}
	return ""
}

func extractJSFunctions(root *sitter.Node, src []byte) []FunctionNode {
	var fns []FunctionNode
	types := []string{"function_declaration", "method_definition", "arrow_function", "function_expression", "generator_function_declaration"}
	for _, n := range FindNodesByType(root, types...) {
		fn := FunctionNode{Node: n}
		fn.StartLine, fn.EndLine = lineSpan(n)
		fn.Body = n.ChildByFieldName("body")

		switch n.Type() {
		case "method_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				fn.Name = GetNodeText(name, src)
			}
			fn.Receiver = ReceiverByRefMutable
			if cls := enclosingClassName(n, src); cls != "" {
				fn.ReceiverType = cls
				fn.QualifiedName = cls + "." + fn.Name
			}
		case "arrow_function", "function_expression":
			fn.Name = assignedName(n, src)
		default:
			if name := n.ChildByFieldName("name"); name != nil {
				fn.Name = GetNodeText(name, src)
			}
		}
		if fn.QualifiedName == "" {
			fn.QualifiedName = fn.Name
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				if name := paramName(params.NamedChild(i), src); name != "" {
					fn.Params = append(fn.Params, Param{Name: name, ByRef: true, Mutable: true})
				}
			}
		}
		if fn.Name != "" {
			fns = append(fns, fn)
		}
	}
	return fns
}

// assignedName recovers a name for anonymous functions bound to variables
// or object properties.
func assignedName(n *sitter.Node, src []byte) string {
	p := n.Parent()
	if p == nil {
		return ""
	}
	switch p.Type() {
	case "variable_declarator":
		if name := p.ChildByFieldName("name"); name != nil {
			return GetNodeText(name, src)
		}
	case "pair":
		if key := p.ChildByFieldName("key"); key != nil {
			return GetNodeText(key, src)
		}
	case "assignment_expression":
		if left := p.ChildByFieldName("left"); left != nil {
			text := GetNodeText(left, src)
			if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
				return text[idx+1:]
			}
			return text
		}
	}
	return ""
}

func extractJavaFunctions(root *sitter.Node, src []byte) []FunctionNode {
	var fns []FunctionNode
	for _, n := range FindNodesByType(root, "method_declaration", "constructor_declaration") {
		fn := FunctionNode{Node: n}
		fn.StartLine, fn.EndLine = lineSpan(n)
		if name := n.ChildByFieldName("name"); name != nil {
			fn.Name = GetNodeText(name, src)
		}
		fn.Body = n.ChildByFieldName("body")
		fn.Receiver = ReceiverByRefMutable
		if cls := enclosingClassName(n, src); cls != "" {
			fn.ReceiverType = cls
			fn.QualifiedName = cls + "." + fn.Name
		} else {
			fn.QualifiedName = fn.Name
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				c := params.NamedChild(i)
				if c.Type() != "formal_parameter" {
					continue
				}
				if name := c.ChildByFieldName("name"); name != nil {
					fn.Params = append(fn.Params, Param{Name: GetNodeText(name, src), ByRef: true, Mutable: true})
				}
			}
		}
		if fn.Name != "" {
			fns = append(fns, fn)
		}
	}
	return fns
}

func extractRubyFunctions(root *sitter.Node, src []byte) []FunctionNode {
	var fns []FunctionNode
	for _, n := range FindNodesByType(root, "method", "singleton_method") {
		fn := FunctionNode{Node: n}
		fn.StartLine, fn.EndLine = lineSpan(n)
		if name := n.ChildByFieldName("name"); name != nil {
			fn.Name = GetNodeText(name, src)
		}
		fn.Body = n.ChildByFieldName("body")
		fn.Receiver = ReceiverByRefMutable
		if cls := enclosingClassName(n, src); cls != "" {
			fn.ReceiverType = cls
			fn.QualifiedName = cls + "#" + fn.Name
		} else {
			fn.QualifiedName = fn.Name
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				if name := paramName(params.NamedChild(i), src); name != "" {
					fn.Params = append(fn.Params, Param{Name: name, ByRef: true, Mutable: true})
				}
			}
		}
		if fn.Name != "" {
			fns = append(fns, fn)
		}
	}
	return fns
}
