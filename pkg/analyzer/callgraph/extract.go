package callgraph

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/iepathos/debtmap/pkg/parser"
)

// rawCall is a call site found inside a function body, before cross-file
// resolution.
type rawCall struct {
	Callee   string
	Receiver string // receiver expression text, "" for plain calls
	Line     int
	// ParamRef is true when the callee is one of the enclosing function's
	// parameters, i.e. a function-pointer or closure invocation.
	ParamRef bool
	// Args holds bare identifier arguments, used to detect callback
	// registration.
	Args []string
}

// functionDecl is one declared function with its body-level call sites.
type functionDecl struct {
	ID       FunctionID
	TypeName string // receiver or owning type, "" for free functions
	Receiver parser.ReceiverKind
	IsTest   bool
	Calls    []rawCall
}

// typeImpl records a type's explicitly declared interfaces (implements
// clauses, trait impls, base classes).
type typeImpl struct {
	Type       string
	Interfaces []string
}

// fileExtraction is the per-file output of phase 1.
type fileExtraction struct {
	Path       string
	Functions  []functionDecl
	Interfaces []InterfaceDef
	TypeImpls  []typeImpl
}

// languageExtractor produces a fileExtraction from a parsed file. One
// implementation per supported language, dispatched through this interface.
type languageExtractor interface {
	extract(res *parser.ParseResult) fileExtraction
}

func extractorFor(lang parser.Language) languageExtractor {
	switch lang {
	case parser.LangGo:
		return goExtractor{}
	case parser.LangRust:
		return rustExtractor{}
	case parser.LangPython:
		return pythonExtractor{}
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return jsExtractor{}
	case parser.LangJava:
		return javaExtractor{}
	case parser.LangRuby:
		return rubyExtractor{}
	default:
		return nil
	}
}

// callSyntax describes how a language spells call expressions.
type callSyntax struct {
	callTypes []string
	// fnField is the field holding the called expression ("function"), or
	// "" when the call node itself carries name/receiver fields.
	fnField    string
	nameField  string // for languages with method/name fields on the call
	recvField  string
	argsField  string
	identTypes map[string]struct{}
}

var identOnly = map[string]struct{}{"identifier": {}}

// collectCalls walks a function body collecting call sites using the given
// syntax table. Nested function definitions are not descended into; their
// calls belong to the nested function.
func collectCalls(fn parser.FunctionNode, src []byte, syn callSyntax, fnDefTypes map[string]struct{}) []rawCall {
	if fn.Body == nil {
		return nil
	}

	params := make(map[string]struct{}, len(fn.Params))
	for _, p := range fn.Params {
		params[p.Name] = struct{}{}
	}

	callTypes := make(map[string]struct{}, len(syn.callTypes))
	for _, t := range syn.callTypes {
		callTypes[t] = struct{}{}
	}

	var calls []rawCall
	parser.Walk(fn.Body, func(n *sitter.Node) bool {
		if n != fn.Body {
			if _, nested := fnDefTypes[n.Type()]; nested {
				return false
			}
		}
		if _, ok := callTypes[n.Type()]; !ok {
			return true
		}

		c := rawCall{Line: int(n.StartPoint().Row) + 1}

		if syn.fnField != "" {
			fnNode := n.ChildByFieldName(syn.fnField)
			if fnNode == nil {
				return true
			}
			switch fnNode.Type() {
			case "identifier":
				c.Callee = parser.GetNodeText(fnNode, src)
				_, c.ParamRef = params[c.Callee]
			case "selector_expression", "field_expression", "member_expression", "attribute":
				c.Callee, c.Receiver = splitMemberAccess(fnNode, src)
			case "scoped_identifier":
				text := parser.GetNodeText(fnNode, src)
				if idx := strings.LastIndex(text, "::"); idx >= 0 {
					c.Receiver = text[:idx]
					c.Callee = text[idx+2:]
				} else {
					c.Callee = text
				}
			default:
				return true
			}
		} else {
			if name := n.ChildByFieldName(syn.nameField); name != nil {
				c.Callee = parser.GetNodeText(name, src)
			}
			if syn.recvField != "" {
				if recv := n.ChildByFieldName(syn.recvField); recv != nil {
					c.Receiver = parser.GetNodeText(recv, src)
				}
			}
		}
		if c.Callee == "" {
			return true
		}

		if syn.argsField != "" {
			if args := n.ChildByFieldName(syn.argsField); args != nil {
				for i := 0; i < int(args.NamedChildCount()); i++ {
					a := args.NamedChild(i)
					if _, ok := syn.identTypes[a.Type()]; ok {
						c.Args = append(c.Args, parser.GetNodeText(a, src))
					}
				}
			}
		}

		calls = append(calls, c)
		return true
	})
	return calls
}

// splitMemberAccess splits obj.method into (method, obj).
func splitMemberAccess(n *sitter.Node, src []byte) (callee, receiver string) {
	text := parser.GetNodeText(n, src)
	if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
		return text[idx+1:], text[:idx]
	}
	return text, ""
}

// isTestFunction applies per-language test heuristics over the function name
// and file path.
func isTestFunction(id FunctionID, lang parser.Language) bool {
	base := filepath.Base(id.File)
	name := id.Name
	if idx := strings.LastIndexAny(name, ".:#"); idx >= 0 {
		name = name[idx+1:]
	}

	switch lang {
	case parser.LangGo:
		if strings.HasSuffix(base, "_test.go") &&
			(strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Fuzz")) {
			return true
		}
	case parser.LangRust, parser.LangPython, parser.LangRuby:
		if strings.HasPrefix(name, "test_") {
			return true
		}
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX, parser.LangJava:
		if strings.HasPrefix(name, "test") || strings.HasSuffix(name, "Test") {
			return true
		}
	}

	dir := filepath.ToSlash(filepath.Dir(id.File))
	if strings.Contains(dir, "/tests/") || strings.HasSuffix(dir, "/tests") ||
		strings.Contains(dir, "/test/") || strings.HasSuffix(dir, "/test") ||
		strings.Contains(dir, "/__tests__") {
		return true
	}
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.go") {
		return true
	}
	return false
}

// constructorName reports whether a function name matches the constructor
// naming patterns tagged with the Constructor role.
func constructorName(qualified string) bool {
	name := qualified
	if idx := strings.LastIndexAny(name, ".:#"); idx >= 0 {
		name = name[idx+1:]
	}
	switch {
	case name == "new", name == "create":
		return true
	case strings.HasPrefix(name, "New"):
		return true
	case strings.HasPrefix(name, "build") || strings.HasPrefix(name, "Build"):
		return true
	case strings.HasPrefix(name, "with_") || strings.HasPrefix(name, "With"):
		return true
	}
	return false
}

func declsFromFunctions(res *parser.ParseResult, syn callSyntax, fnDefTypes map[string]struct{}) []functionDecl {
	var decls []functionDecl
	for _, fn := range parser.ExtractFunctions(res) {
		id := FunctionID{File: res.Path, Name: fn.QualifiedName, Line: fn.StartLine}
		decls = append(decls, functionDecl{
			ID:       id,
			TypeName: fn.ReceiverType,
			Receiver: fn.Receiver,
			IsTest:   isTestFunction(id, res.Language),
			Calls:    collectCalls(fn, res.Source, syn, fnDefTypes),
		})
	}
	return decls
}

// --- Go ---

type goExtractor struct{}

var goFnDefs = map[string]struct{}{"function_declaration": {}, "method_declaration": {}, "func_literal": {}}

func (goExtractor) extract(res *parser.ParseResult) fileExtraction {
	syn := callSyntax{
		callTypes:  []string{"call_expression"},
		fnField:    "function",
		argsField:  "arguments",
		identTypes: identOnly,
	}
	out := fileExtraction{Path: res.Path}
	out.Functions = declsFromFunctions(res, syn, goFnDefs)

	root := res.Tree.RootNode()
	for _, spec := range parser.FindNodesByType(root, "type_spec") {
		typ := spec.ChildByFieldName("type")
		if typ == nil || typ.Type() != "interface_type" {
			continue
		}
		def := InterfaceDef{File: res.Path}
		if name := spec.ChildByFieldName("name"); name != nil {
			def.Name = parser.GetNodeText(name, res.Source)
		}
		for _, spec := range parser.FindNodesByType(typ, "method_elem", "method_spec") {
			if mname := spec.ChildByFieldName("name"); mname != nil {
				def.Methods = append(def.Methods, parser.GetNodeText(mname, res.Source))
			}
		}
		if def.Name != "" {
			out.Interfaces = append(out.Interfaces, def)
		}
	}
	// Go satisfaction is structural; implementations are matched by method
	// set during the sequential phase, no explicit implements clause exists.
	return out
}

// --- Rust ---

type rustExtractor struct{}

var rustFnDefs = map[string]struct{}{"function_item": {}, "closure_expression": {}}

func (rustExtractor) extract(res *parser.ParseResult) fileExtraction {
	syn := callSyntax{
		callTypes:  []string{"call_expression"},
		fnField:    "function",
		argsField:  "arguments",
		identTypes: identOnly,
	}
	out := fileExtraction{Path: res.Path}
	out.Functions = declsFromFunctions(res, syn, rustFnDefs)

	root := res.Tree.RootNode()
	src := res.Source

	for _, trait := range parser.FindNodesByType(root, "trait_item") {
		def := InterfaceDef{File: res.Path, DefaultMethods: make(map[string]FunctionID)}
		if name := trait.ChildByFieldName("name"); name != nil {
			def.Name = parser.GetNodeText(name, src)
		}
		if body := trait.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				item := body.NamedChild(i)
				switch item.Type() {
				case "function_signature_item":
					if mname := item.ChildByFieldName("name"); mname != nil {
						def.Methods = append(def.Methods, parser.GetNodeText(mname, src))
					}
				case "function_item":
					// Default method with a body.
					if mname := item.ChildByFieldName("name"); mname != nil {
						m := parser.GetNodeText(mname, src)
						def.Methods = append(def.Methods, m)
						def.DefaultMethods[m] = FunctionID{
							File: res.Path,
							Name: def.Name + "::" + m,
							Line: int(item.StartPoint().Row) + 1,
						}
					}
				}
			}
		}
		if def.Name != "" {
			out.Interfaces = append(out.Interfaces, def)
		}
	}

	for _, impl := range parser.FindNodesByType(root, "impl_item") {
		traitNode := impl.ChildByFieldName("trait")
		typeNode := impl.ChildByFieldName("type")
		if traitNode == nil || typeNode == nil {
			continue
		}
		typeName := parser.GetNodeText(typeNode, src)
		if idx := strings.IndexByte(typeName, '<'); idx >= 0 {
			typeName = typeName[:idx]
		}
		traitName := parser.GetNodeText(traitNode, src)
		if idx := strings.IndexByte(traitName, '<'); idx >= 0 {
			traitName = traitName[:idx]
		}
		out.TypeImpls = append(out.TypeImpls, typeImpl{Type: typeName, Interfaces: []string{traitName}})
	}
	return out
}

// --- Python ---

type pythonExtractor struct{}

var pyFnDefs = map[string]struct{}{"function_definition": {}, "lambda": {}}

func (pythonExtractor) extract(res *parser.ParseResult) fileExtraction {
	syn := callSyntax{
		callTypes:  []string{"call"},
		fnField:    "function",
		argsField:  "arguments",
		identTypes: identOnly,
	}
	out := fileExtraction{Path: res.Path}
	out.Functions = declsFromFunctions(res, syn, pyFnDefs)

	root := res.Tree.RootNode()
	src := res.Source
	for _, cls := range parser.FindNodesByType(root, "class_definition") {
		name := cls.ChildByFieldName("name")
		if name == nil {
			continue
		}
		clsName := parser.GetNodeText(name, src)

		var bases []string
		if sup := cls.ChildByFieldName("superclasses"); sup != nil {
			for i := 0; i < int(sup.NamedChildCount()); i++ {
				b := sup.NamedChild(i)
				if b.Type() == "identifier" || b.Type() == "attribute" {
					text := parser.GetNodeText(b, src)
					if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
						text = text[idx+1:]
					}
					bases = append(bases, text)
				}
			}
		}

		// Protocol/ABC subclasses declare an interface; anything else with
		// bases is a candidate implementation of those bases.
		isProtocol := false
		for _, b := range bases {
			if b == "Protocol" || b == "ABC" {
				isProtocol = true
			}
		}
		if isProtocol {
			def := InterfaceDef{Name: clsName, File: res.Path, DefaultMethods: make(map[string]FunctionID)}
			if body := cls.ChildByFieldName("body"); body != nil {
				for _, fn := range parser.FindNodesByType(body, "function_definition") {
					if mname := fn.ChildByFieldName("name"); mname != nil {
						def.Methods = append(def.Methods, parser.GetNodeText(mname, src))
					}
				}
			}
			out.Interfaces = append(out.Interfaces, def)
		} else if len(bases) > 0 {
			out.TypeImpls = append(out.TypeImpls, typeImpl{Type: clsName, Interfaces: bases})
		}
	}
	return out
}

// --- JavaScript / TypeScript ---

type jsExtractor struct{}

var jsFnDefs = map[string]struct{}{
	"function_declaration": {}, "function_expression": {}, "arrow_function": {},
	"method_definition": {}, "generator_function_declaration": {},
}

func (jsExtractor) extract(res *parser.ParseResult) fileExtraction {
	syn := callSyntax{
		callTypes:  []string{"call_expression"},
		fnField:    "function",
		argsField:  "arguments",
		identTypes: identOnly,
	}
	out := fileExtraction{Path: res.Path}
	out.Functions = declsFromFunctions(res, syn, jsFnDefs)

	root := res.Tree.RootNode()
	src := res.Source

	for _, iface := range parser.FindNodesByType(root, "interface_declaration") {
		def := InterfaceDef{File: res.Path, DefaultMethods: make(map[string]FunctionID)}
		if name := iface.ChildByFieldName("name"); name != nil {
			def.Name = parser.GetNodeText(name, src)
		}
		for _, sig := range parser.FindNodesByType(iface, "method_signature", "property_signature") {
			if mname := sig.ChildByFieldName("name"); mname != nil {
				def.Methods = append(def.Methods, parser.GetNodeText(mname, src))
			}
		}
		if def.Name != "" {
			out.Interfaces = append(out.Interfaces, def)
		}
	}

	for _, cls := range parser.FindNodesByType(root, "class_declaration") {
		name := cls.ChildByFieldName("name")
		if name == nil {
			continue
		}
		var ifaces []string
		for _, clause := range parser.FindNodesByType(cls, "implements_clause") {
			for i := 0; i < int(clause.NamedChildCount()); i++ {
				c := clause.NamedChild(i)
				if c.Type() == "type_identifier" || c.Type() == "identifier" {
					ifaces = append(ifaces, parser.GetNodeText(c, src))
				}
			}
		}
		if len(ifaces) > 0 {
			out.TypeImpls = append(out.TypeImpls, typeImpl{
				Type:       parser.GetNodeText(name, src),
				Interfaces: ifaces,
			})
		}
	}
	return out
}

// --- Java ---

type javaExtractor struct{}

var javaFnDefs = map[string]struct{}{"method_declaration": {}, "constructor_declaration": {}, "lambda_expression": {}}

func (javaExtractor) extract(res *parser.ParseResult) fileExtraction {
	syn := callSyntax{
		callTypes:  []string{"method_invocation"},
		nameField:  "name",
		recvField:  "object",
		argsField:  "arguments",
		identTypes: identOnly,
	}
	out := fileExtraction{Path: res.Path}
	out.Functions = declsFromFunctions(res, syn, javaFnDefs)

	root := res.Tree.RootNode()
	src := res.Source

	for _, iface := range parser.FindNodesByType(root, "interface_declaration") {
		def := InterfaceDef{File: res.Path, DefaultMethods: make(map[string]FunctionID)}
		if name := iface.ChildByFieldName("name"); name != nil {
			def.Name = parser.GetNodeText(name, src)
		}
		for _, m := range parser.FindNodesByType(iface, "method_declaration") {
			mname := m.ChildByFieldName("name")
			if mname == nil {
				continue
			}
			method := parser.GetNodeText(mname, src)
			def.Methods = append(def.Methods, method)
			if m.ChildByFieldName("body") != nil {
				// Java default method.
				def.DefaultMethods[method] = FunctionID{
					File: res.Path,
					Name: def.Name + "." + method,
					Line: int(m.StartPoint().Row) + 1,
				}
			}
		}
		if def.Name != "" {
			out.Interfaces = append(out.Interfaces, def)
		}
	}

	for _, cls := range parser.FindNodesByType(root, "class_declaration") {
		name := cls.ChildByFieldName("name")
		if name == nil {
			continue
		}
		var ifaces []string
		if sup := cls.ChildByFieldName("interfaces"); sup != nil {
			for _, t := range parser.FindNodesByType(sup, "type_identifier") {
				ifaces = append(ifaces, parser.GetNodeText(t, src))
			}
		}
		if len(ifaces) > 0 {
			out.TypeImpls = append(out.TypeImpls, typeImpl{
				Type:       parser.GetNodeText(name, src),
				Interfaces: ifaces,
			})
		}
	}
	return out
}

// --- Ruby ---

type rubyExtractor struct{}

var rubyFnDefs = map[string]struct{}{"method": {}, "singleton_method": {}, "lambda": {}, "block": {}, "do_block": {}}

func (rubyExtractor) extract(res *parser.ParseResult) fileExtraction {
	syn := callSyntax{
		callTypes:  []string{"call"},
		nameField:  "method",
		recvField:  "receiver",
		argsField:  "arguments",
		identTypes: identOnly,
	}
	out := fileExtraction{Path: res.Path}
	out.Functions = declsFromFunctions(res, syn, rubyFnDefs)
	// Ruby has no interface construct; dispatch stays conservative via
	// method-name matching in the sequential phase.
	return out
}
