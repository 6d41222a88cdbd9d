package purity

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/iepathos/debtmap/pkg/parser"
)

// langSyntax describes the node types one language uses for mutations,
// declarations, calls, and branching. One table per supported language,
// dispatched through the shared walker.
type langSyntax struct {
	assignTypes  map[string]string // node type -> field holding the target
	updateTypes  map[string]string // inc/dec/update -> field holding the target
	declTypes    map[string]string // declaration -> field holding the names
	nestedFn     map[string]struct{}
	callTypes    map[string]string // call node -> field holding the callee
	branchTypes  map[string]struct{}
	ioPrefixes   []string
	mutMethods   map[string]struct{}
	bangMutators bool // Ruby: methods ending in "!" mutate the receiver
	// assignDeclares: plain-name assignment introduces a local binding
	// (Python, Ruby).
	assignDeclares bool
}

var goSyntax = langSyntax{
	assignTypes: map[string]string{"assignment_statement": "left"},
	updateTypes: map[string]string{"inc_statement": "", "dec_statement": ""},
	declTypes: map[string]string{
		"short_var_declaration": "left",
		"var_spec":              "name",
		"const_spec":            "name",
		"range_clause":          "left",
	},
	nestedFn:    map[string]struct{}{"func_literal": {}},
	callTypes:   map[string]string{"call_expression": "function"},
	branchTypes: setOf("if_statement", "for_statement", "expression_switch_statement", "type_switch_statement", "select_statement"),
	ioPrefixes:  []string{"fmt.", "os.", "io.", "net.", "http.", "log.", "bufio.", "println", "print", "syscall."},
	mutMethods:  setOf("Store", "Add", "Swap", "Delete"),
}

var rustSyntax = langSyntax{
	assignTypes: map[string]string{
		"assignment_expression":    "left",
		"compound_assignment_expr": "left",
	},
	declTypes: map[string]string{
		"let_declaration": "pattern",
		"for_expression":  "pattern",
	},
	nestedFn:    map[string]struct{}{"closure_expression": {}, "function_item": {}},
	callTypes:   map[string]string{"call_expression": "function", "macro_invocation": "macro"},
	branchTypes: setOf("if_expression", "match_expression", "while_expression", "for_expression", "loop_expression"),
	ioPrefixes:  []string{"println", "print", "eprintln", "eprint", "write", "writeln", "std::fs", "std::io", "fs::", "io::", "File::"},
	mutMethods:  setOf("push", "push_str", "insert", "remove", "pop", "clear", "extend", "sort", "truncate", "append", "drain", "retain"),
}

var pythonSyntax = langSyntax{
	assignTypes: map[string]string{
		"assignment":           "left",
		"augmented_assignment": "left",
	},
	declTypes:      map[string]string{"for_statement": "left"},
	nestedFn:       map[string]struct{}{"function_definition": {}, "lambda": {}},
	callTypes:      map[string]string{"call": "function"},
	branchTypes:    setOf("if_statement", "for_statement", "while_statement", "try_statement", "match_statement"),
	ioPrefixes:     []string{"print", "open", "input", "os.", "sys.", "requests.", "logging.", "subprocess.", "shutil."},
	mutMethods:     setOf("append", "extend", "insert", "remove", "pop", "clear", "sort", "update", "add", "discard", "write", "setdefault"),
	assignDeclares: true,
}

var jsSyntax = langSyntax{
	assignTypes: map[string]string{
		"assignment_expression":           "left",
		"augmented_assignment_expression": "left",
	},
	updateTypes: map[string]string{"update_expression": "argument"},
	declTypes:   map[string]string{"variable_declarator": "name"},
	nestedFn: map[string]struct{}{
		"arrow_function": {}, "function_expression": {}, "function_declaration": {}, "method_definition": {},
	},
	callTypes:   map[string]string{"call_expression": "function"},
	branchTypes: setOf("if_statement", "for_statement", "for_in_statement", "while_statement", "switch_statement", "try_statement"),
	ioPrefixes:  []string{"console.", "fetch", "fs.", "process.", "document.", "window.", "localStorage", "sessionStorage"},
	mutMethods:  setOf("push", "pop", "shift", "unshift", "splice", "sort", "reverse", "set", "delete", "add", "clear"),
}

var javaSyntax = langSyntax{
	assignTypes: map[string]string{"assignment_expression": "left"},
	updateTypes: map[string]string{"update_expression": ""},
	declTypes:   map[string]string{"variable_declarator": "name"},
	nestedFn:    map[string]struct{}{"lambda_expression": {}},
	callTypes:   map[string]string{"method_invocation": "name"},
	branchTypes: setOf("if_statement", "for_statement", "enhanced_for_statement", "while_statement", "switch_expression", "try_statement"),
	ioPrefixes:  []string{"System.out", "System.err", "Files.", "Scanner", "println", "print"},
	mutMethods:  setOf("add", "remove", "put", "clear", "set", "push", "pop", "offer", "poll", "addAll"),
}

var rubySyntax = langSyntax{
	assignTypes: map[string]string{
		"assignment":          "left",
		"operator_assignment": "left",
	},
	declTypes:      map[string]string{},
	nestedFn:       map[string]struct{}{"lambda": {}, "method": {}, "singleton_method": {}},
	callTypes:      map[string]string{"call": "method"},
	branchTypes:    setOf("if", "unless", "while", "until", "case", "for"),
	ioPrefixes:     []string{"puts", "print", "gets", "File.", "IO.", "STDOUT", "STDERR", "Dir."},
	mutMethods:     setOf("push", "pop", "concat", "clear", "delete", "store", "shift", "unshift"),
	bangMutators:   true,
	assignDeclares: true,
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}

func syntaxFor(lang parser.Language) *langSyntax {
	switch lang {
	case parser.LangGo:
		return &goSyntax
	case parser.LangRust:
		return &rustSyntax
	case parser.LangPython:
		return &pythonSyntax
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return &jsSyntax
	case parser.LangJava:
		return &javaSyntax
	case parser.LangRuby:
		return &rubySyntax
	default:
		return nil
	}
}

// Classifier classifies per-function purity. Stateless and safe to share.
type Classifier struct{}

// NewClassifier creates a purity classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify analyzes one function body and returns its purity level with a
// confidence in [0.5, 1.0]. Mutation targets classify by the precedence
// Local, then Upvalue, then External; uncertainty falls toward External so
// an external mutation is never reported as local.
func (c *Classifier) Classify(fn parser.FunctionNode, res *parser.ParseResult) Analysis {
	syn := syntaxFor(res.Language)
	if syn == nil || fn.Body == nil {
		return Analysis{Level: Impure, Confidence: 0.5}
	}

	tracker := NewScopeTracker(fn)
	if fn.ReceiverName != "" {
		tracker.SetReceiverName(fn.ReceiverName)
	}

	w := &walker{
		syn:     syn,
		src:     res.Source,
		tracker: tracker,
	}
	w.walk(fn.Body, false)

	return w.analysis()
}

// walker accumulates mutation and I/O evidence over one function body.
type walker struct {
	syn     *langSyntax
	src     []byte
	tracker *ScopeTracker

	localMutations   int
	upvalueMutations int
	externalWrites   int
	externalReads    int
	branchCount      int
	derefSeen        bool
	ioSeen           bool
}

func (w *walker) walk(n *sitter.Node, inCallee bool) {
	if n == nil {
		return
	}
	nodeType := n.Type()

	if _, ok := w.syn.nestedFn[nodeType]; ok {
		w.tracker.Push(true)
		w.declareNestedParams(n)
		w.walkChildren(n, inCallee)
		w.tracker.Pop()
		return
	}

	if _, ok := w.syn.branchTypes[nodeType]; ok {
		w.branchCount++
	}

	switch nodeType {
	case "global_statement":
		for _, name := range identifiersIn(n, w.src) {
			w.tracker.ForceGlobal(name)
		}
	case "nonlocal_statement":
		for _, name := range identifiersIn(n, w.src) {
			w.tracker.ForceUpvalue(name)
		}
	}

	if field, ok := w.syn.declTypes[nodeType]; ok {
		w.handleDeclaration(n, field)
	}

	if field, ok := w.syn.assignTypes[nodeType]; ok {
		w.handleAssignment(n, field)
		// Children still need walking for reads, calls, and nested
		// mutations on the right-hand side.
	}

	if field, ok := w.syn.updateTypes[nodeType]; ok {
		target := n.ChildByFieldName(field)
		if field == "" || target == nil {
			target = n.NamedChild(0)
		}
		if target != nil {
			w.recordMutation(parser.GetNodeText(target, w.src))
		}
	}

	if field, ok := w.syn.callTypes[nodeType]; ok {
		w.handleCall(n, field)
	}

	if nodeType == "identifier" && !inCallee {
		w.recordRead(parser.GetNodeText(n, w.src))
	}

	w.walkChildren(n, inCallee)
}

func (w *walker) walkChildren(n *sitter.Node, inCallee bool) {
	calleeField := ""
	if f, ok := w.syn.callTypes[n.Type()]; ok {
		calleeField = f
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		childInCallee := inCallee
		if calleeField != "" && n.ChildByFieldName(calleeField) == child {
			childInCallee = true
		}
		w.walk(child, childInCallee)
	}
}

func (w *walker) declareNestedParams(fnNode *sitter.Node) {
	if params := fnNode.ChildByFieldName("parameters"); params != nil {
		for _, name := range identifiersIn(params, w.src) {
			w.tracker.Declare(name)
		}
	}
}

func (w *walker) handleDeclaration(n *sitter.Node, field string) {
	target := n.ChildByFieldName(field)
	if target == nil {
		return
	}
	for _, name := range identifiersIn(target, w.src) {
		w.tracker.Declare(name)
	}
}

func (w *walker) handleAssignment(n *sitter.Node, field string) {
	left := n.ChildByFieldName(field)
	if left == nil {
		return
	}

	targets := []*sitter.Node{left}
	if left.Type() == "expression_list" || left.Type() == "pattern_list" {
		targets = targets[:0]
		for i := 0; i < int(left.NamedChildCount()); i++ {
			targets = append(targets, left.NamedChild(i))
		}
	}

	for _, t := range targets {
		text := parser.GetNodeText(t, w.src)
		if w.syn.assignDeclares && t.Type() == "identifier" && n.Type() != "augmented_assignment" && n.Type() != "operator_assignment" {
			if !w.tracker.IsKnown(text) && !w.tracker.IsForced(text) {
				// First binding of a plain name is a declaration.
				w.tracker.Declare(text)
				continue
			}
		}
		w.recordMutation(text)
	}
}

func (w *walker) handleCall(n *sitter.Node, field string) {
	var calleeText string
	if fnNode := n.ChildByFieldName(field); fnNode != nil {
		calleeText = parser.GetNodeText(fnNode, w.src)
	}
	if calleeText == "" {
		return
	}

	if w.isIO(calleeText) {
		w.ioSeen = true
		return
	}

	// Mutating method on a receiver: classify the receiver's scope.
	if idx := strings.LastIndexByte(calleeText, '.'); idx >= 0 {
		method := calleeText[idx+1:]
		receiver := calleeText[:idx]
		if w.isMutatingMethod(method) {
			w.recordMutation(receiver)
		}
		return
	}

	// Java/Ruby carry the receiver in a separate field.
	if recv := n.ChildByFieldName("object"); recv != nil {
		if w.isMutatingMethod(calleeText) {
			w.recordMutation(parser.GetNodeText(recv, w.src))
		}
		return
	}
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		if w.isMutatingMethod(calleeText) {
			w.recordMutation(parser.GetNodeText(recv, w.src))
		}
	}
}

func (w *walker) isMutatingMethod(method string) bool {
	if w.syn.bangMutators && strings.HasSuffix(method, "!") {
		return true
	}
	_, ok := w.syn.mutMethods[method]
	return ok
}

func (w *walker) isIO(callee string) bool {
	for _, prefix := range w.syn.ioPrefixes {
		if strings.HasPrefix(callee, prefix) {
			return true
		}
	}
	return false
}

func (w *walker) recordMutation(target string) {
	scope, deref := w.tracker.TargetScope(target)
	if deref {
		w.derefSeen = true
	}
	switch scope {
	case ScopeLocal:
		w.localMutations++
	case ScopeUpvalue:
		w.upvalueMutations++
	default:
		w.externalWrites++
	}
}

func (w *walker) recordRead(name string) {
	if name == "" || name == "_" {
		return
	}
	if isLiteralWord(name) {
		return
	}
	if !w.tracker.IsKnown(name) {
		w.externalReads++
	}
}

// identifiersIn collects every identifier token in a subtree; used for
// declaration patterns (tuples, mut bindings, expression lists).
func identifiersIn(n *sitter.Node, src []byte) []string {
	var names []string
	parser.Walk(n, func(c *sitter.Node) bool {
		if c.Type() == "identifier" {
			names = append(names, parser.GetNodeText(c, src))
		}
		return true
	})
	return names
}

func isLiteralWord(name string) bool {
	switch name {
	case "true", "false", "nil", "null", "None", "True", "False", "undefined", "self", "this":
		return true
	}
	return false
}

// analysis folds the collected evidence into the final determination. First
// match wins: external writes or I/O, then external reads, then local or
// upvalue mutations, then strictly pure.
func (w *walker) analysis() Analysis {
	a := Analysis{
		LocalMutations:   w.localMutations,
		UpvalueMutations: w.upvalueMutations,
	}

	switch {
	case w.externalWrites > 0 || w.ioSeen:
		a.Level = Impure
	case w.externalReads > 0:
		a.Level = ReadOnly
	case w.localMutations > 0 || w.upvalueMutations > 0:
		a.Level = LocallyPure
	default:
		a.Level = StrictlyPure
	}

	conf := 1.0
	if w.branchCount >= 3 {
		conf *= 0.9
	}
	if w.derefSeen {
		conf *= 0.8
	}
	if w.upvalueMutations > 0 {
		conf *= 0.85
	}
	if w.localMutations > 0 {
		conf *= 0.95
	}
	if a.Level == ReadOnly {
		conf *= 0.8
	}
	if conf < 0.5 {
		conf = 0.5
	}
	if conf > 1.0 {
		conf = 1.0
	}
	a.Confidence = conf
	return a
}
