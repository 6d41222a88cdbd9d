// Package purity classifies side-effect behavior per function: which scope
// each mutation lands in, and the resulting purity level with a confidence.
package purity

import (
	"strings"

	"github.com/iepathos/debtmap/pkg/parser"
)

// MutationScope classifies where a mutation's target lives relative to the
// function being analyzed.
type MutationScope int

const (
	// ScopeLocal is a locally declared variable, an owned parameter, or a
	// field reached through an owned receiver (the consuming builder
	// pattern).
	ScopeLocal MutationScope = iota
	// ScopeUpvalue is a variable captured from an enclosing function scope.
	ScopeUpvalue
	// ScopeExternal is anything visible outside the call: fields through a
	// mutable-reference receiver, globals, or pointer-dereference targets.
	ScopeExternal
)

func (s MutationScope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeUpvalue:
		return "upvalue"
	default:
		return "external"
	}
}

type paramInfo struct {
	mutable bool
	byRef   bool
}

// ScopeTracker tracks variable provenance within one function body. It is
// transient; one tracker per classified function. Nested closures push a
// boundary so captured names classify as upvalues, not locals.
type ScopeTracker struct {
	// scopes is a stack of declaration sets; boundaries[i] is true where
	// scope i starts a nested function.
	scopes     []map[string]struct{}
	boundaries []bool

	params       map[string]paramInfo
	receiverKind parser.ReceiverKind
	receiverName string

	// Names forced to a scope by language statements (Python global /
	// nonlocal).
	forcedGlobal  map[string]struct{}
	forcedUpvalue map[string]struct{}
}

// NewScopeTracker seeds a tracker with the function's parameters and
// receiver binding.
func NewScopeTracker(fn parser.FunctionNode) *ScopeTracker {
	t := &ScopeTracker{
		params:        make(map[string]paramInfo, len(fn.Params)),
		receiverKind:  fn.Receiver,
		forcedGlobal:  make(map[string]struct{}),
		forcedUpvalue: make(map[string]struct{}),
	}
	t.Push(false)
	for _, p := range fn.Params {
		t.params[p.Name] = paramInfo{mutable: p.Mutable, byRef: p.ByRef}
	}
	return t
}

// SetReceiverName records the identifier bound to the receiver (Go receiver
// names; self/this are always recognized).
func (t *ScopeTracker) SetReceiverName(name string) { t.receiverName = name }

// Push opens a new lexical scope. boundary marks the start of a nested
// function.
func (t *ScopeTracker) Push(boundary bool) {
	t.scopes = append(t.scopes, make(map[string]struct{}))
	t.boundaries = append(t.boundaries, boundary)
}

// Pop closes the innermost scope.
func (t *ScopeTracker) Pop() {
	t.scopes = t.scopes[:len(t.scopes)-1]
	t.boundaries = t.boundaries[:len(t.boundaries)-1]
}

// Declare registers a local in the innermost scope.
func (t *ScopeTracker) Declare(name string) {
	if name == "" || name == "_" {
		return
	}
	t.scopes[len(t.scopes)-1][name] = struct{}{}
}

// ForceGlobal marks a name as referring to module/global scope.
func (t *ScopeTracker) ForceGlobal(name string) { t.forcedGlobal[name] = struct{}{} }

// ForceUpvalue marks a name as explicitly captured (Python nonlocal).
func (t *ScopeTracker) ForceUpvalue(name string) { t.forcedUpvalue[name] = struct{}{} }

// resolve finds a declared name, reporting whether the lookup crossed a
// closure boundary.
func (t *ScopeTracker) resolve(name string) (found, crossedBoundary bool) {
	crossed := false
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if _, ok := t.scopes[i][name]; ok {
			return true, crossed
		}
		if t.boundaries[i] {
			crossed = true
		}
	}
	return false, crossed
}

// isReceiver reports whether name denotes the function's receiver.
func (t *ScopeTracker) isReceiver(name string) bool {
	if t.receiverKind == parser.ReceiverNone {
		return false
	}
	return name == "self" || name == "this" || (t.receiverName != "" && name == t.receiverName)
}

// TargetScope classifies the mutation target expression text under the
// zero-false-positive rule: when the target cannot be proven local, it is
// external. Pointer dereference is always external; no alias resolution is
// attempted.
func (t *ScopeTracker) TargetScope(target string) (MutationScope, bool) {
	target = strings.TrimSpace(target)
	deref := strings.HasPrefix(target, "*")
	if deref {
		return ScopeExternal, true
	}

	base, isAccess := splitBase(target)

	if _, ok := t.forcedGlobal[base]; ok {
		return ScopeExternal, false
	}
	if _, ok := t.forcedUpvalue[base]; ok {
		return ScopeUpvalue, false
	}

	if t.isReceiver(base) {
		if !isAccess {
			// Rebinding the receiver variable itself stays local.
			return ScopeLocal, false
		}
		switch t.receiverKind {
		case parser.ReceiverOwned, parser.ReceiverOwnedMutable:
			return ScopeLocal, false
		default:
			return ScopeExternal, false
		}
	}

	if found, crossed := t.resolve(base); found {
		if crossed {
			return ScopeUpvalue, false
		}
		return ScopeLocal, false
	}

	if p, ok := t.params[base]; ok {
		if !isAccess {
			return ScopeLocal, false
		}
		if p.byRef {
			return ScopeExternal, false
		}
		return ScopeLocal, false
	}

	return ScopeExternal, false
}

// IsForced reports whether name was pinned to global or enclosing scope by
// an explicit statement.
func (t *ScopeTracker) IsForced(name string) bool {
	if _, ok := t.forcedGlobal[name]; ok {
		return true
	}
	_, ok := t.forcedUpvalue[name]
	return ok
}

// IsKnown reports whether base resolves to a local, parameter, or receiver.
func (t *ScopeTracker) IsKnown(name string) bool {
	if t.isReceiver(name) {
		return true
	}
	if found, _ := t.resolve(name); found {
		return true
	}
	_, ok := t.params[name]
	return ok
}

// splitBase returns the leading identifier of a target expression and
// whether the target reaches through a field or index access.
func splitBase(target string) (base string, isAccess bool) {
	for i := 0; i < len(target); i++ {
		switch target[i] {
		case '.', '[':
			return target[:i], true
		case ' ', '(', ')':
			return target[:i], false
		}
	}
	return target, false
}
