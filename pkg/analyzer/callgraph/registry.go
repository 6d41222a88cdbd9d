package callgraph

// InterfaceDef is a declared interface, trait, or protocol.
type InterfaceDef struct {
	Name    string
	File    string
	Methods []string
	// DefaultMethods maps method names to the FunctionID of a default
	// (non-overridden) implementation declared on the interface itself.
	DefaultMethods map[string]FunctionID
}

// Implementation is one concrete method satisfying an interface method.
type Implementation struct {
	Interface string
	Type      string
	Method    string
	Function  FunctionID
}

// UnresolvedCall is a dynamic call site awaiting dispatch resolution.
// Interface is empty when the receiver's declared type is unknown.
type UnresolvedCall struct {
	Caller    FunctionID
	Interface string
	Method    string
	Line      int
	// Narrowed is true when static type information pinned the receiver to
	// a single interface; false forces conservative all-implementations
	// resolution.
	Narrowed bool
}

// InterfaceRegistry accumulates interface declarations, implementations, and
// unresolved dispatch call sites across the builder phases. The resolver
// drains it; it is not retained after resolution.
type InterfaceRegistry struct {
	defs         map[string]*InterfaceDef
	impls        map[string][]Implementation    // interface name -> impls
	byMethod     map[string][]Implementation    // method name -> impls
	implementors map[string]map[string]struct{} // interface name -> type names
	unresolved   []UnresolvedCall
}

// NewInterfaceRegistry creates an empty registry.
func NewInterfaceRegistry() *InterfaceRegistry {
	return &InterfaceRegistry{
		defs:         make(map[string]*InterfaceDef),
		impls:        make(map[string][]Implementation),
		byMethod:     make(map[string][]Implementation),
		implementors: make(map[string]map[string]struct{}),
	}
}

// AddInterface records an interface declaration. Redeclaration merges
// method lists.
func (r *InterfaceRegistry) AddInterface(def InterfaceDef) {
	existing, ok := r.defs[def.Name]
	if !ok {
		if def.DefaultMethods == nil {
			def.DefaultMethods = make(map[string]FunctionID)
		}
		d := def
		r.defs[def.Name] = &d
		return
	}
	have := make(map[string]struct{}, len(existing.Methods))
	for _, m := range existing.Methods {
		have[m] = struct{}{}
	}
	for _, m := range def.Methods {
		if _, ok := have[m]; !ok {
			existing.Methods = append(existing.Methods, m)
		}
	}
	for m, fn := range def.DefaultMethods {
		existing.DefaultMethods[m] = fn
	}
}

// AddImplementation records a concrete implementation of an interface method.
func (r *InterfaceRegistry) AddImplementation(impl Implementation) {
	r.impls[impl.Interface] = append(r.impls[impl.Interface], impl)
	r.byMethod[impl.Method] = append(r.byMethod[impl.Method], impl)
	if impl.Type != "" {
		r.AddImplementor(impl.Interface, impl.Type)
	}
}

// AddImplementor records that a type declares itself an implementor of an
// interface, independent of which methods it overrides. A type can appear
// here with no method implementations at all, inheriting every default.
func (r *InterfaceRegistry) AddImplementor(iface, typeName string) {
	set, ok := r.implementors[iface]
	if !ok {
		set = make(map[string]struct{})
		r.implementors[iface] = set
	}
	set[typeName] = struct{}{}
}

// HasNonOverridingImplementor reports whether at least one recorded
// implementor of iface lacks its own override of method, meaning the
// interface's default body is still a live dispatch target. True when no
// implementors are recorded at all, since the default is then the only body.
func (r *InterfaceRegistry) HasNonOverridingImplementor(iface, method string) bool {
	types := r.implementors[iface]
	if len(types) == 0 {
		return true
	}
	overriding := make(map[string]struct{})
	for _, impl := range r.impls[iface] {
		if impl.Method == method {
			overriding[impl.Type] = struct{}{}
		}
	}
	for t := range types {
		if _, ok := overriding[t]; !ok {
			return true
		}
	}
	return false
}

// AddUnresolved records a dynamic call site for later resolution.
func (r *InterfaceRegistry) AddUnresolved(call UnresolvedCall) {
	r.unresolved = append(r.unresolved, call)
}

// Interface returns the declaration for name.
func (r *InterfaceRegistry) Interface(name string) (*InterfaceDef, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Implementations returns all recorded implementations of an interface.
func (r *InterfaceRegistry) Implementations(iface string) []Implementation {
	return r.impls[iface]
}

// ImplementationsOfMethod returns all implementations of a method name
// across every interface.
func (r *InterfaceRegistry) ImplementationsOfMethod(method string) []Implementation {
	return r.byMethod[method]
}

// Unresolved returns the pending dispatch call sites.
func (r *InterfaceRegistry) Unresolved() []UnresolvedCall {
	return r.unresolved
}

// Drain clears the unresolved call list after resolution.
func (r *InterfaceRegistry) Drain() {
	r.unresolved = nil
}

// InterfaceCount returns the number of declared interfaces.
func (r *InterfaceRegistry) InterfaceCount() int { return len(r.defs) }
