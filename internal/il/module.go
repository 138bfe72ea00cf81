package il

// Extern declares a module-level external symbol (an entry point into the
// C ABI runtime library, spec §6) by canonical name and signature.
type Extern struct {
	Name string
	Sig  Signature
}

// GlobalConst is a module-level typed literal or string-pool entry,
// addressable via addr-of-global / GlobalRef.
type GlobalConst struct {
	Name  string
	Type  Type
	Value Value
}

// FieldDecl is one payload field of a struct/class type declaration.
type FieldDecl struct {
	Name string
	Type Type
}

// TypeDecl is a struct/class payload layout: an ordered list of typed
// fields. Field order determines `gep` byte offsets once sizes are known.
type TypeDecl struct {
	ID     StructID
	Fields []FieldDecl
}

// ClassInfo is OOP metadata for a TypeDecl that additionally participates
// in virtual dispatch (spec §6): its vtable (base-first, append-only slot
// order), any interface itables it binds, and its mangled constructor
// name.
type ClassInfo struct {
	ID         StructID
	BaseClass  StructID // "" if none
	VTable     []string // function names, indexed by stable slot number
	Interfaces map[string][]string // interface id -> itable (parallel to
	// the interface's method declaration order)
	CtorMangled string // "<Namespace>.<Class>.__ctor"
}

// Module is a named, self-contained compilation unit: type declarations,
// externs, global constants, functions, and OOP metadata (spec §3).
type Module struct {
	Name string

	Types     []TypeDecl
	Externs   []Extern
	Globals   []GlobalConst
	Functions []*Function
	Classes   []ClassInfo

	typeIndex    map[StructID]int
	externIndex  map[string]int
	globalIndex  map[string]int
	funcIndex    map[string]int
	classIndex   map[StructID]int
}

// NewModule creates an empty module with the given name.
func NewModule(name string) *Module {
	return &Module{
		Name:        name,
		typeIndex:   make(map[StructID]int),
		externIndex: make(map[string]int),
		globalIndex: make(map[string]int),
		funcIndex:   make(map[string]int),
		classIndex:  make(map[StructID]int),
	}
}

func (m *Module) FuncByName(name string) (*Function, bool) {
	if i, ok := m.funcIndex[name]; ok {
		return m.Functions[i], true
	}
	return nil, false
}

func (m *Module) ExternByName(name string) (Extern, bool) {
	if i, ok := m.externIndex[name]; ok {
		return m.Externs[i], true
	}
	return Extern{}, false
}

func (m *Module) GlobalByName(name string) (GlobalConst, bool) {
	if i, ok := m.globalIndex[name]; ok {
		return m.Globals[i], true
	}
	return GlobalConst{}, false
}

func (m *Module) TypeByID(id StructID) (TypeDecl, bool) {
	if i, ok := m.typeIndex[id]; ok {
		return m.Types[i], true
	}
	return TypeDecl{}, false
}

func (m *Module) ClassByID(id StructID) (ClassInfo, bool) {
	if i, ok := m.classIndex[id]; ok {
		return m.Classes[i], true
	}
	return ClassInfo{}, false
}

// reindex rebuilds the lookup maps; called by the builder after mutation.
func (m *Module) reindex() {
	m.typeIndex = make(map[StructID]int, len(m.Types))
	for i, t := range m.Types {
		m.typeIndex[t.ID] = i
	}
	m.externIndex = make(map[string]int, len(m.Externs))
	for i, e := range m.Externs {
		m.externIndex[e.Name] = i
	}
	m.globalIndex = make(map[string]int, len(m.Globals))
	for i, g := range m.Globals {
		m.globalIndex[g.Name] = i
	}
	m.funcIndex = make(map[string]int, len(m.Functions))
	for i, fn := range m.Functions {
		m.funcIndex[fn.Name] = i
	}
	m.classIndex = make(map[StructID]int, len(m.Classes))
	for i, c := range m.Classes {
		m.classIndex[c.ID] = i
	}
}
