package jack

import "github.com/nandforge/n2t/pkg/utils"

// ----------------------------------------------------------------------------
// Variable (symbol)

// VarKind is the closed set of kinds a Variable can be declared with. Kept as an
// enumeration rather than the reference implementation's bare strings ("STATIC",
// "FIELD", ...) per the usual preference for closed types over stringly-typed state.
type VarKind string

const (
	KindStatic VarKind = "static"
	KindField  VarKind = "field"
	KindArg    VarKind = "arg"
	KindVar    VarKind = "var"
)

// Segment is the VM memory segment a kind maps onto for load/store code generation.
func (k VarKind) Segment() string {
	switch k {
	case KindVar:
		return "local"
	case KindField:
		return "this"
	case KindStatic:
		return "static"
	case KindArg:
		return "argument"
	default:
		return ""
	}
}

// Variable is a symbol entry: immutable once defined.
type Variable struct {
	Name  string
	Type  string // primitive ("int", "char", "boolean") or a class name
	Kind  VarKind
	Index uint16
}

// ----------------------------------------------------------------------------
// SymbolTable

// SymbolTable is the two-level scope described in §4.2: a classScope holding Static
// and Field kinds that persists for the whole class, and a subroutineScope holding
// Arg and Var kinds that's cleared on every startSubroutine call. Each is backed by
// an OrderedMap so that any iteration over a scope is deterministic; VarCount reads
// the per-kind counters and does not iterate.
type SymbolTable struct {
	classScope      utils.OrderedMap[string, Variable]
	subroutineScope utils.OrderedMap[string, Variable]

	counters map[VarKind]uint16
}

// NewSymbolTable returns an empty, ready-to-use SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		classScope:      utils.NewOrderedMap[string, Variable](),
		subroutineScope: utils.NewOrderedMap[string, Variable](),
		counters:        map[VarKind]uint16{},
	}
}

// StartSubroutine clears the subroutine scope and resets the Arg/Var counters to 0,
// per spec — it must be called once at the entry of every subroutine compiled.
func (st *SymbolTable) StartSubroutine() {
	st.subroutineScope = utils.NewOrderedMap[string, Variable]()
	st.counters[KindArg] = 0
	st.counters[KindVar] = 0
}

// Define allocates the next index for kind and inserts name into the scope that kind
// belongs to. As in the reference implementation, redefining a name already present
// in the same scope is not diagnosed: the new Variable silently replaces the old one
// at a fresh index, matching the Duplicate-variable-definition behavior called out
// as intentional rather than a bug to fix.
func (st *SymbolTable) Define(name, varType string, kind VarKind) Variable {
	index := st.counters[kind]
	st.counters[kind]++

	v := Variable{Name: name, Type: varType, Kind: kind, Index: index}
	switch kind {
	case KindStatic, KindField:
		st.classScope.Set(name, v)
	case KindArg, KindVar:
		st.subroutineScope.Set(name, v)
	}
	return v
}

// Lookup resolves name, preferring subroutine scope over class scope.
func (st *SymbolTable) Lookup(name string) (Variable, bool) {
	if v, ok := st.subroutineScope.Get(name); ok {
		return v, true
	}
	if v, ok := st.classScope.Get(name); ok {
		return v, true
	}
	return Variable{}, false
}

// VarCount reports how many variables of kind have been defined in its owning scope.
func (st *SymbolTable) VarCount(kind VarKind) uint16 { return st.counters[kind] }
