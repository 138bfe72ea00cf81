// Package rtval is the runtime value vocabulary shared by internal/vm,
// internal/rtffi, and internal/hostrt: a tagged union representing any
// live IL value during execution (spec §4.7's "register file ... for
// the function's live values"), plus the two kinds of address a Ptr can
// denote — a frame-local alloca cell, or a heap object's refcounted
// header (spec §6).
//
// Splitting this vocabulary into its own package (rather than folding it
// into internal/vm) keeps internal/rtffi and internal/hostrt from having
// to import the VM just to talk about values, mirroring the teacher's
// own layering of `cmd/internal/obj` (machine-independent object
// encoding) below both the assembler and the linker that share it.
package rtval

import "github.com/splanck/viper-sub008/internal/il"

// Value is one runtime register-file slot: the interpreter's tagged
// union over every il.Kind. Exactly one of the payload fields is
// meaningful, selected by Type.Kind.
type Value struct {
	Type il.Type

	I    int64   // I1/I8/I16/I32/I64 (sign-extended to 64 bits) and bool (0/1)
	F    float64 // F32/F64
	Ptr  Ptr     // Ptr
	Str  *Handle // Str
	Arr  *Handle // Array
	Func string  // Func: the symbol name a function pointer resolves to
}

// Ptr is either a frame-local alloca address (Cell + byte offset) or a
// raw, non-dereferenceable integer produced by inttoptr — escaping a
// frame-local address beyond its frame is undefined and not checked
// (spec §5), so Ptr carries no validity tag beyond "has a backing cell
// or doesn't".
type Ptr struct {
	Cell   *Cell
	Offset int64

	// Raw is the bit pattern used when Cell is nil: either a genuine
	// null pointer (Raw == 0) or an opaque value round-tripped through
	// ptrtoint/inttoptr with no backing cell, which traps if
	// dereferenced.
	Raw int64
}

// IsNull reports whether p is the null pointer.
func (p Ptr) IsNull() bool { return p.Cell == nil && p.Raw == 0 }

// Cell is one `alloca` allocation: a byte-addressable buffer sized for
// ElemType*Count, or — for element types this interpreter does not lay
// out byte-for-byte (Str, Array, Struct; see internal/vm's mem2reg-style
// scope note in DESIGN.md) — a single boxed Value valid only at offset 0.
type Cell struct {
	ElemType il.Type
	Count    int64

	Bytes []byte // valid when ElemType is byte-addressable (scalar/Ptr)
	Boxed *Value // valid otherwise; Offset must be 0 to access it
}

// ByteAddressable reports whether t has a flat, fixed-width byte layout
// this interpreter models directly (as opposed to boxing a whole Value).
func ByteAddressable(t il.Type) bool {
	switch t.Kind {
	case il.KindI1, il.KindI8, il.KindI16, il.KindI32, il.KindI64,
		il.KindF32, il.KindF64, il.KindPtr:
		return true
	}
	return false
}

// Size returns the byte width of a byte-addressable type.
func Size(t il.Type) int64 {
	switch t.Kind {
	case il.KindI1, il.KindI8:
		return 1
	case il.KindI16:
		return 2
	case il.KindI32, il.KindF32:
		return 4
	case il.KindI64, il.KindF64, il.KindPtr:
		return 8
	default:
		return 0
	}
}

// NewCell allocates a Cell for `count` contiguous elemType elements.
func NewCell(elemType il.Type, count int64) *Cell {
	if ByteAddressable(elemType) {
		return &Cell{ElemType: elemType, Count: count, Bytes: make([]byte, Size(elemType)*count)}
	}
	zero := Zero(elemType)
	return &Cell{ElemType: elemType, Count: count, Boxed: &zero}
}

// HeapKind distinguishes the two refcounted heap object shapes (spec
// §6's shared 32-byte header).
type HeapKind uint8

const (
	HeapInvalid HeapKind = iota
	HeapStr
	HeapArray
)

const (
	MagicStr   uint32 = 0x56495053 // "VIPS"
	MagicArray uint32 = 0x56495041 // "VIPA"
)

// Handle is the in-process representation of a heap header + payload
// (spec §6): a refcounted Str or Array. internal/hostrt is the sole
// owner of Handle construction and refcount mutation; internal/vm and
// internal/rtffi only read and pass these around.
type Handle struct {
	Magic    uint32
	Kind     HeapKind
	Refcount uint32
	Length   uint64
	Capacity uint64

	// Bytes holds the UTF-8 payload for a Str, or the packed element
	// bytes for an Array.
	Bytes []byte

	// ElemType names the element type for an Array handle; unused for Str.
	ElemType il.Type
}

// Zero returns the zero Value of the given type.
func Zero(t il.Type) Value {
	switch {
	case t.Kind == il.KindPtr:
		return Value{Type: t}
	case t.IsFloat():
		return Value{Type: t}
	case t.Kind == il.KindStr:
		return Value{Type: t}
	case t.Kind == il.KindArray:
		return Value{Type: t}
	default:
		return Value{Type: t}
	}
}

// Int constructs an integer/bool-typed runtime value.
func Int(t il.Type, v int64) Value { return Value{Type: t, I: v} }

// Float constructs a float-typed runtime value.
func Float(t il.Type, v float64) Value { return Value{Type: t, F: v} }

// Bool constructs an i1-typed runtime value.
func Bool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{Type: il.I1, I: i}
}

// IsTrue reports an i1 value's truthiness.
func (v Value) IsTrue() bool { return v.I != 0 }

// NullPtr constructs the null pointer value of the given pointer type.
func NullPtr(t il.Type) Value { return Value{Type: t} }

// FromConst converts a module-level constant Value (spec §3's Value sum
// type) to its runtime representation. GlobalRef constants are resolved
// by the caller (vm package), not here, since that requires module
// context this package does not have.
func FromConst(c il.Value) Value {
	switch c.CKind {
	case il.ConstInt:
		return Int(c.Type, c.IntVal)
	case il.ConstFloat:
		return Float(c.Type, c.FloatVal)
	case il.ConstBool:
		return Bool(c.BoolVal)
	case il.ConstNull:
		return NullPtr(c.Type)
	default:
		return Value{Type: c.Type}
	}
}
