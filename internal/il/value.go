package il

// SsaID is a function-local identifier for an SSA temporary. IDs are
// monotonic per Function (see Function.ReserveTemp) and never reused.
type SsaID uint32

// ValueKind enumerates the Value sum type (spec §3: Temporary, Constant,
// GlobalRef).
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueTemp
	ValueConst
	ValueGlobal
)

// ConstKind enumerates the literal payload carried by a Constant Value.
type ConstKind uint8

const (
	ConstInvalid ConstKind = iota
	ConstInt
	ConstFloat
	ConstBool
	ConstNull
	ConstStringRef
)

// Value is a first-class SSA operand: either a function-local Temporary
// (produced by exactly one defining instruction or block parameter), a
// typed Constant literal, or a GlobalRef naming a module-level symbol.
type Value struct {
	Kind ValueKind
	Type Type

	// Temporary
	ID SsaID

	// Constant
	CKind    ConstKind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   string // string-pool contents for ConstStringRef

	// GlobalRef
	Symbol string
}

// Temp constructs a Temporary operand referencing id.
func Temp(id SsaID, t Type) Value {
	return Value{Kind: ValueTemp, ID: id, Type: t}
}

// ConstInt64 constructs a typed integer constant.
func ConstInt64(t Type, v int64) Value {
	return Value{Kind: ValueConst, Type: t, CKind: ConstInt, IntVal: v}
}

// ConstFloat64 constructs a typed float constant.
func ConstFloat64(t Type, v float64) Value {
	return Value{Kind: ValueConst, Type: t, CKind: ConstFloat, FloatVal: v}
}

// ConstBoolVal constructs an i1 boolean constant.
func ConstBoolVal(v bool) Value {
	return Value{Kind: ValueConst, Type: I1, CKind: ConstBool, BoolVal: v}
}

// ConstNullVal constructs a null constant of the given (pointer-like) type.
func ConstNullVal(t Type) Value {
	return Value{Kind: ValueConst, Type: t, CKind: ConstNull}
}

// ConstStr constructs a reference into the module's string pool.
func ConstStr(s string) Value {
	return Value{Kind: ValueConst, Type: StrTy, CKind: ConstStringRef, StrVal: s}
}

// GlobalRefVal constructs a reference to a module-level extern, function, or
// constant symbol.
func GlobalRefVal(name string, t Type) Value {
	return Value{Kind: ValueGlobal, Symbol: name, Type: t}
}

// IsTemp reports whether v is a function-local SSA temporary.
func (v Value) IsTemp() bool { return v.Kind == ValueTemp }

// IsConst reports whether v is a typed literal.
func (v Value) IsConst() bool { return v.Kind == ValueConst }

// IsGlobal reports whether v references a module-level symbol.
func (v Value) IsGlobal() bool { return v.Kind == ValueGlobal }
