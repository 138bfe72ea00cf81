package pass

import (
	"math"

	"github.com/splanck/viper-sub008/internal/il"
)

// isFoldableOp reports whether op's result can ever be determined purely
// from constant operands. Memory, call, and conversion-to-pointer
// opcodes are excluded even when their operands happen to be constant.
func isFoldableOp(op il.Opcode) bool {
	switch op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpUDiv, il.OpSRem, il.OpURem,
		il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr, il.OpAbs,
		il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv,
		il.OpICmpEQ, il.OpICmpNE, il.OpICmpSLT, il.OpICmpSLE, il.OpICmpSGT, il.OpICmpSGE,
		il.OpICmpULT, il.OpICmpULE, il.OpICmpUGT, il.OpICmpUGE,
		il.OpFCmpEQ, il.OpFCmpNE, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE, il.OpFCmpUno, il.OpFCmpOrd,
		il.OpSExt, il.OpZExt, il.OpTrunc, il.OpSIToFP, il.OpUIToFP, il.OpFPToSI, il.OpFPToUI:
		return true
	}
	return false
}

// foldConstant evaluates op over already-constant operands, returning the
// folded Value and true if the operation is safe to fold at compile
// time. Division and remainder by a constant zero are deliberately left
// unfolded: the module still traps on it at runtime instead of being
// silently miscompiled during optimization.
func foldConstant(op il.Opcode, args []il.Value, resultTy il.Type) (il.Value, bool) {
	switch op {
	case il.OpAdd:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a + b }), true
	case il.OpSub:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a - b }), true
	case il.OpMul:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a * b }), true
	case il.OpSDiv:
		if args[1].IntVal == 0 {
			return il.Value{}, false
		}
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a / b }), true
	case il.OpUDiv:
		if args[1].IntVal == 0 {
			return il.Value{}, false
		}
		return intBinOp(resultTy, args, func(a, b int64) int64 { return int64(uint64(a) / uint64(b)) }), true
	case il.OpSRem:
		if args[1].IntVal == 0 {
			return il.Value{}, false
		}
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a % b }), true
	case il.OpURem:
		if args[1].IntVal == 0 {
			return il.Value{}, false
		}
		return intBinOp(resultTy, args, func(a, b int64) int64 { return int64(uint64(a) % uint64(b)) }), true
	case il.OpAnd:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a & b }), true
	case il.OpOr:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a | b }), true
	case il.OpXor:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a ^ b }), true
	case il.OpShl:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a << uint(b) }), true
	case il.OpLShr:
		return intBinOp(resultTy, args, func(a, b int64) int64 {
			w, _ := bitWidth(resultTy.Kind)
			mask := uint64(1)<<uint(w) - 1
			return int64((uint64(a) & mask) >> uint(b))
		}), true
	case il.OpAShr:
		return intBinOp(resultTy, args, func(a, b int64) int64 { return a >> uint(b) }), true

	case il.OpAbs:
		if resultTy.IsFloat() {
			return il.ConstFloat64(resultTy, math.Abs(args[0].FloatVal)), true
		}
		v := args[0].IntVal
		if v < 0 {
			v = -v
		}
		return il.ConstInt64(resultTy, truncTo(resultTy, v)), true

	case il.OpFAdd:
		return il.ConstFloat64(resultTy, args[0].FloatVal+args[1].FloatVal), true
	case il.OpFSub:
		return il.ConstFloat64(resultTy, args[0].FloatVal-args[1].FloatVal), true
	case il.OpFMul:
		return il.ConstFloat64(resultTy, args[0].FloatVal*args[1].FloatVal), true
	case il.OpFDiv:
		return il.ConstFloat64(resultTy, args[0].FloatVal/args[1].FloatVal), true

	case il.OpICmpEQ, il.OpICmpNE, il.OpICmpSLT, il.OpICmpSLE, il.OpICmpSGT, il.OpICmpSGE:
		return il.ConstBoolVal(signedICmp(op, args[0].IntVal, args[1].IntVal)), true
	case il.OpICmpULT, il.OpICmpULE, il.OpICmpUGT, il.OpICmpUGE:
		return il.ConstBoolVal(unsignedICmp(op, uint64(args[0].IntVal), uint64(args[1].IntVal))), true
	case il.OpFCmpEQ, il.OpFCmpNE, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE, il.OpFCmpUno, il.OpFCmpOrd:
		return il.ConstBoolVal(fcmp(op, args[0].FloatVal, args[1].FloatVal)), true

	case il.OpSExt, il.OpZExt, il.OpTrunc:
		return il.ConstInt64(resultTy, truncTo(resultTy, args[0].IntVal)), true
	case il.OpSIToFP:
		return il.ConstFloat64(resultTy, float64(args[0].IntVal)), true
	case il.OpUIToFP:
		return il.ConstFloat64(resultTy, float64(uint64(args[0].IntVal))), true
	case il.OpFPToSI:
		return il.ConstInt64(resultTy, int64(args[0].FloatVal)), true
	case il.OpFPToUI:
		return il.ConstInt64(resultTy, int64(uint64(args[0].FloatVal))), true
	}
	return il.Value{}, false
}

func intBinOp(resultTy il.Type, args []il.Value, f func(a, b int64) int64) il.Value {
	return il.ConstInt64(resultTy, truncTo(resultTy, f(args[0].IntVal, args[1].IntVal)))
}

// truncTo masks v down to resultTy's bit width and sign-extends back,
// matching the two's-complement wraparound fixed-width arithmetic has at
// runtime.
func truncTo(t il.Type, v int64) int64 {
	w, ok := bitWidth(t.Kind)
	if !ok || w >= 64 {
		return v
	}
	mask := int64(1)<<uint(w) - 1
	v &= mask
	signBit := int64(1) << uint(w-1)
	if v&signBit != 0 {
		v -= mask + 1
	}
	return v
}

func bitWidth(k il.Kind) (int, bool) {
	switch k {
	case il.KindI1:
		return 1, true
	case il.KindI8:
		return 8, true
	case il.KindI16:
		return 16, true
	case il.KindI32:
		return 32, true
	case il.KindI64:
		return 64, true
	case il.KindF32:
		return 32, true
	case il.KindF64:
		return 64, true
	case il.KindPtr:
		return 64, true
	}
	return 0, false
}

func signedICmp(op il.Opcode, a, b int64) bool {
	switch op {
	case il.OpICmpEQ:
		return a == b
	case il.OpICmpNE:
		return a != b
	case il.OpICmpSLT:
		return a < b
	case il.OpICmpSLE:
		return a <= b
	case il.OpICmpSGT:
		return a > b
	case il.OpICmpSGE:
		return a >= b
	}
	return false
}

func unsignedICmp(op il.Opcode, a, b uint64) bool {
	switch op {
	case il.OpICmpULT:
		return a < b
	case il.OpICmpULE:
		return a <= b
	case il.OpICmpUGT:
		return a > b
	case il.OpICmpUGE:
		return a >= b
	}
	return false
}

func fcmp(op il.Opcode, a, b float64) bool {
	switch op {
	case il.OpFCmpEQ:
		return a == b
	case il.OpFCmpNE:
		return a != b
	case il.OpFCmpLT:
		return a < b
	case il.OpFCmpLE:
		return a <= b
	case il.OpFCmpGT:
		return a > b
	case il.OpFCmpGE:
		return a >= b
	case il.OpFCmpOrd:
		return !math.IsNaN(a) && !math.IsNaN(b)
	case il.OpFCmpUno:
		return math.IsNaN(a) || math.IsNaN(b)
	}
	return false
}

func constEqual(a, b il.Value) bool {
	if !a.Type.Equal(b.Type) || a.CKind != b.CKind {
		return false
	}
	switch a.CKind {
	case il.ConstInt:
		return a.IntVal == b.IntVal
	case il.ConstFloat:
		return a.FloatVal == b.FloatVal
	case il.ConstBool:
		return a.BoolVal == b.BoolVal
	case il.ConstStringRef:
		return a.StrVal == b.StrVal
	case il.ConstNull:
		return true
	}
	return false
}
