package verify

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
)

// --- 2. Typing -----------------------------------------------------------

func (v *verifier) checkTyping(fn *il.Function) {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			v.checkInstrTyping(fn, b, in)
		}
		if b.Terminator != nil {
			v.checkInstrTyping(fn, b, b.Terminator)
		}
	}
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

func (v *verifier) checkResultType(fn *il.Function, b *il.BasicBlock, in *il.Instruction, want il.Type) {
	if !in.HasResult {
		v.typeErr(fn, b, in, "%s must produce a result", in.Op)
		return
	}
	if !in.ResultTy.Equal(want) {
		v.report(Diagnostic{Code: CodeTypeResultMismatch, Func: fn.Name, Block: b.Name, Loc: in.Loc,
			Msg: fmt.Sprintf("%s result declared %s, want %s", in.Op, in.ResultTy, want)})
	}
}

func (v *verifier) globalSymbolType(name string) (il.Type, bool) {
	if g, ok := v.module.GlobalByName(name); ok {
		return g.Type, true
	}
	if e, ok := v.module.ExternByName(name); ok {
		sig := e.Sig
		return il.FuncOf(&sig), true
	}
	if fn, ok := v.module.FuncByName(name); ok {
		sig := fn.Sig
		return il.FuncOf(&sig), true
	}
	return il.Type{}, false
}

func (v *verifier) calleeSignature(name string) (il.Signature, bool) {
	if fn, ok := v.module.FuncByName(name); ok {
		return fn.Sig, true
	}
	if e, ok := v.module.ExternByName(name); ok {
		return e.Sig, true
	}
	return il.Signature{}, false
}

func (v *verifier) checkInstrTyping(fn *il.Function, b *il.BasicBlock, in *il.Instruction) {
	op := in.Op
	switch op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpUDiv, il.OpSRem, il.OpURem,
		il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr:
		if len(in.Args) != 2 {
			v.typeErr(fn, b, in, "%s takes 2 operands, got %d", op, len(in.Args))
			return
		}
		if !in.Args[0].Type.IsInteger() || !in.Args[0].Type.Equal(in.Args[1].Type) {
			v.typeErr(fn, b, in, "%s operands must be the same integer type, got %s and %s", op, in.Args[0].Type, in.Args[1].Type)
			return
		}
		v.checkResultType(fn, b, in, in.Args[0].Type)

	case il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv:
		if len(in.Args) != 2 {
			v.typeErr(fn, b, in, "%s takes 2 operands, got %d", op, len(in.Args))
			return
		}
		if !in.Args[0].Type.IsFloat() || !in.Args[0].Type.Equal(in.Args[1].Type) {
			v.typeErr(fn, b, in, "%s operands must be the same float type, got %s and %s", op, in.Args[0].Type, in.Args[1].Type)
			return
		}
		v.checkResultType(fn, b, in, in.Args[0].Type)

	case il.OpAbs:
		if len(in.Args) != 1 {
			v.typeErr(fn, b, in, "abs takes 1 operand, got %d", len(in.Args))
			return
		}
		if !in.Args[0].Type.IsInteger() && !in.Args[0].Type.IsFloat() {
			v.typeErr(fn, b, in, "abs operand must be numeric, got %s", in.Args[0].Type)
			return
		}
		v.checkResultType(fn, b, in, in.Args[0].Type)

	case il.OpICmpEQ, il.OpICmpNE, il.OpICmpSLT, il.OpICmpSLE, il.OpICmpSGT, il.OpICmpSGE,
		il.OpICmpULT, il.OpICmpULE, il.OpICmpUGT, il.OpICmpUGE:
		if len(in.Args) != 2 {
			v.typeErr(fn, b, in, "%s takes 2 operands, got %d", op, len(in.Args))
			return
		}
		if !in.Args[0].Type.IsInteger() || !in.Args[0].Type.Equal(in.Args[1].Type) {
			v.typeErr(fn, b, in, "%s operands must be the same integer type, got %s and %s", op, in.Args[0].Type, in.Args[1].Type)
			return
		}
		v.checkResultType(fn, b, in, il.I1)

	case il.OpFCmpEQ, il.OpFCmpNE, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE, il.OpFCmpUno, il.OpFCmpOrd:
		if len(in.Args) != 2 {
			v.typeErr(fn, b, in, "%s takes 2 operands, got %d", op, len(in.Args))
			return
		}
		if !in.Args[0].Type.IsFloat() || !in.Args[0].Type.Equal(in.Args[1].Type) {
			v.typeErr(fn, b, in, "%s operands must be the same float type, got %s and %s", op, in.Args[0].Type, in.Args[1].Type)
			return
		}
		v.checkResultType(fn, b, in, il.I1)

	case il.OpSExt, il.OpZExt:
		if len(in.Args) != 1 || !in.Args[0].Type.IsInteger() || !in.ResultTy.IsInteger() {
			v.typeErr(fn, b, in, "%s requires an integer operand and an integer result", op)
			return
		}
		sw, _ := bitWidth(in.Args[0].Type.Kind)
		dw, _ := bitWidth(in.ResultTy.Kind)
		if dw <= sw {
			v.typeErr(fn, b, in, "%s from %s to %s must widen", op, in.Args[0].Type, in.ResultTy)
		}

	case il.OpTrunc:
		if len(in.Args) != 1 || !in.Args[0].Type.IsInteger() || !in.ResultTy.IsInteger() {
			v.typeErr(fn, b, in, "trunc requires an integer operand and an integer result")
			return
		}
		sw, _ := bitWidth(in.Args[0].Type.Kind)
		dw, _ := bitWidth(in.ResultTy.Kind)
		if dw >= sw {
			v.typeErr(fn, b, in, "trunc from %s to %s must narrow", in.Args[0].Type, in.ResultTy)
		}

	case il.OpSIToFP, il.OpUIToFP:
		if len(in.Args) != 1 || !in.Args[0].Type.IsInteger() || !in.ResultTy.IsFloat() {
			v.typeErr(fn, b, in, "%s requires an integer operand and a float result", op)
		}

	case il.OpFPToSI, il.OpFPToUI:
		if len(in.Args) != 1 || !in.Args[0].Type.IsFloat() || !in.ResultTy.IsInteger() {
			v.typeErr(fn, b, in, "%s requires a float operand and an integer result", op)
		}

	case il.OpBitcast:
		if len(in.Args) != 1 {
			v.typeErr(fn, b, in, "bitcast takes 1 operand")
			return
		}
		sw, sok := bitWidth(in.Args[0].Type.Kind)
		dw, dok := bitWidth(in.ResultTy.Kind)
		if !sok || !dok || sw != dw {
			v.typeErr(fn, b, in, "bitcast from %s to %s must preserve bit width", in.Args[0].Type, in.ResultTy)
		}

	case il.OpPtrToInt:
		if len(in.Args) != 1 || in.Args[0].Type.Kind != il.KindPtr || !in.ResultTy.IsInteger() {
			v.typeErr(fn, b, in, "ptrtoint requires a ptr operand and an integer result")
		}

	case il.OpIntToPtr:
		if len(in.Args) != 1 || !in.Args[0].Type.IsInteger() || in.ResultTy.Kind != il.KindPtr {
			v.typeErr(fn, b, in, "inttoptr requires an integer operand and a ptr result")
		}

	case il.OpAlloca:
		if len(in.Args) != 1 || !in.Args[0].Type.IsInteger() {
			v.typeErr(fn, b, in, "alloca count must be an integer operand")
			return
		}
		v.checkResultType(fn, b, in, il.PtrTy)

	case il.OpLoad:
		if len(in.Args) != 1 || in.Args[0].Type.Kind != il.KindPtr {
			v.typeErr(fn, b, in, "load operand must be a ptr")
			return
		}
		if !in.ResultTy.Equal(in.MemType) {
			v.typeErr(fn, b, in, "load result type %s does not match its memory type %s", in.ResultTy, in.MemType)
		}

	case il.OpStore:
		if len(in.Args) != 2 || in.Args[0].Type.Kind != il.KindPtr {
			v.typeErr(fn, b, in, "store's first operand must be a ptr")
			return
		}
		if !in.Args[1].Type.Equal(in.MemType) {
			v.typeErr(fn, b, in, "store value type %s does not match its memory type %s", in.Args[1].Type, in.MemType)
		}
		if in.HasResult {
			v.typeErr(fn, b, in, "store must not produce a result")
		}

	case il.OpGep:
		if len(in.Args) != 2 || in.Args[0].Type.Kind != il.KindPtr || !in.Args[1].Type.IsInteger() {
			v.typeErr(fn, b, in, "gep requires a ptr base and an integer offset")
			return
		}
		v.checkResultType(fn, b, in, il.PtrTy)

	case il.OpAddrOfGlobal:
		if !in.HasResult {
			v.typeErr(fn, b, in, "addr-of-global must produce a result")
			return
		}
		want, ok := v.globalSymbolType(in.Callee)
		if !ok {
			v.report(Diagnostic{Code: CodeSSAUnknownValue, Func: fn.Name, Block: b.Name, Loc: in.Loc,
				Msg: fmt.Sprintf("addr-of-global references undeclared symbol %q", in.Callee)})
			return
		}
		if !in.ResultTy.Equal(want) {
			v.typeErr(fn, b, in, "addr-of-global %q has type %s, result declared %s", in.Callee, want, in.ResultTy)
		}

	case il.OpRet:
		v.checkReturn(fn, b, in)

	case il.OpResume:
		if len(in.Args) > 1 {
			v.typeErr(fn, b, in, "resume takes at most one operand")
		}

	case il.OpUnreachable, il.OpLandingpad:
		// no operand shape to check

	case il.OpBr:
		// branch-argument arity/type is checkEdges' job

	case il.OpCbr:
		if len(in.Args) != 1 || !in.Args[0].Type.Equal(il.I1) {
			v.typeErr(fn, b, in, "cbr condition must be i1")
		}

	case il.OpSwitch:
		if len(in.Args) != 1 || !in.Args[0].Type.Equal(il.I32) {
			v.typeErr(fn, b, in, "switch.i32 scrutinee must be i32")
		}

	case il.OpCall, il.OpTailCall:
		v.checkDirectCall(fn, b, in)

	case il.OpCallIndirect, il.OpTailCallIndirect:
		v.checkIndirectCall(fn, b, in)

	case il.OpInvoke:
		v.checkInvoke(fn, b, in)
	}
}

func (v *verifier) checkReturn(fn *il.Function, b *il.BasicBlock, in *il.Instruction) {
	want := fn.Sig.Ret
	if want.Equal(il.Void) {
		if len(in.Args) != 0 {
			v.typeErr(fn, b, in, "ret must be void, function returns void")
		}
		return
	}
	if len(in.Args) != 1 {
		v.typeErr(fn, b, in, "ret must supply exactly one value of type %s", want)
		return
	}
	if !in.Args[0].Type.Equal(want) {
		v.typeErr(fn, b, in, "ret value has type %s, function returns %s", in.Args[0].Type, want)
	}
}

func (v *verifier) checkDirectCall(fn *il.Function, b *il.BasicBlock, in *il.Instruction) {
	sig, ok := v.calleeSignature(in.Callee)
	if !ok {
		v.report(Diagnostic{Code: CodeTypeCalleeMismatch, Func: fn.Name, Block: b.Name, Loc: in.Loc,
			Msg: fmt.Sprintf("%s references undeclared callee %q", in.Op, in.Callee)})
		return
	}
	v.checkCallArgsAndResult(fn, b, in, sig)
}

func (v *verifier) checkInvoke(fn *il.Function, b *il.BasicBlock, in *il.Instruction) {
	sig, ok := v.calleeSignature(in.Callee)
	if !ok {
		v.report(Diagnostic{Code: CodeTypeCalleeMismatch, Func: fn.Name, Block: b.Name, Loc: in.Loc,
			Msg: fmt.Sprintf("invoke references undeclared callee %q", in.Callee)})
		return
	}
	v.checkCallArgsAndResult(fn, b, in, sig)
}

func (v *verifier) checkIndirectCall(fn *il.Function, b *il.BasicBlock, in *il.Instruction) {
	if in.Sig == nil {
		v.typeErr(fn, b, in, "%s missing callee signature", in.Op)
		return
	}
	if len(in.Args) == 0 {
		v.typeErr(fn, b, in, "%s missing function-pointer operand", in.Op)
		return
	}
	fptr := in.Args[0]
	if fptr.Type.Kind != il.KindFunc || fptr.Type.Sig == nil || !fptr.Type.Sig.Equal(in.Sig) {
		v.typeErr(fn, b, in, "%s function-pointer operand type %s does not match its declared signature", in.Op, fptr.Type)
		return
	}
	shaped := &il.Instruction{Op: in.Op, Loc: in.Loc, HasResult: in.HasResult, ResultTy: in.ResultTy, Args: in.Args[1:]}
	v.checkCallArgsAndResult(fn, b, shaped, *in.Sig)
}

// checkCallArgsAndResult validates in.Args against sig.Params and, when
// sig.Ret is non-void, in's result against sig.Ret. Shared by call,
// tail.call, call.indirect, tail.call.indirect, and invoke.
func (v *verifier) checkCallArgsAndResult(fn *il.Function, b *il.BasicBlock, in *il.Instruction, sig il.Signature) {
	if len(in.Args) != len(sig.Params) {
		v.report(Diagnostic{Code: CodeTypeCalleeMismatch, Func: fn.Name, Block: b.Name, Loc: in.Loc,
			Msg: fmt.Sprintf("%s supplies %d args, callee takes %d", in.Op, len(in.Args), len(sig.Params))})
		return
	}
	for i, a := range in.Args {
		if !a.Type.Equal(sig.Params[i]) {
			v.report(Diagnostic{Code: CodeTypeCalleeMismatch, Func: fn.Name, Block: b.Name, Loc: in.Loc,
				Msg: fmt.Sprintf("%s arg %d has type %s, callee expects %s", in.Op, i, a.Type, sig.Params[i])})
		}
	}
	if sig.Ret.Equal(il.Void) {
		if in.HasResult {
			v.typeErr(fn, b, in, "%s callee returns void but a result was declared", in.Op)
		}
		return
	}
	v.checkResultType(fn, b, in, sig.Ret)
}
