package vm

import (
	"errors"
	"math"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// execInstr executes one non-terminator instruction against the Runner's
// current frame. Step advances IP on success, except for the call family,
// which moves IP or switches frames itself (see isCallOpcode). Grounded on cmd/compile/internal/ssa's one-opcode-one-
// case Value-rewrite convention, generalized here from a rewrite rule to
// a concrete evaluator.
func (r *Runner) execInstr(in *il.Instruction) *Trap {
	switch in.Op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpUDiv, il.OpSRem, il.OpURem:
		return r.execIntBinop(in)
	case il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv:
		return r.execFloatBinop(in)
	case il.OpAbs:
		return r.execAbs(in)
	case il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr:
		return r.execBitwise(in)
	case il.OpSExt, il.OpZExt, il.OpTrunc, il.OpSIToFP, il.OpUIToFP,
		il.OpFPToSI, il.OpFPToUI, il.OpBitcast, il.OpPtrToInt, il.OpIntToPtr:
		return r.execConvert(in)
	case il.OpAlloca:
		return r.execAlloca(in)
	case il.OpLoad:
		return r.execLoad(in)
	case il.OpStore:
		return r.execStore(in)
	case il.OpGep:
		return r.execGep(in)
	case il.OpAddrOfGlobal:
		return r.execAddrOfGlobal(in)
	case il.OpCall, il.OpCallIndirect, il.OpTailCall, il.OpTailCallIndirect:
		return r.execCall(in)
	case il.OpLandingpad:
		return r.execLandingpad(in)
	}
	if in.Op.IsCompare() {
		return r.execCompare(in)
	}
	return trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported, "unhandled opcode %s", in.Op)
}

// execTerminator executes the single terminator instruction that ends
// the current block.
func (r *Runner) execTerminator(in *il.Instruction) *Trap {
	switch in.Op {
	case il.OpRet:
		return r.execRet(in)
	case il.OpBr:
		return r.execBr(in)
	case il.OpCbr:
		return r.execCbr(in)
	case il.OpSwitch:
		return r.execSwitch(in)
	case il.OpUnreachable:
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported, "unreachable instruction executed")
	case il.OpResume:
		return r.execResume(in)
	case il.OpInvoke:
		return r.execInvoke(in)
	}
	return trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported, "unhandled terminator %s", in.Op)
}

// --- operand resolution -----------------------------------------------

func (r *Runner) resolveValue(v il.Value) (rtval.Value, *Trap) {
	switch v.Kind {
	case il.ValueTemp:
		rv, ok := r.top.get(v.ID)
		if !ok {
			return rtval.Value{}, trap(r.top.Fn, r.top.Block, il.Loc{}, ReasonUnsupported, "use of undefined temporary %%%d", v.ID)
		}
		return rv, nil
	case il.ValueConst:
		if v.CKind == il.ConstStringRef {
			return r.materializeString(v.StrVal), nil
		}
		return rtval.FromConst(v), nil
	case il.ValueGlobal:
		return r.resolveGlobal(v.Symbol, v.Type)
	default:
		return rtval.Value{}, trap(r.top.Fn, r.top.Block, il.Loc{}, ReasonUnsupported, "invalid operand kind")
	}
}

func (r *Runner) resolveValues(vs []il.Value) ([]rtval.Value, *Trap) {
	out := make([]rtval.Value, len(vs))
	for i, v := range vs {
		rv, tr := r.resolveValue(v)
		if tr != nil {
			return nil, tr
		}
		out[i] = rv
	}
	return out, nil
}

func (r *Runner) resolveGlobal(name string, t il.Type) (rtval.Value, *Trap) {
	if g, ok := r.Module.GlobalByName(name); ok {
		return rtval.FromConst(g.Value), nil
	}
	if _, ok := r.Module.FuncByName(name); ok {
		return rtval.Value{Type: t, Func: name}, nil
	}
	if _, ok := r.Module.ExternByName(name); ok {
		return rtval.Value{Type: t, Func: name}, nil
	}
	return rtval.Value{}, trap(r.top.Fn, r.top.Block, il.Loc{}, ReasonUnsupported, "unresolved global %s", name)
}

// materializeString builds a fresh, refcount-1 Str handle for a
// string-pool literal. internal/hostrt owns long-lived string
// construction; this is just enough to make ConstStringRef usable
// standalone in tests that never touch hostrt.
func (r *Runner) materializeString(s string) rtval.Value {
	h := &rtval.Handle{
		Magic:    rtval.MagicStr,
		Kind:     rtval.HeapStr,
		Refcount: 1,
		Length:   uint64(len(s)),
		Capacity: uint64(len(s)),
		Bytes:    []byte(s),
	}
	return rtval.Value{Type: il.StrTy, Str: h}
}

func firstOr(vs [][]il.Value, i int) []il.Value {
	if i < len(vs) {
		return vs[i]
	}
	return nil
}

// branchTo admits args into blockName's parameters and moves f there.
func (r *Runner) branchTo(f *Frame, blockName string, args []rtval.Value) *Trap {
	blk, ok := f.Fn.BlockByName(blockName)
	if !ok {
		return trap(f.Fn, f.Block, il.Loc{}, ReasonUnsupported, "branch to unknown block %s", blockName)
	}
	if len(blk.Params) != len(args) {
		return trap(f.Fn, f.Block, il.Loc{}, ReasonUnsupported,
			"block %s expects %d argument(s), got %d", blockName, len(blk.Params), len(args))
	}
	for i, p := range blk.Params {
		f.set(p.ID, args[i])
	}
	f.Block = blk
	f.IP = 0
	return nil
}

func bindParams(f *Frame, fn *il.Function, args []rtval.Value) {
	for i, p := range fn.Entry().Params {
		if i < len(args) {
			f.set(p.ID, args[i])
		}
	}
}

// --- arithmetic / bitwise / compare -------------------------------------

func (r *Runner) execIntBinop(in *il.Instruction) *Trap {
	a, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	b, tr := r.resolveValue(in.Args[1])
	if tr != nil {
		return tr
	}
	bits := bitWidth(in.ResultTy)
	switch in.Op {
	case il.OpAdd:
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I+b.I, bits)))
	case il.OpSub:
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I-b.I, bits)))
	case il.OpMul:
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I*b.I, bits)))
	case il.OpSDiv:
		bv := maskSigned(b.I, bits)
		if bv == 0 {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonDivByZero, "sdiv by zero")
		}
		av := maskSigned(a.I, bits)
		if bits == 64 && av == math.MinInt64 && bv == -1 {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonIntOverflow, "sdiv overflow: MIN / -1")
		}
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(av/bv, bits)))
	case il.OpUDiv:
		bv := maskUnsigned(b.I, bits)
		if bv == 0 {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonDivByZero, "udiv by zero")
		}
		av := maskUnsigned(a.I, bits)
		r.top.set(in.Result, rtval.Int(in.ResultTy, int64(av/bv)))
	case il.OpSRem:
		bv := maskSigned(b.I, bits)
		if bv == 0 {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonDivByZero, "srem by zero")
		}
		av := maskSigned(a.I, bits)
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(av%bv, bits)))
	case il.OpURem:
		bv := maskUnsigned(b.I, bits)
		if bv == 0 {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonDivByZero, "urem by zero")
		}
		av := maskUnsigned(a.I, bits)
		r.top.set(in.Result, rtval.Int(in.ResultTy, int64(av%bv)))
	}
	return nil
}

func (r *Runner) execFloatBinop(in *il.Instruction) *Trap {
	a, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	b, tr := r.resolveValue(in.Args[1])
	if tr != nil {
		return tr
	}
	var res float64
	switch in.Op {
	case il.OpFAdd:
		res = a.F + b.F
	case il.OpFSub:
		res = a.F - b.F
	case il.OpFMul:
		res = a.F * b.F
	case il.OpFDiv:
		res = a.F / b.F
	}
	r.top.set(in.Result, rtval.Float(in.ResultTy, res))
	return nil
}

func (r *Runner) execAbs(in *il.Instruction) *Trap {
	a, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	if a.Type.IsFloat() {
		v := a.F
		if v < 0 {
			v = -v
		}
		r.top.set(in.Result, rtval.Float(in.ResultTy, v))
		return nil
	}
	bits := bitWidth(a.Type)
	v := maskSigned(a.I, bits)
	if v < 0 {
		v = -v
	}
	r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(v, bits)))
	return nil
}

func (r *Runner) execBitwise(in *il.Instruction) *Trap {
	a, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	b, tr := r.resolveValue(in.Args[1])
	if tr != nil {
		return tr
	}
	bits := bitWidth(in.ResultTy)
	switch in.Op {
	case il.OpAnd:
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I&b.I, bits)))
	case il.OpOr:
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I|b.I, bits)))
	case il.OpXor:
		r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I^b.I, bits)))
	case il.OpShl, il.OpLShr, il.OpAShr:
		shift := b.I
		if shift < 0 || uint(shift) >= bits {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonIntOverflow,
				"shift amount %d out of range for i%d", shift, bits)
		}
		switch in.Op {
		case il.OpShl:
			r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(a.I<<uint(shift), bits)))
		case il.OpLShr:
			av := maskUnsigned(a.I, bits)
			r.top.set(in.Result, rtval.Int(in.ResultTy, int64(av>>uint(shift))))
		case il.OpAShr:
			av := maskSigned(a.I, bits)
			r.top.set(in.Result, rtval.Int(in.ResultTy, maskSigned(av>>uint(shift), bits)))
		}
	}
	return nil
}

func (r *Runner) execCompare(in *il.Instruction) *Trap {
	a, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	b, tr := r.resolveValue(in.Args[1])
	if tr != nil {
		return tr
	}
	var res bool
	if a.Type.IsFloat() {
		switch in.Op {
		case il.OpFCmpEQ:
			res = a.F == b.F
		case il.OpFCmpNE:
			res = a.F != b.F
		case il.OpFCmpLT:
			res = a.F < b.F
		case il.OpFCmpLE:
			res = a.F <= b.F
		case il.OpFCmpGT:
			res = a.F > b.F
		case il.OpFCmpGE:
			res = a.F >= b.F
		case il.OpFCmpUno:
			res = math.IsNaN(a.F) || math.IsNaN(b.F)
		case il.OpFCmpOrd:
			res = !math.IsNaN(a.F) && !math.IsNaN(b.F)
		}
	} else {
		bits := bitWidth(a.Type)
		switch in.Op {
		case il.OpICmpEQ:
			res = a.I == b.I
		case il.OpICmpNE:
			res = a.I != b.I
		case il.OpICmpSLT:
			res = maskSigned(a.I, bits) < maskSigned(b.I, bits)
		case il.OpICmpSLE:
			res = maskSigned(a.I, bits) <= maskSigned(b.I, bits)
		case il.OpICmpSGT:
			res = maskSigned(a.I, bits) > maskSigned(b.I, bits)
		case il.OpICmpSGE:
			res = maskSigned(a.I, bits) >= maskSigned(b.I, bits)
		case il.OpICmpULT:
			res = maskUnsigned(a.I, bits) < maskUnsigned(b.I, bits)
		case il.OpICmpULE:
			res = maskUnsigned(a.I, bits) <= maskUnsigned(b.I, bits)
		case il.OpICmpUGT:
			res = maskUnsigned(a.I, bits) > maskUnsigned(b.I, bits)
		case il.OpICmpUGE:
			res = maskUnsigned(a.I, bits) >= maskUnsigned(b.I, bits)
		}
	}
	r.top.set(in.Result, rtval.Bool(res))
	return nil
}

// --- conversions ---------------------------------------------------------

func (r *Runner) execConvert(in *il.Instruction) *Trap {
	src, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	dst := in.ResultTy
	switch in.Op {
	case il.OpSExt:
		r.top.set(in.Result, rtval.Int(dst, maskSigned(src.I, bitWidth(src.Type))))
	case il.OpZExt:
		r.top.set(in.Result, rtval.Int(dst, int64(maskUnsigned(src.I, bitWidth(src.Type)))))
	case il.OpTrunc:
		r.top.set(in.Result, rtval.Int(dst, maskSigned(src.I, bitWidth(dst))))
	case il.OpSIToFP:
		r.top.set(in.Result, rtval.Float(dst, float64(maskSigned(src.I, bitWidth(src.Type)))))
	case il.OpUIToFP:
		r.top.set(in.Result, rtval.Float(dst, float64(maskUnsigned(src.I, bitWidth(src.Type)))))
	case il.OpFPToSI:
		r.top.set(in.Result, rtval.Int(dst, int64(src.F)))
	case il.OpFPToUI:
		r.top.set(in.Result, rtval.Int(dst, int64(uint64(src.F))))
	case il.OpBitcast:
		if rtval.Size(src.Type) != rtval.Size(dst) {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonInvalidBitcast,
				"bitcast width mismatch: %s -> %s", src.Type, dst)
		}
		out := src
		out.Type = dst
		r.top.set(in.Result, out)
	case il.OpPtrToInt:
		if src.Ptr.Cell != nil {
			return trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported,
				"ptrtoint of a live alloca address is not supported")
		}
		r.top.set(in.Result, rtval.Int(dst, src.Ptr.Raw))
	case il.OpIntToPtr:
		r.top.set(in.Result, rtval.Value{Type: dst, Ptr: rtval.Ptr{Raw: src.I}})
	}
	return nil
}

// --- memory ---------------------------------------------------------------

func (r *Runner) execAlloca(in *il.Instruction) *Trap {
	count, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	if count.I < 0 {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonBoundsCheck, "negative alloca count %d", count.I)
	}
	cell := r.top.newAlloca(in.AllocaElem, count.I)
	r.top.set(in.Result, rtval.Value{Type: in.ResultTy, Ptr: rtval.Ptr{Cell: cell}})
	return nil
}

func (r *Runner) execLoad(in *il.Instruction) *Trap {
	p, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	if p.Ptr.IsNull() {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonNullDeref, "load through null pointer")
	}
	v, trp := readCell(p.Ptr, in.MemType, r.top.Fn, r.top.Block, in.Loc)
	if trp != nil {
		return trp
	}
	r.top.set(in.Result, v)
	return nil
}

func (r *Runner) execStore(in *il.Instruction) *Trap {
	p, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	v, tr := r.resolveValue(in.Args[1])
	if tr != nil {
		return tr
	}
	if p.Ptr.IsNull() {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonNullDeref, "store through null pointer")
	}
	return writeCell(p.Ptr, in.MemType, v, r.top.Fn, r.top.Block, in.Loc)
}

func (r *Runner) execGep(in *il.Instruction) *Trap {
	base, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	off, tr := r.resolveValue(in.Args[1])
	if tr != nil {
		return tr
	}
	if base.Ptr.IsNull() {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonNullDeref, "gep on null pointer")
	}
	np := base.Ptr
	np.Offset += off.I
	r.top.set(in.Result, rtval.Value{Type: in.ResultTy, Ptr: np})
	return nil
}

func (r *Runner) execAddrOfGlobal(in *il.Instruction) *Trap {
	v, tr := r.resolveGlobal(in.Callee, in.ResultTy)
	if tr != nil {
		return tr
	}
	r.top.set(in.Result, v)
	return nil
}

// --- calls ------------------------------------------------------------

func (r *Runner) resolveCallTarget(in *il.Instruction) (string, []rtval.Value, *Trap) {
	if in.Op == il.OpCallIndirect || in.Op == il.OpTailCallIndirect {
		if len(in.Args) == 0 {
			return "", nil, trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported, "indirect call with no callee operand")
		}
		calleeVal, tr := r.resolveValue(in.Args[0])
		if tr != nil {
			return "", nil, tr
		}
		if calleeVal.Func == "" {
			return "", nil, trap(r.top.Fn, r.top.Block, in.Loc, ReasonNullDeref, "call through null function pointer")
		}
		args, tr := r.resolveValues(in.Args[1:])
		if tr != nil {
			return "", nil, tr
		}
		return calleeVal.Func, args, nil
	}
	args, tr := r.resolveValues(in.Args)
	if tr != nil {
		return "", nil, tr
	}
	return in.Callee, args, nil
}

func (r *Runner) execCall(in *il.Instruction) *Trap {
	name, args, tr := r.resolveCallTarget(in)
	if tr != nil {
		return tr
	}

	isTail := in.Op == il.OpTailCall || in.Op == il.OpTailCallIndirect

	fn, ok := r.Module.FuncByName(name)
	if !ok {
		if trp := r.callExtern(in, name, args); trp != nil {
			return trp
		}
		r.top.IP++
		return nil
	}

	if isTail && r.Options.TailCallOpt {
		r.tailCallReuse(fn, args)
		return nil
	}

	if r.top.Depth() >= r.Options.MaxCallDepth {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonStackOverflow, "call depth exceeds %d", r.Options.MaxCallDepth)
	}

	callee := NewFrame(fn, r.top)
	bindParams(callee, fn, args)
	callee.Resume = resumeNext
	callee.ReturnIP = r.top.IP + 1
	callee.ReturnReg = in.Result
	callee.HasResult = in.HasResult
	r.top = callee
	return nil
}

func (r *Runner) callExtern(in *il.Instruction, name string, args []rtval.Value) *Trap {
	if r.Externs == nil {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported, "no extern bridge configured for %s", name)
	}
	res, err := r.Externs.CallExtern(name, args)
	if err != nil {
		reason := ReasonFFI
		if errors.Is(err, ErrRCMagic) {
			reason = ReasonRCMagic
		}
		return trap(r.top.Fn, r.top.Block, in.Loc, reason, "%s: %v", name, err)
	}
	if in.HasResult {
		r.top.set(in.Result, res)
	}
	return nil
}

func (r *Runner) execLandingpad(in *il.Instruction) *Trap {
	if in.HasResult {
		tok := rtval.Value{Type: in.ResultTy}
		if r.top.PendingTrap != nil {
			tok.Func = string(r.top.PendingTrap.Reason)
		}
		r.top.set(in.Result, tok)
	}
	return nil
}

// --- terminators --------------------------------------------------------

func (r *Runner) execRet(in *il.Instruction) *Trap {
	var retVal rtval.Value
	if len(in.Args) > 0 {
		v, tr := r.resolveValue(in.Args[0])
		if tr != nil {
			return tr
		}
		retVal = v
	}

	cur := r.top
	caller := cur.Caller
	if caller == nil {
		r.result = retVal
		r.status = StatusHalted
		return nil
	}

	switch cur.Resume {
	case resumeBranch:
		if cur.HasResult {
			caller.set(cur.ReturnReg, retVal)
		}
		caller.UnwindBlock = ""
		r.top = caller
		return r.branchTo(caller, cur.NormalBlock, cur.NormalArgs)
	default: // resumeNext
		if cur.HasResult {
			caller.set(cur.ReturnReg, retVal)
		}
		caller.IP = cur.ReturnIP
		r.top = caller
		return nil
	}
}

func (r *Runner) execBr(in *il.Instruction) *Trap {
	args, tr := r.resolveValues(firstOr(in.BrArgs, 0))
	if tr != nil {
		return tr
	}
	return r.branchTo(r.top, in.Targets[0], args)
}

func (r *Runner) execCbr(in *il.Instruction) *Trap {
	cond, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	idx := 1
	if cond.IsTrue() {
		idx = 0
	}
	args, tr := r.resolveValues(firstOr(in.BrArgs, idx))
	if tr != nil {
		return tr
	}
	return r.branchTo(r.top, in.Targets[idx], args)
}

func (r *Runner) execSwitch(in *il.Instruction) *Trap {
	scrut, tr := r.resolveValue(in.Args[0])
	if tr != nil {
		return tr
	}
	sc := r.caches[in]
	if sc == nil {
		sc = buildSwitchCache(in, r.Options.SwitchMode)
		r.caches[in] = sc
	}
	idx := sc.lookup(int32(scrut.I))
	if idx < 0 {
		args, tr := r.resolveValues(in.DefaultArgs)
		if tr != nil {
			return tr
		}
		return r.branchTo(r.top, in.Default, args)
	}
	c := in.Cases[idx]
	args, tr := r.resolveValues(c.Args)
	if tr != nil {
		return tr
	}
	return r.branchTo(r.top, c.Label, args)
}

func (r *Runner) execResume(in *il.Instruction) *Trap {
	tr := r.top.PendingTrap
	if tr == nil {
		tr = trap(r.top.Fn, r.top.Block, in.Loc, ReasonUnsupported, "resume with no pending exception")
	}
	for f := r.top.Caller; f != nil; f = f.Caller {
		if f.UnwindBlock == "" {
			continue
		}
		blk, ok := f.Fn.BlockByName(f.UnwindBlock)
		if !ok {
			break
		}
		f.UnwindBlock = ""
		f.PendingTrap = tr
		f.Block = blk
		f.IP = 0
		r.top = f
		return nil
	}
	r.fail(tr)
	return nil
}

func (r *Runner) execInvoke(in *il.Instruction) *Trap {
	name, args, tr := r.resolveCallTarget(in)
	if tr != nil {
		return tr
	}
	normalArgs, tr := r.resolveValues(firstOr(in.BrArgs, 0))
	if tr != nil {
		return tr
	}

	fn, ok := r.Module.FuncByName(name)
	if !ok {
		if trp := r.callExtern(in, name, args); trp != nil {
			return trp
		}
		return r.branchTo(r.top, in.Targets[0], normalArgs)
	}

	if r.top.Depth() >= r.Options.MaxCallDepth {
		return trap(r.top.Fn, r.top.Block, in.Loc, ReasonStackOverflow, "call depth exceeds %d", r.Options.MaxCallDepth)
	}

	caller := r.top
	caller.UnwindBlock = in.Unwind

	callee := NewFrame(fn, caller)
	bindParams(callee, fn, args)
	callee.Resume = resumeBranch
	callee.NormalBlock = in.Targets[0]
	callee.NormalArgs = normalArgs
	callee.ReturnReg = in.Result
	callee.HasResult = in.HasResult
	r.top = callee
	return nil
}
