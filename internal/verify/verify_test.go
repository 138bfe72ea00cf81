package verify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltest"
	"github.com/splanck/viper-sub008/internal/sig"
	"github.com/splanck/viper-sub008/internal/verify"
)

// codesOf flattens a Result into its diagnostic codes, for order-independent
// assertions.
func codesOf(r verify.Result) []string {
	out := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		out[i] = d.Code
	}
	return out
}

func TestVerifyCleanModuleIssuesCertificate(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("add1", il.Signature{Params: []il.Type{il.I64}, Ret: il.I64})
	m.Functions = append(m.Functions, fn)
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", []string{"x"}, []il.Type{il.I64}, []iltest.InstrSpec{
			iltest.Instr("r", il.OpAdd, il.I64, iltest.V("x"), iltest.CI64(il.I64, 1)),
		}, iltest.Ret(iltest.V("r"))),
	})
	require.NoError(t, err)

	cert, res := verify.Verify(m, nil, il.DiagSink{})
	require.True(t, res.OK(), "%v", res.Diagnostics)
	require.True(t, cert.Valid())
	require.Equal(t, "m", cert.ModuleName())
}

func TestVerifyDuplicateFunctionName(t *testing.T) {
	m := il.NewModule("m")
	mk := func() *il.Function {
		fn := il.NewFunction("f", il.Signature{Ret: il.Void})
		entry, err := il.CreateBlock(fn, "entry", nil, nil)
		require.NoError(t, err)
		require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))
		return fn
	}
	m.Functions = append(m.Functions, mk(), mk())

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeStructDupFuncName)
}

func TestVerifyFunctionWithNoBlocks(t *testing.T) {
	m := il.NewModule("m")
	b := il.NewBuilder(m)
	_, err := b.AddFunction("empty", il.Signature{Ret: il.Void})
	require.NoError(t, err)

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeStructNoBlocks)
}

func TestVerifyDuplicateBlockName(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)

	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))

	// A second, independently constructed block sharing the entry's name,
	// appended directly: the builder's own CreateBlock would reject this,
	// but a module handed to Verify need not have been built through it.
	dup := &il.BasicBlock{Name: "entry", Func: fn}
	require.NoError(t, il.SetTerminator(dup, il.NewInstruction(il.OpRet, il.Loc{})))
	fn.Blocks = append(fn.Blocks, dup)

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeStructDupBlockName)
}

func TestVerifyMissingTerminator(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)
	_, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeTermMissing)
}

func TestVerifyTerminatorOpcodeInBody(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	// A terminator opcode smuggled into the instruction body, bypassing
	// AddInstruction's own guard against this.
	entry.Instrs = append(entry.Instrs, il.NewInstruction(il.OpRet, il.Loc{}))
	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeTermMisplaced)
}

func TestVerifyTailCallNotFollowedByMatchingRet(t *testing.T) {
	m := il.NewModule("m")
	b := il.NewBuilder(m)
	require.NoError(t, b.DeclareExtern("g", il.Signature{Ret: il.I64}))

	fn := il.NewFunction("f", il.Signature{Ret: il.I64})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	call := il.NewInstruction(il.OpTailCall, il.Loc{})
	call.Callee = "g"
	call.HasResult, call.ResultTy, call.Result = true, il.I64, fn.ReserveTemp()
	require.NoError(t, il.AddInstruction(entry, call))

	// ret with no value, even though the tail call produced one: not a
	// legal tail position.
	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeTermNotTail)
}

func TestVerifyEdgeUnknownDestination(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	br := il.NewInstruction(il.OpBr, il.Loc{})
	br.Targets = []string{"nowhere"}
	br.BrArgs = [][]il.Value{nil}
	require.NoError(t, il.SetTerminator(entry, br))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeEdgeUnknownDest)
}

func TestVerifyEdgeArityAndArgType(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	dest, err := il.CreateBlock(fn, "dest", []il.Type{il.I64}, []string{"p"})
	require.NoError(t, err)
	require.NoError(t, il.SetTerminator(dest, il.NewInstruction(il.OpRet, il.Loc{})))

	br := il.NewInstruction(il.OpBr, il.Loc{})
	br.Targets = []string{"dest"}
	br.BrArgs = [][]il.Value{nil} // dest wants 1 param, supplying 0
	require.NoError(t, il.SetTerminator(entry, br))
	il.LinkEdge(entry, dest)

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeEdgeArity)

	// Right arity, wrong type: dest's parameter is i64, the argument i32.
	br.BrArgs[0] = []il.Value{il.ConstInt64(il.I32, 1)}
	_, res = verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeEdgeArgType)
}

func TestVerifyTypingOperandMismatch(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.I64})
	m.Functions = append(m.Functions, fn)
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, []iltest.InstrSpec{
			iltest.Instr("r", il.OpAdd, il.I64, iltest.CI64(il.I32, 1), iltest.CI64(il.I64, 2)),
		}, iltest.Ret(iltest.CI64(il.I64, 0))),
	})
	require.NoError(t, err)

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeTypeOperandMismatch)
}

func TestVerifySSAUnknownValue(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.I64})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	add := il.NewInstruction(il.OpAdd, il.Loc{})
	add.HasResult, add.ResultTy, add.Result = true, il.I64, fn.ReserveTemp()
	add.Args = []il.Value{il.Temp(999, il.I64), il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(entry, add))
	require.NoError(t, il.SetTerminator(entry, retOf(il.Temp(add.Result, il.I64))))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeSSAUnknownValue)
}

func TestVerifySSARedefinition(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.I64})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	id := fn.ReserveTemp()
	a := il.NewInstruction(il.OpAdd, il.Loc{})
	a.HasResult, a.ResultTy, a.Result = true, il.I64, id
	a.Args = []il.Value{il.ConstInt64(il.I64, 1), il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(entry, a))

	bI := il.NewInstruction(il.OpAdd, il.Loc{})
	bI.HasResult, bI.ResultTy, bI.Result = true, il.I64, id // reuses the same id
	bI.Args = []il.Value{il.ConstInt64(il.I64, 2), il.ConstInt64(il.I64, 2)}
	require.NoError(t, il.AddInstruction(entry, bI))

	require.NoError(t, il.SetTerminator(entry, retOf(il.Temp(id, il.I64))))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeSSARedefinition)
}

func TestVerifySSAUseNotDominatedSameBlock(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.I64})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	laterID := fn.ReserveTemp()

	early := il.NewInstruction(il.OpAdd, il.Loc{})
	early.HasResult, early.ResultTy, early.Result = true, il.I64, fn.ReserveTemp()
	early.Args = []il.Value{il.Temp(laterID, il.I64), il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(entry, early))

	later := il.NewInstruction(il.OpAdd, il.Loc{})
	later.HasResult, later.ResultTy, later.Result = true, il.I64, laterID
	later.Args = []il.Value{il.ConstInt64(il.I64, 1), il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(entry, later))

	require.NoError(t, il.SetTerminator(entry, retOf(il.Temp(early.Result, il.I64))))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeSSAUseNotDominated)
}

func TestVerifyLandingpadMustBeFirstAndReachedViaUnwind(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)

	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	handler, err := il.CreateBlock(fn, "handler", nil, nil)
	require.NoError(t, err)

	// handler reached via a plain br, not an invoke's unwind edge.
	br := il.NewInstruction(il.OpBr, il.Loc{})
	br.Targets = []string{"handler"}
	br.BrArgs = [][]il.Value{nil}
	require.NoError(t, il.SetTerminator(entry, br))
	il.LinkEdge(entry, handler)

	lp := il.NewInstruction(il.OpLandingpad, il.Loc{})
	lp.HasResult, lp.ResultTy, lp.Result = true, il.PtrTy, fn.ReserveTemp()
	require.NoError(t, il.AddInstruction(handler, lp))
	require.NoError(t, il.SetTerminator(handler, il.NewInstruction(il.OpRet, il.Loc{})))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeEHLandingpadPos)
}

func TestVerifyResumeNotDominatedByAnyLandingpad(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpResume, il.Loc{})))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeEHResumeScope)
}

func TestVerifyResumeCrossScope(t *testing.T) {
	m := il.NewModule("m")
	b := il.NewBuilder(m)
	require.NoError(t, b.DeclareExtern("f1", il.Signature{Ret: il.Void}))
	require.NoError(t, b.DeclareExtern("f2", il.Signature{Ret: il.Void}))

	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)

	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	mid, err := il.CreateBlock(fn, "mid", nil, nil)
	require.NoError(t, err)
	h1, err := il.CreateBlock(fn, "h1", nil, nil)
	require.NoError(t, err)
	h2, err := il.CreateBlock(fn, "h2", nil, nil)
	require.NoError(t, err)
	contB, err := il.CreateBlock(fn, "contB", nil, nil)
	require.NoError(t, err)

	invoke1 := il.NewInstruction(il.OpInvoke, il.Loc{})
	invoke1.Callee = "f1"
	invoke1.Targets = []string{"mid"}
	invoke1.BrArgs = [][]il.Value{nil}
	invoke1.Unwind = "h1"
	require.NoError(t, il.SetTerminator(entry, invoke1))
	il.LinkEdge(entry, mid)
	il.LinkEdge(entry, h1)

	invoke2 := il.NewInstruction(il.OpInvoke, il.Loc{})
	invoke2.Callee = "f2"
	invoke2.Targets = []string{"contB"}
	invoke2.BrArgs = [][]il.Value{nil}
	invoke2.Unwind = "h2"
	require.NoError(t, il.SetTerminator(mid, invoke2))
	il.LinkEdge(mid, contB)
	il.LinkEdge(mid, h2)

	lpA := il.NewInstruction(il.OpLandingpad, il.Loc{})
	lpA.HasResult, lpA.ResultTy, lpA.Result = true, il.PtrTy, fn.ReserveTemp()
	require.NoError(t, il.AddInstruction(h1, lpA))
	resumeA := il.NewInstruction(il.OpResume, il.Loc{})
	resumeA.Args = []il.Value{il.Temp(lpA.Result, il.PtrTy)}
	require.NoError(t, il.SetTerminator(h1, resumeA))

	lpB := il.NewInstruction(il.OpLandingpad, il.Loc{})
	lpB.HasResult, lpB.ResultTy, lpB.Result = true, il.PtrTy, fn.ReserveTemp()
	require.NoError(t, il.AddInstruction(h2, lpB))
	// re-raises h1's token instead of its own: cross-scope.
	resumeB := il.NewInstruction(il.OpResume, il.Loc{})
	resumeB.Args = []il.Value{il.Temp(lpA.Result, il.PtrTy)}
	require.NoError(t, il.SetTerminator(h2, resumeB))

	require.NoError(t, il.SetTerminator(contB, il.NewInstruction(il.OpRet, il.Loc{})))

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeEHCrossScope)
}

func TestVerifyExternSignatureMismatch(t *testing.T) {
	m := il.NewModule("m")
	b := il.NewBuilder(m)
	require.NoError(t, b.DeclareExtern("Viper.Foo", il.Signature{Ret: il.I32}))
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	m.Functions = append(m.Functions, fn)
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))

	table := sig.New()
	require.NoError(t, table.Register(sig.Entry{Name: "Viper.Foo", Sig: il.Signature{Ret: il.I64}}))

	_, res := verify.Verify(m, table, il.DiagSink{})
	require.False(t, res.OK())
	require.Contains(t, codesOf(res), verify.CodeExternMismatch)
}

// retOf builds a `ret v` terminator without going through iltest.
func retOf(v il.Value) *il.Instruction {
	in := il.NewInstruction(il.OpRet, il.Loc{})
	in.Args = []il.Value{v}
	return in
}
