package iltext_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltext"
)

// buildSampleModule constructs a module by hand, covering arithmetic, a
// compare, memory ops (alloca/gep/store/load), a cbr, an indirect call,
// an @loc suffix, a struct type, an extern, and a global with a negative
// literal — opcode families iltext's grammar has to round trip (spec §8,
// property 1). switch and invoke are covered by TestParseSwitchAndInvoke.
func buildSampleModule(t *testing.T) *il.Module {
	t.Helper()
	m := il.NewModule("sample")
	b := il.NewBuilder(m)

	require.NoError(t, b.DeclareExtern("puts", il.Signature{Params: []il.Type{il.StrTy}, Ret: il.I32}))
	require.NoError(t, b.DeclareGlobal("limit", il.I64, il.ConstInt64(il.I64, -5)))
	require.NoError(t, b.DefineStruct("Pair", []il.FieldDecl{
		{Name: "a", Type: il.I64},
		{Name: "b", Type: il.I64},
	}))

	fn, err := b.AddFunction("classify", il.Signature{Params: []il.Type{il.I64}, Ret: il.I64})
	require.NoError(t, err)

	blkEntry, cerr := il.CreateBlock(fn, "entry", []il.Type{il.I64}, []string{"n"})
	require.NoError(t, cerr)
	nVal := il.Temp(blkEntry.Params[0].ID, il.I64)

	addInstr := il.NewInstruction(il.OpAdd, il.Loc{})
	addInstr.HasResult = true
	addInstr.ResultTy = il.I64
	addInstr.Result = fn.ReserveTemp()
	addInstr.Args = []il.Value{nVal, il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(blkEntry, addInstr))
	sum := il.Temp(addInstr.Result, il.I64)

	cmpInstr := il.NewInstruction(il.OpICmpSLT, il.Loc{})
	cmpInstr.HasResult = true
	cmpInstr.ResultTy = il.I1
	cmpInstr.Result = fn.ReserveTemp()
	cmpInstr.Args = []il.Value{sum, il.ConstInt64(il.I64, 10)}
	require.NoError(t, il.AddInstruction(blkEntry, cmpInstr))
	cond := il.Temp(cmpInstr.Result, il.I1)

	blkSmall, cerr := il.CreateBlock(fn, "small", nil, nil)
	require.NoError(t, cerr)
	blkBig, cerr := il.CreateBlock(fn, "big", nil, nil)
	require.NoError(t, cerr)

	require.NoError(t, il.CondBranch(blkEntry, cond, blkSmall, nil, blkBig, nil))

	retSmall := il.NewInstruction(il.OpRet, il.Loc{})
	retSmall.Args = []il.Value{sum}
	require.NoError(t, il.SetTerminator(blkSmall, retSmall))

	allocaInstr := il.NewInstruction(il.OpAlloca, il.Loc{})
	allocaInstr.HasResult = true
	allocaInstr.ResultTy = il.PtrTy
	allocaInstr.Result = fn.ReserveTemp()
	allocaInstr.AllocaElem = il.I64
	allocaInstr.Args = []il.Value{il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(blkBig, allocaInstr))
	allocaPtr := il.Temp(allocaInstr.Result, il.PtrTy)

	gepInstr := il.NewInstruction(il.OpGep, il.Loc{})
	gepInstr.HasResult = true
	gepInstr.ResultTy = il.PtrTy
	gepInstr.Result = fn.ReserveTemp()
	gepInstr.Args = []il.Value{allocaPtr, il.ConstInt64(il.I64, 0)}
	require.NoError(t, il.AddInstruction(blkBig, gepInstr))
	gepPtr := il.Temp(gepInstr.Result, il.PtrTy)

	storeInstr := il.NewInstruction(il.OpStore, il.Loc{})
	storeInstr.MemType = il.I64
	storeInstr.Args = []il.Value{gepPtr, sum}
	require.NoError(t, il.AddInstruction(blkBig, storeInstr))

	loadInstr := il.NewInstruction(il.OpLoad, il.Loc{})
	loadInstr.HasResult = true
	loadInstr.ResultTy = il.I64
	loadInstr.Result = fn.ReserveTemp()
	loadInstr.Args = []il.Value{gepPtr}
	require.NoError(t, il.AddInstruction(blkBig, loadInstr))
	loaded := il.Temp(loadInstr.Result, il.I64)

	fptrSig := &il.Signature{Params: []il.Type{il.I64}, Ret: il.I64}
	callIndirect := il.NewInstruction(il.OpCallIndirect, il.Loc{})
	callIndirect.HasResult = true
	callIndirect.ResultTy = il.I64
	callIndirect.Result = fn.ReserveTemp()
	callIndirect.Sig = fptrSig
	callIndirect.Args = []il.Value{il.GlobalRefVal("classify", il.FuncOf(&fn.Sig)), loaded}
	require.NoError(t, il.AddInstruction(blkBig, callIndirect))
	indirectResult := il.Temp(callIndirect.Result, il.I64)

	retBig := il.NewInstruction(il.OpRet, il.Loc{})
	retBig.Args = []il.Value{indirectResult}
	retBig.Loc = il.Loc{File: "sample.vi", Line: 42, Col: 7}
	require.NoError(t, il.SetTerminator(blkBig, retBig))

	return m
}

func TestEmitParseRoundTrip(t *testing.T) {
	m := buildSampleModule(t)
	src := iltext.Emit(m)

	m2, errs := iltext.Parse(src, "sample.il")
	require.Empty(t, errs, "parse errors on emitted text:\n%s", src)

	require.Len(t, m2.Externs, 1)
	require.Equal(t, "puts", m2.Externs[0].Name)
	require.Equal(t, il.StrTy, m2.Externs[0].Sig.Params[0])
	require.Equal(t, il.I32, m2.Externs[0].Sig.Ret)

	require.Len(t, m2.Globals, 1)
	require.Equal(t, "limit", m2.Globals[0].Name)
	require.Equal(t, int64(-5), m2.Globals[0].Value.IntVal)

	require.Len(t, m2.Types, 1)
	require.Equal(t, il.StructID("Pair"), m2.Types[0].ID)
	require.Len(t, m2.Types[0].Fields, 2)

	fn2, ok := m2.FuncByName("classify")
	require.True(t, ok)
	require.Len(t, fn2.Blocks, 3)

	entry2 := fn2.Blocks[0]
	require.Equal(t, "entry", entry2.Name)
	require.Len(t, entry2.Params, 1)
	require.Len(t, entry2.Instrs, 2)
	require.Equal(t, il.OpAdd, entry2.Instrs[0].Op)
	require.Equal(t, il.OpICmpSLT, entry2.Instrs[1].Op)
	require.NotNil(t, entry2.Terminator)
	require.Equal(t, il.OpCbr, entry2.Terminator.Op)
	require.Len(t, entry2.Succs, 2)

	var big2 *il.BasicBlock
	for _, blk := range fn2.Blocks {
		if blk.Name == "big" {
			big2 = blk
		}
	}
	require.NotNil(t, big2)
	require.Len(t, big2.Instrs, 5)
	require.Equal(t, il.OpAlloca, big2.Instrs[0].Op)
	require.Equal(t, il.I64, big2.Instrs[0].AllocaElem)
	require.Equal(t, il.OpGep, big2.Instrs[1].Op)
	require.Equal(t, il.OpStore, big2.Instrs[2].Op)
	require.Equal(t, il.I64, big2.Instrs[2].MemType)
	require.Equal(t, il.OpLoad, big2.Instrs[3].Op)
	require.Equal(t, il.OpCallIndirect, big2.Instrs[4].Op)

	require.NotNil(t, big2.Terminator)
	require.Equal(t, il.OpRet, big2.Terminator.Op)
	require.Equal(t, 42, big2.Terminator.Loc.Line)
	require.Equal(t, 7, big2.Terminator.Loc.Col)

	// The call.indirect operand's function-pointer type must round trip
	// with the "(params) -> ret" arrow, not Signature.String()'s bare
	// "func(params) ret" form, or re-emitting m2 would drop the arrow.
	src2 := iltext.Emit(m2)
	require.Contains(t, src2, "func(i64) -> i64")
}

func TestParseSwitchAndInvoke(t *testing.T) {
	src := `extern raise(i64) -> void

fn dispatch(i64) -> i64 {
entry(v0: i64):
  switch.i32 v0, default other(), case 0 -> zero(), case 1 -> one()
other():
  invoke @raise(v0), normal cont(), unwind handler
cont():
  ret i64 0
handler():
  landingpad
  resume void
zero():
  ret i64 100
one():
  ret i64 200
}
`
	m, errs := iltext.Parse(src, "switch.il")
	require.Empty(t, errs, "parse errors:\n%v", errs)

	fn, ok := m.FuncByName("dispatch")
	require.True(t, ok)
	require.Len(t, fn.Blocks, 6)

	entry, ok := fn.BlockByName("entry")
	require.True(t, ok)
	require.Equal(t, il.OpSwitch, entry.Terminator.Op)
	require.Equal(t, "other", entry.Terminator.Default)
	require.Len(t, entry.Terminator.Cases, 2)
	require.Equal(t, int32(0), entry.Terminator.Cases[0].Value)
	require.Equal(t, "zero", entry.Terminator.Cases[0].Label)

	handler, ok := fn.BlockByName("handler")
	require.True(t, ok)
	require.Len(t, handler.Instrs, 1)
	require.Equal(t, il.OpLandingpad, handler.Instrs[0].Op)
	require.Equal(t, il.OpResume, handler.Terminator.Op)
	require.Empty(t, handler.Terminator.Args)

	other, ok := fn.BlockByName("other")
	require.True(t, ok)
	require.Equal(t, il.OpInvoke, other.Terminator.Op)
	require.Equal(t, "raise", other.Terminator.Callee)
	require.Equal(t, "handler", other.Terminator.Unwind)

	// Forward references (switch targets defined later in the text, and
	// dispatch's own block referenced before its own definition ends)
	// resolve to real CFG edges once the whole function is parsed.
	require.NotEmpty(t, entry.Succs)
	require.Len(t, entry.Succs, 3)

	src2 := iltext.Emit(m)
	m3, errs := iltext.Parse(src2, "switch2.il")
	require.Empty(t, errs)
	fn3, ok := m3.FuncByName("dispatch")
	require.True(t, ok)
	require.Len(t, fn3.Blocks, 6)
}

func TestNegativeLiteralRoundTrip(t *testing.T) {
	m := il.NewModule("neg")
	b := il.NewBuilder(m)
	require.NoError(t, b.DeclareGlobal("g", il.F64, il.ConstFloat64(il.F64, -3.5)))

	src := iltext.Emit(m)
	require.Contains(t, src, "global g f64 = -3.5")

	m2, errs := iltext.Parse(src, "neg.il")
	require.Empty(t, errs)
	require.Equal(t, -3.5, m2.Globals[0].Value.FloatVal)
}

// TestEmitIsIdempotentAcrossReparse guards the property the other
// round-trip tests only spot-check field by field: emit, reparse, emit
// again must produce byte-identical text. cmp.Diff gives a readable
// unified diff the moment some field (a dropped flag, a reordered
// attribute) breaks that idempotence, instead of a single opaque
// string-inequality failure.
func TestEmitIsIdempotentAcrossReparse(t *testing.T) {
	m := buildSampleModule(t)
	first := iltext.Emit(m)

	m2, errs := iltext.Parse(first, "sample.il")
	require.Empty(t, errs)
	second := iltext.Emit(m2)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("emit output not idempotent across reparse (-first +second):\n%s", diff)
	}
}
