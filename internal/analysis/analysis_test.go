package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/analysis"
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltest"
	"github.com/splanck/viper-sub008/internal/sig"
)

// diamond builds entry -> {left, right} -> merge.
func diamond(t *testing.T) *il.Function {
	t.Helper()
	fn := il.NewFunction("diamond", il.Signature{Params: []il.Type{il.I1}, Ret: il.I64})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", []string{"cond"}, []il.Type{il.I1}, nil,
			iltest.Cbr(iltest.V("cond"), "left", nil, "right", nil)),
		iltest.Blk("left", nil, nil,
			[]iltest.InstrSpec{iltest.Instr("l", il.OpAdd, il.I64, iltest.CI64(il.I64, 1), iltest.CI64(il.I64, 1))},
			iltest.Br("merge")),
		iltest.Blk("right", nil, nil,
			[]iltest.InstrSpec{iltest.Instr("r", il.OpAdd, il.I64, iltest.CI64(il.I64, 2), iltest.CI64(il.I64, 2))},
			iltest.Br("merge")),
		iltest.Blk("merge", nil, nil, nil, iltest.Ret(iltest.CI64(il.I64, 0))),
	})
	require.NoError(t, err)
	return fn
}

// loopy builds entry -> head -> body -> head (back edge), body -> exit.
func loopy(t *testing.T) *il.Function {
	t.Helper()
	fn := il.NewFunction("loopy", il.Signature{Ret: il.I64})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, nil, iltest.Br("head")),
		iltest.Blk("head", nil, nil, nil,
			iltest.Cbr(iltest.CBool(true), "body", nil, "exit", nil)),
		iltest.Blk("body", nil, nil, nil, iltest.Br("head")),
		iltest.Blk("exit", nil, nil, nil, iltest.Ret(iltest.CI64(il.I64, 0))),
	})
	require.NoError(t, err)
	return fn
}

func TestPostOrderAndReversePostOrder(t *testing.T) {
	fn := diamond(t)
	c := analysis.New(fn)

	po := analysis.PostOrder(c)
	require.Len(t, po, 4)
	require.Equal(t, "merge", po[0].Name, "merge has no successors, so it postorders first")
	require.Equal(t, "entry", po[len(po)-1].Name, "entry postorders last")

	rpo := analysis.ReversePostOrder(c)
	require.Equal(t, "entry", rpo[0].Name)
	require.Equal(t, "merge", rpo[len(rpo)-1].Name)
}

func TestIsAcyclicAndTopoOrder(t *testing.T) {
	diamondCFG := analysis.New(diamond(t))
	require.True(t, analysis.IsAcyclic(diamondCFG))
	order, ok := analysis.TopoOrder(diamondCFG)
	require.True(t, ok)
	require.Len(t, order, 4)

	loopCFG := analysis.New(loopy(t))
	require.False(t, analysis.IsAcyclic(loopCFG))
	_, ok = analysis.TopoOrder(loopCFG)
	require.False(t, ok)
}

func TestDominatorsDiamond(t *testing.T) {
	fn := diamond(t)
	c := analysis.New(fn)
	dt := analysis.Dominators(c)

	entry, _ := fn.BlockByName("entry")
	left, _ := fn.BlockByName("left")
	right, _ := fn.BlockByName("right")
	merge, _ := fn.BlockByName("merge")

	_, ok := dt.IDom(entry)
	require.False(t, ok, "entry has no immediate dominator")

	idomLeft, ok := dt.IDom(left)
	require.True(t, ok)
	require.Equal(t, entry, idomLeft)

	idomMerge, ok := dt.IDom(merge)
	require.True(t, ok)
	require.Equal(t, entry, idomMerge, "merge is reached via both arms, so only entry strictly dominates it")

	require.True(t, dt.Dominates(entry, merge))
	require.False(t, dt.Dominates(left, merge))
	require.True(t, dt.Dominates(entry, entry))

	kids := dt.Children(entry)
	require.Len(t, kids, 3, "entry immediately dominates left, right, and merge")
}

func TestDominatorsLoop(t *testing.T) {
	fn := loopy(t)
	c := analysis.New(fn)
	dt := analysis.Dominators(c)

	entry, _ := fn.BlockByName("entry")
	head, _ := fn.BlockByName("head")
	body, _ := fn.BlockByName("body")
	exit, _ := fn.BlockByName("exit")

	idomHead, ok := dt.IDom(head)
	require.True(t, ok)
	require.Equal(t, entry, idomHead)

	idomBody, ok := dt.IDom(body)
	require.True(t, ok)
	require.Equal(t, head, idomBody)

	idomExit, ok := dt.IDom(exit)
	require.True(t, ok)
	require.Equal(t, head, idomExit)

	require.True(t, dt.Dominates(head, body))
	require.True(t, dt.Dominates(head, exit))
	require.False(t, dt.Dominates(body, head), "the loop back edge does not make body dominate head")
}

func TestBasicAAAlloca(t *testing.T) {
	fn := il.NewFunction("aa", il.Signature{Ret: il.Void})
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	allocaA := il.NewInstruction(il.OpAlloca, il.Loc{})
	allocaA.HasResult, allocaA.ResultTy, allocaA.Result = true, il.PtrTy, fn.ReserveTemp()
	allocaA.AllocaElem = il.I64
	allocaA.Args = []il.Value{il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(entry, allocaA))
	ptrA := il.Temp(allocaA.Result, il.PtrTy)

	allocaB := il.NewInstruction(il.OpAlloca, il.Loc{})
	allocaB.HasResult, allocaB.ResultTy, allocaB.Result = true, il.PtrTy, fn.ReserveTemp()
	allocaB.AllocaElem = il.I64
	allocaB.Args = []il.Value{il.ConstInt64(il.I64, 1)}
	require.NoError(t, il.AddInstruction(entry, allocaB))
	ptrB := il.Temp(allocaB.Result, il.PtrTy)

	gepA := il.NewInstruction(il.OpGep, il.Loc{})
	gepA.HasResult, gepA.ResultTy, gepA.Result = true, il.PtrTy, fn.ReserveTemp()
	gepA.Args = []il.Value{ptrA, il.ConstInt64(il.I64, 8)}
	require.NoError(t, il.AddInstruction(entry, gepA))
	gepPtrA := il.Temp(gepA.Result, il.PtrTy)

	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))

	ai := analysis.NewAliasInfo(fn)
	require.Equal(t, analysis.MustAlias, ai.Alias(ptrA, ptrA))
	require.Equal(t, analysis.NoAlias, ai.Alias(ptrA, ptrB))
	require.Equal(t, analysis.MayAlias, ai.Alias(ptrA, gepPtrA), "same alloca reached through a gep hop can't be proven MustAlias")
}

func TestCallModRefFallsBackToSignatureTable(t *testing.T) {
	m := il.NewModule("m")
	table := sig.Default()
	mr := analysis.CallModRef(m, table, "Viper.Math.Sqrt")
	require.Equal(t, analysis.ModRef{}, mr, "Sqrt is pure per the default signature table: no reads, writes, or traps")

	unknown := analysis.CallModRef(m, table, "Viper.DoesNotExist")
	require.True(t, unknown.Reads && unknown.Writes && unknown.MayTrap, "an unresolvable callee is treated conservatively")
}
