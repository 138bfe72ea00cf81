package pass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltest"
	"github.com/splanck/viper-sub008/internal/pass"
)

func TestDCERemovesUnusedPureInstruction(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.I32})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, []iltest.InstrSpec{
			iltest.Instr("x", il.OpAdd, il.I32, iltest.CI64(il.I32, 1), iltest.CI64(il.I32, 2)),
			iltest.Instr("y", il.OpAdd, il.I32, iltest.CI64(il.I32, 3), iltest.CI64(il.I32, 4)),
		}, iltest.Ret(iltest.V("y"))),
	})
	require.NoError(t, err)

	changed, err := pass.RunDCE(fn, nil)
	require.NoError(t, err)
	require.True(t, changed)

	entry, _ := fn.BlockByName("entry")
	require.Len(t, entry.Instrs, 1)
	require.Equal(t, int64(4), entry.Instrs[0].Args[1].IntVal)
}

func TestDCEIteratesToFixpointOnChain(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.I32})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, []iltest.InstrSpec{
			iltest.Instr("x", il.OpAdd, il.I32, iltest.CI64(il.I32, 1), iltest.CI64(il.I32, 2)),
			iltest.Instr("z", il.OpAdd, il.I32, iltest.V("x"), iltest.CI64(il.I32, 1)),
		}, iltest.Ret(iltest.CI64(il.I32, 0))),
	})
	require.NoError(t, err)

	changed, err := pass.RunDCE(fn, nil)
	require.NoError(t, err)
	require.True(t, changed)

	entry, _ := fn.BlockByName("entry")
	require.Empty(t, entry.Instrs)
}

func TestDCEKeepsStore(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)

	alloca := il.NewInstruction(il.OpAlloca, il.Loc{})
	alloca.HasResult, alloca.ResultTy, alloca.Result = true, il.PtrTy, fn.ReserveTemp()
	alloca.AllocaElem = il.I32
	alloca.Args = []il.Value{il.ConstInt64(il.I32, 1)}
	require.NoError(t, il.AddInstruction(entry, alloca))

	store := il.NewInstruction(il.OpStore, il.Loc{})
	store.MemType = il.I32
	store.Args = []il.Value{il.Temp(alloca.Result, il.PtrTy), il.ConstInt64(il.I32, 10)}
	require.NoError(t, il.AddInstruction(entry, store))

	require.NoError(t, il.SetTerminator(entry, il.NewInstruction(il.OpRet, il.Loc{})))

	changed, err := pass.RunDCE(fn, nil)
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, entry.Instrs, 2)
}
