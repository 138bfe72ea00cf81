package pass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltest"
	"github.com/splanck/viper-sub008/internal/pass"
)

func TestSCCPFoldsConstantArithmeticAndCollapsesBranch(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.I32})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, []iltest.InstrSpec{
			iltest.Instr("a", il.OpAdd, il.I32, iltest.CI64(il.I32, 2), iltest.CI64(il.I32, 3)),
			iltest.Instr("cond", il.OpICmpEQ, il.I1, iltest.V("a"), iltest.CI64(il.I32, 5)),
		}, iltest.Cbr(iltest.V("cond"), "then", nil, "else", nil)),
		iltest.Blk("then", nil, nil, nil, iltest.Ret(iltest.CI64(il.I32, 1))),
		iltest.Blk("else", nil, nil, nil, iltest.Ret(iltest.CI64(il.I32, 2))),
	})
	require.NoError(t, err)

	changed, err := pass.RunSCCP(fn, nil)
	require.NoError(t, err)
	require.True(t, changed)

	entry, _ := fn.BlockByName("entry")
	require.Equal(t, il.OpBr, entry.Terminator.Op)
	require.Equal(t, []string{"then"}, entry.Terminator.Targets)
	require.Len(t, entry.Succs, 1)
	require.Equal(t, "then", entry.Succs[0].Name)

	elseBlk, _ := fn.BlockByName("else")
	require.Empty(t, elseBlk.Preds)
}

func TestSCCPPropagatesConstantThroughBlockParam(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.I32})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, nil, iltest.Br("join", iltest.CI64(il.I32, 7))),
		iltest.Blk("join", []string{"v"}, []il.Type{il.I32}, []iltest.InstrSpec{
			iltest.Instr("r", il.OpAdd, il.I32, iltest.V("v"), iltest.CI64(il.I32, 0)),
		}, iltest.Ret(iltest.V("r"))),
	})
	require.NoError(t, err)

	changed, err := pass.RunSCCP(fn, nil)
	require.NoError(t, err)
	require.True(t, changed)

	join, _ := fn.BlockByName("join")
	require.Equal(t, il.ValueConst, join.Terminator.Args[0].Kind)
	require.Equal(t, int64(7), join.Terminator.Args[0].IntVal)
}
