package pass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltest"
	"github.com/splanck/viper-sub008/internal/pass"
)

func TestPeepholeEliminatesAddZeroIdentity(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Params: []il.Type{il.I32}, Ret: il.I32})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", []string{"p"}, []il.Type{il.I32}, []iltest.InstrSpec{
			iltest.Instr("x", il.OpAdd, il.I32, iltest.V("p"), iltest.CI64(il.I32, 0)),
		}, iltest.Ret(iltest.V("x"))),
	})
	require.NoError(t, err)

	changed, err := pass.RunPeephole(fn, nil)
	require.NoError(t, err)
	require.True(t, changed)

	entry, _ := fn.BlockByName("entry")
	require.Empty(t, entry.Instrs)
	require.Equal(t, entry.Params[0].ID, entry.Terminator.Args[0].ID)
}

func TestPeepholeCollapsesSExtChain(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Params: []il.Type{il.I8}, Ret: il.I32})
	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", []string{"p"}, []il.Type{il.I8}, []iltest.InstrSpec{
			iltest.Instr("s1", il.OpSExt, il.I16, iltest.V("p")),
			iltest.Instr("s2", il.OpSExt, il.I32, iltest.V("s1")),
		}, iltest.Ret(iltest.V("s2"))),
	})
	require.NoError(t, err)

	changed, err := pass.RunPeephole(fn, nil)
	require.NoError(t, err)
	require.True(t, changed)

	entry, _ := fn.BlockByName("entry")
	var s2 *il.Instruction
	for _, in := range entry.Instrs {
		if in.ResultTy.Equal(il.I32) {
			s2 = in
		}
	}
	require.NotNil(t, s2)
	require.Equal(t, il.OpSExt, s2.Op)
	require.Equal(t, entry.Params[0].ID, s2.Args[0].ID)
	require.True(t, s2.Args[0].Type.Equal(il.I8))
}
