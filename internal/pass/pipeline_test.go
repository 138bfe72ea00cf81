package pass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltest"
	"github.com/splanck/viper-sub008/internal/pass"
	"github.com/splanck/viper-sub008/internal/verify"
)

func TestPipelineDefaultOrderIsSccpDceMem2regPeephole(t *testing.T) {
	p := pass.Default(nil)
	require.Len(t, p.Passes, 4)
	require.Equal(t, []string{"sccp", "dce", "mem2reg", "peephole"}, []string{
		p.Passes[0].Name, p.Passes[1].Name, p.Passes[2].Name, p.Passes[3].Name,
	})
}

// TestPipelineRunFoldsAndPrunesThenStillVerifies builds a function whose
// constant-folding opens up dead code (the branch collapses to `then`,
// leaving `else` unreachable, and `then` computes a value nothing uses),
// runs the full default pipeline in debug mode, and checks the result is
// both changed and still verifiable.
func TestPipelineRunFoldsAndPrunesThenStillVerifies(t *testing.T) {
	m := il.NewModule("m")
	fn := il.NewFunction("f", il.Signature{Ret: il.I32})
	m.Functions = append(m.Functions, fn)

	_, err := iltest.Build(fn, []iltest.BlockSpec{
		iltest.Blk("entry", nil, nil, []iltest.InstrSpec{
			iltest.Instr("a", il.OpAdd, il.I32, iltest.CI64(il.I32, 2), iltest.CI64(il.I32, 3)),
			iltest.Instr("cond", il.OpICmpEQ, il.I1, iltest.V("a"), iltest.CI64(il.I32, 5)),
		}, iltest.Cbr(iltest.V("cond"), "then", nil, "else", nil)),
		iltest.Blk("then", nil, nil, []iltest.InstrSpec{
			iltest.Instr("unused", il.OpAdd, il.I32, iltest.CI64(il.I32, 1), iltest.CI64(il.I32, 1)),
		}, iltest.Ret(iltest.CI64(il.I32, 1))),
		iltest.Blk("else", nil, nil, nil, iltest.Ret(iltest.CI64(il.I32, 2))),
	})
	require.NoError(t, err)

	p := pass.Default(nil)
	p.Debug = true
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	entry, _ := fn.BlockByName("entry")
	require.Equal(t, il.OpBr, entry.Terminator.Op)
	require.Equal(t, []string{"then"}, entry.Terminator.Targets)

	thenB, _ := fn.BlockByName("then")
	require.Empty(t, thenB.Instrs)

	_, res := verify.Verify(m, nil, il.DiagSink{})
	require.True(t, res.OK(), "%v", res.Diagnostics)
}
