package il_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
)

func TestCreateBlockAssignsFreshParamIDs(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.I64})
	entry, err := il.CreateBlock(fn, "entry", []il.Type{il.I64, il.I64}, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, entry.Params, 2)
	require.NotEqual(t, entry.Params[0].ID, entry.Params[1].ID)

	_, err = il.CreateBlock(fn, "entry", nil, nil)
	require.Error(t, err, "duplicate block name must be rejected")
}

func TestAddInstructionRejectsAfterTerminator(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	b, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	require.NoError(t, il.SetTerminator(b, il.NewInstruction(il.OpRet, il.Loc{})))

	err = il.AddInstruction(b, il.NewInstruction(il.OpAdd, il.Loc{}))
	require.Error(t, err)

	err = il.SetTerminator(b, il.NewInstruction(il.OpRet, il.Loc{}))
	require.Error(t, err, "re-terminating a block must be rejected")
}

func TestBranchChecksArity(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	exit, err := il.CreateBlock(fn, "exit", []il.Type{il.I64}, []string{"x"})
	require.NoError(t, err)

	err = il.Branch(entry, exit, nil)
	require.Error(t, err, "missing branch argument must be rejected")

	err = il.Branch(entry, exit, []il.Value{il.ConstInt64(il.I64, 1)})
	require.NoError(t, err)
	require.Len(t, exit.Preds, 1)
	require.Len(t, entry.Succs, 1)
}

func TestBranchChecksArgTypes(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	require.NoError(t, err)
	exit, err := il.CreateBlock(fn, "exit", []il.Type{il.I64}, []string{"x"})
	require.NoError(t, err)

	err = il.Branch(entry, exit, []il.Value{il.ConstBoolVal(true)})
	require.Error(t, err, "mismatched arg type must be rejected")
}

func TestReserveTempIsMonotonic(t *testing.T) {
	fn := il.NewFunction("f", il.Signature{Ret: il.Void})
	a := fn.ReserveTemp()
	b := fn.ReserveTemp()
	require.Less(t, uint32(a), uint32(b))
}
