package pass

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

// RunDCE removes instructions with no side effects whose results have no
// remaining uses, iterating to a fixed point within fn: removing one
// dead instruction can make its own operands' sole producer newly dead
// (spec §4.6).
func RunDCE(fn *il.Function, table *sig.Table) (bool, error) {
	changedAny := false
	for dceOnePass(fn, table) {
		changedAny = true
	}
	return changedAny, nil
}

func dceOnePass(fn *il.Function, table *sig.Table) bool {
	used := liveOperandSet(fn)
	changed := false
	for _, b := range fn.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			if in.HasResult && !used[in.Result] && !hasSideEffects(in, table) {
				changed = true
				continue
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
	}
	return changed
}

// hasSideEffects reports whether in must be kept regardless of whether
// its result is used. A direct call to a callee the signature table
// proves pure is the one case the blanket opcode classification
// (il.Opcode.HasSideEffects) doesn't resolve on its own.
func hasSideEffects(in *il.Instruction, table *sig.Table) bool {
	if !in.Op.HasSideEffects() {
		return false
	}
	if in.Op != il.OpCall && in.Op != il.OpTailCall {
		return true
	}
	if table == nil {
		return true
	}
	entry, ok := table.Resolve(in.Callee)
	if !ok {
		return true
	}
	return !entry.Effect.Pure
}

func liveOperandSet(fn *il.Function) map[il.SsaID]bool {
	used := make(map[il.SsaID]bool)
	mark := func(v il.Value) {
		if v.Kind == il.ValueTemp {
			used[v.ID] = true
		}
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			for _, a := range in.Args {
				mark(a)
			}
		}
		t := b.Terminator
		if t == nil {
			continue
		}
		for _, a := range t.Args {
			mark(a)
		}
		for _, args := range t.BrArgs {
			for _, a := range args {
				mark(a)
			}
		}
		for _, a := range t.DefaultArgs {
			mark(a)
		}
		for _, c := range t.Cases {
			for _, a := range c.Args {
				mark(a)
			}
		}
	}
	return used
}
