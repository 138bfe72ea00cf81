package pass

import "github.com/splanck/viper-sub008/internal/il"

// edgeSlot is one outgoing CFG edge of a terminator: the destination
// block's name and a pointer to its branch-argument slice, so callers
// can either read it (SCCP's reachability/lattice merge) or append to it
// (Mem2Reg threading a new block parameter onto every predecessor edge).
type edgeSlot struct {
	target string
	args   *[]il.Value
}

// outgoingEdges enumerates every argument-carrying edge t's terminator
// carries, in the same order the verifier walks them in (checkEdges):
// normal target(s), then switch cases. An invoke's unwind edge is
// deliberately excluded — the verifier requires unwind targets to carry
// zero block parameters, so neither SCCP's lattice merge nor Mem2Reg's
// parameter threading may ever treat it as one.
func outgoingEdges(t *il.Instruction) []edgeSlot {
	if t == nil {
		return nil
	}
	switch t.Op {
	case il.OpBr:
		return []edgeSlot{{t.Targets[0], &t.BrArgs[0]}}
	case il.OpCbr:
		return []edgeSlot{{t.Targets[0], &t.BrArgs[0]}, {t.Targets[1], &t.BrArgs[1]}}
	case il.OpSwitch:
		out := []edgeSlot{{t.Default, &t.DefaultArgs}}
		for i := range t.Cases {
			out = append(out, edgeSlot{t.Cases[i].Label, &t.Cases[i].Args})
		}
		return out
	case il.OpInvoke:
		return []edgeSlot{{t.Targets[0], &t.BrArgs[0]}}
	}
	return nil
}

// substituteRenamed rewrites every Temp operand of in that appears in
// rename to its resolved replacement. Shared by Mem2Reg (retiring
// promoted loads) and Peephole (retiring identity-eliminated
// instructions) — both delete a def and need every later use fixed up.
func substituteRenamed(in *il.Instruction, rename map[il.SsaID]il.Value, resolve func(il.Value) il.Value) {
	fix := func(v il.Value) il.Value {
		if v.Kind != il.ValueTemp {
			return v
		}
		if _, ok := rename[v.ID]; !ok {
			return v
		}
		return resolve(v)
	}
	for i, v := range in.Args {
		in.Args[i] = fix(v)
	}
	for _, args := range in.BrArgs {
		for i, v := range args {
			args[i] = fix(v)
		}
	}
	for i, v := range in.DefaultArgs {
		in.DefaultArgs[i] = fix(v)
	}
	for _, c := range in.Cases {
		for i, v := range c.Args {
			c.Args[i] = fix(v)
		}
	}
}
