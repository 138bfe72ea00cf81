package pass

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/analysis"
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

// RunMem2Reg replaces alloca+load/store of simple scalar locals with
// block parameters threaded along reconvergent control flow (spec §4.6).
// It is gated on the function's CFG being acyclic: without a loop, a
// single forward topological sweep suffices to thread each promoted
// local's current value, with no need for iterated dominance-frontier
// placement.
//
// Functions containing any exception-handling landingpad are left
// untouched: an unwind target must carry zero block parameters (the
// verifier's own rule), so a promotion that would need to thread a
// value through a landingpad block has no legal place to put it.
func RunMem2Reg(fn *il.Function, table *sig.Table) (bool, error) {
	if fn.Entry() == nil || hasLandingpad(fn) {
		return false, nil
	}
	cfg := analysis.New(fn)
	if !analysis.IsAcyclic(cfg) {
		return false, nil
	}
	allocas := promotableAllocas(fn)
	if len(allocas) == 0 {
		return false, nil
	}
	order, ok := analysis.TopoOrder(cfg)
	if !ok {
		return false, nil
	}
	for _, a := range allocas {
		promoteAlloca(fn, order, a)
	}
	return true, nil
}

func hasLandingpad(fn *il.Function) bool {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == il.OpLandingpad {
				return true
			}
		}
	}
	return false
}

func scalarType(t il.Type) bool {
	switch t.Kind {
	case il.KindI1, il.KindI8, il.KindI16, il.KindI32, il.KindI64, il.KindF32, il.KindF64, il.KindPtr:
		return true
	}
	return false
}

func promotableAllocas(fn *il.Function) []*il.Instruction {
	var out []*il.Instruction
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == il.OpAlloca && isPromotable(fn, in) {
				out = append(out, in)
			}
		}
	}
	return out
}

// isPromotable reports whether alloca's pointer is used only as the
// address operand of a load or store: any other appearance (a gep base,
// a call argument, the value operand of a store, a branch argument)
// means the address escapes and mem2reg cannot eliminate the memory.
func isPromotable(fn *il.Function, alloca *il.Instruction) bool {
	if !scalarType(alloca.AllocaElem) {
		return false
	}
	if len(alloca.Args) != 1 || alloca.Args[0].Kind != il.ValueConst || alloca.Args[0].IntVal != 1 {
		return false
	}
	id := alloca.Result
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in == alloca || !referencesID(in, id) {
				continue
			}
			switch in.Op {
			case il.OpLoad:
				// sole operand is the address: always a safe use.
			case il.OpStore:
				if in.Args[1].Kind == il.ValueTemp && in.Args[1].ID == id {
					return false // stored as a value, not used as an address: escapes
				}
			default:
				return false
			}
		}
		if b.Terminator != nil && referencesID(b.Terminator, id) {
			return false
		}
	}
	return true
}

func referencesID(in *il.Instruction, id il.SsaID) bool {
	hit := func(v il.Value) bool { return v.Kind == il.ValueTemp && v.ID == id }
	for _, v := range in.Args {
		if hit(v) {
			return true
		}
	}
	for _, args := range in.BrArgs {
		for _, v := range args {
			if hit(v) {
				return true
			}
		}
	}
	for _, v := range in.DefaultArgs {
		if hit(v) {
			return true
		}
	}
	for _, c := range in.Cases {
		for _, v := range c.Args {
			if hit(v) {
				return true
			}
		}
	}
	return false
}

func removeAllocaInstr(fn *il.Function, alloca *il.Instruction) {
	for _, b := range fn.Blocks {
		for i, in := range b.Instrs {
			if in == alloca {
				b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
				return
			}
		}
	}
}

func zeroConstant(t il.Type) il.Value {
	switch {
	case t.Kind == il.KindI1:
		return il.ConstBoolVal(false)
	case t.IsFloat():
		return il.ConstFloat64(t, 0)
	case t.Kind == il.KindPtr:
		return il.ConstNullVal(t)
	default:
		return il.ConstInt64(t, 0)
	}
}

// promoteAlloca eliminates alloca, threading its current value through a
// new block parameter at every block with more than one predecessor
// (conservatively added regardless of whether the predecessors' values
// actually differ; a later SCCP/DCE round folds away any parameter that
// turns out to always carry the same constant).
func promoteAlloca(fn *il.Function, order []*il.BasicBlock, alloca *il.Instruction) {
	elemType := alloca.AllocaElem
	id := alloca.Result
	zero := zeroConstant(elemType)

	cur := make(map[il.BlockID]il.Value)
	rename := make(map[il.SsaID]il.Value)
	resolve := func(v il.Value) il.Value {
		for v.Kind == il.ValueTemp {
			r, ok := rename[v.ID]
			if !ok {
				break
			}
			v = r
		}
		return v
	}

	removeAllocaInstr(fn, alloca)

	for _, b := range order {
		var v il.Value
		switch len(b.Preds) {
		case 0:
			v = zero
		case 1:
			v = cur[b.Preds[0].ID]
		default:
			param := il.Param{Name: fmt.Sprintf("mem2reg.%d", id), ID: fn.ReserveTemp(), Type: elemType}
			b.Params = append(b.Params, param)
			for _, p := range b.Preds {
				for _, slot := range outgoingEdges(p.Terminator) {
					if slot.target != b.Name {
						continue
					}
					*slot.args = append(*slot.args, resolve(cur[p.ID]))
				}
			}
			v = il.Temp(param.ID, elemType)
		}

		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			switch {
			case in.Op == il.OpLoad && in.Args[0].Kind == il.ValueTemp && in.Args[0].ID == id:
				rename[in.Result] = v
			case in.Op == il.OpStore && in.Args[0].Kind == il.ValueTemp && in.Args[0].ID == id:
				v = resolve(in.Args[1])
			default:
				kept = append(kept, in)
			}
		}
		b.Instrs = kept
		cur[b.ID] = v
	}

	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			substituteRenamed(in, rename, resolve)
		}
		if b.Terminator != nil {
			substituteRenamed(b.Terminator, rename, resolve)
		}
	}
}
