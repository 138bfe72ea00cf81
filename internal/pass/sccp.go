package pass

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

// latticeKind is the three-point SCCP lattice: not-yet-proven (top), a
// known constant, or proven-not-constant (bottom).
type latticeKind uint8

const (
	latTop latticeKind = iota
	latConst
	latBottom
)

type lattice struct {
	kind latticeKind
	val  il.Value // meaningful only when kind == latConst
}

func meet(a, b lattice) lattice {
	if a.kind == latTop {
		return b
	}
	if b.kind == latTop {
		return a
	}
	if a.kind == latBottom || b.kind == latBottom {
		return lattice{kind: latBottom}
	}
	if constEqual(a.val, b.val) {
		return a
	}
	return lattice{kind: latBottom}
}

// RunSCCP performs sparse conditional constant propagation over fn: a
// fixed-point lattice over both block reachability and SSA values,
// followed by rewriting constant-valued uses in place and collapsing
// conditional branches/switches whose scrutinee resolved to a known
// constant (spec §4.6).
//
// Unlike a classical sparse worklist implementation, each outer round
// re-scans every reachable instruction rather than tracking a queue of
// defs whose lattice value changed. This costs some asymptotic
// efficiency but keeps the fixed point trivial to verify by inspection,
// which matters here since the pass is never run to find out whether it
// converges correctly.
func RunSCCP(fn *il.Function, table *sig.Table) (bool, error) {
	if fn.Entry() == nil {
		return false, nil
	}
	s := &sccpState{fn: fn, reachable: map[il.BlockID]bool{}, value: map[il.SsaID]lattice{}}
	s.run()
	return s.rewrite(), nil
}

type sccpState struct {
	fn        *il.Function
	reachable map[il.BlockID]bool
	value     map[il.SsaID]lattice
}

const maxSCCPRounds = 10000

func (s *sccpState) run() {
	for i := 0; i < maxSCCPRounds; i++ {
		reach := s.propagateReachability()
		val := s.propagateValues()
		if !reach && !val {
			return
		}
	}
}

func (s *sccpState) lookup(v il.Value) lattice {
	switch v.Kind {
	case il.ValueConst:
		return lattice{kind: latConst, val: v}
	case il.ValueTemp:
		if lv, ok := s.value[v.ID]; ok {
			return lv
		}
		return lattice{kind: latTop}
	default:
		return lattice{kind: latBottom}
	}
}

func (s *sccpState) setValue(id il.SsaID, v lattice) bool {
	old, ok := s.value[id]
	if ok && old.kind == latBottom {
		return false
	}
	if ok && old.kind == v.kind && (v.kind != latConst || constEqual(old.val, v.val)) {
		return false
	}
	s.value[id] = v
	return true
}

// --- reachability ----------------------------------------------------------

func (s *sccpState) propagateReachability() bool {
	changed := false
	entry := s.fn.Entry()
	if !s.reachable[entry.ID] {
		s.reachable[entry.ID] = true
		changed = true
	}
	for _, b := range s.fn.Blocks {
		if !s.reachable[b.ID] {
			continue
		}
		for _, name := range s.liveSuccessorNames(b) {
			dest, ok := s.fn.BlockByName(name)
			if !ok || s.reachable[dest.ID] {
				continue
			}
			s.reachable[dest.ID] = true
			changed = true
		}
	}
	return changed
}

func (s *sccpState) liveSuccessorNames(b *il.BasicBlock) []string {
	t := b.Terminator
	if t == nil {
		return nil
	}
	switch t.Op {
	case il.OpBr:
		return []string{t.Targets[0]}
	case il.OpCbr:
		lv := s.lookup(t.Args[0])
		if lv.kind == latConst && lv.val.CKind == il.ConstBool {
			if lv.val.BoolVal {
				return []string{t.Targets[0]}
			}
			return []string{t.Targets[1]}
		}
		return []string{t.Targets[0], t.Targets[1]}
	case il.OpSwitch:
		lv := s.lookup(t.Args[0])
		if lv.kind == latConst && lv.val.CKind == il.ConstInt {
			for _, c := range t.Cases {
				if int64(c.Value) == lv.val.IntVal {
					return []string{c.Label}
				}
			}
			return []string{t.Default}
		}
		names := []string{t.Default}
		for _, c := range t.Cases {
			names = append(names, c.Label)
		}
		return names
	case il.OpInvoke:
		return []string{t.Targets[0], t.Unwind}
	}
	return nil
}

// liveArgEdges is liveSuccessorNames narrowed to the edges that carry
// block-parameter arguments (never invoke's unwind edge), for merging
// block-parameter lattices.
func (s *sccpState) liveArgEdges(b *il.BasicBlock) []edgeSlot {
	t := b.Terminator
	if t == nil {
		return nil
	}
	all := outgoingEdges(t)
	switch t.Op {
	case il.OpCbr:
		lv := s.lookup(t.Args[0])
		if lv.kind == latConst && lv.val.CKind == il.ConstBool {
			if lv.val.BoolVal {
				return all[:1]
			}
			return all[1:]
		}
		return all
	case il.OpSwitch:
		lv := s.lookup(t.Args[0])
		if lv.kind == latConst && lv.val.CKind == il.ConstInt {
			for i, c := range t.Cases {
				if int64(c.Value) == lv.val.IntVal {
					return all[i+1 : i+2]
				}
			}
			return all[:1]
		}
		return all
	default:
		return all
	}
}

// --- value lattice ----------------------------------------------------------

func (s *sccpState) propagateValues() bool {
	changed := false
	for _, b := range s.fn.Blocks {
		if !s.reachable[b.ID] {
			continue
		}
		if s.mergeParams(b) {
			changed = true
		}
		for _, in := range b.Instrs {
			if s.evalInstr(in) {
				changed = true
			}
		}
		if b.Terminator != nil && b.Terminator.HasResult {
			if s.evalInstr(b.Terminator) {
				changed = true
			}
		}
	}
	return changed
}

func (s *sccpState) mergeParams(b *il.BasicBlock) bool {
	changed := false
	for i, p := range b.Params {
		acc := lattice{kind: latTop}
		for _, pred := range s.fn.Blocks {
			if !s.reachable[pred.ID] {
				continue
			}
			for _, e := range s.liveArgEdges(pred) {
				if e.target != b.Name {
					continue
				}
				args := *e.args
				if i >= len(args) {
					continue
				}
				acc = meet(acc, s.lookup(args[i]))
			}
		}
		if s.setValue(p.ID, acc) {
			changed = true
		}
	}
	return changed
}

func (s *sccpState) evalInstr(in *il.Instruction) bool {
	if !in.HasResult {
		return false
	}
	if !isFoldableOp(in.Op) {
		return s.setValue(in.Result, lattice{kind: latBottom})
	}
	ops := make([]lattice, len(in.Args))
	for i, a := range in.Args {
		ops[i] = s.lookup(a)
	}
	for _, lv := range ops {
		if lv.kind == latTop {
			return false // wait for more information
		}
		if lv.kind == latBottom {
			return s.setValue(in.Result, lattice{kind: latBottom})
		}
	}
	constArgs := make([]il.Value, len(ops))
	for i, lv := range ops {
		constArgs[i] = lv.val
	}
	folded, ok := foldConstant(in.Op, constArgs, in.ResultTy)
	if !ok {
		return s.setValue(in.Result, lattice{kind: latBottom})
	}
	return s.setValue(in.Result, lattice{kind: latConst, val: folded})
}

// --- rewrite ----------------------------------------------------------------

func (s *sccpState) rewrite() bool {
	changed := false
	for _, b := range s.fn.Blocks {
		if !s.reachable[b.ID] {
			continue
		}
		for _, in := range b.Instrs {
			if s.substituteConst(in) {
				changed = true
			}
		}
		if b.Terminator != nil {
			if s.substituteConst(b.Terminator) {
				changed = true
			}
			if s.simplifyTerminator(b) {
				changed = true
			}
		}
	}
	return changed
}

func (s *sccpState) substituteConst(in *il.Instruction) bool {
	changed := false
	replace := func(v il.Value) il.Value {
		if v.Kind != il.ValueTemp {
			return v
		}
		lv, ok := s.value[v.ID]
		if !ok || lv.kind != latConst {
			return v
		}
		changed = true
		return lv.val
	}
	for i, a := range in.Args {
		in.Args[i] = replace(a)
	}
	for _, args := range in.BrArgs {
		for i, a := range args {
			args[i] = replace(a)
		}
	}
	for i, a := range in.DefaultArgs {
		in.DefaultArgs[i] = replace(a)
	}
	for _, c := range in.Cases {
		for i, a := range c.Args {
			c.Args[i] = replace(a)
		}
	}
	return changed
}

func (s *sccpState) simplifyTerminator(b *il.BasicBlock) bool {
	t := b.Terminator
	switch t.Op {
	case il.OpCbr:
		lv := s.lookup(t.Args[0])
		if lv.kind != latConst || lv.val.CKind != il.ConstBool {
			return false
		}
		liveIdx, deadIdx := 0, 1
		if !lv.val.BoolVal {
			liveIdx, deadIdx = 1, 0
		}
		s.collapseToBr(b, t.Targets[liveIdx], t.BrArgs[liveIdx], t.Targets[deadIdx])
		return true

	case il.OpSwitch:
		lv := s.lookup(t.Args[0])
		if lv.kind != latConst || lv.val.CKind != il.ConstInt {
			return false
		}
		label, args := t.Default, t.DefaultArgs
		for _, c := range t.Cases {
			if int64(c.Value) == lv.val.IntVal {
				label, args = c.Label, c.Args
				break
			}
		}
		var dead []string
		if label != t.Default {
			dead = append(dead, t.Default)
		}
		for _, c := range t.Cases {
			if c.Label != label {
				dead = append(dead, c.Label)
			}
		}
		s.collapseToBr(b, label, args, dead...)
		return true
	}
	return false
}

func (s *sccpState) collapseToBr(b *il.BasicBlock, liveLabel string, liveArgs []il.Value, deadLabels ...string) {
	for _, name := range deadLabels {
		if dest, ok := s.fn.BlockByName(name); ok {
			unlinkEdge(b, dest)
		}
	}
	nb := il.NewInstruction(il.OpBr, b.Terminator.Loc)
	nb.Scope = b.Terminator.Scope
	nb.Targets = []string{liveLabel}
	nb.BrArgs = [][]il.Value{liveArgs}
	b.Terminator = nb
}

func unlinkEdge(from, to *il.BasicBlock) {
	from.Succs = removeOneBlock(from.Succs, to)
	to.Preds = removeOneBlock(to.Preds, from)
}

func removeOneBlock(list []*il.BasicBlock, target *il.BasicBlock) []*il.BasicBlock {
	for i, b := range list {
		if b == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
