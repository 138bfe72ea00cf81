package verify

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/analysis"
	"github.com/splanck/viper-sub008/internal/il"
)

// --- 3. SSA --------------------------------------------------------------

// defSite locates where an SSA id is defined: a block index plus a
// position within that block. Block parameters sort before every
// instruction (pos -1); a terminator's own result sorts after every
// regular instruction (pos == len(b.Instrs)).
type defSite struct {
	blockIdx int
	pos      int
}

// checkSSA enforces spec §4.5 check 3: every SSA id (including block
// parameters) is defined exactly once, and every use is dominated by its
// definition — same-block uses by instruction order, cross-block uses by
// internal/analysis's dominator tree.
func (v *verifier) checkSSA(fn *il.Function) {
	cfg := analysis.New(fn)
	if cfg.Entry() == nil {
		return
	}
	dt := analysis.Dominators(cfg)

	defs := make(map[il.SsaID]defSite)
	seen := make(map[il.SsaID]bool)
	recordDef := func(id il.SsaID, blockIdx, pos int, loc il.Loc) {
		if seen[id] {
			v.report(Diagnostic{Code: CodeSSARedefinition, Func: fn.Name, Loc: loc,
				Msg: fmt.Sprintf("%%%d is defined more than once", id)})
			return
		}
		seen[id] = true
		defs[id] = defSite{blockIdx: blockIdx, pos: pos}
	}

	for bi, b := range fn.Blocks {
		for _, p := range b.Params {
			recordDef(p.ID, bi, -1, il.Loc{})
		}
		for i, in := range b.Instrs {
			if in.HasResult {
				recordDef(in.Result, bi, i, in.Loc)
			}
		}
		if b.Terminator != nil && b.Terminator.HasResult {
			recordDef(b.Terminator.Result, bi, len(b.Instrs), b.Terminator.Loc)
		}
	}

	checkUse := func(useBlockIdx, usePos int, useLoc il.Loc, val il.Value) {
		if val.Kind != il.ValueTemp {
			return
		}
		d, ok := defs[val.ID]
		if !ok {
			v.report(Diagnostic{Code: CodeSSAUnknownValue, Func: fn.Name, Block: fn.Blocks[useBlockIdx].Name, Loc: useLoc,
				Msg: fmt.Sprintf("use of %%%d has no definition in this function", val.ID)})
			return
		}
		if d.blockIdx == useBlockIdx {
			if d.pos < usePos {
				return
			}
			v.report(Diagnostic{Code: CodeSSAUseNotDominated, Func: fn.Name, Block: fn.Blocks[useBlockIdx].Name, Loc: useLoc,
				Msg: fmt.Sprintf("use of %%%d does not come after its definition", val.ID)})
			return
		}
		if !dt.Dominates(fn.Blocks[d.blockIdx], fn.Blocks[useBlockIdx]) {
			v.report(Diagnostic{Code: CodeSSAUseNotDominated, Func: fn.Name, Block: fn.Blocks[useBlockIdx].Name, Loc: useLoc,
				Msg: fmt.Sprintf("use of %%%d is not dominated by its definition", val.ID)})
		}
	}

	for bi, b := range fn.Blocks {
		for i, in := range b.Instrs {
			for _, op := range allOperands(in) {
				checkUse(bi, i, in.Loc, op)
			}
		}
		if b.Terminator != nil {
			pos := len(b.Instrs)
			for _, op := range allOperands(b.Terminator) {
				checkUse(bi, pos, b.Terminator.Loc, op)
			}
		}
	}
}
