package verify

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/analysis"
	"github.com/splanck/viper-sub008/internal/il"
)

// --- 6. Exception-handling scope ------------------------------------------

// checkExceptionScopes enforces spec §4.5 check 6: a landingpad is legal
// only as the first instruction of a block reachable exclusively via an
// invoke's unwind edge; a resume is legal only in a block dominated by a
// landingpad. Nested handler scopes form a tree keyed by dominance — the
// scope enclosing a block is its nearest dominating landingpad block —
// and a resume that names a token from an outer scope while a closer
// scope encloses it is rejected as a cross-scope resume.
func (v *verifier) checkExceptionScopes(fn *il.Function) {
	cfg := analysis.New(fn)
	var dt *analysis.DomTree
	if cfg.Entry() != nil {
		dt = analysis.Dominators(cfg)
	}

	for _, b := range fn.Blocks {
		for idx, in := range b.Instrs {
			if in.Op != il.OpLandingpad {
				continue
			}
			v.checkLandingpadPosition(fn, b, in, idx)
		}
		t := b.Terminator
		if t == nil || t.Op != il.OpResume {
			continue
		}
		v.checkResumeScope(fn, b, t, dt)
	}
}

func (v *verifier) checkLandingpadPosition(fn *il.Function, b *il.BasicBlock, in *il.Instruction, idx int) {
	if idx != 0 {
		v.report(Diagnostic{Code: CodeEHLandingpadPos, Func: fn.Name, Block: b.Name, Loc: in.Loc,
			Msg: "landingpad must be the first instruction of its block"})
		return
	}
	if len(b.Preds) == 0 {
		v.report(Diagnostic{Code: CodeEHLandingpadPos, Func: fn.Name, Block: b.Name, Loc: in.Loc,
			Msg: "landingpad block is unreachable"})
		return
	}
	for _, p := range b.Preds {
		if p.Terminator == nil || p.Terminator.Op != il.OpInvoke || p.Terminator.Unwind != b.Name {
			v.report(Diagnostic{Code: CodeEHLandingpadPos, Func: fn.Name, Block: b.Name, Loc: in.Loc,
				Msg: fmt.Sprintf("block %q is reached from %q other than as an invoke unwind edge", b.Name, p.Name)})
		}
	}
}

func (v *verifier) checkResumeScope(fn *il.Function, b *il.BasicBlock, t *il.Instruction, dt *analysis.DomTree) {
	if dt == nil {
		v.report(Diagnostic{Code: CodeEHResumeScope, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: "resume in a function with no reachable entry"})
		return
	}
	handler, ok := nearestHandler(dt, b)
	if !ok {
		v.report(Diagnostic{Code: CodeEHResumeScope, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: "resume is not dominated by any landingpad"})
		return
	}
	if len(t.Args) != 1 || t.Args[0].Kind != il.ValueTemp {
		return
	}
	tok := handler.Instrs[0]
	if tok.HasResult && t.Args[0].ID != tok.Result {
		v.report(Diagnostic{Code: CodeEHCrossScope, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: fmt.Sprintf("resume re-raises a token from outside the nearest enclosing handler %q", handler.Name)})
	}
}

// nearestHandler walks b's immediate-dominator chain, starting at b
// itself, for the closest block whose first instruction is landingpad.
func nearestHandler(dt *analysis.DomTree, b *il.BasicBlock) (*il.BasicBlock, bool) {
	cur := b
	for {
		if len(cur.Instrs) > 0 && cur.Instrs[0].Op == il.OpLandingpad {
			return cur, true
		}
		parent, ok := dt.IDom(cur)
		if !ok {
			return nil, false
		}
		cur = parent
	}
}
