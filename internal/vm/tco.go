package vm

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// tailCallReuse implements tail-call optimization (spec §4.7, build
// option default on): instead of pushing a child Frame, the current
// frame is repurposed in place for the callee. Its Caller, Resume,
// ReturnIP/ReturnReg/NormalBlock/NormalArgs/UnwindBlock are left
// untouched, since those describe how *this* frame resumes whatever
// called it — a tail call does not change who that is, only what code
// is running until the matching `ret`. Call depth therefore never grows
// across a chain of tail calls (Boundary Scenario D).
func (r *Runner) tailCallReuse(fn *il.Function, args []rtval.Value) {
	f := r.top
	f.Fn = fn
	f.Block = fn.Entry()
	f.IP = 0
	f.Regs = make(map[il.SsaID]rtval.Value, len(args))
	f.Allocas = nil
	bindParams(f, fn, args)
}
