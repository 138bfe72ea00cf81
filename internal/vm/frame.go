package vm

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// resumeKind describes how a Frame's caller should be resumed once this
// Frame finishes (normally or via unwind) — spec §4.7's frame holds "...
// caller's return slot"; this repo generalizes that single slot into the
// small set of continuations a call site can ask for.
type resumeKind uint8

const (
	resumeNone   resumeKind = iota // outermost frame: nothing to resume
	resumeNext                     // plain call/tail.call: continue same block, next ip
	resumeBranch                   // invoke's normal edge: branch into a target block
)

// Frame is one activation record (spec §4.7): current function/block/ip,
// a register file keyed by SSA id (a branch evaluates all of its block
// arguments before branchTo writes them into it), this frame's alloca
// cells, and the continuation describing how its caller resumes when it
// returns.
type Frame struct {
	Fn    *il.Function
	Block *il.BasicBlock
	IP    int

	Regs map[il.SsaID]rtval.Value

	Allocas []*rtval.Cell

	Caller *Frame

	Resume      resumeKind
	ReturnIP    int    // resumeNext: ip to resume at in Caller.Block
	ReturnReg   il.SsaID
	HasResult   bool
	NormalBlock string       // resumeBranch: target block name
	NormalArgs  []rtval.Value // resumeBranch: already-evaluated block args

	// UnwindBlock names the active invoke's handler block in THIS frame,
	// non-empty only while a callee invoked via `invoke` is in flight.
	UnwindBlock string

	// PendingTrap holds the trap an unwind delivered to this frame's
	// landingpad, kept around so a later `resume` can re-raise it to the
	// next enclosing handler.
	PendingTrap *Trap
}

// NewFrame allocates a fresh activation record for fn, starting at its
// entry block.
func NewFrame(fn *il.Function, caller *Frame) *Frame {
	return &Frame{
		Fn:     fn,
		Block:  fn.Entry(),
		Regs:   make(map[il.SsaID]rtval.Value, 8),
		Caller: caller,
	}
}

// Depth counts this frame and all of its callers, used to enforce
// MaxCallDepth (spec §7 "stack overflow from unbounded recursion").
func (f *Frame) Depth() int {
	n := 0
	for cur := f; cur != nil; cur = cur.Caller {
		n++
	}
	return n
}

func (f *Frame) set(id il.SsaID, v rtval.Value) { f.Regs[id] = v }

func (f *Frame) get(id il.SsaID) (rtval.Value, bool) {
	v, ok := f.Regs[id]
	return v, ok
}

// newAlloca allocates a Cell tracked by this frame so it can be
// conceptually reclaimed (dropped) when the frame returns (spec §5:
// "`Ptr` values from `alloca` live for the current frame").
func (f *Frame) newAlloca(elemType il.Type, count int64) *rtval.Cell {
	c := rtval.NewCell(elemType, count)
	f.Allocas = append(f.Allocas, c)
	return c
}
