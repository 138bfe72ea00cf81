package vm

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// Status is the Runner's state (spec §4.7: "Ready -> Running ->
// {Halted|Trapped|Breakpoint|Paused|StepLimit}").
type Status uint8

const (
	StatusReady Status = iota
	StatusRunning
	StatusHalted
	StatusTrapped
	StatusBreakpoint
	StatusPaused
	StatusStepLimit
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusHalted:
		return "halted"
	case StatusTrapped:
		return "trapped"
	case StatusBreakpoint:
		return "breakpoint"
	case StatusPaused:
		return "paused"
	case StatusStepLimit:
		return "step-limit"
	default:
		return "unknown"
	}
}

// ExternCaller dispatches one call to a canonical Viper.* extern name.
// internal/rtffi.Bridge implements this; the VM depends only on this
// narrow interface so it never needs to import rtffi or hostrt.
type ExternCaller interface {
	CallExtern(name string, args []rtval.Value) (rtval.Value, error)
}

// Runner drives a single function activation (and everything it calls)
// through the instance state machine, one instruction retirement at a
// time. It is not safe for concurrent use; each VM instance owns exactly
// one OS thread's worth of execution (spec §5).
type Runner struct {
	Module  *il.Module
	Options Options
	Externs ExternCaller
	Trace   TraceSink

	status Status
	top    *Frame
	steps  int64

	caches map[*il.Instruction]*switchCache
	breaks *breakState

	result rtval.Value
	trap   *Trap

	cancelRequested bool
}

// NewRunner prepares a Runner positioned at fn's entry block with args
// bound to its declared parameters (spec §3: block zero's params are the
// function's parameter list).
func NewRunner(mod *il.Module, fn *il.Function, args []rtval.Value, opts Options, externs ExternCaller) *Runner {
	r := &Runner{
		Module:  mod,
		Options: opts,
		Externs: externs,
		status:  StatusReady,
		caches:  make(map[*il.Instruction]*switchCache),
	}
	f := NewFrame(fn, nil)
	bindParams(f, fn, args)
	r.top = f
	return r
}

// SetBreakpoints arms the Runner with a coalesced breakpoint set (spec
// §4.7's "next instruction matching (file,line) whose block differs from
// the last trigger").
func (r *Runner) SetBreakpoints(bps []Breakpoint) { r.breaks = newBreakState(bps) }

// Cancel requests cooperative suspension; takes effect at the next
// instruction retirement, never mid-instruction (spec §5).
func (r *Runner) Cancel() { r.cancelRequested = true }

func (r *Runner) Status() Status      { return r.status }
func (r *Runner) Result() rtval.Value { return r.result }
func (r *Runner) Trap() *Trap         { return r.trap }
func (r *Runner) Steps() int64        { return r.steps }
func (r *Runner) CurrentFrame() *Frame { return r.top }

func (r *Runner) fail(tr *Trap) {
	r.trap = tr
	r.status = StatusTrapped
}

// handleTrap walks the Caller chain starting at the frame that trapped,
// looking for the nearest ancestor with an in-flight `invoke` (a
// non-empty UnwindBlock). Intervening frames are discarded, mirroring
// verify/eh.go's dominance-scoped handler search but performed as a
// runtime stack walk instead of a static dominator-tree query.
func (r *Runner) handleTrap(tr *Trap) {
	for f := r.top; f != nil; f = f.Caller {
		if f.UnwindBlock == "" {
			continue
		}
		blk, ok := f.Fn.BlockByName(f.UnwindBlock)
		if !ok {
			break
		}
		f.UnwindBlock = ""
		f.PendingTrap = tr
		f.Block = blk
		f.IP = 0
		r.top = f
		return
	}
	r.fail(tr)
}

func currentInstr(f *Frame) (in *il.Instruction, isTerm bool) {
	if f.IP < len(f.Block.Instrs) {
		return f.Block.Instrs[f.IP], false
	}
	return f.Block.Terminator, true
}

// Step retires exactly one instruction and returns the Runner's status
// afterward. Calling Step on a terminal status (Halted/Trapped) is a
// no-op that returns the same status.
func (r *Runner) Step() Status {
	if r.status == StatusHalted || r.status == StatusTrapped {
		return r.status
	}
	if r.cancelRequested {
		r.status = StatusPaused
		return r.status
	}
	if r.Options.MaxSteps > 0 && r.steps >= r.Options.MaxSteps {
		r.status = StatusStepLimit
		return r.status
	}

	in, isTerm := currentInstr(r.top)
	if in == nil {
		r.fail(trap(r.top.Fn, r.top.Block, il.Loc{}, ReasonUnsupported, "block %s has no terminator", r.top.Block.Name))
		return r.status
	}

	if r.breaks != nil && in.Loc.IsValid() {
		if r.breaks.hit(r.top.Fn.Name, r.top.Block.Name, in.Loc.File, in.Loc.Line) {
			r.status = StatusBreakpoint
			return r.status
		}
	}

	r.status = StatusRunning
	r.steps++
	r.emitTrace(in)

	var tr *Trap
	if isTerm {
		tr = r.execTerminator(in)
	} else {
		tr = r.execInstr(in)
		if tr == nil && !isCallOpcode(in.Op) {
			r.top.IP++
		}
	}
	if tr != nil {
		r.handleTrap(tr)
	}
	return r.status
}

// isCallOpcode reports whether op is one of the call family, which
// manage their own frame/IP transition (push, reuse, or same-frame
// extern-call increment) rather than taking Step's default "advance to
// the next instruction in this block" action.
func isCallOpcode(op il.Opcode) bool {
	switch op {
	case il.OpCall, il.OpCallIndirect, il.OpTailCall, il.OpTailCallIndirect:
		return true
	}
	return false
}

// Continue repeatedly steps until the status is no longer Running —
// i.e. until the Runner halts, traps, hits a breakpoint, is cancelled,
// or exhausts its step budget.
func (r *Runner) Continue() Status {
	for {
		s := r.Step()
		if s != StatusRunning {
			return s
		}
	}
}

func (r *Runner) emitTrace(in *il.Instruction) {
	if r.Trace.Report == nil {
		return
	}
	operands := make([]string, len(in.Args))
	for i, a := range in.Args {
		operands[i] = formatOperand(a)
	}
	var result string
	if in.HasResult {
		result = formatOperand(il.Temp(in.Result, in.ResultTy))
	}
	r.Trace.emit(TraceEvent{
		Func:     r.top.Fn.Name,
		Block:    r.top.Block.Name,
		IP:       r.top.IP,
		Op:       in.Op,
		Operands: operands,
		Result:   result,
	})
}
