package vm

import (
	"os"
	"strconv"
)

// DispatchMode names an opcode dispatch loop (spec §4.7), as selected by
// VIPER_DISPATCH. The Runner does not consult it: every mode executes
// through the same execInstr/execTerminator switch, so the three values
// differ only in what OptionsFromEnv records.
type DispatchMode uint8

const (
	// DispatchTable names the function-pointer-table loop (the default).
	DispatchTable DispatchMode = iota
	// DispatchSwitch names the switch-statement loop.
	DispatchSwitch
	// DispatchThreaded names the direct-threaded / computed-goto loop,
	// which Go has no construct for.
	DispatchThreaded
)

// SwitchMode forces (or lets the VM choose) a switch.i32 cache backend.
type SwitchMode uint8

const (
	SwitchAuto SwitchMode = iota
	SwitchDense
	SwitchSorted
	SwitchHashed
	SwitchLinear
)

// Options is the VM's env-knob configuration, read once at construction
// (spec §6 "Environment knobs"), mirroring the teacher's single `Config`
// object built once per architecture and threaded explicitly
// (`cmd/compile/internal/ssa.NewConfig`) rather than consulted ad hoc
// from global state.
type Options struct {
	Dispatch   DispatchMode
	SwitchMode SwitchMode

	// RCDebug records whether heap-header magic validation on every
	// retain/release was requested (VIPER_RC_DEBUG=1). The Runner does
	// not read it; the check itself is gated by internal/hostrt's
	// Runtime.RCDebug.
	RCDebug bool

	// TailCallOpt enables frame reuse for tail calls (VIPER_VM_TAILCALL,
	// default on).
	TailCallOpt bool

	// MaxSteps bounds instruction retirements; 0 means unlimited.
	MaxSteps int64

	// MaxCallDepth bounds the explicit frame stack as a deterministic
	// stand-in for genuine native stack exhaustion (spec §7's
	// "stack overflow from unbounded recursion" trap) — the interpreter
	// keeps its call stack on the Go heap as a Frame linked list rather
	// than Go's own call stack, so nothing will ever really run out of
	// native stack; this cap makes unbounded non-tail recursion fail
	// the same way a real implementation's stack guard page would.
	MaxCallDepth int
}

// DefaultOptions returns the VM's built-in defaults: table dispatch,
// auto switch-cache selection, RC debug off, TCO on, no step budget.
func DefaultOptions() Options {
	return Options{
		Dispatch:     DispatchTable,
		SwitchMode:   SwitchAuto,
		TailCallOpt:  true,
		MaxCallDepth: 4096,
	}
}

// OptionsFromEnv reads VIPER_DISPATCH, VIPER_SWITCH_MODE, VIPER_RC_DEBUG,
// and VIPER_VM_TAILCALL on top of DefaultOptions (spec §6).
func OptionsFromEnv() Options {
	o := DefaultOptions()
	switch os.Getenv("VIPER_DISPATCH") {
	case "table":
		o.Dispatch = DispatchTable
	case "switch":
		o.Dispatch = DispatchSwitch
	case "threaded":
		o.Dispatch = DispatchThreaded
	}
	switch os.Getenv("VIPER_SWITCH_MODE") {
	case "dense":
		o.SwitchMode = SwitchDense
	case "sorted":
		o.SwitchMode = SwitchSorted
	case "hashed":
		o.SwitchMode = SwitchHashed
	case "linear":
		o.SwitchMode = SwitchLinear
	default:
		o.SwitchMode = SwitchAuto
	}
	if v, err := strconv.ParseBool(os.Getenv("VIPER_RC_DEBUG")); err == nil {
		o.RCDebug = v
	}
	if v, err := strconv.ParseBool(os.Getenv("VIPER_VM_TAILCALL")); err == nil {
		o.TailCallOpt = v
	} else {
		o.TailCallOpt = true
	}
	return o
}
