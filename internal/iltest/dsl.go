// Package iltest provides a terse DSL for building small il.Function
// values in tests, in the spirit of the teacher's Fun/Bloc/Valu helpers
// (cmd/internal/ssa/func_test.go): two passes over a declarative list of
// blocks — first creating every block (and its SSA-id'd parameters) so
// forward references (loop back-edges, mutually referential blocks) can
// be named before they exist, then filling in instruction bodies and
// terminators.
package iltest

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
)

// ValueRef names either a previously defined SSA value (by the name given
// to its producing Instr, or to a block parameter) or carries an inline
// constant.
type ValueRef struct {
	isConst bool
	val     il.Value
	name    string
}

// V references a named value: a block parameter name or an earlier
// Instr's result name.
func V(name string) ValueRef { return ValueRef{name: name} }

// CI64 is an inline signed-integer constant of type t.
func CI64(t il.Type, v int64) ValueRef { return ValueRef{isConst: true, val: il.ConstInt64(t, v)} }

// CF64 is an inline float constant of type t.
func CF64(t il.Type, v float64) ValueRef { return ValueRef{isConst: true, val: il.ConstFloat64(t, v)} }

// CBool is an inline i1 constant.
func CBool(v bool) ValueRef { return ValueRef{isConst: true, val: il.ConstBoolVal(v)} }

// CStr is an inline string-pool constant.
func CStr(s string) ValueRef { return ValueRef{isConst: true, val: il.ConstStr(s)} }

// InstrSpec describes one non-terminator instruction, or (via the
// dedicated constructors below) a terminator.
type InstrSpec struct {
	Result string
	Op     il.Opcode
	Type   il.Type
	Args   []ValueRef

	Callee string
	Sig    *il.Signature

	Targets     []string
	BrArgs      [][]ValueRef
	Cond        ValueRef
	RetVal      *ValueRef
	HasRet      bool
	Cases       []CaseSpec
	Default     string
	DefaultArgs []ValueRef
	Unwind      string
}

// CaseSpec is one `case k -> label(args...)` arm.
type CaseSpec struct {
	Value int32
	Label string
	Args  []ValueRef
}

// Instr builds a non-terminator instruction with a result.
func Instr(result string, op il.Opcode, t il.Type, args ...ValueRef) InstrSpec {
	return InstrSpec{Result: result, Op: op, Type: t, Args: args}
}

// Call builds a `call` instruction.
func Call(result string, callee string, sig *il.Signature, args ...ValueRef) InstrSpec {
	return InstrSpec{Result: result, Op: il.OpCall, Type: sig.Ret, Callee: callee, Sig: sig, Args: args}
}

// Ret builds a `ret value` terminator.
func Ret(v ValueRef) InstrSpec { return InstrSpec{Op: il.OpRet, RetVal: &v, HasRet: true} }

// RetVoid builds a `ret` (no value) terminator.
func RetVoid() InstrSpec { return InstrSpec{Op: il.OpRet} }

// Br builds an unconditional branch terminator.
func Br(dest string, args ...ValueRef) InstrSpec {
	return InstrSpec{Op: il.OpBr, Targets: []string{dest}, BrArgs: [][]ValueRef{args}}
}

// Cbr builds a conditional branch terminator.
func Cbr(cond ValueRef, thenLabel string, thenArgs []ValueRef, elseLabel string, elseArgs []ValueRef) InstrSpec {
	return InstrSpec{
		Op:      il.OpCbr,
		Cond:    cond,
		Targets: []string{thenLabel, elseLabel},
		BrArgs:  [][]ValueRef{thenArgs, elseArgs},
	}
}

// Switch builds a switch.i32 terminator.
func Switch(scrutinee ValueRef, defaultLabel string, defaultArgs []ValueRef, cases ...CaseSpec) InstrSpec {
	return InstrSpec{
		Op: il.OpSwitch, Cond: scrutinee,
		Default: defaultLabel, DefaultArgs: defaultArgs, Cases: cases,
	}
}

// Unreachable builds an `unreachable` terminator.
func Unreachable() InstrSpec { return InstrSpec{Op: il.OpUnreachable} }

// BlockSpec is one block: its parameters, body, and terminator.
type BlockSpec struct {
	Name       string
	ParamNames []string
	ParamTypes []il.Type
	Body       []InstrSpec
	Term       InstrSpec
}

// Blk builds a BlockSpec.
func Blk(name string, paramNames []string, paramTypes []il.Type, body []InstrSpec, term InstrSpec) BlockSpec {
	return BlockSpec{Name: name, ParamNames: paramNames, ParamTypes: paramTypes, Body: body, Term: term}
}

// Built is the result of Build: the function plus name indexes for
// assertions.
type Built struct {
	Func   *il.Function
	Blocks map[string]*il.BasicBlock
	Values map[string]il.Value
}

// Build creates fn's blocks and instructions from specs, in two passes,
// and returns name indexes for use in assertions.
func Build(fn *il.Function, specs []BlockSpec) (*Built, error) {
	blocks := make(map[string]*il.BasicBlock, len(specs))
	names := make(map[string]il.Value)

	for _, s := range specs {
		b, err := il.CreateBlock(fn, s.Name, s.ParamTypes, s.ParamNames)
		if err != nil {
			return nil, err
		}
		blocks[s.Name] = b
		for i, p := range b.Params {
			key := p.Name
			if key == "" {
				key = fmt.Sprintf("%s.%d", s.Name, i)
			}
			names[key] = il.Temp(p.ID, p.Type)
		}
	}

	resolve := func(r ValueRef) (il.Value, error) {
		if r.isConst {
			return r.val, nil
		}
		v, ok := names[r.name]
		if !ok {
			return il.Value{}, fmt.Errorf("iltest: unknown value ref %q", r.name)
		}
		return v, nil
	}
	resolveAll := func(rs []ValueRef) ([]il.Value, error) {
		out := make([]il.Value, 0, len(rs))
		for _, r := range rs {
			v, err := resolve(r)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	for _, s := range specs {
		b := blocks[s.Name]
		for _, is := range s.Body {
			instr := il.NewInstruction(is.Op, il.Loc{})
			instr.ResultTy = is.Type
			instr.Callee = is.Callee
			instr.Sig = is.Sig
			args, err := resolveAll(is.Args)
			if err != nil {
				return nil, err
			}
			instr.Args = args
			if is.Result != "" {
				instr.HasResult = true
				instr.Result = fn.ReserveTemp()
			}
			if err := il.AddInstruction(b, instr); err != nil {
				return nil, err
			}
			if is.Result != "" {
				names[is.Result] = il.Temp(instr.Result, instr.ResultTy)
			}
		}

		t := s.Term
		switch t.Op {
		case il.OpRet:
			instr := il.NewInstruction(il.OpRet, il.Loc{})
			if t.HasRet {
				v, err := resolve(*t.RetVal)
				if err != nil {
					return nil, err
				}
				instr.Args = []il.Value{v}
			}
			if err := il.SetTerminator(b, instr); err != nil {
				return nil, err
			}
		case il.OpBr:
			dest, ok := blocks[t.Targets[0]]
			if !ok {
				return nil, fmt.Errorf("iltest: unknown block %q", t.Targets[0])
			}
			args, err := resolveAll(t.BrArgs[0])
			if err != nil {
				return nil, err
			}
			if err := il.Branch(b, dest, args); err != nil {
				return nil, err
			}
		case il.OpCbr:
			thenDest, ok := blocks[t.Targets[0]]
			if !ok {
				return nil, fmt.Errorf("iltest: unknown block %q", t.Targets[0])
			}
			elseDest, ok := blocks[t.Targets[1]]
			if !ok {
				return nil, fmt.Errorf("iltest: unknown block %q", t.Targets[1])
			}
			cond, err := resolve(t.Cond)
			if err != nil {
				return nil, err
			}
			thenArgs, err := resolveAll(t.BrArgs[0])
			if err != nil {
				return nil, err
			}
			elseArgs, err := resolveAll(t.BrArgs[1])
			if err != nil {
				return nil, err
			}
			if err := il.CondBranch(b, cond, thenDest, thenArgs, elseDest, elseArgs); err != nil {
				return nil, err
			}
		case il.OpSwitch:
			scrut, err := resolve(t.Cond)
			if err != nil {
				return nil, err
			}
			defDest, ok := blocks[t.Default]
			if !ok {
				return nil, fmt.Errorf("iltest: unknown block %q", t.Default)
			}
			defArgs, err := resolveAll(t.DefaultArgs)
			if err != nil {
				return nil, err
			}
			instr := il.NewInstruction(il.OpSwitch, il.Loc{})
			instr.Args = []il.Value{scrut}
			instr.Default = t.Default
			instr.DefaultArgs = defArgs
			for _, c := range t.Cases {
				cargs, err := resolveAll(c.Args)
				if err != nil {
					return nil, err
				}
				instr.Cases = append(instr.Cases, il.SwitchCase{Value: c.Value, Label: c.Label, Args: cargs})
			}
			if err := il.SetTerminator(b, instr); err != nil {
				return nil, err
			}
			il.LinkEdge(b, defDest)
			seen := map[string]bool{}
			for _, c := range t.Cases {
				if seen[c.Label] {
					continue
				}
				seen[c.Label] = true
				dest, ok := blocks[c.Label]
				if !ok {
					return nil, fmt.Errorf("iltest: unknown block %q", c.Label)
				}
				il.LinkEdge(b, dest)
			}
		case il.OpUnreachable:
			if err := il.SetTerminator(b, il.NewInstruction(il.OpUnreachable, il.Loc{})); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("iltest: unsupported terminator opcode %s", t.Op)
		}
	}

	return &Built{Func: fn, Blocks: blocks, Values: names}, nil
}
