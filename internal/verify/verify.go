package verify

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/analysis"
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

// Verify runs the seven ordered checks of spec §4.5 against m, consulting
// table for the runtime-extern signature check (7). It is pure: m is
// never mutated. sink, if its Report func is set, additionally receives
// an il.Diag for every failure as it is found — e.g. for the ilc CLI's
// live progress output — while the returned Result remains the
// authoritative, structured outcome.
func Verify(m *il.Module, table *sig.Table, sink il.DiagSink) (Certificate, Result) {
	v := &verifier{module: m, table: table, sink: sink}

	v.checkFunctionNames()
	for _, fn := range m.Functions {
		if len(fn.Blocks) == 0 {
			v.report(Diagnostic{Code: CodeStructNoBlocks, Func: fn.Name, Msg: "function has no blocks"})
			continue
		}
		v.checkBlockNames(fn)
		v.checkTyping(fn)
		v.checkSSA(fn)
		v.checkEdges(fn)
		v.checkTerminators(fn)
		v.checkExceptionScopes(fn)
	}
	v.checkExterns()

	if !v.result.OK() {
		return Certificate{}, v.result
	}
	return Certificate{module: m.Name, valid: true}, v.result
}

type verifier struct {
	module *il.Module
	table  *sig.Table
	sink   il.DiagSink
	result Result
}

func (v *verifier) report(d Diagnostic) {
	v.result.add(d)
	v.sink.Emit(il.Diag{Code: d.Code, Message: d.Msg, Loc: d.Loc})
}

func (v *verifier) typeErr(fn *il.Function, b *il.BasicBlock, in *il.Instruction, format string, a ...interface{}) {
	v.report(Diagnostic{Code: CodeTypeOperandMismatch, Func: fn.Name, Block: b.Name, Loc: in.Loc,
		Msg: fmt.Sprintf(format, a...)})
}

// --- 1. Structural ---------------------------------------------------

func (v *verifier) checkFunctionNames() {
	seen := make(map[string]bool, len(v.module.Functions))
	for _, fn := range v.module.Functions {
		if seen[fn.Name] {
			v.report(Diagnostic{Code: CodeStructDupFuncName, Func: fn.Name, Msg: "duplicate function name"})
		}
		seen[fn.Name] = true
	}
}

func (v *verifier) checkBlockNames(fn *il.Function) {
	seen := make(map[string]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if seen[b.Name] {
			v.report(Diagnostic{Code: CodeStructDupBlockName, Func: fn.Name, Block: b.Name, Msg: "duplicate block name"})
		}
		seen[b.Name] = true
	}
}

// --- 5. Terminators (every check nil-guards a missing terminator, so
// typing, SSA and edges run safely before this one) ----------------------

func (v *verifier) checkTerminators(fn *il.Function) {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op.IsTerminator() {
				v.report(Diagnostic{Code: CodeTermMisplaced, Func: fn.Name, Block: b.Name, Loc: in.Loc,
					Msg: fmt.Sprintf("terminator opcode %s in non-terminal position", in.Op)})
			}
		}
		if b.Terminator == nil {
			v.report(Diagnostic{Code: CodeTermMissing, Func: fn.Name, Block: b.Name, Msg: "block has no terminator"})
			continue
		}
		if !b.Terminator.Op.IsTerminator() {
			v.report(Diagnostic{Code: CodeTermMisplaced, Func: fn.Name, Block: b.Name, Loc: b.Terminator.Loc,
				Msg: fmt.Sprintf("opcode %s installed as terminator is not a terminator", b.Terminator.Op)})
		}
	}
	v.checkTailPositions(fn)
}

// checkTailPositions enforces spec §4.7's tail-call rule: tail.call and
// tail.call.indirect are hint-only opcodes (not terminators) that the
// verifier requires to sit immediately before a `ret` returning exactly
// their own result.
func (v *verifier) checkTailPositions(fn *il.Function) {
	for _, b := range fn.Blocks {
		for i, in := range b.Instrs {
			if !in.Op.IsTailCallable() {
				continue
			}
			ok := i == len(b.Instrs)-1 && b.Terminator != nil && b.Terminator.Op == il.OpRet
			if ok {
				ret := b.Terminator
				switch {
				case in.HasResult:
					ok = len(ret.Args) == 1 && ret.Args[0].Kind == il.ValueTemp && ret.Args[0].ID == in.Result
				default:
					ok = len(ret.Args) == 0
				}
			}
			if !ok {
				v.report(Diagnostic{Code: CodeTermNotTail, Func: fn.Name, Block: b.Name, Loc: in.Loc,
					Msg: fmt.Sprintf("%s is not immediately followed by a matching ret", in.Op)})
			}
		}
	}
}

// --- 4. Edges ----------------------------------------------------------

func (v *verifier) checkEdges(fn *il.Function) {
	for _, b := range fn.Blocks {
		t := b.Terminator
		if t == nil {
			continue
		}
		switch t.Op {
		case il.OpBr:
			v.checkEdge(fn, b, t, t.Targets[0], t.BrArgs[0])
		case il.OpCbr:
			v.checkEdge(fn, b, t, t.Targets[0], t.BrArgs[0])
			v.checkEdge(fn, b, t, t.Targets[1], t.BrArgs[1])
		case il.OpSwitch:
			v.checkEdge(fn, b, t, t.Default, t.DefaultArgs)
			for _, c := range t.Cases {
				v.checkEdge(fn, b, t, c.Label, c.Args)
			}
		case il.OpInvoke:
			v.checkEdge(fn, b, t, t.Targets[0], t.BrArgs[0])
			v.checkUnwindEdge(fn, b, t, t.Unwind)
		}
	}
}

func (v *verifier) checkEdge(fn *il.Function, b *il.BasicBlock, t *il.Instruction, label string, args []il.Value) {
	dest, ok := fn.BlockByName(label)
	if !ok {
		v.report(Diagnostic{Code: CodeEdgeUnknownDest, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: fmt.Sprintf("branch to undeclared block %q", label)})
		return
	}
	if len(args) != len(dest.Params) {
		v.report(Diagnostic{Code: CodeEdgeArity, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: fmt.Sprintf("branch to %q supplies %d args, want %d", label, len(args), len(dest.Params))})
		return
	}
	for i, a := range args {
		if !a.Type.Equal(dest.Params[i].Type) {
			v.report(Diagnostic{Code: CodeEdgeArgType, Func: fn.Name, Block: b.Name, Loc: t.Loc,
				Msg: fmt.Sprintf("branch to %q arg %d has type %s, want %s", label, i, a.Type, dest.Params[i].Type)})
		}
	}
}

func (v *verifier) checkUnwindEdge(fn *il.Function, b *il.BasicBlock, t *il.Instruction, label string) {
	dest, ok := fn.BlockByName(label)
	if !ok {
		v.report(Diagnostic{Code: CodeEdgeUnknownDest, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: fmt.Sprintf("invoke unwind to undeclared block %q", label)})
		return
	}
	if len(dest.Params) != 0 {
		v.report(Diagnostic{Code: CodeEdgeArity, Func: fn.Name, Block: b.Name, Loc: t.Loc,
			Msg: fmt.Sprintf("unwind target %q must have no block parameters; the landingpad supplies the error token", label)})
	}
}

// --- 7. Runtime externs -------------------------------------------------

func (v *verifier) checkExterns() {
	if v.table == nil {
		return
	}
	for _, e := range v.module.Externs {
		entry, ok := v.table.Resolve(e.Name)
		if !ok {
			continue // not a recognized canonical/alias spelling: a front-end-private extern
		}
		if !e.Sig.Equal(&entry.Sig) {
			v.report(Diagnostic{Code: CodeExternMismatch, Msg: fmt.Sprintf(
				"extern %q declares %s, runtime signature table has %s", e.Name, e.Sig.String(), entry.Sig.String())})
		}
	}
}

// --- shared analysis helpers --------------------------------------------

// allOperands flattens every Value an instruction reads: its plain Args,
// plus the branch-argument lists terminators carry (BrArgs, DefaultArgs,
// each switch case's Args). Used by checkSSA's dominance walk.
func allOperands(in *il.Instruction) []il.Value {
	ops := append([]il.Value(nil), in.Args...)
	for _, args := range in.BrArgs {
		ops = append(ops, args...)
	}
	ops = append(ops, in.DefaultArgs...)
	for _, c := range in.Cases {
		ops = append(ops, c.Args...)
	}
	return ops
}
