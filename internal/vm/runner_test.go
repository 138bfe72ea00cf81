package vm_test

import (
	"testing"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
	"github.com/splanck/viper-sub008/internal/vm"
)

func newTestModule(name string) (*il.Module, *il.Builder) {
	m := il.NewModule(name)
	return m, il.NewBuilder(m)
}

// Scenario A: `40 + 2` folds to 42 in at most a handful of instructions,
// exercised here end to end through the interpreter (not the constant
// folder).
func TestScenarioATinyArithmetic(t *testing.T) {
	m, b := newTestModule("m")
	fn, err := b.AddFunction("main", il.Signature{Ret: il.I32})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	add := il.NewInstruction(il.OpAdd, il.Loc{})
	add.ResultTy = il.I32
	add.HasResult = true
	add.Result = fn.ReserveTemp()
	add.Args = []il.Value{il.ConstInt64(il.I32, 40), il.ConstInt64(il.I32, 2)}
	if err := il.AddInstruction(entry, add); err != nil {
		t.Fatal(err)
	}
	ret := il.NewInstruction(il.OpRet, il.Loc{})
	ret.Args = []il.Value{il.Temp(add.Result, il.I32)}
	if err := il.SetTerminator(entry, ret); err != nil {
		t.Fatal(err)
	}

	r := vm.NewRunner(m, fn, nil, vm.DefaultOptions(), nil)
	status := r.Continue()
	if status != vm.StatusHalted {
		t.Fatalf("status = %v, want Halted (trap: %v)", status, r.Trap())
	}
	if got := r.Result().I; got != 42 {
		t.Fatalf("result = %d, want 42", got)
	}
	if r.Steps() > 4 {
		t.Fatalf("steps = %d, want <= 4", r.Steps())
	}
}

// Scenario B: a block-param loop summing 0..9 reaches 45.
func TestScenarioBBlockParamLoop(t *testing.T) {
	m, b := newTestModule("m")
	fn, err := b.AddFunction("sum", il.Signature{Ret: il.I32})
	if err != nil {
		t.Fatal(err)
	}

	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	loop, err := il.CreateBlock(fn, "loop", []il.Type{il.I32, il.I32}, []string{"i", "acc"})
	if err != nil {
		t.Fatal(err)
	}
	done, err := il.CreateBlock(fn, "done", []il.Type{il.I32}, []string{"result"})
	if err != nil {
		t.Fatal(err)
	}

	if err := il.Branch(entry, loop, []il.Value{il.ConstInt64(il.I32, 0), il.ConstInt64(il.I32, 0)}); err != nil {
		t.Fatal(err)
	}

	iParam := il.Temp(loop.Params[0].ID, il.I32)
	accParam := il.Temp(loop.Params[1].ID, il.I32)

	cond := il.NewInstruction(il.OpICmpSLT, il.Loc{})
	cond.ResultTy = il.I1
	cond.HasResult = true
	cond.Result = fn.ReserveTemp()
	cond.Args = []il.Value{iParam, il.ConstInt64(il.I32, 10)}
	if err := il.AddInstruction(loop, cond); err != nil {
		t.Fatal(err)
	}

	newAcc := il.NewInstruction(il.OpAdd, il.Loc{})
	newAcc.ResultTy = il.I32
	newAcc.HasResult = true
	newAcc.Result = fn.ReserveTemp()
	newAcc.Args = []il.Value{accParam, iParam}
	if err := il.AddInstruction(loop, newAcc); err != nil {
		t.Fatal(err)
	}

	newI := il.NewInstruction(il.OpAdd, il.Loc{})
	newI.ResultTy = il.I32
	newI.HasResult = true
	newI.Result = fn.ReserveTemp()
	newI.Args = []il.Value{iParam, il.ConstInt64(il.I32, 1)}
	if err := il.AddInstruction(loop, newI); err != nil {
		t.Fatal(err)
	}

	backEdgeArgs := []il.Value{il.Temp(newI.Result, il.I32), il.Temp(newAcc.Result, il.I32)}
	doneArgs := []il.Value{accParam}
	if err := il.CondBranch(loop, il.Temp(cond.Result, il.I1), loop, backEdgeArgs, done, doneArgs); err != nil {
		t.Fatal(err)
	}

	ret := il.NewInstruction(il.OpRet, il.Loc{})
	ret.Args = []il.Value{il.Temp(done.Params[0].ID, il.I32)}
	if err := il.SetTerminator(done, ret); err != nil {
		t.Fatal(err)
	}

	r := vm.NewRunner(m, fn, nil, vm.DefaultOptions(), nil)
	status := r.Continue()
	if status != vm.StatusHalted {
		t.Fatalf("status = %v, want Halted (trap: %v)", status, r.Trap())
	}
	if got := r.Result().I; got != 45 {
		t.Fatalf("result = %d, want 45", got)
	}
}

// buildSwitchFunc builds a function with a switch.i32 over `count` dense
// cases 0..count-1, each branching to a block returning its case index,
// plus a default block returning -1.
func buildSwitchFunc(t *testing.T, count int) (*il.Module, *il.Function, il.SsaID) {
	t.Helper()
	m, b := newTestModule("m")
	fn, err := b.AddFunction("dispatch", il.Signature{Params: []il.Type{il.I32}, Ret: il.I32})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := il.CreateBlock(fn, "entry", []il.Type{il.I32}, []string{"v"})
	if err != nil {
		t.Fatal(err)
	}
	def, err := il.CreateBlock(fn, "default", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	retNeg := il.NewInstruction(il.OpRet, il.Loc{})
	retNeg.Args = []il.Value{il.ConstInt64(il.I32, -1)}
	if err := il.SetTerminator(def, retNeg); err != nil {
		t.Fatal(err)
	}

	cases := make([]il.SwitchCase, 0, count)
	for i := 0; i < count; i++ {
		blk, err := il.CreateBlock(fn, caseBlockName(i), nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		r := il.NewInstruction(il.OpRet, il.Loc{})
		r.Args = []il.Value{il.ConstInt64(il.I32, int64(i))}
		if err := il.SetTerminator(blk, r); err != nil {
			t.Fatal(err)
		}
		cases = append(cases, il.SwitchCase{Value: int32(i), Label: blk.Name})
	}

	sw := il.NewInstruction(il.OpSwitch, il.Loc{})
	sw.Args = []il.Value{il.Temp(entry.Params[0].ID, il.I32)}
	sw.Default = def.Name
	sw.Cases = cases
	if err := il.SetTerminator(entry, sw); err != nil {
		t.Fatal(err)
	}
	il.LinkEdge(entry, def)
	for _, c := range cases {
		blk, _ := fn.BlockByName(c.Label)
		il.LinkEdge(entry, blk)
	}

	return m, fn, entry.Params[0].ID
}

func caseBlockName(i int) string {
	return "case_" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	if neg {
		digits = "-" + digits
	}
	return digits
}

// Scenario C: a 100-case dense switch (values 0..99: range 100, density
// 1.0, which the auto thresholds send to the dense backend) dispatches
// correctly for 50 and then for 200 more runs, each on a fresh Runner
// that builds its own cache. The chosen backend is not visible from this
// package, so only the results are checked.
func TestScenarioCSwitchCachePicksDenseBackend(t *testing.T) {
	m, fn, _ := buildSwitchFunc(t, 100)

	r := vm.NewRunner(m, fn, []rtval.Value{rtval.Int(il.I32, 50)}, vm.DefaultOptions(), nil)
	status := r.Continue()
	if status != vm.StatusHalted {
		t.Fatalf("status = %v, want Halted (trap: %v)", status, r.Trap())
	}
	if got := r.Result().I; got != 50 {
		t.Fatalf("result = %d, want 50", got)
	}

	for i := 0; i < 200; i++ {
		want := int64(i % 100)
		r2 := vm.NewRunner(m, fn, []rtval.Value{rtval.Int(il.I32, want)}, vm.DefaultOptions(), nil)
		if s := r2.Continue(); s != vm.StatusHalted {
			t.Fatalf("run %d: status = %v, want Halted", i, s)
		}
		if got := r2.Result().I; got != want {
			t.Fatalf("run %d: result = %d, want %d", i, got, want)
		}
	}
}

// buildTailFactorial builds tail-recursive factorial(n, acc) -> i64,
// using a `tail.call` immediately followed by `ret` of its result — the
// pattern this interpreter recognizes as tail position (spec §4.7: not a
// terminator opcode by itself, so the verifier still requires a trailing
// `ret`).
func buildTailFactorial(t *testing.T) (*il.Module, *il.Function) {
	t.Helper()
	m, b := newTestModule("m")
	sig := il.Signature{Params: []il.Type{il.I64, il.I64}, Ret: il.I64}
	fn, err := b.AddFunction("fact", sig)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := il.CreateBlock(fn, "entry", []il.Type{il.I64, il.I64}, []string{"n", "acc"})
	if err != nil {
		t.Fatal(err)
	}
	base, err := il.CreateBlock(fn, "base", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := il.CreateBlock(fn, "rec", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	n := il.Temp(entry.Params[0].ID, il.I64)
	acc := il.Temp(entry.Params[1].ID, il.I64)

	cond := il.NewInstruction(il.OpICmpSLE, il.Loc{})
	cond.ResultTy = il.I1
	cond.HasResult = true
	cond.Result = fn.ReserveTemp()
	cond.Args = []il.Value{n, il.ConstInt64(il.I64, 1)}
	if err := il.AddInstruction(entry, cond); err != nil {
		t.Fatal(err)
	}
	if err := il.CondBranch(entry, il.Temp(cond.Result, il.I1), base, nil, rec, nil); err != nil {
		t.Fatal(err)
	}

	retAcc := il.NewInstruction(il.OpRet, il.Loc{})
	retAcc.Args = []il.Value{acc}
	if err := il.SetTerminator(base, retAcc); err != nil {
		t.Fatal(err)
	}

	newAcc := il.NewInstruction(il.OpMul, il.Loc{})
	newAcc.ResultTy = il.I64
	newAcc.HasResult = true
	newAcc.Result = fn.ReserveTemp()
	newAcc.Args = []il.Value{acc, n}
	if err := il.AddInstruction(rec, newAcc); err != nil {
		t.Fatal(err)
	}
	newN := il.NewInstruction(il.OpSub, il.Loc{})
	newN.ResultTy = il.I64
	newN.HasResult = true
	newN.Result = fn.ReserveTemp()
	newN.Args = []il.Value{n, il.ConstInt64(il.I64, 1)}
	if err := il.AddInstruction(rec, newN); err != nil {
		t.Fatal(err)
	}

	tc := il.NewInstruction(il.OpTailCall, il.Loc{})
	tc.ResultTy = il.I64
	tc.HasResult = true
	tc.Result = fn.ReserveTemp()
	tc.Callee = "fact"
	tc.Sig = &sig
	tc.Args = []il.Value{il.Temp(newN.Result, il.I64), il.Temp(newAcc.Result, il.I64)}
	if err := il.AddInstruction(rec, tc); err != nil {
		t.Fatal(err)
	}
	retTail := il.NewInstruction(il.OpRet, il.Loc{})
	retTail.Args = []il.Value{il.Temp(tc.Result, il.I64)}
	if err := il.SetTerminator(rec, retTail); err != nil {
		t.Fatal(err)
	}

	return m, fn
}

// Scenario D: deep tail recursion succeeds with TCO on, and traps with a
// stack-overflow reason when TCO is disabled.
func TestScenarioDTailCallOptimization(t *testing.T) {
	m, fn := buildTailFactorial(t)

	opts := vm.DefaultOptions()
	opts.TailCallOpt = true
	r := vm.NewRunner(m, fn, []rtval.Value{rtval.Int(il.I64, 10000), rtval.Int(il.I64, 1)}, opts, nil)
	if s := r.Continue(); s != vm.StatusHalted {
		t.Fatalf("TCO on: status = %v, want Halted (trap: %v)", s, r.Trap())
	}

	opts2 := vm.DefaultOptions()
	opts2.TailCallOpt = false
	opts2.MaxCallDepth = 256
	r2 := vm.NewRunner(m, fn, []rtval.Value{rtval.Int(il.I64, 10000), rtval.Int(il.I64, 1)}, opts2, nil)
	if s := r2.Continue(); s != vm.StatusTrapped {
		t.Fatalf("TCO off: status = %v, want Trapped", s)
	}
	if r2.Trap().Reason != vm.ReasonStackOverflow {
		t.Fatalf("TCO off: trap reason = %v, want %v", r2.Trap().Reason, vm.ReasonStackOverflow)
	}
}

// buildInvokeDivByZero builds a function that invokes a callee which
// divides by zero, landing in a handler that yields a default value.
func buildInvokeDivByZero(t *testing.T) (*il.Module, *il.Function) {
	t.Helper()
	m, b := newTestModule("m")

	calleeSig := il.Signature{Ret: il.I32}
	callee, err := b.AddFunction("boom", calleeSig)
	if err != nil {
		t.Fatal(err)
	}
	cEntry, err := il.CreateBlock(callee, "entry", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	div := il.NewInstruction(il.OpSDiv, il.Loc{})
	div.ResultTy = il.I32
	div.HasResult = true
	div.Result = callee.ReserveTemp()
	div.Args = []il.Value{il.ConstInt64(il.I32, 1), il.ConstInt64(il.I32, 0)}
	if err := il.AddInstruction(cEntry, div); err != nil {
		t.Fatal(err)
	}
	cRet := il.NewInstruction(il.OpRet, il.Loc{})
	cRet.Args = []il.Value{il.Temp(div.Result, il.I32)}
	if err := il.SetTerminator(cEntry, cRet); err != nil {
		t.Fatal(err)
	}

	fn, err := b.AddFunction("main", il.Signature{Ret: il.I32})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	normal, err := il.CreateBlock(fn, "normal", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	handler, err := il.CreateBlock(fn, "handler", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	inv := il.NewInstruction(il.OpInvoke, il.Loc{})
	inv.ResultTy = il.I32
	inv.HasResult = true
	inv.Result = fn.ReserveTemp()
	inv.Callee = "boom"
	inv.Sig = &calleeSig
	inv.Targets = []string{"normal"}
	inv.Unwind = "handler"
	inv.BrArgs = [][]il.Value{{}}
	if err := il.SetTerminator(entry, inv); err != nil {
		t.Fatal(err)
	}
	il.LinkEdge(entry, normal)
	il.LinkEdge(entry, handler)

	normalRet := il.NewInstruction(il.OpRet, il.Loc{})
	normalRet.Args = []il.Value{il.Temp(inv.Result, il.I32)}
	if err := il.SetTerminator(normal, normalRet); err != nil {
		t.Fatal(err)
	}

	lp := il.NewInstruction(il.OpLandingpad, il.Loc{})
	lp.ResultTy = il.I32
	lp.HasResult = true
	lp.Result = fn.ReserveTemp()
	if err := il.AddInstruction(handler, lp); err != nil {
		t.Fatal(err)
	}
	handlerRet := il.NewInstruction(il.OpRet, il.Loc{})
	handlerRet.Args = []il.Value{il.ConstInt64(il.I32, -1)}
	if err := il.SetTerminator(handler, handlerRet); err != nil {
		t.Fatal(err)
	}

	return m, fn
}

// Scenario E: a divide-by-zero trapping inside an invoked callee unwinds
// to the handler, which returns a default value; the Runner halts
// normally (it never transitions to Trapped).
func TestScenarioEInvokeLandingpad(t *testing.T) {
	m, fn := buildInvokeDivByZero(t)
	r := vm.NewRunner(m, fn, nil, vm.DefaultOptions(), nil)
	status := r.Continue()
	if status != vm.StatusHalted {
		t.Fatalf("status = %v, want Halted (trap: %v)", status, r.Trap())
	}
	if got := r.Result().I; got != -1 {
		t.Fatalf("result = %d, want -1", got)
	}
}

// Scenario F: five consecutive same-line instructions in one block, plus
// one more in the next block, should pause exactly twice — once per
// block — not five times, due to breakpoint coalescing.
func TestScenarioFBreakpointCoalescing(t *testing.T) {
	m, b := newTestModule("m")
	fn, err := b.AddFunction("main", il.Signature{Ret: il.I32})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := il.CreateBlock(fn, "entry", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	next, err := il.CreateBlock(fn, "next", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	const file = "prog.vl"
	const line = 7
	var last il.Value = il.ConstInt64(il.I32, 0)
	for i := 0; i < 5; i++ {
		in := il.NewInstruction(il.OpAdd, il.Loc{File: file, Line: line})
		in.ResultTy = il.I32
		in.HasResult = true
		in.Result = fn.ReserveTemp()
		in.Args = []il.Value{last, il.ConstInt64(il.I32, 1)}
		if err := il.AddInstruction(entry, in); err != nil {
			t.Fatal(err)
		}
		last = il.Temp(in.Result, il.I32)
	}
	if err := il.Branch(entry, next, nil); err != nil {
		t.Fatal(err)
	}

	in2 := il.NewInstruction(il.OpAdd, il.Loc{File: file, Line: line})
	in2.ResultTy = il.I32
	in2.HasResult = true
	in2.Result = fn.ReserveTemp()
	in2.Args = []il.Value{last, il.ConstInt64(il.I32, 1)}
	if err := il.AddInstruction(next, in2); err != nil {
		t.Fatal(err)
	}
	ret := il.NewInstruction(il.OpRet, il.Loc{})
	ret.Args = []il.Value{il.Temp(in2.Result, il.I32)}
	if err := il.SetTerminator(next, ret); err != nil {
		t.Fatal(err)
	}

	r := vm.NewRunner(m, fn, nil, vm.DefaultOptions(), nil)
	r.SetBreakpoints([]vm.Breakpoint{{File: file, Line: line}})

	pauses := 0
	for {
		s := r.Continue()
		if s == vm.StatusBreakpoint {
			pauses++
			// Step once more to retire the breakpointed instruction and
			// keep going; Continue() re-checks the same (block, line) and
			// (by coalescing) won't re-trigger until the block changes.
			if st := stepPastBreakpoint(r); st != vm.StatusRunning && st != vm.StatusHalted && st != vm.StatusBreakpoint {
				t.Fatalf("unexpected status after stepping past breakpoint: %v", st)
			}
			continue
		}
		if s == vm.StatusHalted {
			break
		}
		t.Fatalf("unexpected status %v (trap: %v)", s, r.Trap())
	}
	if pauses != 2 {
		t.Fatalf("pauses = %d, want 2", pauses)
	}
}

// stepPastBreakpoint forces exactly one more retirement so a coalesced
// breakpoint on the same (block, line) doesn't re-fire on the very next
// Continue call.
func stepPastBreakpoint(r *vm.Runner) vm.Status {
	return r.Step()
}
