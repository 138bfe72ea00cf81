// Package pass implements the transform pipeline described in spec §4.6:
// sparse conditional constant propagation, dead code elimination, acyclic
// Mem2Reg, and a local peephole pass, driven by a small fixed-point
// pipeline that re-verifies after every change in debug configurations.
package pass

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
	"github.com/splanck/viper-sub008/internal/verify"
)

// maxFixedPointIterations bounds how many times the pipeline re-sweeps a
// single function's declared pass order looking for further changes.
const maxFixedPointIterations = 8

// Pass transforms one function in place, reporting whether it changed
// anything. A pass must preserve verifiability: a function that verified
// before a pass runs must still verify afterward, which Debug pipelines
// check directly rather than trust.
type Pass struct {
	Name string
	Run  func(fn *il.Function, table *sig.Table) (bool, error)
}

// Pipeline runs a declared, ordered list of passes over every function of
// a Module to a fixed point.
type Pipeline struct {
	Passes []Pass

	// Debug re-verifies the whole module after every pass application
	// that reports a change (spec §4.6: "after each pass, the verifier re-runs in
	// debug configurations"), returning the first verification failure
	// as an error instead of silently producing a malformed module.
	Debug bool

	Table *sig.Table
	Sink  il.DiagSink
}

// Default returns the pipeline's declared pass order: SCCP, DCE,
// Mem2Reg, Peephole (spec §4.6).
func Default(table *sig.Table) *Pipeline {
	return &Pipeline{
		Table: table,
		Passes: []Pass{
			{Name: "sccp", Run: RunSCCP},
			{Name: "dce", Run: RunDCE},
			{Name: "mem2reg", Run: RunMem2Reg},
			{Name: "peephole", Run: RunPeephole},
		},
	}
}

// Run applies the pipeline's passes to every function of m, to a fixed
// point, returning whether anything changed.
func (p *Pipeline) Run(m *il.Module) (bool, error) {
	changedAny := false
	for _, fn := range m.Functions {
		changed, err := p.runFunction(m, fn)
		if err != nil {
			return changedAny, err
		}
		changedAny = changedAny || changed
	}
	return changedAny, nil
}

func (p *Pipeline) runFunction(m *il.Module, fn *il.Function) (bool, error) {
	changedAny := false
	for iter := 0; iter < maxFixedPointIterations; iter++ {
		iterChanged := false
		for _, ps := range p.Passes {
			changed, err := ps.Run(fn, p.Table)
			if err != nil {
				return changedAny, fmt.Errorf("pass %s on %s: %w", ps.Name, fn.Name, err)
			}
			if !changed {
				continue
			}
			iterChanged = true
			changedAny = true
			if p.Debug {
				if err := p.verify(m, ps.Name, fn.Name); err != nil {
					return changedAny, err
				}
			}
		}
		if !iterChanged {
			break
		}
	}
	return changedAny, nil
}

func (p *Pipeline) verify(m *il.Module, passName, fnName string) error {
	_, res := verify.Verify(m, p.Table, p.Sink)
	if !res.OK() {
		return fmt.Errorf("pass %s left %s unverifiable: %v", passName, fnName, res.Diagnostics)
	}
	return nil
}
