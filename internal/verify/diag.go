// Package verify implements the Module verifier of spec §4.5: seven
// ordered checks (structural, typing, SSA, edges, terminators,
// exception-handling scope, runtime externs) producing either a
// Certificate or a list of structured Diagnostics. It is pure: Verify
// never mutates the Module it inspects.
package verify

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
)

// Diagnostic is a single verification failure: a stable code, a human
// message, and the offending entity's location when available (spec
// §4.5: "diagnostics carry the offending entity's source location when
// available, plus a stable code").
type Diagnostic struct {
	Code  string
	Msg   string
	Func  string
	Block string
	Loc   il.Loc
}

func (d Diagnostic) Error() string {
	where := d.Func
	if d.Block != "" {
		where = fmt.Sprintf("%s/%s", d.Func, d.Block)
	}
	loc := ""
	if d.Loc.IsValid() {
		loc = fmt.Sprintf(" (%s:%d:%d)", d.Loc.File, d.Loc.Line, d.Loc.Col)
	}
	if where == "" {
		return fmt.Sprintf("%s: %s%s", d.Code, d.Msg, loc)
	}
	return fmt.Sprintf("%s: %s: %s%s", d.Code, where, d.Msg, loc)
}

// Diagnostic codes, stable across releases (spec §4.5). Grouped by the
// check that produces them.
const (
	CodeStructNoBlocks     = "IL-STRUCT-001"
	CodeStructDupBlockName = "IL-STRUCT-002"
	CodeStructDupFuncName  = "IL-STRUCT-003"

	CodeTypeOperandMismatch = "IL-TYPE-001"
	CodeTypeResultMismatch  = "IL-TYPE-002"
	CodeTypeCalleeMismatch  = "IL-TYPE-003"

	CodeSSARedefinition   = "IL-SSA-001"
	CodeSSAUseNotDominated = "IL-SSA-002"
	CodeSSAUnknownValue   = "IL-SSA-003"

	CodeEdgeUnknownDest = "IL-EDGE-001"
	CodeEdgeArity       = "IL-EDGE-002"
	CodeEdgeArgType     = "IL-EDGE-003"

	CodeTermMissing   = "IL-TERM-001"
	CodeTermMisplaced = "IL-TERM-002"
	CodeTermNotTail   = "IL-TERM-003"

	CodeEHLandingpadPos = "IL-EH-001"
	CodeEHResumeScope   = "IL-EH-002"
	CodeEHCrossScope    = "IL-EH-003"

	CodeExternMismatch = "IL-EXTERN-001"
)

// Result holds every Diagnostic Verify produced. A zero Result (no
// Diagnostics) means the Module verified cleanly.
type Result struct {
	Diagnostics []Diagnostic
}

// OK reports whether the module verified with no diagnostics.
func (r Result) OK() bool { return len(r.Diagnostics) == 0 }

func (r *Result) add(d Diagnostic) { r.Diagnostics = append(r.Diagnostics, d) }

// Certificate attests that a Module passed every check in Verify at the
// moment it was issued (spec §4.5: "returns either a certification
// token or a list of structured diagnostics"). It carries no capability
// beyond that attestation and is only constructed by Verify.
type Certificate struct {
	module string
	valid  bool
}

// ModuleName returns the name of the Module this Certificate attests.
func (c Certificate) ModuleName() string { return c.module }

// Valid reports whether c is a genuine certificate (as opposed to the
// zero value returned alongside a failing Result).
func (c Certificate) Valid() bool { return c.valid }
