package vm

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
)

// formatOperand renders an operand/result for a TraceEvent, deliberately
// simple (no module context available) since trace consumers care about
// reproducibility, not pretty-printing fidelity.
func formatOperand(v il.Value) string {
	switch v.Kind {
	case il.ValueTemp:
		return fmt.Sprintf("%%%d", v.ID)
	case il.ValueConst:
		switch v.CKind {
		case il.ConstInt:
			return fmt.Sprintf("%d", v.IntVal)
		case il.ConstFloat:
			return fmt.Sprintf("%g", v.FloatVal)
		case il.ConstBool:
			return fmt.Sprintf("%t", v.BoolVal)
		case il.ConstNull:
			return "null"
		case il.ConstStringRef:
			return fmt.Sprintf("%q", v.StrVal)
		default:
			return "const?"
		}
	case il.ValueGlobal:
		return "@" + v.Symbol
	default:
		return "?"
	}
}

// TraceEvent is one instruction retirement reported to a TraceSink,
// deterministic and C-locale formatted (spec §4.7).
type TraceEvent struct {
	Func     string
	Block    string
	IP       int
	Op       il.Opcode
	Operands []string
	Result   string
}

// TraceSink receives one TraceEvent per executed instruction, just
// before it retires.
type TraceSink struct {
	Report func(TraceEvent)
}

func (s TraceSink) emit(e TraceEvent) {
	if s.Report != nil {
		s.Report(e)
	}
}

// Breakpoint is a normalized (file, line) source location.
type Breakpoint struct {
	File string
	Line int
}

// breakState tracks which (block, line) pair last triggered a
// breakpoint, so that the spec's coalescing rule — repeated hits on the
// same line across consecutive instructions in one block count once —
// can be applied: a breakpoint fires again only when the line or the
// block differs from the last trigger, or when an instruction located on
// a line without a breakpoint has run in between.
type breakState struct {
	set          map[Breakpoint]bool
	lastBlockKey string
	lastLine     int
	armed        bool
}

func newBreakState(bps []Breakpoint) *breakState {
	set := make(map[Breakpoint]bool, len(bps))
	for _, b := range bps {
		set[b] = true
	}
	return &breakState{set: set, armed: true}
}

// hit reports whether executing an instruction at (file, line) in block
// should pause, updating internal coalescing state.
func (bs *breakState) hit(funcName, blockName, file string, line int) bool {
	if !bs.set[Breakpoint{File: file, Line: line}] {
		bs.lastBlockKey = ""
		return false
	}
	key := funcName + "/" + blockName
	if bs.lastBlockKey == key && bs.lastLine == line {
		return false
	}
	bs.lastBlockKey = key
	bs.lastLine = line
	return true
}
