package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// FrameSnapshot is one activation record's post-mortem shape: enough to
// print a backtrace line without holding a live *Frame.
type FrameSnapshot struct {
	Func        string
	Block       string
	IP          int
	UnwindBlock string
	Regs        map[il.SsaID]string
}

// Snapshot is a point-in-time dump of a Runner's full execution state —
// register files down the frame chain plus the pending trap, if any —
// for post-mortem inspection after a trap (spec §11). Grounded on the
// teacher's runtime/mgc0.go convention of small, single-purpose debug
// accessors (`gc_m_ptr`, `gc_g_ptr`) that hand a debugger plain data
// instead of live internal pointers; Snapshot does the same for this
// VM's Frame chain instead of the teacher's scheduler structs.
type Snapshot struct {
	Status Status
	Trap   *Trap
	Frames []FrameSnapshot // innermost first
}

// Snapshot captures r's current state without mutating it.
func (r *Runner) Snapshot() Snapshot {
	s := Snapshot{Status: r.status, Trap: r.trap}
	for f := r.top; f != nil; f = f.Caller {
		fs := FrameSnapshot{
			Func:        f.Fn.Name,
			Block:       f.Block.Name,
			IP:          f.IP,
			UnwindBlock: f.UnwindBlock,
			Regs:        make(map[il.SsaID]string, len(f.Regs)),
		}
		for id, v := range f.Regs {
			fs.Regs[id] = formatRuntimeValue(v)
		}
		s.Frames = append(s.Frames, fs)
	}
	return s
}

// formatRuntimeValue renders a live register value for Snapshot, as
// opposed to formatOperand's static rendering of an il.Value operand.
func formatRuntimeValue(v rtval.Value) string {
	switch {
	case v.Type.IsInteger():
		return fmt.Sprintf("%d", v.I)
	case v.Type.IsFloat():
		return fmt.Sprintf("%g", v.F)
	case v.Type.Kind == il.KindStr:
		if v.Str == nil {
			return "str(null)"
		}
		return fmt.Sprintf("str(%q)", string(v.Str.Bytes))
	case v.Type.Kind == il.KindArray:
		if v.Arr == nil {
			return "array(null)"
		}
		return fmt.Sprintf("array(len=%d,refcount=%d)", len(v.Arr.Bytes), v.Arr.Refcount)
	case v.Type.Kind == il.KindPtr:
		if v.Ptr.IsNull() {
			return "ptr(null)"
		}
		return fmt.Sprintf("ptr(%#x)", v.Ptr.Raw)
	case v.Func != "":
		return "@" + v.Func
	default:
		return "?"
	}
}

// String renders a Snapshot as a human-facing backtrace, innermost frame
// first, one register per line sorted for determinism.
func (s Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "status: %s\n", s.Status)
	if s.Trap != nil {
		fmt.Fprintf(&sb, "trap: %s\n", s.Trap.Error())
	}
	for i, f := range s.Frames {
		fmt.Fprintf(&sb, "#%d %s/%s ip=%d", i, f.Func, f.Block, f.IP)
		if f.UnwindBlock != "" {
			fmt.Fprintf(&sb, " unwind=%s", f.UnwindBlock)
		}
		sb.WriteString("\n")
		ids := make([]il.SsaID, 0, len(f.Regs))
		for id := range f.Regs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Fprintf(&sb, "  %%%d = %s\n", id, f.Regs[id])
		}
	}
	return sb.String()
}
