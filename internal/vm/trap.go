package vm

import (
	"errors"
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
)

// ErrRCMagic is the sentinel internal/hostrt wraps (via fmt.Errorf's %w)
// when VIPER_RC_DEBUG catches a corrupted heap-object header. It lives
// here, not in hostrt, so dispatch.go's callExtern can recognize it with
// errors.Is and surface ReasonRCMagic instead of the generic ReasonFFI,
// without vm ever importing hostrt.
var ErrRCMagic = errors.New("refcount magic mismatch")

// Reason is a stable trap reason code (spec §7's list of undefined
// behaviors the IL forbids).
type Reason string

const (
	ReasonDivByZero      Reason = "div-by-zero"
	ReasonIntOverflow    Reason = "int-overflow"
	ReasonInvalidBitcast Reason = "invalid-bitcast"
	ReasonBoundsCheck    Reason = "bounds-violation"
	ReasonNullDeref      Reason = "null-deref"
	ReasonStackOverflow  Reason = "stack-overflow"
	ReasonStepLimit      Reason = "step-limit"
	ReasonRCMagic        Reason = "refcount-magic-mismatch"
	ReasonFFI            Reason = "ffi-error"
	ReasonUnsupported    Reason = "unsupported"
)

// Trap is the VM's own error domain (spec §7): undefined behavior the IL
// forbids, distinct from verify.Diagnostic (rejected before execution)
// and plain host-side errors. A Trap never panics across a package
// boundary; it is returned like any other error, and a Runner that ends
// in StatusTrapped keeps it (Runner.Trap).
type Trap struct {
	Reason  Reason
	Message string
	Func    string
	Block   string
	Loc     il.Loc
}

func (t *Trap) Error() string {
	if t.Func == "" {
		return fmt.Sprintf("trap %s: %s", t.Reason, t.Message)
	}
	return fmt.Sprintf("trap %s: %s (in %s/%s)", t.Reason, t.Message, t.Func, t.Block)
}

func trap(fn *il.Function, b *il.BasicBlock, loc il.Loc, reason Reason, format string, args ...any) *Trap {
	return &Trap{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Func:    fn.Name,
		Block:   b.Name,
		Loc:     loc,
	}
}
