// Package rtffi implements the Runtime FFI Bridge (spec §4.8): the VM's
// only path to `Viper.*` externs. Bridge resolves whatever spelling the
// call site used (canonical dotted name or a legacy `rt_*` alias) via
// internal/sig.Table, marshals ownership per the signature table's
// Effect summary, and dispatches into internal/hostrt's pure-Go
// reference implementation. A production build would instead resolve
// each canonical name to a cgo-exported native symbol and skip hostrt
// entirely; that swap happens entirely inside Bridge, which is why
// internal/vm depends only on the narrow ExternCaller interface and
// never imports this package.
package rtffi

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/hostrt"
	"github.com/splanck/viper-sub008/internal/rtval"
	"github.com/splanck/viper-sub008/internal/sig"
)

// Host is the narrow surface Bridge dispatches into once a name is
// resolved and its ownership obligations are settled. internal/hostrt.
// Runtime implements it; a native build's equivalent would marshal
// straight into cgo calls behind the same signature.
type Host interface {
	Dispatch(canonical string, args []rtval.Value) (rtval.Value, error)
}

// Bridge implements vm.ExternCaller against a runtime signature table
// and a Host.
type Bridge struct {
	Table *sig.Table
	Host  Host
}

// New builds a Bridge over table, dispatching resolved calls to host.
func New(table *sig.Table, host Host) *Bridge {
	return &Bridge{Table: table, Host: host}
}

// CallExtern resolves name to its canonical Entry, releases any argument
// the callee takes ownership of once the call returns (spec §4.8: "the
// FFI bridge must insert [retain/release] around the call for each
// Str/Array parameter and the return value respectively" — the give side
// is hostrt's job, since a freshly allocated handle already carries
// refcount 1; the take side belongs here, uniformly, regardless of which
// extern is being called), and calls through to Host.Dispatch.
func (b *Bridge) CallExtern(name string, args []rtval.Value) (rtval.Value, error) {
	entry, ok := b.Table.Resolve(name)
	if !ok {
		return rtval.Value{}, fmt.Errorf("rtffi: unknown extern %q", name)
	}

	res, err := b.Host.Dispatch(entry.Name, args)
	if err != nil {
		return rtval.Value{}, err
	}

	for i, owned := range entry.Effect.TakesOwnership {
		if !owned || i >= len(args) {
			continue
		}
		if rerr := b.releaseArg(args[i]); rerr != nil {
			return rtval.Value{}, rerr
		}
	}
	return res, nil
}

func (b *Bridge) releaseArg(v rtval.Value) error {
	host, ok := b.Host.(interface {
		Retain(*rtval.Handle) error
		Release(*rtval.Handle) error
	})
	if !ok {
		return nil
	}
	switch {
	case v.Str != nil:
		return host.Release(v.Str)
	case v.Arr != nil:
		return host.Release(v.Arr)
	default:
		return nil
	}
}
