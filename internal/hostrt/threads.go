package hostrt

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
	"github.com/splanck/viper-sub008/internal/vm"
)

// threadHandle wraps the single-goroutine errgroup.Group backing one
// Viper.Threads.Spawn call; Join is just g.Wait(), which is exactly
// errgroup's "wait for everything, return the first error" contract
// (spec §4.7's parallel-instance helper), grounded on 256lights-zb's
// direct dependency on golang.org/x/sync.
type threadHandle struct {
	group *errgroup.Group
}

// ThreadSpawn implements Viper.Threads.Spawn: fnRef names a module
// function (resolved the same way call.indirect resolves a callee, via
// the Value's Func field) and arg is forwarded as that function's sole
// parameter if it declares one. The callee runs to completion on its own
// goroutine and its own VM instance, sharing this Runtime's Externs
// bridge.
func (r *Runtime) ThreadSpawn(fnRef, arg rtval.Value) (rtval.Value, error) {
	if r.Module == nil || r.Externs == nil {
		return rtval.Value{}, fmt.Errorf("thread spawn: runtime has no module/extern bridge configured")
	}
	fn, ok := r.Module.FuncByName(fnRef.Func)
	if !ok {
		return rtval.Value{}, fmt.Errorf("thread spawn: unknown function %q", fnRef.Func)
	}
	var callArgs []rtval.Value
	switch len(fn.Entry().Params) {
	case 0:
	case 1:
		callArgs = []rtval.Value{arg}
	default:
		return rtval.Value{}, fmt.Errorf("thread spawn: %s takes %d params, only 0 or 1 supported", fn.Name, len(fn.Entry().Params))
	}

	var g errgroup.Group
	g.Go(func() error {
		run := vm.NewRunner(r.Module, fn, callArgs, vm.DefaultOptions(), r.Externs)
		status := run.Continue()
		if status == vm.StatusTrapped {
			return run.Trap()
		}
		return nil
	})

	r.mu.Lock()
	r.nextThread++
	id := r.nextThread
	r.threads[id] = &threadHandle{group: &g}
	r.mu.Unlock()
	return rtval.Int(il.I64, id), nil
}

// ThreadJoin implements Viper.Threads.Join.
func (r *Runtime) ThreadJoin(id rtval.Value) (rtval.Value, error) {
	r.mu.Lock()
	th, ok := r.threads[id.I]
	delete(r.threads, id.I)
	r.mu.Unlock()
	if !ok {
		return rtval.Value{}, fmt.Errorf("join: unknown thread id %d", id.I)
	}
	if err := th.group.Wait(); err != nil {
		return rtval.Value{}, fmt.Errorf("thread %d: %w", id.I, err)
	}
	return rtval.Value{}, nil
}

// ThreadSleep implements Viper.Threads.Sleep (milliseconds).
func (r *Runtime) ThreadSleep(ms rtval.Value) (rtval.Value, error) {
	time.Sleep(time.Duration(ms.I) * time.Millisecond)
	return rtval.Value{}, nil
}
