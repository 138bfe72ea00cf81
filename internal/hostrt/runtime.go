// Package hostrt is a pure-Go reference implementation of the `Viper.*`
// runtime surface cataloged in internal/sig.Default (spec §4.8, §6): heap
// object retain/release, copy-on-write arrays, console/file I/O, string
// and math primitives, and the object-system RTTI family. It is
// ABI-shape-compatible with the documented C layout (the 32-byte heap
// header modeled by rtval.Handle) but never touches C; internal/rtffi's
// Bridge is the seam a production build would instead point at a
// cgo-exported native library, mirroring the teacher's own
// cmd/internal/obj.Link / architecture-Linkamd64 indirection
// (export_test.go's testCtxts map keyed by arch) for swapping a concrete
// backend behind a stable interface.
package hostrt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
	"github.com/splanck/viper-sub008/internal/vm"
)

// Runtime is the reference implementation's live state: it owns the
// open-file table, the RTTI class/interface id assignment, and the
// thread registry backing Viper.Threads.*. The zero value is not usable;
// construct with New.
type Runtime struct {
	Module  *il.Module
	Stdout  io.Writer
	Stdin   *bufio.Reader
	RCDebug bool

	// Externs is set by the caller (cmd/ilc's run command) to the
	// rtffi.Bridge built over this Runtime, so Spawn can hand a spawned
	// function's VM instance a way to call externs of its own; hostrt
	// never constructs a Bridge itself.
	Externs vm.ExternCaller

	mu       sync.Mutex
	files    map[int64]*openFile
	nextFile int64

	classIDs  map[il.StructID]int32
	ifaceIDs  map[string]int32
	ifaceByID map[int32]string
	itables   map[[2]int32]rtval.Value

	threads    map[int64]*threadHandle
	nextThread int64
}

type openFile struct {
	cursor *lineCursor
	f      *os.File
	write  bool
}

// New builds a Runtime over mod, reading RCDebug and its Viper.Object.*
// id assignment from mod's class declarations (spec §6's vtable/itable
// metadata).
func New(mod *il.Module, rcDebug bool) *Runtime {
	r := &Runtime{
		Module:   mod,
		Stdout:   os.Stdout,
		Stdin:    bufio.NewReader(os.Stdin),
		RCDebug:  rcDebug,
		files:     make(map[int64]*openFile),
		classIDs:  make(map[il.StructID]int32),
		ifaceIDs:  make(map[string]int32),
		ifaceByID: make(map[int32]string),
		itables:   make(map[[2]int32]rtval.Value),
		threads:   make(map[int64]*threadHandle),
	}
	if mod != nil {
		for i, c := range mod.Classes {
			r.classIDs[c.ID] = int32(i + 1)
			for iface := range c.Interfaces {
				if _, ok := r.ifaceIDs[iface]; !ok {
					id := int32(len(r.ifaceIDs) + 1)
					r.ifaceIDs[iface] = id
					r.ifaceByID[id] = iface
				}
			}
		}
	}
	return r
}

func (r *Runtime) classByID(id int32) (il.ClassInfo, bool) {
	for sid, n := range r.classIDs {
		if n == id {
			return r.Module.ClassByID(sid)
		}
	}
	return il.ClassInfo{}, false
}

func (r *Runtime) checkMagic(h *rtval.Handle) error {
	if !r.RCDebug || h == nil {
		return nil
	}
	want := rtval.MagicStr
	if h.Kind == rtval.HeapArray {
		want = rtval.MagicArray
	}
	if h.Magic != want {
		return fmt.Errorf("%w: got %#x want %#x", vm.ErrRCMagic, h.Magic, want)
	}
	return nil
}

// Retain increments h's refcount (spec §6/§8: "retain; release on any
// Str/Array handle leaves refcount unchanged").
func (r *Runtime) Retain(h *rtval.Handle) error {
	if h == nil {
		return nil
	}
	if err := r.checkMagic(h); err != nil {
		return err
	}
	h.Refcount++
	return nil
}

// Release decrements h's refcount, freeing its payload once it reaches
// zero.
func (r *Runtime) Release(h *rtval.Handle) error {
	if h == nil {
		return nil
	}
	if err := r.checkMagic(h); err != nil {
		return err
	}
	if h.Refcount == 0 {
		return fmt.Errorf("release of handle with refcount already zero")
	}
	h.Refcount--
	if h.Refcount == 0 {
		h.Bytes = nil
	}
	return nil
}

func newHandle(kind rtval.HeapKind, payload []byte, elem il.Type) *rtval.Handle {
	magic := rtval.MagicStr
	if kind == rtval.HeapArray {
		magic = rtval.MagicArray
	}
	return &rtval.Handle{
		Magic:    magic,
		Kind:     kind,
		Refcount: 1,
		Length:   uint64(len(payload)),
		Capacity: uint64(len(payload)),
		Bytes:    payload,
		ElemType: elem,
	}
}

func strValue(h *rtval.Handle) rtval.Value { return rtval.Value{Type: il.StrTy, Str: h} }

func arrValue(h *rtval.Handle) rtval.Value { return rtval.Value{Type: il.ArrayOf(h.ElemType), Arr: h} }
