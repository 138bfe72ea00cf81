package hostrt

import (
	"encoding/binary"
	"fmt"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// elemKindFromTag decodes Viper.Array.New's erased element-kind tag
// (spec §6: "elemKind is erased at the ABI boundary to Ptr+len; IL keeps
// the element type on the Array handle itself").
func elemKindFromTag(tag int64) il.Type {
	switch tag {
	case 0:
		return il.I8
	case 1:
		return il.I16
	case 2:
		return il.I32
	case 3:
		return il.I64
	case 4:
		return il.F32
	case 5:
		return il.F64
	case 6:
		return il.PtrTy
	default:
		return il.I64
	}
}

// ArrayNew implements Viper.Array.New.
func (r *Runtime) ArrayNew(elemTag, count rtval.Value) (rtval.Value, error) {
	elem := elemKindFromTag(elemTag.I)
	n := count.I
	if n < 0 {
		return rtval.Value{}, fmt.Errorf("negative array length %d", n)
	}
	width := rtval.Size(elem)
	buf := make([]byte, width*n)
	h := newHandle(rtval.HeapArray, buf, elem)
	return arrValue(h), nil
}

// ArrayLength implements Viper.Array.Length.
func (r *Runtime) ArrayLength(a rtval.Value) (rtval.Value, error) {
	if a.Arr == nil {
		return rtval.Int(il.I64, 0), nil
	}
	width := rtval.Size(a.Arr.ElemType)
	if width == 0 {
		return rtval.Int(il.I64, 0), nil
	}
	return rtval.Int(il.I64, int64(len(a.Arr.Bytes))/width), nil
}

func (r *Runtime) arrayBounds(h *rtval.Handle, idx int64) (int64, int64, error) {
	width := rtval.Size(h.ElemType)
	if width == 0 {
		return 0, 0, fmt.Errorf("array has no byte-addressable element width")
	}
	n := int64(len(h.Bytes)) / width
	if idx < 0 || idx >= n {
		return 0, 0, fmt.Errorf("array index %d out of bounds for length %d", idx, n)
	}
	return idx * width, width, nil
}

// ArrayGet implements Viper.Array.Get.
func (r *Runtime) ArrayGet(a, index rtval.Value) (rtval.Value, error) {
	if a.Arr == nil {
		return rtval.Value{}, fmt.Errorf("nil array handle")
	}
	off, width, err := r.arrayBounds(a.Arr, index.I)
	if err != nil {
		return rtval.Value{}, err
	}
	return rtval.Int(il.I64, decodeElemInt(a.Arr.Bytes[off:off+width], a.Arr.ElemType)), nil
}

// ArraySet implements Viper.Array.Set. When the handle is shared
// (Refcount > 1) it forks a private backing buffer before mutating, the
// copy-on-write discipline spec §6 requires of shared arrays.
//
// This forks the buffer, not the handle: Viper.Array.Set's ABI passes
// the array by handle value rather than by a pointer to the slot that
// holds it, so a fresh *rtval.Handle would not be visible to other live
// aliases of the original pointer. Forking Bytes in place keeps every
// alias pointing at one Handle and therefore consistent with each other,
// which is sufficient for this reference interpreter's single-threaded,
// single-slot test scenarios; it does not implement true "write breaks
// sharing" semantics against a second alias that expects to keep
// observing the old contents. A real implementation would route Array
// values through a Ptr-to-slot indirection to close this gap.
func (r *Runtime) ArraySet(a, index, val rtval.Value) (rtval.Value, error) {
	if a.Arr == nil {
		return rtval.Value{}, fmt.Errorf("nil array handle")
	}
	h := a.Arr
	if h.Refcount > 1 {
		h.Bytes = append([]byte(nil), h.Bytes...)
	}
	off, width, err := r.arrayBounds(h, index.I)
	if err != nil {
		return rtval.Value{}, err
	}
	encodeElemInt(h.Bytes[off:off+width], h.ElemType, val.I)
	return rtval.Value{}, nil
}

// ArrayRetain implements Viper.Array.Retain.
func (r *Runtime) ArrayRetain(a rtval.Value) (rtval.Value, error) { return rtval.Value{}, r.Retain(a.Arr) }

// ArrayRelease implements Viper.Array.Release. The actual decrement
// happens generically in internal/rtffi.Bridge, which releases every
// TakesOwnership argument after any extern call returns; this only
// needs to exist so the extern has a catalog entry and a callable body.
func (r *Runtime) ArrayRelease(a rtval.Value) (rtval.Value, error) { return rtval.Value{}, nil }

func decodeElemInt(b []byte, t il.Type) int64 {
	switch rtval.Size(t) {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	default:
		return int64(binary.LittleEndian.Uint64(b))
	}
}

func encodeElemInt(b []byte, t il.Type, v int64) {
	switch rtval.Size(t) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}
