package vm

import (
	"encoding/binary"
	"math"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// decodeBytes/encodeBytes use a little-endian layout for every
// byte-addressable cell, chosen once here as the interpreter's canonical
// in-memory representation (spec §6 leaves host byte order unspecified
// since Viper values never cross a process boundary in this form).

func decodeBytes(b []byte, t il.Type) rtval.Value {
	switch t.Kind {
	case il.KindI1, il.KindI8:
		return rtval.Int(t, int64(int8(b[0])))
	case il.KindI16:
		return rtval.Int(t, int64(int16(binary.LittleEndian.Uint16(b))))
	case il.KindI32:
		return rtval.Int(t, int64(int32(binary.LittleEndian.Uint32(b))))
	case il.KindI64:
		return rtval.Int(t, int64(binary.LittleEndian.Uint64(b)))
	case il.KindF32:
		return rtval.Float(t, float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case il.KindF64:
		return rtval.Float(t, math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case il.KindPtr:
		return rtval.Value{Type: t, Ptr: rtval.Ptr{Raw: int64(binary.LittleEndian.Uint64(b))}}
	default:
		return rtval.Value{Type: t}
	}
}

func encodeBytes(b []byte, t il.Type, v rtval.Value) {
	switch t.Kind {
	case il.KindI1, il.KindI8:
		b[0] = byte(v.I)
	case il.KindI16:
		binary.LittleEndian.PutUint16(b, uint16(v.I))
	case il.KindI32:
		binary.LittleEndian.PutUint32(b, uint32(v.I))
	case il.KindI64:
		binary.LittleEndian.PutUint64(b, uint64(v.I))
	case il.KindF32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.F)))
	case il.KindF64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.F))
	case il.KindPtr:
		binary.LittleEndian.PutUint64(b, uint64(v.Ptr.Raw))
	}
}

// readCell and writeCell implement `load`/`store` over a Cell, covering
// both the flat byte-addressable layout and the boxed fallback for
// element types with no fixed byte layout (Str, Array, Struct).

func readCell(p rtval.Ptr, t il.Type, fn *il.Function, blk *il.BasicBlock, loc il.Loc) (rtval.Value, *Trap) {
	if p.Cell == nil {
		return rtval.Value{}, trap(fn, blk, loc, ReasonNullDeref, "dereference of a raw, non-backed pointer")
	}
	c := p.Cell
	if c.Boxed != nil {
		if p.Offset != 0 {
			return rtval.Value{}, trap(fn, blk, loc, ReasonBoundsCheck, "non-zero offset into a boxed cell")
		}
		return *c.Boxed, nil
	}
	size := rtval.Size(t)
	if p.Offset < 0 || p.Offset+size > int64(len(c.Bytes)) {
		return rtval.Value{}, trap(fn, blk, loc, ReasonBoundsCheck, "load out of cell bounds")
	}
	return decodeBytes(c.Bytes[p.Offset:p.Offset+size], t), nil
}

func writeCell(p rtval.Ptr, t il.Type, v rtval.Value, fn *il.Function, blk *il.BasicBlock, loc il.Loc) *Trap {
	if p.Cell == nil {
		return trap(fn, blk, loc, ReasonNullDeref, "store through a raw, non-backed pointer")
	}
	c := p.Cell
	if c.Boxed != nil {
		if p.Offset != 0 {
			return trap(fn, blk, loc, ReasonBoundsCheck, "non-zero offset into a boxed cell")
		}
		*c.Boxed = v
		return nil
	}
	size := rtval.Size(t)
	if p.Offset < 0 || p.Offset+size > int64(len(c.Bytes)) {
		return trap(fn, blk, loc, ReasonBoundsCheck, "store out of cell bounds")
	}
	encodeBytes(c.Bytes[p.Offset:p.Offset+size], t, v)
	return nil
}
