package hostrt

import (
	"fmt"
	"strconv"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

func (r *Runtime) strBytes(v rtval.Value) []byte {
	if v.Str == nil {
		return nil
	}
	return v.Str.Bytes
}

// StrConcat implements Viper.Strings.Concat.
func (r *Runtime) StrConcat(a, b rtval.Value) (rtval.Value, error) {
	out := make([]byte, 0, len(r.strBytes(a))+len(r.strBytes(b)))
	out = append(out, r.strBytes(a)...)
	out = append(out, r.strBytes(b)...)
	return strValue(newHandle(rtval.HeapStr, out, il.Void)), nil
}

// StrLength implements Viper.Strings.Length.
func (r *Runtime) StrLength(a rtval.Value) (rtval.Value, error) {
	return rtval.Int(il.I64, int64(len(r.strBytes(a)))), nil
}

// StrSubstring implements Viper.Strings.Substring, bounds-checked (spec
// §7's "out-of-bounds" trap family).
func (r *Runtime) StrSubstring(a rtval.Value, start, length rtval.Value) (rtval.Value, error) {
	buf := r.strBytes(a)
	s, n := start.I, length.I
	if s < 0 || n < 0 || s+n > int64(len(buf)) {
		return rtval.Value{}, fmt.Errorf("substring [%d:%d] out of bounds for length %d", s, s+n, len(buf))
	}
	out := make([]byte, n)
	copy(out, buf[s:s+n])
	return strValue(newHandle(rtval.HeapStr, out, il.Void)), nil
}

// StrEqual implements Viper.Strings.Equal.
func (r *Runtime) StrEqual(a, b rtval.Value) (rtval.Value, error) {
	ab, bb := r.strBytes(a), r.strBytes(b)
	if len(ab) != len(bb) {
		return rtval.Bool(false), nil
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return rtval.Bool(false), nil
		}
	}
	return rtval.Bool(true), nil
}

// StrFromI64 implements Viper.Strings.FromI64.
func (r *Runtime) StrFromI64(v rtval.Value) (rtval.Value, error) {
	return strValue(newHandle(rtval.HeapStr, []byte(strconv.FormatInt(v.I, 10)), il.Void)), nil
}

// StrFromF64 implements Viper.Strings.FromF64, matching spec §6's
// `%.15g` user-facing float formatting rule.
func (r *Runtime) StrFromF64(v rtval.Value) (rtval.Value, error) {
	return strValue(newHandle(rtval.HeapStr, []byte(strconv.FormatFloat(v.F, 'g', 15, 64)), il.Void)), nil
}
