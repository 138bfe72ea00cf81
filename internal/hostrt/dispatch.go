package hostrt

import (
	"fmt"

	"github.com/splanck/viper-sub008/internal/rtval"
)

// Dispatch calls the reference implementation of one canonical Viper.*
// extern by name, following the teacher's own opcode-keyed switch
// convention (cmd/compile/internal/ssa's rewrite tables, already reused
// verbatim by internal/pass for transform rewrites; here it keys off a
// name string instead of an il.Opcode since externs are looked up by
// name, not by opcode). internal/rtffi.Bridge is the only caller: it has
// already resolved aliases to canonical names via internal/sig.Table.
func (r *Runtime) Dispatch(canonical string, args []rtval.Value) (rtval.Value, error) {
	arg := func(i int) rtval.Value {
		if i < len(args) {
			return args[i]
		}
		return rtval.Value{}
	}

	switch canonical {
	case "Viper.Console.PrintI64":
		return r.PrintI64(arg(0))
	case "Viper.Console.PrintF64":
		return r.PrintF64(arg(0))
	case "Viper.Console.PrintStr":
		return r.PrintStr(arg(0))
	case "Viper.Console.ReadLine":
		return r.ConsoleReadLine()
	case "Viper.File.Open":
		return r.FileOpen(arg(0), arg(1))
	case "Viper.File.Close":
		return r.FileClose(arg(0))
	case "Viper.File.ReadLine":
		return r.FileReadLine(arg(0))
	case "Viper.File.WriteStr":
		return r.FileWriteStr(arg(0), arg(1))

	case "Viper.Strings.Concat":
		return r.StrConcat(arg(0), arg(1))
	case "Viper.Strings.Length":
		return r.StrLength(arg(0))
	case "Viper.Strings.Substring":
		return r.StrSubstring(arg(0), arg(1), arg(2))
	case "Viper.Strings.Equal":
		return r.StrEqual(arg(0), arg(1))
	case "Viper.Strings.FromI64":
		return r.StrFromI64(arg(0))
	case "Viper.Strings.FromF64":
		return r.StrFromF64(arg(0))

	case "Viper.Array.New":
		return r.ArrayNew(arg(0), arg(1))
	case "Viper.Array.Length":
		return r.ArrayLength(arg(0))
	case "Viper.Array.Get":
		return r.ArrayGet(arg(0), arg(1))
	case "Viper.Array.Set":
		return r.ArraySet(arg(0), arg(1), arg(2))
	case "Viper.Array.Retain":
		return r.ArrayRetain(arg(0))
	case "Viper.Array.Release":
		return r.ArrayRelease(arg(0))

	case "Viper.Heap.RetainStr":
		return rtval.Value{}, r.Retain(arg(0).Str)
	case "Viper.Heap.ReleaseStr":
		// Actual decrement happens generically in rtffi.Bridge via this
		// extern's TakesOwnership effect.
		return rtval.Value{}, nil

	case "Viper.Math.Sqrt":
		return r.MathSqrt(arg(0))
	case "Viper.Math.Pow":
		return r.MathPow(arg(0), arg(1))
	case "Viper.Math.Floor":
		return r.MathFloor(arg(0))
	case "Viper.Math.Ceil":
		return r.MathCeil(arg(0))

	case "Viper.Object.TypeIdOf":
		return r.TypeIdOf(arg(0))
	case "Viper.Object.IsA":
		return r.IsA(arg(0), arg(1))
	case "Viper.Object.Implements":
		return r.Implements(arg(0), arg(1))
	case "Viper.Object.CastAs":
		return r.CastAs(arg(0), arg(1))
	case "Viper.Object.BindInterface":
		return r.BindInterface(arg(0), arg(1), arg(2))

	case "Viper.Threads.Spawn":
		return r.ThreadSpawn(arg(0), arg(1))
	case "Viper.Threads.Join":
		return r.ThreadJoin(arg(0))
	case "Viper.Threads.Sleep":
		return r.ThreadSleep(arg(0))

	default:
		return rtval.Value{}, fmt.Errorf("hostrt: no reference implementation for %s", canonical)
	}
}
