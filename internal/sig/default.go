package sig

import "github.com/splanck/viper-sub008/internal/il"

// Default returns the catalog of well-known `Viper.*` externs this repo
// ships with, covering the families named in spec §2 ("heap management,
// strings, arrays, console/file I/O, math, and object-system
// primitives") plus the thread-creation externs spec §5 requires for
// front-end parallelism. A production build would generate this table
// from the C runtime's own header; here it is hand-written but shaped
// exactly like the generated form (Entry rows, alias sets) so swapping
// in a generator later changes nothing downstream.
func Default() *Table {
	t := New()
	reg := func(name string, params []il.Type, ret il.Type, eff Effect, aliases ...string) {
		_ = t.Register(Entry{Name: name, Sig: il.Signature{Params: params, Ret: ret}, Effect: eff, Aliases: map[string]string{
			"amd64": nativeSymbol(name), "arm64": nativeSymbol(name),
		}}, aliases...)
	}

	// Console / file I/O.
	reg("Viper.Console.PrintI64", []il.Type{il.I64}, il.Void, Effect{WritesGlobals: true}, "rt_print_i64")
	reg("Viper.Console.PrintF64", []il.Type{il.F64}, il.Void, Effect{WritesGlobals: true}, "rt_print_f64")
	reg("Viper.Console.PrintStr", []il.Type{il.StrTy}, il.Void, Effect{WritesGlobals: true, TakesOwnership: []bool{false}}, "rt_print_str")
	reg("Viper.Console.ReadLine", nil, il.StrTy, Effect{ReadsGlobals: true, MayTrap: true, GivesOwnership: true}, "rt_read_line")
	reg("Viper.File.Open", []il.Type{il.StrTy, il.I32}, il.PtrTy, Effect{WritesGlobals: true, MayTrap: true}, "rt_file_open")
	reg("Viper.File.Close", []il.Type{il.PtrTy}, il.Void, Effect{WritesGlobals: true}, "rt_file_close")
	reg("Viper.File.ReadLine", []il.Type{il.PtrTy}, il.StrTy, Effect{WritesGlobals: true, MayTrap: true, GivesOwnership: true}, "rt_file_read_line")
	reg("Viper.File.WriteStr", []il.Type{il.PtrTy, il.StrTy}, il.I32, Effect{WritesGlobals: true, TakesOwnership: []bool{false, false}}, "rt_file_write_str")

	// Strings.
	reg("Viper.Strings.Concat", []il.Type{il.StrTy, il.StrTy}, il.StrTy, Effect{Pure: true, TakesOwnership: []bool{false, false}, GivesOwnership: true}, "rt_str_concat")
	reg("Viper.Strings.Length", []il.Type{il.StrTy}, il.I64, Effect{Pure: true}, "rt_str_len")
	reg("Viper.Strings.Substring", []il.Type{il.StrTy, il.I64, il.I64}, il.StrTy, Effect{MayTrap: true, GivesOwnership: true}, "rt_str_substr")
	reg("Viper.Strings.Equal", []il.Type{il.StrTy, il.StrTy}, il.I1, Effect{Pure: true}, "rt_str_eq")
	reg("Viper.Strings.FromI64", []il.Type{il.I64}, il.StrTy, Effect{Pure: true, GivesOwnership: true}, "rt_str_from_i64")
	reg("Viper.Strings.FromF64", []il.Type{il.F64}, il.StrTy, Effect{Pure: true, GivesOwnership: true}, "rt_str_from_f64")

	// Arrays (elemKind is erased at the ABI boundary to Ptr+len; IL keeps
	// the element type on the Array handle itself).
	reg("Viper.Array.New", []il.Type{il.I64, il.I64}, il.ArrayOf(il.I8), Effect{GivesOwnership: true}, "rt_arr_new")
	reg("Viper.Array.Length", []il.Type{il.ArrayOf(il.I8)}, il.I64, Effect{Pure: true}, "rt_arr_len")
	reg("Viper.Array.Get", []il.Type{il.ArrayOf(il.I8), il.I64}, il.I64, Effect{MayTrap: true}, "rt_arr_get")
	reg("Viper.Array.Set", []il.Type{il.ArrayOf(il.I8), il.I64, il.I64}, il.Void, Effect{MayTrap: true, WritesGlobals: false}, "rt_arr_set")
	reg("Viper.Array.Retain", []il.Type{il.ArrayOf(il.I8)}, il.Void, Effect{}, "rt_arr_retain")
	reg("Viper.Array.Release", []il.Type{il.ArrayOf(il.I8)}, il.Void, Effect{TakesOwnership: []bool{true}}, "rt_arr_release")

	// Heap / refcount primitives shared by Str and Array.
	reg("Viper.Heap.RetainStr", []il.Type{il.StrTy}, il.Void, Effect{}, "rt_retain_str")
	reg("Viper.Heap.ReleaseStr", []il.Type{il.StrTy}, il.Void, Effect{TakesOwnership: []bool{true}}, "rt_release_str")

	// Math.
	reg("Viper.Math.Sqrt", []il.Type{il.F64}, il.F64, Effect{Pure: true}, "rt_sqrt")
	reg("Viper.Math.Pow", []il.Type{il.F64, il.F64}, il.F64, Effect{Pure: true}, "rt_pow")
	reg("Viper.Math.Floor", []il.Type{il.F64}, il.F64, Effect{Pure: true}, "rt_floor")
	reg("Viper.Math.Ceil", []il.Type{il.F64}, il.F64, Effect{Pure: true}, "rt_ceil")

	// Object system / RTTI.
	reg("Viper.Object.TypeIdOf", []il.Type{il.PtrTy}, il.I32, Effect{Pure: true}, "rt_typeid_of")
	reg("Viper.Object.IsA", []il.Type{il.I32, il.I32}, il.I1, Effect{Pure: true}, "rt_type_is_a")
	reg("Viper.Object.Implements", []il.Type{il.I32, il.I32}, il.I1, Effect{Pure: true}, "rt_type_implements")
	reg("Viper.Object.CastAs", []il.Type{il.PtrTy, il.I32}, il.PtrTy, Effect{}, "rt_cast_as")
	reg("Viper.Object.BindInterface", []il.Type{il.I32, il.I32, il.PtrTy}, il.Void, Effect{WritesGlobals: true}, "rt_bind_interface")

	// Concurrency (spec §5: parallelism via OS threads, not VM-level
	// async).
	reg("Viper.Threads.Spawn", []il.Type{il.PtrTy, il.PtrTy}, il.I64, Effect{WritesGlobals: true, MayTrap: true}, "rt_thread_spawn")
	reg("Viper.Threads.Join", []il.Type{il.I64}, il.Void, Effect{WritesGlobals: true, MayTrap: true}, "rt_thread_join")
	reg("Viper.Threads.Sleep", []il.Type{il.I64}, il.Void, Effect{}, "rt_sleep")

	return t
}

func nativeSymbol(canonical string) string {
	out := make([]byte, 0, len(canonical)+3)
	out = append(out, "vp_"...)
	for _, r := range canonical {
		if r == '.' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}
