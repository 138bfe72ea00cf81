package pass

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

// RunPeephole applies local algebraic identities (x+0, x*1, redundant
// conversions) and collapses chained conversions, following the
// teacher's rewriteMIPS.go convention of one function per opcode
// dispatched from a top-level switch rather than a chain of ifs (spec
// §4.6).
func RunPeephole(fn *il.Function, table *sig.Table) (bool, error) {
	defOf := buildDefMap(fn)
	rename := make(map[il.SsaID]il.Value)
	changed := false

	for _, b := range fn.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			if repl, ok := peepholeIdentity(in); ok {
				rename[in.Result] = repl
				changed = true
				continue
			}
			if rewriteValuePeephole(in, defOf) {
				changed = true
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
	}

	if len(rename) == 0 {
		return changed, nil
	}
	resolve := func(v il.Value) il.Value {
		for v.Kind == il.ValueTemp {
			r, ok := rename[v.ID]
			if !ok {
				break
			}
			v = r
		}
		return v
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			substituteRenamed(in, rename, resolve)
		}
		if b.Terminator != nil {
			substituteRenamed(b.Terminator, rename, resolve)
		}
	}
	return true, nil
}

func buildDefMap(fn *il.Function) map[il.SsaID]*il.Instruction {
	defOf := make(map[il.SsaID]*il.Instruction)
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.HasResult {
				defOf[in.Result] = in
			}
		}
	}
	return defOf
}

// peepholeIdentity recognizes whole-instruction algebraic identities
// whose result is simply one of its own operands, so the instruction can
// be deleted and every later use redirected to that operand directly.
func peepholeIdentity(in *il.Instruction) (il.Value, bool) {
	if !in.HasResult || len(in.Args) == 0 {
		return il.Value{}, false
	}
	switch in.Op {
	case il.OpAdd, il.OpOr, il.OpXor:
		if isIntZero(in.Args[1]) {
			return in.Args[0], true
		}
		if isIntZero(in.Args[0]) {
			return in.Args[1], true
		}
	case il.OpSub:
		if isIntZero(in.Args[1]) {
			return in.Args[0], true
		}
	case il.OpMul:
		if isIntOne(in.Args[1]) {
			return in.Args[0], true
		}
		if isIntOne(in.Args[0]) {
			return in.Args[1], true
		}
	case il.OpShl, il.OpLShr, il.OpAShr:
		if isIntZero(in.Args[1]) {
			return in.Args[0], true
		}
	case il.OpFAdd, il.OpFSub:
		if isFloatZero(in.Args[1]) {
			return in.Args[0], true
		}
	case il.OpFMul:
		if isFloatOne(in.Args[1]) {
			return in.Args[0], true
		}
	case il.OpBitcast:
		if in.ResultTy.Equal(in.Args[0].Type) {
			return in.Args[0], true
		}
	}
	return il.Value{}, false
}

func isIntZero(v il.Value) bool {
	return v.Kind == il.ValueConst && v.CKind == il.ConstInt && v.IntVal == 0
}

func isIntOne(v il.Value) bool {
	return v.Kind == il.ValueConst && v.CKind == il.ConstInt && v.IntVal == 1
}

func isFloatZero(v il.Value) bool {
	return v.Kind == il.ValueConst && v.CKind == il.ConstFloat && v.FloatVal == 0
}

func isFloatOne(v il.Value) bool {
	return v.Kind == il.ValueConst && v.CKind == il.ConstFloat && v.FloatVal == 1
}

// rewriteValuePeephole dispatches in-place conversion-chain collapses by
// opcode, mirroring rewriteValueMIPS's own top-level switch.
func rewriteValuePeephole(in *il.Instruction, defOf map[il.SsaID]*il.Instruction) bool {
	switch in.Op {
	case il.OpBitcast:
		return rewriteValuePeephole_OpBitcast(in, defOf)
	case il.OpSExt:
		return rewriteValuePeephole_OpSExt(in, defOf)
	case il.OpZExt:
		return rewriteValuePeephole_OpZExt(in, defOf)
	}
	return false
}

func rewriteValuePeephole_OpBitcast(in *il.Instruction, defOf map[il.SsaID]*il.Instruction) bool {
	return collapseChain(in, il.OpBitcast, defOf)
}

func rewriteValuePeephole_OpSExt(in *il.Instruction, defOf map[il.SsaID]*il.Instruction) bool {
	return collapseChain(in, il.OpSExt, defOf)
}

func rewriteValuePeephole_OpZExt(in *il.Instruction, defOf map[il.SsaID]*il.Instruction) bool {
	return collapseChain(in, il.OpZExt, defOf)
}

// collapseChain rewrites in's sole operand from a chained same-opcode
// conversion's result to that conversion's own source: bitcast(bitcast
// x) becomes bitcast(x), and likewise for sext/zext chains.
func collapseChain(in *il.Instruction, op il.Opcode, defOf map[il.SsaID]*il.Instruction) bool {
	if len(in.Args) != 1 || in.Args[0].Kind != il.ValueTemp {
		return false
	}
	def, ok := defOf[in.Args[0].ID]
	if !ok || def.Op != op || len(def.Args) != 1 {
		return false
	}
	if in.Args[0] == def.Args[0] {
		return false
	}
	in.Args[0] = def.Args[0]
	return true
}
