package analysis

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

// AliasResult is BasicAA's verdict for a pair of pointer-typed values.
type AliasResult uint8

const (
	NoAlias AliasResult = iota
	MayAlias
	MustAlias
)

// ModRef summarizes whether a call may read and/or write memory visible
// outside its own frame, and whether it may trap — the same shape DCE's
// side-effect test and the runtime signature table's Effect use (spec
// §4.4, §4.6).
type ModRef struct {
	Reads   bool
	Writes  bool
	MayTrap bool
}

// baseKind classifies what a pointer-typed value's def chain bottoms out
// at, once gep/bitcast hops are stripped away.
type baseKind uint8

const (
	baseOpaque baseKind = iota // a block parameter, call result, or other value with no local origin
	baseAlloca
	baseGlobal
)

type base struct {
	kind  baseKind
	id    il.SsaID // identifies the value itself (baseOpaque) or the alloca (baseAlloca)
	name  string   // global/extern/function symbol (baseGlobal)
	exact bool      // true if the queried value IS the base (zero gep hops in between)
}

// AliasInfo answers BasicAA queries for one function: it walks
// `gep`/`alloca`/`addr-of-global` def chains to a base, to a max depth of
// 8 (spec §4.4), using a one-time index of each SSA id's defining
// instruction built up front rather than re-scanning the function's
// blocks on every query.
type AliasInfo struct {
	fn   *il.Function
	defs map[il.SsaID]*il.Instruction
}

const maxAliasChainDepth = 8

// NewAliasInfo indexes fn's SSA defs for repeated BasicAA queries.
func NewAliasInfo(fn *il.Function) *AliasInfo {
	defs := make(map[il.SsaID]*il.Instruction)
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.HasResult {
				defs[in.Result] = in
			}
		}
		if t := b.Terminator; t != nil && t.HasResult {
			defs[t.Result] = t
		}
	}
	return &AliasInfo{fn: fn, defs: defs}
}

func (ai *AliasInfo) baseOf(v il.Value) base {
	exact := true
	for depth := 0; depth < maxAliasChainDepth; depth++ {
		switch v.Kind {
		case il.ValueGlobal:
			return base{kind: baseGlobal, name: v.Symbol, exact: exact}
		case il.ValueTemp:
			in, ok := ai.defs[v.ID]
			if !ok {
				// Block parameter, or a result from outside this
				// function's own index: opaque, identified by id.
				return base{kind: baseOpaque, id: v.ID, exact: exact}
			}
			switch in.Op {
			case il.OpAlloca:
				return base{kind: baseAlloca, id: in.Result, exact: exact}
			case il.OpAddrOfGlobal:
				return base{kind: baseGlobal, name: in.Callee, exact: exact}
			case il.OpGep, il.OpBitcast, il.OpPtrToInt, il.OpIntToPtr:
				exact = false
				v = in.Args[0]
				continue
			default:
				return base{kind: baseOpaque, id: v.ID, exact: exact}
			}
		default:
			return base{kind: baseOpaque, exact: exact}
		}
	}
	return base{kind: baseOpaque, id: v.ID, exact: false}
}

// Alias classifies the relationship between two pointer-typed values.
// Two values sharing a base are only MustAlias if both reached it with no
// intervening gep/bitcast hop (so they denote the very same pointer, not
// merely the same allocation at a possibly-different offset); otherwise
// a shared base can only be narrowed to MayAlias.
func (ai *AliasInfo) Alias(a, b il.Value) AliasResult {
	ba, bb := ai.baseOf(a), ai.baseOf(b)
	if ba.kind == baseOpaque || bb.kind == baseOpaque {
		return MayAlias
	}
	if ba.kind != bb.kind {
		return NoAlias
	}
	var same bool
	switch ba.kind {
	case baseGlobal:
		same = ba.name == bb.name
	case baseAlloca:
		same = ba.id == bb.id
	}
	if !same {
		return NoAlias
	}
	if ba.exact && bb.exact {
		return MustAlias
	}
	return MayAlias
}

// CallModRef answers a call's ModRef: from the callee's own body when it
// is a function defined in m, else from the runtime signature table's
// Effect summary, else conservatively (reads, writes, and may trap) for a
// callee the table doesn't know.
func CallModRef(m *il.Module, table *sig.Table, callee string) ModRef {
	if fn, ok := m.FuncByName(callee); ok {
		return bodyModRef(fn)
	}
	if table != nil {
		if e, ok := table.Resolve(callee); ok {
			return ModRef{Reads: e.Effect.ReadsGlobals, Writes: e.Effect.WritesGlobals, MayTrap: e.Effect.MayTrap}
		}
	}
	return ModRef{Reads: true, Writes: true, MayTrap: true}
}

// bodyModRef summarizes a defined function's own instructions: any store
// is a write, any load is a read, and any call/invoke to a callee this
// pass doesn't otherwise resolve is conservatively both. It does not
// recurse through further calls beyond one level, to keep this a cheap
// summary rather than a whole-program fixed point.
func bodyModRef(fn *il.Function) ModRef {
	var mr ModRef
	visit := func(in *il.Instruction) {
		switch in.Op {
		case il.OpStore:
			mr.Writes = true
		case il.OpLoad:
			mr.Reads = true
		case il.OpCall, il.OpTailCall, il.OpCallIndirect, il.OpTailCallIndirect, il.OpInvoke:
			mr.Reads, mr.Writes, mr.MayTrap = true, true, true
		case il.OpSDiv, il.OpUDiv, il.OpSRem, il.OpURem:
			mr.MayTrap = true
		}
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			visit(in)
		}
		if t := b.Terminator; t != nil {
			visit(t)
		}
	}
	return mr
}
