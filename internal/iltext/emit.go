package iltext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/splanck/viper-sub008/internal/il"
)

// Emit serializes m into the canonical textual syntax this package's
// Parser reads back, such that Parse(Emit(m)) is structurally equal to m
// up to SSA id renumbering (spec §8, property 1): every temporary is
// printed as "v<id>" using its own id, so feeding the output back through
// Parse reassigns the identical sequence of ids.
//
// Floats use strconv.FormatFloat's 'g' form with 17 significant digits,
// enough to identify any float64 exactly, so emit/parse never loses a
// bit of a literal's value.
func Emit(m *il.Module) string {
	var sb strings.Builder
	for _, e := range m.Externs {
		fmt.Fprintf(&sb, "extern %s%s\n", e.Name, sigTail(&e.Sig))
	}
	if len(m.Externs) > 0 {
		sb.WriteString("\n")
	}

	for _, t := range m.Types {
		fmt.Fprintf(&sb, "type %s {\n", t.ID)
		for i, f := range t.Fields {
			sep := ","
			if i == len(t.Fields)-1 {
				sep = ""
			}
			fmt.Fprintf(&sb, "  %s: %s%s\n", f.Name, typeStr(f.Type), sep)
		}
		sb.WriteString("}\n")
	}
	if len(m.Types) > 0 {
		sb.WriteString("\n")
	}

	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "global %s %s = %s\n", g.Name, typeStr(g.Type), emitBareLiteral(g.Value))
	}
	if len(m.Globals) > 0 {
		sb.WriteString("\n")
	}

	for i, fn := range m.Functions {
		emitFunction(&sb, fn)
		if i != len(m.Functions)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func sigTail(sig *il.Signature) string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, t := range sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(typeStr(t))
	}
	sb.WriteString(") -> ")
	sb.WriteString(typeStr(sig.Ret))
	return sb.String()
}

// typeStr renders t in this package's own type grammar. il.Type.String()
// can't be reused directly for KindFunc: Signature.String() formats as
// "func(params) ret" with no "->", while parseSigTail requires one.
func typeStr(t il.Type) string {
	switch t.Kind {
	case il.KindArray:
		if t.Elem != nil {
			return fmt.Sprintf("array(%s)", typeStr(*t.Elem))
		}
		return "array"
	case il.KindStruct:
		return fmt.Sprintf("struct(%s)", t.Struct)
	case il.KindFunc:
		return "func" + sigTail(t.Sig)
	default:
		return t.Kind.String()
	}
}

func emitFunction(sb *strings.Builder, fn *il.Function) {
	fmt.Fprintf(sb, "fn %s%s {\n", fn.Name, sigTail(&fn.Sig))
	for _, blk := range fn.Blocks {
		emitBlock(sb, blk)
	}
	sb.WriteString("}\n")
}

func emitBlock(sb *strings.Builder, blk *il.BasicBlock) {
	sb.WriteString(blk.Name)
	if len(blk.Params) > 0 {
		sb.WriteString("(")
		for i, p := range blk.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "v%d: %s", p.ID, typeStr(p.Type))
		}
		sb.WriteString(")")
	}
	sb.WriteString(":\n")
	for _, in := range blk.Instrs {
		sb.WriteString("  ")
		emitInstruction(sb, in)
		sb.WriteString("\n")
	}
	if blk.Terminator != nil {
		sb.WriteString("  ")
		emitInstruction(sb, blk.Terminator)
		sb.WriteString("\n")
	}
}

func emitResultPrefix(sb *strings.Builder, in *il.Instruction) {
	if in.HasResult {
		fmt.Fprintf(sb, "v%d: %s = ", in.Result, typeStr(in.ResultTy))
	}
}

func emitOperand(sb *strings.Builder, v il.Value) {
	sb.WriteString(emitValue(v))
}

func emitValue(v il.Value) string {
	switch v.Kind {
	case il.ValueTemp:
		return fmt.Sprintf("v%d", v.ID)
	case il.ValueGlobal:
		return "@" + v.Symbol
	case il.ValueConst:
		return fmt.Sprintf("%s %s", typeStr(v.Type), emitBareLiteral(v))
	default:
		return "<invalid>"
	}
}

// emitBareLiteral prints a Constant Value's literal token alone, with no
// type prefix: the form parseValueLiteral reads once its caller has
// already consumed (or otherwise knows) the type — global initializers,
// and the tail of emitValue's "type literal" operand form above.
func emitBareLiteral(v il.Value) string {
	switch v.CKind {
	case il.ConstInt:
		return strconv.FormatInt(v.IntVal, 10)
	case il.ConstFloat:
		return strconv.FormatFloat(v.FloatVal, 'g', 17, 64)
	case il.ConstBool:
		return strconv.FormatBool(v.BoolVal)
	case il.ConstNull:
		return "null"
	case il.ConstStringRef:
		return strconv.Quote(v.StrVal)
	default:
		return "<invalid-const>"
	}
}

func emitLabelRef(sb *strings.Builder, label string, args []il.Value) {
	sb.WriteString(label)
	if len(args) > 0 {
		sb.WriteString("(")
		for i, a := range args {
			if i > 0 {
				sb.WriteString(", ")
			}
			emitOperand(sb, a)
		}
		sb.WriteString(")")
	}
}

func emitArgs(sb *strings.Builder, args []il.Value, sep string) {
	for i, a := range args {
		if i > 0 {
			sb.WriteString(sep)
		}
		emitOperand(sb, a)
	}
}

// emitInstruction writes one instruction or terminator, in the exact
// grammar parser_instr.go's parseOpBody reads per opcode family.
func emitInstruction(sb *strings.Builder, in *il.Instruction) {
	emitResultPrefix(sb, in)
	sb.WriteString(in.Op.String())
	if in.Op != il.OpLandingpad && in.Op != il.OpUnreachable {
		sb.WriteString(" ")
	}

	switch in.Op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpUDiv, il.OpSRem, il.OpURem,
		il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv,
		il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr:
		emitArgs(sb, in.Args, ", ")

	case il.OpAbs:
		emitArgs(sb, in.Args, ", ")

	case il.OpICmpEQ, il.OpICmpNE, il.OpICmpSLT, il.OpICmpSLE, il.OpICmpSGT, il.OpICmpSGE,
		il.OpICmpULT, il.OpICmpULE, il.OpICmpUGT, il.OpICmpUGE,
		il.OpFCmpEQ, il.OpFCmpNE, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE,
		il.OpFCmpUno, il.OpFCmpOrd:
		fmt.Fprintf(sb, "%s, ", typeStr(in.Args[0].Type))
		emitArgs(sb, in.Args, ", ")

	case il.OpSExt, il.OpZExt, il.OpTrunc, il.OpSIToFP, il.OpUIToFP,
		il.OpFPToSI, il.OpFPToUI, il.OpBitcast, il.OpPtrToInt, il.OpIntToPtr:
		fmt.Fprintf(sb, "%s, ", typeStr(in.Args[0].Type))
		emitArgs(sb, in.Args, ", ")

	case il.OpAlloca:
		fmt.Fprintf(sb, "%s, ", typeStr(in.AllocaElem))
		emitArgs(sb, in.Args, ", ")

	case il.OpLoad:
		emitArgs(sb, in.Args, ", ")

	case il.OpStore:
		fmt.Fprintf(sb, "%s, ", typeStr(in.MemType))
		emitArgs(sb, in.Args, ", ")

	case il.OpGep:
		emitArgs(sb, in.Args, ", ")

	case il.OpAddrOfGlobal:
		sb.WriteString("@" + in.Callee)

	case il.OpLandingpad:
		// no operands

	case il.OpCall, il.OpTailCall:
		sb.WriteString("@" + in.Callee)
		sb.WriteString("(")
		emitArgs(sb, in.Args, ", ")
		sb.WriteString(")")

	case il.OpCallIndirect, il.OpTailCallIndirect:
		fmt.Fprintf(sb, "func%s, ", sigTail(in.Sig))
		emitOperand(sb, in.Args[0])
		sb.WriteString("(")
		emitArgs(sb, in.Args[1:], ", ")
		sb.WriteString(")")

	case il.OpRet:
		if len(in.Args) == 0 {
			sb.WriteString("void")
		} else {
			emitOperand(sb, in.Args[0])
		}

	case il.OpBr:
		emitLabelRef(sb, in.Targets[0], in.BrArgs[0])

	case il.OpCbr:
		emitOperand(sb, in.Args[0])
		sb.WriteString(", ")
		emitLabelRef(sb, in.Targets[0], in.BrArgs[0])
		sb.WriteString(", ")
		emitLabelRef(sb, in.Targets[1], in.BrArgs[1])

	case il.OpSwitch:
		emitOperand(sb, in.Args[0])
		sb.WriteString(", default ")
		emitLabelRef(sb, in.Default, in.DefaultArgs)
		for _, c := range in.Cases {
			fmt.Fprintf(sb, ", case %d -> ", c.Value)
			emitLabelRef(sb, c.Label, c.Args)
		}

	case il.OpUnreachable:
		// no operands

	case il.OpResume:
		if len(in.Args) == 0 {
			sb.WriteString("void")
		} else {
			emitOperand(sb, in.Args[0])
		}

	case il.OpInvoke:
		sb.WriteString("@" + in.Callee)
		sb.WriteString("(")
		emitArgs(sb, in.Args, ", ")
		sb.WriteString("), normal ")
		emitLabelRef(sb, in.Targets[0], in.BrArgs[0])
		sb.WriteString(", unwind ")
		sb.WriteString(in.Unwind)
	}

	if in.Loc.IsValid() {
		fmt.Fprintf(sb, " @loc(%q)", fmt.Sprintf("%s:%d:%d", in.Loc.File, in.Loc.Line, in.Loc.Col))
	}
}
