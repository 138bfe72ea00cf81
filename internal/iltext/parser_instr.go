package iltext

import (
	"strconv"
	"strings"

	"github.com/splanck/viper-sub008/internal/il"
)

// opcodeByName inverts il.Opcode.String() for the subset of opcodes the
// text format names directly. Built once from the exported constants
// rather than from il's internal name table, since that table is
// unexported.
var opcodeByName = map[string]il.Opcode{
	"add": il.OpAdd, "sub": il.OpSub, "mul": il.OpMul,
	"sdiv": il.OpSDiv, "udiv": il.OpUDiv, "srem": il.OpSRem, "urem": il.OpURem,
	"fadd": il.OpFAdd, "fsub": il.OpFSub, "fmul": il.OpFMul, "fdiv": il.OpFDiv,
	"abs": il.OpAbs,
	"and": il.OpAnd, "or": il.OpOr, "xor": il.OpXor,
	"shl": il.OpShl, "lshr": il.OpLShr, "ashr": il.OpAShr,
	"icmp.eq": il.OpICmpEQ, "icmp.ne": il.OpICmpNE,
	"icmp.slt": il.OpICmpSLT, "icmp.sle": il.OpICmpSLE,
	"icmp.sgt": il.OpICmpSGT, "icmp.sge": il.OpICmpSGE,
	"icmp.ult": il.OpICmpULT, "icmp.ule": il.OpICmpULE,
	"icmp.ugt": il.OpICmpUGT, "icmp.uge": il.OpICmpUGE,
	"fcmp.eq": il.OpFCmpEQ, "fcmp.ne": il.OpFCmpNE,
	"fcmp.lt": il.OpFCmpLT, "fcmp.le": il.OpFCmpLE,
	"fcmp.gt": il.OpFCmpGT, "fcmp.ge": il.OpFCmpGE,
	"fcmp.uno": il.OpFCmpUno, "fcmp.ord": il.OpFCmpOrd,
	"sext": il.OpSExt, "zext": il.OpZExt, "trunc": il.OpTrunc,
	"sitofp": il.OpSIToFP, "uitofp": il.OpUIToFP,
	"fptosi": il.OpFPToSI, "fptoui": il.OpFPToUI,
	"bitcast": il.OpBitcast, "ptrtoint": il.OpPtrToInt, "inttoptr": il.OpIntToPtr,
	"alloca": il.OpAlloca, "load": il.OpLoad, "store": il.OpStore,
	"gep": il.OpGep, "addr-of-global": il.OpAddrOfGlobal,
	"ret": il.OpRet, "br": il.OpBr, "cbr": il.OpCbr,
	"switch.i32": il.OpSwitch, "unreachable": il.OpUnreachable, "resume": il.OpResume,
	"call": il.OpCall, "call.indirect": il.OpCallIndirect,
	"tail.call": il.OpTailCall, "tail.call.indirect": il.OpTailCallIndirect,
	"invoke": il.OpInvoke, "landingpad": il.OpLandingpad,
}

// parseStatement parses one instruction line, appending it to blk (via
// AddInstruction) or installing it as blk's terminator (via
// SetTerminator), and binds its result (if any) into names.
//
// Grammar (operands are comma-separated throughout):
//
//	stmt      := (name ":" type "=")? opname args
//	operand   := name | "@" name | type literal
//
// name resolves against names (block params and earlier results in
// dominance order — the parser trusts the writer, as full dominance
// checking is the verifier's job per spec §4.1); "@" name is a global,
// extern, or function reference; otherwise a type keyword followed by a
// literal builds a typed constant, so bare literals are never ambiguous
// with identifiers.
func (p *Parser) parseStatement(blk *il.BasicBlock, b *il.Builder, names map[string]il.Value) bool {
	first, ok := p.expectIdent()
	if !ok {
		return false
	}
	if p.tok.Kind == TokPunct && p.tok.Text == ":" {
		p.advance()
		resultTy, ok := p.parseType()
		if !ok {
			return false
		}
		if !p.expectPunct("=") {
			return false
		}
		opName, ok := p.expectIdent()
		if !ok {
			return false
		}
		return p.parseOpBody(blk, b, names, first, resultTy, opName, true)
	}
	return p.parseOpBody(blk, b, names, "", il.Void, first, false)
}

func (p *Parser) parseOpBody(blk *il.BasicBlock, b *il.Builder, names map[string]il.Value, resultName string, resultTy il.Type, opName string, hasResult bool) bool {
	op, ok := opcodeByName[opName]
	if !ok {
		p.errorf("unknown opcode %q", opName)
		return false
	}

	instr := il.NewInstruction(op, il.Loc{})
	instr.HasResult = hasResult
	instr.ResultTy = resultTy
	if hasResult {
		instr.Result = blk.Func.ReserveTemp()
	}

	bindResult := func() {
		if hasResult && resultName != "" {
			names[resultName] = il.Temp(instr.Result, instr.ResultTy)
		}
	}

	switch op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpUDiv, il.OpSRem, il.OpURem,
		il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv,
		il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr:
		a, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		rhs, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{a, rhs}

	case il.OpAbs:
		a, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{a}

	case il.OpICmpEQ, il.OpICmpNE, il.OpICmpSLT, il.OpICmpSLE, il.OpICmpSGT, il.OpICmpSGE,
		il.OpICmpULT, il.OpICmpULE, il.OpICmpUGT, il.OpICmpUGE,
		il.OpFCmpEQ, il.OpFCmpNE, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE,
		il.OpFCmpUno, il.OpFCmpOrd:
		if _, ok := p.parseType(); !ok { // operand type, informational only
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		a, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		rhs, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{a, rhs}

	case il.OpSExt, il.OpZExt, il.OpTrunc, il.OpSIToFP, il.OpUIToFP,
		il.OpFPToSI, il.OpFPToUI, il.OpBitcast, il.OpPtrToInt, il.OpIntToPtr:
		if _, ok := p.parseType(); !ok { // source type; dest is resultTy
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		a, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{a}

	case il.OpAlloca:
		elem, ok := p.parseType()
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		count, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.AllocaElem = elem
		instr.Args = []il.Value{count}

	case il.OpLoad:
		ptr, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.MemType = resultTy
		instr.Args = []il.Value{ptr}

	case il.OpStore:
		t, ok := p.parseType()
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		ptr, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		val, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.MemType = t
		instr.Args = []il.Value{ptr, val}

	case il.OpGep:
		base, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		off, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{base, off}

	case il.OpAddrOfGlobal:
		if !p.expectPunct("@") {
			return false
		}
		name, ok := p.expectIdent()
		if !ok {
			return false
		}
		instr.Callee = name

	case il.OpLandingpad:
		// no operands

	case il.OpCall, il.OpTailCall:
		if !p.expectPunct("@") {
			return false
		}
		name, ok := p.expectIdent()
		if !ok {
			return false
		}
		args, ok := p.parseParenArgs(b, names)
		if !ok {
			return false
		}
		instr.Callee = name
		instr.Args = args

	case il.OpCallIndirect, il.OpTailCallIndirect:
		sig, ok := p.parseType()
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		fptr, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		args, ok := p.parseParenArgs(b, names)
		if !ok {
			return false
		}
		instr.Sig = sig.Sig
		instr.Args = append([]il.Value{fptr}, args...)

	case il.OpRet:
		bindResult()
		if p.tok.Kind == TokIdent && p.tok.Text == "void" {
			p.advance()
			return p.install(blk, instr)
		}
		v, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{v}
		return p.install(blk, instr)

	case il.OpBr:
		label, args, ok := p.parseLabelRef(b, names)
		if !ok {
			return false
		}
		instr.Targets = []string{label}
		instr.BrArgs = [][]il.Value{args}
		return p.install(blk, instr)

	case il.OpCbr:
		cond, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		thenLabel, thenArgs, ok := p.parseLabelRef(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		elseLabel, elseArgs, ok := p.parseLabelRef(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{cond}
		instr.Targets = []string{thenLabel, elseLabel}
		instr.BrArgs = [][]il.Value{thenArgs, elseArgs}
		return p.install(blk, instr)

	case il.OpSwitch:
		scrut, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		if !p.isKeyword("default") {
			p.errorf("expected 'default', got %q", p.tok.Text)
			return false
		}
		p.advance()
		defLabel, defArgs, ok := p.parseLabelRef(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{scrut}
		instr.Default = defLabel
		instr.DefaultArgs = defArgs
		for p.tok.Kind == TokPunct && p.tok.Text == "," {
			p.advance()
			if !p.isKeyword("case") {
				p.errorf("expected 'case', got %q", p.tok.Text)
				return false
			}
			p.advance()
			neg := false
			if p.tok.Kind == TokPunct && p.tok.Text == "-" {
				neg = true
				p.advance()
			}
			if p.tok.Kind != TokInt {
				p.errorf("expected integer case value, got %q", p.tok.Text)
				return false
			}
			val := int32(p.tok.IntV)
			if neg {
				val = -val
			}
			p.advance()
			if !p.expectPunct("->") {
				return false
			}
			label, args, ok := p.parseLabelRef(b, names)
			if !ok {
				return false
			}
			instr.Cases = append(instr.Cases, il.SwitchCase{Value: val, Label: label, Args: args})
		}
		return p.install(blk, instr)

	case il.OpUnreachable:
		return p.install(blk, instr)

	case il.OpResume:
		bindResult()
		if p.tok.Kind == TokIdent && p.tok.Text == "void" {
			p.advance()
			return p.install(blk, instr)
		}
		v, ok := p.parseOperand(b, names)
		if !ok {
			return false
		}
		instr.Args = []il.Value{v}
		return p.install(blk, instr)

	case il.OpInvoke:
		bindResult()
		if !p.expectPunct("@") {
			return false
		}
		name, ok := p.expectIdent()
		if !ok {
			return false
		}
		args, ok := p.parseParenArgs(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		if !p.isKeyword("normal") {
			p.errorf("expected 'normal', got %q", p.tok.Text)
			return false
		}
		p.advance()
		normalLabel, normalArgs, ok := p.parseLabelRef(b, names)
		if !ok {
			return false
		}
		if !p.expectPunct(",") {
			return false
		}
		if !p.isKeyword("unwind") {
			p.errorf("expected 'unwind', got %q", p.tok.Text)
			return false
		}
		p.advance()
		unwindLabel, ok := p.expectIdent()
		if !ok {
			return false
		}
		instr.Callee = name
		instr.Args = args
		instr.Targets = []string{normalLabel}
		instr.BrArgs = [][]il.Value{normalArgs}
		instr.Unwind = unwindLabel
		return p.install(blk, instr)

	default:
		p.errorf("opcode %q not yet supported by the parser", opName)
		return false
	}

	bindResult()
	p.parseOptionalLoc(instr)
	if err := il.AddInstruction(blk, instr); err != nil {
		p.errorf("%v", err)
		return false
	}
	return true
}

// install finishes a terminator instruction via SetTerminator. Callers
// bind any result name before parsing targets/args, since invoke's
// normal-path args may reference it.
func (p *Parser) install(blk *il.BasicBlock, instr *il.Instruction) bool {
	p.parseOptionalLoc(instr)
	if err := il.SetTerminator(blk, instr); err != nil {
		p.errorf("%v", err)
		return false
	}
	return true
}

// parseOptionalLoc parses the trailing `@loc("file:line:col")` suffix
// spec §4.3 permits on any instruction. A bare "@" never otherwise
// appears in this position (operand parsing for the instruction's own
// args is already finished), so no lookahead is needed to disambiguate
// it from a global-ref operand.
func (p *Parser) parseOptionalLoc(instr *il.Instruction) {
	if !(p.tok.Kind == TokPunct && p.tok.Text == "@") {
		return
	}
	p.advance()
	if !p.isKeyword("loc") {
		p.errorf("expected 'loc', got %q", p.tok.Text)
		return
	}
	p.advance()
	if !p.expectPunct("(") {
		return
	}
	if p.tok.Kind != TokString {
		p.errorf("expected string literal, got %q", p.tok.Text)
		return
	}
	text := p.tok.Text
	p.advance()
	if !p.expectPunct(")") {
		return
	}
	instr.Loc = parseLocString(text)
}

// parseLocString splits "file:line:col" from the right, so Windows-style
// drive-letter paths ("C:\foo.il:10:4") still parse correctly.
func parseLocString(text string) il.Loc {
	col := strings.LastIndexByte(text, ':')
	if col < 0 {
		return il.Loc{File: text}
	}
	line := strings.LastIndexByte(text[:col], ':')
	if line < 0 {
		return il.Loc{File: text}
	}
	colVal, err1 := strconv.Atoi(text[col+1:])
	lineVal, err2 := strconv.Atoi(text[line+1 : col])
	if err1 != nil || err2 != nil {
		return il.Loc{File: text}
	}
	return il.Loc{File: text[:line], Line: lineVal, Col: colVal}
}

// globalRefType resolves name's type from whichever module table already
// declares it (global, extern, or function), falling back to an opaque
// Ptr when name forward-references a not-yet-parsed declaration (mutually
// recursive functions). Nothing re-resolves that Ptr after parsing, and
// the verifier's call.indirect check accepts only a function-typed operand.
func globalRefType(b *il.Builder, name string) il.Type {
	if g, ok := b.Module.GlobalByName(name); ok {
		return g.Type
	}
	if e, ok := b.Module.ExternByName(name); ok {
		sig := e.Sig
		return il.FuncOf(&sig)
	}
	if fn, ok := b.Module.FuncByName(name); ok {
		sig := fn.Sig
		return il.FuncOf(&sig)
	}
	return il.PtrTy
}

// parseOperand parses one operand: a bound name, a "@" global/extern/
// function reference, or a "type literal" typed constant.
func (p *Parser) parseOperand(b *il.Builder, names map[string]il.Value) (il.Value, bool) {
	if p.tok.Kind == TokPunct && p.tok.Text == "@" {
		p.advance()
		name, ok := p.expectIdent()
		if !ok {
			return il.Value{}, false
		}
		return il.GlobalRefVal(name, globalRefType(b, name)), true
	}
	if p.tok.Kind == TokIdent {
		if v, ok := names[p.tok.Text]; ok {
			p.advance()
			return v, true
		}
	}
	t, ok := p.parseType()
	if !ok {
		return il.Value{}, false
	}
	return p.parseValueLiteral(t)
}

// parseParenArgs parses a "(" operand,* ")" argument list.
func (p *Parser) parseParenArgs(b *il.Builder, names map[string]il.Value) ([]il.Value, bool) {
	if !p.expectPunct("(") {
		return nil, false
	}
	var args []il.Value
	for !(p.tok.Kind == TokPunct && p.tok.Text == ")") {
		v, ok := p.parseOperand(b, names)
		if !ok {
			return nil, false
		}
		args = append(args, v)
		if p.tok.Kind == TokPunct && p.tok.Text == "," {
			p.advance()
			continue
		}
		break
	}
	if !p.expectPunct(")") {
		return nil, false
	}
	return args, true
}

// parseLabelRef parses `label` or `label(args...)`.
func (p *Parser) parseLabelRef(b *il.Builder, names map[string]il.Value) (string, []il.Value, bool) {
	label, ok := p.expectIdent()
	if !ok {
		return "", nil, false
	}
	if p.tok.Kind == TokPunct && p.tok.Text == "(" {
		args, ok := p.parseParenArgs(b, names)
		if !ok {
			return "", nil, false
		}
		return label, args, true
	}
	return label, nil, true
}
