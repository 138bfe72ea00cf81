package iltext

import (
	"fmt"
	"math"

	"github.com/splanck/viper-sub008/internal/il"
)

// ParseError is one recoverable diagnostic. The parser continues past a
// ParseError to the next statement boundary (block or function), per
// spec §4.3, collecting every error it finds rather than stopping at the
// first.
type ParseError struct {
	Pos Pos
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Parser is a hand-rolled recursive-descent reader over a Lexer, grounded
// on cmd/asm/internal/asm/parse.go's Parser: one token of lookahead, an
// accumulated error list rather than an immediate panic, and per-function
// forward-reference resolution (linkFunctionEdges) for branch targets
// named before their block is parsed. Value names (block parameters and
// results) resolve only once they have been defined.
type Parser struct {
	lex     *Lexer
	tok     Token
	errs    []error
	lastErr int // line of the last recorded error, for one-error-per-line
}

// Parse reads a complete module from src (spec §4.3 grammar). It returns
// every well-typed top-level declaration it could recover, plus the
// accumulated list of ParseErrors (nil if none).
func Parse(src, file string) (*il.Module, []error) {
	p := &Parser{lex: NewLexer(src, file), lastErr: -1}
	p.advance()

	m := il.NewModule(file)
	b := il.NewBuilder(m)

	for p.tok.Kind != TokEOF {
		switch {
		case p.isKeyword("extern"):
			p.parseExtern(b)
		case p.isKeyword("type"):
			p.parseTypeDecl(b)
		case p.isKeyword("global"):
			p.parseGlobal(b)
		case p.isKeyword("fn"):
			p.parseFunction(b)
		default:
			p.errorf("expected 'extern', 'type', 'global', or 'fn', got %q", p.tok.Text)
			p.syncToTopLevel()
		}
	}
	return m, p.errs
}

func (p *Parser) advance() {
	tok, err := p.lex.Next()
	if err != nil {
		p.errs = append(p.errs, err)
		p.tok = Token{Kind: TokEOF}
		return
	}
	p.tok = tok
}

func (p *Parser) errorf(format string, args ...interface{}) {
	if p.tok.Pos.Line == p.lastErr {
		return // at most one error per line, per spec §4.3
	}
	p.lastErr = p.tok.Pos.Line
	p.errs = append(p.errs, &ParseError{Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) isKeyword(kw string) bool {
	return p.tok.Kind == TokIdent && p.tok.Text == kw
}

func (p *Parser) expectPunct(r string) bool {
	if p.tok.Kind == TokPunct && p.tok.Text == r {
		p.advance()
		return true
	}
	p.errorf("expected %q, got %q", r, p.tok.Text)
	return false
}

func (p *Parser) expectIdent() (string, bool) {
	if p.tok.Kind == TokIdent {
		s := p.tok.Text
		p.advance()
		return s, true
	}
	p.errorf("expected identifier, got %q", p.tok.Text)
	return "", false
}

// syncToTopLevel discards tokens until the next plausible top-level
// keyword, so one malformed declaration doesn't abort the whole parse.
func (p *Parser) syncToTopLevel() {
	for p.tok.Kind != TokEOF {
		if p.isKeyword("extern") || p.isKeyword("type") || p.isKeyword("global") || p.isKeyword("fn") {
			return
		}
		p.advance()
	}
}

// ---- types ----

func (p *Parser) parseType() (il.Type, bool) {
	if p.tok.Kind != TokIdent {
		p.errorf("expected type, got %q", p.tok.Text)
		return il.Void, false
	}
	name := p.tok.Text
	switch name {
	case "void":
		p.advance()
		return il.Void, true
	case "i1":
		p.advance()
		return il.I1, true
	case "i8":
		p.advance()
		return il.I8, true
	case "i16":
		p.advance()
		return il.I16, true
	case "i32":
		p.advance()
		return il.I32, true
	case "i64":
		p.advance()
		return il.I64, true
	case "f32":
		p.advance()
		return il.F32, true
	case "f64":
		p.advance()
		return il.F64, true
	case "ptr":
		p.advance()
		return il.PtrTy, true
	case "str":
		p.advance()
		return il.StrTy, true
	case "array":
		p.advance()
		if !p.expectPunct("(") {
			return il.Void, false
		}
		elem, ok := p.parseType()
		if !ok {
			return il.Void, false
		}
		if !p.expectPunct(")") {
			return il.Void, false
		}
		return il.ArrayOf(elem), true
	case "struct":
		p.advance()
		if !p.expectPunct("(") {
			return il.Void, false
		}
		id, ok := p.expectIdent()
		if !ok {
			return il.Void, false
		}
		if !p.expectPunct(")") {
			return il.Void, false
		}
		return il.StructOf(il.StructID(id)), true
	case "func":
		p.advance()
		sig, ok := p.parseSigTail()
		if !ok {
			return il.Void, false
		}
		return il.FuncOf(sig), true
	default:
		p.errorf("unknown type %q", name)
		p.advance()
		return il.Void, false
	}
}

// parseSigTail parses "(" type-list ")" "->" type, used by both `func`
// types and top-level extern/function declarations.
func (p *Parser) parseSigTail() (*il.Signature, bool) {
	if !p.expectPunct("(") {
		return nil, false
	}
	var params []il.Type
	for !(p.tok.Kind == TokPunct && p.tok.Text == ")") {
		t, ok := p.parseType()
		if !ok {
			return nil, false
		}
		params = append(params, t)
		if p.tok.Kind == TokPunct && p.tok.Text == "," {
			p.advance()
			continue
		}
		break
	}
	if !p.expectPunct(")") {
		return nil, false
	}
	if !p.expectPunct("->") {
		return nil, false
	}
	ret, ok := p.parseType()
	if !ok {
		return nil, false
	}
	return &il.Signature{Params: params, Ret: ret}, true
}

// ---- top-level declarations ----

func (p *Parser) parseExtern(b *il.Builder) {
	p.advance() // 'extern'
	name, ok := p.expectIdent()
	if !ok {
		p.syncToTopLevel()
		return
	}
	sig, ok := p.parseSigTail()
	if !ok {
		p.syncToTopLevel()
		return
	}
	if err := b.DeclareExtern(name, *sig); err != nil {
		p.errorf("%v", err)
	}
}

func (p *Parser) parseTypeDecl(b *il.Builder) {
	p.advance() // 'type'
	name, ok := p.expectIdent()
	if !ok {
		p.syncToTopLevel()
		return
	}
	if !p.expectPunct("{") {
		p.syncToTopLevel()
		return
	}
	var fields []il.FieldDecl
	for !(p.tok.Kind == TokPunct && p.tok.Text == "}") {
		fname, ok := p.expectIdent()
		if !ok {
			p.syncToTopLevel()
			return
		}
		if !p.expectPunct(":") {
			p.syncToTopLevel()
			return
		}
		ft, ok := p.parseType()
		if !ok {
			p.syncToTopLevel()
			return
		}
		fields = append(fields, il.FieldDecl{Name: fname, Type: ft})
		if p.tok.Kind == TokPunct && p.tok.Text == "," {
			p.advance()
		}
	}
	p.advance() // '}'
	if err := b.DefineStruct(il.StructID(name), fields); err != nil {
		p.errorf("%v", err)
	}
}

func (p *Parser) parseGlobal(b *il.Builder) {
	p.advance() // 'global'
	name, ok := p.expectIdent()
	if !ok {
		p.syncToTopLevel()
		return
	}
	t, ok := p.parseType()
	if !ok {
		p.syncToTopLevel()
		return
	}
	if !p.expectPunct("=") {
		p.syncToTopLevel()
		return
	}
	v, ok := p.parseValueLiteral(t)
	if !ok {
		p.syncToTopLevel()
		return
	}
	if err := b.DeclareGlobal(name, t, v); err != nil {
		p.errorf("%v", err)
	}
}

// parseValueLiteral parses a bare constant literal (no %temp, no @global)
// for use in `global` initializers and typed operand constants. A
// negative int/float literal arrives as a "-" punct token followed by
// the unsigned literal, since text/scanner never folds a leading sign
// into the number token itself.
func (p *Parser) parseValueLiteral(t il.Type) (il.Value, bool) {
	neg := false
	if p.tok.Kind == TokPunct && p.tok.Text == "-" {
		neg = true
		p.advance()
	} else if p.tok.Kind == TokPunct && p.tok.Text == "+" && t.IsFloat() {
		p.advance() // "+Inf"
	}
	if t.IsFloat() && p.tok.Kind == TokIdent && (p.tok.Text == "NaN" || p.tok.Text == "Inf") {
		v := math.Inf(1)
		if p.tok.Text == "NaN" {
			v = math.NaN()
		}
		if neg {
			v = -v
		}
		p.advance()
		return il.ConstFloat64(t, v), true
	}
	switch p.tok.Kind {
	case TokInt:
		v := p.tok.IntV
		if neg {
			v = -v
		}
		p.advance()
		if t.IsFloat() {
			return il.ConstFloat64(t, float64(v)), true
		}
		return il.ConstInt64(t, v), true
	case TokFloat:
		v := p.tok.FltV
		if neg {
			v = -v
		}
		p.advance()
		return il.ConstFloat64(t, v), true
	}
	if neg {
		p.errorf("expected number after '-', got %q", p.tok.Text)
		return il.Value{}, false
	}
	switch p.tok.Kind {
	case TokString:
		s := p.tok.Text
		p.advance()
		return il.ConstStr(s), true
	case TokIdent:
		switch p.tok.Text {
		case "true", "false":
			v := p.tok.Text == "true"
			p.advance()
			return il.ConstBoolVal(v), true
		case "null":
			p.advance()
			return il.ConstNullVal(t), true
		}
	}
	p.errorf("expected literal, got %q", p.tok.Text)
	return il.Value{}, false
}
