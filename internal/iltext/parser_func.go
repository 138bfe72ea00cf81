package iltext

import (
	"github.com/splanck/viper-sub008/internal/il"
)

// parseFunction parses:
//
//	fn name(type, type, ...) -> type {
//	  label(param: type, ...):
//	    result: type = opcode type operand operand [@loc("file:line:col")]
//	    ...
//	    <terminator>
//	  ...
//	}
//
// Result names and block-parameter names share one per-function namespace
// (names map) resolved as each is defined, since the IL permits a
// dominance-based use of any earlier value, not only same-block ones.
// Branch/switch/invoke targets are recorded as plain strings on the
// Instruction (matching the in-memory data model) and resolved to real
// *BasicBlock edges in a finalization pass once every block in the
// function is known, so a block may be branched to before its own text
// appears.
func (p *Parser) parseFunction(b *il.Builder) {
	p.advance() // 'fn'
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
	fn, err := b.AddFunction(name, *sig)
	if err != nil {
		p.errorf("%v", err)
		p.syncToTopLevel()
		return
	}
	if !p.expectPunct("{") {
		p.syncToTopLevel()
		return
	}

	names := make(map[string]il.Value)
	for p.tok.Kind == TokIdent && !p.isKeyword("extern") && !p.isKeyword("type") && !p.isKeyword("global") && !p.isKeyword("fn") {
		if !p.parseBlock(fn, b, names) {
			p.syncToFunctionBoundary()
		}
		if p.tok.Kind == TokPunct && p.tok.Text == "}" {
			break
		}
	}
	if !p.expectPunct("}") {
		p.syncToTopLevel()
		return
	}

	linkFunctionEdges(fn)
}

// syncToFunctionBoundary discards tokens until the function's closing
// brace, so one malformed block doesn't stop the parser from recovering
// at the next top-level declaration.
func (p *Parser) syncToFunctionBoundary() {
	for p.tok.Kind != TokEOF {
		if p.tok.Kind == TokPunct && p.tok.Text == "}" {
			return
		}
		p.advance()
	}
}

func (p *Parser) parseBlock(fn *il.Function, b *il.Builder, names map[string]il.Value) bool {
	label, ok := p.expectIdent()
	if !ok {
		return false
	}
	var paramNames []string
	var paramTypes []il.Type
	if p.tok.Kind == TokPunct && p.tok.Text == "(" {
		p.advance()
		for !(p.tok.Kind == TokPunct && p.tok.Text == ")") {
			pn, ok := p.expectIdent()
			if !ok {
				return false
			}
			if !p.expectPunct(":") {
				return false
			}
			pt, ok := p.parseType()
			if !ok {
				return false
			}
			paramNames = append(paramNames, pn)
			paramTypes = append(paramTypes, pt)
			if p.tok.Kind == TokPunct && p.tok.Text == "," {
				p.advance()
				continue
			}
			break
		}
		if !p.expectPunct(")") {
			return false
		}
	}
	if !p.expectPunct(":") {
		return false
	}
	blk, err := il.CreateBlock(fn, label, paramTypes, paramNames)
	if err != nil {
		p.errorf("%v", err)
		return false
	}
	for i, pn := range paramNames {
		names[pn] = il.Temp(blk.Params[i].ID, blk.Params[i].Type)
	}

	for !blk.IsTerminated() {
		if p.tok.Kind == TokPunct && p.tok.Text == "}" {
			p.errorf("block %q ends without a terminator", label)
			return false
		}
		if !p.parseStatement(blk, b, names) {
			return false
		}
	}
	return true
}

// linkFunctionEdges resolves every terminator's textual block-name
// targets into real CFG edges, once all of fn's blocks exist.
func linkFunctionEdges(fn *il.Function) {
	byName := make(map[string]*il.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		byName[b.Name] = b
	}
	link := func(from *il.BasicBlock, name string) {
		if to, ok := byName[name]; ok {
			il.LinkEdge(from, to)
		}
	}
	for _, b := range fn.Blocks {
		t := b.Terminator
		if t == nil {
			continue
		}
		switch t.Op {
		case il.OpBr:
			if len(t.Targets) == 1 {
				link(b, t.Targets[0])
			}
		case il.OpCbr:
			for _, tg := range t.Targets {
				link(b, tg)
			}
		case il.OpSwitch:
			if t.Default != "" {
				link(b, t.Default)
			}
			seen := map[string]bool{}
			for _, c := range t.Cases {
				if seen[c.Label] {
					continue
				}
				seen[c.Label] = true
				link(b, c.Label)
			}
		case il.OpInvoke:
			for _, tg := range t.Targets {
				link(b, tg)
			}
			if t.Unwind != "" {
				link(b, t.Unwind)
			}
		}
	}
}
