package iltext

import (
	"fmt"
	"strings"

	"github.com/splanck/viper-sub008/internal/analysis"
	"github.com/splanck/viper-sub008/internal/il"
)

// Disassemble renders m in the same grammar Emit produces, but as a
// human-facing listing rather than a round-trippable artifact: each
// block is annotated with its immediate dominator, in the spirit of the
// teacher's gosym.LineTable pretty-printers (src/debug/gosym/pclntab.go)
// that walk a function's line table once and print a source position
// alongside each program counter — here the "position" is a block's
// place in the dominator tree instead of a source line, and the table
// walked is analysis.DomTree instead of a decoded pclntab section.
func Disassemble(m *il.Module) string {
	var sb strings.Builder
	for _, fn := range m.Functions {
		disassembleFunction(&sb, fn)
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleFunction renders a single function's listing, used directly
// by `ilc disasm --func`.
func DisassembleFunction(fn *il.Function) string {
	var sb strings.Builder
	disassembleFunction(&sb, fn)
	return sb.String()
}

func disassembleFunction(sb *strings.Builder, fn *il.Function) {
	fmt.Fprintf(sb, "fn %s%s {\n", fn.Name, sigTail(&fn.Sig))
	if len(fn.Blocks) == 0 {
		sb.WriteString("}\n")
		return
	}

	cfg := analysis.New(fn)
	dom := analysis.Dominators(cfg)

	for _, blk := range fn.Blocks {
		idomNote := "idom=<entry>"
		if idomBlk, ok := dom.IDom(blk); ok {
			idomNote = "idom=" + idomBlk.Name
		} else if blk != fn.Entry() {
			idomNote = "idom=<unreachable>"
		}

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
		fmt.Fprintf(sb, ":  ; %s, preds=%s\n", idomNote, blockNames(blk.Preds))

		for _, in := range blk.Instrs {
			sb.WriteString("    ")
			emitInstruction(sb, in)
			sb.WriteString("\n")
		}
		if blk.Terminator != nil {
			sb.WriteString("    ")
			emitInstruction(sb, blk.Terminator)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
}

func blockNames(blocks []*il.BasicBlock) string {
	if len(blocks) == 0 {
		return "{}"
	}
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.Name
	}
	return "{" + strings.Join(names, ",") + "}"
}
