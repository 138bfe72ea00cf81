// Package analysis provides the read-only analyses the verifier and
// transform pipeline share: CFG queries, block orderings, a dominator
// tree, and a basic alias analysis — none of which mutate the module
// they inspect (spec §4.4).
package analysis

import "github.com/splanck/viper-sub008/internal/il"

// CFG is a thin, on-demand view over a Function's control-flow graph. It
// materializes nothing of its own: il.BasicBlock already carries its
// Preds/Succs (filled in by the builder or by iltext's edge-linking
// pass), so CFG only caches the one per-function lookup order.go and
// dominators.go need repeatedly — the block-index map — rather than a
// separate adjacency structure. A CFG is only valid for the Function
// generation it was built from; rebuild it after any pass that rewrites
// blocks or edges.
type CFG struct {
	fn      *il.Function
	indexOf map[il.BlockID]int
}

// New builds a CFG view over fn.
func New(fn *il.Function) *CFG {
	idx := make(map[il.BlockID]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		idx[b.ID] = i
	}
	return &CFG{fn: fn, indexOf: idx}
}

// Func returns the function this CFG was built over.
func (c *CFG) Func() *il.Function { return c.fn }

// Entry returns the function's entry block.
func (c *CFG) Entry() *il.BasicBlock { return c.fn.Entry() }

// Succs returns b's successors, in edge order.
func (c *CFG) Succs(b *il.BasicBlock) []*il.BasicBlock { return b.Succs }

// Preds returns b's predecessors, in edge order.
func (c *CFG) Preds(b *il.BasicBlock) []*il.BasicBlock { return b.Preds }

// Index returns b's position in fn.Blocks, for use as a dense array key
// by callers that want per-block arrays without walking fn.Blocks again.
func (c *CFG) Index(b *il.BasicBlock) int { return c.indexOf[b.ID] }

// NumBlocks reports the function's block count.
func (c *CFG) NumBlocks() int { return len(c.fn.Blocks) }
