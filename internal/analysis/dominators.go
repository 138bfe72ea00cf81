package analysis

import (
	"golang.org/x/exp/slices"

	"github.com/splanck/viper-sub008/internal/il"
)

// DomTree is the immediate-dominator relation over one function's
// reachable blocks, plus a children index built from it (spec §4.4:
// "produces immediate-dominator links and a children index").
type DomTree struct {
	cfg     *CFG
	idom    []int // CFG index -> CFG index of immediate dominator, -1 if unreachable
	postNum []int // CFG index -> postorder number, ordering the two fingers in intersect
	kids    [][]int
}

// Dominators computes c's dominator tree via the Cooper-Harvey-Kennedy
// iterative algorithm: repeated intersection of each block's processed
// predecessors' dominator sets over reverse postorder, to a fixed point
// (spec §4.4) — grounded on the teacher's own postorder-seeded,
// to-fixed-point backward propagation in stackalloc.go's liveSpills walk,
// here over the "immediate dominator" lattice instead of a liveness set.
func Dominators(c *CFG) *DomTree {
	n := c.NumBlocks()
	t := &DomTree{cfg: c, idom: make([]int, n), postNum: make([]int, n), kids: make([][]int, n)}
	for i := range t.idom {
		t.idom[i] = -1
	}
	rpo := ReversePostOrder(c)
	if len(rpo) == 0 {
		return t
	}
	for pos, b := range rpo {
		t.postNum[c.Index(b)] = len(rpo) - 1 - pos
	}

	entryIdx := c.Index(rpo[0])
	t.idom[entryIdx] = entryIdx

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			bi := c.Index(b)
			processed := -1
			for _, p := range b.Preds {
				pi := c.Index(p)
				if t.idom[pi] != -1 {
					processed = pi
					break
				}
			}
			if processed == -1 {
				continue // unreachable via any already-processed predecessor this round
			}
			newIdom := processed
			for _, p := range b.Preds {
				pi := c.Index(p)
				if pi == processed || t.idom[pi] == -1 {
					continue
				}
				newIdom = t.intersect(newIdom, pi)
			}
			if t.idom[bi] != newIdom {
				t.idom[bi] = newIdom
				changed = true
			}
		}
	}

	for i, d := range t.idom {
		if i == entryIdx || d == -1 {
			continue
		}
		t.kids[d] = append(t.kids[d], i)
	}
	for i := range t.kids {
		slices.SortFunc(t.kids[i], func(a, b int) int {
			return int(c.fn.Blocks[a].ID) - int(c.fn.Blocks[b].ID)
		})
	}
	return t
}

func (t *DomTree) intersect(a, b int) int {
	for a != b {
		for t.postNum[a] < t.postNum[b] {
			a = t.idom[a]
		}
		for t.postNum[b] < t.postNum[a] {
			b = t.idom[b]
		}
	}
	return a
}

// IDom returns b's immediate dominator, or ok=false if b is unreachable
// or is the entry block (which has none).
func (t *DomTree) IDom(b *il.BasicBlock) (*il.BasicBlock, bool) {
	bi := t.cfg.Index(b)
	d := t.idom[bi]
	if d == -1 || d == bi {
		return nil, false
	}
	return t.cfg.fn.Blocks[d], true
}

// Children returns the blocks b immediately dominates, in ascending
// BlockID order.
func (t *DomTree) Children(b *il.BasicBlock) []*il.BasicBlock {
	bi := t.cfg.Index(b)
	kids := t.kids[bi]
	out := make([]*il.BasicBlock, len(kids))
	for i, k := range kids {
		out[i] = t.cfg.fn.Blocks[k]
	}
	return out
}

// Dominates reports whether a dominates b (every path from the entry to
// b passes through a), including the reflexive case a == b.
func (t *DomTree) Dominates(a, b *il.BasicBlock) bool {
	ai, bi := t.cfg.Index(a), t.cfg.Index(b)
	if t.idom[ai] == -1 || t.idom[bi] == -1 {
		return false // unreachable blocks dominate nothing and are dominated by nothing
	}
	for {
		if bi == ai {
			return true
		}
		if t.idom[bi] == bi {
			return false // reached the entry without passing through a
		}
		bi = t.idom[bi]
	}
}
