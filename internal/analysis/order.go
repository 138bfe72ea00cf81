package analysis

import "github.com/splanck/viper-sub008/internal/il"

// color tracks a block's DFS state for both the postorder walk and the
// cycle check below, in the same three-state scheme (white/gray/black)
// the teacher's own sparse-set-backed liveness walk in stackalloc.go uses
// to distinguish "not yet visited" from "on the current path" from
// "fully processed", just keyed by dense CFG index instead of a sparse
// set.
type color uint8

const (
	white color = iota
	gray
	black
)

// PostOrder returns fn's reachable blocks in postorder (each block after
// all of its successors), starting from the entry block. Unreachable
// blocks are omitted.
func PostOrder(c *CFG) []*il.BasicBlock {
	n := c.NumBlocks()
	if n == 0 {
		return nil
	}
	colors := make([]color, n)
	order := make([]*il.BasicBlock, 0, n)

	// Explicit stack of (block, next-successor-index) frames rather than
	// recursion, so a pathologically long straight-line function can't
	// blow the Go stack.
	type frame struct {
		b   *il.BasicBlock
		si  int
	}
	entry := c.Entry()
	if entry == nil {
		return nil
	}
	stack := []frame{{b: entry, si: 0}}
	colors[c.Index(entry)] = gray

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.si < len(top.b.Succs) {
			next := top.b.Succs[top.si]
			top.si++
			if colors[c.Index(next)] == white {
				colors[c.Index(next)] = gray
				stack = append(stack, frame{b: next, si: 0})
			}
			continue
		}
		colors[c.Index(top.b)] = black
		order = append(order, top.b)
		stack = stack[:len(stack)-1]
	}
	return order
}

// ReversePostOrder returns fn's reachable blocks in reverse postorder
// (each block before all of its successors along forward edges) — the
// traversal order Cooper-Harvey-Kennedy dominator computation and
// Mem2Reg's acyclic rewrite both require.
func ReversePostOrder(c *CFG) []*il.BasicBlock {
	po := PostOrder(c)
	rpo := make([]*il.BasicBlock, len(po))
	for i, b := range po {
		rpo[len(po)-1-i] = b
	}
	return rpo
}

// IsAcyclic reports whether fn's reachable subgraph has no back edge
// (a cbr/br/switch/invoke target that is an ancestor on the current DFS
// path) — Mem2Reg's acyclic rewrite is gated on this.
func IsAcyclic(c *CFG) bool {
	n := c.NumBlocks()
	if n == 0 {
		return true
	}
	colors := make([]color, n)
	entry := c.Entry()
	if entry == nil {
		return true
	}

	var hasBackEdge bool
	type frame struct {
		b  *il.BasicBlock
		si int
	}
	stack := []frame{{b: entry, si: 0}}
	colors[c.Index(entry)] = gray
	for len(stack) > 0 && !hasBackEdge {
		top := &stack[len(stack)-1]
		if top.si < len(top.b.Succs) {
			next := top.b.Succs[top.si]
			top.si++
			switch colors[c.Index(next)] {
			case white:
				colors[c.Index(next)] = gray
				stack = append(stack, frame{b: next, si: 0})
			case gray:
				hasBackEdge = true
			}
			continue
		}
		colors[c.Index(top.b)] = black
		stack = stack[:len(stack)-1]
	}
	return !hasBackEdge
}

// TopoOrder returns a topological order of fn's reachable blocks (every
// block before all of its successors), or ok=false if the reachable
// subgraph has a cycle. Reverse postorder is already a valid topological
// order for a DAG, so this just validates acyclicity and reuses it.
func TopoOrder(c *CFG) (order []*il.BasicBlock, ok bool) {
	if !IsAcyclic(c) {
		return nil, false
	}
	return ReversePostOrder(c), true
}
