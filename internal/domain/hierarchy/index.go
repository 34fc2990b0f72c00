// Package hierarchy indexes nested-set trees (item groups, cost centers,
// supplier groups) so reports can answer ancestor, descendant and depth
// queries without going back to the database.
package hierarchy

import (
	"sort"

	"ledgertree/internal/core/apperror"
)

// Node is one row of a nested-set table.
// ParentID is empty for roots.
type Node struct {
	ID       string `db:"id" json:"id"`
	ParentID string `db:"parent_id" json:"parentId,omitempty"`
	Left     int    `db:"lft" json:"lft"`
	Right    int    `db:"rgt" json:"rgt"`
}

// IsRoot returns true if the node has no parent.
func (n Node) IsRoot() bool {
	return n.ParentID == ""
}

// Contains reports whether other lies strictly inside n's bounds.
func (n Node) Contains(other Node) bool {
	return n.Left < other.Left && other.Right < n.Right
}

// Index is a read-only snapshot of a forest.
// It is built once per report run and must not be mutated afterwards.
type Index struct {
	nodes    []Node         // input order
	pos      map[string]int // id -> input position
	parent   []int          // input position -> parent position, -1 for roots
	depth    []int
	children [][]int // sorted by Left, ties by input order
	roots    []int   // input order
	byLeft   []int   // all positions sorted by Left, ties by input order
	preorder []int
	maxDepth int
}

// Build validates nodes and returns an index over them.
// Fails with an INVALID_HIERARCHY error when an id is empty or repeated,
// when left >= right, when a parent id is unknown, or when a child does
// not lie strictly inside its parent's bounds (which also rules out cycles).
func Build(nodes []Node) (*Index, error) {
	idx := &Index{
		nodes:    make([]Node, len(nodes)),
		pos:      make(map[string]int, len(nodes)),
		parent:   make([]int, len(nodes)),
		depth:    make([]int, len(nodes)),
		children: make([][]int, len(nodes)),
	}
	copy(idx.nodes, nodes)

	for i, n := range idx.nodes {
		if n.ID == "" {
			return nil, apperror.NewInvalidHierarchy("", "empty node id").WithDetail("position", i)
		}
		if _, dup := idx.pos[n.ID]; dup {
			return nil, apperror.NewInvalidHierarchy(n.ID, "duplicate node id")
		}
		if n.Left >= n.Right {
			return nil, apperror.NewInvalidHierarchy(n.ID, "left bound must be less than right bound").
				WithDetail("lft", n.Left).
				WithDetail("rgt", n.Right)
		}
		idx.pos[n.ID] = i
	}

	for i, n := range idx.nodes {
		if n.IsRoot() {
			idx.parent[i] = -1
			idx.roots = append(idx.roots, i)
			continue
		}
		p, ok := idx.pos[n.ParentID]
		if !ok {
			return nil, apperror.NewInvalidHierarchy(n.ID, "parent does not exist").
				WithDetail("parent_id", n.ParentID)
		}
		if !idx.nodes[p].Contains(n) {
			return nil, apperror.NewInvalidHierarchy(n.ID, "bounds are not inside parent bounds").
				WithDetail("parent_id", n.ParentID)
		}
		idx.parent[i] = p
		idx.children[p] = append(idx.children[p], i)
	}

	idx.byLeft = make([]int, len(idx.nodes))
	for i := range idx.byLeft {
		idx.byLeft[i] = i
	}
	idx.sortByLeft(idx.byLeft)
	for i := range idx.children {
		idx.sortByLeft(idx.children[i])
	}

	idx.walk()
	return idx, nil
}

func (idx *Index) sortByLeft(positions []int) {
	sort.SliceStable(positions, func(a, b int) bool {
		return idx.nodes[positions[a]].Left < idx.nodes[positions[b]].Left
	})
}

// walk computes depths and the pre-order sequence in a single pass.
// Every position is visited exactly once because each parent chain ends at a root.
func (idx *Index) walk() {
	roots := make([]int, len(idx.roots))
	copy(roots, idx.roots)
	idx.sortByLeft(roots)

	idx.preorder = make([]int, 0, len(idx.nodes))
	stack := make([]int, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p := idx.parent[cur]; p >= 0 {
			idx.depth[cur] = idx.depth[p] + 1
		}
		if idx.depth[cur] > idx.maxDepth {
			idx.maxDepth = idx.depth[cur]
		}
		idx.preorder = append(idx.preorder, cur)

		kids := idx.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Len returns the number of nodes.
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Has reports whether id is part of the index.
func (idx *Index) Has(id string) bool {
	_, ok := idx.pos[id]
	return ok
}

// Node returns the node with the given id.
func (idx *Index) Node(id string) (Node, bool) {
	p, ok := idx.pos[id]
	if !ok {
		return Node{}, false
	}
	return idx.nodes[p], true
}

// Nodes returns all nodes in input order.
func (idx *Index) Nodes() []Node {
	out := make([]Node, len(idx.nodes))
	copy(out, idx.nodes)
	return out
}

// Parent returns the parent id, or false for roots and unknown ids.
func (idx *Index) Parent(id string) (string, bool) {
	p, ok := idx.pos[id]
	if !ok || idx.parent[p] < 0 {
		return "", false
	}
	return idx.nodes[idx.parent[p]].ID, true
}

// DescendantsOf returns every node whose bounds lie strictly inside the
// bounds of id, ordered by left bound. Leaves and unknown ids yield nil.
func (idx *Index) DescendantsOf(id string) []string {
	p, ok := idx.pos[id]
	if !ok {
		return nil
	}
	n := idx.nodes[p]

	start := sort.Search(len(idx.byLeft), func(i int) bool {
		return idx.nodes[idx.byLeft[i]].Left > n.Left
	})

	var out []string
	for _, q := range idx.byLeft[start:] {
		cand := idx.nodes[q]
		if cand.Left >= n.Right {
			break
		}
		if cand.Right < n.Right {
			out = append(out, cand.ID)
		}
	}
	return out
}

// IsDescendant reports whether id lies strictly inside ancestorID.
func (idx *Index) IsDescendant(id, ancestorID string) bool {
	n, ok := idx.Node(id)
	if !ok {
		return false
	}
	a, ok := idx.Node(ancestorID)
	if !ok {
		return false
	}
	return a.Contains(n)
}

// AncestorsOf returns the parent chain of id, nearest first, ending at the root.
func (idx *Index) AncestorsOf(id string) []string {
	p, ok := idx.pos[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, idx.depth[p])
	for cur := idx.parent[p]; cur >= 0; cur = idx.parent[cur] {
		out = append(out, idx.nodes[cur].ID)
	}
	return out
}

// DepthOf returns 0 for roots and 1 + depth of the parent otherwise.
// Unknown ids return -1. Depths are computed once at build time.
func (idx *Index) DepthOf(id string) int {
	p, ok := idx.pos[id]
	if !ok {
		return -1
	}
	return idx.depth[p]
}

// MaxDepth returns the depth of the deepest node.
func (idx *Index) MaxDepth() int {
	return idx.maxDepth
}

// IsLeaf reports whether id has no children. Unknown ids are not leaves.
func (idx *Index) IsLeaf(id string) bool {
	p, ok := idx.pos[id]
	if !ok {
		return false
	}
	return len(idx.children[p]) == 0
}

// Children returns the direct children of id ordered by left bound.
func (idx *Index) Children(id string) []string {
	p, ok := idx.pos[id]
	if !ok {
		return nil
	}
	out := make([]string, len(idx.children[p]))
	for i, c := range idx.children[p] {
		out[i] = idx.nodes[c].ID
	}
	return out
}

// Roots returns root ids in input order.
func (idx *Index) Roots() []string {
	out := make([]string, len(idx.roots))
	for i, r := range idx.roots {
		out[i] = idx.nodes[r].ID
	}
	return out
}

// PreOrder returns every id depth-first, siblings left to right by left
// bound, so each parent is immediately followed by its subtree.
func (idx *Index) PreOrder() []string {
	out := make([]string, len(idx.preorder))
	for i, p := range idx.preorder {
		out[i] = idx.nodes[p].ID
	}
	return out
}

// Subtree returns id followed by its subtree in pre-order.
func (idx *Index) Subtree(id string) []string {
	p, ok := idx.pos[id]
	if !ok {
		return nil
	}
	var out []string
	stack := []int{p}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, idx.nodes[cur].ID)
		kids := idx.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}
