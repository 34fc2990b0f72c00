package rollup

import (
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/hierarchy"
)

// grid is a flat nodes x columns arena of cell sums, indexed by
// pre-order position.
type grid struct {
	ids    []string
	pos    map[string]int
	parent []int
	depth  []int
	levels [][]int // depth -> positions
	width  int
	cells  []types.Money
}

func newGrid(idx *hierarchy.Index, width int) *grid {
	ids := idx.PreOrder()
	g := &grid{
		ids:    ids,
		pos:    make(map[string]int, len(ids)),
		parent: make([]int, len(ids)),
		depth:  make([]int, len(ids)),
		levels: make([][]int, idx.MaxDepth()+1),
		width:  width,
		cells:  make([]types.Money, len(ids)*width),
	}
	for i, id := range ids {
		g.pos[id] = i
	}
	for i, id := range ids {
		g.parent[i] = -1
		if pid, ok := idx.Parent(id); ok {
			g.parent[i] = g.pos[pid]
		}
		d := idx.DepthOf(id)
		g.depth[i] = d
		g.levels[d] = append(g.levels[d], i)
	}
	return g
}

func (g *grid) add(p, c int, amount types.Money) {
	k := p*g.width + c
	g.cells[k] = g.cells[k].Add(amount)
}

// rollUp adds each node's cells into its parent, deepest level first, so
// every parent has its complete subtree sums before it is folded further up.
func (g *grid) rollUp() {
	for d := len(g.levels) - 1; d > 0; d-- {
		for _, p := range g.levels[d] {
			par := g.parent[p]
			src := p * g.width
			dst := par * g.width
			for c := 0; c < g.width; c++ {
				g.cells[dst+c] = g.cells[dst+c].Add(g.cells[src+c])
			}
		}
	}
}

func (g *grid) row(p int) []types.Money {
	out := make([]types.Money, g.width)
	copy(out, g.cells[p*g.width:(p+1)*g.width])
	return out
}

func (g *grid) parentID(p int) string {
	if g.parent[p] < 0 {
		return ""
	}
	return g.ids[g.parent[p]]
}
