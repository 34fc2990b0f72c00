package hierarchy

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertree/internal/core/apperror"
)

// All Item Groups
// ├── Raw Material
// │   ├── Steel
// │   └── Cement
// └── Consumables
//
//	Fuel (second root)
func itemGroups() []Node {
	return []Node{
		{ID: "Consumables", ParentID: "All Item Groups", Left: 8, Right: 9},
		{ID: "All Item Groups", Left: 1, Right: 10},
		{ID: "Raw Material", ParentID: "All Item Groups", Left: 2, Right: 7},
		{ID: "Steel", ParentID: "Raw Material", Left: 3, Right: 4},
		{ID: "Cement", ParentID: "Raw Material", Left: 5, Right: 6},
		{ID: "Fuel", Left: 11, Right: 12},
	}
}

func TestBuild_Queries(t *testing.T) {
	idx, err := Build(itemGroups())
	require.NoError(t, err)

	assert.Equal(t, 6, idx.Len())
	assert.Equal(t, []string{"All Item Groups", "Fuel"}, idx.Roots())
	assert.Equal(t, 0, idx.DepthOf("All Item Groups"))
	assert.Equal(t, 0, idx.DepthOf("Fuel"))
	assert.Equal(t, 1, idx.DepthOf("Raw Material"))
	assert.Equal(t, 2, idx.DepthOf("Steel"))
	assert.Equal(t, -1, idx.DepthOf("missing"))
	assert.Equal(t, 2, idx.MaxDepth())

	assert.Equal(t, []string{"Raw Material", "All Item Groups"}, idx.AncestorsOf("Cement"))
	assert.Empty(t, idx.AncestorsOf("All Item Groups"))

	parent, ok := idx.Parent("Steel")
	assert.True(t, ok)
	assert.Equal(t, "Raw Material", parent)
	_, ok = idx.Parent("Fuel")
	assert.False(t, ok)

	assert.Equal(t, []string{"Steel", "Cement"}, idx.Children("Raw Material"))
	assert.True(t, idx.IsLeaf("Steel"))
	assert.False(t, idx.IsLeaf("Raw Material"))
	assert.True(t, idx.IsDescendant("Steel", "All Item Groups"))
	assert.False(t, idx.IsDescendant("All Item Groups", "Steel"))
}

func TestDescendantsOf(t *testing.T) {
	idx, err := Build(itemGroups())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"Raw Material", "Steel", "Cement", "Consumables"},
		idx.DescendantsOf("All Item Groups"))
	assert.Equal(t, []string{"Steel", "Cement"}, idx.DescendantsOf("Raw Material"))
	assert.Empty(t, idx.DescendantsOf("Steel"), "leaf has no descendants")
	assert.Empty(t, idx.DescendantsOf("unknown"), "unknown id is not an error")
}

func TestPreOrder_ParentFollowedBySubtree(t *testing.T) {
	idx, err := Build(itemGroups())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Fuel"},
		idx.PreOrder())
	assert.Equal(t, []string{"Raw Material", "Steel", "Cement"}, idx.Subtree("Raw Material"))
	assert.Nil(t, idx.Subtree("unknown"))
}

func TestRoots_KeepInputOrder(t *testing.T) {
	idx, err := Build([]Node{
		{ID: "Zeta", Left: 5, Right: 6},
		{ID: "Alpha", Left: 1, Right: 2},
		{ID: "Mid", Left: 3, Right: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, idx.Roots())
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, idx.PreOrder())
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{
			name:  "left equals right",
			nodes: []Node{{ID: "A", Left: 3, Right: 3}},
		},
		{
			name:  "left greater than right",
			nodes: []Node{{ID: "A", Left: 4, Right: 1}},
		},
		{
			name: "dangling parent",
			nodes: []Node{
				{ID: "A", Left: 1, Right: 4},
				{ID: "B", ParentID: "Ghost", Left: 2, Right: 3},
			},
		},
		{
			name: "duplicate id",
			nodes: []Node{
				{ID: "A", Left: 1, Right: 2},
				{ID: "A", Left: 3, Right: 4},
			},
		},
		{
			name:  "empty id",
			nodes: []Node{{ID: "", Left: 1, Right: 2}},
		},
		{
			name: "child outside parent",
			nodes: []Node{
				{ID: "A", Left: 1, Right: 4},
				{ID: "B", ParentID: "A", Left: 5, Right: 6},
			},
		},
		{
			name: "cycle",
			nodes: []Node{
				{ID: "A", ParentID: "B", Left: 1, Right: 4},
				{ID: "B", ParentID: "A", Left: 2, Right: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Build(tt.nodes)
			require.Error(t, err)
			assert.Nil(t, idx)
			assert.True(t, errors.Is(err, apperror.ErrInvalidHierarchy), "got %v", err)
		})
	}
}

func TestDepthOf_DeepChain(t *testing.T) {
	const n = 5000
	nodes := make([]Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = Node{ID: nodeName(i), Left: i + 1, Right: 2*n - i}
		if i > 0 {
			nodes[i].ParentID = nodeName(i - 1)
		}
	}

	idx, err := Build(nodes)
	require.NoError(t, err)
	assert.Equal(t, n-1, idx.DepthOf(nodeName(n-1)))
	assert.Len(t, idx.AncestorsOf(nodeName(n-1)), n-1)
}

func nodeName(i int) string {
	return "n" + strconv.Itoa(i)
}
