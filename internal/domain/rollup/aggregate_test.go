package rollup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertree/internal/core/apperror"
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/hierarchy"
	"ledgertree/internal/domain/period"
)

// All Item Groups
// ├── Raw Material
// │   ├── Steel
// │   └── Cement
// ├── Consumables
// └── Packaging
//
//	Fuel (second root)
func itemGroups(t *testing.T) *hierarchy.Index {
	t.Helper()
	idx, err := hierarchy.Build([]hierarchy.Node{
		{ID: "All Item Groups", Left: 1, Right: 12},
		{ID: "Raw Material", ParentID: "All Item Groups", Left: 2, Right: 7},
		{ID: "Steel", ParentID: "Raw Material", Left: 3, Right: 4},
		{ID: "Cement", ParentID: "Raw Material", Left: 5, Right: 6},
		{ID: "Consumables", ParentID: "All Item Groups", Left: 8, Right: 9},
		{ID: "Packaging", ParentID: "All Item Groups", Left: 10, Right: 11},
		{ID: "Fuel", Left: 13, Right: 14},
	})
	require.NoError(t, err)
	return idx
}

func monthly(t *testing.T, from, to time.Time) ColumnSet {
	t.Helper()
	cal, err := period.Generate(from, to, period.Monthly)
	require.NoError(t, err)
	return ByPeriod(cal)
}

func rec(node string, d time.Time, amount string) Record {
	return Record{NodeID: node, Date: d, Amount: types.MustMoney(amount)}
}

func amounts(r Row) []string {
	out := make([]string, len(r.Amounts))
	for i, a := range r.Amounts {
		out[i] = a.String()
	}
	return out
}

func nodeIDs(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.NodeID
	}
	return out
}

func sampleRecords() []Record {
	return []Record{
		rec("Steel", period.Date(2024, 1, 5), "100"),
		rec("Cement", period.Date(2024, 2, 10), "40"),
		rec("Consumables", period.Date(2024, 1, 31), "10"),
		rec("Fuel", period.Date(2024, 1, 2), "5"),
	}
}

func TestAggregate_RollsUpChain(t *testing.T) {
	idx, err := hierarchy.Build([]hierarchy.Node{
		{ID: "A", Left: 1, Right: 6},
		{ID: "B", ParentID: "A", Left: 2, Right: 5},
		{ID: "C", ParentID: "B", Left: 3, Right: 4},
	})
	require.NoError(t, err)

	jan := period.Date(2024, 1, 15)
	res, err := Aggregate([]Record{
		rec("C", jan, "100"),
		rec("B", jan, "50"),
	}, idx, monthly(t, period.Date(2024, 1, 1), period.Date(2024, 1, 31)))
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan 2024"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, []string{"A", "B", "C"}, nodeIDs(res.Rows))
	assert.Equal(t, []string{"150"}, amounts(res.Rows[0]))
	assert.Equal(t, []string{"150"}, amounts(res.Rows[1]))
	assert.Equal(t, []string{"100"}, amounts(res.Rows[2]))
	assert.Equal(t, []int{0, 1, 2}, []int{res.Rows[0].Depth, res.Rows[1].Depth, res.Rows[2].Depth})
	assert.Equal(t, "B", res.Rows[2].ParentID)
	assert.True(t, res.Rows[2].Leaf)
}

func TestAggregate_Forest(t *testing.T) {
	res, err := Aggregate(sampleRecords(), itemGroups(t),
		monthly(t, period.Date(2024, 1, 1), period.Date(2024, 2, 29)))
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, res.Columns)
	assert.Equal(t,
		[]string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Fuel"},
		nodeIDs(res.Rows), "zero nodes are omitted, order is pre-order")

	all, ok := res.Row("All Item Groups")
	require.True(t, ok)
	assert.Equal(t, []string{"110", "40"}, amounts(all))
	assert.Equal(t, "150", all.Total.String())

	raw, _ := res.Row("Raw Material")
	assert.Equal(t, []string{"100", "40"}, amounts(raw))

	cement, _ := res.Row("Cement")
	feb, ok := cement.Amount("Feb 2024")
	require.True(t, ok)
	assert.Equal(t, "40", feb.String())
	_, ok = cement.Amount("Mar 2024")
	assert.False(t, ok)

	fuel, _ := res.Row("Fuel")
	assert.Equal(t, []string{"5", "0"}, amounts(fuel))
}

func TestAggregate_ParentEqualsOwnPlusChildren(t *testing.T) {
	idx := itemGroups(t)
	records := append(sampleRecords(), rec("Raw Material", period.Date(2024, 2, 1), "7"))

	res, err := Aggregate(records, idx,
		monthly(t, period.Date(2024, 1, 1), period.Date(2024, 2, 29)),
		WithInclusion(AllNodes()))
	require.NoError(t, err)

	for _, row := range res.Rows {
		children := idx.Children(row.NodeID)
		if len(children) == 0 {
			continue
		}
		for c := range res.Columns {
			own := types.Zero()
			for _, r := range records {
				if r.NodeID == row.NodeID {
					col, err := ByPeriod(mustCalendar(t)).Locate(r)
					require.NoError(t, err)
					if col == c {
						own = own.Add(r.Amount)
					}
				}
			}
			sum := own
			for _, child := range children {
				cr, ok := res.Row(child)
				require.True(t, ok)
				sum = sum.Add(cr.Amounts[c])
			}
			assert.True(t, sum.Equal(row.Amounts[c]), "%s column %d: %s != %s", row.NodeID, c, sum, row.Amounts[c])
		}
	}
}

func mustCalendar(t *testing.T) *period.Calendar {
	t.Helper()
	cal, err := period.Generate(period.Date(2024, 1, 1), period.Date(2024, 2, 29), period.Monthly)
	require.NoError(t, err)
	return cal
}

func TestAggregate_Idempotent(t *testing.T) {
	idx := itemGroups(t)
	cols := monthly(t, period.Date(2024, 1, 1), period.Date(2024, 2, 29))

	first, err := Aggregate(sampleRecords(), idx, cols)
	require.NoError(t, err)
	second, err := Aggregate(sampleRecords(), idx, cols)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_BucketEndBoundary(t *testing.T) {
	idx := itemGroups(t)
	cal, err := period.Generate(period.Date(2024, 1, 10), period.Date(2024, 1, 20), period.Weekly)
	require.NoError(t, err)

	res, err := Aggregate([]Record{
		rec("Steel", period.Date(2024, 1, 14), "3"),
		rec("Steel", period.Date(2024, 1, 15), "4"),
	}, idx, ByPeriod(cal))
	require.NoError(t, err)

	steel, ok := res.Row("Steel")
	require.True(t, ok)
	assert.Equal(t, []string{"3", "4"}, amounts(steel))
}

func TestAggregate_SubtreeKeepsFullTotals(t *testing.T) {
	idx := itemGroups(t)
	cols := monthly(t, period.Date(2024, 1, 1), period.Date(2024, 2, 29))

	full, err := Aggregate(sampleRecords(), idx, cols)
	require.NoError(t, err)
	sub, err := Aggregate(sampleRecords(), idx, cols, WithSubtree("Raw Material"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Raw Material", "Steel", "Cement"}, nodeIDs(sub.Rows))
	for _, row := range sub.Rows {
		want, ok := full.Row(row.NodeID)
		require.True(t, ok)
		assert.Equal(t, amounts(want), amounts(row))
		assert.Equal(t, want.Depth, row.Depth)
	}

	_, err = Aggregate(sampleRecords(), idx, cols, WithSubtree("Lubricants"))
	assert.True(t, errors.Is(err, apperror.ErrUnknownNode))
}

func TestAggregate_UnplacedRecords(t *testing.T) {
	idx := itemGroups(t)
	cols := monthly(t, period.Date(2024, 1, 1), period.Date(2024, 1, 31))

	outOfRange := rec("Steel", period.Date(2024, 2, 1), "9")
	unknown := rec("Lubricants", period.Date(2024, 1, 3), "9")
	blank := rec("", period.Date(2024, 1, 3), "9")

	t.Run("reject date out of range", func(t *testing.T) {
		res, err := Aggregate([]Record{rec("Steel", period.Date(2024, 1, 2), "1"), outOfRange}, idx, cols)
		require.Error(t, err)
		assert.Nil(t, res, "no partial result")
		assert.True(t, errors.Is(err, apperror.ErrDateOutOfRange))
	})

	t.Run("reject unknown node", func(t *testing.T) {
		_, err := Aggregate([]Record{unknown}, idx, cols)
		assert.True(t, errors.Is(err, apperror.ErrUnknownNode))
	})

	t.Run("drop keeps the rest", func(t *testing.T) {
		res, err := Aggregate([]Record{
			rec("Steel", period.Date(2024, 1, 2), "1"),
			outOfRange, unknown, blank,
		}, idx, cols, WithUnplaced(Drop))
		require.NoError(t, err)

		require.Len(t, res.Dropped, 2)
		assert.True(t, errors.Is(res.Dropped[0].Reason, apperror.ErrDateOutOfRange))
		assert.True(t, errors.Is(res.Dropped[1].Reason, apperror.ErrUnknownNode))
		assert.Equal(t, 1, res.Skipped)

		all, ok := res.Row("All Item Groups")
		require.True(t, ok)
		assert.Equal(t, []string{"1"}, amounts(all))
	})

	t.Run("empty node id is always skipped", func(t *testing.T) {
		res, err := Aggregate([]Record{blank}, idx, cols)
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Equal(t, 1, res.Skipped)
	})
}

func TestAggregate_ByKeyColumns(t *testing.T) {
	idx := itemGroups(t)
	cols := ByKey([]string{"Main - CC", "Stores - CC", "Main - CC"})
	assert.Equal(t, []string{"Main - CC", "Stores - CC"}, cols.Labels())

	res, err := Aggregate([]Record{
		{NodeID: "Steel", Column: "Stores - CC", Amount: types.MustMoney("12.5")},
		{NodeID: "Consumables", Column: "Main - CC", Amount: types.MustMoney("2")},
	}, idx, cols)
	require.NoError(t, err)

	all, _ := res.Row("All Item Groups")
	assert.Equal(t, []string{"2", "12.5"}, amounts(all))

	_, err = Aggregate([]Record{{NodeID: "Steel", Column: "Nowhere"}}, idx, cols)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidColumns, appErr.Code)
}

func TestAggregate_InclusionPolicies(t *testing.T) {
	idx := itemGroups(t)
	cols := monthly(t, period.Date(2024, 1, 1), period.Date(2024, 2, 29))

	tests := []struct {
		name   string
		policy func(t *testing.T) InclusionPolicy
		want   []string
	}{
		{
			name:   "non zero only",
			policy: func(*testing.T) InclusionPolicy { return NonZeroOnly() },
			want:   []string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Fuel"},
		},
		{
			name:   "all nodes",
			policy: func(*testing.T) InclusionPolicy { return AllNodes() },
			want:   []string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Packaging", "Fuel"},
		},
		{
			name:   "whitelist",
			policy: func(*testing.T) InclusionPolicy { return Whitelist("Packaging") },
			want:   []string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Packaging", "Fuel"},
		},
		{
			name: "expression",
			policy: func(t *testing.T) InclusionPolicy {
				p, err := Expression(`leaf && depth == 1 && parent == "All Item Groups"`)
				require.NoError(t, err)
				return p
			},
			want: []string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Packaging", "Fuel"},
		},
		{
			name: "any of",
			policy: func(t *testing.T) InclusionPolicy {
				p, err := Expression(`id.startsWith("Lub")`)
				require.NoError(t, err)
				return AnyOf(p, Whitelist("Packaging"))
			},
			want: []string{"All Item Groups", "Raw Material", "Steel", "Cement", "Consumables", "Packaging", "Fuel"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Aggregate(sampleRecords(), idx, cols, WithInclusion(tt.policy(t)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, nodeIDs(res.Rows))
		})
	}
}

func TestExpression_Invalid(t *testing.T) {
	for _, src := range []string{"depth +", "total", "unknown_var == 1"} {
		_, err := Expression(src)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok, src)
		assert.Equal(t, apperror.CodeInvalidPolicy, appErr.Code, src)
	}
}

func TestBuildChart(t *testing.T) {
	idx := itemGroups(t)
	cols := monthly(t, period.Date(2024, 1, 1), period.Date(2024, 2, 29))

	res, err := Aggregate(sampleRecords(), idx, cols)
	require.NoError(t, err)

	chart := BuildChart(res, "Purchase Amount", TopRows())
	require.NotNil(t, chart)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, chart.Labels)
	assert.Equal(t, "bar", chart.Type)
	assert.Equal(t, "Currency", chart.FieldType)
	require.Len(t, chart.Datasets, 1)
	assert.Equal(t, []float64{115, 40}, chart.Datasets[0].Values, "roots summed")

	deepest := BuildChart(res, "Purchase Amount", DeepestRows())
	assert.Equal(t, []float64{100, 40}, deepest.Datasets[0].Values)

	leaves := BuildChart(res, "Purchase Amount", LeafRows())
	assert.Equal(t, []float64{115, 40}, leaves.Datasets[0].Values)

	sub, err := Aggregate(sampleRecords(), idx, cols, WithSubtree("Raw Material"))
	require.NoError(t, err)
	top := BuildChart(sub, "Purchase Amount", TopRows())
	assert.Equal(t, []float64{100, 40}, top.Datasets[0].Values, "subtree root is the top row")

	assert.Nil(t, BuildChart(res, "x", NodeRows("Packaging")))
}
