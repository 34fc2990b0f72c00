package rollup

import (
	"ledgertree/internal/core/types"
)

// Chart is a bar chart payload: one dataset summing the selected rows
// per column.
type Chart struct {
	Labels    []string  `json:"labels"`
	Datasets  []Dataset `json:"datasets"`
	Type      string    `json:"type"`
	FieldType string    `json:"fieldtype"`
}

// Dataset is one named series aligned with Chart.Labels.
type Dataset struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// RowSelector picks the rows a chart series is summed over.
type RowSelector func(rows []Row) []Row

// TopRows selects the shallowest rows present: the roots, or the subtree
// root when the result was filtered to a subtree.
func TopRows() RowSelector {
	return func(rows []Row) []Row {
		return rowsAtDepth(rows, func(lo, _ int) int { return lo })
	}
}

// DeepestRows selects the rows at the greatest depth present.
func DeepestRows() RowSelector {
	return func(rows []Row) []Row {
		return rowsAtDepth(rows, func(_, hi int) int { return hi })
	}
}

// LeafRows selects rows for hierarchy leaves.
func LeafRows() RowSelector {
	return func(rows []Row) []Row {
		var out []Row
		for _, r := range rows {
			if r.Leaf {
				out = append(out, r)
			}
		}
		return out
	}
}

// NodeRows selects the rows of the given node ids.
func NodeRows(ids ...string) RowSelector {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return func(rows []Row) []Row {
		var out []Row
		for _, r := range rows {
			if _, ok := want[r.NodeID]; ok {
				out = append(out, r)
			}
		}
		return out
	}
}

func rowsAtDepth(rows []Row, pick func(lo, hi int) int) []Row {
	if len(rows) == 0 {
		return nil
	}
	lo, hi := rows[0].Depth, rows[0].Depth
	for _, r := range rows[1:] {
		lo = min(lo, r.Depth)
		hi = max(hi, r.Depth)
	}
	depth := pick(lo, hi)
	var out []Row
	for _, r := range rows {
		if r.Depth == depth {
			out = append(out, r)
		}
	}
	return out
}

// BuildChart sums the selected rows per column. Returns nil when the
// selector picks nothing.
func BuildChart(res *Result, name string, sel RowSelector) *Chart {
	if sel == nil {
		sel = TopRows()
	}
	picked := sel(res.Rows)
	if len(picked) == 0 {
		return nil
	}

	sums := make([]types.Money, len(res.Columns))
	for _, r := range picked {
		for i, a := range r.Amounts {
			sums[i] = sums[i].Add(a)
		}
	}
	values := make([]float64, len(sums))
	for i, s := range sums {
		values[i] = types.ToFloat(s)
	}

	labels := make([]string, len(res.Columns))
	copy(labels, res.Columns)
	return &Chart{
		Labels:    labels,
		Datasets:  []Dataset{{Name: name, Values: values}},
		Type:      "bar",
		FieldType: "Currency",
	}
}
