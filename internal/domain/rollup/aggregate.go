package rollup

import (
	"ledgertree/internal/core/apperror"
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/hierarchy"
)

// UnplacedPolicy decides what happens to records that cannot be placed
// into a (node, column) cell.
type UnplacedPolicy int

const (
	// Reject fails the whole run on the first unplaceable record.
	Reject UnplacedPolicy = iota
	// Drop skips unplaceable records and reports them in Result.Dropped.
	Drop
)

// Row is one emitted report row. Amounts is aligned with Result.Columns.
type Row struct {
	NodeID   string        `json:"nodeId"`
	ParentID string        `json:"parentId,omitempty"`
	Depth    int           `json:"indent"`
	Leaf     bool          `json:"isLeaf"`
	Amounts  []types.Money `json:"amounts"`
	Total    types.Money   `json:"total"`

	columns map[string]int
}

// Amount returns the row's amount for a column label.
func (r Row) Amount(label string) (types.Money, bool) {
	i, ok := r.columns[label]
	if !ok {
		return types.Zero(), false
	}
	return r.Amounts[i], true
}

// DroppedRecord is a record skipped under the Drop policy.
type DroppedRecord struct {
	Record Record `json:"record"`
	Reason error  `json:"-"`
}

// Result is the outcome of one aggregation run.
type Result struct {
	Columns []string        `json:"columns"`
	Rows    []Row           `json:"rows"`
	Dropped []DroppedRecord `json:"-"`
	// Skipped counts records without a node id.
	Skipped int `json:"-"`
}

type options struct {
	inclusion InclusionPolicy
	subtree   string
	unplaced  UnplacedPolicy
}

// Option configures Aggregate.
type Option func(*options)

// WithInclusion sets which zero nodes still get rows. Default NonZeroOnly.
func WithInclusion(p InclusionPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.inclusion = p
		}
	}
}

// WithSubtree restricts emitted rows to id and its descendants.
// Roll-up still runs over the whole forest.
func WithSubtree(id string) Option {
	return func(o *options) {
		o.subtree = id
	}
}

// WithUnplaced sets the policy for records that fall outside the
// hierarchy or the column set. Default Reject.
func WithUnplaced(p UnplacedPolicy) Option {
	return func(o *options) {
		o.unplaced = p
	}
}

// Aggregate sums records per (node, column), rolls every node's sums up
// into all of its ancestors, and emits rows in hierarchy pre-order.
//
// A node's amount in a column equals the sum of the records attached to
// it or any descendant and dated in that column. Records with an empty
// node id are skipped. Either the complete result or an error is
// returned; never both.
func Aggregate(records []Record, idx *hierarchy.Index, cols ColumnSet, opts ...Option) (*Result, error) {
	o := options{inclusion: NonZeroOnly(), unplaced: Reject}
	for _, opt := range opts {
		opt(&o)
	}

	labels := cols.Labels()
	if len(labels) == 0 {
		return nil, apperror.NewValidation("report has no columns")
	}
	scope := idx.PreOrder()
	if o.subtree != "" {
		if !idx.Has(o.subtree) {
			return nil, apperror.NewUnknownNode(o.subtree).WithDetail("filter", "subtree")
		}
		scope = idx.Subtree(o.subtree)
	}

	g := newGrid(idx, len(labels))
	res := &Result{Columns: labels}

	for _, r := range records {
		if r.NodeID == "" {
			res.Skipped++
			continue
		}
		p, ok := g.pos[r.NodeID]
		if !ok {
			if err := res.unplaced(o.unplaced, r, apperror.NewUnknownNode(r.NodeID)); err != nil {
				return nil, err
			}
			continue
		}
		c, err := cols.Locate(r)
		if err != nil {
			if err := res.unplaced(o.unplaced, r, err); err != nil {
				return nil, err
			}
			continue
		}
		g.add(p, c, r.Amount)
	}

	g.rollUp()

	colIndex := make(map[string]int, len(labels))
	for i, l := range labels {
		colIndex[l] = i
	}

	rows := make([]Row, 0, len(scope))
	for _, id := range scope {
		p := g.pos[id]
		amounts := g.row(p)
		view := NodeView{
			ID:       id,
			ParentID: g.parentID(p),
			Depth:    g.depth[p],
			Leaf:     idx.IsLeaf(id),
			NonZero:  anyNonZero(amounts),
			Total:    types.SumMoney(amounts),
		}
		if !view.NonZero {
			ok, err := o.inclusion.Include(view)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		rows = append(rows, Row{
			NodeID:   view.ID,
			ParentID: view.ParentID,
			Depth:    view.Depth,
			Leaf:     view.Leaf,
			Amounts:  amounts,
			Total:    view.Total,
			columns:  colIndex,
		})
	}
	res.Rows = rows
	return res, nil
}

func (res *Result) unplaced(policy UnplacedPolicy, r Record, reason error) error {
	if policy == Reject {
		return reason
	}
	res.Dropped = append(res.Dropped, DroppedRecord{Record: r, Reason: reason})
	return nil
}

// Row returns the row for a node id.
func (res *Result) Row(nodeID string) (Row, bool) {
	for _, r := range res.Rows {
		if r.NodeID == nodeID {
			return r, true
		}
	}
	return Row{}, false
}

func anyNonZero(amounts []types.Money) bool {
	for _, a := range amounts {
		if !a.IsZero() {
			return true
		}
	}
	return false
}
