// Package rollup accumulates transaction records per (node, column) and
// propagates the sums up a nested-set hierarchy, producing report rows in
// tree order.
package rollup

import (
	"time"

	"ledgertree/internal/core/apperror"
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/period"
)

// Record is one transaction contribution supplied by the query layer.
// Column is only read by key-based column sets.
type Record struct {
	NodeID string      `db:"node_id" json:"nodeId"`
	Date   time.Time   `db:"posting_date" json:"date"`
	Column string      `db:"column_key" json:"column,omitempty"`
	Amount types.Money `db:"amount" json:"amount"`
}

// ColumnSet maps records to report columns.
type ColumnSet interface {
	// Labels returns column labels in display order. Labels are unique.
	Labels() []string
	// Locate returns the column index for r.
	Locate(r Record) (int, error)
}

type periodColumns struct {
	cal *period.Calendar
}

// ByPeriod places records by date into the calendar's buckets.
// Dates outside every bucket yield DATE_OUT_OF_RANGE.
func ByPeriod(cal *period.Calendar) ColumnSet {
	return periodColumns{cal: cal}
}

func (p periodColumns) Labels() []string {
	return p.cal.Labels()
}

func (p periodColumns) Locate(r Record) (int, error) {
	i, ok := p.cal.Locate(r.Date)
	if !ok {
		return -1, apperror.NewDateOutOfRange(r.NodeID, period.FormatDate(r.Date)).
			WithDetail("first_start", period.FormatDate(p.cal.Start())).
			WithDetail("last_end", period.FormatDate(p.cal.End()))
	}
	return i, nil
}

type keyColumns struct {
	labels []string
	index  map[string]int
}

// ByKey places records by their Column value. Duplicate labels keep
// their first position.
func ByKey(labels []string) ColumnSet {
	kc := keyColumns{index: make(map[string]int, len(labels))}
	for _, l := range labels {
		if _, dup := kc.index[l]; dup {
			continue
		}
		kc.index[l] = len(kc.labels)
		kc.labels = append(kc.labels, l)
	}
	return kc
}

func (k keyColumns) Labels() []string {
	out := make([]string, len(k.labels))
	copy(out, k.labels)
	return out
}

func (k keyColumns) Locate(r Record) (int, error) {
	i, ok := k.index[r.Column]
	if !ok {
		return -1, apperror.NewInvalidColumn(r.NodeID, r.Column)
	}
	return i, nil
}
