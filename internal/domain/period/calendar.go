// Package period partitions a report date range into contiguous,
// non-overlapping buckets (weeks, months, quarters, half years, fiscal years).
package period

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ledgertree/internal/core/apperror"
)

// MaxBuckets is the default cap on buckets per calendar.
const MaxBuckets = 52

// Granularity selects the bucket size.
type Granularity int

const (
	Weekly Granularity = iota + 1
	Monthly
	Quarterly
	HalfYearly
	Yearly
)

var granularityNames = map[Granularity]string{
	Weekly:     "Weekly",
	Monthly:    "Monthly",
	Quarterly:  "Quarterly",
	HalfYearly: "Half-Yearly",
	Yearly:     "Yearly",
}

// String returns the display name ("Half-Yearly" etc).
func (g Granularity) String() string {
	if name, ok := granularityNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	_, ok := granularityNames[g]
	return ok
}

// Months returns the bucket span in months; 0 for Weekly.
func (g Granularity) Months() int {
	switch g {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case HalfYearly:
		return 6
	case Yearly:
		return 12
	}
	return 0
}

// ParseGranularity accepts display names case-insensitively, with or
// without the hyphen or an underscore ("half_yearly").
func ParseGranularity(s string) (Granularity, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for g, name := range granularityNames {
		if strings.ToLower(strings.ReplaceAll(name, "-", "")) == norm {
			return g, nil
		}
	}
	return 0, apperror.NewValidation(fmt.Sprintf("unknown range %q", s)).
		WithDetail("allowed", []string{"Weekly", "Monthly", "Quarterly", "Half-Yearly", "Yearly"})
}

// Bucket is one closed date interval [Start, End].
type Bucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Contains reports whether d falls inside the bucket, both ends inclusive.
func (b Bucket) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(b.Start) && !d.After(b.End)
}

// Calendar is an immutable, chronologically ordered set of buckets.
type Calendar struct {
	Granularity Granularity
	From        time.Time
	To          time.Time
	Buckets     []Bucket
}

type options struct {
	fiscal     FiscalResolver
	maxBuckets int
}

// Option configures Generate.
type Option func(*options)

// WithFiscalYears sets the resolver used by Yearly calendars.
func WithFiscalYears(r FiscalResolver) Option {
	return func(o *options) {
		if r != nil {
			o.fiscal = r
		}
	}
}

// WithMaxBuckets overrides MaxBuckets.
func WithMaxBuckets(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBuckets = n
		}
	}
}

// Generate partitions [from, to] into buckets of granularity g.
//
// The first bucket is aligned to the granularity and may start before from.
// Each bucket ends at its nominal end or at to, whichever comes first; the
// bucket reaching to is the last one. Times of day are ignored.
func Generate(from, to time.Time, g Granularity, opts ...Option) (*Calendar, error) {
	o := options{fiscal: CalendarYears{}, maxBuckets: MaxBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	from, to = Day(from), Day(to)
	if from.After(to) {
		return nil, apperror.NewInvalidRange("from date must not be after to date").
			WithDetail("from_date", FormatDate(from)).
			WithDetail("to_date", FormatDate(to))
	}
	if !g.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown range %d", int(g)))
	}

	start, err := alignStart(from, g, o.fiscal)
	if err != nil {
		return nil, err
	}

	cal := &Calendar{Granularity: g, From: from, To: to}
	seen := make(map[string]struct{})
	for {
		if len(cal.Buckets) == o.maxBuckets {
			return nil, apperror.NewRangeTooLarge(o.maxBuckets).
				WithDetail("granularity", g.String())
		}

		end, label, err := nominalEnd(start, g, o.fiscal)
		if err != nil {
			return nil, err
		}
		if end.After(to) {
			end = to
		}
		if _, dup := seen[label]; dup {
			return nil, apperror.NewInvalidRange(fmt.Sprintf("period label %q is produced twice", label)).
				WithDetail("label", label)
		}
		seen[label] = struct{}{}
		cal.Buckets = append(cal.Buckets, Bucket{Start: start, End: end, Label: label})

		if !end.Before(to) {
			break
		}
		start = end.AddDate(0, 0, 1)
	}
	return cal, nil
}

func alignStart(from time.Time, g Granularity, fiscal FiscalResolver) (time.Time, error) {
	switch g {
	case Weekly:
		offset := (int(from.Weekday()) + 6) % 7
		return from.AddDate(0, 0, -offset), nil
	case Yearly:
		fy, err := fiscal.FiscalYearOf(from)
		if err != nil {
			return time.Time{}, err
		}
		return Day(fy.Start), nil
	default:
		return Date(from.Year(), from.Month(), 1), nil
	}
}

func nominalEnd(start time.Time, g Granularity, fiscal FiscalResolver) (time.Time, string, error) {
	switch g {
	case Weekly:
		year, week := start.ISOWeek()
		return start.AddDate(0, 0, 6), fmt.Sprintf("Week %d %d", week, year), nil
	case Monthly:
		return start.AddDate(0, 1, -1), start.Format("Jan 2006"), nil
	case Quarterly:
		q := (int(start.Month())-1)/3 + 1
		return start.AddDate(0, 3, -1), fmt.Sprintf("Quarter %d %d", q, start.Year()), nil
	case HalfYearly:
		h := 1
		if start.Month() > time.June {
			h = 2
		}
		return start.AddDate(0, 6, -1), fmt.Sprintf("Half Year %d %d", h, start.Year()), nil
	}

	fy, err := fiscal.FiscalYearOf(start)
	if err != nil {
		return time.Time{}, "", err
	}
	end := Day(fy.End)
	if end.Before(start) {
		return time.Time{}, "", apperror.NewInvalidRange("fiscal year ends before it starts").
			WithDetail("fiscal_year", fy.Label)
	}
	return end, fy.Label, nil
}

// Labels returns bucket labels in order.
func (c *Calendar) Labels() []string {
	out := make([]string, len(c.Buckets))
	for i, b := range c.Buckets {
		out[i] = b.Label
	}
	return out
}

// Len returns the number of buckets.
func (c *Calendar) Len() int {
	return len(c.Buckets)
}

// Start returns the start of the first bucket.
func (c *Calendar) Start() time.Time {
	return c.Buckets[0].Start
}

// End returns the end of the last bucket (always equal to To).
func (c *Calendar) End() time.Time {
	return c.Buckets[len(c.Buckets)-1].End
}

// Locate returns the index of the bucket containing d.
// A date on a bucket's end belongs to that bucket, not the next.
func (c *Calendar) Locate(d time.Time) (int, bool) {
	d = Day(d)
	i := sort.Search(len(c.Buckets), func(i int) bool {
		return !c.Buckets[i].End.Before(d)
	})
	if i == len(c.Buckets) || d.Before(c.Buckets[i].Start) {
		return -1, false
	}
	return i, true
}
