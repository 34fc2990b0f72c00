package period

import (
	"fmt"
	"sort"
	"time"

	"ledgertree/internal/core/apperror"
)

const dateLayout = "2006-01-02"

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day drops the time of day, keeping the calendar date as seen in t's location.
func Day(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDate renders YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FiscalYear is an organization-defined accounting year.
type FiscalYear struct {
	Label string    `db:"name" json:"label"`
	Start time.Time `db:"year_start_date" json:"start"`
	End   time.Time `db:"year_end_date" json:"end"`
}

// FiscalResolver returns the fiscal year containing a date.
type FiscalResolver interface {
	FiscalYearOf(d time.Time) (FiscalYear, error)
}

// CalendarYears treats every calendar year as a fiscal year labelled "2024".
type CalendarYears struct{}

// FiscalYearOf implements FiscalResolver.
func (CalendarYears) FiscalYearOf(d time.Time) (FiscalYear, error) {
	return FiscalYear{
		Label: fmt.Sprintf("%d", d.Year()),
		Start: Date(d.Year(), time.January, 1),
		End:   Date(d.Year(), time.December, 31),
	}, nil
}

// StartFunc adapts a fiscal_year_start(date) function. The year spans
// twelve months from the returned start; years not starting on January 1
// are labelled "2024-2025".
type StartFunc func(d time.Time) time.Time

// FiscalYearOf implements FiscalResolver.
func (f StartFunc) FiscalYearOf(d time.Time) (FiscalYear, error) {
	start := Day(f(Day(d)))
	if start.After(Day(d)) {
		return FiscalYear{}, apperror.NewInvalidRange("fiscal year start is after the date it should contain").
			WithDetail("date", FormatDate(d))
	}
	end := start.AddDate(1, 0, -1)
	label := fmt.Sprintf("%d", start.Year())
	if start.Month() != time.January || start.Day() != 1 {
		label = fmt.Sprintf("%d-%d", start.Year(), end.Year())
	}
	return FiscalYear{Label: label, Start: start, End: end}, nil
}

// FiscalYears resolves against an explicit list, as loaded from the
// fiscal_years table.
type FiscalYears []FiscalYear

// Sorted returns a copy ordered by start date.
func (fys FiscalYears) Sorted() FiscalYears {
	out := make(FiscalYears, len(fys))
	for i, fy := range fys {
		out[i] = FiscalYear{Label: fy.Label, Start: Day(fy.Start), End: Day(fy.End)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FiscalYearOf implements FiscalResolver. The receiver should be Sorted.
func (fys FiscalYears) FiscalYearOf(d time.Time) (FiscalYear, error) {
	d = Day(d)
	i := sort.Search(len(fys), func(i int) bool { return !fys[i].End.Before(d) })
	if i < len(fys) && !d.Before(fys[i].Start) {
		return fys[i], nil
	}
	return FiscalYear{}, apperror.NewNotFound("fiscal year", FormatDate(d))
}
