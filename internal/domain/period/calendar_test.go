package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertree/internal/core/apperror"
)

func TestGenerate_WeeklyAlignsToMonday(t *testing.T) {
	cal, err := Generate(Date(2024, 1, 10), Date(2024, 1, 20), Weekly)
	require.NoError(t, err)
	require.Len(t, cal.Buckets, 2)

	assert.Equal(t, Date(2024, 1, 8), cal.Buckets[0].Start)
	assert.Equal(t, Date(2024, 1, 14), cal.Buckets[0].End)
	assert.Equal(t, Date(2024, 1, 15), cal.Buckets[1].Start)
	assert.Equal(t, Date(2024, 1, 20), cal.Buckets[1].End, "last bucket is clamped to the range end")
	assert.Equal(t, []string{"Week 2 2024", "Week 3 2024"}, cal.Labels())
}

func TestGenerate_WeeklyUsesISOYear(t *testing.T) {
	cal, err := Generate(Date(2024, 12, 25), Date(2025, 1, 3), Weekly)
	require.NoError(t, err)
	assert.Equal(t, []string{"Week 52 2024", "Week 1 2025"}, cal.Labels())
}

func TestGenerate_Monthly(t *testing.T) {
	cal, err := Generate(Date(2024, 1, 15), Date(2024, 3, 10), Monthly)
	require.NoError(t, err)

	assert.Equal(t, []Bucket{
		{Start: Date(2024, 1, 1), End: Date(2024, 1, 31), Label: "Jan 2024"},
		{Start: Date(2024, 2, 1), End: Date(2024, 2, 29), Label: "Feb 2024"},
		{Start: Date(2024, 3, 1), End: Date(2024, 3, 10), Label: "Mar 2024"},
	}, cal.Buckets)
}

func TestGenerate_QuarterlyFromMidQuarter(t *testing.T) {
	cal, err := Generate(Date(2024, 2, 20), Date(2024, 12, 31), Quarterly)
	require.NoError(t, err)

	assert.Equal(t, []Bucket{
		{Start: Date(2024, 2, 1), End: Date(2024, 4, 30), Label: "Quarter 1 2024"},
		{Start: Date(2024, 5, 1), End: Date(2024, 7, 31), Label: "Quarter 2 2024"},
		{Start: Date(2024, 8, 1), End: Date(2024, 10, 31), Label: "Quarter 3 2024"},
		{Start: Date(2024, 11, 1), End: Date(2024, 12, 31), Label: "Quarter 4 2024"},
	}, cal.Buckets)
}

func TestGenerate_HalfYearly(t *testing.T) {
	cal, err := Generate(Date(2024, 3, 5), Date(2025, 1, 31), HalfYearly)
	require.NoError(t, err)

	assert.Equal(t, []Bucket{
		{Start: Date(2024, 3, 1), End: Date(2024, 8, 31), Label: "Half Year 1 2024"},
		{Start: Date(2024, 9, 1), End: Date(2025, 1, 31), Label: "Half Year 2 2024"},
	}, cal.Buckets)
}

func TestGenerate_YearlyUsesFiscalYears(t *testing.T) {
	fys := FiscalYears{
		{Label: "2025-2026", Start: Date(2025, 4, 1), End: Date(2026, 3, 31)},
		{Label: "2024-2025", Start: Date(2024, 4, 1), End: Date(2025, 3, 31)},
	}.Sorted()

	cal, err := Generate(Date(2024, 6, 1), Date(2025, 5, 1), Yearly, WithFiscalYears(fys))
	require.NoError(t, err)

	assert.Equal(t, []Bucket{
		{Start: Date(2024, 4, 1), End: Date(2025, 3, 31), Label: "2024-2025"},
		{Start: Date(2025, 4, 1), End: Date(2025, 5, 1), Label: "2025-2026"},
	}, cal.Buckets)
}

func TestGenerate_YearlyWithStartFunc(t *testing.T) {
	aprilStart := StartFunc(func(d time.Time) time.Time {
		if d.Month() < time.April {
			return Date(d.Year()-1, time.April, 1)
		}
		return Date(d.Year(), time.April, 1)
	})

	cal, err := Generate(Date(2024, 2, 1), Date(2024, 6, 30), Yearly, WithFiscalYears(aprilStart))
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-2024", "2024-2025"}, cal.Labels())
	assert.Equal(t, Date(2023, 4, 1), cal.Start())
	assert.Equal(t, Date(2024, 6, 30), cal.End())
}

func TestGenerate_YearlyDefaultsToCalendarYears(t *testing.T) {
	cal, err := Generate(Date(2023, 7, 1), Date(2024, 2, 1), Yearly)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "2024"}, cal.Labels())
}

func TestGenerate_MissingFiscalYear(t *testing.T) {
	_, err := Generate(Date(2030, 1, 1), Date(2030, 2, 1), Yearly, WithFiscalYears(FiscalYears{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestGenerate_DuplicateLabelFromResolver(t *testing.T) {
	sameLabel := resolverFunc(func(d time.Time) (FiscalYear, error) {
		return FiscalYear{Label: "FY", Start: Date(d.Year(), 1, 1), End: Date(d.Year(), 12, 31)}, nil
	})

	_, err := Generate(Date(2023, 1, 1), Date(2024, 6, 1), Yearly, WithFiscalYears(sameLabel))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidRange))
}

func TestGenerate_InvalidRange(t *testing.T) {
	_, err := Generate(Date(2024, 2, 1), Date(2024, 1, 1), Monthly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidRange))
}

func TestGenerate_RangeTooLarge(t *testing.T) {
	_, err := Generate(Date(2022, 1, 1), Date(2024, 1, 1), Weekly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRangeTooLarge))

	cal, err := Generate(Date(2022, 1, 1), Date(2024, 1, 1), Weekly, WithMaxBuckets(120))
	require.NoError(t, err)
	assert.Greater(t, cal.Len(), 52)
}

func TestGenerate_SingleDay(t *testing.T) {
	cal, err := Generate(Date(2024, 5, 15), Date(2024, 5, 15), Monthly)
	require.NoError(t, err)
	require.Len(t, cal.Buckets, 1)
	assert.Equal(t, Date(2024, 5, 1), cal.Buckets[0].Start)
	assert.Equal(t, Date(2024, 5, 15), cal.Buckets[0].End)
}

func TestGenerate_IgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)

	cal, err := Generate(from, to, Weekly)
	require.NoError(t, err)
	assert.Equal(t, Date(2024, 1, 20), cal.End())
}

func TestGenerate_PartitionsRange(t *testing.T) {
	from, to := Date(2023, 11, 17), Date(2024, 10, 3)

	for _, g := range []Granularity{Weekly, Monthly, Quarterly, HalfYearly, Yearly} {
		t.Run(g.String(), func(t *testing.T) {
			cal, err := Generate(from, to, g)
			require.NoError(t, err)
			require.NotEmpty(t, cal.Buckets)

			assert.False(t, cal.Start().After(from), "first bucket starts at or before from")
			assert.Equal(t, to, cal.End(), "last bucket ends exactly at to")

			labels := make(map[string]bool)
			for i, b := range cal.Buckets {
				assert.False(t, b.End.Before(b.Start))
				assert.False(t, labels[b.Label], "label %q repeats", b.Label)
				labels[b.Label] = true
				if i > 0 {
					assert.Equal(t, cal.Buckets[i-1].End.AddDate(0, 0, 1), b.Start, "buckets are contiguous")
				}
			}
		})
	}
}

func TestLocate(t *testing.T) {
	cal, err := Generate(Date(2024, 1, 10), Date(2024, 1, 20), Weekly)
	require.NoError(t, err)

	tests := []struct {
		name  string
		date  time.Time
		want  int
		found bool
	}{
		{"first bucket start before from", Date(2024, 1, 8), 0, true},
		{"bucket end boundary stays in bucket", Date(2024, 1, 14), 0, true},
		{"next bucket start", Date(2024, 1, 15), 1, true},
		{"range end", Date(2024, 1, 20), 1, true},
		{"before first bucket", Date(2024, 1, 7), -1, false},
		{"after last bucket", Date(2024, 1, 21), -1, false},
		{"time of day ignored", time.Date(2024, 1, 14, 18, 30, 0, 0, time.UTC), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cal.Locate(tt.date)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGranularity(t *testing.T) {
	for in, want := range map[string]Granularity{
		"Weekly":      Weekly,
		"monthly":     Monthly,
		"QUARTERLY":   Quarterly,
		"Half-Yearly": HalfYearly,
		"half_yearly": HalfYearly,
		"Yearly":      Yearly,
	} {
		got, err := ParseGranularity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseGranularity("Daily")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

type resolverFunc func(d time.Time) (FiscalYear, error)

func (f resolverFunc) FiscalYearOf(d time.Time) (FiscalYear, error) { return f(d) }
