package slots

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/model"
)

var (
	friday   = model.Day{ID: 2, Name: "Friday", Date: date(10)}
	saturday = model.Day{ID: 3, Name: "Saturday", Date: date(11)}
	sunday   = model.Day{ID: 4, Name: "Sunday", Date: date(12)}
)

func date(day int) time.Time {
	return time.Date(2026, time.July, day, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Period
		expected bool
	}{
		{name: "half hour offset", a: NewPeriod(friday, 600, 60), b: NewPeriod(friday, 630, 60), expected: true},
		{name: "identical", a: NewPeriod(friday, 600, 60), b: NewPeriod(friday, 600, 60), expected: true},
		{name: "adjacent", a: NewPeriod(friday, 600, 60), b: NewPeriod(friday, 660, 60), expected: false},
		{name: "contained", a: NewPeriod(friday, 540, 240), b: NewPeriod(friday, 600, 30), expected: true},
		{name: "disjoint", a: NewPeriod(friday, 600, 30), b: NewPeriod(friday, 900, 30), expected: false},
		{name: "different days same offsets", a: NewPeriod(friday, 600, 60), b: NewPeriod(saturday, 600, 60), expected: false},
		{name: "late item does not run into next day", a: NewPeriod(friday, 1380, 120), b: NewPeriod(saturday, 0, 60), expected: false},
		{
			name:     "multi-day assignment spans item",
			a:        Period{Start: At(friday, 600), End: At(sunday, 660)},
			b:        NewPeriod(saturday, 120, 60),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Overlaps(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			// symmetric
			back, err := Overlaps(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

func TestCovers(t *testing.T) {
	weekend := Period{Start: At(friday, 540), End: At(sunday, 1080)}

	tests := []struct {
		name         string
		outer, inner Period
		expected     bool
	}{
		{name: "same period", outer: NewPeriod(friday, 600, 60), inner: NewPeriod(friday, 600, 60), expected: true},
		{name: "strictly inside", outer: NewPeriod(friday, 540, 180), inner: NewPeriod(friday, 600, 60), expected: true},
		{name: "starts earlier", outer: NewPeriod(friday, 630, 120), inner: NewPeriod(friday, 600, 60), expected: false},
		{name: "ends too soon", outer: NewPeriod(friday, 600, 30), inner: NewPeriod(friday, 600, 60), expected: false},
		{name: "multi-day covers middle day", outer: weekend, inner: NewPeriod(saturday, 0, 60), expected: true},
		{name: "multi-day covers first day", outer: weekend, inner: NewPeriod(friday, 540, 60), expected: true},
		{name: "before multi-day start", outer: weekend, inner: NewPeriod(friday, 480, 90), expected: false},
		{name: "past multi-day end", outer: weekend, inner: NewPeriod(sunday, 1050, 60), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Covers(tt.outer, tt.inner)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			if got {
				overlap, err := Overlaps(tt.outer, tt.inner)
				require.NoError(t, err)
				assert.True(t, overlap, "coverage implies overlap")
			}
		})
	}
}

func TestOverlapDoesNotImplyCover(t *testing.T) {
	a := NewPeriod(friday, 600, 60)
	b := NewPeriod(friday, 630, 60)

	overlap, err := Overlaps(a, b)
	require.NoError(t, err)
	covers, err := Covers(a, b)
	require.NoError(t, err)

	assert.True(t, overlap)
	assert.False(t, covers)
}

func TestInvalidPeriods(t *testing.T) {
	good := NewPeriod(friday, 600, 60)

	tests := []struct {
		name   string
		period Period
		reason string
	}{
		{name: "zero length", period: NewPeriod(friday, 600, 0), reason: "length must be positive"},
		{name: "negative length", period: NewPeriod(friday, 600, -30), reason: "ends before it starts"},
		{name: "negative start", period: NewPeriod(friday, -10, 60), reason: "outside"},
		{name: "start past midnight", period: NewPeriod(friday, MinutesPerDay, 60), reason: "outside"},
		{name: "ends on an earlier day", period: Period{Start: At(saturday, 60), End: At(friday, 600)}, reason: "ends before it starts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Overlaps(good, tt.period)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPeriod))

			var pe *PeriodError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, pe.Reason, tt.reason)

			_, err = Covers(tt.period, good)
			assert.ErrorIs(t, err, ErrInvalidPeriod)
		})
	}
}

func TestValidateAllowsZeroLength(t *testing.T) {
	assert.NoError(t, NewPeriod(friday, 600, 0).Validate())
	assert.True(t, NewPeriod(friday, 600, 0).Empty())
}

func TestMomentOrdering(t *testing.T) {
	// same date, different ids: id breaks the tie
	twin := model.Day{ID: 9, Name: "Friday (annex)", Date: friday.Date}

	assert.Equal(t, -1, At(friday, 1400).Compare(At(saturday, 0)))
	assert.Equal(t, 1, At(saturday, 0).Compare(At(friday, 1400)))
	assert.Equal(t, 0, At(friday, 600).Compare(At(friday, 600)))
	assert.Equal(t, -1, At(friday, 900).Compare(At(twin, 0)))
}

func TestPeriodLength(t *testing.T) {
	assert.Equal(t, 90, NewPeriod(friday, 600, 90).Length())
	assert.Equal(t, -1, Period{Start: At(friday, 600), End: At(saturday, 60)}.Length())
	assert.Equal(t, "day 2 10:00-11:30", NewPeriod(friday, 600, 90).String())
}
