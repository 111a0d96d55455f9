package slots

import (
	"errors"
	"fmt"
	"time"

	"conprog/internal/model"
)

// MinutesPerDay bounds a valid start offset.
const MinutesPerDay = 24 * 60

// ErrInvalidPeriod is returned for periods with a bad start offset or a
// non-positive length.
var ErrInvalidPeriod = errors.New("invalid period")

// PeriodError describes why a period was rejected.
type PeriodError struct {
	Period Period
	Reason string
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrInvalidPeriod, e.Reason, e.Period)
}

func (e *PeriodError) Unwrap() error {
	return ErrInvalidPeriod
}

// Moment is a point on the programme's time axis. Days are ordered by
// calendar date (then id); offsets only compare within a day.
type Moment struct {
	DayID  int64
	Date   time.Time
	Offset int // minutes after midnight, may pass 1440 for an end moment
}

// At returns the moment offset minutes into day.
func At(day model.Day, offset int) Moment {
	return Moment{DayID: day.ID, Date: day.Date, Offset: offset}
}

// Compare returns -1, 0 or +1.
func (m Moment) Compare(o Moment) int {
	if m.DayID != o.DayID {
		if c := m.Date.Compare(o.Date); c != 0 {
			return c
		}
		if m.DayID < o.DayID {
			return -1
		}
		return 1
	}
	switch {
	case m.Offset < o.Offset:
		return -1
	case m.Offset > o.Offset:
		return 1
	}
	return 0
}

// Before reports whether m is strictly earlier than o.
func (m Moment) Before(o Moment) bool { return m.Compare(o) < 0 }

func (m Moment) String() string {
	return fmt.Sprintf("day %d %s", m.DayID, FormatOffset(m.Offset))
}

// Period runs from Start (inclusive) to End (exclusive). An item's period
// stays on one day; a room assignment may span several.
type Period struct {
	Start Moment
	End   Moment
}

// NewPeriod returns the period starting at offset on day and lasting length minutes.
func NewPeriod(day model.Day, offset, length int) Period {
	return Period{Start: At(day, offset), End: At(day, offset+length)}
}

// SameDay reports whether the period starts and ends on one day.
func (p Period) SameDay() bool { return p.Start.DayID == p.End.DayID }

// Length returns the length in minutes of a same-day period, or -1.
func (p Period) Length() int {
	if !p.SameDay() {
		return -1
	}
	return p.End.Offset - p.Start.Offset
}

// Empty reports whether the period contains no time.
func (p Period) Empty() bool { return !p.Start.Before(p.End) }

func (p Period) String() string {
	if p.SameDay() {
		return fmt.Sprintf("day %d %s-%s", p.Start.DayID, FormatOffset(p.Start.Offset), FormatOffset(p.End.Offset))
	}
	return fmt.Sprintf("%s - %s", p.Start, p.End)
}

// Validate rejects a start offset outside the day and a negative length.
// Zero-length periods pass.
func (p Period) Validate() error {
	if p.Start.Offset < 0 || p.Start.Offset >= MinutesPerDay {
		return &PeriodError{Period: p, Reason: fmt.Sprintf("start offset %d outside [0,%d)", p.Start.Offset, MinutesPerDay)}
	}
	if p.End.Offset < 0 {
		return &PeriodError{Period: p, Reason: fmt.Sprintf("end offset %d is negative", p.End.Offset)}
	}
	if p.End.Before(p.Start) {
		return &PeriodError{Period: p, Reason: "ends before it starts"}
	}
	return nil
}

func validateNonEmpty(p Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Empty() {
		return &PeriodError{Period: p, Reason: "length must be positive"}
	}
	return nil
}

// Overlaps reports whether two periods share any time. Periods on different
// days never overlap unless one of them spans the other's day.
func Overlaps(a, b Period) (bool, error) {
	if err := validateNonEmpty(a); err != nil {
		return false, err
	}
	if err := validateNonEmpty(b); err != nil {
		return false, err
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End), nil
}

// Covers reports whether outer entirely contains inner.
func Covers(outer, inner Period) (bool, error) {
	if err := validateNonEmpty(outer); err != nil {
		return false, err
	}
	if err := validateNonEmpty(inner); err != nil {
		return false, err
	}
	return outer.Start.Compare(inner.Start) <= 0 && outer.End.Compare(inner.End) >= 0, nil
}
