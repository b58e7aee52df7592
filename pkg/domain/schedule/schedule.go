// Package schedule implements the calendar arithmetic used to project recurring
// financial sources: advancing a date by a billing cycle and finding the first
// occurrence after a given day.
//
// All dates handled here are calendar dates, represented as time.Time values at
// midnight UTC. Callers compute "today" once (see Today) and pass it in; no
// timezone math happens on dates after that point.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/budgee/family/pkg/domain"
)

// Cycle is a billing cycle.
type Cycle string

const (
	Weekly    Cycle = "weekly"
	Monthly   Cycle = "monthly"
	Quarterly Cycle = "quarterly"
	Yearly    Cycle = "yearly"
)

// Cycles lists every supported cycle.
var Cycles = []Cycle{Weekly, Monthly, Quarterly, Yearly}

// Valid reports whether c is a supported cycle.
func (c Cycle) Valid() bool {
	switch c {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (c Cycle) String() string { return string(c) }

// ParseCycle converts user input to a Cycle.
func ParseCycle(s string) (Cycle, error) {
	c := Cycle(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownCycle, s)
	}
	return c, nil
}

// Date returns the calendar date y-m-d.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize drops the clock part of t, keeping its calendar date as seen in t's location.
func Normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today returns the calendar date of now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return Normalize(now)
}

// Advance moves d forward by one cycle. Month-based cycles keep the day of month
// and clamp to the last day of the target month (Jan 31 -> Feb 28/29). Chaining
// Advance loses a clamped day; use Series to walk a whole schedule.
//
// Advance panics on an unknown cycle; inputs are validated with ParseCycle first.
func Advance(d time.Time, c Cycle) time.Time {
	switch c {
	case Weekly:
		return d.AddDate(0, 0, 7)
	case Monthly:
		return AddMonths(d, 1)
	case Quarterly:
		return AddMonths(d, 3)
	case Yearly:
		return AddMonths(d, 12)
	}
	panic(fmt.Sprintf("schedule: unknown cycle %q", string(c)))
}

// AddMonths adds n months to d, clamping the day to the end of the target month.
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	total := int(m) - 1 + n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	month := time.Month(tm + 1)
	if last := DaysIn(ty, month); day > last {
		day = last
	}
	return time.Date(ty, month, day, 0, 0, 0, 0, d.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstFuture returns the first occurrence of the series anchored at start that
// falls strictly after today. When start is already in the future the occurrence
// following start is returned.
func FirstFuture(start time.Time, c Cycle, today time.Time) time.Time {
	s := Series{Start: start, Cycle: c}
	if start.After(today) {
		return s.At(1)
	}
	return s.After(today)
}

// Series is the sequence of occurrences of a recurring source anchored at Start.
// Occurrence n is computed from Start rather than from occurrence n-1, so a series
// starting on the 31st returns to the 31st after a short month.
type Series struct {
	Start time.Time
	Cycle Cycle
}

// At returns occurrence n (n = 0 is Start).
func (s Series) At(n int) time.Time {
	switch s.Cycle {
	case Weekly:
		return s.Start.AddDate(0, 0, 7*n)
	case Monthly:
		return AddMonths(s.Start, n)
	case Quarterly:
		return AddMonths(s.Start, 3*n)
	case Yearly:
		return AddMonths(s.Start, 12*n)
	}
	panic(fmt.Sprintf("schedule: unknown cycle %q", string(s.Cycle)))
}

// Index returns the index of the first occurrence on or after d.
func (s Series) Index(d time.Time) int {
	if !d.After(s.Start) {
		return 0
	}
	n := s.estimate(d)
	for n > 0 && !s.At(n-1).Before(d) {
		n--
	}
	for s.At(n).Before(d) {
		n++
	}
	return n
}

// From returns the first occurrence on or after d.
func (s Series) From(d time.Time) time.Time {
	return s.At(s.Index(d))
}

// After returns the first occurrence strictly after d.
func (s Series) After(d time.Time) time.Time {
	return s.At(s.Index(d.AddDate(0, 0, 1)))
}

func (s Series) estimate(d time.Time) int {
	switch s.Cycle {
	case Weekly:
		return int(d.Sub(s.Start).Hours() / 24 / 7)
	case Monthly, Quarterly, Yearly:
		months := (d.Year()-s.Start.Year())*12 + int(d.Month()) - int(s.Start.Month())
		step := map[Cycle]int{Monthly: 1, Quarterly: 3, Yearly: 12}[s.Cycle]
		if months < 0 {
			return 0
		}
		return months / step
	}
	panic(fmt.Sprintf("schedule: unknown cycle %q", string(s.Cycle)))
}

// Occurrences lists the dates of the series from Start up to end (inclusive).
func (s Series) Occurrences(end time.Time) []time.Time {
	var out []time.Time
	for n := 0; ; n++ {
		d := s.At(n)
		if d.After(end) {
			return out
		}
		out = append(out, d)
	}
}

// MonthBounds returns the first and last calendar days of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := Date(year, month, 1)
	return first, Date(year, month, DaysIn(year, month))
}
