package schedule

import (
	"time"
)

// DateLayout is the canonical wire/storage format for schedule dates.
// The engine works at whole-day granularity; time of day is never used.
const DateLayout = "2006-01-02"

// WorkingDayRule describes one weekday of the weekly working-hours table.
// Start and End are informational ("07:00"); date-level scheduling only
// consults Working.
type WorkingDayRule struct {
	Weekday time.Weekday
	Working bool
	Start   string
	End     string
}

// Holiday is a single date on which no work occurs regardless of weekday.
type Holiday struct {
	Date  time.Time
	Label string
}

// Calendar answers "is this date a working day?" for a fixed weekly rule
// table and holiday set. It has no hidden state; all methods are pure, so a
// Calendar is safe for concurrent use.
type Calendar struct {
	working  [7]bool
	holidays map[string]struct{}
}

// NewCalendar builds a Calendar from weekly rules and holidays. Weekdays
// without a rule default to non-working. At least one weekday must be
// working, which guarantees every forward walk terminates (holiday sets are
// finite).
func NewCalendar(rules []WorkingDayRule, holidays []Holiday) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, r := range rules {
		if r.Weekday < 0 || r.Weekday > 6 {
			continue
		}
		c.working[r.Weekday] = r.Working
	}

	any := false
	for _, w := range c.working {
		if w {
			any = true
			break
		}
	}
	if !any {
		return nil, ErrNoWorkingWeekday
	}

	for _, h := range holidays {
		c.holidays[DateOnly(h.Date).Format(DateLayout)] = struct{}{}
	}
	return c, nil
}

// StandardWeek returns Monday-Friday working rules, the common default when
// an account has not configured its own table.
func StandardWeek() []WorkingDayRule {
	rules := make([]WorkingDayRule, 0, 5)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		rules = append(rules, WorkingDayRule{Weekday: wd, Working: true})
	}
	return rules
}

// DateOnly normalizes a timestamp to midnight UTC. All engine date
// arithmetic happens on normalized dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWorkingDay reports whether d is a normally-worked weekday and not a
// holiday.
func (c *Calendar) IsWorkingDay(d time.Time) bool {
	d = DateOnly(d)
	if _, ok := c.holidays[d.Format(DateLayout)]; ok {
		return false
	}
	return c.working[d.Weekday()]
}

// NextWorkingDay returns the first working day at or after d.
func (c *Calendar) NextWorkingDay(d time.Time) time.Time {
	d = DateOnly(d)
	for !c.IsWorkingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddBusinessDays returns the nth working day strictly after start. For
// n == 0 it returns the first working day at or after start, so callers can
// compute an inclusive task end as AddBusinessDays(start, days-1) when start
// is already a working day.
func (c *Calendar) AddBusinessDays(start time.Time, n int) time.Time {
	d := DateOnly(start)
	if n <= 0 {
		return c.NextWorkingDay(d)
	}
	counted := 0
	for counted < n {
		d = d.AddDate(0, 0, 1)
		if c.IsWorkingDay(d) {
			counted++
		}
	}
	return d
}

// SpanEnd returns the end date of an inclusive span of workingDays working
// days beginning at start: a 1-day task starting on a working day ends the
// same day.
func (c *Calendar) SpanEnd(start time.Time, workingDays int) time.Time {
	if workingDays < 1 {
		workingDays = 1
	}
	return c.AddBusinessDays(start, workingDays-1)
}

// CountBusinessDays counts working days in the inclusive range [start, end].
// Returns 0 when end precedes start.
func (c *Calendar) CountBusinessDays(start, end time.Time) int {
	start = DateOnly(start)
	end = DateOnly(end)
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsWorkingDay(d) {
			count++
		}
	}
	return count
}
