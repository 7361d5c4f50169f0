package schedule

import (
	"fmt"
	"time"
)

// Change is a previewed date assignment for one task. Both dates fall on
// working days.
type Change struct {
	Start time.Time
	End   time.Time
}

// Ripple computes the schedule changes implied by moving one task to a new
// start date: the moved task gets new dates, and so does every task that
// transitively depends on it. The result is a preview keyed by task ID;
// nothing is written anywhere.
//
// Affected tasks are processed in topological order, and a dependent's new
// start is seeded from the LATEST end date across ALL of its dependencies
// (rippled or not), so a task fed by two moved predecessors lands after both.
// Cancelled tasks are no-op nodes: they are never re-dated and the ripple
// does not continue through them. Termination follows from acyclicity; the
// topological walk visits each task once.
func Ripple(tasks []*Task, movedTaskID string, newStart time.Time, cal *Calendar) (map[string]Change, error) {
	var moved *Task
	for _, t := range tasks {
		if t.ID == movedTaskID {
			moved = t
			break
		}
	}
	if moved == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, movedTaskID)
	}
	if moved.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: %s", ErrTaskCancelled, movedTaskID)
	}

	newStart = DateOnly(newStart)
	if !cal.IsWorkingDay(newStart) {
		return nil, &InvalidDateError{Date: newStart}
	}

	g, err := BuildGraph(tasks)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]Change)
	rippledEnd := make(map[string]time.Time) // code -> new end for rippled tasks

	movedEnd := cal.SpanEnd(newStart, moved.DurationWorkingDays())
	changes[moved.ID] = Change{Start: newStart, End: movedEnd}
	rippledEnd[moved.Code] = movedEnd

	for _, t := range g.TopologicalOrder() {
		if t.ID == moved.ID || t.Status == StatusCancelled {
			continue
		}

		affected := false
		var latest time.Time
		haveEnd := false
		for _, dep := range t.DependsOn {
			var depEnd time.Time
			if end, ok := rippledEnd[dep]; ok {
				depEnd = end
				affected = true
			} else if dt, ok := g.Task(dep); ok && dt.Status != StatusCancelled && dt.ScheduledEnd != nil {
				depEnd = DateOnly(*dt.ScheduledEnd)
			} else {
				continue
			}
			if !haveEnd || depEnd.After(latest) {
				latest = depEnd
				haveEnd = true
			}
		}
		if !affected {
			continue
		}

		start := cal.NextWorkingDay(latest.AddDate(0, 0, 1))
		end := cal.SpanEnd(start, t.DurationWorkingDays())
		changes[t.ID] = Change{Start: start, End: end}
		rippledEnd[t.Code] = end
	}

	return changes, nil
}
