package schedule

import (
	"time"
)

// Schedule assigns ScheduledStart/ScheduledEnd to every task by walking the
// dependency graph in topological order and placing each task on the
// earliest working day at or after the latest end date of its dependencies
// (and never before projectStart). It returns fresh task copies in
// topological order and never mutates its input.
//
// A cycle aborts scheduling entirely; no partial schedule is returned.
// Cancelled tasks keep whatever dates they have and do not constrain their
// dependents. Pending tasks that receive dates move to StatusScheduled.
func Schedule(tasks []*Task, projectStart time.Time, cal *Calendar) ([]*Task, error) {
	g, err := BuildGraph(tasks)
	if err != nil {
		return nil, err
	}

	start := DateOnly(projectStart)
	codeToEnd := make(map[string]time.Time, len(tasks))
	out := make([]*Task, 0, len(tasks))

	for _, t := range g.TopologicalOrder() {
		t = cloneTask(t)

		if t.Status == StatusCancelled {
			out = append(out, t)
			continue
		}

		earliest := start
		for _, dep := range t.DependsOn {
			end, ok := codeToEnd[dep]
			if !ok {
				// Unknown or cancelled prerequisite: already satisfied.
				continue
			}
			next := cal.NextWorkingDay(end.AddDate(0, 0, 1))
			if next.After(earliest) {
				earliest = next
			}
		}
		earliest = cal.NextWorkingDay(earliest)
		end := cal.SpanEnd(earliest, t.DurationWorkingDays())

		s, e := earliest, end
		t.ScheduledStart = &s
		t.ScheduledEnd = &e
		if t.Status == StatusPending {
			t.Status = StatusScheduled
		}
		codeToEnd[t.Code] = end
		out = append(out, t)
	}

	return out, nil
}
