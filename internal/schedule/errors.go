package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrTaskNotFound is returned when an operation names a task that does not
// exist in the task set.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskCancelled is returned when a move targets a cancelled task.
// Cancelled tasks keep their history but are no-op nodes for scheduling.
var ErrTaskCancelled = errors.New("task is cancelled")

// ErrNoWorkingWeekday is returned when a calendar has no working weekday at
// all. Such a calendar could never terminate a forward walk.
var ErrNoWorkingWeekday = errors.New("calendar has no working weekday")

// CycleError reports a dependency cycle, naming the task code at which the
// cycle was closed. Scheduling aborts entirely on a cycle; it is never
// auto-resolved.
type CycleError struct {
	Code string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected at task %q", e.Code)
}

// InvalidDateError reports a requested date that is not a working day.
// The engine never snaps a caller's date silently.
type InvalidDateError struct {
	Date time.Time
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("%s is not a working day", e.Date.Format(DateLayout))
}

// FrozenZoneError reports a move targeting a date inside the frozen window.
type FrozenZoneError struct {
	Date        time.Time
	FrozenUntil time.Time
}

func (e *FrozenZoneError) Error() string {
	return fmt.Sprintf("%s is inside the frozen zone (frozen until %s)",
		e.Date.Format(DateLayout), e.FrozenUntil.Format(DateLayout))
}

// CapacityError reports a team that has no free slot on the requested date.
// AvailableSlots is carried so callers can render an actionable message.
type CapacityError struct {
	TeamID         string
	Date           time.Time
	AvailableSlots int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("team %q has no free slot on %s (%d available)",
		e.TeamID, e.Date.Format(DateLayout), e.AvailableSlots)
}
