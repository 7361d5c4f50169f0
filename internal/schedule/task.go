package schedule

import (
	"math"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Task is the unit of schedulable work.
// Dependencies are expressed over Code, which is unique within a project.
// ScheduledStart and ScheduledEnd are either both set or both nil.
type Task struct {
	ID             string
	ProjectID      string
	Code           string
	Label          string
	Trade          string
	DurationDays   float64  // working days required, positive, may be fractional
	DependsOn      []string // codes of tasks that must finish first
	TeamID         string   // empty means unassigned
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	Status         Status
	SortOrder      int // tie-breaker for deterministic ordering
}

// DurationWorkingDays returns the task duration rounded up to whole working
// days. A fractional duration still occupies a full calendar slot, and every
// task occupies at least one day.
func (t *Task) DurationWorkingDays() int {
	n := int(math.Ceil(t.DurationDays))
	if n < 1 {
		n = 1
	}
	return n
}

// Scheduled reports whether the task has dates assigned.
func (t *Task) Scheduled() bool {
	return t.ScheduledStart != nil && t.ScheduledEnd != nil
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	if task.DependsOn != nil {
		cp.DependsOn = append([]string(nil), task.DependsOn...)
	}
	if task.ScheduledStart != nil {
		s := *task.ScheduledStart
		cp.ScheduledStart = &s
	}
	if task.ScheduledEnd != nil {
		e := *task.ScheduledEnd
		cp.ScheduledEnd = &e
	}
	return &cp
}
