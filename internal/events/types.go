package events

import (
	"time"
)

// Event is the base interface for all scheduling events.
type Event interface {
	EventType() string
	ProjectID() string
}

// Topic constants
const (
	TopicSchedule = "schedule"
	TopicMove     = "move"
)

// Event type constants
const (
	EventTypeScheduleApplied = "schedule.applied"
	EventTypeMoveCommitted   = "move.committed"
	EventTypeMoveRejected    = "move.rejected"
	EventTypeFrozenOverride  = "frozen.override_used"
)

// ScheduleAppliedEvent is published after a full project schedule is
// computed and persisted, whether from a template or a reschedule.
type ScheduleAppliedEvent struct {
	Project   string
	TaskCount int
	Start     time.Time
	Timestamp time.Time
}

func (e ScheduleAppliedEvent) EventType() string { return EventTypeScheduleApplied }
func (e ScheduleAppliedEvent) ProjectID() string { return e.Project }

// MoveCommittedEvent is published when a task move and its ripple are
// written to the store.
type MoveCommittedEvent struct {
	Project       string
	TaskID        string
	NewStart      time.Time
	AffectedTasks int
	Timestamp     time.Time
}

func (e MoveCommittedEvent) EventType() string { return EventTypeMoveCommitted }
func (e MoveCommittedEvent) ProjectID() string { return e.Project }

// MoveRejectedEvent is published when a move fails validation.
type MoveRejectedEvent struct {
	Project   string
	TaskID    string
	Reason    string
	Timestamp time.Time
}

func (e MoveRejectedEvent) EventType() string { return EventTypeMoveRejected }
func (e MoveRejectedEvent) ProjectID() string { return e.Project }

// FrozenOverrideEvent is published when a caller forces a move into the
// frozen window. These are rare and worth an audit trail.
type FrozenOverrideEvent struct {
	Project     string
	TaskID      string
	Date        time.Time
	FrozenUntil time.Time
	Timestamp   time.Time
}

func (e FrozenOverrideEvent) EventType() string { return EventTypeFrozenOverride }
func (e FrozenOverrideEvent) ProjectID() string { return e.Project }
