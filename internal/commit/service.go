package commit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/buildplan/internal/capacity"
	"github.com/aristath/buildplan/internal/events"
	"github.com/aristath/buildplan/internal/schedule"
)

// Store is the persistence surface the service needs. The SQLite store
// implements it.
type Store interface {
	GetTask(ctx context.Context, taskID string) (*schedule.Task, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]*schedule.Task, error)
	CreateTasks(ctx context.Context, tasks []*schedule.Task) error
	ApplyChanges(ctx context.Context, changes map[string]schedule.Change, movedTaskID, newTeamID string) error
	Calendar(ctx context.Context) (*schedule.Calendar, error)
}

// MoveRequest describes a proposed task move.
type MoveRequest struct {
	ProjectID      string
	TaskID         string
	NewStart       time.Time
	NewTeamID      string // empty keeps the current team
	OverrideFrozen bool
}

// MovePreview is the computed outcome of a move before anything is written.
type MovePreview struct {
	Changes      map[string]schedule.Change
	Availability *capacity.Availability // set when a team change was checked
}

// Service validates and commits schedule mutations. All writes go through
// the store in a single transaction; the service itself keeps no state
// between calls.
type Service struct {
	store      Store
	guard      *capacity.Guard
	bus        *events.EventBus
	log        zerolog.Logger
	frozenDays int
	now        func() time.Time
}

// NewService creates a commit service. frozenDays below zero gets the
// default window.
func NewService(store Store, guard *capacity.Guard, bus *events.EventBus, log zerolog.Logger, frozenDays int) *Service {
	if frozenDays < 0 {
		frozenDays = schedule.DefaultFrozenDays
	}
	return &Service{
		store:      store,
		guard:      guard,
		bus:        bus,
		log:        log,
		frozenDays: frozenDays,
		now:        time.Now,
	}
}

// PreviewMove validates a move and returns the full set of date changes it
// would cause, without writing anything.
func (s *Service) PreviewMove(ctx context.Context, req MoveRequest) (*MovePreview, error) {
	task, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if req.ProjectID != "" && task.ProjectID != req.ProjectID {
		return nil, fmt.Errorf("%w: %s", schedule.ErrTaskNotFound, req.TaskID)
	}

	cal, err := s.store.Calendar(ctx)
	if err != nil {
		return nil, err
	}

	newStart := schedule.DateOnly(req.NewStart)
	if !cal.IsWorkingDay(newStart) {
		return nil, &schedule.InvalidDateError{Date: newStart}
	}

	today := schedule.DateOnly(s.now())
	if schedule.IsFrozen(newStart, today, s.frozenDays) {
		frozenUntil := schedule.FrozenUntil(today, s.frozenDays)
		if !req.OverrideFrozen {
			return nil, &schedule.FrozenZoneError{Date: newStart, FrozenUntil: frozenUntil}
		}
		s.log.Warn().
			Str("project", task.ProjectID).
			Str("task", task.ID).
			Time("date", newStart).
			Time("frozen_until", frozenUntil).
			Msg("frozen zone override used")
		s.bus.Publish(events.TopicMove, events.FrozenOverrideEvent{
			Project:     task.ProjectID,
			TaskID:      task.ID,
			Date:        newStart,
			FrozenUntil: frozenUntil,
			Timestamp:   s.now(),
		})
	}

	preview := &MovePreview{}

	if req.NewTeamID != "" && req.NewTeamID != task.TeamID {
		avail, err := s.guard.Check(ctx, req.NewTeamID, newStart)
		if err != nil {
			return nil, err
		}
		preview.Availability = &avail
		if avail.HasConflict {
			return nil, &schedule.CapacityError{
				TeamID:         req.NewTeamID,
				Date:           newStart,
				AvailableSlots: avail.AvailableSlots,
			}
		}
	}

	tasks, err := s.store.ListProjectTasks(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	changes, err := schedule.Ripple(tasks, req.TaskID, newStart, cal)
	if err != nil {
		return nil, err
	}
	preview.Changes = changes

	return preview, nil
}

// CommitMove validates a move, applies every resulting date change in one
// transaction, and publishes the outcome. A rejected move publishes a
// MoveRejected event and returns the validation error unchanged.
func (s *Service) CommitMove(ctx context.Context, req MoveRequest) (*MovePreview, error) {
	preview, err := s.PreviewMove(ctx, req)
	if err != nil {
		s.bus.Publish(events.TopicMove, events.MoveRejectedEvent{
			Project:   req.ProjectID,
			TaskID:    req.TaskID,
			Reason:    err.Error(),
			Timestamp: s.now(),
		})
		return nil, err
	}

	if err := s.store.ApplyChanges(ctx, preview.Changes, req.TaskID, req.NewTeamID); err != nil {
		return nil, fmt.Errorf("applying move for task %s: %w", req.TaskID, err)
	}

	s.log.Info().
		Str("project", req.ProjectID).
		Str("task", req.TaskID).
		Time("new_start", schedule.DateOnly(req.NewStart)).
		Int("affected", len(preview.Changes)).
		Msg("move committed")
	s.bus.Publish(events.TopicMove, events.MoveCommittedEvent{
		Project:       req.ProjectID,
		TaskID:        req.TaskID,
		NewStart:      schedule.DateOnly(req.NewStart),
		AffectedTasks: len(preview.Changes),
		Timestamp:     s.now(),
	})

	return preview, nil
}

// ScheduleProject computes a fresh schedule for every task in the project
// from the given start date and persists it.
func (s *Service) ScheduleProject(ctx context.Context, projectID string, projectStart time.Time) ([]*schedule.Task, error) {
	tasks, err := s.store.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: project %s has no tasks", schedule.ErrTaskNotFound, projectID)
	}

	cal, err := s.store.Calendar(ctx)
	if err != nil {
		return nil, err
	}

	scheduled, err := schedule.Schedule(tasks, projectStart, cal)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateTasks(ctx, scheduled); err != nil {
		return nil, fmt.Errorf("persisting schedule for project %s: %w", projectID, err)
	}

	s.log.Info().
		Str("project", projectID).
		Int("tasks", len(scheduled)).
		Time("start", schedule.DateOnly(projectStart)).
		Msg("schedule applied")
	s.bus.Publish(events.TopicSchedule, events.ScheduleAppliedEvent{
		Project:   projectID,
		TaskCount: len(scheduled),
		Start:     schedule.DateOnly(projectStart),
		Timestamp: s.now(),
	})

	return scheduled, nil
}
