package commit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/buildplan/internal/events"
	"github.com/aristath/buildplan/internal/schedule"
)

// TemplateTask is one row of a reusable project template. Codes are local
// to the template; applying it mints fresh task IDs.
type TemplateTask struct {
	Code         string   `json:"code"`
	Label        string   `json:"label"`
	Trade        string   `json:"trade"`
	DurationDays float64  `json:"duration_days"`
	DependsOn    []string `json:"depends_on,omitempty"`
	TeamID       string   `json:"team_id,omitempty"`
}

// ApplyTemplate instantiates the template into the project, schedules the
// resulting tasks from projectStart, and persists them in one batch.
func (s *Service) ApplyTemplate(ctx context.Context, projectID string, projectStart time.Time, template []TemplateTask) ([]*schedule.Task, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("template has no tasks")
	}

	tasks := make([]*schedule.Task, 0, len(template))
	for i, tt := range template {
		tasks = append(tasks, &schedule.Task{
			ID:           uuid.NewString(),
			ProjectID:    projectID,
			Code:         tt.Code,
			Label:        tt.Label,
			Trade:        tt.Trade,
			DurationDays: tt.DurationDays,
			DependsOn:    append([]string(nil), tt.DependsOn...),
			TeamID:       tt.TeamID,
			Status:       schedule.StatusPending,
			SortOrder:    i,
		})
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
		return nil, fmt.Errorf("persisting template tasks for project %s: %w", projectID, err)
	}

	s.log.Info().
		Str("project", projectID).
		Int("tasks", len(scheduled)).
		Msg("template applied")
	s.bus.Publish(events.TopicSchedule, events.ScheduleAppliedEvent{
		Project:   projectID,
		TaskCount: len(scheduled),
		Start:     schedule.DateOnly(projectStart),
		Timestamp: s.now(),
	})

	return scheduled, nil
}
