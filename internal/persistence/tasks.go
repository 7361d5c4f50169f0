package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/buildplan/internal/schedule"
)

// nullDate converts an optional schedule date to its TEXT column form.
func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(schedule.DateLayout), Valid: true}
}

func parseDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(schedule.DateLayout, s.String, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("malformed stored date %q: %w", s.String, err)
	}
	return &d, nil
}

// SaveTask saves or updates a task and its dependency codes.
// Uses ON CONFLICT to make saves idempotent.
func (s *SQLiteStore) SaveTask(ctx context.Context, task *schedule.Task) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTask(ctx, tx, task); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateTasks inserts a batch of tasks in a single transaction, the bulk
// path used when a template is applied to a project.
func (s *SQLiteStore) CreateTasks(ctx context.Context, tasks []*schedule.Task) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, task := range tasks {
		if err := upsertTask(ctx, tx, task); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertTask(ctx context.Context, tx *sql.Tx, task *schedule.Task) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, code, label, trade, duration_days, team_id, scheduled_start, scheduled_end, status, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			code = excluded.code,
			label = excluded.label,
			trade = excluded.trade,
			duration_days = excluded.duration_days,
			team_id = excluded.team_id,
			scheduled_start = excluded.scheduled_start,
			scheduled_end = excluded.scheduled_end,
			status = excluded.status,
			sort_order = excluded.sort_order,
			updated_at = CURRENT_TIMESTAMP
	`, task.ID, task.ProjectID, task.Code, task.Label, task.Trade, task.DurationDays,
		nullString(task.TeamID), nullDate(task.ScheduledStart), nullDate(task.ScheduledEnd),
		string(task.Status), task.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("failed to delete old dependencies: %w", err)
	}
	for _, depCode := range task.DependsOn {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_dependencies (task_id, depends_on_code)
			VALUES (?, ?)
		`, task.ID, depCode)
		if err != nil {
			return fmt.Errorf("failed to insert dependency %s -> %s: %w", task.ID, depCode, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

const taskColumns = `id, project_id, code, label, trade, duration_days, team_id, scheduled_start, scheduled_end, status, sort_order`

func scanTask(scan func(dest ...any) error) (*schedule.Task, error) {
	task := &schedule.Task{}
	var teamID, start, end sql.NullString
	var status string

	if err := scan(&task.ID, &task.ProjectID, &task.Code, &task.Label, &task.Trade,
		&task.DurationDays, &teamID, &start, &end, &status, &task.SortOrder); err != nil {
		return nil, err
	}

	task.TeamID = teamID.String
	task.Status = schedule.Status(status)

	var err error
	if task.ScheduledStart, err = parseDate(start); err != nil {
		return nil, err
	}
	if task.ScheduledEnd, err = parseDate(end); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask retrieves a task by ID, including its dependency codes.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*schedule.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ?
	`, taskID)

	task, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", schedule.ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	if err := s.loadDependencies(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *SQLiteStore) loadDependencies(ctx context.Context, task *schedule.Task) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on_code
		FROM task_dependencies
		WHERE task_id = ?
		ORDER BY depends_on_code
	`, task.ID)
	if err != nil {
		return fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	task.DependsOn = []string{}
	for rows.Next() {
		var depCode string
		if err := rows.Scan(&depCode); err != nil {
			return fmt.Errorf("failed to scan dependency: %w", err)
		}
		task.DependsOn = append(task.DependsOn, depCode)
	}
	return rows.Err()
}

// ListProjectTasks returns all tasks of a project with their dependency
// codes, ordered by sort_order then creation time.
func (s *SQLiteStore) ListProjectTasks(ctx context.Context, projectID string) ([]*schedule.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE project_id = ?
		ORDER BY sort_order, created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*schedule.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	for _, task := range tasks {
		if err := s.loadDependencies(ctx, task); err != nil {
			return nil, fmt.Errorf("loading dependencies for task %s: %w", task.ID, err)
		}
	}
	return tasks, nil
}

// ApplyChanges persists a ripple preview in one transaction: every task in
// the map gets its new dates (and moves from pending to scheduled), and the
// originally moved task gets its new team when newTeamID is non-empty.
// Any failure rolls the whole batch back.
func (s *SQLiteStore) ApplyChanges(ctx context.Context, changes map[string]schedule.Change, movedTaskID, newTeamID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for taskID, change := range changes {
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET scheduled_start = ?,
			    scheduled_end = ?,
			    status = CASE WHEN status = ? THEN ? ELSE status END,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, change.Start.Format(schedule.DateLayout), change.End.Format(schedule.DateLayout),
			string(schedule.StatusPending), string(schedule.StatusScheduled), taskID)
		if err != nil {
			return fmt.Errorf("failed to update task %s: %w", taskID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", schedule.ErrTaskNotFound, taskID)
		}
	}

	if newTeamID != "" && movedTaskID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET team_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, newTeamID, movedTaskID); err != nil {
			return fmt.Errorf("failed to reassign task %s: %w", movedTaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
