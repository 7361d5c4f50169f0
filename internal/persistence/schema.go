package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		code TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		trade TEXT NOT NULL DEFAULT '',
		duration_days REAL NOT NULL,
		team_id TEXT,
		scheduled_start TEXT,
		scheduled_end TEXT,
		status TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (project_id, code)
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_team_dates ON tasks(team_id, scheduled_start, scheduled_end);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id TEXT NOT NULL,
		depends_on_code TEXT NOT NULL,
		PRIMARY KEY (task_id, depends_on_code),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_task_id ON task_dependencies(task_id);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		default_capacity INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS team_capacity_overrides (
		team_id TEXT NOT NULL,
		date TEXT NOT NULL,
		total_slots INTEGER NOT NULL,
		PRIMARY KEY (team_id, date),
		FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS working_day_rules (
		weekday INTEGER PRIMARY KEY,
		working INTEGER NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
