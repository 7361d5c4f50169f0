package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aristath/buildplan/internal/schedule"
	_ "modernc.org/sqlite"
)

// Store is the task-store contract the scheduling services depend on.
// ApplyChanges is the atomicity boundary for a ripple batch: either every
// change lands or none does.
type Store interface {
	SaveTask(ctx context.Context, task *schedule.Task) error
	CreateTasks(ctx context.Context, tasks []*schedule.Task) error
	GetTask(ctx context.Context, taskID string) (*schedule.Task, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]*schedule.Task, error)
	ApplyChanges(ctx context.Context, changes map[string]schedule.Change, movedTaskID, newTeamID string) error
	Close() error
}

// SQLiteStore implements Store using SQLite. It also backs the calendar and
// team/capacity providers consumed by the engine.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and a busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	return open(ctx, "file::memory:?mode=memory&cache=shared")
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys must be enabled per connection via PRAGMA with
	// modernc.org/sqlite.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// One connection for primary queries, one for subqueries.
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
