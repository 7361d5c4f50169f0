package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/buildplan/internal/capacity"
	"github.com/aristath/buildplan/internal/schedule"
)

// SaveTeam inserts or updates a team record.
func (s *SQLiteStore) SaveTeam(ctx context.Context, team *capacity.Team) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, default_capacity)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_capacity = excluded.default_capacity
	`, team.ID, team.Name, team.DefaultCapacity)
	if err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

// Team returns the team record, or (nil, nil) when no record exists.
// Implements capacity.Provider.
func (s *SQLiteStore) Team(ctx context.Context, teamID string) (*capacity.Team, error) {
	team := &capacity.Team{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, default_capacity
		FROM teams
		WHERE id = ?
	`, teamID).Scan(&team.ID, &team.Name, &team.DefaultCapacity)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query team: %w", err)
	}
	return team, nil
}

// SetCapacityOverride records a date-specific slot count for a team,
// replacing its default capacity on that date only.
func (s *SQLiteStore) SetCapacityOverride(ctx context.Context, teamID string, date time.Time, totalSlots int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_capacity_overrides (team_id, date, total_slots)
		VALUES (?, ?, ?)
		ON CONFLICT(team_id, date) DO UPDATE SET
			total_slots = excluded.total_slots
	`, teamID, schedule.DateOnly(date).Format(schedule.DateLayout), totalSlots)
	if err != nil {
		return fmt.Errorf("failed to save capacity override: %w", err)
	}
	return nil
}

// OverrideSlots implements capacity.Provider.
func (s *SQLiteStore) OverrideSlots(ctx context.Context, teamID string, date time.Time) (int, bool, error) {
	var slots int
	err := s.db.QueryRowContext(ctx, `
		SELECT total_slots
		FROM team_capacity_overrides
		WHERE team_id = ? AND date = ?
	`, teamID, schedule.DateOnly(date).Format(schedule.DateLayout)).Scan(&slots)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query capacity override: %w", err)
	}
	return slots, true, nil
}

// UsedSlots counts tasks assigned to the team whose scheduled interval
// contains the date. Cancelled tasks hold no slot. Implements
// capacity.Provider.
func (s *SQLiteStore) UsedSlots(ctx context.Context, teamID string, date time.Time) (int, error) {
	day := schedule.DateOnly(date).Format(schedule.DateLayout)

	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM tasks
		WHERE team_id = ?
		  AND scheduled_start IS NOT NULL
		  AND scheduled_start <= ?
		  AND scheduled_end >= ?
		  AND status != ?
	`, teamID, day, day, string(schedule.StatusCancelled)).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to count used slots: %w", err)
	}
	return used, nil
}
