package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/buildplan/internal/schedule"
)

// SaveWorkingDayRules replaces the weekly working-hours table.
func (s *SQLiteStore) SaveWorkingDayRules(ctx context.Context, rules []schedule.WorkingDayRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM working_day_rules`); err != nil {
		return fmt.Errorf("failed to clear working day rules: %w", err)
	}
	for _, r := range rules {
		working := 0
		if r.Working {
			working = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO working_day_rules (weekday, working, start_time, end_time)
			VALUES (?, ?, ?, ?)
		`, int(r.Weekday), working, r.Start, r.End)
		if err != nil {
			return fmt.Errorf("failed to insert rule for weekday %d: %w", r.Weekday, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddHoliday records a single non-working date.
func (s *SQLiteStore) AddHoliday(ctx context.Context, h schedule.Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, label)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET label = excluded.label
	`, schedule.DateOnly(h.Date).Format(schedule.DateLayout), h.Label)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// Calendar builds a schedule.Calendar from the stored rules and holidays.
// When no rules have been configured it falls back to the standard
// Monday-Friday week.
func (s *SQLiteStore) Calendar(ctx context.Context) (*schedule.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT weekday, working, start_time, end_time
		FROM working_day_rules
		ORDER BY weekday
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query working day rules: %w", err)
	}
	defer rows.Close()

	var rules []schedule.WorkingDayRule
	for rows.Next() {
		var weekday, working int
		var start, end string
		if err := rows.Scan(&weekday, &working, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, schedule.WorkingDayRule{
			Weekday: time.Weekday(weekday),
			Working: working != 0,
			Start:   start,
			End:     end,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	if len(rules) == 0 {
		rules = schedule.StandardWeek()
	}

	hRows, err := s.db.QueryContext(ctx, `SELECT date, label FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer hRows.Close()

	var holidays []schedule.Holiday
	for hRows.Next() {
		var dateStr, label string
		if err := hRows.Scan(&dateStr, &label); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		d, err := time.ParseInLocation(schedule.DateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("malformed stored holiday %q: %w", dateStr, err)
		}
		holidays = append(holidays, schedule.Holiday{Date: d, Label: label})
	}
	if err := hRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holidays: %w", err)
	}

	return schedule.NewCalendar(rules, holidays)
}
