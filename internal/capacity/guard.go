package capacity

import (
	"context"
	"fmt"
	"time"
)

// Team is a crew with a daily slot budget. DefaultCapacity bounds how many
// tasks the team can run concurrently on one date.
type Team struct {
	ID              string
	Name            string
	DefaultCapacity int
}

// Provider supplies team records, per-date slot overrides, and current
// usage. The SQLite store implements it; tests use fakes.
type Provider interface {
	// Team returns the team record, or (nil, nil) when no record exists.
	Team(ctx context.Context, teamID string) (*Team, error)
	// OverrideSlots returns the slot count for a date-specific override and
	// whether one exists.
	OverrideSlots(ctx context.Context, teamID string, date time.Time) (int, bool, error)
	// UsedSlots counts tasks scheduled to the team whose date interval
	// contains the given date.
	UsedSlots(ctx context.Context, teamID string, date time.Time) (int, error)
}

// Availability is the outcome of a capacity check for one (team, date) pair.
type Availability struct {
	TotalSlots     int
	UsedSlots      int
	AvailableSlots int
	HasConflict    bool
}

// Guard answers whether a team has a free slot on a date. The check is
// read-then-decide and therefore optimistic under concurrent commits; the
// commit transaction is the unit of atomicity, not this guard.
type Guard struct {
	provider     Provider
	defaultSlots int
}

// NewGuard creates a Guard. defaultSlots is used for teams with no capacity
// record at all; anything below 1 falls back to the single-crew default so a
// missing record never means unlimited assignment.
func NewGuard(p Provider, defaultSlots int) *Guard {
	if defaultSlots < 1 {
		defaultSlots = 1
	}
	return &Guard{provider: p, defaultSlots: defaultSlots}
}

// Check resolves total slots (override, else team default, else the
// single-crew fallback), counts used slots, and reports availability.
func (g *Guard) Check(ctx context.Context, teamID string, date time.Time) (Availability, error) {
	total := g.defaultSlots

	team, err := g.provider.Team(ctx, teamID)
	if err != nil {
		return Availability{}, fmt.Errorf("loading team %s: %w", teamID, err)
	}
	if team != nil && team.DefaultCapacity > 0 {
		total = team.DefaultCapacity
	}

	if slots, ok, err := g.provider.OverrideSlots(ctx, teamID, date); err != nil {
		return Availability{}, fmt.Errorf("loading capacity override for team %s: %w", teamID, err)
	} else if ok {
		total = slots
	}

	used, err := g.provider.UsedSlots(ctx, teamID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("counting used slots for team %s: %w", teamID, err)
	}

	avail := total - used
	return Availability{
		TotalSlots:     total,
		UsedSlots:      used,
		AvailableSlots: avail,
		HasConflict:    avail <= 0,
	}, nil
}
