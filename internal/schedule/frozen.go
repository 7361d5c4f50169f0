package schedule

import (
	"time"
)

// DefaultFrozenDays is the default width of the frozen zone.
const DefaultFrozenDays = 3

// IsFrozen reports whether date falls inside the frozen zone: the window of
// frozenDays calendar days starting at today. Dates strictly before
// today+frozenDays are frozen; the boundary day itself is not. A
// non-positive frozenDays disables the zone.
func IsFrozen(date, today time.Time, frozenDays int) bool {
	if frozenDays <= 0 {
		return false
	}
	return DateOnly(date).Before(FrozenUntil(today, frozenDays))
}

// FrozenUntil returns the first date outside the frozen zone.
func FrozenUntil(today time.Time, frozenDays int) time.Time {
	return DateOnly(today).AddDate(0, 0, frozenDays)
}
