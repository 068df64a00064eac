// Package streak decides how a user's login streak changes on session start.
// Update is pure and idempotent under repeated same-day calls.
package streak

import (
	"time"

	"quest-progression-service/internal/domain"
)

// Update compares today against the last login by calendar day and returns
// the new streak counters. A nil lastLogin means first ever login. Calling
// Update again with its own output on the same day changes nothing.
func Update(lastLogin *time.Time, today time.Time, currentStreak, longestStreak, totalLogins int) domain.StreakUpdate {
	upd := domain.StreakUpdate{
		Streak:        currentStreak,
		LongestStreak: longestStreak,
		TotalLogins:   totalLogins,
	}

	switch {
	case lastLogin == nil:
		upd.Streak = 1
		upd.DidLoginToday = true
	case sameDay(*lastLogin, today):
		// Already counted today; a session re-check must not double-count.
	case sameDay(*lastLogin, today.AddDate(0, 0, -1)):
		upd.Streak = currentStreak + 1
		upd.DidLoginToday = true
	default:
		upd.Streak = 1
		upd.DidLoginToday = true
	}

	if upd.Streak > upd.LongestStreak {
		upd.LongestStreak = upd.Streak
	}
	if upd.DidLoginToday {
		upd.TotalLogins++
	}
	return upd
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
