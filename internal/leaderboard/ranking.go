// Package leaderboard ranks user aggregate snapshots. Compute is pure and
// safe for any number of concurrent callers.
package leaderboard

import (
	"sort"
	"time"

	"quest-progression-service/internal/domain"
)

// Category selects which ranking key orders the board.
type Category string

const (
	CategoryOverall Category = "overall"
	CategoryExp     Category = "exp"
	CategoryStreak  Category = "streak"
	CategoryQuests  Category = "quests"
)

// Overall composite weights.
const (
	overallExpWeight    = 0.4
	overallStreakWeight = 0.3
	overallQuestWeight  = 0.3
	overallStreakScale  = 100
	overallQuestScale   = 50
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryOverall, CategoryExp, CategoryStreak, CategoryQuests:
		return true
	}
	return false
}

// OverallScore is the weighted blend behind the "overall" category. A pure
// function of (exp, loginStreak, completedQuests).
func OverallScore(a domain.UserAggregate) float64 {
	return float64(a.Exp)*overallExpWeight +
		float64(a.LoginStreak)*overallStreakScale*overallStreakWeight +
		float64(a.CompletedQuests)*overallQuestScale*overallQuestWeight
}

// Compute sorts the snapshot descending by the category key and assigns
// positional 1-based ranks. Equal keys are never collapsed into a shared
// rank; each position gets the next integer. Ties without a secondary key
// keep their snapshot order. MyRank is 0 when requestingUserID is absent.
func Compute(snapshot []domain.UserAggregate, category Category, requestingUserID string) (domain.Leaderboard, error) {
	if !category.Valid() {
		return domain.Leaderboard{}, domain.ErrInvalidCategory
	}

	entries := make([]domain.LeaderboardEntry, len(snapshot))
	for i, agg := range snapshot {
		entries[i] = domain.LeaderboardEntry{UserAggregate: agg}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[j].UserAggregate, entries[i].UserAggregate, category)
	})

	lb := domain.Leaderboard{
		Category:  string(category),
		Entries:   entries,
		UpdatedAt: time.Now(),
	}
	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].UserID == requestingUserID {
			lb.MyRank = entries[i].Rank
		}
	}
	return lb, nil
}

// less orders a below b for the given category (ascending form; callers
// invert it for the descending board).
func less(a, b domain.UserAggregate, category Category) bool {
	switch category {
	case CategoryExp:
		return a.Exp < b.Exp
	case CategoryStreak:
		if a.LoginStreak != b.LoginStreak {
			return a.LoginStreak < b.LoginStreak
		}
		return a.LongestStreak < b.LongestStreak
	case CategoryQuests:
		if a.CompletedQuests != b.CompletedQuests {
			return a.CompletedQuests < b.CompletedQuests
		}
		return a.TotalScore < b.TotalScore
	default: // CategoryOverall
		return OverallScore(a) < OverallScore(b)
	}
}
