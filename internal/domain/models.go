package domain

import "time"

// OptionsPerQuestion is the fixed number of answer options every question carries.
const OptionsPerQuestion = 4

// Question is a single multiple-choice question. Immutable once fetched
// from a question source; owned by one quest attempt and discarded after.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOptionIndex"`
	Explanation   string   `json:"explanation,omitempty"`
}

// UserProgress is the per-user persisted state the progression core reads
// a snapshot of. The core returns deltas; callers persist them.
type UserProgress struct {
	UserID          string     `json:"userId"`
	Username        string     `json:"username"`
	Exp             int        `json:"exp"`
	Level           int        `json:"level"`
	LoginStreak     int        `json:"loginStreak"`
	LongestStreak   int        `json:"longestStreak"`
	TotalLogins     int        `json:"totalLogins"`
	CompletedQuests int        `json:"completedQuests"`
	TotalScore      int        `json:"totalScore"`
	LastLogin       *time.Time `json:"lastLoginDate,omitempty"`
}

// Aggregate projects the persisted progress into a ranking input row.
func (p UserProgress) Aggregate() UserAggregate {
	return UserAggregate{
		UserID:          p.UserID,
		Username:        p.Username,
		Exp:             p.Exp,
		Level:           p.Level,
		LoginStreak:     p.LoginStreak,
		LongestStreak:   p.LongestStreak,
		TotalLogins:     p.TotalLogins,
		CompletedQuests: p.CompletedQuests,
		TotalScore:      p.TotalScore,
	}
}

// UserAggregate is one user's ranking input row, as read from the data store.
type UserAggregate struct {
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	Exp             int    `json:"exp"`
	Level           int    `json:"level"`
	LoginStreak     int    `json:"loginStreak"`
	LongestStreak   int    `json:"longestStreak"`
	TotalLogins     int    `json:"totalLogins"`
	CompletedQuests int    `json:"completedQuests"`
	TotalScore      int    `json:"totalScore"`
}

// LeaderboardEntry is an aggregate row augmented with its assigned rank.
type LeaderboardEntry struct {
	UserAggregate
	Rank int `json:"rank"`
}

// Leaderboard is the ranked view for one category, computed fresh from a
// snapshot. MyRank is 0 when the requesting user is absent from the snapshot.
type Leaderboard struct {
	Category  string             `json:"category"`
	Entries   []LeaderboardEntry `json:"entries"`
	MyRank    int                `json:"myRank"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuestLevelResult is the immutable outcome of one completed quest attempt,
// handed to the caller for persistence.
type QuestLevelResult struct {
	Topic             string `json:"topic"`
	Level             int    `json:"level"`
	Score             int    `json:"score"`
	Passed            bool   `json:"passed"`
	ExpAwarded        int    `json:"expAwarded"`
	LeveledUp         bool   `json:"leveledUp"`
	NewLevel          int    `json:"newLevel"`
	NextLevelUnlocked bool   `json:"nextLevelUnlocked"`
}

// StreakUpdate is the outcome of a login-streak check, to be persisted by
// the caller.
type StreakUpdate struct {
	Streak        int  `json:"loginStreak"`
	LongestStreak int  `json:"longestStreak"`
	TotalLogins   int  `json:"totalLogins"`
	DidLoginToday bool `json:"didLoginToday"`
}
