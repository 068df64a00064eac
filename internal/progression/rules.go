// Package progression holds the pure EXP and level rules shared by the
// quest engine and profile display. Everything here is side-effect free.
package progression

const (
	// PassScore is the minimum quiz score (percent, inclusive) that marks a
	// level as passed.
	PassScore = 70
	// MaxLevel is the highest quest level (levels are 0-indexed, six total).
	MaxLevel = 5
	// BaseExp is the EXP base awarded for passing any level before the level
	// multiplier is applied.
	BaseExp = 50
	// ExpPerLevel is the EXP span of one user level.
	ExpPerLevel = 100
)

// ExpToNextLevel returns the total EXP required to reach the next user level.
func ExpToNextLevel(level int) int {
	return level * ExpPerLevel
}

// ComputeLevel maps total EXP to a user level. Monotonic in totalExp.
func ComputeLevel(totalExp int) int {
	if totalExp < 0 {
		totalExp = 0
	}
	return totalExp/ExpPerLevel + 1
}

// ExpResult is the outcome of applying an EXP delta to a user.
type ExpResult struct {
	NewExp    int
	NewLevel  int
	LeveledUp bool
}

// ApplyExp adds delta to a user's EXP and recomputes their level. The level
// never decreases, even if the EXP accounting would imply a lower one.
func ApplyExp(currentExp, currentLevel, delta int) ExpResult {
	newExp := currentExp + delta
	newLevel := ComputeLevel(newExp)
	if newLevel < currentLevel {
		newLevel = currentLevel
	}
	return ExpResult{
		NewExp:    newExp,
		NewLevel:  newLevel,
		LeveledUp: newLevel > currentLevel,
	}
}

// AwardExp computes the EXP earned by one quest attempt. Failed attempts
// award nothing; passed attempts earn the level-scaled base plus a bonus of
// 10 EXP per full 10 points above the pass threshold.
func AwardExp(level, score int, passed bool) int {
	if !passed {
		return 0
	}
	bonus := (score - PassScore) / 10 * 10
	return BaseExp*(level+1) + bonus
}
