package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeLevel(t *testing.T) {
	assert.Equal(t, 1, ComputeLevel(0))
	assert.Equal(t, 1, ComputeLevel(99))
	assert.Equal(t, 2, ComputeLevel(100))
	assert.Equal(t, 2, ComputeLevel(130))
	assert.Equal(t, 6, ComputeLevel(500))
	assert.Equal(t, 1, ComputeLevel(-10))
}

func TestExpToNextLevel(t *testing.T) {
	assert.Equal(t, 0, ExpToNextLevel(0))
	assert.Equal(t, 100, ExpToNextLevel(1))
	assert.Equal(t, 500, ExpToNextLevel(5))
}

func TestApplyExpLevelsUp(t *testing.T) {
	res := ApplyExp(80, 1, 50)
	assert.Equal(t, 130, res.NewExp)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LeveledUp)
}

func TestApplyExpNoLevelChange(t *testing.T) {
	res := ApplyExp(10, 1, 20)
	assert.Equal(t, 30, res.NewExp)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LeveledUp)
}

func TestApplyExpLevelNeverDecreases(t *testing.T) {
	// A user whose stored level is ahead of what their EXP implies keeps it.
	res := ApplyExp(0, 4, 50)
	assert.Equal(t, 50, res.NewExp)
	assert.Equal(t, 4, res.NewLevel)
	assert.False(t, res.LeveledUp)

	for _, delta := range []int{0, 1, 99, 1000} {
		res := ApplyExp(250, 3, delta)
		assert.GreaterOrEqual(t, res.NewLevel, 3, "delta %d", delta)
	}
}

func TestAwardExp(t *testing.T) {
	assert.Equal(t, 0, AwardExp(2, 60, false))
	// Exactly at threshold: no bonus.
	assert.Equal(t, 50, AwardExp(0, 70, true))
	// Level multiplier scales the base.
	assert.Equal(t, 150, AwardExp(2, 70, true))
	// 90 is two full tens over the threshold.
	assert.Equal(t, 70, AwardExp(0, 90, true))
	// Partial tens do not count.
	assert.Equal(t, 60, AwardExp(0, 89, true))
	// Perfect score at max level.
	assert.Equal(t, 330, AwardExp(5, 100, true))
}
