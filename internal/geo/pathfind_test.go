package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilerealm/worldserver/internal/model"
)

func noBlocks(x, y int32) bool { return false }

func TestFindPath_SameTile(t *testing.T) {
	start := model.Tile{X: 5, Y: 5}
	path, ok := FindPath(start, start, noBlocks, 0)
	require.True(t, ok)
	assert.Equal(t, []model.Tile{start}, path)
}

func TestFindPath_OpenFieldReturnsShortestLength(t *testing.T) {
	start := model.Tile{X: 10, Y: 10}
	goal := model.Tile{X: 13, Y: 12}
	path, ok := FindPath(start, goal, noBlocks, DefaultMaxExpand)
	require.True(t, ok)
	assert.Equal(t, start, path[0])
	assert.Equal(t, goal, path[len(path)-1])
	assert.Equal(t, 6, len(path)) // Manhattan distance 5 + start = 6 waypoints
}

func TestFindPath_RoutesAroundWall(t *testing.T) {
	blocked := func(x, y int32) bool {
		return y == 10 && x >= 5 && x <= 15
	}
	start := model.Tile{X: 10, Y: 8}
	goal := model.Tile{X: 10, Y: 12}
	path, ok := FindPath(start, goal, blocked, 200)
	require.True(t, ok)
	for _, t2 := range path {
		require.False(t, blocked(t2.X, t2.Y))
	}
	assert.Equal(t, goal, path[len(path)-1])
}

func TestFindPath_BlockedGoalFallsBackToNeighbor(t *testing.T) {
	goal := model.Tile{X: 10, Y: 10}
	blocked := func(x, y int32) bool { return x == goal.X && y == goal.Y }
	start := model.Tile{X: 10, Y: 5}

	path, ok := FindPath(start, goal, blocked, 200)
	require.True(t, ok)
	last := path[len(path)-1]
	assert.Equal(t, int32(1), model.ManhattanDistance(last, goal))
}

func TestFindPath_GivesUpWhenFullyEnclosed(t *testing.T) {
	goal := model.Tile{X: 20, Y: 20}
	blocked := func(x, y int32) bool { return true }
	start := model.Tile{X: 1, Y: 1}

	_, ok := FindPath(start, goal, blocked, 50)
	assert.False(t, ok)
}

func TestFindPath_RespectsMaxExpandBudget(t *testing.T) {
	start := model.Tile{X: 1, Y: 1}
	goal := model.Tile{X: 99, Y: 99}
	_, ok := FindPath(start, goal, noBlocks, 5)
	assert.False(t, ok, "goal far beyond the expansion budget should not be reached")
}
