// Package geo implements grid pathfinding for the tile world: bounded
// A* search on the 4-connected walkable graph a map exposes.
package geo

import (
	"container/heap"

	"github.com/tilerealm/worldserver/internal/model"
)

// DefaultMaxExpand bounds the number of nodes A* pops from the open
// list before giving up, keeping worst-case search cost predictable
// under the world lock.
const DefaultMaxExpand = 20

// Blocked reports whether (x, y) on a map cannot be entered. Passed in
// rather than depending on the world package directly, so this package
// has no dependency on MapManager's locking.
type Blocked func(x, y int32) bool

// FindPath runs a 4-connected A* from start to goal using the Manhattan
// distance heuristic, expanding at most maxExpand nodes. maxExpand <= 0
// uses DefaultMaxExpand. Returns the path including start and goal, or
// (nil, false) if no path was found within the expansion budget.
//
// When the goal tile itself is blocked, falls back to the closest
// walkable neighbor of the goal reached by the search (goal-neighbor
// fallback), so "walk next to the NPC you want to attack" still works.
func FindPath(start, goal model.Tile, blocked Blocked, maxExpand int) ([]model.Tile, bool) {
	if maxExpand <= 0 {
		maxExpand = DefaultMaxExpand
	}
	if start == goal {
		return []model.Tile{start}, true
	}

	goalBlocked := blocked(goal.X, goal.Y)

	open := &nodeHeap{}
	heap.Init(open)
	startNode := &pathNode{tile: start, h: model.ManhattanDistance(start, goal)}
	heap.Push(open, startNode)

	visited := map[model.Tile]*pathNode{start: startNode}

	expanded := 0

	for open.Len() > 0 && expanded < maxExpand {
		current := heap.Pop(open).(*pathNode)
		expanded++

		if current.tile == goal {
			return reconstruct(current), true
		}
		if goalBlocked && model.ManhattanDistance(current.tile, goal) == 1 {
			return reconstruct(current), true
		}

		for _, next := range neighbors(current.tile) {
			if !model.InBounds(next.X, next.Y) || blocked(next.X, next.Y) {
				continue
			}
			g := current.g + 1
			if existing, ok := visited[next]; ok && existing.g <= g {
				continue
			}
			node := &pathNode{
				tile:   next,
				parent: current,
				g:      g,
				h:      model.ManhattanDistance(next, goal),
			}
			visited[next] = node
			heap.Push(open, node)
		}
	}

	return nil, false
}

func reconstruct(n *pathNode) []model.Tile {
	var path []model.Tile
	for cur := n; cur != nil; cur = cur.parent {
		path = append(path, cur.tile)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func neighbors(t model.Tile) [4]model.Tile {
	return [4]model.Tile{
		{X: t.X, Y: t.Y - 1},
		{X: t.X + 1, Y: t.Y},
		{X: t.X, Y: t.Y + 1},
		{X: t.X - 1, Y: t.Y},
	}
}

type pathNode struct {
	tile   model.Tile
	parent *pathNode
	g      int32
	h      int32
	index  int
}

func (n *pathNode) f() int32 { return n.g + n.h }

type nodeHeap []*pathNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f() != h[j].f() {
		return h[i].f() < h[j].f()
	}
	return h[i].h < h[j].h // tie-break on lower heuristic, matching closer-to-goal preference
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}
