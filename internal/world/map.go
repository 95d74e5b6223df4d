// Package world holds the single in-memory authority for entity
// positions, tile occupancy, and ground items: the MapManager.
package world

import "github.com/tilerealm/worldserver/internal/model"

// Exit describes a one-way transition from one tile to a tile on
// another (or the same) map.
type Exit struct {
	DestMap int32
	DestX   int32
	DestY   int32
}

// SpawnPoint places one instance of an NPC template on this map at
// startup; the tile becomes the instance's spawn anchor.
type SpawnPoint struct {
	TemplateID int32
	X, Y       int32
}

// MapDef is the immutable, catalog-loaded description of one 100x100
// map: its blocked bitmap, exits, doors, signs, and NPC spawn points.
// Read-only after startup — safe to share across goroutines without
// locking.
type MapDef struct {
	ID       int32
	Name     string
	Blocked  [100][100]bool // Blocked[x-1][y-1]
	Exits    map[model.Tile]Exit
	Doors    map[model.Tile]bool // true = closed by default
	Signs    map[model.Tile]string
	Spawns   []SpawnPoint
	SoundID  int32
	SafeZone bool
}

// NewMapDef returns an all-walkable, exit/door/sign-free map, used for
// maps referenced before their catalog file is loaded (degrades rather
// than refusing to run).
func NewMapDef(id int32) *MapDef {
	return &MapDef{
		ID:    id,
		Exits: make(map[model.Tile]Exit),
		Doors: make(map[model.Tile]bool),
		Signs: make(map[model.Tile]string),
	}
}

// IsBlocked reports whether (x, y) is statically blocked on this map.
// Out-of-bounds tiles count as blocked.
func (m *MapDef) IsBlocked(x, y int32) bool {
	if !model.InBounds(x, y) {
		return true
	}
	return m.Blocked[x-1][y-1]
}

// mapInstance is the mutable per-map state guarded by MapManager's lock.
type mapInstance struct {
	def       *MapDef
	occupancy map[model.Tile]uint32
	entities  map[uint32]*model.Entity
	ground    map[model.Tile]*model.GroundItem
	doorState map[model.Tile]bool // current open/closed, seeded from def.Doors
}

func newMapInstance(def *MapDef) *mapInstance {
	doorState := make(map[model.Tile]bool, len(def.Doors))
	for t, closed := range def.Doors {
		doorState[t] = closed
	}
	return &mapInstance{
		def:       def,
		occupancy: make(map[model.Tile]uint32),
		entities:  make(map[uint32]*model.Entity),
		ground:    make(map[model.Tile]*model.GroundItem),
		doorState: doorState,
	}
}
