package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tilerealm/worldserver/internal/model"
)

// npcCharIndexBase separates the NPC char_index range from the player
// range by convention, matching the data model's "separate ranges for
// players and NPCs" rule.
const npcCharIndexBase = 0x20000000

// Observer is the sink a connected session exposes to the world so
// MapManager can drive broadcast fan-out without owning connection
// plumbing. Send must not block the caller for long — a slow consumer
// is the connection layer's problem (bounded buffer, overflow closes
// the connection), never the world lock's.
type Observer interface {
	CharIndex() uint32
	Send(payload []byte) error
}

// MapManager is the single authoritative owner of maps, entities, tile
// occupancy, and ground items. Every exported method is atomic with
// respect to every other: a single mutex (the "world lock") serializes
// all of it.
type MapManager struct {
	mu sync.Mutex

	maps map[int32]*mapInstance

	entities  map[uint32]*model.Entity // global char_index -> entity, any kind
	observers map[uint32]Observer      // char_index -> sink, players only

	pendingRespawns []*model.NPC // removed-from-world NPCs awaiting RespawnTimers

	nextPlayerIdx atomic.Uint32
	nextNPCIdx    atomic.Uint32
}

// NewMapManager creates an empty manager. Maps are registered with
// RegisterMap before AddPlayer/AddNPC reference them.
func NewMapManager() *MapManager {
	m := &MapManager{
		maps:      make(map[int32]*mapInstance),
		entities:  make(map[uint32]*model.Entity),
		observers: make(map[uint32]Observer),
	}
	m.nextNPCIdx.Store(npcCharIndexBase)
	return m
}

// RegisterMap installs a catalog-loaded map definition. Called only
// during startup, before any concurrent access — no locking needed, but
// taking the lock anyway keeps the method safe to call at any time.
func (m *MapManager) RegisterMap(def *MapDef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maps[def.ID] = newMapInstance(def)
}

// ensureMap returns the instance for mapID, lazily creating an
// all-walkable one if the catalog never registered it (degrade, not
// fail). Caller must hold mu.
func (m *MapManager) ensureMap(mapID int32) *mapInstance {
	mi, ok := m.maps[mapID]
	if !ok {
		mi = newMapInstance(NewMapDef(mapID))
		m.maps[mapID] = mi
	}
	return mi
}

// AllocatePlayerCharIndex returns the next unused player char_index.
func (m *MapManager) AllocatePlayerCharIndex() uint32 {
	return m.nextPlayerIdx.Add(1)
}

// AllocateNPCCharIndex returns the next unused NPC char_index.
func (m *MapManager) AllocateNPCCharIndex() uint32 {
	return m.nextNPCIdx.Add(1)
}

// CanMoveTo reports whether (mapID, x, y) is in-bounds, not statically
// blocked, and not currently occupied.
func (m *MapManager) CanMoveTo(mapID, x, y int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canMoveToLocked(mapID, x, y)
}

func (m *MapManager) canMoveToLocked(mapID, x, y int32) bool {
	if !model.InBounds(x, y) {
		return false
	}
	mi := m.ensureMap(mapID)
	if mi.def.IsBlocked(x, y) {
		return false
	}
	t := model.Tile{X: x, Y: y}
	if closed, ok := mi.doorState[t]; ok && closed {
		return false
	}
	_, occupied := mi.occupancy[t]
	return !occupied
}

// AddPlayer binds charIndex to the observer, marks the tile occupied,
// and returns a snapshot of co-located entities for initial sync. Fails
// with ErrTileBlocked if the destination tile is occupied or blocked.
func (m *MapManager) AddPlayer(obs Observer, p *model.Player) ([]*model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc := p.Location
	if !m.canMoveToLocked(loc.Map, loc.X, loc.Y) {
		return nil, fmt.Errorf("spawning player %d at (%d,%d,%d): %w", p.CharIndex, loc.Map, loc.X, loc.Y, model.ErrTileBlocked)
	}

	mi := m.ensureMap(loc.Map)
	entity := model.NewPlayerEntity(p)
	mi.occupancy[loc.Tile()] = p.CharIndex
	mi.entities[p.CharIndex] = entity
	m.entities[p.CharIndex] = entity
	m.observers[p.CharIndex] = obs

	snapshot := make([]*model.Entity, 0, len(mi.entities)-1)
	for idx, e := range mi.entities {
		if idx == p.CharIndex {
			continue
		}
		snapshot = append(snapshot, e)
	}
	return snapshot, nil
}

// AddNPC registers an NPC entity at its current location. Used by spawn
// and respawn alike.
func (m *MapManager) AddNPC(n *model.NPC) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc := n.Location
	if !m.canMoveToLocked(loc.Map, loc.X, loc.Y) {
		return fmt.Errorf("spawning npc %d at (%d,%d,%d): %w", n.CharIndex, loc.Map, loc.X, loc.Y, model.ErrTileBlocked)
	}

	mi := m.ensureMap(loc.Map)
	entity := model.NewNPCEntity(n)
	mi.occupancy[loc.Tile()] = n.CharIndex
	mi.entities[n.CharIndex] = entity
	m.entities[n.CharIndex] = entity
	return nil
}

// RemoveEntity frees occupancy and drops the session binding for
// players. Idempotent: calling it again after removal is a no-op.
// Servers of this kind have been known to leak occupancy on NPC
// removal; RemoveEntity always frees the tile first so a dead NPC's
// tile never stays blocked.
func (m *MapManager) RemoveEntity(charIndex uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeEntityLocked(charIndex)
}

func (m *MapManager) removeEntityLocked(charIndex uint32) {
	entity, ok := m.entities[charIndex]
	if !ok {
		return
	}
	loc := entity.Location()
	if mi, ok := m.maps[loc.Map]; ok {
		if cur, occ := mi.occupancy[loc.Tile()]; occ && cur == charIndex {
			delete(mi.occupancy, loc.Tile())
		}
		delete(mi.entities, charIndex)
	}
	delete(m.entities, charIndex)
	delete(m.observers, charIndex)
}

// MoveEntity validates the destination via CanMoveTo semantics and, if
// valid, atomically frees the source tile and claims the destination —
// possibly on a different map. Returns the previous and new location for
// the caller to broadcast.
func (m *MapManager) MoveEntity(charIndex uint32, dst model.Location) (prev, next model.Location, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entity, ok := m.entities[charIndex]
	if !ok {
		return model.Location{}, model.Location{}, fmt.Errorf("moving char %d: %w", charIndex, model.ErrNotFound)
	}
	prev = entity.Location()

	if !m.canMoveToLocked(dst.Map, dst.X, dst.Y) {
		return prev, prev, fmt.Errorf("moving char %d to (%d,%d,%d): %w", charIndex, dst.Map, dst.X, dst.Y, model.ErrTileBlocked)
	}

	srcMap := m.ensureMap(prev.Map)
	delete(srcMap.occupancy, prev.Tile())

	dstMap := m.ensureMap(dst.Map)
	dstMap.occupancy[dst.Tile()] = charIndex

	if srcMap != dstMap {
		delete(srcMap.entities, charIndex)
		dstMap.entities[charIndex] = entity
	}

	entity.SetLocation(dst)
	return prev, dst, nil
}

// GetExitTile returns the exit destination registered at (mapID, x, y),
// if any.
func (m *MapManager) GetExitTile(mapID, x, y int32) (Exit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi := m.ensureMap(mapID)
	ex, ok := mi.def.Exits[model.Tile{X: x, Y: y}]
	return ex, ok
}

// GetObservers returns every player-session sink that should see an
// event at (mapID, x, y). This returns every session on the map —
// simple and correct, since clients cull by view range themselves.
// radius is accepted for interface stability but unused in the
// whole-map strategy.
func (m *MapManager) GetObservers(mapID int32, x, y, radius int32) []Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, ok := m.maps[mapID]
	if !ok {
		return nil
	}
	out := make([]Observer, 0, len(mi.entities))
	for idx := range mi.entities {
		if obs, ok := m.observers[idx]; ok {
			out = append(out, obs)
		}
	}
	return out
}

// ListEntitiesInMap returns a snapshot of every entity on mapID, used by
// AI target scans and by newly-joined observers.
func (m *MapManager) ListEntitiesInMap(mapID int32) []*model.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, ok := m.maps[mapID]
	if !ok {
		return nil
	}
	out := make([]*model.Entity, 0, len(mi.entities))
	for _, e := range mi.entities {
		out = append(out, e)
	}
	return out
}

// ListNPCs returns a snapshot of every live NPC across all maps, used by
// the NPCAI tick effect.
func (m *MapManager) ListNPCs() []*model.NPC {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.NPC, 0, 64)
	for _, e := range m.entities {
		if e.Kind == model.KindNPC {
			out = append(out, e.NPC)
		}
	}
	return out
}

// ListPlayers returns a snapshot of every online player, used by tick
// effects that iterate "all online players" (hunger/thirst, gold decay,
// meditation, regen).
func (m *MapManager) ListPlayers() []*model.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Player, 0, len(m.observers))
	for idx := range m.observers {
		if e, ok := m.entities[idx]; ok && e.Kind == model.KindPlayer {
			out = append(out, e.Player)
		}
	}
	return out
}

// GetObserver returns the session sink bound to charIndex, if any —
// used by tick effects that need to notify one specific player rather
// than everyone on a map (hunger/thirst, gold decay, meditation, regen).
func (m *MapManager) GetObserver(charIndex uint32) (Observer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obs, ok := m.observers[charIndex]
	return obs, ok
}

// ScheduleRespawn hands a dead, already-removed NPC to the respawn
// registry. The NPC must already be out of m.entities (RemoveEntity
// called first) — this only tracks it for RespawnTimers to bring back.
func (m *MapManager) ScheduleRespawn(n *model.NPC) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingRespawns = append(m.pendingRespawns, n)
}

// PopReadyRespawns removes and returns every pending NPC whose
// RespawnDelayS has elapsed since combat.KillNPC recorded DiedAt, per
// combat.ReadyToRespawn. Callers re-add the NPC with AddNPC once reset.
func (m *MapManager) PopReadyRespawns(ready func(n *model.NPC) bool) []*model.NPC {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*model.NPC
	remaining := m.pendingRespawns[:0]
	for _, n := range m.pendingRespawns {
		if ready(n) {
			due = append(due, n)
		} else {
			remaining = append(remaining, n)
		}
	}
	m.pendingRespawns = remaining
	return due
}

// GetEntity returns the entity for charIndex, if live.
func (m *MapManager) GetEntity(charIndex uint32) (*model.Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[charIndex]
	return e, ok
}

// AddGroundItem drops a stack at (mapID, x, y). Fails with ErrConflict
// if the tile already holds a stack — at most one ground stack per
// tile.
func (m *MapManager) AddGroundItem(mapID, x, y int32, item *model.GroundItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi := m.ensureMap(mapID)
	t := model.Tile{X: x, Y: y}
	if _, exists := mi.ground[t]; exists {
		return fmt.Errorf("dropping item at (%d,%d,%d): %w", mapID, x, y, model.ErrConflict)
	}
	mi.ground[t] = item
	return nil
}

// RemoveGroundItem deletes and returns the stack at (mapID, x, y), if
// any.
func (m *MapManager) RemoveGroundItem(mapID, x, y int32) (*model.GroundItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi := m.ensureMap(mapID)
	t := model.Tile{X: x, Y: y}
	item, ok := mi.ground[t]
	if ok {
		delete(mi.ground, t)
	}
	return item, ok
}

// GetGroundItem returns the stack at (mapID, x, y) without removing it.
func (m *MapManager) GetGroundItem(mapID, x, y int32) (*model.GroundItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi := m.ensureMap(mapID)
	item, ok := mi.ground[model.Tile{X: x, Y: y}]
	return item, ok
}

// SetDoorOpen opens or closes a door tile. No-op if the tile has no
// door registered.
func (m *MapManager) SetDoorOpen(mapID, x, y int32, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi := m.ensureMap(mapID)
	t := model.Tile{X: x, Y: y}
	if _, ok := mi.doorState[t]; ok {
		mi.doorState[t] = !open
	}
}

// Lock exposes the world lock for effects/handlers that need to run a
// read-then-write sequence spanning multiple MapManager calls atomically
// (e.g. tick effects). Callers must call Unlock exactly once and must
// not call back into any other MapManager method that itself locks.
func (m *MapManager) Lock() {
	m.mu.Lock()
}

// Unlock releases the world lock acquired by Lock.
func (m *MapManager) Unlock() {
	m.mu.Unlock()
}

// WithLock runs fn once under the world lock. Preferred over bare
// Lock/Unlock for anything that can be expressed as a single closure.
func (m *MapManager) WithLock(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}
