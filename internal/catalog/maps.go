package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

// mapFile is the on-disk TOML shape of one map's data/maps/<id>.toml.
// Rows is exactly 100 strings of 100 characters; '#' marks a blocked
// tile, anything else is walkable.
type mapFile struct {
	ID       int32        `toml:"id"`
	Name     string       `toml:"name"`
	SoundID  int32        `toml:"sound_id"`
	SafeZone bool         `toml:"safe_zone"`
	Rows     []string     `toml:"rows"`
	Exit     []exitEntry  `toml:"exit"`
	Door     []doorEntry  `toml:"door"`
	Sign     []signEntry  `toml:"sign"`
	Spawn    []spawnEntry `toml:"spawn"`
}

type exitEntry struct {
	X       int32 `toml:"x"`
	Y       int32 `toml:"y"`
	DestMap int32 `toml:"dest_map"`
	DestX   int32 `toml:"dest_x"`
	DestY   int32 `toml:"dest_y"`
}

type doorEntry struct {
	X      int32 `toml:"x"`
	Y      int32 `toml:"y"`
	Closed bool  `toml:"closed"`
}

type signEntry struct {
	X    int32  `toml:"x"`
	Y    int32  `toml:"y"`
	Text string `toml:"text"`
}

type spawnEntry struct {
	NPC int32 `toml:"npc"`
	X   int32 `toml:"x"`
	Y   int32 `toml:"y"`
}

// LoadMap parses a single map's TOML file into a *world.MapDef. A
// malformed file is always an error — only an absent file degrades
// gracefully, and that fallback lives in world.NewMapDef, not here.
func LoadMap(path string) (*world.MapDef, error) {
	var f mapFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading map catalog %s: %w", path, err)
	}

	def := world.NewMapDef(f.ID)
	def.Name = f.Name
	def.SoundID = f.SoundID
	def.SafeZone = f.SafeZone

	if len(f.Rows) > 0 {
		if len(f.Rows) != 100 {
			return nil, fmt.Errorf("map catalog %s: expected 100 rows, got %d", path, len(f.Rows))
		}
		for y, row := range f.Rows {
			if len(row) != 100 {
				return nil, fmt.Errorf("map catalog %s: row %d has length %d, want 100", path, y+1, len(row))
			}
			for x, c := range row {
				def.Blocked[x][y] = c == '#'
			}
		}
	}

	for _, e := range f.Exit {
		def.Exits[model.Tile{X: e.X, Y: e.Y}] = world.Exit{DestMap: e.DestMap, DestX: e.DestX, DestY: e.DestY}
	}
	for _, d := range f.Door {
		def.Doors[model.Tile{X: d.X, Y: d.Y}] = d.Closed
	}
	for _, s := range f.Sign {
		def.Signs[model.Tile{X: s.X, Y: s.Y}] = s.Text
	}
	for _, sp := range f.Spawn {
		def.Spawns = append(def.Spawns, world.SpawnPoint{TemplateID: sp.NPC, X: sp.X, Y: sp.Y})
	}

	return def, nil
}
