package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/tilerealm/worldserver/internal/model"
)

// NPCTemplate is the static definition a spawned model.NPC is built
// from.
type NPCTemplate struct {
	ID              int32   `toml:"id"`
	Name            string  `toml:"name"`
	MaxHP           int32   `toml:"max_hp"`
	STR             int32   `toml:"str"`
	Defense         int32   `toml:"defense"`
	GoldMin         int32   `toml:"gold_min"`
	GoldMax         int32   `toml:"gold_max"`
	LootTable       int32   `toml:"loot_table"`
	Hostile         bool    `toml:"hostile"`
	Attackable      bool    `toml:"attackable"`
	Merchant        bool    `toml:"merchant"`
	Banker          bool    `toml:"banker"`
	Static          bool    `toml:"static"`
	AggroRange      int32   `toml:"aggro_range"`
	AttackCooldownS float64 `toml:"attack_cooldown_s"`
	RespawnDelayS   float64 `toml:"respawn_delay_s"`
}

// NPCCatalog indexes every NPCTemplate by ID.
type NPCCatalog struct {
	Templates map[int32]NPCTemplate
}

type npcFile struct {
	NPC []NPCTemplate `toml:"npc"`
}

// LoadNPCs parses a TOML NPC template table.
func LoadNPCs(path string) (*NPCCatalog, error) {
	var f npcFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading npc catalog %s: %w", path, err)
	}
	cat := &NPCCatalog{Templates: make(map[int32]NPCTemplate, len(f.NPC))}
	for _, n := range f.NPC {
		cat.Templates[n.ID] = n
	}
	return cat, nil
}

// Get returns the template for id, if present.
func (c *NPCCatalog) Get(id int32) (NPCTemplate, bool) {
	t, ok := c.Templates[id]
	return t, ok
}

// NewNPC instantiates tpl as a live NPC at loc with the given
// char_index. The initial tile becomes the spawn anchor that bounds
// random walk and receives the respawned instance.
func NewNPC(tpl NPCTemplate, charIndex uint32, loc model.Location) *model.NPC {
	return &model.NPC{
		CharIndex:       charIndex,
		TemplateID:      tpl.ID,
		Name:            tpl.Name,
		Location:        loc,
		Spawn:           loc.Tile(),
		HP:              tpl.MaxHP,
		MaxHP:           tpl.MaxHP,
		STR:             tpl.STR,
		Defense:         tpl.Defense,
		GoldMin:         tpl.GoldMin,
		GoldMax:         tpl.GoldMax,
		LootTable:       tpl.LootTable,
		Hostile:         tpl.Hostile,
		Attackable:      tpl.Attackable,
		Merchant:        tpl.Merchant,
		Banker:          tpl.Banker,
		Static:          tpl.Static,
		AggroRange:      tpl.AggroRange,
		AttackCooldownS: tpl.AttackCooldownS,
		RespawnDelayS:   tpl.RespawnDelayS,
	}
}
