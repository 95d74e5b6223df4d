// Package catalog loads the static, text-configured content tables:
// items, spells, NPC templates, loot tables, and map definitions. A
// malformed catalog file aborts startup; a missing map file degrades
// to an all-walkable default instead (see internal/world.NewMapDef).
package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ItemDef is one entry of the static item table.
type ItemDef struct {
	ID          int32  `toml:"id"`
	Name        string `toml:"name"`
	Stackable   bool   `toml:"stackable"`
	MaxQuantity int32  `toml:"max_quantity"`
	EquipSlot   int    `toml:"equip_slot"` // -1 if not equippable
}

// ItemCatalog indexes every ItemDef by ID.
type ItemCatalog struct {
	Items map[int32]ItemDef
}

type itemFile struct {
	Item []ItemDef `toml:"item"`
}

// LoadItems parses a TOML item table. A missing or malformed file is
// always an error here — unlike maps, items have no safe default.
func LoadItems(path string) (*ItemCatalog, error) {
	var f itemFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading item catalog %s: %w", path, err)
	}
	cat := &ItemCatalog{Items: make(map[int32]ItemDef, len(f.Item))}
	for _, it := range f.Item {
		cat.Items[it.ID] = it
	}
	return cat, nil
}

// Get returns the item definition for id, if present.
func (c *ItemCatalog) Get(id int32) (ItemDef, bool) {
	d, ok := c.Items[id]
	return d, ok
}
