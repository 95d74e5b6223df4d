package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/BurntSushi/toml"
)

// LootEntry is one independently-rolled line of a loot table.
type LootEntry struct {
	ItemID    int32   `toml:"item_id"`
	ChancePct float64 `toml:"chance_pct"` // 0-100
	MinQty    int32   `toml:"min_qty"`
	MaxQty    int32   `toml:"max_qty"`
}

// LootTable is a named group of independently-rolled entries.
type LootTable struct {
	ID      int32       `toml:"id"`
	Entries []LootEntry `toml:"entry"`
}

// LootCatalog indexes every LootTable by ID.
type LootCatalog struct {
	Tables map[int32]LootTable
}

type lootFile struct {
	Table []LootTable `toml:"table"`
}

// LoadLoot parses a TOML loot table file.
func LoadLoot(path string) (*LootCatalog, error) {
	var f lootFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading loot catalog %s: %w", path, err)
	}
	cat := &LootCatalog{Tables: make(map[int32]LootTable, len(f.Table))}
	for _, t := range f.Table {
		cat.Tables[t.ID] = t
	}
	return cat, nil
}

// Drop is one resolved drop from rolling a loot table.
type Drop struct {
	ItemID   int32
	Quantity int32
}

// Roll evaluates every entry of table independently and returns the
// drops that hit.
func Roll(table LootTable) []Drop {
	var drops []Drop
	for _, e := range table.Entries {
		if rand.Float64()*100 >= e.ChancePct {
			continue
		}
		qty := e.MinQty
		if e.MaxQty > e.MinQty {
			qty += int32(rand.IntN(int(e.MaxQty-e.MinQty + 1)))
		}
		if qty <= 0 {
			qty = 1
		}
		drops = append(drops, Drop{ItemID: e.ItemID, Quantity: qty})
	}
	return drops
}
