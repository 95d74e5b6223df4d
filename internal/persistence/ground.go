package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tilerealm/worldserver/internal/model"
)

// GroundRecord is one persisted ground stack, keyed by its tile.
type GroundRecord struct {
	Map, X, Y int32
	Item      model.GroundItem
}

// SaveGroundItem persists a dropped stack so restarts preserve the
// ground. The tile hash and its index-set entry are written in one
// pipelined round trip.
func SaveGroundItem(ctx context.Context, s Store, mapID, x, y int32, g *model.GroundItem) error {
	key := GroundItem(mapID, x, y)
	return s.Pipeline(ctx, func(p Pipeliner) error {
		p.HashSet(key, "item_id", strconv.FormatInt(int64(g.Stack.ItemID), 10))
		p.HashSet(key, "quantity", strconv.FormatInt(int64(g.Stack.Quantity), 10))
		p.HashSet(key, "dropped_at", strconv.FormatInt(g.DroppedAt.Unix(), 10))
		if g.OwnerUserID != 0 {
			p.HashSet(key, "owner", strconv.FormatInt(g.OwnerUserID, 10))
		}
		p.SetAdd(GroundIndex, groundMember(mapID, x, y))
		return nil
	})
}

// DeleteGroundItem removes a picked-up stack's persisted record.
func DeleteGroundItem(ctx context.Context, s Store, mapID, x, y int32) error {
	return s.Pipeline(ctx, func(p Pipeliner) error {
		p.Del(GroundItem(mapID, x, y))
		p.SetRemove(GroundIndex, groundMember(mapID, x, y))
		return nil
	})
}

// LoadGroundItems reads back every persisted ground stack for world
// rebuild at startup. Index members whose hash is gone or malformed
// are skipped rather than failing the whole load.
func LoadGroundItems(ctx context.Context, s Store) ([]GroundRecord, error) {
	members, err := s.SetMembers(ctx, GroundIndex)
	if err != nil {
		return nil, fmt.Errorf("reading ground index: %w", err)
	}

	records := make([]GroundRecord, 0, len(members))
	for _, m := range members {
		var mapID, x, y int32
		if _, err := fmt.Sscanf(m, "%d:%d:%d", &mapID, &x, &y); err != nil {
			continue
		}
		fields, err := s.HashGetAll(ctx, GroundItem(mapID, x, y))
		if err != nil {
			return nil, fmt.Errorf("reading ground item %s: %w", m, err)
		}
		qty, _ := strconv.ParseInt(fields["quantity"], 10, 32)
		if qty < 1 {
			continue
		}
		itemID, _ := strconv.ParseInt(fields["item_id"], 10, 32)
		droppedAt, _ := strconv.ParseInt(fields["dropped_at"], 10, 64)
		owner, _ := strconv.ParseInt(fields["owner"], 10, 64)
		records = append(records, GroundRecord{
			Map: mapID, X: x, Y: y,
			Item: model.GroundItem{
				Stack:       model.ItemStack{ItemID: int32(itemID), Quantity: int32(qty)},
				DroppedAt:   time.Unix(droppedAt, 0),
				OwnerUserID: owner,
			},
		})
	}
	return records, nil
}

func groundMember(mapID, x, y int32) string {
	return fmt.Sprintf("%d:%d:%d", mapID, x, y)
}

// SavePlayerState writes a player's position, vitals, and hunger/thirst
// back to their persisted hashes in one pipelined round trip. Called on
// disconnect so reconnection reads the latest state.
func SavePlayerState(ctx context.Context, s Store, p *model.Player) error {
	return s.Pipeline(ctx, func(pl Pipeliner) error {
		pos := PlayerPosition(p.UserID)
		pl.HashSet(pos, "map", strconv.FormatInt(int64(p.Location.Map), 10))
		pl.HashSet(pos, "x", strconv.FormatInt(int64(p.Location.X), 10))
		pl.HashSet(pos, "y", strconv.FormatInt(int64(p.Location.Y), 10))
		pl.HashSet(pos, "heading", strconv.FormatInt(int64(p.Location.Heading), 10))

		stats := PlayerStats(p.UserID)
		pl.HashSet(stats, "hp", strconv.FormatInt(int64(p.HP), 10))
		pl.HashSet(stats, "max_hp", strconv.FormatInt(int64(p.MaxHP), 10))
		pl.HashSet(stats, "mana", strconv.FormatInt(int64(p.Mana), 10))
		pl.HashSet(stats, "max_mana", strconv.FormatInt(int64(p.MaxMana), 10))
		pl.HashSet(stats, "stamina", strconv.FormatInt(int64(p.Stamina), 10))
		pl.HashSet(stats, "max_stamina", strconv.FormatInt(int64(p.MaxSt), 10))
		pl.HashSet(stats, "gold", strconv.FormatInt(p.Gold, 10))

		ht := PlayerHungerThirst(p.UserID)
		pl.HashSet(ht, "hunger", strconv.FormatInt(int64(p.Hunger), 10))
		pl.HashSet(ht, "thirst", strconv.FormatInt(int64(p.Thirst), 10))
		return nil
	})
}
