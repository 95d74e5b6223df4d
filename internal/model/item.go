package model

import "time"

// ItemStack is one stack of a single item type. Quantity is always
// ≥1 (invariant: ground-item stacks never reach zero — removal deletes
// the stack instead of leaving a zero-quantity entry).
type ItemStack struct {
	ItemID   int32
	Quantity int32
	Enchant  int32
}

// Split removes q from the stack and returns a new stack holding q, or
// (nil, false) if q exceeds the available quantity. The receiver's
// quantity is reduced in place; callers are expected to delete the
// receiver entirely if it reaches zero.
func (s *ItemStack) Split(q int32) (*ItemStack, bool) {
	if q <= 0 || q > s.Quantity {
		return nil, false
	}
	s.Quantity -= q
	return &ItemStack{ItemID: s.ItemID, Quantity: q, Enchant: s.Enchant}, true
}

// GroundItem is a dropped stack sitting on a tile, at most one per
// tile. OwnerUserID is 0 for a public drop, or the killer's
// user id for a short ownership window (catalog-defined, out of core
// scope — the core just carries the field).
type GroundItem struct {
	Stack       ItemStack
	DroppedAt   time.Time
	OwnerUserID int64
}
