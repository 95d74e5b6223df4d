// Package commerce implements player-to-NPC trading and the vault
// deposit path, following the deposit-first, remove-second,
// rollback-on-failure discipline every value transfer uses. No vault
// withdraw operation is implemented.
package commerce

import (
	"context"
	"fmt"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/persistence"
)

// Locker serializes live player mutations against command handlers and
// tick effects. Satisfied by *world.MapManager; every gold/inventory
// mutation in this package runs under it.
type Locker interface {
	WithLock(fn func())
}

// Buy transfers price gold from buyer to the merchant (implicit, not
// tracked) and gives buyer one unit of itemID, deposit-first: the item
// is credited to inventory before gold is debited, so a mid-transfer
// crash leaves the player richer in items rather than poorer in gold
// with nothing to show for it — compensated by removing the item again
// if the gold debit fails. The whole check-credit-debit sequence runs
// under the world lock: every closure is an in-memory mutation, so
// holding the lock across the Transfer keeps the transaction atomic
// without ever blocking on I/O while locked.
func Buy(ctx context.Context, store persistence.Store, world Locker, buyer *model.Player, itemID, price int32) error {
	var err error
	world.WithLock(func() {
		if buyer.Gold < int64(price) {
			err = fmt.Errorf("insufficient gold: have %d, need %d: %w", buyer.Gold, price, model.ErrPreconditionFailed)
			return
		}

		var creditedSlot = -1
		deposit := func(ctx context.Context) error {
			slot, ok := firstFreeSlot(buyer)
			if !ok {
				return fmt.Errorf("inventory full: %w", model.ErrPreconditionFailed)
			}
			buyer.Inventory[slot] = &model.ItemStack{ItemID: itemID, Quantity: 1}
			creditedSlot = slot
			return nil
		}
		removeGold := func(ctx context.Context) error {
			buyer.Gold -= int64(price)
			return nil
		}
		compensate := func(ctx context.Context) error {
			if creditedSlot >= 0 {
				buyer.Inventory[creditedSlot] = nil
			}
			return nil
		}

		err = persistence.Transfer(ctx, deposit, removeGold, compensate)
	})
	return err
}

// Sell removes one unit of the stack at slot from seller's inventory
// and credits its sale value in gold, atomically under the world lock
// like Buy.
func Sell(ctx context.Context, world Locker, seller *model.Player, slot int, value int32) error {
	if slot < 0 || slot >= model.InventorySlots {
		return fmt.Errorf("slot %d out of range: %w", slot, model.ErrInvalidArgument)
	}

	var err error
	world.WithLock(func() {
		stack := seller.Inventory[slot]
		if stack == nil {
			err = fmt.Errorf("slot %d is empty: %w", slot, model.ErrPreconditionFailed)
			return
		}

		var creditedGold bool
		deposit := func(ctx context.Context) error {
			seller.Gold += int64(value)
			creditedGold = true
			return nil
		}
		removeItem := func(ctx context.Context) error {
			if _, ok := stack.Split(1); ok {
				if stack.Quantity == 0 {
					seller.Inventory[slot] = nil
				}
				return nil
			}
			return fmt.Errorf("removing sold item: %w", model.ErrInternal)
		}
		compensate := func(ctx context.Context) error {
			if creditedGold {
				seller.Gold -= int64(value)
			}
			return nil
		}

		err = persistence.Transfer(ctx, deposit, removeItem, compensate)
	})
	return err
}

// DepositToVault moves the stack in the player's inventory slot to
// their bank vault record in persistence. The store writes happen
// outside the world lock; only the in-memory snapshot and removal
// take it.
func DepositToVault(ctx context.Context, store persistence.Store, world Locker, userID int64, slot int, owner *model.Player) error {
	var itemID, quantity int32
	world.WithLock(func() {
		if s := owner.Inventory[slot]; s != nil {
			itemID, quantity = s.ItemID, s.Quantity
		}
	})
	if quantity == 0 {
		return fmt.Errorf("slot %d is empty: %w", slot, model.ErrPreconditionFailed)
	}

	key, field := persistence.BankVault(userID), fmt.Sprintf("%d", itemID)
	var prev int64
	deposit := func(ctx context.Context) error {
		cur, ok, err := store.HashGet(ctx, key, field)
		if err != nil {
			return err
		}
		if ok {
			if _, err := fmt.Sscan(cur, &prev); err != nil {
				return fmt.Errorf("vault entry %s/%s is malformed: %w", key, field, model.ErrInternal)
			}
		}
		return store.HashSet(ctx, key, field, fmt.Sprintf("%d", prev+int64(quantity)))
	}
	removeFromInventory := func(ctx context.Context) error {
		world.WithLock(func() {
			owner.Inventory[slot] = nil
		})
		return nil
	}
	compensate := func(ctx context.Context) error {
		if prev == 0 {
			return store.HashDel(ctx, key, field)
		}
		return store.HashSet(ctx, key, field, fmt.Sprintf("%d", prev))
	}

	return persistence.Transfer(ctx, deposit, removeFromInventory, compensate)
}

func firstFreeSlot(p *model.Player) (int, bool) {
	for i, s := range p.Inventory {
		if s == nil {
			return i, true
		}
	}
	return 0, false
}
