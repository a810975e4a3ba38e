package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// Order records
// ============================================================================

// getOrder loads a resting order.
func (k Keeper) getOrder(ctx context.Context, vaultID, orderID uint64) (types.Order, error) {
	var order types.Order
	if orderID == 0 {
		return order, types.ErrOrderNotFound.Wrapf("vault %d order 0", vaultID)
	}
	found, err := k.getJSON(ctx, types.GetOrderKey(vaultID, orderID), &order)
	if err != nil {
		return order, err
	}
	if !found {
		return order, types.ErrOrderNotFound.Wrapf("vault %d order %d", vaultID, orderID)
	}
	return order, nil
}

func (k Keeper) setOrder(ctx context.Context, vaultID uint64, order types.Order) error {
	return k.setJSON(ctx, types.GetOrderKey(vaultID, order.ID), order)
}

func (k Keeper) getBookEnd(ctx context.Context, key []byte) uint64 {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return 0
	}
	return sdk.BigEndianToUint64(bz)
}

func (k Keeper) setBookEnd(ctx context.Context, key []byte, orderID uint64) {
	store := k.getStore(ctx)
	if orderID == 0 {
		store.Delete(key)
		return
	}
	store.Set(key, sdk.Uint64ToBigEndian(orderID))
}

func (k Keeper) head(ctx context.Context, vaultID uint64, side types.Side) uint64 {
	return k.getBookEnd(ctx, types.GetBookHeadKey(vaultID, side))
}

func (k Keeper) tail(ctx context.Context, vaultID uint64, side types.Side) uint64 {
	return k.getBookEnd(ctx, types.GetBookTailKey(vaultID, side))
}

// ============================================================================
// Aggregates
// ============================================================================

func (k Keeper) addLiquidity(ctx context.Context, vaultID uint64, side types.Side, price, amount math.Int) error {
	if _, err := k.addInt(ctx, types.GetPricePointKey(vaultID, side, price), amount); err != nil {
		return err
	}
	_, err := k.addInt(ctx, types.GetTotalLiquidityKey(vaultID, side), amount)
	return err
}

// subLiquidity decrements the price point, deleting it when it reaches zero.
func (k Keeper) subLiquidity(ctx context.Context, vaultID uint64, side types.Side, price, amount math.Int) error {
	if _, err := k.subInt(ctx, types.GetPricePointKey(vaultID, side, price), amount, false); err != nil {
		return err
	}
	_, err := k.subInt(ctx, types.GetTotalLiquidityKey(vaultID, side), amount, false)
	return err
}

func (k Keeper) addVolume(ctx context.Context, vaultID uint64, side types.Side, price, amount math.Int) error {
	if _, err := k.addInt(ctx, types.GetVolumeKey(vaultID, side, price), amount); err != nil {
		return err
	}
	_, err := k.addInt(ctx, types.GetTotalVolumeKey(vaultID, side), amount)
	return err
}

// ============================================================================
// Sorted list maintenance
// ============================================================================

// insertOrder lists a new order in its sorted slot and returns it. The vault's
// order counter is advanced in place; the caller persists the vault.
func (k Keeper) insertOrder(
	ctx context.Context,
	vault *types.Vault,
	side types.Side,
	price, amount math.Int,
	beneficiary sdk.AccAddress,
	hint uint64,
) (types.Order, error) {
	order := types.Order{
		ID:          vault.NextOrderID,
		Token:       vault.Token(side),
		Price:       price,
		Amount:      amount,
		Beneficiary: beneficiary.String(),
	}
	vault.NextOrderID++

	prevID, err := k.findSlot(ctx, vault.ID, side, order.Token, price, hint)
	if err != nil {
		return types.Order{}, err
	}
	if err := k.link(ctx, vault.ID, side, &order, prevID); err != nil {
		return types.Order{}, err
	}
	if err := k.addLiquidity(ctx, vault.ID, side, price, amount); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

// findSlot returns the id of the order the new order goes after, or 0 for the
// head. A new order always carries the largest id, so its slot follows the last
// order whose price is <= price.
func (k Keeper) findSlot(ctx context.Context, vaultID uint64, side types.Side, token string, price math.Int, hint uint64) (uint64, error) {
	headID := k.head(ctx, vaultID, side)
	if headID == 0 {
		return 0, nil
	}
	tailOrder, err := k.getOrder(ctx, vaultID, k.tail(ctx, vaultID, side))
	if err != nil {
		return 0, err
	}
	if price.GTE(tailOrder.Price) {
		return tailOrder.ID, nil
	}
	headOrder, err := k.getOrder(ctx, vaultID, headID)
	if err != nil {
		return 0, err
	}
	if price.LT(headOrder.Price) {
		return 0, nil
	}

	// head.Price <= price < tail.Price from here on.
	start := headOrder
	if hint != 0 {
		if hinted, err := k.getOrder(ctx, vaultID, hint); err == nil && hinted.Token == token {
			start = hinted
		}
	}
	if start.ID == headOrder.ID && price.Sub(headOrder.Price).GT(tailOrder.Price.Sub(price)) {
		start = tailOrder
	}

	cur := start
	if cur.Price.LTE(price) {
		for cur.Next != 0 {
			next, err := k.getOrder(ctx, vaultID, cur.Next)
			if err != nil {
				return 0, err
			}
			if next.Price.GT(price) {
				break
			}
			cur = next
		}
		return cur.ID, nil
	}
	for cur.Price.GT(price) {
		if cur.Prev == 0 {
			return 0, nil
		}
		prev, err := k.getOrder(ctx, vaultID, cur.Prev)
		if err != nil {
			return 0, err
		}
		cur = prev
	}
	return cur.ID, nil
}

// link splices order in after prevID (0 = at the head) and stores it.
func (k Keeper) link(ctx context.Context, vaultID uint64, side types.Side, order *types.Order, prevID uint64) error {
	var nextID uint64
	if prevID == 0 {
		nextID = k.head(ctx, vaultID, side)
		k.setBookEnd(ctx, types.GetBookHeadKey(vaultID, side), order.ID)
	} else {
		prev, err := k.getOrder(ctx, vaultID, prevID)
		if err != nil {
			return err
		}
		nextID = prev.Next
		prev.Next = order.ID
		if err := k.setOrder(ctx, vaultID, prev); err != nil {
			return err
		}
	}

	if nextID == 0 {
		k.setBookEnd(ctx, types.GetBookTailKey(vaultID, side), order.ID)
	} else {
		next, err := k.getOrder(ctx, vaultID, nextID)
		if err != nil {
			return err
		}
		next.Prev = order.ID
		if err := k.setOrder(ctx, vaultID, next); err != nil {
			return err
		}
	}

	order.Prev = prevID
	order.Next = nextID
	return k.setOrder(ctx, vaultID, *order)
}

// unlink detaches order from its neighbours and the book ends.
func (k Keeper) unlink(ctx context.Context, vaultID uint64, side types.Side, order types.Order) error {
	if order.Prev == 0 {
		k.setBookEnd(ctx, types.GetBookHeadKey(vaultID, side), order.Next)
	} else {
		prev, err := k.getOrder(ctx, vaultID, order.Prev)
		if err != nil {
			return err
		}
		prev.Next = order.Next
		if err := k.setOrder(ctx, vaultID, prev); err != nil {
			return err
		}
	}
	if order.Next == 0 {
		k.setBookEnd(ctx, types.GetBookTailKey(vaultID, side), order.Prev)
	} else {
		next, err := k.getOrder(ctx, vaultID, order.Next)
		if err != nil {
			return err
		}
		next.Prev = order.Prev
		if err := k.setOrder(ctx, vaultID, next); err != nil {
			return err
		}
	}
	return nil
}

// removeOrder delists an order entirely: links, aggregates and ownership state.
func (k Keeper) removeOrder(ctx context.Context, vaultID uint64, side types.Side, order types.Order) error {
	if err := k.unlink(ctx, vaultID, side, order); err != nil {
		return err
	}
	if err := k.subLiquidity(ctx, vaultID, side, order.Price, order.Amount); err != nil {
		return err
	}
	k.getStore(ctx).Delete(types.GetOrderKey(vaultID, order.ID))
	k.clearOwnership(ctx, vaultID, order.ID)
	return nil
}

// shrinkOrder takes delta off an order, removing it when nothing would remain.
// It reports whether the order was removed.
func (k Keeper) shrinkOrder(ctx context.Context, vaultID uint64, side types.Side, order types.Order, delta math.Int) (bool, error) {
	if delta.GT(order.Amount) {
		return false, types.ErrInvalidAmount.Wrapf("order %d holds %s, cannot take %s", order.ID, order.Amount, delta)
	}
	if delta.Equal(order.Amount) {
		return true, k.removeOrder(ctx, vaultID, side, order)
	}
	order.Amount = order.Amount.Sub(delta)
	if err := k.setOrder(ctx, vaultID, order); err != nil {
		return false, err
	}
	return false, k.subLiquidity(ctx, vaultID, side, order.Price, delta)
}

// appendOrder links an order at the tail without searching. Genesis import uses
// it with orders already in book order.
func (k Keeper) appendOrder(ctx context.Context, vaultID uint64, side types.Side, order types.Order) error {
	if err := k.link(ctx, vaultID, side, &order, k.tail(ctx, vaultID, side)); err != nil {
		return err
	}
	return k.addLiquidity(ctx, vaultID, side, order.Price, order.Amount)
}

// iterateBook walks a book from the head until cb returns true.
func (k Keeper) iterateBook(ctx context.Context, vaultID uint64, side types.Side, cb func(types.Order) (stop bool, err error)) error {
	id := k.head(ctx, vaultID, side)
	for id != 0 {
		order, err := k.getOrder(ctx, vaultID, id)
		if err != nil {
			return err
		}
		stop, err := cb(order)
		if err != nil || stop {
			return err
		}
		id = order.Next
	}
	return nil
}
