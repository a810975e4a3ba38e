package keeper

import (
	"context"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// Ownership of an order is independent of its beneficiary: the owner may cancel
// or transfer it, while proceeds of fills always go to the beneficiary fixed at
// creation.

func (k Keeper) getAddress(ctx context.Context, key []byte) sdk.AccAddress {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return nil
	}
	return sdk.AccAddress(bz)
}

// setOwner assigns an order to owner and keeps the owner index in step.
func (k Keeper) setOwner(ctx context.Context, vaultID, orderID uint64, owner sdk.AccAddress) {
	store := k.getStore(ctx)
	if prev := k.getAddress(ctx, types.GetOrderOwnerKey(vaultID, orderID)); prev != nil {
		store.Delete(types.GetOwnerIndexKey(vaultID, prev, orderID))
	}
	store.Set(types.GetOrderOwnerKey(vaultID, orderID), owner.Bytes())
	store.Set(types.GetOwnerIndexKey(vaultID, owner, orderID), []byte{1})
}

func (k Keeper) setApproved(ctx context.Context, vaultID, orderID uint64, spender sdk.AccAddress) {
	store := k.getStore(ctx)
	if spender.Empty() {
		store.Delete(types.GetOrderApprovalKey(vaultID, orderID))
		return
	}
	store.Set(types.GetOrderApprovalKey(vaultID, orderID), spender.Bytes())
}

func (k Keeper) setOperator(ctx context.Context, vaultID uint64, owner, operator sdk.AccAddress, approved bool) {
	store := k.getStore(ctx)
	key := types.GetOperatorKey(vaultID, owner, operator)
	if approved {
		store.Set(key, []byte{1})
		return
	}
	store.Delete(key)
}

// clearOwnership drops owner, approval and owner index entries of a removed order.
func (k Keeper) clearOwnership(ctx context.Context, vaultID, orderID uint64) {
	store := k.getStore(ctx)
	if owner := k.getAddress(ctx, types.GetOrderOwnerKey(vaultID, orderID)); owner != nil {
		store.Delete(types.GetOwnerIndexKey(vaultID, owner, orderID))
	}
	store.Delete(types.GetOrderOwnerKey(vaultID, orderID))
	store.Delete(types.GetOrderApprovalKey(vaultID, orderID))
}

// OwnerOf returns the current owner of a resting order.
func (k Keeper) OwnerOf(ctx context.Context, vaultID, orderID uint64) (sdk.AccAddress, error) {
	owner := k.getAddress(ctx, types.GetOrderOwnerKey(vaultID, orderID))
	if owner == nil {
		return nil, types.ErrOrderNotFound.Wrapf("vault %d order %d", vaultID, orderID)
	}
	return owner, nil
}

// GetApproved returns the single approved spender of an order, nil when none.
func (k Keeper) GetApproved(ctx context.Context, vaultID, orderID uint64) (sdk.AccAddress, error) {
	if _, err := k.OwnerOf(ctx, vaultID, orderID); err != nil {
		return nil, err
	}
	return k.getAddress(ctx, types.GetOrderApprovalKey(vaultID, orderID)), nil
}

// IsApprovedForAll reports whether operator may act on every order of owner.
func (k Keeper) IsApprovedForAll(ctx context.Context, vaultID uint64, owner, operator sdk.AccAddress) bool {
	return k.getStore(ctx).Has(types.GetOperatorKey(vaultID, owner, operator))
}

// IsAllowed reports whether caller may cancel or transfer an order: the owner,
// the approved spender, an operator of the owner, or the vault router.
func (k Keeper) IsAllowed(ctx context.Context, vaultID uint64, caller sdk.AccAddress, orderID uint64) (bool, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return false, err
	}
	return k.isAllowed(ctx, vault, caller, orderID)
}

func (k Keeper) isAllowed(ctx context.Context, vault types.Vault, caller sdk.AccAddress, orderID uint64) (bool, error) {
	owner, err := k.OwnerOf(ctx, vault.ID, orderID)
	if err != nil {
		return false, err
	}
	if caller.Equals(owner) {
		return true, nil
	}
	if approved := k.getAddress(ctx, types.GetOrderApprovalKey(vault.ID, orderID)); approved != nil && caller.Equals(approved) {
		return true, nil
	}
	if k.IsApprovedForAll(ctx, vault.ID, owner, caller) {
		return true, nil
	}
	// The router is the one identity allowed on every order.
	return vault.IsRouter(caller), nil
}

// OrderCountOf returns how many resting orders owner holds in a vault.
func (k Keeper) OrderCountOf(ctx context.Context, vaultID uint64, owner sdk.AccAddress) uint64 {
	var n uint64
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.GetOwnerIndexPrefix(vaultID, owner))
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		n++
	}
	return n
}

// OrdersOf returns the ids of the resting orders owner holds in a vault, ascending.
func (k Keeper) OrdersOf(ctx context.Context, vaultID uint64, owner sdk.AccAddress) []uint64 {
	prefix := types.GetOwnerIndexPrefix(vaultID, owner)
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
	defer iter.Close()

	var ids []uint64
	for ; iter.Valid(); iter.Next() {
		ids = append(ids, sdk.BigEndianToUint64(iter.Key()[len(prefix):]))
	}
	return ids
}

// Approve sets the single approved spender of an order. Only the owner or an
// operator of the owner may approve; an empty spender clears the approval.
func (k Keeper) Approve(ctx context.Context, caller sdk.AccAddress, vaultID uint64, spender sdk.AccAddress, orderID uint64) error {
	return k.atomic(ctx, vaultID, "approve", func(ctx sdk.Context) error {
		if _, err := k.mustGetVault(ctx, vaultID); err != nil {
			return err
		}
		owner, err := k.OwnerOf(ctx, vaultID, orderID)
		if err != nil {
			return err
		}
		if !caller.Equals(owner) && !k.IsApprovedForAll(ctx, vaultID, owner, caller) {
			return types.ErrNotOwner.Wrapf("%s on order %d", caller, orderID)
		}
		k.setApproved(ctx, vaultID, orderID, spender)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOrderApproved,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyOwner, owner.String()),
				sdk.NewAttribute(types.AttributeKeyApproved, spender.String()),
				sdk.NewAttribute(types.AttributeKeyOrderID, fmt.Sprintf("%d", orderID)),
			),
		)
		return nil
	})
}

// SetApprovalForAll grants or revokes operator rights over all orders of caller.
func (k Keeper) SetApprovalForAll(ctx context.Context, caller sdk.AccAddress, vaultID uint64, operator sdk.AccAddress, approved bool) error {
	return k.atomic(ctx, vaultID, "set_approval_for_all", func(ctx sdk.Context) error {
		if _, err := k.mustGetVault(ctx, vaultID); err != nil {
			return err
		}
		if operator.Empty() || operator.Equals(caller) {
			return types.ErrInvalidAddress.Wrap("operator must be a different account")
		}
		k.setOperator(ctx, vaultID, caller, operator, approved)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeApprovalForAll,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyOwner, caller.String()),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
				sdk.NewAttribute(types.AttributeKeyApproved, fmt.Sprintf("%t", approved)),
			),
		)
		return nil
	})
}

// TransferOrder hands ownership of an order to another account. The escrowed
// tokens and the beneficiary stay as they are; the single approval is cleared.
func (k Keeper) TransferOrder(ctx context.Context, caller sdk.AccAddress, vaultID uint64, to sdk.AccAddress, orderID uint64) error {
	return k.atomic(ctx, vaultID, "transfer", func(ctx sdk.Context) error {
		vault, err := k.mustGetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if to.Empty() {
			return types.ErrInvalidAddress.Wrap("transfer to the empty address")
		}
		allowed, err := k.isAllowed(ctx, vault, caller, orderID)
		if err != nil {
			return err
		}
		if !allowed {
			return types.ErrNotAllowed.Wrapf("%s on order %d", caller, orderID)
		}
		from, err := k.OwnerOf(ctx, vaultID, orderID)
		if err != nil {
			return err
		}
		k.setApproved(ctx, vaultID, orderID, nil)
		k.setOwner(ctx, vaultID, orderID, to)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOrderTransferred,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyFrom, from.String()),
				sdk.NewAttribute(types.AttributeKeyTo, to.String()),
				sdk.NewAttribute(types.AttributeKeyOrderID, fmt.Sprintf("%d", orderID)),
			),
		)
		return nil
	})
}
