package keeper

import (
	"context"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// FirstOrder returns the id of the cheapest order of token, 0 when the book is empty.
func (k Keeper) FirstOrder(ctx context.Context, vaultID uint64, token string) (uint64, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return 0, err
	}
	return k.head(ctx, vaultID, side), nil
}

// LastOrder returns the id of the most expensive order of token, 0 when empty.
func (k Keeper) LastOrder(ctx context.Context, vaultID uint64, token string) (uint64, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return 0, err
	}
	return k.tail(ctx, vaultID, side), nil
}

// OrdersPage returns up to limit orders of token in book order, skipping the
// first offset.
func (k Keeper) OrdersPage(ctx context.Context, vaultID uint64, token string, offset, limit uint64) ([]types.Order, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return nil, err
	}
	orders := make([]types.Order, 0)
	if limit == 0 {
		return orders, nil
	}
	var idx uint64
	err = k.iterateBook(ctx, vaultID, side, func(order types.Order) (bool, error) {
		if idx >= offset {
			orders = append(orders, order)
		}
		idx++
		return uint64(len(orders)) >= limit, nil
	})
	return orders, err
}

// Prices returns up to limit distinct price levels of token, ascending,
// skipping the first offset.
func (k Keeper) Prices(ctx context.Context, vaultID uint64, token string, offset, limit uint64) ([]math.Int, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return nil, err
	}
	prices := make([]math.Int, 0)
	if limit == 0 {
		return prices, nil
	}
	prefix := types.GetPricePointPrefix(vaultID, side)
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
	defer iter.Close()

	var idx uint64
	for ; iter.Valid() && uint64(len(prices)) < limit; iter.Next() {
		if idx >= offset {
			prices = append(prices, types.DecodePrice(iter.Key()[len(prefix):]))
		}
		idx++
	}
	return prices, nil
}

// Liquidity returns the resting amount of token at price.
func (k Keeper) Liquidity(ctx context.Context, vaultID uint64, token string, price math.Int) (math.Int, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	return k.getInt(ctx, types.GetPricePointKey(vaultID, side, price))
}

// TotalLiquidity returns the resting amount of token over all prices.
func (k Keeper) TotalLiquidity(ctx context.Context, vaultID uint64, token string) (math.Int, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	return k.getInt(ctx, types.GetTotalLiquidityKey(vaultID, side))
}

// Volume returns the amount of token ever filled at price.
func (k Keeper) Volume(ctx context.Context, vaultID uint64, token string, price math.Int) (math.Int, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	return k.getInt(ctx, types.GetVolumeKey(vaultID, side, price))
}

// TotalVolume returns the amount of token ever filled.
func (k Keeper) TotalVolume(ctx context.Context, vaultID uint64, token string) (math.Int, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	return k.getInt(ctx, types.GetTotalVolumeKey(vaultID, side))
}

// OrderInfo returns a resting order with its current owner and approval.
func (k Keeper) OrderInfo(ctx context.Context, vaultID, orderID uint64) (types.OrderInfo, error) {
	if _, err := k.mustGetVault(ctx, vaultID); err != nil {
		return types.OrderInfo{}, err
	}
	order, err := k.getOrder(ctx, vaultID, orderID)
	if err != nil {
		return types.OrderInfo{}, err
	}
	owner, err := k.OwnerOf(ctx, vaultID, orderID)
	if err != nil {
		return types.OrderInfo{}, err
	}
	info := types.OrderInfo{Order: order, Owner: owner.String()}
	if approved := k.getAddress(ctx, types.GetOrderApprovalKey(vaultID, orderID)); approved != nil {
		info.Approved = approved.String()
	}
	return info, nil
}

// TraderBalances returns every non-zero withdrawable balance of trader across vaults.
func (k Keeper) TraderBalances(ctx context.Context, trader sdk.AccAddress) ([]types.VaultBalance, error) {
	var balances []types.VaultBalance
	err := k.IterateVaults(ctx, func(vault types.Vault) (bool, error) {
		for _, side := range []types.Side{types.Side0, types.Side1} {
			bal, err := k.traderBalance(ctx, vault.ID, side, trader)
			if err != nil {
				return true, err
			}
			if bal.IsPositive() {
				balances = append(balances, types.VaultBalance{
					VaultID: vault.ID,
					Token:   vault.Token(side),
					Balance: bal,
				})
			}
		}
		return false, nil
	})
	return balances, err
}

// OpenOrdersOf returns every resting order owned by owner across vaults.
func (k Keeper) OpenOrdersOf(ctx context.Context, owner sdk.AccAddress) ([]types.VaultOrder, error) {
	var orders []types.VaultOrder
	err := k.IterateVaults(ctx, func(vault types.Vault) (bool, error) {
		for _, id := range k.OrdersOf(ctx, vault.ID, owner) {
			info, err := k.OrderInfo(ctx, vault.ID, id)
			if err != nil {
				return true, err
			}
			orders = append(orders, types.VaultOrder{VaultID: vault.ID, OrderInfo: info})
		}
		return false, nil
	})
	return orders, err
}
