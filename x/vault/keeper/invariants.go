package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// RegisterInvariants registers all vault invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "sorted-books", SortedBooksInvariant(k))
	ir.RegisterRoute(types.ModuleName, "price-points", PricePointsInvariant(k))
	ir.RegisterRoute(types.ModuleName, "escrow-solvency", EscrowSolvencyInvariant(k))
}

// AllInvariants runs all invariants of the vault module
func AllInvariants(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		res, stop := SortedBooksInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		res, stop = PricePointsInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		return EscrowSolvencyInvariant(k)(ctx)
	}
}

// SortedBooksInvariant checks that every book is a well linked list strictly
// ascending by (price, id) with no empty orders.
func SortedBooksInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		vaults, err := k.Vaults(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "sorted-books", err.Error()), true
		}
		for _, vault := range vaults {
			for _, side := range []types.Side{types.Side0, types.Side1} {
				var (
					prev  *types.Order
					steps uint64
				)
				err := k.iterateBook(ctx, vault.ID, side, func(order types.Order) (bool, error) {
					if order.Token != vault.Token(side) {
						count++
						msg += fmt.Sprintf("vault %d %s: order %d lists %s\n", vault.ID, side, order.ID, order.Token)
					}
					if !order.Amount.IsPositive() {
						count++
						msg += fmt.Sprintf("vault %d %s: order %d has amount %s\n", vault.ID, side, order.ID, order.Amount)
					}
					if order.ID >= vault.NextOrderID {
						count++
						msg += fmt.Sprintf("vault %d %s: order %d not below next id %d\n", vault.ID, side, order.ID, vault.NextOrderID)
					}
					if prev == nil {
						if order.Prev != 0 {
							count++
							msg += fmt.Sprintf("vault %d %s: head %d has prev %d\n", vault.ID, side, order.ID, order.Prev)
						}
					} else {
						if order.Prev != prev.ID {
							count++
							msg += fmt.Sprintf("vault %d %s: order %d prev %d, expected %d\n", vault.ID, side, order.ID, order.Prev, prev.ID)
						}
						if !prev.Before(order) {
							count++
							msg += fmt.Sprintf("vault %d %s: order %d out of order after %d\n", vault.ID, side, order.ID, prev.ID)
						}
					}
					o := order
					prev = &o
					steps++
					if steps >= vault.NextOrderID {
						count++
						msg += fmt.Sprintf("vault %d %s: list longer than ids issued, cycle at %d\n", vault.ID, side, order.ID)
						return true, nil
					}
					return false, nil
				})
				if err != nil {
					count++
					msg += fmt.Sprintf("vault %d %s: %s\n", vault.ID, side, err)
					continue
				}
				tail := k.tail(ctx, vault.ID, side)
				if (prev == nil && tail != 0) || (prev != nil && prev.ID != tail) {
					count++
					msg += fmt.Sprintf("vault %d %s: tail %d does not end the list\n", vault.ID, side, tail)
				}
			}
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "sorted-books",
			fmt.Sprintf("found %d book inconsistencies\n%s", count, msg),
		), broken
	}
}

// PricePointsInvariant checks that price point and total liquidity aggregates
// match the resting orders.
func PricePointsInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		vaults, err := k.Vaults(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "price-points", err.Error()), true
		}
		for _, vault := range vaults {
			for _, side := range []types.Side{types.Side0, types.Side1} {
				expected := make(map[string]math.Int)
				total := math.ZeroInt()
				err := k.iterateBook(ctx, vault.ID, side, func(order types.Order) (bool, error) {
					key := order.Price.String()
					cur, ok := expected[key]
					if !ok {
						cur = math.ZeroInt()
					}
					expected[key] = cur.Add(order.Amount)
					total = total.Add(order.Amount)
					return false, nil
				})
				if err != nil {
					count++
					msg += fmt.Sprintf("vault %d %s: %s\n", vault.ID, side, err)
					continue
				}

				prefix := types.GetPricePointPrefix(vault.ID, side)
				iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
				seen := 0
				for ; iter.Valid(); iter.Next() {
					price := types.DecodePrice(iter.Key()[len(prefix):])
					var liquidity math.Int
					if err := liquidity.Unmarshal(iter.Value()); err != nil {
						count++
						msg += fmt.Sprintf("vault %d %s: bad price point at %s\n", vault.ID, side, price)
						continue
					}
					seen++
					want, ok := expected[price.String()]
					if !ok || !want.Equal(liquidity) {
						count++
						msg += fmt.Sprintf("vault %d %s: liquidity at %s is %s, orders hold %v\n", vault.ID, side, price, liquidity, want)
					}
				}
				iter.Close()
				if seen != len(expected) {
					count++
					msg += fmt.Sprintf("vault %d %s: %d price points for %d prices\n", vault.ID, side, seen, len(expected))
				}

				stored, err := k.getInt(ctx, types.GetTotalLiquidityKey(vault.ID, side))
				if err != nil || !stored.Equal(total) {
					count++
					msg += fmt.Sprintf("vault %d %s: total liquidity %s, orders hold %s\n", vault.ID, side, stored, total)
				}
			}
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "price-points",
			fmt.Sprintf("found %d aggregate mismatches\n%s", count, msg),
		), broken
	}
}

// EscrowSolvencyInvariant checks that the module account holds at least the
// resting liquidity plus the withdrawable trader balances of every denom.
func EscrowSolvencyInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		owed := make(map[string]math.Int)
		add := func(denom string, amt math.Int) {
			cur, ok := owed[denom]
			if !ok {
				cur = math.ZeroInt()
			}
			owed[denom] = cur.Add(amt)
		}

		vaults, err := k.Vaults(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "escrow-solvency", err.Error()), true
		}
		for _, vault := range vaults {
			for _, side := range []types.Side{types.Side0, types.Side1} {
				denom := vault.Token(side)
				liquidity, err := k.getInt(ctx, types.GetTotalLiquidityKey(vault.ID, side))
				if err != nil {
					count++
					msg += fmt.Sprintf("vault %d %s: %s\n", vault.ID, side, err)
					continue
				}
				add(denom, liquidity)
				err = k.IterateTraderBalances(ctx, vault.ID, side, func(_ sdk.AccAddress, balance math.Int) error {
					add(denom, balance)
					return nil
				})
				if err != nil {
					count++
					msg += fmt.Sprintf("vault %d %s: %s\n", vault.ID, side, err)
				}
			}
		}

		moduleAddr := k.GetModuleAddress()
		for denom, amount := range owed {
			held := k.bankKeeper.GetBalance(ctx, moduleAddr, denom)
			if held.Amount.LT(amount) {
				count++
				msg += fmt.Sprintf("%s: module holds %s, owes %s\n", denom, held.Amount, amount)
			}
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "escrow-solvency",
			fmt.Sprintf("found %d under-collateralized denoms\n%s", count, msg),
		), broken
	}
}
