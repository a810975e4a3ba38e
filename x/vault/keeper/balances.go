package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// credit adds fill proceeds to a trader's withdrawable balance of the token on side.
func (k Keeper) credit(ctx context.Context, vaultID uint64, side types.Side, trader sdk.AccAddress, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	_, err := k.addInt(ctx, types.GetTraderBalanceKey(vaultID, side, trader), amount)
	return err
}

func (k Keeper) traderBalance(ctx context.Context, vaultID uint64, side types.Side, trader sdk.AccAddress) (math.Int, error) {
	return k.getInt(ctx, types.GetTraderBalanceKey(vaultID, side, trader))
}

// TraderBalance returns what trader can withdraw of token from a vault.
func (k Keeper) TraderBalance(ctx context.Context, vaultID uint64, token string, trader sdk.AccAddress) (math.Int, error) {
	_, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	return k.traderBalance(ctx, vaultID, side, trader)
}

// Withdraw pays out caller's balance of token. An amount of zero withdraws
// everything available. It returns the amount paid.
func (k Keeper) Withdraw(ctx context.Context, caller sdk.AccAddress, vaultID uint64, token string, amount math.Int) (math.Int, error) {
	var paid math.Int
	err := k.atomic(ctx, vaultID, "withdraw", func(ctx sdk.Context) error {
		var err error
		paid, err = k.withdraw(ctx, vaultID, token, caller, caller, amount)
		return err
	})
	return paid, err
}

// WithdrawFor pays out trader's balance to receiver on behalf of the vault router.
func (k Keeper) WithdrawFor(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID uint64,
	token string,
	trader, receiver sdk.AccAddress,
	amount math.Int,
) (math.Int, error) {
	var paid math.Int
	err := k.atomic(ctx, vaultID, "withdraw_for", func(ctx sdk.Context) error {
		vault, err := k.mustGetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if !vault.IsRouter(caller) {
			return types.ErrNotRouter.Wrapf("%s", caller)
		}
		paid, err = k.withdraw(ctx, vaultID, token, trader, receiver, amount)
		return err
	})
	return paid, err
}

func (k Keeper) withdraw(ctx sdk.Context, vaultID uint64, token string, trader, receiver sdk.AccAddress, amount math.Int) (math.Int, error) {
	vault, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	if receiver.Empty() {
		return math.Int{}, types.ErrInvalidAddress.Wrap("empty receiver")
	}
	if amount.IsNil() || amount.IsNegative() {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("withdraw amount %s", amount)
	}
	balance, err := k.traderBalance(ctx, vaultID, side, trader)
	if err != nil {
		return math.Int{}, err
	}
	if amount.IsZero() {
		amount = balance
	}
	if amount.GT(balance) {
		return math.Int{}, types.ErrInsufficientBalance.Wrapf("balance %s, requested %s", balance, amount)
	}
	if amount.IsZero() {
		return amount, nil
	}

	if err := k.setInt(ctx, types.GetTraderBalanceKey(vaultID, side, trader), balance.Sub(amount), true); err != nil {
		return math.Int{}, err
	}
	if err := k.payOut(ctx, receiver, sdk.NewCoin(vault.Token(side), amount)); err != nil {
		return math.Int{}, err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeWithdraw,
			sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
			sdk.NewAttribute(types.AttributeKeyToken, token),
			sdk.NewAttribute(types.AttributeKeyTrader, trader.String()),
			sdk.NewAttribute(types.AttributeKeyReceiver, receiver.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	k.metrics.Withdrawals.WithLabelValues(vaultLabel(vaultID), token).Inc()
	return amount, nil
}

// IterateTraderBalances calls cb for every stored balance of one token of a vault.
func (k Keeper) IterateTraderBalances(ctx context.Context, vaultID uint64, side types.Side, cb func(trader sdk.AccAddress, balance math.Int) error) error {
	prefix := types.GetTraderBalancePrefix(vaultID, side)
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		var balance math.Int
		if err := balance.Unmarshal(iter.Value()); err != nil {
			return types.ErrInvalidState.Wrap("failed to unmarshal trader balance")
		}
		if err := cb(sdk.AccAddress(iter.Key()[len(prefix):]), balance); err != nil {
			return err
		}
	}
	return nil
}

// payIn moves coins from an account into module escrow.
func (k Keeper) payIn(ctx context.Context, from sdk.AccAddress, coin sdk.Coin) error {
	if coin.IsZero() {
		return nil
	}
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, from, types.ModuleName, sdk.NewCoins(coin)); err != nil {
		return types.ErrTransferFailed.Wrapf("escrow %s from %s: %s", coin, from, err)
	}
	return nil
}

// payOut releases coins from module escrow.
func (k Keeper) payOut(ctx context.Context, to sdk.AccAddress, coin sdk.Coin) error {
	if coin.IsZero() {
		return nil
	}
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, to, sdk.NewCoins(coin)); err != nil {
		return types.ErrTransferFailed.Wrapf("release %s to %s: %s", coin, to, err)
	}
	return nil
}

// transfer moves coins between two accounts.
func (k Keeper) transfer(ctx context.Context, from, to sdk.AccAddress, coin sdk.Coin) error {
	if coin.IsZero() {
		return nil
	}
	if err := k.bankKeeper.SendCoins(ctx, from, to, sdk.NewCoins(coin)); err != nil {
		return types.ErrTransferFailed.Wrapf("send %s from %s to %s: %s", coin, from, to, err)
	}
	return nil
}
