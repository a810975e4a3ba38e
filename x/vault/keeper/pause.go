package keeper

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// PauseTrading moves a vault from Active to Paused. While paused, new orders,
// buys and arbitrage fail; cancellation and withdrawal keep working.
func (k Keeper) PauseTrading(ctx context.Context, caller sdk.AccAddress, vaultID uint64) error {
	return k.setPaused(ctx, caller, vaultID, true)
}

// ResumeTrading moves a vault from Paused back to Active.
func (k Keeper) ResumeTrading(ctx context.Context, caller sdk.AccAddress, vaultID uint64) error {
	return k.setPaused(ctx, caller, vaultID, false)
}

// IsTradingPaused reports whether a vault is paused.
func (k Keeper) IsTradingPaused(ctx context.Context, vaultID uint64) (bool, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return false, err
	}
	return vault.Paused, nil
}

func (k Keeper) setPaused(ctx context.Context, caller sdk.AccAddress, vaultID uint64, paused bool) error {
	op, eventType := "resume", types.EventTypeTradingResumed
	if paused {
		op, eventType = "pause", types.EventTypeTradingPaused
	}
	return k.atomic(ctx, vaultID, op, func(ctx sdk.Context) error {
		if err := k.requireAdmin(ctx, caller); err != nil {
			return err
		}
		vault, err := k.mustGetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if vault.Paused == paused {
			return types.ErrInvalidTransition.Wrapf("vault %d paused=%t", vaultID, vault.Paused)
		}
		vault.Paused = paused
		if err := k.SetVault(ctx, vault); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				eventType,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
			),
		)
		gauge := 0.0
		if paused {
			gauge = 1
		}
		k.metrics.TradingPaused.WithLabelValues(vaultLabel(vaultID)).Set(gauge)
		k.Logger(ctx).Warn("vault trading state changed", "vault_id", vaultID, "paused", paused, "actor", caller.String())
		return nil
	})
}

// requireActive fails with ErrTradingPaused on a paused vault.
func requireActive(vault types.Vault) error {
	if vault.Paused {
		return types.ErrTradingPaused.Wrapf("vault %d", vault.ID)
	}
	return nil
}
