package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// FeeModel returns the current fee model of a vault.
func (k Keeper) FeeModel(ctx context.Context, vaultID uint64) (types.FeeModel, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return types.FeeModel{}, err
	}
	return vault.Fees(), nil
}

// FeeOf returns the fee contained in the gross amount v.
func (k Keeper) FeeOf(ctx context.Context, vaultID uint64, v math.Int) (math.Int, error) {
	fees, err := k.FeeModel(ctx, vaultID)
	if err != nil {
		return math.Int{}, err
	}
	return fees.FeeOf(v)
}

// FeeFor returns the fee charged on top of the net amount v.
func (k Keeper) FeeFor(ctx context.Context, vaultID uint64, v math.Int) (math.Int, error) {
	fees, err := k.FeeModel(ctx, vaultID)
	if err != nil {
		return math.Int{}, err
	}
	return fees.FeeFor(v)
}

// WithFee returns v plus the fee charged on it.
func (k Keeper) WithFee(ctx context.Context, vaultID uint64, v math.Int) (math.Int, error) {
	fees, err := k.FeeModel(ctx, vaultID)
	if err != nil {
		return math.Int{}, err
	}
	return fees.WithFee(v)
}

// WithoutFee returns v minus the fee it contains.
func (k Keeper) WithoutFee(ctx context.Context, vaultID uint64, v math.Int) (math.Int, error) {
	fees, err := k.FeeModel(ctx, vaultID)
	if err != nil {
		return math.Int{}, err
	}
	return fees.WithoutFee(v)
}

// SetFeePercentage lowers the fee of a vault. Only the admin may call it and the
// fee can never go up.
func (k Keeper) SetFeePercentage(ctx context.Context, caller sdk.AccAddress, vaultID uint64, fee math.Int) error {
	return k.atomic(ctx, vaultID, "set_fee", func(ctx sdk.Context) error {
		if err := k.requireAdmin(ctx, caller); err != nil {
			return err
		}
		vault, err := k.mustGetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if err := vault.Fees().ValidateNew(fee); err != nil {
			return err
		}
		old := vault.FeePercentage
		vault.FeePercentage = fee
		if err := k.SetVault(ctx, vault); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeFeeChanged,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyOldFee, old.String()),
				sdk.NewAttribute(types.AttributeKeyNewFee, fee.String()),
			),
		)
		k.Logger(ctx).Info("vault fee lowered", "vault_id", vaultID, "old", old.String(), "new", fee.String())
		return nil
	})
}

// chargeFee computes the fee on a raw cost, capped at what the payer allowed
// beyond the raw cost.
func chargeFee(fees types.FeeModel, rawCost, maxAmountIn math.Int) (math.Int, error) {
	fee, err := fees.FeeFor(rawCost)
	if err != nil {
		return math.Int{}, err
	}
	if headroom := maxAmountIn.Sub(rawCost); fee.GT(headroom) {
		fee = headroom
	}
	return fee, nil
}
