package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// GetParams returns the registry identities, or the defaults when none are stored.
func (k Keeper) GetParams(ctx context.Context) (types.Params, error) {
	var params types.Params
	found, err := k.getJSON(ctx, types.ParamsKey, &params)
	if err != nil {
		return types.Params{}, err
	}
	if !found {
		return types.DefaultParams(), nil
	}
	return params, nil
}

// SetParams validates and stores the module params.
func (k Keeper) SetParams(ctx context.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return k.setJSON(ctx, types.ParamsKey, params)
}

// UpdateParams replaces the params; only the module authority may call it.
// Existing vaults keep the router they were created with.
func (k Keeper) UpdateParams(ctx context.Context, caller sdk.AccAddress, params types.Params) error {
	if caller.String() != k.authority {
		return types.ErrNotAdmin.Wrapf("expected authority %s, got %s", k.authority, caller)
	}
	return k.SetParams(ctx, params)
}

func (k Keeper) requireAdmin(ctx context.Context, caller sdk.AccAddress) error {
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}
	if caller.String() != params.Admin {
		return types.ErrNotAdmin.Wrapf("%s", caller)
	}
	return nil
}

func (k Keeper) feeReceiver(ctx context.Context) (sdk.AccAddress, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return nil, err
	}
	addr, err := sdk.AccAddressFromBech32(params.FeeReceiver)
	if err != nil {
		return nil, types.ErrInvalidAddress.Wrapf("fee receiver: %s", err)
	}
	return addr, nil
}
