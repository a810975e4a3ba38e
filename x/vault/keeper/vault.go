package keeper

import (
	"context"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// GetNextVaultID returns the id the next created vault will get.
func (k Keeper) GetNextVaultID(ctx context.Context) uint64 {
	bz := k.getStore(ctx).Get(types.VaultCountKey)
	if bz == nil {
		return 1
	}
	return sdk.BigEndianToUint64(bz)
}

// SetNextVaultID stores the next vault id.
func (k Keeper) SetNextVaultID(ctx context.Context, id uint64) {
	k.getStore(ctx).Set(types.VaultCountKey, sdk.Uint64ToBigEndian(id))
}

// GetVault returns a vault by id.
func (k Keeper) GetVault(ctx context.Context, vaultID uint64) (types.Vault, bool) {
	var vault types.Vault
	found, err := k.getJSON(ctx, types.GetVaultKey(vaultID), &vault)
	if err != nil || !found {
		return types.Vault{}, false
	}
	return vault, true
}

func (k Keeper) mustGetVault(ctx context.Context, vaultID uint64) (types.Vault, error) {
	var vault types.Vault
	found, err := k.getJSON(ctx, types.GetVaultKey(vaultID), &vault)
	if err != nil {
		return types.Vault{}, err
	}
	if !found {
		return types.Vault{}, types.ErrVaultNotFound.Wrapf("vault %d", vaultID)
	}
	return vault, nil
}

// SetVault stores a vault record and its pair index.
func (k Keeper) SetVault(ctx context.Context, vault types.Vault) error {
	if err := k.setJSON(ctx, types.GetVaultKey(vault.ID), vault); err != nil {
		return err
	}
	k.getStore(ctx).Set(types.GetVaultByPairKey(vault.Token0, vault.Token1), sdk.Uint64ToBigEndian(vault.ID))
	return nil
}

// GetVaultByPair returns the vault trading denomA against denomB in either order.
func (k Keeper) GetVaultByPair(ctx context.Context, denomA, denomB string) (types.Vault, bool) {
	bz := k.getStore(ctx).Get(types.GetVaultByPairKey(denomA, denomB))
	if bz == nil {
		return types.Vault{}, false
	}
	return k.GetVault(ctx, sdk.BigEndianToUint64(bz))
}

// IterateVaults calls cb for every vault in id order until cb returns true.
func (k Keeper) IterateVaults(ctx context.Context, cb func(types.Vault) (stop bool, err error)) error {
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.VaultKey)
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		var vault types.Vault
		if err := jsonUnmarshal(iter.Value(), &vault); err != nil {
			return err
		}
		stop, err := cb(vault)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// Vaults returns every vault in id order.
func (k Keeper) Vaults(ctx context.Context) ([]types.Vault, error) {
	var vaults []types.Vault
	err := k.IterateVaults(ctx, func(v types.Vault) (bool, error) {
		vaults = append(vaults, v)
		return false, nil
	})
	return vaults, err
}

// VaultsForToken returns every vault that trades token.
func (k Keeper) VaultsForToken(ctx context.Context, token string) ([]types.Vault, error) {
	var vaults []types.Vault
	err := k.IterateVaults(ctx, func(v types.Vault) (bool, error) {
		if v.Token0 == token || v.Token1 == token {
			vaults = append(vaults, v)
		}
		return false, nil
	})
	return vaults, err
}

// CreateVault opens a vault for a token pair. Anyone may create a vault; there is
// at most one per pair. Decimals are read from the bank denom metadata of both
// tokens and the router and fee percentage are taken from the current params.
func (k Keeper) CreateVault(ctx context.Context, caller sdk.AccAddress, denomA, denomB string) (types.Vault, error) {
	if err := types.ValidatePair(denomA, denomB); err != nil {
		return types.Vault{}, err
	}
	if existing, found := k.GetVaultByPair(ctx, denomA, denomB); found {
		return types.Vault{}, types.ErrVaultExists.Wrapf("vault %d trades %s", existing.ID, existing.Pair())
	}
	token0, token1 := types.SortDenoms(denomA, denomB)
	decimals0, err := k.denomDecimals(ctx, token0)
	if err != nil {
		return types.Vault{}, err
	}
	decimals1, err := k.denomDecimals(ctx, token1)
	if err != nil {
		return types.Vault{}, err
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return types.Vault{}, err
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	id := k.GetNextVaultID(ctx)
	vault := types.Vault{
		ID:            id,
		Token0:        token0,
		Token1:        token1,
		Decimals0:     decimals0,
		Decimals1:     decimals1,
		FeePercentage: params.DefaultFeePercentage,
		Router:        params.Router,
		NextOrderID:   1,
		CreatedHeight: sdkCtx.BlockHeight(),
	}
	if err := vault.Validate(); err != nil {
		return types.Vault{}, err
	}
	if err := k.SetVault(ctx, vault); err != nil {
		return types.Vault{}, err
	}
	k.SetNextVaultID(ctx, id+1)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeVaultCreated,
			sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", id)),
			sdk.NewAttribute(types.AttributeKeyToken0, token0),
			sdk.NewAttribute(types.AttributeKeyToken1, token1),
			sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
		),
	)
	k.metrics.VaultsTotal.Inc()
	k.Logger(ctx).Info("vault created", "vault_id", id, "pair", vault.Pair(), "creator", caller.String())

	return vault, nil
}

// denomDecimals returns the exponent of the display unit of denom.
func (k Keeper) denomDecimals(ctx context.Context, denom string) (uint32, error) {
	meta, found := k.bankKeeper.GetDenomMetaData(ctx, denom)
	if !found {
		return 0, types.ErrDenomMetadataNotFound.Wrap(denom)
	}
	display := meta.Display
	if display == "" {
		display = denom
	}
	for _, unit := range meta.DenomUnits {
		if unit.Denom == display {
			if unit.Exponent > types.MaxDecimals {
				return 0, types.ErrInvalidPair.Wrapf("%s has %d decimals", denom, unit.Exponent)
			}
			return unit.Exponent, nil
		}
	}
	return 0, types.ErrDenomMetadataNotFound.Wrapf("%s has no display unit %s", denom, display)
}

// vaultAndSide resolves a vault and the book selling token.
func (k Keeper) vaultAndSide(ctx context.Context, vaultID uint64, token string) (types.Vault, types.Side, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return types.Vault{}, 0, err
	}
	side, err := vault.SideOf(token)
	if err != nil {
		return types.Vault{}, 0, err
	}
	return vault, side, nil
}
