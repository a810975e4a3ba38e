package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// InitGenesis initializes the vault module's state from a genesis state
func (k Keeper) InitGenesis(ctx context.Context, genState types.GenesisState) error {
	if err := genState.Validate(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	if err := k.SetParams(ctx, genState.Params); err != nil {
		return fmt.Errorf("failed to set params: %w", err)
	}
	k.SetNextVaultID(ctx, genState.NextVaultID)

	for _, vg := range genState.Vaults {
		if err := k.initVault(ctx, vg); err != nil {
			return fmt.Errorf("vault %d: %w", vg.Vault.ID, err)
		}
	}
	return nil
}

func (k Keeper) initVault(ctx context.Context, vg types.VaultGenesis) error {
	vault := vg.Vault
	if err := k.SetVault(ctx, vault); err != nil {
		return err
	}

	for _, o := range vg.Orders {
		side, err := vault.SideOf(o.Token)
		if err != nil {
			return err
		}
		// Orders arrive in book order so each one goes to the tail.
		if err := k.appendOrder(ctx, vault.ID, side, o.ToOrder()); err != nil {
			return fmt.Errorf("order %d: %w", o.ID, err)
		}
		owner, err := sdk.AccAddressFromBech32(o.Owner)
		if err != nil {
			return err
		}
		k.setOwner(ctx, vault.ID, o.ID, owner)
		if o.Approved != "" {
			approved, err := sdk.AccAddressFromBech32(o.Approved)
			if err != nil {
				return err
			}
			k.setApproved(ctx, vault.ID, o.ID, approved)
		}
	}

	for _, op := range vg.Operators {
		owner, err := sdk.AccAddressFromBech32(op.Owner)
		if err != nil {
			return err
		}
		operator, err := sdk.AccAddressFromBech32(op.Operator)
		if err != nil {
			return err
		}
		k.setOperator(ctx, vault.ID, owner, operator, true)
	}

	for _, tb := range vg.TraderBalances {
		side, err := vault.SideOf(tb.Token)
		if err != nil {
			return err
		}
		trader, err := sdk.AccAddressFromBech32(tb.Trader)
		if err != nil {
			return err
		}
		if err := k.setInt(ctx, types.GetTraderBalanceKey(vault.ID, side, trader), tb.Balance, true); err != nil {
			return err
		}
	}

	for _, pv := range vg.Volumes {
		side, err := vault.SideOf(pv.Token)
		if err != nil {
			return err
		}
		if err := k.addVolume(ctx, vault.ID, side, pv.Price, pv.Volume); err != nil {
			return err
		}
	}
	return nil
}

// ExportGenesis returns the vault module's exported genesis
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get params: %w", err)
	}
	gs := &types.GenesisState{
		Params:      params,
		NextVaultID: k.GetNextVaultID(ctx),
		Vaults:      []types.VaultGenesis{},
	}

	vaults, err := k.Vaults(ctx)
	if err != nil {
		return nil, err
	}
	for _, vault := range vaults {
		vg, err := k.exportVault(ctx, vault)
		if err != nil {
			return nil, fmt.Errorf("vault %d: %w", vault.ID, err)
		}
		gs.Vaults = append(gs.Vaults, vg)
	}
	return gs, nil
}

func (k Keeper) exportVault(ctx context.Context, vault types.Vault) (types.VaultGenesis, error) {
	vg := types.VaultGenesis{Vault: vault, Orders: []types.GenesisOrder{}}
	store := k.getStore(ctx)

	for _, side := range []types.Side{types.Side0, types.Side1} {
		err := k.iterateBook(ctx, vault.ID, side, func(order types.Order) (bool, error) {
			info, err := k.OrderInfo(ctx, vault.ID, order.ID)
			if err != nil {
				return true, err
			}
			vg.Orders = append(vg.Orders, types.GenesisOrder{
				ID:          order.ID,
				Token:       order.Token,
				Price:       order.Price,
				Amount:      order.Amount,
				Beneficiary: order.Beneficiary,
				Owner:       info.Owner,
				Approved:    info.Approved,
			})
			return false, nil
		})
		if err != nil {
			return vg, err
		}

		token := vault.Token(side)
		err = k.IterateTraderBalances(ctx, vault.ID, side, func(trader sdk.AccAddress, balance math.Int) error {
			vg.TraderBalances = append(vg.TraderBalances, types.TraderBalance{
				Token:   token,
				Trader:  trader.String(),
				Balance: balance,
			})
			return nil
		})
		if err != nil {
			return vg, err
		}

		prefix := types.GetVolumePrefix(vault.ID, side)
		iter := storetypes.KVStorePrefixIterator(store, prefix)
		for ; iter.Valid(); iter.Next() {
			var volume math.Int
			if err := volume.Unmarshal(iter.Value()); err != nil {
				iter.Close()
				return vg, types.ErrInvalidState.Wrap("failed to unmarshal volume")
			}
			vg.Volumes = append(vg.Volumes, types.PriceVolume{
				Token:  token,
				Price:  types.DecodePrice(iter.Key()[len(prefix):]),
				Volume: volume,
			})
		}
		iter.Close()
	}

	// Operator keys: prefix || vaultID || len(owner) || owner || operator
	prefix := append(append([]byte{}, types.OperatorKey...), sdk.Uint64ToBigEndian(vault.ID)...)
	iter := storetypes.KVStorePrefixIterator(store, prefix)
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		rest := iter.Key()[len(prefix):]
		ownerLen := int(rest[0])
		owner := sdk.AccAddress(rest[1 : 1+ownerLen])
		operator := sdk.AccAddress(rest[1+ownerLen:])
		vg.Operators = append(vg.Operators, types.OperatorApproval{
			Owner:    owner.String(),
			Operator: operator.String(),
		})
	}
	return vg, nil
}
