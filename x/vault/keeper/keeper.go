package keeper

import (
	"context"
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// Keeper of the vault store
type Keeper struct {
	storeKey   storetypes.StoreKey
	bankKeeper types.BankKeeper
	authority  string
	metrics    *VaultMetrics
}

// NewKeeper creates a new vault Keeper instance. authority is the address
// allowed to replace the module params.
func NewKeeper(
	key storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	authority string,
) *Keeper {
	return &Keeper{
		storeKey:   key,
		bankKeeper: bankKeeper,
		authority:  authority,
		metrics:    NewVaultMetrics(),
	}
}

// getStore returns the KVStore for the vault module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.KVStore(k.storeKey)
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx context.Context) log.Logger {
	return sdk.UnwrapSDKContext(ctx).Logger().With("module", "x/"+types.ModuleName)
}

// GetAuthority returns the module authority address.
func (k Keeper) GetAuthority() string {
	return k.authority
}

// GetModuleAddress returns the escrow account of the vault module.
func (k Keeper) GetModuleAddress() sdk.AccAddress {
	return authtypes.NewModuleAddress(types.ModuleName)
}

// Metrics returns the prometheus collectors of the module.
func (k Keeper) Metrics() *VaultMetrics {
	return k.metrics
}

func (k Keeper) getJSON(ctx context.Context, key []byte, v interface{}) (bool, error) {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return false, nil
	}
	if err := json.Unmarshal(bz, v); err != nil {
		return true, types.ErrInvalidState.Wrapf("failed to unmarshal %x: %s", key, err)
	}
	return true, nil
}

func (k Keeper) setJSON(ctx context.Context, key []byte, v interface{}) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return types.ErrInvalidState.Wrapf("failed to marshal %T: %s", v, err)
	}
	k.getStore(ctx).Set(key, bz)
	return nil
}

func (k Keeper) getInt(ctx context.Context, key []byte) (math.Int, error) {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return math.ZeroInt(), nil
	}
	var v math.Int
	if err := v.Unmarshal(bz); err != nil {
		return math.Int{}, types.ErrInvalidState.Wrapf("failed to unmarshal amount at %x", key)
	}
	return v, nil
}

// setInt stores v at key; a zero value deletes the key unless keepZero is set.
func (k Keeper) setInt(ctx context.Context, key []byte, v math.Int, keepZero bool) error {
	store := k.getStore(ctx)
	if v.IsZero() && !keepZero {
		store.Delete(key)
		return nil
	}
	bz, err := v.Marshal()
	if err != nil {
		return types.ErrInvalidState.Wrap("failed to marshal amount")
	}
	store.Set(key, bz)
	return nil
}

func (k Keeper) addInt(ctx context.Context, key []byte, delta math.Int) (math.Int, error) {
	cur, err := k.getInt(ctx, key)
	if err != nil {
		return math.Int{}, err
	}
	next, err := types.SafeAdd(cur, delta)
	if err != nil {
		return math.Int{}, err
	}
	return next, k.setInt(ctx, key, next, true)
}

func (k Keeper) subInt(ctx context.Context, key []byte, delta math.Int, keepZero bool) (math.Int, error) {
	cur, err := k.getInt(ctx, key)
	if err != nil {
		return math.Int{}, err
	}
	next, err := types.SafeSub(cur, delta)
	if err != nil {
		return math.Int{}, types.ErrInvalidState.Wrapf("aggregate underflow at %x: %s", key, err)
	}
	return next, k.setInt(ctx, key, next, keepZero)
}

func jsonUnmarshal(bz []byte, v interface{}) error {
	if err := json.Unmarshal(bz, v); err != nil {
		return types.ErrInvalidState.Wrapf("failed to unmarshal %T: %s", v, err)
	}
	return nil
}
