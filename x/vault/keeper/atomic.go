package keeper

import (
	"context"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// atomic runs fn on a cached branch of the context. The branch, and every event
// fn emitted, is written back only when fn succeeds. While fn runs the vault is
// marked in flight so a nested entry through a token transfer fails with
// ErrReentrancy.
func (k Keeper) atomic(ctx context.Context, vaultID uint64, op string, fn func(ctx sdk.Context) error) error {
	start := time.Now()
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	guard := types.GetReentrancyKey(vaultID)
	if sdkCtx.KVStore(k.storeKey).Has(guard) {
		k.metrics.recordOperation(op, types.ErrReentrancy, start)
		return types.ErrReentrancy.Wrapf("vault %d: %s", vaultID, op)
	}

	cacheCtx, writeFn := sdkCtx.CacheContext()
	store := cacheCtx.KVStore(k.storeKey)
	store.Set(guard, []byte{1})

	if err := fn(cacheCtx); err != nil {
		k.metrics.recordOperation(op, err, start)
		k.Logger(ctx).Debug("vault operation rejected", "op", op, "vault_id", vaultID, "error", err)
		return err
	}

	store.Delete(guard)
	writeFn()
	k.metrics.recordOperation(op, nil, start)
	return nil
}
