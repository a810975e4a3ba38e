package types

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

// BankKeeper defines the bank keeper surface the vault escrow depends on.
type BankKeeper interface {
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
	SendCoins(ctx context.Context, fromAddr, toAddr sdk.AccAddress, amt sdk.Coins) error
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	GetDenomMetaData(ctx context.Context, denom string) (banktypes.Metadata, bool)
}

// VaultKeeperV1 is the read surface exposed to routers and scanners.
type VaultKeeperV1 interface {
	GetVault(ctx context.Context, vaultID uint64) (Vault, bool)
	GetVaultByPair(ctx context.Context, denomA, denomB string) (Vault, bool)
	TraderBalance(ctx context.Context, vaultID uint64, token string, trader sdk.AccAddress) (sdkmath.Int, error)
}
