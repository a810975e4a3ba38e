package keeper

import (
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/cosmos/cosmos-sdk/codec/address"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/runtime"
	sdkstd "github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authkeeper "github.com/cosmos/cosmos-sdk/x/auth/keeper"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	bankkeeper "github.com/cosmos/cosmos-sdk/x/bank/keeper"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/vaultbook/x/vault/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// FaucetModuleName is the module account tests mint funds from.
const FaucetModuleName = "faucet"

// Well-known test identities.
var (
	AdminAddr       = sdk.AccAddress([]byte("vault_test_admin____"))
	FeeReceiverAddr = sdk.AccAddress([]byte("vault_test_fees_____"))
	RouterAddr      = sdk.AccAddress([]byte("vault_test_router___"))
)

// VaultFixture bundles a vault keeper with the real auth and bank keepers it
// escrows through, all over one in-memory multistore.
type VaultFixture struct {
	Keeper        *keeper.Keeper
	BankKeeper    bankkeeper.BaseKeeper
	AccountKeeper authkeeper.AccountKeeper
	Ctx           sdk.Context
	StoreKey      *storetypes.KVStoreKey
	Authority     sdk.AccAddress
}

// VaultKeeper creates a test keeper for the vault module.
func VaultKeeper(t testing.TB) (*keeper.Keeper, sdk.Context) {
	f := NewVaultFixture(t)
	return f.Keeper, f.Ctx
}

// NewVaultFixture builds the vault keeper on top of real auth and bank keepers
// and installs params naming the test admin, fee receiver and router.
func NewVaultFixture(t require.TestingT) *VaultFixture {
	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	authStoreKey := storetypes.NewKVStoreKey(authtypes.StoreKey)
	bankStoreKey := storetypes.NewKVStoreKey(banktypes.StoreKey)

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(authStoreKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(bankStoreKey, storetypes.StoreTypeIAVL, db)
	require.NoError(t, stateStore.LoadLatestVersion())

	registry := codectypes.NewInterfaceRegistry()
	sdkstd.RegisterInterfaces(registry)
	authtypes.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)
	cdc := codec.NewProtoCodec(registry)
	authority := authtypes.NewModuleAddress(govtypes.ModuleName)

	maccPerms := map[string][]string{
		FaucetModuleName: {authtypes.Minter},
		types.ModuleName: nil,
	}
	accountKeeper := authkeeper.NewAccountKeeper(
		cdc,
		runtime.NewKVStoreService(authStoreKey),
		authtypes.ProtoBaseAccount,
		maccPerms,
		address.NewBech32Codec(sdk.GetConfig().GetBech32AccountAddrPrefix()),
		sdk.GetConfig().GetBech32AccountAddrPrefix(),
		authority.String(),
	)
	bankKeeper := bankkeeper.NewBaseKeeper(
		cdc,
		runtime.NewKVStoreService(bankStoreKey),
		accountKeeper,
		map[string]bool{},
		authority.String(),
		log.NewNopLogger(),
	)

	k := keeper.NewKeeper(storeKey, bankKeeper, authority.String())

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Height: 1}, false, log.NewNopLogger())
	require.NoError(t, k.SetParams(ctx, types.Params{
		Admin:                AdminAddr.String(),
		FeeReceiver:          FeeReceiverAddr.String(),
		Router:               RouterAddr.String(),
		DefaultFeePercentage: types.DefaultFeePercentage,
	}))

	return &VaultFixture{
		Keeper:        k,
		BankKeeper:    bankKeeper,
		AccountKeeper: accountKeeper,
		Ctx:           ctx,
		StoreKey:      storeKey,
		Authority:     authority,
	}
}

// RegisterDenom stores bank metadata giving denom the given display decimals.
func (f *VaultFixture) RegisterDenom(denom string, decimals uint32) {
	f.BankKeeper.SetDenomMetaData(f.Ctx, DenomMetadata(denom, decimals))
}

// DenomMetadata builds bank metadata whose display unit has decimals exponent.
func DenomMetadata(denom string, decimals uint32) banktypes.Metadata {
	display := denom
	units := []*banktypes.DenomUnit{{Denom: denom, Exponent: 0}}
	if decimals > 0 {
		display = denom + "_display"
		units = append(units, &banktypes.DenomUnit{Denom: display, Exponent: decimals})
	}
	return banktypes.Metadata{
		Description: "test denom " + denom,
		Base:        denom,
		Display:     display,
		Name:        denom,
		Symbol:      denom,
		DenomUnits:  units,
	}
}

// Fund mints coins straight into addr.
func (f *VaultFixture) Fund(t require.TestingT, addr sdk.AccAddress, coins ...sdk.Coin) {
	amt := sdk.NewCoins(coins...)
	require.NoError(t, f.BankKeeper.MintCoins(f.Ctx, FaucetModuleName, amt))
	require.NoError(t, f.BankKeeper.SendCoinsFromModuleToAccount(f.Ctx, FaucetModuleName, addr, amt))
}

// Balance returns the bank balance of addr in denom.
func (f *VaultFixture) Balance(addr sdk.AccAddress, denom string) math.Int {
	return f.BankKeeper.GetBalance(f.Ctx, addr, denom).Amount
}

// CreateVault registers both denoms and opens a vault for them.
func (f *VaultFixture) CreateVault(t require.TestingT, denomA string, decimalsA uint32, denomB string, decimalsB uint32) types.Vault {
	f.RegisterDenom(denomA, decimalsA)
	f.RegisterDenom(denomB, decimalsB)
	vault, err := f.Keeper.CreateVault(f.Ctx, AdminAddr, denomA, denomB)
	require.NoError(t, err)
	return vault
}

// TestAddr returns a deterministic 20 byte address for name.
func TestAddr(name string) sdk.AccAddress {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz)
}
