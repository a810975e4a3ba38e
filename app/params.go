package app

import (
	"os"
	"path/filepath"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// AppName is the name of the devnet ledger and its daemon.
	AppName = "vaultd"

	// Bech32PrefixAccAddr defines the Bech32 prefix of an account's address
	Bech32PrefixAccAddr = "vault"
	// Bech32PrefixAccPub defines the Bech32 prefix of an account's public key
	Bech32PrefixAccPub = "vaultpub"
	// Bech32PrefixValAddr defines the Bech32 prefix of a validator's operator address
	Bech32PrefixValAddr = "vaultvaloper"
	// Bech32PrefixValPub defines the Bech32 prefix of a validator's operator public key
	Bech32PrefixValPub = "vaultvaloperpub"
	// Bech32PrefixConsAddr defines the Bech32 prefix of a consensus node address
	Bech32PrefixConsAddr = "vaultvalcons"
	// Bech32PrefixConsPub defines the Bech32 prefix of a consensus node public key
	Bech32PrefixConsPub = "vaultvalconspub"

	// CoinType is the coin type as defined in SLIP44 (https://github.com/satoshilabs/slips/blob/master/slip-0044.md)
	CoinType = 118

	// FaucetModuleName is the module account the devnet faucet mints from.
	FaucetModuleName = "faucet"

	// DefaultChainID is the chain id written by `vaultd init` when none is given.
	DefaultChainID = "vaultbook-devnet"
)

var (
	// DefaultNodeHome is the default home directory of the daemon.
	DefaultNodeHome string

	// Version is set at build time with -ldflags "-X github.com/paw-chain/vaultbook/app.Version=..."
	Version = "v0.1.0-dev"
)

func init() {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	DefaultNodeHome = filepath.Join(userHomeDir, "."+AppName)
}

// SetConfig sets the address configuration of the devnet. It seals the
// global config, so it must run once before any address is rendered.
func SetConfig() {
	config := sdk.GetConfig()
	config.SetBech32PrefixForAccount(Bech32PrefixAccAddr, Bech32PrefixAccPub)
	config.SetBech32PrefixForValidator(Bech32PrefixValAddr, Bech32PrefixValPub)
	config.SetBech32PrefixForConsensusNode(Bech32PrefixConsAddr, Bech32PrefixConsPub)
	config.SetCoinType(CoinType)
	config.Seal()
}
