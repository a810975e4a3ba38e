package app

import (
	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/std"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/paw-chain/vaultbook/x/vault"
)

// EncodingConfig specifies the concrete encoding types used by the ledger.
type EncodingConfig struct {
	InterfaceRegistry types.InterfaceRegistry
	Codec             codec.Codec
	Amino             *codec.LegacyAmino
}

// MakeEncodingConfig creates the codec the auth and bank keepers store their
// records with.
func MakeEncodingConfig() EncodingConfig {
	amino := codec.NewLegacyAmino()
	interfaceRegistry := types.NewInterfaceRegistry()

	// Register standard interfaces first (includes crypto types)
	std.RegisterInterfaces(interfaceRegistry)
	authtypes.RegisterInterfaces(interfaceRegistry)
	banktypes.RegisterInterfaces(interfaceRegistry)
	vault.AppModuleBasic{}.RegisterInterfaces(interfaceRegistry)

	std.RegisterLegacyAminoCodec(amino)
	vault.AppModuleBasic{}.RegisterLegacyAminoCodec(amino)

	return EncodingConfig{
		InterfaceRegistry: interfaceRegistry,
		Codec:             codec.NewProtoCodec(interfaceRegistry),
		Amino:             amino,
	}
}
