package app

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/paw-chain/vaultbook/x/vault"
	vaulttypes "github.com/paw-chain/vaultbook/x/vault/types"
)

// GenesisState represents the genesis state of the devnet ledger. It is a map
// from module name to module genesis state.
type GenesisState map[string]json.RawMessage

// DenomConfig describes one test denomination the devnet knows about.
type DenomConfig struct {
	Denom    string `mapstructure:"denom" json:"denom"`
	Decimals uint32 `mapstructure:"decimals" json:"decimals"`
}

// GenesisConfig holds the parameters `vaultd init` builds genesis from.
type GenesisConfig struct {
	ChainID       string
	Admin         string
	FeeReceiver   string
	Router        string
	FeePercentage math.Int
	Denoms        []DenomConfig
	Balances      []banktypes.Balance
}

// DefaultGenesisConfig returns a devnet with two test denoms and the
// governance account as admin and fee receiver.
func DefaultGenesisConfig() GenesisConfig {
	params := vaulttypes.DefaultParams()
	return GenesisConfig{
		ChainID:       DefaultChainID,
		Admin:         params.Admin,
		FeeReceiver:   params.FeeReceiver,
		FeePercentage: params.DefaultFeePercentage,
		Denoms: []DenomConfig{
			{Denom: "tka", Decimals: 18},
			{Denom: "tkb", Decimals: 12},
		},
	}
}

// NewDefaultGenesisState generates the genesis state of the auth, bank and
// vault modules from cfg.
func NewDefaultGenesisState(cdc codec.JSONCodec, cfg GenesisConfig) (GenesisState, error) {
	genesis := make(GenesisState)

	// Auth module - account authentication
	genesis[authtypes.ModuleName] = cdc.MustMarshalJSON(authtypes.DefaultGenesisState())

	// Bank module - balances and the denom metadata vaults read decimals from
	metadata := make([]banktypes.Metadata, 0, len(cfg.Denoms))
	for _, d := range cfg.Denoms {
		if err := sdk.ValidateDenom(d.Denom); err != nil {
			return nil, fmt.Errorf("denom %q: %w", d.Denom, err)
		}
		metadata = append(metadata, DenomMetadata(d.Denom, d.Decimals))
	}
	bankGenesis := banktypes.NewGenesisState(
		banktypes.DefaultParams(),
		cfg.Balances,
		nil,
		metadata,
		[]banktypes.SendEnabled{},
	)
	genesis[banktypes.ModuleName] = cdc.MustMarshalJSON(bankGenesis)

	// Vault module - registry identities, no vaults yet
	vaultGenesis := vaulttypes.DefaultGenesis()
	vaultGenesis.Params.Admin = cfg.Admin
	vaultGenesis.Params.FeeReceiver = cfg.FeeReceiver
	vaultGenesis.Params.Router = cfg.Router
	if !cfg.FeePercentage.IsNil() {
		vaultGenesis.Params.DefaultFeePercentage = cfg.FeePercentage
	}
	bz, err := json.Marshal(vaultGenesis)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s genesis: %w", vaulttypes.ModuleName, err)
	}
	genesis[vaulttypes.ModuleName] = bz

	return genesis, genesis.Validate(cdc)
}

// Validate checks every module section of the genesis state.
func (gs GenesisState) Validate(cdc codec.JSONCodec) error {
	var authGenesis authtypes.GenesisState
	if err := cdc.UnmarshalJSON(gs[authtypes.ModuleName], &authGenesis); err != nil {
		return fmt.Errorf("failed to unmarshal %s genesis: %w", authtypes.ModuleName, err)
	}
	if err := authtypes.ValidateGenesis(authGenesis); err != nil {
		return fmt.Errorf("%s genesis: %w", authtypes.ModuleName, err)
	}

	var bankGenesis banktypes.GenesisState
	if err := cdc.UnmarshalJSON(gs[banktypes.ModuleName], &bankGenesis); err != nil {
		return fmt.Errorf("failed to unmarshal %s genesis: %w", banktypes.ModuleName, err)
	}
	if err := bankGenesis.Validate(); err != nil {
		return fmt.Errorf("%s genesis: %w", banktypes.ModuleName, err)
	}

	vaultGenesis, err := vault.ParseGenesis(gs[vaulttypes.ModuleName])
	if err != nil {
		return err
	}
	if err := vaultGenesis.Validate(); err != nil {
		return fmt.Errorf("%s genesis: %w", vaulttypes.ModuleName, err)
	}
	return nil
}

// DenomMetadata builds bank metadata whose display unit has decimals exponent.
func DenomMetadata(denom string, decimals uint32) banktypes.Metadata {
	display := denom
	units := []*banktypes.DenomUnit{{Denom: denom, Exponent: 0}}
	if decimals > 0 {
		display = "d" + denom
		units = append(units, &banktypes.DenomUnit{Denom: display, Exponent: decimals})
	}
	return banktypes.Metadata{
		Description: fmt.Sprintf("devnet test token %s", denom),
		Base:        denom,
		Display:     display,
		Name:        denom,
		Symbol:      denom,
		DenomUnits:  units,
	}
}
