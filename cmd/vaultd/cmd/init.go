package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cosmossdk.io/math"
	cmtos "github.com/cometbft/cometbft/libs/os"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/paw-chain/vaultbook/app"
	vaulttypes "github.com/paw-chain/vaultbook/x/vault/types"
)

const (
	flagOverwrite   = "overwrite"
	flagAdmin       = "admin"
	flagFeeReceiver = "fee-receiver"
	flagRouter      = "router"
	flagFee         = "fee"
	flagDenom       = "denom"
	flagAccount     = "account"
)

// InitCmd returns a command that writes the genesis file and the default
// daemon configuration.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize genesis and configuration files",
		Long: `Initialize the devnet genesis and the daemon configuration.

Example:
  vaultd init --chain-id vaultbook-devnet --admin vault1... \
    --denom tka:18 --denom tkb:12 --account vault1...:1000000tka
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(cmd)
			genFile := genesisPath(home)

			overwrite, _ := cmd.Flags().GetBool(flagOverwrite)
			if !overwrite && cmtos.FileExists(genFile) {
				return fmt.Errorf("genesis.json file already exists: %v", genFile)
			}

			genCfg, err := genesisConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			encoding := app.MakeEncodingConfig()
			appState, err := app.NewDefaultGenesisState(encoding.Codec, genCfg)
			if err != nil {
				return fmt.Errorf("failed to build genesis state: %w", err)
			}

			if err := cmtos.EnsureDir(filepath.Dir(genFile), 0o755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := cmtos.EnsureDir(dataPath(home), 0o750); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			genDoc := GenesisDoc{
				GenesisTime: time.Now().UTC(),
				ChainID:     genCfg.ChainID,
				AppState:    appState,
			}
			if err := genDoc.SaveAs(genFile); err != nil {
				return fmt.Errorf("failed to save genesis file: %w", err)
			}

			cfg := DefaultConfig()
			cfg.Ledger.ChainID = genCfg.ChainID
			if overwrite || !cmtos.FileExists(configPath(home)) {
				if err := writeConfig(home, cfg); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Successfully initialized devnet configuration\n")
			fmt.Fprintf(out, "Chain ID: %s\n", genCfg.ChainID)
			fmt.Fprintf(out, "Genesis: %s\n", genFile)
			fmt.Fprintf(out, "Config: %s\n", configPath(home))
			return nil
		},
	}

	cmd.Flags().String(flagChainID, app.DefaultChainID, "genesis file chain-id")
	cmd.Flags().String(flagAdmin, "", "registry admin address (default: governance account)")
	cmd.Flags().String(flagFeeReceiver, "", "fee receiver address (default: governance account)")
	cmd.Flags().String(flagRouter, "", "router address allowed to trade on behalf of others")
	cmd.Flags().String(flagFee, "", "default fee percentage of new vaults, scaled by 1e6")
	cmd.Flags().StringSlice(flagDenom, nil, "test denom as denom:decimals, repeatable (default: tka:18,tkb:12)")
	cmd.Flags().StringArray(flagAccount, nil, "funded genesis account as address:coins, repeatable")
	cmd.Flags().Bool(flagOverwrite, false, "overwrite the genesis.json and config.yaml files")

	return cmd
}

func genesisConfigFromFlags(cmd *cobra.Command) (app.GenesisConfig, error) {
	cfg := app.DefaultGenesisConfig()

	if chainID, _ := cmd.Flags().GetString(flagChainID); chainID != "" {
		cfg.ChainID = chainID
	}

	for flag, dst := range map[string]*string{
		flagAdmin:       &cfg.Admin,
		flagFeeReceiver: &cfg.FeeReceiver,
		flagRouter:      &cfg.Router,
	} {
		value, _ := cmd.Flags().GetString(flag)
		if value == "" {
			continue
		}
		if _, err := sdk.AccAddressFromBech32(value); err != nil {
			return cfg, fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = value
	}

	if fee, _ := cmd.Flags().GetString(flagFee); fee != "" {
		amount, ok := math.NewIntFromString(fee)
		if !ok || amount.IsNegative() {
			return cfg, fmt.Errorf("--%s: invalid fee percentage %q", flagFee, fee)
		}
		cfg.FeePercentage = amount
	}

	denoms, _ := cmd.Flags().GetStringSlice(flagDenom)
	if len(denoms) > 0 {
		cfg.Denoms = cfg.Denoms[:0]
		for _, raw := range denoms {
			d, err := parseDenom(raw)
			if err != nil {
				return cfg, err
			}
			cfg.Denoms = append(cfg.Denoms, d)
		}
	}

	accounts, _ := cmd.Flags().GetStringArray(flagAccount)
	for _, raw := range accounts {
		balance, err := parseAccount(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Balances = append(cfg.Balances, balance)
	}
	return cfg, nil
}

func parseDenom(raw string) (app.DenomConfig, error) {
	denom, decimals, ok := strings.Cut(raw, ":")
	if !ok {
		return app.DenomConfig{}, fmt.Errorf("--%s %q: expected denom:decimals", flagDenom, raw)
	}
	dec, err := cast.ToUint32E(decimals)
	if err != nil {
		return app.DenomConfig{}, fmt.Errorf("--%s %q: %w", flagDenom, raw, err)
	}
	if dec > vaulttypes.MaxDecimals {
		return app.DenomConfig{}, fmt.Errorf("--%s %q: decimals above %d", flagDenom, raw, vaulttypes.MaxDecimals)
	}
	return app.DenomConfig{Denom: denom, Decimals: dec}, nil
}

func parseAccount(raw string) (banktypes.Balance, error) {
	addr, coins, ok := strings.Cut(raw, ":")
	if !ok {
		return banktypes.Balance{}, fmt.Errorf("--%s %q: expected address:coins", flagAccount, raw)
	}
	if _, err := sdk.AccAddressFromBech32(addr); err != nil {
		return banktypes.Balance{}, fmt.Errorf("--%s %q: %w", flagAccount, raw, err)
	}
	parsed, err := sdk.ParseCoinsNormalized(coins)
	if err != nil {
		return banktypes.Balance{}, fmt.Errorf("--%s %q: %w", flagAccount, raw, err)
	}
	return banktypes.Balance{Address: addr, Coins: parsed}, nil
}
