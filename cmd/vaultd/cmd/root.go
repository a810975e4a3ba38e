package cmd

import (
	"fmt"
	"io"
	"sync"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/paw-chain/vaultbook/app"
)

const (
	flagHome            = "home"
	flagLogLevel        = "log-level"
	flagChainID         = "chain-id"
	flagInvariantPeriod = "invariant-check-period"
	flagHost            = "host"
	flagPort            = "port"
)

var sdkConfigOnce sync.Once

// initSDKConfig sets the Bech32 prefixes once per process; the SDK config is
// sealed afterwards.
func initSDKConfig() {
	sdkConfigOnce.Do(app.SetConfig)
}

// NewRootCmd creates the vaultd root command.
func NewRootCmd() *cobra.Command {
	initSDKConfig()

	rootCmd := &cobra.Command{
		Use:   app.AppName,
		Short: "Vaultbook devnet daemon",
		Long: `vaultd runs a single-node devnet ledger hosting limit-order vaults and
serves its REST and WebSocket gateway.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(flagHome, app.DefaultNodeHome, "directory for config and data")
	rootCmd.PersistentFlags().String(flagLogLevel, "info", "log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(
		InitCmd(),
		StartCmd(),
		ExportCmd(),
		ConfigCmd(),
		KeysCmd(),
		VersionCmd(),
	)

	return rootCmd
}

func homeDir(cmd *cobra.Command) string {
	home, err := cmd.Flags().GetString(flagHome)
	if err != nil || home == "" {
		return app.DefaultNodeHome
	}
	return home
}

// newLogger builds the daemon logger from the configured level and format.
func newLogger(out io.Writer, level, format string) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := []log.Option{log.LevelOption(lvl)}
	switch format {
	case "json":
		opts = append(opts, log.OutputJSONOption())
	case "plain", "":
		opts = append(opts, log.ColorOption(false))
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return log.NewLogger(out, opts...), nil
}
