package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/spf13/cobra"

	"github.com/paw-chain/vaultbook/api"
	"github.com/paw-chain/vaultbook/app"
)

// StartCmd runs the ledger and its gateway until interrupted.
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the devnet ledger and gateway",
		Long: `Run the devnet ledger and serve the REST and WebSocket gateway.

Genesis is loaded from $HOME/config/genesis.json on first start. Configuration
is read from $HOME/config/config.yaml and VAULTD_* environment variables, for
example VAULTD_GATEWAY_PORT=9090.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			home := homeDir(cmd)
			v, err := newViper(home, cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.OutOrStdout(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			return runNode(ctx, home, cfg, logger)
		},
	}

	cmd.Flags().String(flagChainID, "", "chain id, overrides ledger.chain-id")
	cmd.Flags().Uint(flagInvariantPeriod, 1, "run the vault invariants every n operations (0 disables)")
	cmd.Flags().String(flagHost, "", "gateway listen host")
	cmd.Flags().String(flagPort, "", "gateway listen port")

	return cmd
}

// runNode opens the ledger under home, serves it until ctx is done and then
// releases every resource in reverse order.
func runNode(ctx context.Context, home string, cfg Config, logger log.Logger) (err error) {
	tel, err := app.InitTelemetry(cfg.Telemetry, cfg.Ledger.ChainID)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	instruments, err := app.NewLedgerInstruments(tel.Meter())
	if err != nil {
		return fmt.Errorf("failed to create ledger instruments: %w", err)
	}

	db, err := dbm.NewDB("application", dbm.BackendType(cfg.Ledger.DBBackend), dataPath(home))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ledger, err := app.NewLedger(db, logger, app.LedgerConfig{
		ChainID:              cfg.Ledger.ChainID,
		InvariantCheckPeriod: cfg.Ledger.InvariantCheckPeriod,
		Instruments:          instruments,
	})
	if err != nil {
		db.Close()
		return err
	}
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close ledger: %w", closeErr)
		}
	}()

	if !ledger.Initialized() {
		doc, err := ReadGenesisDoc(genesisPath(home))
		if err != nil {
			return err
		}
		if doc.ChainID != cfg.Ledger.ChainID {
			return fmt.Errorf("genesis chain id %q does not match configured %q", doc.ChainID, cfg.Ledger.ChainID)
		}
		if err := ledger.InitChain(doc.AppState); err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled {
		metricsServer, err := StartMetricsServer(cfg.Metrics.Addr, logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	gateway := cfg.Gateway
	server, err := api.NewServer(ledger, &gateway, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	logger.Info("node started", "chain_id", ledger.ChainID(), "height", ledger.Height(), "gateway", gateway.Addr())
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("node stopped", "height", ledger.Height())
	return nil
}
