package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/spf13/cobra"

	"github.com/paw-chain/vaultbook/app"
)

const flagOutput = "output"

// ExportCmd dumps the committed state as a genesis document.
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export state to a genesis file",
		Long: `Export the committed ledger state as a genesis document. The daemon must not
be running, as the database only admits one process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(cmd)
			v, err := newViper(home, cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			db, err := dbm.NewDB("application", dbm.BackendType(cfg.Ledger.DBBackend), dataPath(home))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			ledger, err := app.NewLedger(db, log.NewNopLogger(), app.LedgerConfig{ChainID: cfg.Ledger.ChainID})
			if err != nil {
				db.Close()
				return err
			}
			defer ledger.Close()

			appState, err := ledger.ExportGenesis()
			if err != nil {
				return err
			}
			doc := GenesisDoc{
				GenesisTime: time.Now().UTC(),
				ChainID:     ledger.ChainID(),
				AppState:    appState,
			}

			if output, _ := cmd.Flags().GetString(flagOutput); output != "" {
				if err := doc.SaveAs(output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported height %d to %s\n", ledger.Height(), output)
				return nil
			}

			bz, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return err
		},
	}

	cmd.Flags().String(flagOutput, "", "write the genesis document to this file instead of stdout")
	return cmd
}
