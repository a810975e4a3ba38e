package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/paw-chain/vaultbook/app"
)

// VersionCmd prints the build version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s/%s\n", app.AppName, app.Version, runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
