package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd prints the effective configuration after files, environment and
// flags were merged.
func ConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(homeDir(cmd), cmd.Flags())
			if err != nil {
				return err
			}
			if _, err := loadConfig(v); err != nil {
				return err
			}
			bz, err := yaml.Marshal(v.AllSettings())
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(bz)
			return err
		},
	}
}
