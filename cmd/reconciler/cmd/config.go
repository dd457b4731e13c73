package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"bank-ledger-reconciler/cmd/reconciler/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Show resolves defaults, the --config file, RECONCILER_* environment
variables and presets, and prints the configuration reconcile and serve would
use.

Examples:
  reconciler config show
  reconciler --config reconciler.yaml config show
  RECONCILER_PRESET=relaxed reconciler config show`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(loaded); err != nil {
		return err
	}
	return enc.Close()
}
