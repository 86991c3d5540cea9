package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"compositor/config"
)

var configWritePath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, config file, environment and
flags have been applied. With --write the result is saved as a config file
that later runs pick up with --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configWritePath == "" {
			return config.EncodeConfig(cmd.OutOrStdout(), cfg)
		}
		if err := config.SaveConfigFile(cfg, configWritePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configWritePath)
		return nil
	},
}

func init() {
	configCmd.Flags().StringVar(&configWritePath, "write", "", "save the effective configuration to this file")
}
