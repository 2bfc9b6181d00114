package main

import (
	"os"

	"tradebot/internal/config"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "tradebot",
		Short:         "Moving-average trading bot with position and risk tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	def := os.Getenv("TRADEBOT_CONFIG")
	if def == "" {
		def = defaultConfigPath
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", def, "path to the config file (env TRADEBOT_CONFIG)")

	cmd.AddCommand(
		newRunCmd(opts),
		newPositionsCmd(opts),
		newClosedCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}
