package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/achibot/core/buildinfo"
	corecmd "github.com/m3rciful/achibot/core/cmd"
	"github.com/m3rciful/achibot/internal/app"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "achibot",
		Short:         "Telegram bot for browsing the ACHI and MKH-10 classifiers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		Version:       buildinfo.String(),
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        configPath,
				DefaultConfigPath: "config.yaml",
				LoadConfig:        app.LoadConfig,
				Bootstrap:         app.Bootstrap,
			})
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "config file (overrides $CONFIG_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	})
	return root
}
