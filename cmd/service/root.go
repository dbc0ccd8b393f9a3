package main

import (
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"playback-service/internal/config"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:          "playback-service",
		Short:        "Music search, stream resolution and a shared playback session",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Setup(v, configFile)
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a config file (yaml, toml or json)")

	root.PersistentFlags().String("log-level", "info", "Log level")
	lo.Must0(v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level")))

	root.AddCommand(newServeCmd(v), newConfigCmd(v))
	return root
}
