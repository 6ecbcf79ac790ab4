package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/milk9111/levelkit/config"
	"github.com/milk9111/levelkit/prefabs"
)

type app struct {
	log        zerolog.Logger
	configPath string
	cfg        config.Config
	catalog    *prefabs.Catalog
}

func newRootCmd(log zerolog.Logger) *cobra.Command {
	a := &app{log: log}
	root := &cobra.Command{
		Use:           "leveltool",
		Short:         "Inspect and upgrade .yol level files",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "levelkit.yaml", "path to the config file")

	root.AddCommand(
		newUpgradeCmd(a),
		newCheckCmd(a),
		newDiffCmd(a),
		newIndexCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = a.log.Level(cfg.LoggerLevel())
	prefabs.Dir = cfg.PrefabsDir
	if a.catalog, err = prefabs.NewCatalog(cfg.AppFormatVersion); err != nil {
		return err
	}
	if prefabs.Overridden("archetypes.yaml") {
		a.log.Debug().Str("dir", prefabs.Dir).Msg("archetypes read from disk")
	}
	return nil
}
