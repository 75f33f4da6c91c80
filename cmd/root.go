package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joehsn/formify/config"
	"github.com/joehsn/formify/log"
)

// cli holds the settings shared by every subcommand of one command tree.
type cli struct {
	cfg        config.Config
	configPath string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	serve := c.serveCmd()

	root := &cobra.Command{
		Use:   "formify",
		Short: "Form builder and response collection service",
		Long: `formify - build forms, publish them and collect validated responses.

Settings come from defaults, then the optional --config YAML file, then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Resolve(cmd.Flags(), c.configPath); err != nil {
				return err
			}
			if c.cfg.Debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		RunE: serve.RunE,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")
	c.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(serve, c.migrateCmd(), c.userCmd())
	return root
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
