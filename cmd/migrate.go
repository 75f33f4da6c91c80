package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/log"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(c.cfg)
			if err != nil {
				return err
			}
			log.Infof("Database %s is up to date", c.cfg.DBUrl)
			return db.Close()
		},
	}
}
