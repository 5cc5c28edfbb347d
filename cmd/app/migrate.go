package main

import (
	"github.com/spf13/cobra"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/access"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/notify"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/seed"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/service"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(*cobra.Command, []string) error {
		db, err := storage.NewDB(cfg.DB)
		if err != nil {
			return err
		}
		return storage.Migrate(db)
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data from a YAML fixture",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fx, err := seed.Load(seedFile)
		if err != nil {
			return err
		}

		db, err := storage.NewDB(cfg.DB)
		if err != nil {
			return err
		}
		if err := storage.Migrate(db); err != nil {
			return err
		}
		repo := storage.NewRepository(db)

		// Seeding must not mail every team
		opportunities := service.NewManager(repo, access.NewResolver(access.FailClosed))
		feedback := service.NewFeedbackManager(repo, notify.LogNotifier{})

		_, err = seed.Apply(cmd.Context(), fx, opportunities, feedback)
		return err
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "config/seed.yaml", "path to the YAML fixture")
}
