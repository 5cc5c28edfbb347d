package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/config"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
)

var cfg *config.Configuration

var rootCmd = &cobra.Command{
	Use:           "plm",
	Short:         "Product lifecycle dashboard backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Log); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		gin.SetMode(cfg.GinMode)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Close()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
