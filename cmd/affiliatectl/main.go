// Command affiliatectl runs operator tasks against the affiliate ledger
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/cache"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
)

// db is opened once in the root command's pre-run hook.
var db *gorm.DB

var rootCmd = &cobra.Command{
	Use:           "affiliatectl",
	Short:         "Operator tools for the AffiliateFox ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env.SetupEnvFile()
		cache.SetupCache()

		var err error
		db, err = database.Open()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db == nil {
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	},
}

func main() {
	rootCmd.AddCommand(
		newRecomputeCmd(),
		newSettleCmd(),
		newProcessEmailsCmd(),
		newFlushCountersCmd(),
		newExportCmd(),
		newWebhooksCmd(),
		newCreditsCmd(),
	)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
