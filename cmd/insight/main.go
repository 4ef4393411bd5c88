package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:   "insight",
		Short: "Evidence-gated narratives for regional metrics",
		Long: `insight turns a tabular dataset and a metric catalog into short,
evidence-backed narratives. Every sentence is produced by a rule whose
evidence gate passed; everything else is recorded in the audit dictionary.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newMetricsCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newDatasetsCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
