package main

import (
	"github.com/spf13/cobra"

	"taskfed/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "taskfed",
	Short: "taskfed - federated task list storage",
	Long: `taskfed persists and serves hierarchical task lists across multiple
independently configured storage sources, with health-aware routing,
priority failover, and cross-source aggregation.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("taskfed version {{.Version}}\n")
}
