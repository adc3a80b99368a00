package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"taskfed/internal/errors"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status [source-id]",
	Short: "Show per-source health",
	Long:  "Display health, priority, and failure counts for every configured source, or one source by id",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withEnvironment(func(ctx context.Context, env *environment) error {
		statuses := env.router.Status()

		if len(args) == 1 {
			filtered := statuses[:0]
			for _, s := range statuses {
				if s.ID == args[0] {
					filtered = append(filtered, s)
				}
			}
			if len(filtered) == 0 {
				return errors.Newf(errors.SourceNotFound, "source %q is not in the pool", args[0])
			}
			statuses = filtered
		}

		if statusFormat == "json" {
			data, err := json.MarshalIndent(statuses, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("%-12s %-10s %-8s %-8s %-9s %s\n", "SOURCE", "KIND", "PRIORITY", "HEALTHY", "FAILURES", "LAST CHECK")
		for _, s := range statuses {
			mode := ""
			if s.ReadOnly {
				mode = " (ro)"
			}
			fmt.Printf("%-12s %-10s %-8d %-8t %-9d %s%s\n",
				s.ID, s.Kind, s.Priority, s.Healthy, s.FailureCount,
				s.LastHealthCheck.Format("15:04:05"), mode)
		}
		return nil
	})
}
