package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskfed/internal/aggregator"
	"taskfed/internal/types"
	"taskfed/internal/version"
)

var (
	exportFormat  string
	exportOutput  string
	exportProject string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all task lists to a single document",
	Long: `Aggregates every task list reachable through healthy sources and
writes them as one YAML or JSON document, suitable for backup or
migration into another tool.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "Output format (yaml, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportProject, "project", "", "Export only lists with this project tag")
	rootCmd.AddCommand(exportCmd)
}

// exportDocument is the top-level shape of an export file
type exportDocument struct {
	Version string            `json:"version" yaml:"version"`
	Count   int               `json:"count" yaml:"count"`
	Lists   []*types.TaskList `json:"lists" yaml:"lists"`
}

func runExport(cmd *cobra.Command, args []string) error {
	return withEnvironment(func(ctx context.Context, env *environment) error {
		result, err := env.agg.AggregateLists(ctx, env.router.HealthySources(), aggregator.Query{
			ProjectTag: exportProject,
			SortBy:     aggregator.SortTitle,
		})
		if err != nil {
			return err
		}

		doc := exportDocument{
			Version: version.Version,
			Count:   len(result.Items),
			Lists:   result.Items,
		}

		var data []byte
		switch exportFormat {
		case "json":
			data, err = json.MarshalIndent(doc, "", "  ")
		case "yaml", "yml":
			data, err = yaml.Marshal(doc)
		default:
			return fmt.Errorf("unsupported export format %q (expected yaml or json)", exportFormat)
		}
		if err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}

		if exportOutput == "" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(exportOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}
		fmt.Printf("Exported %d lists to %s\n", doc.Count, exportOutput)
		return nil
	})
}
