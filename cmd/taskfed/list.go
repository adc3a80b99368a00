package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskfed/internal/aggregator"
)

var (
	listQuery     string
	listProject   string
	listStatus    string
	listSortBy    string
	listDesc      bool
	listOffset    int
	listLimit     int
	listFull      bool
	listFormatVal string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Query task lists across all healthy sources",
	Long: `Fans the query out to every healthy source, reconciles records that
exist in more than one source, and prints the filtered, sorted,
paginated result.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Text to match against title and description")
	listCmd.Flags().StringVar(&listProject, "project", "", "Filter by project tag")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by list status (active, completed)")
	listCmd.Flags().StringVar(&listSortBy, "sort", "updatedAt", "Sort field (title, createdAt, updatedAt, status)")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "Sort in descending order")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of results to skip")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of results (0 for all)")
	listCmd.Flags().BoolVar(&listFull, "full", false, "Print full documents instead of summaries")
	listCmd.Flags().StringVar(&listFormatVal, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withEnvironment(func(ctx context.Context, env *environment) error {
		q := aggregator.Query{
			Text:       listQuery,
			ProjectTag: listProject,
			Status:     listStatus,
			SortBy:     aggregator.SortField(listSortBy),
			Descending: listDesc,
			Offset:     listOffset,
			Limit:      listLimit,
		}

		sources := env.router.HealthySources()

		if listFull {
			result, err := env.agg.AggregateLists(ctx, sources, q)
			if err != nil {
				return err
			}
			if listFormatVal == "json" {
				return printJSON(result)
			}
			for _, list := range result.Items {
				fmt.Printf("%s  %-30s %3d%%  %d tasks\n",
					list.ID, truncate(list.Title, 30), list.Progress(), len(list.Tasks))
			}
			printPageFooter(len(result.Items), result.TotalCount, result.HasMore)
			return nil
		}

		result, err := env.agg.AggregateSummaries(ctx, sources, q)
		if err != nil {
			return err
		}
		if listFormatVal == "json" {
			return printJSON(result)
		}
		fmt.Printf("%-36s %-30s %-12s %8s %9s\n", "ID", "TITLE", "PROJECT", "PROGRESS", "TASKS")
		for _, s := range result.Items {
			fmt.Printf("%-36s %-30s %-12s %7d%% %4d/%-4d\n",
				s.ID, truncate(s.Title, 30), s.ProjectTag, s.Progress, s.CompletedCount, s.TaskCount)
		}
		printPageFooter(len(result.Items), result.TotalCount, result.HasMore)
		return nil
	})
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printPageFooter(shown, total int, hasMore bool) {
	if hasMore {
		fmt.Printf("\nShowing %d of %d (use --offset/--limit to page)\n", shown, total)
	} else if shown < total {
		fmt.Printf("\nShowing %d of %d\n", shown, total)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return strings.TrimRight(s[:max-3], " ") + "..."
}
