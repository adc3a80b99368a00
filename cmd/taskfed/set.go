package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskfed/internal/router"
	"taskfed/internal/types"
)

var (
	setFile    string
	setTitle   string
	setProject string
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a task list",
	Long: `Persists a task list to the federation. Reads the full document from
--file, or creates a fresh empty list from --title.`,
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setFile, "file", "", "Path to a task list JSON document")
	setCmd.Flags().StringVar(&setTitle, "title", "", "Title for a new empty list")
	setCmd.Flags().StringVar(&setProject, "project", "", "Project tag for the list and routing")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	var list *types.TaskList

	switch {
	case setFile != "":
		data, err := os.ReadFile(setFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", setFile, err)
		}
		list = &types.TaskList{}
		if err := json.Unmarshal(data, list); err != nil {
			return fmt.Errorf("failed to decode %s: %w", setFile, err)
		}
		if list.ID == "" {
			return fmt.Errorf("document in %s has no id", setFile)
		}
		list.UpdatedAt = time.Now().UTC()
	case setTitle != "":
		list = types.NewTaskList(setTitle)
	default:
		return fmt.Errorf("either --file or --title is required")
	}

	if setProject != "" {
		list.ProjectTag = setProject
	}

	return withEnvironment(func(ctx context.Context, env *environment) error {
		_, err := env.router.Route(ctx, router.Operation{
			Kind: router.OpWrite,
			Key:  list.ID,
			List: list,
		}, router.RouteContext{ProjectTag: list.ProjectTag})
		if err != nil {
			return err
		}
		fmt.Printf("Saved list %s\n", list.ID)
		return nil
	})
}
