package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taskfed/internal/router"
)

var (
	deletePermanent bool
	deleteProject   string
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task list by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deletePermanent, "permanent", false, "Remove the list unrecoverably")
	deleteCmd.Flags().StringVar(&deleteProject, "project", "", "Project tag routing hint")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withEnvironment(func(ctx context.Context, env *environment) error {
		_, err := env.router.Route(ctx, router.Operation{
			Kind:      router.OpDelete,
			Key:       args[0],
			Permanent: deletePermanent,
		}, router.RouteContext{ProjectTag: deleteProject})
		if err != nil {
			return err
		}
		fmt.Printf("Deleted list %s\n", args[0])
		return nil
	})
}
