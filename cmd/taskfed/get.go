package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"taskfed/internal/errors"
	"taskfed/internal/router"
)

var getProject string

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Load a task list by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVar(&getProject, "project", "", "Project tag routing hint")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	return withEnvironment(func(ctx context.Context, env *environment) error {
		list, err := env.router.Route(ctx, router.Operation{
			Kind: router.OpRead,
			Key:  args[0],
		}, router.RouteContext{ProjectTag: getProject})
		if err != nil {
			return err
		}
		if list == nil {
			return errors.Newf(errors.RecordNotFound, "no source holds list %q", args[0])
		}

		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	})
}
