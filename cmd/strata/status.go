package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration steps and their applied state",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		statuses, err := d.MigrateHandler.Status(ctx)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			fmt.Println("No migration steps registered.")
			return nil
		}

		for _, s := range statuses {
			marker := "[ ]"
			if s.Applied {
				marker = "[x]"
			}
			fmt.Printf("%s %s\n", marker, s.Name)
		}
		return nil
	})
}
