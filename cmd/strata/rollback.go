package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [step]",
		Short: "Revert applied migration steps",
		Long: "Reverts applied steps in reverse order until only the named step " +
			"and its predecessors remain applied. Without a step name everything " +
			"is reverted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := ""
			if len(args) > 0 {
				to = args[0]
			}
			return runRollback(cmd, to)
		},
	}
}

func runRollback(cmd *cobra.Command, to string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		reverted, err := d.MigrateHandler.Rollback(ctx, to)
		if err != nil {
			return err
		}

		if len(reverted) == 0 {
			fmt.Println("Nothing to revert.")
			return nil
		}
		for _, name := range reverted {
			fmt.Printf("Reverted %s\n", name)
		}
		return nil
	})
}
