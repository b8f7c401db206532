package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/application/handlers"
)

type migrateFlags struct {
	to   string
	fake bool
	plan bool
}

func newMigrateCmd() *cobra.Command {
	var flags migrateFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migration steps",
		Long: "Runs every registered migration step that has not been applied yet, " +
			"in dependency order, recording each in the migration ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.to, "to", "", "Stop after this step")
	cmd.Flags().BoolVar(&flags.fake, "fake", false, "Mark steps as applied without running them")
	cmd.Flags().BoolVar(&flags.plan, "plan", false, "Print the execution order without applying")

	return cmd
}

func runMigrate(cmd *cobra.Command, flags migrateFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		if flags.plan {
			names, err := d.MigrateHandler.Plan()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}

		applied, err := d.MigrateHandler.Apply(ctx, handlers.MigrateOptions{
			To:   flags.to,
			Fake: flags.fake,
		})
		if err != nil {
			return err
		}

		if len(applied) == 0 {
			fmt.Println("Nothing to apply.")
			return nil
		}
		for _, name := range applied {
			fmt.Printf("Applied %s\n", name)
		}
		return nil
	})
}
