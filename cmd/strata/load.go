package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/application/handlers"
)

type loadFlags struct {
	format     string
	naturalKey []string
	update     bool
	dryRun     bool
}

func newLoadCmd() *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load records from a fixture file",
		Long: "Loads records from a JSON, YAML or CSV fixture. Records matching an " +
			"existing record by id or natural key are skipped unless --update is given. " +
			"The load is all or nothing: if any record fails validation, nothing is applied.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, yaml, csv, auto)")
	cmd.Flags().StringSliceVar(&flags.naturalKey, "natural-key", nil, "Fields identifying records without an id")
	cmd.Flags().BoolVar(&flags.update, "update", false, "Overwrite matched records instead of skipping them")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")

	return cmd
}

func runLoad(cmd *cobra.Command, filePath string, flags loadFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		fmt.Printf("Loading %s...\n", filePath)

		result, err := d.LoadHandler.Handle(ctx, filePath, handlers.LoadOptions{
			Format:     flags.format,
			NaturalKey: flags.naturalKey,
			Update:     flags.update,
			DryRun:     flags.dryRun,
		})
		if err != nil {
			return fmt.Errorf("loading fixture: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Printf("\nValidation errors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", e)
			}
			return fmt.Errorf("fixture rejected, nothing applied")
		}

		if flags.dryRun {
			fmt.Printf("Dry run: %d records would be applied\n", result.Skipped)
			return nil
		}

		fmt.Printf("Created: %d, updated: %d, skipped: %d\n", result.Created, result.Updated, result.Skipped)
		return d.Persist(ctx)
	})
}
