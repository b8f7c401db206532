package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/application/handlers"
)

type dumpFlags struct {
	format     string
	output     string
	naturalKey []string
}

func newDumpCmd() *cobra.Command {
	var flags dumpFlags

	cmd := &cobra.Command{
		Use:   "dump <entity>",
		Short: "Dump an entity's records as a fixture",
		Long:  "Writes every record of an entity to stdout or a file, in fixture form.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, yaml, csv)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default stdout, format from extension)")
	cmd.Flags().StringSliceVar(&flags.naturalKey, "natural-key", nil, "Sort output by these fields for deterministic dumps")

	return cmd
}

func runDump(cmd *cobra.Command, entity string, flags dumpFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		if flags.output != "" {
			n, err := d.DumpHandler.HandleFile(ctx, flags.output, entity, flags.naturalKey)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d records to %s\n", n, flags.output)
			return nil
		}

		_, err := d.DumpHandler.Handle(ctx, os.Stdout, entity, handlers.DumpOptions{
			Format:  flags.format,
			OrderBy: flags.naturalKey,
		})
		return err
	})
}
