package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/infrastructure/config"
	"github.com/strata-db/strata/internal/infrastructure/snapshot/sqlite"
)

type bootstrapFlags struct {
	demo bool
}

func newBootstrapCmd() *cobra.Command {
	var flags bootstrapFlags

	cmd := &cobra.Command{
		Use:   "bootstrap [schema.yaml]",
		Short: "Install a schema and prepare the snapshot database",
		Long: "Validates a schema file, copies it into the .strata directory and " +
			"creates the snapshot database. With --demo the built-in demo schema " +
			"is installed instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath := ""
			if len(args) > 0 {
				schemaPath = args[0]
			}
			return runBootstrap(cmd, schemaPath, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.demo, "demo", false, "Install the built-in demo schema")

	return cmd
}

func runBootstrap(cmd *cobra.Command, schemaPath string, flags bootstrapFlags) error {
	ctx := cmd.Context()

	if flags.demo == (schemaPath != "") {
		return fmt.Errorf("provide either a schema file or --demo")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	var data []byte
	if flags.demo {
		data = []byte(config.DemoSchemaYAML)
	} else {
		data, err = os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("reading schema file: %w", err)
		}
	}

	// Validate before installing anything.
	registry, err := config.BuildRegistryFromYAML(data)
	if err != nil {
		return fmt.Errorf("validating schema: %w", err)
	}

	if err := config.WriteSchema(cwd, data); err != nil {
		return err
	}
	fmt.Printf("Installed schema with %d entities\n", len(registry.Entities()))

	snapshot, err := sqlite.NewRepository(cfg.SnapshotPath(cwd), nil)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer snapshot.Close()

	if err := snapshot.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring snapshot schema: %w", err)
	}

	fmt.Printf("Snapshot database ready: %s\n", snapshot.Path())
	return nil
}
