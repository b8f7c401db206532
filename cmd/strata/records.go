package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/application/handlers"
	"github.com/strata-db/strata/internal/domain/entities"
)

type recordsFlags struct {
	where    string
	order    string
	asJSON   bool
	deleteID string
	id       string
	related  string
}

func newRecordsCmd() *cobra.Command {
	var flags recordsFlags

	cmd := &cobra.Command{
		Use:   "records <entity>",
		Short: "List, filter or delete an entity's records",
		Long: "Lists an entity's records, optionally filtered with --where and " +
			"ordered with --order. With --delete the record is removed along with " +
			"everything that cascades from it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.where, "where", "", `Filter expression, e.g. "rating >= 4 and comment is not null"`)
	cmd.Flags().StringVar(&flags.order, "order", "", "Comma-separated order keys, '-' prefix for descending")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Output records as JSON")
	cmd.Flags().StringVar(&flags.deleteID, "delete", "", "Delete the record with this id")
	cmd.Flags().StringVar(&flags.id, "id", "", "Record id for --related")
	cmd.Flags().StringVar(&flags.related, "related", "", "Follow this relationship from the record named by --id")

	return cmd
}

func runRecords(cmd *cobra.Command, entity string, flags recordsFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		if flags.deleteID != "" {
			removed, err := d.RecordsHandler.Delete(ctx, entity, flags.deleteID)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d records\n", removed)
			return d.Persist(ctx)
		}

		var records []*entities.Record
		var err error
		if flags.related != "" {
			if flags.id == "" {
				return fmt.Errorf("--related requires --id")
			}
			records, err = d.RecordsHandler.Related(ctx, entity, flags.id, flags.related)
		} else {
			records, err = d.RecordsHandler.List(ctx, entity, handlers.ListOptions{
				Where: flags.where,
				Order: flags.order,
			})
		}
		if err != nil {
			return err
		}

		if flags.asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		if len(records) == 0 {
			fmt.Println("No records.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %s\n", rec.ID, formatValues(rec))
		}
		fmt.Printf("\n%d records\n", len(records))
		return nil
	})
}

// formatValues renders a record's values as "field=value" pairs in field
// name order.
func formatValues(rec *entities.Record) string {
	fields := make([]string, 0, len(rec.Values))
	for name := range rec.Values {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	out := ""
	for i, name := range fields {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", name, rec.Values[name])
	}
	return out
}
