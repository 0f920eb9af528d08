package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dialoguecraft/internal/ingest"
)

var ingestFull bool

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store the interchange document in the database",
		RunE:  runIngest,
	}
	cmd.Flags().BoolVar(&ingestFull, "full", false, "Re-ingest even when the document is unchanged")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := ingest.Run(ctx, cfg, db, ingest.Options{
		Full:     ingestFull,
		Language: cfg.Language,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Skipped {
		fmt.Fprintf(out, "%s is unchanged, nothing to do.\n", result.Path)
		return nil
	}

	fmt.Fprintln(out, "Ingestion complete.")
	fmt.Fprintf(out, "  Entities:    %d\n", result.Entities)
	fmt.Fprintf(out, "  Locations:   %d\n", result.Locations)
	fmt.Fprintf(out, "  Dialogues:   %d\n", result.Dialogues)
	fmt.Fprintf(out, "  Fragments:   %d\n", result.Fragments)
	fmt.Fprintf(out, "  Connections: %d\n", result.Connections)

	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(out, "\nDiagnostics (%d):\n", len(result.Diagnostics))
		for _, d := range result.Diagnostics {
			fmt.Fprintf(out, "  - %s (%s)\n", d.Message, d.Code)
		}
	}
	return nil
}
