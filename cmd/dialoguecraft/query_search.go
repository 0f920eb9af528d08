package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func querySearchCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search over dialogue, fragment and speaker text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySearch(cmd, strings.Join(args, " "), kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Restrict to dialogue, fragment or entity")
	return cmd
}

func runQuerySearch(cmd *cobra.Command, query, kind string) error {
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

	results, err := db.Search(ctx, query, kind)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches found.")
		return nil
	}

	for _, result := range results {
		fmt.Fprintf(out, "%s %s (%s) score=%.2f\n", result.Kind, result.ID, result.DisplayName, result.Score)
		if result.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", result.Snippet)
		}
	}
	return nil
}
