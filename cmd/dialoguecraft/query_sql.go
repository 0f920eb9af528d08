package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func querySQLCmd() *cobra.Command {
	var paramPairs []string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Execute a read-only SQL query against the document tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			params, err := parseParamPairs(paramPairs)
			if err != nil {
				return err
			}
			return runSQL(cmd, query, params)
		},
	}
	cmd.Flags().StringArrayVar(&paramPairs, "param", nil, "Positional parameter as N=value, 1-based (repeatable)")
	return cmd
}

func runSQL(cmd *cobra.Command, query string, params map[string]any) error {
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

	rows, err := db.RunSQL(ctx, query, params)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), rows)
}

// parseParamPairs turns repeated --param N=value flags into the
// position-keyed map the stores bind from.
func parseParamPairs(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		position, value, found := strings.Cut(pair, "=")
		position = strings.TrimSpace(position)
		switch {
		case !found:
			return nil, fmt.Errorf("--param %q: missing '='", pair)
		case position == "":
			return nil, fmt.Errorf("--param %q: missing position", pair)
		}
		if _, dup := params[position]; dup {
			return nil, fmt.Errorf("--param %q: position %s given twice", pair, position)
		}
		params[position] = strings.TrimSpace(value)
	}
	return params, nil
}
