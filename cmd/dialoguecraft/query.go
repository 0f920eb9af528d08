package main

import "github.com/spf13/cobra"

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the ingested document in the database",
	}
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(querySQLCmd())
	return cmd
}
