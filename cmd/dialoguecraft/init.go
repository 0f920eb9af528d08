package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dialoguecraft/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var source string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new dialoguecraft project file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			if strings.TrimSpace(source) == "" {
				return fmt.Errorf("--source is required")
			}
			return runInit(cmd, projectName, source)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&source, "source", "", "Path of the interchange document, relative to the project file")
	return cmd
}

func runInit(cmd *cobra.Command, projectName, source string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if err := os.WriteFile(configPath, []byte(config.Template(projectName, source)), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", configPath)
	return nil
}
