package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dialoguecraft/internal/validate"
)

var errValidationFailed = errors.New("validation found errors")

func validateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run consistency checks against the dialogue graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, asJSON bool) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	doc, diagnostics, err := loadDocument(ctx, cfg, fromSource)
	if err != nil {
		return err
	}
	report, err := validate.Run(doc, diagnostics)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if report.HasErrors() {
		return errValidationFailed
	}
	return nil
}

func printReport(out io.Writer, report *validate.Report) {
	if len(report.Issues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return
	}

	bySeverity := map[validate.Severity][]validate.Issue{}
	for _, issue := range report.Issues {
		bySeverity[issue.Severity] = append(bySeverity[issue.Severity], issue)
	}

	sections := []struct {
		title    string
		severity validate.Severity
	}{
		{"Errors", validate.SeverityError},
		{"Warnings", validate.SeverityWarn},
	}
	printed := 0
	for _, section := range sections {
		issues := bySeverity[section.severity]
		if len(issues) == 0 {
			continue
		}
		if printed > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%d):\n", section.title, len(issues))
		for _, issue := range issues {
			subject := issue.ID
			if issue.Kind != "" {
				subject = issue.Kind + " " + issue.ID
			}
			fmt.Fprintf(out, "  - %s: %s (%s)\n", subject, issue.Message, issue.Code)
		}
		printed++
	}
}
