package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dialoguecraft/internal/flow"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dialogues, fragments or speakers of the document",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dialogues",
		Short: "List dialogues and their starting fragments",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runList(cmd, listDialogues) },
	})

	var speaker string
	fragments := &cobra.Command{
		Use:   "fragments",
		Short: "List dialogue fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, func(cmd *cobra.Command, doc *flow.Document) {
				listFragments(cmd, doc, speaker)
			})
		},
	}
	fragments.Flags().StringVar(&speaker, "speaker", "", "Only fragments spoken by this speaker id or name")
	cmd.AddCommand(fragments)

	cmd.AddCommand(&cobra.Command{
		Use:   "speakers",
		Short: "List speaking entities",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runList(cmd, listSpeakers) },
	})
	return cmd
}

func runList(cmd *cobra.Command, show func(*cobra.Command, *flow.Document)) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	doc, _, err := loadDocument(ctx, cfg, fromSource)
	if err != nil {
		return err
	}
	show(cmd, doc)
	return nil
}

func listDialogues(cmd *cobra.Command, doc *flow.Document) {
	out := cmd.OutOrStdout()
	dialogues := doc.Dialogues()
	if len(dialogues) == 0 {
		fmt.Fprintln(out, "No dialogues found.")
		return
	}
	for _, d := range dialogues {
		starts := "-"
		if len(d.StartingFragmentIDs) > 0 {
			starts = strings.Join(d.StartingFragmentIDs, ", ")
		}
		fmt.Fprintf(out, "%s %q -> %s\n", d.ID, d.DisplayName, starts)
	}
}

func listFragments(cmd *cobra.Command, doc *flow.Document, speaker string) {
	out := cmd.OutOrStdout()
	found := false
	for _, f := range doc.Fragments() {
		if speaker != "" && f.SpeakerID != speaker && f.SpeakerName != speaker {
			continue
		}
		found = true
		fmt.Fprintf(out, "%s [%s] %s\n", f.ID, f.SpeakerName, f.Text)
	}
	if !found {
		fmt.Fprintln(out, "No fragments found.")
	}
}

func listSpeakers(cmd *cobra.Command, doc *flow.Document) {
	out := cmd.OutOrStdout()
	entities := doc.Entities()
	if len(entities) == 0 {
		fmt.Fprintln(out, "No speakers found.")
		return
	}
	for _, e := range entities {
		fmt.Fprintf(out, "%s %s\n", e.ID, e.DisplayName)
	}
}
