package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dialoguecraft/internal/config"
	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/metrics"
)

type extractOptions struct {
	json      bool
	condensed bool
	locations bool
	variant   int
}

func extractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Linearize dialogues or explain how fragments are reached",
	}
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print the full collection as JSON")
	cmd.PersistentFlags().BoolVar(&opts.condensed, "condensed", false, "Print the condensed collection as JSON")
	cmd.PersistentFlags().BoolVar(&opts.locations, "locations", false, "Include every location in JSON output")
	cmd.PersistentFlags().IntVar(&opts.variant, "variant", -1, "Localized variant kept by --condensed (default from the project file)")

	cmd.AddCommand(&cobra.Command{
		Use:   "dialogue <id>...",
		Short: "Extract one flow per starting fragment of each dialogue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fragment <id>...",
		Short: "Extract the messages leading to each fragment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, nil, args)
		},
	})
	return cmd
}

func runExtract(cmd *cobra.Command, opts *extractOptions, dialogueIDs, fragmentIDs []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	doc, _, err := loadDocument(ctx, cfg, fromSource)
	if err != nil {
		return err
	}

	collection, missing, err := collect(doc, cfg, dialogueIDs, fragmentIDs)
	if err != nil {
		return err
	}
	if err := writeCollection(cmd.OutOrStdout(), opts, cfg, doc, collection); err != nil {
		return err
	}
	// unknown ids are reported on stderr after the found flows
	return errors.Join(missing...)
}

func writeCollection(out io.Writer, opts *extractOptions, cfg *config.ProjectConfig, doc *flow.Document, collection *flow.Collection) error {
	if opts.locations {
		collection.IncludeLocations(doc)
	}

	switch {
	case opts.condensed:
		variant := cfg.ExportVariant()
		if opts.variant >= 0 {
			variant = opts.variant
		}
		return writeJSON(out, flow.Condense(collection, variant))
	case opts.json:
		return writeJSON(out, collection)
	default:
		printTranscript(out, collection)
		return nil
	}
}

// collect extracts every requested id. Ids missing from the document are
// returned in missing and do not stop the others.
func collect(doc *flow.Document, cfg *config.ProjectConfig, dialogueIDs, fragmentIDs []string) (_ *flow.Collection, missing []error, _ error) {
	extractor := flow.NewExtractor(doc, flow.WithLogger(logger), flow.WithMaxNodes(cfg.Traversal.MaxNodes))
	collection := flow.NewCollection()

	for _, id := range dialogueIDs {
		result, err := extractor.ExtractDialogueFlow(id)
		metrics.ObserveDialogueFlow(result)
		switch {
		case errors.Is(err, flow.ErrNotFound):
			missing = append(missing, err)
		case err != nil:
			return nil, nil, err
		default:
			collection.AddDialogueFlow(result)
		}
	}
	for _, id := range fragmentIDs {
		result, err := extractor.ExtractFragmentFlow(id)
		metrics.ObserveFragmentFlow(result)
		switch {
		case errors.Is(err, flow.ErrNotFound):
			missing = append(missing, err)
		case err != nil:
			return nil, nil, err
		default:
			collection.AddFragmentFlow(result)
		}
	}
	return collection, missing, nil
}

func printTranscript(out io.Writer, collection *flow.Collection) {
	if len(collection.Dialogues) == 0 {
		fmt.Fprintln(out, "No messages.")
		return
	}
	for i, entry := range collection.Dialogues {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if entry.DialogueID != "" {
			fmt.Fprintf(out, "== %s %s ==\n\n", entry.DialogueID, entry.DisplayName)
		} else {
			fmt.Fprintf(out, "== %s ==\n\n", entry.FragmentID)
		}
		fmt.Fprint(out, flow.Transcript([]flow.FlowEntry{entry}))
	}
}

func writeJSON(out io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(out, string(payload))
	return nil
}
