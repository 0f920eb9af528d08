package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dialoguecraft/internal/config"
	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/validate"
)

func TestParseParamPairs(t *testing.T) {
	params, err := parseParamPairs([]string{"1=E1", " 2 = Ada ", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params["1"] != "E1" || params["2"] != "Ada" || len(params) != 2 {
		t.Fatalf("unexpected params %v", params)
	}

	for _, pairs := range [][]string{{"novalue"}, {"=x"}, {"1=a", "1=b"}} {
		if _, err := parseParamPairs(pairs); err == nil {
			t.Fatalf("expected error for %q", pairs)
		}
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Fatalf("level %s: unexpected error: %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestExtractFromSource(t *testing.T) {
	dir := t.TempDir()
	source := `
dialogues:
  - id: D1
    display_name: Arrival
    pins:
      - id: D1-out
        semantic: Output
fragments:
  - id: F1
    display_name: 'Ada: "Ahoy"'
    text: Ahoy.
  - id: F2
    display_name: 'Brom: "Hey"'
    text: Well met.
connections:
  - source: D1-out
    target: F1
  - source: F1
    target: F2
`
	if err := os.WriteFile(filepath.Join(dir, "flows.yaml"), []byte(source), 0o600); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	path := filepath.Join(dir, config.DefaultFileName)
	if err := os.WriteFile(path, []byte(config.Template("harbour", "flows.yaml")), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := config.LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _, err := loadDocument(context.Background(), cfg, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	collection, missing, err := collect(doc, cfg, []string{"D1"}, []string{"F2"})
	if err != nil || len(missing) != 0 {
		t.Fatalf("unexpected error: %v, missing %v", err, missing)
	}

	var out bytes.Buffer
	printTranscript(&out, collection)
	want := "== D1 Arrival ==\n\nAda: Ahoy.\n\nBrom: Well met.\n\n\n== F2 ==\n\nAda: Ahoy.\n\nBrom: Well met.\n\n"
	if out.String() != want {
		t.Fatalf("unexpected transcript:\n%q\nwant\n%q", out.String(), want)
	}

	collection, missing, err = collect(doc, cfg, []string{"D_unknown", "D1"}, []string{"F_unknown"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collection.Dialogues) != 1 || collection.Dialogues[0].DialogueID != "D1" {
		t.Fatalf("expected D1 to be extracted, got %+v", collection.Dialogues)
	}
	if len(missing) != 2 || !errors.Is(errors.Join(missing...), flow.ErrNotFound) {
		t.Fatalf("expected two not found errors, got %v", missing)
	}
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, &validate.Report{Issues: []validate.Issue{
		{Severity: validate.SeverityWarn, Code: "unreachable_fragment", Message: "fragment F3 is not reachable", Kind: "fragment", ID: "F3"},
		{Severity: validate.SeverityError, Code: "duplicate_id", Message: "duplicate id F1", ID: "F1"},
	}})

	want := "Errors (1):\n  - F1: duplicate id F1 (duplicate_id)\n\n" +
		"Warnings (1):\n  - fragment F3: fragment F3 is not reachable (unreachable_fragment)\n"
	if out.String() != want {
		t.Fatalf("unexpected report:\n%s", out.String())
	}

	out.Reset()
	printReport(&out, &validate.Report{})
	if out.String() != "No issues found.\n" {
		t.Fatalf("unexpected empty report %q", out.String())
	}
}
