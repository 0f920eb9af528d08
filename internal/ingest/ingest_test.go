package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dialoguecraft/internal/config"
	"dialoguecraft/internal/document"
	"dialoguecraft/internal/flow"
)

type mockStore struct {
	ensureCalled bool
	hashes       map[string]string
	replaced     []flow.Source
	failReplace  bool
}

func (m *mockStore) EnsureSchema(ctx context.Context) error {
	m.ensureCalled = true
	return nil
}

func (m *mockStore) SourceHash(ctx context.Context, path string) (string, error) {
	return m.hashes[path], nil
}

func (m *mockStore) ReplaceDocument(ctx context.Context, path, hash string, src flow.Source) error {
	if m.failReplace {
		return errors.New("forced error")
	}
	if m.hashes == nil {
		m.hashes = make(map[string]string)
	}
	m.hashes[path] = hash
	m.replaced = append(m.replaced, src)
	return nil
}

const testDocument = `
entities:
  - id: E1
    display_name: Ada
dialogues:
  - id: D1
    pins:
      - id: D1-out
        semantic: Output
fragments:
  - id: F1
    text: Ahoy.
    speaker: E1
  - id: F2
    text: Who goes there?
    speaker: E9
connections:
  - source: D1-out
    target: F1
  - source: F1
    target: F2
  - source: F2
    target: pin-nowhere
`

func testProjectConfig(t *testing.T, contents string) *config.ProjectConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flows.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	return &config.ProjectConfig{Project: "test", Version: 1, Source: path}
}

func TestRun_BasicIngestion(t *testing.T) {
	cfg := testProjectConfig(t, testDocument)
	db := &mockStore{}

	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !db.ensureCalled {
		t.Fatalf("expected ensure schema")
	}
	if len(db.replaced) != 1 {
		t.Fatalf("expected one stored document, got %d", len(db.replaced))
	}
	if result.Skipped {
		t.Fatalf("first ingest must not be skipped")
	}
	if result.Dialogues != 1 || result.Fragments != 2 || result.Connections != 3 || result.Entities != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if len(result.Hash) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", result.Hash)
	}
}

func TestRun_SkipsUnchanged(t *testing.T) {
	cfg := testProjectConfig(t, testDocument)
	db := &mockStore{}

	if _, err := Run(context.Background(), cfg, db, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected unchanged document to be skipped")
	}
	if len(db.replaced) != 1 {
		t.Fatalf("expected no second write, got %d", len(db.replaced))
	}

	result, err = Run(context.Background(), cfg, db, Options{Full: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Skipped || len(db.replaced) != 2 {
		t.Fatalf("full ingest must rewrite the document")
	}
}

func TestRun_ChangedDocument(t *testing.T) {
	cfg := testProjectConfig(t, testDocument)
	db := &mockStore{}

	if _, err := Run(context.Background(), cfg, db, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := os.WriteFile(cfg.SourcePath(), []byte(testDocument+"  - source: F1\n    target: F1\n"), 0o600); err != nil {
		t.Fatalf("rewriting document: %v", err)
	}
	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Skipped || result.Connections != 4 {
		t.Fatalf("expected changed document to be stored, got %+v", result)
	}
}

func TestRun_ReportsDiagnostics(t *testing.T) {
	cfg := testProjectConfig(t, testDocument+"  - source: D1-out\n    target: pin-other\n")
	result, err := Run(context.Background(), cfg, &mockStore{}, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	found := false
	for _, d := range result.Diagnostics {
		if d.Code == flow.CodeDanglingReference && d.ID == "pin-other" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dangling pin target diagnostic, got %+v", result.Diagnostics)
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("parse error", func(t *testing.T) {
		cfg := testProjectConfig(t, "entities: []\n")
		_, err := Run(context.Background(), cfg, &mockStore{}, Options{})
		if !errors.Is(err, document.ErrEmptyDocument) {
			t.Fatalf("expected ErrEmptyDocument, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := &config.ProjectConfig{Source: filepath.Join(t.TempDir(), "missing.yaml")}
		if _, err := Run(context.Background(), cfg, &mockStore{}, Options{}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("store error", func(t *testing.T) {
		cfg := testProjectConfig(t, testDocument)
		if _, err := Run(context.Background(), cfg, &mockStore{failReplace: true}, Options{}); err == nil {
			t.Fatalf("expected error")
		}
	})
}
