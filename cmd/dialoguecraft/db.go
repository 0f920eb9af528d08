package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dialoguecraft/internal/config"
	"dialoguecraft/internal/document"
	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/store"
	"dialoguecraft/internal/store/postgres"
	"dialoguecraft/internal/store/sqlite"
)

func loadConfig() (*config.ProjectConfig, error) {
	return config.LoadProjectConfig(configPath)
}

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.DatabaseDSN()
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", dsn)
	}
}

// loadDocument builds the document from the database, or straight from the
// interchange file when fromSource is set.
func loadDocument(ctx context.Context, cfg *config.ProjectConfig, fromSource bool) (*flow.Document, []flow.Diagnostic, error) {
	var db store.Store
	if !fromSource {
		client, err := openDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		defer client.Close(ctx)
		db = client
	}

	src, err := readSource(ctx, cfg, db)
	if err != nil {
		return nil, nil, err
	}
	doc, diagnostics := flow.NewDocument(src, logger)
	return doc, diagnostics, nil
}

// readSource parses the interchange file when db is nil and loads the
// ingested document otherwise.
func readSource(ctx context.Context, cfg *config.ProjectConfig, db store.Store) (flow.Source, error) {
	if db == nil {
		src, err := document.ParseFile(cfg.SourcePath(), document.WithLanguage(cfg.Language))
		if err != nil {
			return flow.Source{}, fmt.Errorf("parsing %s: %w", cfg.SourcePath(), err)
		}
		return src, nil
	}

	if err := db.EnsureSchema(ctx); err != nil {
		return flow.Source{}, err
	}
	src, err := db.LoadSource(ctx)
	if errors.Is(err, store.ErrNoDocument) {
		return flow.Source{}, fmt.Errorf("%w: run `dialoguecraft ingest` first or pass --from-source", err)
	}
	return src, err
}
