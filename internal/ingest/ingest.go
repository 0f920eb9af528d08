package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"dialoguecraft/internal/config"
	"dialoguecraft/internal/document"
	"dialoguecraft/internal/flow"
)

// Store is the part of store.Store the ingest pipeline needs.
type Store interface {
	EnsureSchema(ctx context.Context) error
	SourceHash(ctx context.Context, path string) (string, error)
	ReplaceDocument(ctx context.Context, path, hash string, src flow.Source) error
}

type Result struct {
	Path        string
	Hash        string
	Skipped     bool
	Entities    int
	Locations   int
	Dialogues   int
	Fragments   int
	Connections int
	Diagnostics []flow.Diagnostic
}

type Options struct {
	Full     bool
	Language string
	Logger   *slog.Logger
}

// Run parses the project's interchange document and stores it, unless the
// stored hash shows the file is unchanged and Full is not set.
func Run(ctx context.Context, cfg *config.ProjectConfig, db Store, options Options) (*Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	path := cfg.SourcePath()
	result := &Result{Path: path}

	hash, err := computeHash(path)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	result.Hash = hash

	if !options.Full {
		existing, err := db.SourceHash(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("get source hash: %w", err)
		}
		if existing == hash {
			logger.Info("document unchanged, skipping", "path", path)
			result.Skipped = true
			return result, nil
		}
	}

	src, err := document.ParseFile(path, document.WithLanguage(options.Language))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Built only to surface problems early; the store keeps the raw source.
	_, result.Diagnostics = flow.NewDocument(src, logger)

	if err := db.ReplaceDocument(ctx, path, hash, src); err != nil {
		return nil, fmt.Errorf("storing %s: %w", path, err)
	}

	result.Entities = len(src.Entities)
	result.Locations = len(src.Locations)
	result.Dialogues = len(src.Dialogues)
	result.Fragments = len(src.Fragments)
	result.Connections = len(src.Connections)

	logger.Info("document ingested",
		"path", path,
		"dialogues", result.Dialogues,
		"fragments", result.Fragments,
		"connections", result.Connections,
		"diagnostics", len(result.Diagnostics),
	)
	return result, nil
}

func computeHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
