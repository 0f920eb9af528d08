package store

import (
	"context"

	"dialoguecraft/internal/flow"
)

// Store persists the parsed content of one interchange document. A database
// holds a single document at a time; ReplaceDocument swaps it atomically.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// SourceHash returns the hash recorded for path, or "" when the document
	// was never ingested.
	SourceHash(ctx context.Context, path string) (string, error)
	ReplaceDocument(ctx context.Context, path, hash string, src flow.Source) error
	LoadSource(ctx context.Context) (flow.Source, error)

	Search(ctx context.Context, query, kind string) ([]SearchResult, error)
	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
