package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	path        TEXT PRIMARY KEY,
	source_hash TEXT NOT NULL,
	ingested_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS entities (
	position     INTEGER PRIMARY KEY,
	id           TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL DEFAULT '',
	features     TEXT NOT NULL DEFAULT 'null'
);

CREATE TABLE IF NOT EXISTS locations (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	data     TEXT NOT NULL DEFAULT 'null'
);

CREATE TABLE IF NOT EXISTS dialogues (
	position           INTEGER PRIMARY KEY,
	id                 TEXT NOT NULL,
	display_name       TEXT NOT NULL DEFAULT '',
	text               TEXT NOT NULL DEFAULT '',
	starting_fragments TEXT NOT NULL DEFAULT 'null'
);

CREATE TABLE IF NOT EXISTS pins (
	dialogue_position INTEGER NOT NULL REFERENCES dialogues(position) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	id                TEXT NOT NULL,
	semantic          TEXT NOT NULL,
	PRIMARY KEY (dialogue_position, position)
);

CREATE TABLE IF NOT EXISTS fragments (
	position     INTEGER PRIMARY KEY,
	id           TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL DEFAULT '',
	speaker_id   TEXT NOT NULL DEFAULT '',
	speaker_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS connections (
	position INTEGER PRIMARY KEY,
	source   TEXT NOT NULL,
	target   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_id ON entities (id);
CREATE INDEX IF NOT EXISTS idx_dialogues_id ON dialogues (id);
CREATE INDEX IF NOT EXISTS idx_fragments_id ON fragments (id);
CREATE INDEX IF NOT EXISTS idx_fragments_speaker ON fragments (speaker_id);
CREATE INDEX IF NOT EXISTS idx_connections_source ON connections (source);
CREATE INDEX IF NOT EXISTS idx_connections_target ON connections (target);

CREATE VIRTUAL TABLE IF NOT EXISTS texts_fts USING fts5(
	kind UNINDEXED,
	ref_id UNINDEXED,
	display_name,
	body
);
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
