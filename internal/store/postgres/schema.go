package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// One multi-statement Exec runs in an implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS documents (
    path        TEXT PRIMARY KEY,
    source_hash TEXT NOT NULL,
    ingested_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entities (
    position     INTEGER PRIMARY KEY,
    id           TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    text         TEXT NOT NULL DEFAULT '',
    features     JSONB
);

CREATE TABLE IF NOT EXISTS locations (
    position INTEGER PRIMARY KEY,
    id       TEXT NOT NULL,
    name     TEXT NOT NULL DEFAULT '',
    data     JSONB
);

CREATE TABLE IF NOT EXISTS dialogues (
    position           INTEGER PRIMARY KEY,
    id                 TEXT NOT NULL,
    display_name       TEXT NOT NULL DEFAULT '',
    text               TEXT NOT NULL DEFAULT '',
    starting_fragments TEXT[]
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

CREATE TABLE IF NOT EXISTS texts (
    kind          TEXT NOT NULL,
    ref_id        TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT '',
    body          TEXT NOT NULL DEFAULT '',
    search_vector TSVECTOR
);

CREATE INDEX IF NOT EXISTS idx_entities_id ON entities (id);
CREATE INDEX IF NOT EXISTS idx_dialogues_id ON dialogues (id);
CREATE INDEX IF NOT EXISTS idx_fragments_id ON fragments (id);
CREATE INDEX IF NOT EXISTS idx_fragments_speaker ON fragments (speaker_id);
CREATE INDEX IF NOT EXISTS idx_connections_source ON connections (source);
CREATE INDEX IF NOT EXISTS idx_connections_target ON connections (target);
CREATE INDEX IF NOT EXISTS idx_texts_search ON texts USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_texts_kind ON texts (kind);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
