package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/store"
)

func (c *Client) SourceHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := c.db.QueryRowContext(ctx, `SELECT source_hash FROM documents WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting source hash: %w", err)
	}
	return hash, nil
}

func (c *Client) ReplaceDocument(ctx context.Context, path, hash string, src flow.Source) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"texts_fts", "connections", "pins", "fragments", "dialogues", "locations", "entities", "documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO documents (path, source_hash) VALUES (?, ?)`, path, hash); err != nil {
		return fmt.Errorf("recording document: %w", err)
	}

	for i, e := range src.Entities {
		features, err := json.Marshal(e.Features)
		if err != nil {
			return fmt.Errorf("marshaling features of %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (position, id, display_name, text, features) VALUES (?, ?, ?, ?, ?)`,
			i, e.ID, e.DisplayName, e.Text, string(features)); err != nil {
			return fmt.Errorf("inserting entity %s: %w", e.ID, err)
		}
		if err := insertText(ctx, tx, store.KindEntity, e.ID, e.DisplayName, e.Text); err != nil {
			return err
		}
	}

	for i, l := range src.Locations {
		data, err := json.Marshal(l.Data)
		if err != nil {
			return fmt.Errorf("marshaling data of location %s: %w", l.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO locations (position, id, name, data) VALUES (?, ?, ?, ?)`,
			i, l.ID, l.Name, string(data)); err != nil {
			return fmt.Errorf("inserting location %s: %w", l.ID, err)
		}
	}

	for i, d := range src.Dialogues {
		starting, err := json.Marshal(d.StartingFragmentIDs)
		if err != nil {
			return fmt.Errorf("marshaling starting fragments of %s: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dialogues (position, id, display_name, text, starting_fragments) VALUES (?, ?, ?, ?, ?)`,
			i, d.ID, d.DisplayName, d.Text, string(starting)); err != nil {
			return fmt.Errorf("inserting dialogue %s: %w", d.ID, err)
		}
		for j, pin := range d.Pins {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pins (dialogue_position, position, id, semantic) VALUES (?, ?, ?, ?)`,
				i, j, pin.ID, string(pin.Semantic)); err != nil {
				return fmt.Errorf("inserting pin %s: %w", pin.ID, err)
			}
		}
		if err := insertText(ctx, tx, store.KindDialogue, d.ID, d.DisplayName, d.Text); err != nil {
			return err
		}
	}

	for i, f := range src.Fragments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fragments (position, id, display_name, text, speaker_id, speaker_name) VALUES (?, ?, ?, ?, ?, ?)`,
			i, f.ID, f.DisplayName, f.Text, f.SpeakerID, f.SpeakerName); err != nil {
			return fmt.Errorf("inserting fragment %s: %w", f.ID, err)
		}
		if err := insertText(ctx, tx, store.KindFragment, f.ID, f.DisplayName, f.Text); err != nil {
			return err
		}
	}

	for i, conn := range src.Connections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO connections (position, source, target) VALUES (?, ?, ?)`,
			i, conn.Source, conn.Target); err != nil {
			return fmt.Errorf("inserting connection %s -> %s: %w", conn.Source, conn.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

func insertText(ctx context.Context, tx *sql.Tx, kind, id, displayName, body string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO texts_fts (kind, ref_id, display_name, body) VALUES (?, ?, ?, ?)`,
		kind, id, displayName, body); err != nil {
		return fmt.Errorf("indexing %s %s: %w", kind, id, err)
	}
	return nil
}

func (c *Client) LoadSource(ctx context.Context) (flow.Source, error) {
	var src flow.Source

	var documents int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&documents); err != nil {
		return src, fmt.Errorf("counting documents: %w", err)
	}
	if documents == 0 {
		return src, store.ErrNoDocument
	}

	if err := c.loadEntities(ctx, &src); err != nil {
		return src, err
	}
	if err := c.loadLocations(ctx, &src); err != nil {
		return src, err
	}
	if err := c.loadDialogues(ctx, &src); err != nil {
		return src, err
	}
	if err := c.loadFragments(ctx, &src); err != nil {
		return src, err
	}
	if err := c.loadConnections(ctx, &src); err != nil {
		return src, err
	}
	return src, nil
}

func (c *Client) loadEntities(ctx context.Context, src *flow.Source) error {
	rows, err := c.db.QueryContext(ctx, `SELECT id, display_name, text, features FROM entities ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e flow.SpeakingEntity
		var features string
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Text, &features); err != nil {
			return fmt.Errorf("scanning entity: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
			return fmt.Errorf("unmarshaling features of %s: %w", e.ID, err)
		}
		src.Entities = append(src.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating entities: %w", err)
	}
	return nil
}

func (c *Client) loadLocations(ctx context.Context, src *flow.Source) error {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, data FROM locations ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l flow.Location
		var data string
		if err := rows.Scan(&l.ID, &l.Name, &data); err != nil {
			return fmt.Errorf("scanning location: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &l.Data); err != nil {
			return fmt.Errorf("unmarshaling data of location %s: %w", l.ID, err)
		}
		src.Locations = append(src.Locations, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating locations: %w", err)
	}
	return nil
}

func (c *Client) loadDialogues(ctx context.Context, src *flow.Source) error {
	pins, err := c.loadPins(ctx)
	if err != nil {
		return err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT position, id, display_name, text, starting_fragments FROM dialogues ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading dialogues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d flow.DialogueSource
		var position int
		var starting string
		if err := rows.Scan(&position, &d.ID, &d.DisplayName, &d.Text, &starting); err != nil {
			return fmt.Errorf("scanning dialogue: %w", err)
		}
		if err := json.Unmarshal([]byte(starting), &d.StartingFragmentIDs); err != nil {
			return fmt.Errorf("unmarshaling starting fragments of %s: %w", d.ID, err)
		}
		d.Pins = pins[position]
		src.Dialogues = append(src.Dialogues, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating dialogues: %w", err)
	}
	return nil
}

func (c *Client) loadPins(ctx context.Context) (map[int][]flow.Pin, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT dialogue_position, id, semantic FROM pins ORDER BY dialogue_position, position`)
	if err != nil {
		return nil, fmt.Errorf("loading pins: %w", err)
	}
	defer rows.Close()

	pins := make(map[int][]flow.Pin)
	for rows.Next() {
		var position int
		var pin flow.Pin
		var semantic string
		if err := rows.Scan(&position, &pin.ID, &semantic); err != nil {
			return nil, fmt.Errorf("scanning pin: %w", err)
		}
		pin.Semantic = flow.PinSemantic(semantic)
		pins[position] = append(pins[position], pin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pins: %w", err)
	}
	return pins, nil
}

func (c *Client) loadFragments(ctx context.Context, src *flow.Source) error {
	rows, err := c.db.QueryContext(ctx, `SELECT id, display_name, text, speaker_id, speaker_name FROM fragments ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading fragments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f flow.Fragment
		if err := rows.Scan(&f.ID, &f.DisplayName, &f.Text, &f.SpeakerID, &f.SpeakerName); err != nil {
			return fmt.Errorf("scanning fragment: %w", err)
		}
		src.Fragments = append(src.Fragments, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating fragments: %w", err)
	}
	return nil
}

func (c *Client) loadConnections(ctx context.Context, src *flow.Source) error {
	rows, err := c.db.QueryContext(ctx, `SELECT source, target FROM connections ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var conn flow.Connection
		if err := rows.Scan(&conn.Source, &conn.Target); err != nil {
			return fmt.Errorf("scanning connection: %w", err)
		}
		src.Connections = append(src.Connections, conn)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating connections: %w", err)
	}
	return nil
}
