package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/store"
)

const insertText = `
INSERT INTO texts (kind, ref_id, display_name, body, search_vector)
VALUES ($1, $2, $3, $4,
    setweight(to_tsvector('simple', coalesce($3, '')), 'A') ||
    setweight(to_tsvector('english', coalesce($4, '')), 'B')
)
`

func (c *Client) SourceHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := c.pool.QueryRow(ctx, `SELECT source_hash FROM documents WHERE path = $1`, path).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting source hash: %w", err)
	}
	return hash, nil
}

func (c *Client) ReplaceDocument(ctx context.Context, path, hash string, src flow.Source) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`TRUNCATE texts, connections, pins, fragments, dialogues, locations, entities, documents`)
	batch.Queue(`INSERT INTO documents (path, source_hash) VALUES ($1, $2)`, path, hash)

	for i, e := range src.Entities {
		features, err := json.Marshal(e.Features)
		if err != nil {
			return fmt.Errorf("marshaling features of %s: %w", e.ID, err)
		}
		batch.Queue(`INSERT INTO entities (position, id, display_name, text, features) VALUES ($1, $2, $3, $4, $5)`,
			i, e.ID, e.DisplayName, e.Text, features)
		batch.Queue(insertText, store.KindEntity, e.ID, e.DisplayName, e.Text)
	}

	for i, l := range src.Locations {
		data, err := json.Marshal(l.Data)
		if err != nil {
			return fmt.Errorf("marshaling data of location %s: %w", l.ID, err)
		}
		batch.Queue(`INSERT INTO locations (position, id, name, data) VALUES ($1, $2, $3, $4)`,
			i, l.ID, l.Name, data)
	}

	for i, d := range src.Dialogues {
		batch.Queue(`INSERT INTO dialogues (position, id, display_name, text, starting_fragments) VALUES ($1, $2, $3, $4, $5)`,
			i, d.ID, d.DisplayName, d.Text, d.StartingFragmentIDs)
		for j, pin := range d.Pins {
			batch.Queue(`INSERT INTO pins (dialogue_position, position, id, semantic) VALUES ($1, $2, $3, $4)`,
				i, j, pin.ID, string(pin.Semantic))
		}
		batch.Queue(insertText, store.KindDialogue, d.ID, d.DisplayName, d.Text)
	}

	for i, f := range src.Fragments {
		batch.Queue(`INSERT INTO fragments (position, id, display_name, text, speaker_id, speaker_name) VALUES ($1, $2, $3, $4, $5, $6)`,
			i, f.ID, f.DisplayName, f.Text, f.SpeakerID, f.SpeakerName)
		batch.Queue(insertText, store.KindFragment, f.ID, f.DisplayName, f.Text)
	}

	for i, conn := range src.Connections {
		batch.Queue(`INSERT INTO connections (position, source, target) VALUES ($1, $2, $3)`,
			i, conn.Source, conn.Target)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

func (c *Client) LoadSource(ctx context.Context) (flow.Source, error) {
	var src flow.Source

	var documents int
	if err := c.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&documents); err != nil {
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
	rows, err := c.pool.Query(ctx, `SELECT id, display_name, text, features FROM entities ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e flow.SpeakingEntity
		var features []byte
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Text, &features); err != nil {
			return fmt.Errorf("scanning entity: %w", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &e.Features); err != nil {
				return fmt.Errorf("unmarshaling features of %s: %w", e.ID, err)
			}
		}
		src.Entities = append(src.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating entities: %w", err)
	}
	return nil
}

func (c *Client) loadLocations(ctx context.Context, src *flow.Source) error {
	rows, err := c.pool.Query(ctx, `SELECT id, name, data FROM locations ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l flow.Location
		var data []byte
		if err := rows.Scan(&l.ID, &l.Name, &data); err != nil {
			return fmt.Errorf("scanning location: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &l.Data); err != nil {
				return fmt.Errorf("unmarshaling data of location %s: %w", l.ID, err)
			}
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

	rows, err := c.pool.Query(ctx, `SELECT position, id, display_name, text, starting_fragments FROM dialogues ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading dialogues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d flow.DialogueSource
		var position int
		if err := rows.Scan(&position, &d.ID, &d.DisplayName, &d.Text, &d.StartingFragmentIDs); err != nil {
			return fmt.Errorf("scanning dialogue: %w", err)
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
	rows, err := c.pool.Query(ctx, `SELECT dialogue_position, id, semantic FROM pins ORDER BY dialogue_position, position`)
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
	rows, err := c.pool.Query(ctx, `SELECT id, display_name, text, speaker_id, speaker_name FROM fragments ORDER BY position`)
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
	rows, err := c.pool.Query(ctx, `SELECT source, target FROM connections ORDER BY position`)
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
