package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"dialoguecraft/internal/store"
)

// Columns follow store.SearchResult field order for RowToStructByPos.
const searchSQL = `
WITH q AS (SELECT websearch_to_tsquery('english', $1) AS query)
SELECT t.kind, t.ref_id, t.display_name,
       ts_rank(t.search_vector, q.query)::float8 AS score,
       CASE WHEN t.body = '' THEN ''
            ELSE ts_headline('english', t.body, q.query,
                 'MaxFragments=2, MaxWords=24, MinWords=8, StartSel=**, StopSel=**')
       END AS snippet
FROM texts t, q
WHERE t.search_vector @@ q.query
  AND ($2 = '' OR t.kind = $2)
ORDER BY score DESC, t.ref_id ASC
LIMIT 50`

func (c *Client) Search(ctx context.Context, query, kind string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if err := store.ValidateKind(kind); err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx, searchSQL, query, kind)
	if err != nil {
		return nil, fmt.Errorf("searching texts: %w", err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByPos[store.SearchResult])
	if err != nil {
		return nil, fmt.Errorf("reading search hits: %w", err)
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	return results, nil
}
