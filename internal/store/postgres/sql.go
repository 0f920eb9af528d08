package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dialoguecraft/internal/store"
)

// RunSQL executes an ad-hoc query inside a read-only transaction, so a
// statement that slips past the keyword check still cannot write.
func (c *Client) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if err := store.CheckReadOnly(query); err != nil {
		return nil, err
	}
	args, err := store.PositionalArgs(params)
	if err != nil {
		return nil, err
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("starting read-only transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collecting sql rows: %w", err)
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}
