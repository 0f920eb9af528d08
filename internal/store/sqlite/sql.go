package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"dialoguecraft/internal/store"
)

// RunSQL executes an ad-hoc query on a connection switched to query_only,
// so statements like WITH ... DELETE that pass the keyword check still
// cannot write.
func (c *Client) RunSQL(ctx context.Context, query string, params map[string]any) (_ []map[string]any, err error) {
	if err := store.CheckReadOnly(query); err != nil {
		return nil, err
	}
	args, err := store.PositionalArgs(params)
	if err != nil {
		return nil, err
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("enabling query_only: %w", err)
	}
	defer func() {
		if _, resetErr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF"); resetErr != nil {
			// a connection left read-only must not return to the pool
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			if err == nil {
				err = fmt.Errorf("resetting query_only: %w", resetErr)
			}
		}
	}()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	defer rows.Close()

	return collectMaps(rows)
}

// collectMaps reads every row into a column-keyed map. TEXT values the
// driver hands back as bytes are returned as strings.
func collectMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	out := []map[string]any{}
	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for rows.Next() {
		for i := range cells {
			cells[i] = nil
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, name := range columns {
			switch v := cells[i].(type) {
			case []byte:
				record[name] = string(v)
			default:
				record[name] = v
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sql rows: %w", err)
	}
	return out, nil
}
