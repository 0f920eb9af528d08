package sqlite

import (
	"context"
	"fmt"
	"strings"

	"dialoguecraft/internal/store"
)

const searchSQL = `
SELECT kind, ref_id, display_name,
       -bm25(texts_fts, 0.0, 0.0, 4.0, 1.0) AS score,
       snippet(texts_fts, 3, '**', '**', '...', 24) AS snippet
FROM texts_fts
WHERE texts_fts MATCH ?1
  AND (?2 = '' OR kind = ?2)
ORDER BY score DESC, ref_id ASC
LIMIT 50`

// Search ranks dialogue, fragment and entity text with bm25, weighting
// display names above body text. kind narrows the result set when set.
func (c *Client) Search(ctx context.Context, query, kind string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if err := store.ValidateKind(kind); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, searchSQL, toFTS5Query(query), kind)
	if err != nil {
		return nil, fmt.Errorf("searching texts: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var hit store.SearchResult
		if err := rows.Scan(&hit.Kind, &hit.ID, &hit.DisplayName, &hit.Score, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search hits: %w", err)
	}
	return results, nil
}

type ftsToken struct {
	text   string
	phrase bool
}

// toFTS5Query rewrites a web-style query (bare terms, "quoted phrases",
// -negation, AND/OR/NOT) into FTS5 MATCH syntax. Adjacent terms are joined
// with AND unless an explicit operator sits between them.
func toFTS5Query(query string) string {
	var b strings.Builder
	afterOperator := false
	for _, tok := range splitFTSTokens(query) {
		if !tok.phrase {
			if op := strings.ToUpper(tok.text); op == "AND" || op == "OR" || op == "NOT" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(op)
				afterOperator = true
				continue
			}
		}

		switch {
		case b.Len() == 0:
		case afterOperator:
			b.WriteByte(' ')
		default:
			b.WriteString(" AND ")
		}
		afterOperator = false

		switch {
		case tok.phrase:
			b.WriteString(`"` + tok.text + `"`)
		case len(tok.text) > 1 && tok.text[0] == '-':
			b.WriteString("NOT " + tok.text[1:])
		default:
			b.WriteString(tok.text)
		}
	}
	return b.String()
}

func splitFTSTokens(query string) []ftsToken {
	var tokens []ftsToken
	for rest := query; rest != ""; {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		if rest[0] == '"' {
			body, tail, _ := strings.Cut(rest[1:], `"`)
			if body != "" {
				tokens = append(tokens, ftsToken{text: body, phrase: true})
			}
			rest = tail
			continue
		}
		end := strings.IndexAny(rest, " \t\"")
		if end < 0 {
			end = len(rest)
		}
		tokens = append(tokens, ftsToken{text: rest[:end]})
		rest = rest[end:]
	}
	return tokens
}
