package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	KindDialogue = "dialogue"
	KindFragment = "fragment"
	KindEntity   = "entity"
)

var ErrNoDocument = errors.New("no document ingested")

type SearchResult struct {
	Kind        string  `json:"kind"`
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet"`
}

// ValidateKind accepts "" (any kind) or one of the searchable kinds.
func ValidateKind(kind string) error {
	switch kind {
	case "", KindDialogue, KindFragment, KindEntity:
		return nil
	default:
		return fmt.Errorf("unknown search kind %q: expected %s, %s or %s", kind, KindDialogue, KindFragment, KindEntity)
	}
}

var ErrNotReadOnly = errors.New("only read-only statements are allowed")

// CheckReadOnly rejects ad-hoc statements that could modify the database.
// It looks at the leading keyword only; backends also run the statement in
// a read-only session (a read-only transaction on postgres, query_only on
// sqlite).
func CheckReadOnly(query string) error {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return fmt.Errorf("query must not be empty")
	}
	switch strings.ToUpper(strings.TrimLeft(fields[0], "(")) {
	case "SELECT", "WITH", "EXPLAIN", "VALUES":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrNotReadOnly, fields[0])
	}
}

// PositionalArgs orders parameters keyed "1".."n" into a bind list. Every
// key must be a position and the positions must have no gaps.
func PositionalArgs(params map[string]any) ([]any, error) {
	args := make([]any, len(params))
	filled := make([]bool, len(params))
	for key, val := range params {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(params) {
			return nil, fmt.Errorf("parameter %q: expected a position between 1 and %d", key, len(params))
		}
		if filled[n-1] {
			return nil, fmt.Errorf("parameter %q: position %d given twice", key, n)
		}
		args[n-1], filled[n-1] = val, true
	}
	return args, nil
}
