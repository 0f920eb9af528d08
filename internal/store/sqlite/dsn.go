package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var defaultPragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(30000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

type dsnTarget struct {
	path   string
	memory bool
	query  url.Values
}

// driverDSN renders the target as a SQLite URI filename with the default
// pragmas appended after any caller supplied parameters.
func (t dsnTarget) driverDSN() string {
	query := url.Values{}
	for key, values := range t.query {
		query[key] = append([]string(nil), values...)
	}
	for _, pragma := range defaultPragmas {
		if t.memory && strings.HasPrefix(pragma, "journal_mode") {
			continue
		}
		query.Add("_pragma", pragma)
	}
	return "file:" + t.path + "?" + query.Encode()
}

func parseDSN(dsn string) (dsnTarget, error) {
	rest, ok := strings.CutPrefix(dsn, "sqlite://")
	if !ok {
		return dsnTarget{}, fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	path, rawQuery, _ := strings.Cut(rest, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsnTarget{}, fmt.Errorf("parsing query: %w", err)
	}

	if path == ":memory:" {
		return dsnTarget{path: ":memory:", memory: true, query: query}, nil
	}
	if path == "" {
		return dsnTarget{}, fmt.Errorf("sqlite DSN has no path")
	}

	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return dsnTarget{}, fmt.Errorf("unescaping path: %w", err)
	}
	path = unescaped

	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}

	return dsnTarget{path: path, query: query}, nil
}
