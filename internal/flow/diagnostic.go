package flow

import (
	"context"
	"errors"
	"log/slog"
)

var ErrNotFound = errors.New("not found")

const (
	CodeDanglingReference = "dangling_reference"
	CodeEmptyResult       = "empty_result"
	CodeLoopDetected      = "loop_detected"
	CodeTraversalLimit    = "traversal_limit"
	CodeDuplicateID       = "duplicate_id"
)

// Diagnostic is a recoverable condition met while building or walking a
// document. The affected node or reference is skipped.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

type diagnostics struct {
	logger *slog.Logger
	items  []Diagnostic
}

func (d *diagnostics) add(code, id, message string) {
	d.items = append(d.items, Diagnostic{Code: code, Message: message, ID: id})
	level := slog.LevelWarn
	if code == CodeLoopDetected {
		level = slog.LevelDebug
	}
	d.logger.Log(context.Background(), level, message, "code", code, "id", id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
