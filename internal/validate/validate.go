package validate

import (
	"fmt"

	"dialoguecraft/internal/flow"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDanglingConnection = "dangling_connection"
	codeNoEntryPoints      = "dialogue_without_entry_points"
	codeUnknownSpeaker     = "unknown_speaker"
	codeUnreachable        = "unreachable_fragment"
	codeDuplicateID        = "duplicate_id"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Kind     string   `json:"kind,omitempty"`
	ID       string   `json:"id,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// HasErrors reports whether any issue is an error rather than a warning.
func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run checks a loaded document. build carries the diagnostics returned by
// flow.NewDocument; only duplicate ids are taken from it since the document
// no longer holds the dropped records.
func Run(doc *flow.Document, build []flow.Diagnostic) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}

	issues := make([]Issue, 0)
	for _, d := range build {
		if d.Code == flow.CodeDuplicateID {
			issues = append(issues, Issue{Severity: SeverityError, Code: codeDuplicateID, Message: d.Message, ID: d.ID})
		}
	}

	issues = append(issues, validateConnections(doc)...)
	issues = append(issues, validateEntryPoints(doc)...)
	issues = append(issues, validateSpeakers(doc)...)
	issues = append(issues, validateReachability(doc)...)

	return &Report{Issues: issues}, nil
}

func validateConnections(doc *flow.Document) []Issue {
	var issues []Issue
	for _, conn := range doc.Index().Connections() {
		for _, end := range []struct{ role, id string }{{"source", conn.Source}, {"target", conn.Target}} {
			if knownNode(doc, end.id) {
				continue
			}
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDanglingConnection,
				Message:  fmt.Sprintf("connection %s -> %s: %s %s does not exist", conn.Source, conn.Target, end.role, end.id),
				Kind:     "connection",
				ID:       end.id,
			})
		}
	}
	return issues
}

func knownNode(doc *flow.Document, id string) bool {
	if _, ok := doc.Fragment(id); ok {
		return true
	}
	if _, ok := doc.Dialogue(id); ok {
		return true
	}
	return doc.IsPin(id)
}

func validateEntryPoints(doc *flow.Document) []Issue {
	var issues []Issue
	for _, d := range doc.Dialogues() {
		if len(d.StartingFragmentIDs) > 0 {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeNoEntryPoints,
			Message:  fmt.Sprintf("dialogue %s has no starting fragments", d.ID),
			Kind:     "dialogue",
			ID:       d.ID,
		})
	}
	return issues
}

func validateSpeakers(doc *flow.Document) []Issue {
	var issues []Issue
	for _, f := range doc.Fragments() {
		if f.SpeakerID == "" {
			continue
		}
		if _, ok := doc.Entity(f.SpeakerID); ok {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeUnknownSpeaker,
			Message:  fmt.Sprintf("fragment %s references unknown speaker %s", f.ID, f.SpeakerID),
			Kind:     "fragment",
			ID:       f.ID,
		})
	}
	return issues
}

// validateReachability walks forward from every entry point with one shared
// visited set, so each fragment is expanded at most once.
func validateReachability(doc *flow.Document) []Issue {
	visited := flow.Visited{}
	reached := make(map[string]struct{})
	for _, d := range doc.Dialogues() {
		for _, start := range d.StartingFragmentIDs {
			for _, msg := range flow.WalkForward(doc, start, visited) {
				reached[msg.FragmentID] = struct{}{}
			}
		}
	}

	var issues []Issue
	for _, f := range doc.Fragments() {
		if _, ok := reached[f.ID]; ok {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeUnreachable,
			Message:  fmt.Sprintf("fragment %s is not reachable from any dialogue", f.ID),
			Kind:     "fragment",
			ID:       f.ID,
		})
	}
	return issues
}
