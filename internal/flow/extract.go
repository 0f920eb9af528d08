package flow

import (
	"fmt"
	"log/slog"
)

type DialogueFlow struct {
	DialogueID  string           `json:"DialogueId"`
	DisplayName string           `json:"DisplayName"`
	Segments    [][]Message      `json:"Segments"`
	Speakers    []SpeakingEntity `json:"Characters"`
	Diagnostics []Diagnostic     `json:"Diagnostics,omitempty"`
}

type FragmentFlow struct {
	FragmentID  string           `json:"FragmentId"`
	Messages    []Message        `json:"Messages"`
	Speakers    []SpeakingEntity `json:"Characters"`
	Diagnostics []Diagnostic     `json:"Diagnostics,omitempty"`
}

// Extractor runs top-level extractions over one document. It holds no
// per-request state and may be shared by concurrent callers.
type Extractor struct {
	doc      *Document
	logger   *slog.Logger
	maxNodes int
}

type Option func(*Extractor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxNodes bounds the number of nodes one walk may visit. Zero means
// unbounded.
func WithMaxNodes(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxNodes = n
		}
	}
}

func NewExtractor(doc *Document, opts ...Option) *Extractor {
	e := &Extractor{doc: doc, logger: discardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Document() *Document {
	return e.doc
}

// ExtractDialogueFlow walks forward from every starting fragment of the
// dialogue. Each starting fragment gets its own visited set and its own
// segment.
func (e *Extractor) ExtractDialogueFlow(dialogueID string) (*DialogueFlow, error) {
	dialogue, ok := e.doc.Dialogue(dialogueID)
	if !ok {
		e.logger.Error("dialogue does not exist", "dialogue", dialogueID)
		return nil, fmt.Errorf("dialogue %s: %w", dialogueID, ErrNotFound)
	}

	diag := &diagnostics{logger: e.logger.With("dialogue", dialogueID)}
	if len(dialogue.StartingFragmentIDs) == 0 {
		diag.add(CodeEmptyResult, dialogueID, fmt.Sprintf("no starting fragments for dialogue %s", dialogueID))
	}

	segments := make([][]Message, 0, len(dialogue.StartingFragmentIDs))
	for _, start := range dialogue.StartingFragmentIDs {
		w := &walker{doc: e.doc, diag: diag, maxNodes: e.maxNodes}
		segments = append(segments, w.forward(start, Visited{}))
	}

	speakers := e.doc.aggregateSpeakers(segments, diag)
	e.logger.Info("dialogue flow extracted", "dialogue", dialogueID, "segments", len(segments), "speakers", len(speakers))

	return &DialogueFlow{
		DialogueID:  dialogueID,
		DisplayName: dialogue.DisplayName,
		Segments:    segments,
		Speakers:    speakers,
		Diagnostics: diag.items,
	}, nil
}

// ExtractFragmentFlow lists how the conversation reaches the fragment: its
// ancestors first, the fragment last.
func (e *Extractor) ExtractFragmentFlow(fragmentID string) (*FragmentFlow, error) {
	if _, ok := e.doc.Fragment(fragmentID); !ok {
		e.logger.Error("fragment does not exist", "fragment", fragmentID)
		return nil, fmt.Errorf("fragment %s: %w", fragmentID, ErrNotFound)
	}

	diag := &diagnostics{logger: e.logger.With("fragment", fragmentID)}
	w := &walker{doc: e.doc, diag: diag, maxNodes: e.maxNodes}
	messages := w.backward(fragmentID, Visited{})
	if len(messages) == 0 {
		diag.add(CodeEmptyResult, fragmentID, fmt.Sprintf("no messages reach fragment %s", fragmentID))
	}

	speakers := e.doc.aggregateSpeakers([][]Message{messages}, diag)
	e.logger.Info("fragment flow extracted", "fragment", fragmentID, "messages", len(messages), "speakers", len(speakers))

	return &FragmentFlow{
		FragmentID:  fragmentID,
		Messages:    messages,
		Speakers:    speakers,
		Diagnostics: diag.items,
	}, nil
}
