package flow

import (
	"fmt"
	"log/slog"
	"slices"
)

// DialogueSource is a dialogue as delivered by the document parser: either
// with declared pins for the entry point resolver, or with starting fragments
// that were already resolved upstream.
type DialogueSource struct {
	ID                  string   `yaml:"id"`
	DisplayName         string   `yaml:"display_name"`
	Text                string   `yaml:"text"`
	Pins                []Pin    `yaml:"pins"`
	StartingFragmentIDs []string `yaml:"starting_fragments"`
}

// Source is the fully parsed content of one export.
type Source struct {
	Entities    []SpeakingEntity
	Locations   []Location
	Dialogues   []DialogueSource
	Fragments   []Fragment
	Connections []Connection
}

// Document is the entity store of one loaded export together with its
// connection index. It never changes after NewDocument returns.
type Document struct {
	entities    map[string]SpeakingEntity
	locations   map[string]Location
	dialogues   map[string]Dialogue
	fragments   map[string]Fragment
	pins        map[string]string
	entityIDs   []string
	locationIDs []string
	dialogueIDs []string
	fragmentIDs []string
	index       *Index
}

// NewDocument builds the store and the index, then resolves dialogue entry
// points. Duplicate ids keep the first record; the later ones are reported.
func NewDocument(src Source, logger *slog.Logger) (*Document, []Diagnostic) {
	if logger == nil {
		logger = discardLogger()
	}
	diag := &diagnostics{logger: logger}

	doc := &Document{
		entities:  make(map[string]SpeakingEntity, len(src.Entities)),
		locations: make(map[string]Location, len(src.Locations)),
		dialogues: make(map[string]Dialogue, len(src.Dialogues)),
		fragments: make(map[string]Fragment, len(src.Fragments)),
		pins:      make(map[string]string),
		index:     BuildIndex(src.Connections),
	}

	for _, e := range src.Entities {
		if _, exists := doc.entities[e.ID]; exists {
			diag.add(CodeDuplicateID, e.ID, fmt.Sprintf("duplicate entity id %s ignored", e.ID))
			continue
		}
		doc.entities[e.ID] = cloneEntity(e)
		doc.entityIDs = append(doc.entityIDs, e.ID)
	}
	for _, l := range src.Locations {
		if _, exists := doc.locations[l.ID]; exists {
			diag.add(CodeDuplicateID, l.ID, fmt.Sprintf("duplicate location id %s ignored", l.ID))
			continue
		}
		doc.locations[l.ID] = l
		doc.locationIDs = append(doc.locationIDs, l.ID)
	}
	for _, f := range src.Fragments {
		if _, exists := doc.fragments[f.ID]; exists {
			diag.add(CodeDuplicateID, f.ID, fmt.Sprintf("duplicate fragment id %s ignored", f.ID))
			continue
		}
		doc.fragments[f.ID] = f
		doc.fragmentIDs = append(doc.fragmentIDs, f.ID)
	}

	for _, d := range src.Dialogues {
		if _, exists := doc.dialogues[d.ID]; exists {
			diag.add(CodeDuplicateID, d.ID, fmt.Sprintf("duplicate dialogue id %s ignored", d.ID))
			continue
		}
		for _, pin := range d.Pins {
			doc.pins[pin.ID] = d.ID
		}
		dialogue := Dialogue{ID: d.ID, DisplayName: d.DisplayName, Text: d.Text}
		if len(d.Pins) > 0 {
			dialogue.StartingFragmentIDs = doc.resolveEntryPoints(d.ID, d.Pins, diag)
		} else {
			dialogue.StartingFragmentIDs = doc.knownFragments(d.ID, d.StartingFragmentIDs, diag)
		}
		doc.dialogues[d.ID] = dialogue
		doc.dialogueIDs = append(doc.dialogueIDs, d.ID)
	}

	return doc, diag.items
}

func (doc *Document) knownFragments(dialogueID string, ids []string, diag *diagnostics) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := doc.fragments[id]; !ok {
			diag.add(CodeDanglingReference, id, fmt.Sprintf("starting fragment %s of dialogue %s not found", id, dialogueID))
			continue
		}
		out = append(out, id)
	}
	return out
}

func (doc *Document) Index() *Index {
	return doc.index
}

func (doc *Document) Dialogue(id string) (Dialogue, bool) {
	d, ok := doc.dialogues[id]
	if !ok {
		return Dialogue{}, false
	}
	d.StartingFragmentIDs = slices.Clone(d.StartingFragmentIDs)
	return d, true
}

func (doc *Document) Fragment(id string) (Fragment, bool) {
	f, ok := doc.fragments[id]
	return f, ok
}

func (doc *Document) Entity(id string) (SpeakingEntity, bool) {
	e, ok := doc.entities[id]
	if !ok {
		return SpeakingEntity{}, false
	}
	return cloneEntity(e), true
}

func (doc *Document) Location(id string) (Location, bool) {
	l, ok := doc.locations[id]
	return l, ok
}

// IsPin reports whether id is a declared dialogue port.
func (doc *Document) IsPin(id string) bool {
	_, ok := doc.pins[id]
	return ok
}

// Dialogues returns every dialogue in document order.
func (doc *Document) Dialogues() []Dialogue {
	out := make([]Dialogue, 0, len(doc.dialogueIDs))
	for _, id := range doc.dialogueIDs {
		d, _ := doc.Dialogue(id)
		out = append(out, d)
	}
	return out
}

// Fragments returns every fragment in document order.
func (doc *Document) Fragments() []Fragment {
	out := make([]Fragment, 0, len(doc.fragmentIDs))
	for _, id := range doc.fragmentIDs {
		out = append(out, doc.fragments[id])
	}
	return out
}

// Entities returns every speaking entity in document order.
func (doc *Document) Entities() []SpeakingEntity {
	out := make([]SpeakingEntity, 0, len(doc.entityIDs))
	for _, id := range doc.entityIDs {
		out = append(out, cloneEntity(doc.entities[id]))
	}
	return out
}

// Locations returns every location in document order.
func (doc *Document) Locations() []Location {
	out := make([]Location, 0, len(doc.locationIDs))
	for _, id := range doc.locationIDs {
		out = append(out, doc.locations[id])
	}
	return out
}

// Text returns the body text of a dialogue or a fragment.
func (doc *Document) Text(id string) (string, bool) {
	if d, ok := doc.dialogues[id]; ok {
		return d.Text, true
	}
	if f, ok := doc.fragments[id]; ok {
		return f.Text, true
	}
	return "", false
}
