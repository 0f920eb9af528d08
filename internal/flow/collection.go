package flow

import (
	"fmt"
	"strings"
)

// FlowEntry is one linear flow in a Collection. Dialogue extractions add one
// entry per segment, fragment extractions a single entry.
type FlowEntry struct {
	DialogueID  string    `json:"DialogueId,omitempty"`
	FragmentID  string    `json:"FragmentId,omitempty"`
	DisplayName string    `json:"DisplayName,omitempty"`
	Messages    []Message `json:"Messages"`
}

// Collection accumulates the results of several extractions for export.
// Characters are deduplicated by structural equality across all of them.
type Collection struct {
	Dialogues  []FlowEntry         `json:"Dialogues"`
	Characters []SpeakingEntity    `json:"Characters"`
	Locations  map[string]Location `json:"Locations,omitempty"`
}

func NewCollection() *Collection {
	return &Collection{
		Dialogues:  []FlowEntry{},
		Characters: []SpeakingEntity{},
	}
}

func (c *Collection) AddDialogueFlow(f *DialogueFlow) {
	if f == nil {
		return
	}
	for _, segment := range f.Segments {
		c.Dialogues = append(c.Dialogues, FlowEntry{
			DialogueID:  f.DialogueID,
			DisplayName: f.DisplayName,
			Messages:    segment,
		})
	}
	c.addSpeakers(f.Speakers)
}

func (c *Collection) AddFragmentFlow(f *FragmentFlow) {
	if f == nil {
		return
	}
	c.Dialogues = append(c.Dialogues, FlowEntry{
		FragmentID: f.FragmentID,
		Messages:   f.Messages,
	})
	c.addSpeakers(f.Speakers)
}

func (c *Collection) addSpeakers(speakers []SpeakingEntity) {
	for _, speaker := range speakers {
		c.Characters = appendUniqueEntity(c.Characters, speaker)
	}
}

// IncludeLocations copies every location of doc into the collection.
func (c *Collection) IncludeLocations(doc *Document) {
	locations := doc.Locations()
	c.Locations = make(map[string]Location, len(locations))
	for _, l := range locations {
		c.Locations[l.ID] = l
	}
}

// Transcript renders flows as "Speaker: text" blocks separated by blank
// lines.
func Transcript(entries []FlowEntry) string {
	var b strings.Builder
	for _, entry := range entries {
		for _, msg := range entry.Messages {
			name := msg.SpeakerName
			if name == "" {
				name = "Unnamed"
			}
			fmt.Fprintf(&b, "%s: %s\n\n", name, msg.Text)
		}
	}
	return b.String()
}
