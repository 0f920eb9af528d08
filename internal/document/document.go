// Package document reads the YAML interchange document produced from an
// authoring-tool export and turns it into a flow.Source.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"dialoguecraft/internal/flow"
)

const (
	DefaultLanguage    = "en"
	UnknownSpeakerName = "Unknown"
)

var (
	ErrInvalidYAML   = errors.New("invalid YAML in interchange document")
	ErrEmptyDocument = errors.New("document has no dialogues and no fragments")
	ErrMissingID     = errors.New("record missing required 'id' field")
	ErrInvalidPin    = errors.New("pin semantic must be Input or Output")
	ErrInvalidEdge   = errors.New("connection needs both 'source' and 'target'")
)

type rawDocument struct {
	Entities    []rawEntity       `yaml:"entities"`
	Locations   []rawLocation     `yaml:"locations"`
	Dialogues   []rawDialogue     `yaml:"dialogues"`
	Fragments   []rawFragment     `yaml:"fragments"`
	Connections []flow.Connection `yaml:"connections"`
}

type rawEntity struct {
	ID          string         `yaml:"id"`
	DisplayName localizedText  `yaml:"display_name"`
	Text        localizedText  `yaml:"text"`
	Features    []flow.Feature `yaml:"features"`
}

type rawLocation struct {
	ID   string         `yaml:"id"`
	Name localizedText  `yaml:"name"`
	Data map[string]any `yaml:"data"`
}

type rawDialogue struct {
	ID                  string        `yaml:"id"`
	DisplayName         localizedText `yaml:"display_name"`
	Text                localizedText `yaml:"text"`
	Pins                []flow.Pin    `yaml:"pins"`
	StartingFragmentIDs []string      `yaml:"starting_fragments"`
}

type rawFragment struct {
	ID          string        `yaml:"id"`
	DisplayName localizedText `yaml:"display_name"`
	Text        localizedText `yaml:"text"`
	Speaker     string        `yaml:"speaker"`
}

type options struct {
	language string
}

type Option func(*options)

// WithLanguage selects which variant of localized text fields is kept.
func WithLanguage(lang string) Option {
	return func(o *options) {
		if lang != "" {
			o.language = lang
		}
	}
}

func ParseFile(path string, opts ...Option) (flow.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return flow.Source{}, err
	}
	return Parse(data, opts...)
}

func Parse(content []byte, opts ...Option) (flow.Source, error) {
	o := options{language: DefaultLanguage}
	for _, opt := range opts {
		opt(&o)
	}

	content = bytes.TrimPrefix(content, []byte("\ufeff"))

	var raw rawDocument
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return flow.Source{}, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if len(raw.Dialogues) == 0 && len(raw.Fragments) == 0 {
		return flow.Source{}, ErrEmptyDocument
	}

	var src flow.Source
	names := make(map[string]string, len(raw.Entities))

	for i, e := range raw.Entities {
		if strings.TrimSpace(e.ID) == "" {
			return flow.Source{}, fmt.Errorf("entities[%d]: %w", i, ErrMissingID)
		}
		entity := flow.SpeakingEntity{
			ID:          e.ID,
			DisplayName: e.DisplayName.pick(o.language),
			Text:        e.Text.pick(o.language),
			Features:    e.Features,
		}
		if _, exists := names[e.ID]; !exists {
			names[e.ID] = entity.DisplayName
		}
		src.Entities = append(src.Entities, entity)
	}

	for i, l := range raw.Locations {
		if strings.TrimSpace(l.ID) == "" {
			return flow.Source{}, fmt.Errorf("locations[%d]: %w", i, ErrMissingID)
		}
		src.Locations = append(src.Locations, flow.Location{ID: l.ID, Name: l.Name.pick(o.language), Data: l.Data})
	}

	for i, d := range raw.Dialogues {
		if strings.TrimSpace(d.ID) == "" {
			return flow.Source{}, fmt.Errorf("dialogues[%d]: %w", i, ErrMissingID)
		}
		pins, err := normalizePins(d.Pins)
		if err != nil {
			return flow.Source{}, fmt.Errorf("dialogue %s: %w", d.ID, err)
		}
		src.Dialogues = append(src.Dialogues, flow.DialogueSource{
			ID:                  d.ID,
			DisplayName:         d.DisplayName.pick(o.language),
			Text:                d.Text.pick(o.language),
			Pins:                pins,
			StartingFragmentIDs: d.StartingFragmentIDs,
		})
	}

	for i, f := range raw.Fragments {
		if strings.TrimSpace(f.ID) == "" {
			return flow.Source{}, fmt.Errorf("fragments[%d]: %w", i, ErrMissingID)
		}
		displayName := f.DisplayName.pick(o.language)
		src.Fragments = append(src.Fragments, flow.Fragment{
			ID:          f.ID,
			DisplayName: displayName,
			Text:        f.Text.pick(o.language),
			SpeakerID:   f.Speaker,
			SpeakerName: speakerName(f.Speaker, displayName, names),
		})
	}

	for i, c := range raw.Connections {
		if c.Source == "" || c.Target == "" {
			return flow.Source{}, fmt.Errorf("connections[%d]: %w", i, ErrInvalidEdge)
		}
		src.Connections = append(src.Connections, c)
	}

	return src, nil
}

func normalizePins(pins []flow.Pin) ([]flow.Pin, error) {
	out := make([]flow.Pin, 0, len(pins))
	for i, pin := range pins {
		if strings.TrimSpace(pin.ID) == "" {
			return nil, fmt.Errorf("pins[%d]: %w", i, ErrMissingID)
		}
		switch strings.ToLower(string(pin.Semantic)) {
		case "input":
			pin.Semantic = flow.PinInput
		case "output":
			pin.Semantic = flow.PinOutput
		default:
			return nil, fmt.Errorf("pin %s: %w (got %q)", pin.ID, ErrInvalidPin, pin.Semantic)
		}
		out = append(out, pin)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// speakerName resolves the display name of a fragment's speaker. Without a
// resolvable reference the name is taken from a "Name: line" display name.
func speakerName(ref, displayName string, entities map[string]string) string {
	if name, ok := entities[ref]; ok && ref != "" {
		return name
	}
	if before, _, found := strings.Cut(displayName, ":"); found {
		if name := strings.TrimSpace(before); name != "" {
			return name
		}
	}
	return UnknownSpeakerName
}
