package flow

// DefaultVariant is the localized variant kept by Condense when none is
// configured. Exports list the source language first and the translation
// second.
const DefaultVariant = 1

type CondensedMessage struct {
	Text        string `json:"Text"`
	SpeakerName string `json:"SpeakerName"`
}

type CondensedFlow struct {
	Messages []CondensedMessage `json:"Messages"`
}

type CondensedFeature struct {
	Properties map[string]string `json:"Properties"`
}

type CondensedCharacter struct {
	DisplayName string             `json:"DisplayName"`
	Text        string             `json:"Text"`
	Features    []CondensedFeature `json:"Features"`
}

// Condensed is a compact view of a Collection meant to be handed to a text
// generator as context.
type Condensed struct {
	Dialogues  []CondensedFlow      `json:"Dialogues"`
	Characters []CondensedCharacter `json:"Characters"`
	Locations  map[string]Location  `json:"Locations,omitempty"`
}

// Condense keeps only text and speaker names of every message, and collapses
// each character property to a single string using variant.
func Condense(c *Collection, variant int) Condensed {
	out := Condensed{
		Dialogues:  make([]CondensedFlow, 0, len(c.Dialogues)),
		Characters: make([]CondensedCharacter, 0, len(c.Characters)),
		Locations:  c.Locations,
	}

	for _, entry := range c.Dialogues {
		flow := CondensedFlow{Messages: make([]CondensedMessage, 0, len(entry.Messages))}
		for _, msg := range entry.Messages {
			name := msg.SpeakerName
			if name == "" {
				name = "Unnamed"
			}
			flow.Messages = append(flow.Messages, CondensedMessage{Text: msg.Text, SpeakerName: name})
		}
		out.Dialogues = append(out.Dialogues, flow)
	}

	for _, character := range c.Characters {
		condensed := CondensedCharacter{
			DisplayName: character.DisplayName,
			Text:        character.Text,
			Features:    make([]CondensedFeature, 0, len(character.Features)),
		}
		for _, feature := range character.Features {
			props := make(map[string]string, len(feature.Properties))
			for key, value := range feature.Properties {
				props[key] = value.Select(variant)
			}
			condensed.Features = append(condensed.Features, CondensedFeature{Properties: props})
		}
		out.Characters = append(out.Characters, condensed)
	}

	return out
}
