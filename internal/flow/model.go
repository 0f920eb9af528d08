package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind discriminates the variants of PropertyValue.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindNumber
	KindLocalized
)

// PropertyValue is a feature property: a plain string, an integer, or a list
// of localized variants of the same text.
type PropertyValue struct {
	Kind      ValueKind
	Text      string
	Number    int64
	Localized []string
}

func Scalar(s string) PropertyValue {
	return PropertyValue{Kind: KindScalar, Text: s}
}

func Number(n int64) PropertyValue {
	return PropertyValue{Kind: KindNumber, Number: n}
}

func Localized(variants ...string) PropertyValue {
	return PropertyValue{Kind: KindLocalized, Localized: variants}
}

// Select returns the string form of the value. For localized text the
// requested variant is used when present, otherwise the first one.
func (v PropertyValue) Select(variant int) string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatInt(v.Number, 10)
	case KindLocalized:
		if len(v.Localized) == 0 {
			return ""
		}
		if variant >= 0 && variant < len(v.Localized) {
			return v.Localized[variant]
		}
		return v.Localized[0]
	default:
		return v.Text
	}
}

func (v PropertyValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindLocalized:
		if v.Localized == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Localized)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON keeps integers exact. Other numbers and booleans become
// Scalar text, as they do when read from YAML.
func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Scalar("")
	case string:
		*v = Scalar(t)
	case bool:
		*v = Scalar(strconv.FormatBool(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			*v = Number(n)
		} else {
			*v = Scalar(t.String())
		}
	case []any:
		variants := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("localized variant %d must be a string", i)
			}
			variants = append(variants, s)
		}
		*v = Localized(variants...)
	default:
		return fmt.Errorf("unsupported property value %s", string(data))
	}
	return nil
}

func (v *PropertyValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!int" {
			n, err := strconv.ParseInt(node.Value, 0, 64)
			if err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
			*v = Number(n)
			return nil
		}
		if node.Tag == "!!null" {
			*v = Scalar("")
			return nil
		}
		*v = Scalar(node.Value)
		return nil
	case yaml.SequenceNode:
		var variants []string
		if err := node.Decode(&variants); err != nil {
			return fmt.Errorf("line %d: localized text: %w", node.Line, err)
		}
		*v = Localized(variants...)
		return nil
	default:
		return fmt.Errorf("line %d: property value must be a scalar or a list", node.Line)
	}
}

type Feature struct {
	Properties map[string]PropertyValue `json:"Properties" yaml:"properties"`
}

// SpeakingEntity is a character that can be attributed as the speaker of a
// fragment. Two entities are duplicates only when every field is equal.
type SpeakingEntity struct {
	ID          string    `json:"Id" yaml:"id"`
	DisplayName string    `json:"DisplayName" yaml:"display_name"`
	Text        string    `json:"Text" yaml:"text"`
	Features    []Feature `json:"Features" yaml:"features"`
}

type Location struct {
	ID   string         `json:"Id" yaml:"id"`
	Name string         `json:"Name" yaml:"name"`
	Data map[string]any `json:"Data,omitempty" yaml:"data"`
}

type Dialogue struct {
	ID                  string   `json:"Id"`
	DisplayName         string   `json:"DisplayName"`
	Text                string   `json:"Text"`
	StartingFragmentIDs []string `json:"StartingFragments"`
}

// PinSemantic marks the direction of a dialogue port.
type PinSemantic string

const (
	PinInput  PinSemantic = "Input"
	PinOutput PinSemantic = "Output"
)

type Pin struct {
	ID       string      `yaml:"id"`
	Semantic PinSemantic `yaml:"semantic"`
}

// Fragment is one line of dialogue. SpeakerID is empty when the fragment has
// no structured speaker reference; SpeakerName is always set.
type Fragment struct {
	ID          string `json:"Id"`
	DisplayName string `json:"DisplayName"`
	Text        string `json:"Text"`
	SpeakerID   string `json:"SpeakerId,omitempty"`
	SpeakerName string `json:"SpeakerName"`
}

type Connection struct {
	Source string `json:"Source" yaml:"source"`
	Target string `json:"Target" yaml:"target"`
}

// Message is one element of an extracted flow.
type Message struct {
	FragmentID  string `json:"FragmentId"`
	Text        string `json:"Text"`
	SpeakerID   string `json:"SpeakerId"`
	SpeakerName string `json:"SpeakerName"`
}

func messageFor(f Fragment) Message {
	return Message{
		FragmentID:  f.ID,
		Text:        f.Text,
		SpeakerID:   f.SpeakerID,
		SpeakerName: f.SpeakerName,
	}
}

func cloneEntity(e SpeakingEntity) SpeakingEntity {
	out := e
	if e.Features != nil {
		out.Features = make([]Feature, len(e.Features))
		for i, feature := range e.Features {
			if feature.Properties == nil {
				continue
			}
			props := make(map[string]PropertyValue, len(feature.Properties))
			for key, value := range feature.Properties {
				value.Localized = slices.Clone(value.Localized)
				props[key] = value
			}
			out.Features[i] = Feature{Properties: props}
		}
	}
	return out
}
