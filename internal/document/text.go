package document

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// localizedText is a text field given either as a plain string or as a map
// of language code to string. Map entries keep their authored order.
type localizedText struct {
	langs  []string
	values []string
}

func (t *localizedText) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*t = localizedText{}
			return nil
		}
		*t = localizedText{langs: []string{""}, values: []string{node.Value}}
		return nil
	case yaml.MappingNode:
		out := localizedText{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: localized text for %q must be a string", value.Line, key.Value)
			}
			out.langs = append(out.langs, key.Value)
			out.values = append(out.values, value.Value)
		}
		*t = out
		return nil
	default:
		return fmt.Errorf("line %d: text must be a string or a language map", node.Line)
	}
}

// pick returns the text in lang, else the first authored variant.
func (t localizedText) pick(lang string) string {
	for i, l := range t.langs {
		if l == lang {
			return t.values[i]
		}
	}
	if len(t.values) == 0 {
		return ""
	}
	return t.values[0]
}
