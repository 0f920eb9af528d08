package flow

import (
	"fmt"
	"reflect"
)

// AggregateSpeakers resolves the speakers referenced by the given flows.
// Speaker ids are taken in first-appearance order; a record is kept unless a
// structurally equal record was already collected.
func AggregateSpeakers(doc *Document, segments ...[]Message) ([]SpeakingEntity, []Diagnostic) {
	diag := &diagnostics{logger: discardLogger()}
	return doc.aggregateSpeakers(segments, diag), diag.items
}

func (doc *Document) aggregateSpeakers(segments [][]Message, diag *diagnostics) []SpeakingEntity {
	seen := make(map[string]struct{})
	var ids []string
	for _, segment := range segments {
		for _, msg := range segment {
			if msg.SpeakerID == "" {
				continue
			}
			if _, ok := seen[msg.SpeakerID]; ok {
				continue
			}
			seen[msg.SpeakerID] = struct{}{}
			ids = append(ids, msg.SpeakerID)
		}
	}

	speakers := []SpeakingEntity{}
	for _, id := range ids {
		entity, ok := doc.Entity(id)
		if !ok {
			diag.add(CodeDanglingReference, id, fmt.Sprintf("speaker %s not found", id))
			continue
		}
		speakers = appendUniqueEntity(speakers, entity)
	}
	return speakers
}

func appendUniqueEntity(list []SpeakingEntity, entity SpeakingEntity) []SpeakingEntity {
	for _, existing := range list {
		if reflect.DeepEqual(existing, entity) {
			return list
		}
	}
	return append(list, entity)
}
