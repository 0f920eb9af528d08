package flow

import "fmt"

// resolveEntryPoints follows each output pin, in declaration order, through
// the index. Targets that are not fragments are reported and skipped.
func (doc *Document) resolveEntryPoints(dialogueID string, pins []Pin, diag *diagnostics) []string {
	starting := []string{}
	for _, pin := range pins {
		if pin.Semantic != PinOutput {
			continue
		}
		for _, target := range doc.index.TargetsOf(pin.ID) {
			if _, ok := doc.fragments[target]; !ok {
				diag.add(CodeDanglingReference, target, fmt.Sprintf("target %s of output pin %s in dialogue %s is not a fragment", target, pin.ID, dialogueID))
				continue
			}
			starting = append(starting, target)
		}
	}
	return starting
}

// ResolveEntryPoints returns the starting fragments reachable from the output
// pins of a dialogue in doc, without modifying doc.
func ResolveEntryPoints(doc *Document, dialogueID string, pins []Pin) ([]string, []Diagnostic) {
	diag := &diagnostics{logger: discardLogger()}
	return doc.resolveEntryPoints(dialogueID, pins, diag), diag.items
}
