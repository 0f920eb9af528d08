package flow

import "fmt"

// Visited is the cycle guard of one top-level traversal.
type Visited map[string]struct{}

func (v Visited) Has(id string) bool {
	_, ok := v[id]
	return ok
}

type walker struct {
	doc       *Document
	diag      *diagnostics
	maxNodes  int
	truncated bool
}

// WalkForward flattens the graph below startID in pre-order: a fragment
// precedes everything reachable from it and siblings follow edge order. A
// fragment already in visited is never emitted again.
func WalkForward(doc *Document, startID string, visited Visited) []Message {
	w := &walker{doc: doc, diag: &diagnostics{logger: discardLogger()}}
	return w.forward(startID, visited)
}

// WalkBackward lists the ancestors of targetID before targetID itself.
// visited is shared by every ancestor branch: when two branches meet at a
// common ancestor, the first branch emits it and the second stops there.
func WalkBackward(doc *Document, targetID string, visited Visited) []Message {
	w := &walker{doc: doc, diag: &diagnostics{logger: discardLogger()}}
	return w.backward(targetID, visited)
}

func (w *walker) mark(visited Visited, id string) bool {
	if w.maxNodes > 0 && len(visited) >= w.maxNodes {
		if !w.truncated {
			w.truncated = true
			w.diag.add(CodeTraversalLimit, id, fmt.Sprintf("traversal stopped at %s after %d nodes", id, w.maxNodes))
		}
		return false
	}
	visited[id] = struct{}{}
	return true
}

func (w *walker) forward(startID string, visited Visited) []Message {
	if visited == nil {
		visited = Visited{}
	}
	flow := []Message{}
	stack := []string{startID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited.Has(id) {
			w.diag.add(CodeLoopDetected, id, fmt.Sprintf("loop detected at %s, branch stopped", id))
			continue
		}
		if !w.mark(visited, id) {
			break
		}
		fragment, ok := w.doc.fragments[id]
		if !ok {
			w.diag.add(CodeDanglingReference, id, fmt.Sprintf("fragment %s not found", id))
			continue
		}
		flow = append(flow, messageFor(fragment))

		targets := w.doc.index.TargetsOf(id)
		for i := len(targets) - 1; i >= 0; i-- {
			stack = append(stack, targets[i])
		}
	}
	return flow
}

type backFrame struct {
	id      string
	sources []string
	next    int
}

func (w *walker) backward(targetID string, visited Visited) []Message {
	if visited == nil {
		visited = Visited{}
	}
	flow := []Message{}
	if visited.Has(targetID) {
		w.diag.add(CodeLoopDetected, targetID, fmt.Sprintf("loop detected at %s, branch stopped", targetID))
		return flow
	}
	if !w.mark(visited, targetID) {
		return flow
	}

	stack := []backFrame{{id: targetID, sources: w.doc.index.SourcesOf(targetID)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.sources) {
			source := top.sources[top.next]
			top.next++
			if _, ok := w.doc.fragments[source]; !ok {
				continue
			}
			if visited.Has(source) {
				w.diag.add(CodeLoopDetected, source, fmt.Sprintf("loop detected at %s, branch stopped", source))
				continue
			}
			if !w.mark(visited, source) {
				continue
			}
			stack = append(stack, backFrame{id: source, sources: w.doc.index.SourcesOf(source)})
			continue
		}

		id := top.id
		stack = stack[:len(stack)-1]
		if fragment, ok := w.doc.fragments[id]; ok {
			flow = append(flow, messageFor(fragment))
		}
	}
	return flow
}
