package flow

import (
	"reflect"
	"strconv"
	"testing"
)

func testDocument(t *testing.T, fragmentIDs []string, edges [][2]string) *Document {
	t.Helper()
	src := Source{}
	for _, id := range fragmentIDs {
		src.Fragments = append(src.Fragments, Fragment{ID: id, Text: "text " + id, SpeakerName: "Unknown"})
	}
	for _, edge := range edges {
		src.Connections = append(src.Connections, Connection{Source: edge[0], Target: edge[1]})
	}
	doc, _ := NewDocument(src, nil)
	return doc
}

func messageIDs(messages []Message) []string {
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.FragmentID)
	}
	return ids
}

func TestWalkForward(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		edges     [][2]string
		start     string
		expected  []string
	}{
		{
			name:      "single fragment",
			fragments: []string{"A"},
			start:     "A",
			expected:  []string{"A"},
		},
		{
			name:      "pre-order with edge order siblings",
			fragments: []string{"A", "B", "C", "D", "E"},
			edges:     [][2]string{{"A", "B"}, {"B", "D"}, {"A", "C"}, {"C", "E"}},
			start:     "A",
			expected:  []string{"A", "B", "D", "C", "E"},
		},
		{
			name:      "two node cycle",
			fragments: []string{"A", "B"},
			edges:     [][2]string{{"A", "B"}, {"B", "A"}},
			start:     "A",
			expected:  []string{"A", "B"},
		},
		{
			name:      "self loop",
			fragments: []string{"A"},
			edges:     [][2]string{{"A", "A"}},
			start:     "A",
			expected:  []string{"A"},
		},
		{
			name:      "diamond emits join once",
			fragments: []string{"A", "B", "C", "D"},
			edges:     [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}},
			start:     "A",
			expected:  []string{"A", "B", "D", "C"},
		},
		{
			name:      "dangling target skipped",
			fragments: []string{"A", "B"},
			edges:     [][2]string{{"A", "pin-1"}, {"A", "B"}},
			start:     "A",
			expected:  []string{"A", "B"},
		},
		{
			name:      "unknown start",
			fragments: []string{"A"},
			start:     "missing",
			expected:  []string{},
		},
		{
			name:      "duplicate edges preserved but emitted once",
			fragments: []string{"A", "B"},
			edges:     [][2]string{{"A", "B"}, {"A", "B"}},
			start:     "A",
			expected:  []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument(t, tt.fragments, tt.edges)
			got := messageIDs(WalkForward(doc, tt.start, Visited{}))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("WalkForward(%s) = %v, want %v", tt.start, got, tt.expected)
			}
		})
	}
}

func TestWalkForward_RespectsVisited(t *testing.T) {
	doc := testDocument(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}})
	visited := Visited{"B": {}}

	got := messageIDs(WalkForward(doc, "A", visited))
	if !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("expected [A], got %v", got)
	}
	if !visited.Has("A") {
		t.Fatalf("expected A to be marked visited")
	}
}

func TestWalkForward_MessageFields(t *testing.T) {
	doc, _ := NewDocument(Source{
		Fragments: []Fragment{{ID: "F1", Text: "Hello", SpeakerID: "E1", SpeakerName: "Ada"}},
	}, nil)

	got := WalkForward(doc, "F1", nil)
	want := []Message{{FragmentID: "F1", Text: "Hello", SpeakerID: "E1", SpeakerName: "Ada"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestWalkBackward(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		edges     [][2]string
		target    string
		expected  []string
	}{
		{
			name:      "linear chain",
			fragments: []string{"F1", "F2", "F4"},
			edges:     [][2]string{{"F1", "F2"}, {"F2", "F4"}},
			target:    "F4",
			expected:  []string{"F1", "F2", "F4"},
		},
		{
			name:      "cycle terminates",
			fragments: []string{"A", "B"},
			edges:     [][2]string{{"A", "B"}, {"B", "A"}},
			target:    "B",
			expected:  []string{"A", "B"},
		},
		{
			name:      "non fragment sources ignored",
			fragments: []string{"A", "B"},
			edges:     [][2]string{{"pin-1", "A"}, {"A", "B"}},
			target:    "B",
			expected:  []string{"A", "B"},
		},
		{
			name:      "shared ancestor emitted by first branch only",
			fragments: []string{"R", "L", "M", "T"},
			edges:     [][2]string{{"R", "L"}, {"R", "M"}, {"L", "T"}, {"M", "T"}},
			target:    "T",
			expected:  []string{"R", "L", "M", "T"},
		},
		{
			name:      "unknown target",
			fragments: []string{"A"},
			target:    "missing",
			expected:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument(t, tt.fragments, tt.edges)
			got := messageIDs(WalkBackward(doc, tt.target, Visited{}))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("WalkBackward(%s) = %v, want %v", tt.target, got, tt.expected)
			}
		})
	}
}

func TestWalkBackward_MirrorsForwardOnReversedGraph(t *testing.T) {
	fragments := []string{"A", "B", "C", "D", "E"}
	edges := [][2]string{{"A", "C"}, {"B", "C"}, {"C", "D"}, {"D", "E"}, {"E", "C"}}

	reversed := make([][2]string, 0, len(edges))
	for _, edge := range edges {
		reversed = append(reversed, [2]string{edge[1], edge[0]})
	}

	backward := messageIDs(WalkBackward(testDocument(t, fragments, edges), "D", Visited{}))
	forward := messageIDs(WalkForward(testDocument(t, fragments, reversed), "D", Visited{}))

	if len(backward) != len(forward) {
		t.Fatalf("length mismatch: backward %v, forward %v", backward, forward)
	}
	if backward[len(backward)-1] != "D" || forward[0] != "D" {
		t.Fatalf("expected target last in backward and first in forward: %v / %v", backward, forward)
	}
	seen := make(map[string]bool)
	for _, id := range forward {
		seen[id] = true
	}
	for _, id := range backward {
		if !seen[id] {
			t.Fatalf("backward emitted %s which forward on the reversed graph did not", id)
		}
	}
}

func TestWalkerLimit(t *testing.T) {
	doc := testDocument(t, []string{"A", "B", "C", "D"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}})
	diag := &diagnostics{logger: discardLogger()}

	w := &walker{doc: doc, diag: diag, maxNodes: 2}
	got := messageIDs(w.forward("A", Visited{}))
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("expected truncated flow [A B], got %v", got)
	}
	if len(diag.items) != 1 || diag.items[0].Code != CodeTraversalLimit {
		t.Fatalf("expected one traversal_limit diagnostic, got %+v", diag.items)
	}

	w = &walker{doc: doc, diag: &diagnostics{logger: discardLogger()}, maxNodes: 2}
	got = messageIDs(w.backward("D", Visited{}))
	if !reflect.DeepEqual(got, []string{"C", "D"}) {
		t.Fatalf("expected truncated backward flow [C D], got %v", got)
	}
}

func chainDocument(t *testing.T, depth int) (*Document, []string) {
	t.Helper()
	ids := make([]string, depth)
	edges := make([][2]string, 0, depth)
	for i := range ids {
		ids[i] = "F" + strconv.Itoa(i)
		if i > 0 {
			edges = append(edges, [2]string{ids[i-1], ids[i]})
		}
	}
	return testDocument(t, ids, edges), ids
}

func TestWalkForward_DeepChain(t *testing.T) {
	const depth = 100000
	doc, ids := chainDocument(t, depth)

	if got := len(WalkForward(doc, ids[0], Visited{})); got != depth {
		t.Fatalf("expected %d messages, got %d", depth, got)
	}
}

func TestWalkBackward_DeepChain(t *testing.T) {
	const depth = 3000
	doc, ids := chainDocument(t, depth)

	got := WalkBackward(doc, ids[depth-1], Visited{})
	if len(got) != depth {
		t.Fatalf("expected %d messages, got %d", depth, len(got))
	}
	if got[0].FragmentID != ids[0] {
		t.Fatalf("expected chain root first, got %s", got[0].FragmentID)
	}
}
