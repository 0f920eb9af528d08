package mcp

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/store"
)

type mockSearcher struct {
	results   []store.SearchResult
	err       error
	lastQuery string
	lastKind  string
}

func (m *mockSearcher) Search(ctx context.Context, query, kind string) ([]store.SearchResult, error) {
	m.lastQuery = query
	m.lastKind = kind
	return m.results, m.err
}

func testServer(t *testing.T, options Options) *Server {
	t.Helper()
	doc, diagnostics := flow.NewDocument(flow.Source{
		Entities: []flow.SpeakingEntity{{
			ID:          "E1",
			DisplayName: "Ada",
			Features:    []flow.Feature{{Properties: map[string]flow.PropertyValue{"Bio": flow.Localized("Pilote", "Pilot")}}},
		}},
		Locations: []flow.Location{{ID: "L1", Name: "Docks"}},
		Dialogues: []flow.DialogueSource{
			{ID: "D1", DisplayName: "Arrival", Text: "Ships come in.", Pins: []flow.Pin{{ID: "D1-out", Semantic: flow.PinOutput}}},
			{ID: "D2", DisplayName: "Empty"},
		},
		Fragments: []flow.Fragment{
			{ID: "F1", Text: "Ahoy.", SpeakerID: "E1", SpeakerName: "Ada"},
			{ID: "F2", Text: "Who goes there?", SpeakerName: "Brom"},
			{ID: "F3", Text: "Nobody.", SpeakerName: "Unknown"},
		},
		Connections: []flow.Connection{
			{Source: "D1-out", Target: "F1"},
			{Source: "F1", Target: "F2"},
			{Source: "F2", Target: "F1"},
		},
	}, nil)
	return NewServer(NewDocumentHolder(doc, diagnostics), options, "test")
}

func TestListDialogues(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleListDialogues(context.Background(), nil, ListDialoguesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Dialogues) != 2 || output.Dialogues[0].ID != "D1" {
		t.Fatalf("unexpected dialogues: %+v", output)
	}
	if !reflect.DeepEqual(output.Dialogues[0].StartingFragments, []string{"F1"}) {
		t.Fatalf("unexpected starting fragments: %v", output.Dialogues[0].StartingFragments)
	}
}

func TestListFragments(t *testing.T) {
	server := testServer(t, Options{})

	tests := []struct {
		name    string
		speaker string
		want    int
	}{
		{name: "all", want: 3},
		{name: "by speaker id", speaker: "E1", want: 1},
		{name: "by speaker name", speaker: "Brom", want: 1},
		{name: "no match", speaker: "Nobody", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := server.handleListFragments(context.Background(), nil, ListFragmentsInput{Speaker: tt.speaker})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(output.Fragments) != tt.want {
				t.Fatalf("expected %d fragments, got %+v", tt.want, output.Fragments)
			}
		})
	}
}

func TestGetText(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleGetText(context.Background(), nil, GetTextInput{ID: "D1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Text != "Ships come in." {
		t.Fatalf("unexpected text %q", output.Text)
	}

	_, _, err = server.handleGetText(context.Background(), nil, GetTextInput{ID: "missing"})
	if !errors.Is(err, flow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractDialogueFlow(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleExtractDialogueFlow(context.Background(), nil, ExtractDialogueFlowInput{DialogueID: "D1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Segments) != 1 || len(output.Segments[0]) != 2 {
		t.Fatalf("unexpected segments: %+v", output.Segments)
	}
	if output.Segments[0][0].FragmentID != "F1" || output.Segments[0][1].FragmentID != "F2" {
		t.Fatalf("unexpected order: %+v", output.Segments[0])
	}
	if len(output.Speakers) != 1 || output.Speakers[0].ID != "E1" {
		t.Fatalf("unexpected speakers: %+v", output.Speakers)
	}
	bio, ok := output.Speakers[0].Features[0]["Bio"].([]string)
	if !ok || len(bio) != 2 {
		t.Fatalf("expected localized feature, got %#v", output.Speakers[0].Features)
	}

	_, _, err = server.handleExtractDialogueFlow(context.Background(), nil, ExtractDialogueFlowInput{DialogueID: "D_unknown"})
	if !errors.Is(err, flow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _, err = server.handleExtractDialogueFlow(context.Background(), nil, ExtractDialogueFlowInput{})
	if err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestExtractDialogueFlow_Empty(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleExtractDialogueFlow(context.Background(), nil, ExtractDialogueFlowInput{DialogueID: "D2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Segments) != 0 {
		t.Fatalf("expected no segments, got %+v", output.Segments)
	}
	if len(output.Diagnostics) == 0 || output.Diagnostics[0].Code != flow.CodeEmptyResult {
		t.Fatalf("expected empty result diagnostic, got %+v", output.Diagnostics)
	}
}

func TestExtractFragmentFlow(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleExtractFragmentFlow(context.Background(), nil, ExtractFragmentFlowInput{FragmentID: "F2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make([]string, 0, len(output.Messages))
	for _, msg := range output.Messages {
		ids = append(ids, msg.FragmentID)
	}
	if !reflect.DeepEqual(ids, []string{"F1", "F2"}) {
		t.Fatalf("unexpected flow %v", ids)
	}
}

func TestGetCondensedContext(t *testing.T) {
	server := testServer(t, Options{Variant: 1})

	_, output, err := server.handleGetCondensedContext(context.Background(), nil, GetCondensedContextInput{
		DialogueIDs:      []string{"D1"},
		FragmentIDs:      []string{"F3"},
		IncludeLocations: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Context.Dialogues) != 2 {
		t.Fatalf("expected two flows, got %+v", output.Context.Dialogues)
	}
	if len(output.Context.Characters) != 1 || output.Context.Characters[0].Features[0].Properties["Bio"] != "Pilot" {
		t.Fatalf("unexpected characters: %+v", output.Context.Characters)
	}
	if _, ok := output.Context.Locations["L1"]; !ok {
		t.Fatalf("expected locations, got %+v", output.Context.Locations)
	}
	if !strings.HasPrefix(output.Transcript, "Ada: Ahoy.\n\n") {
		t.Fatalf("unexpected transcript %q", output.Transcript)
	}

	variant := 0
	_, output, err = server.handleGetCondensedContext(context.Background(), nil, GetCondensedContextInput{
		DialogueIDs: []string{"D1"},
		Variant:     &variant,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Context.Characters[0].Features[0].Properties["Bio"] != "Pilote" {
		t.Fatalf("expected variant override, got %+v", output.Context.Characters)
	}

	if _, _, err := server.handleGetCondensedContext(context.Background(), nil, GetCondensedContextInput{}); err == nil {
		t.Fatalf("expected error without ids")
	}
}

func TestGetCondensedContext_UnknownIDs(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleGetCondensedContext(context.Background(), nil, GetCondensedContextInput{
		DialogueIDs: []string{"D_unknown", "D1"},
		FragmentIDs: []string{"F_unknown"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Context.Dialogues) != 1 {
		t.Fatalf("expected the D1 flow, got %+v", output.Context.Dialogues)
	}
	if !reflect.DeepEqual(output.Missing, []string{"D_unknown", "F_unknown"}) {
		t.Fatalf("unexpected missing ids %v", output.Missing)
	}

	_, _, err = server.handleGetCondensedContext(context.Background(), nil, GetCondensedContextInput{
		DialogueIDs: []string{"D_unknown"},
	})
	if !errors.Is(err, flow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when nothing is found, got %v", err)
	}
}

func TestValidateDocument(t *testing.T) {
	server := testServer(t, Options{})

	_, output, err := server.handleValidateDocument(context.Background(), nil, ValidateDocumentInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	codes := map[string]bool{}
	for _, issue := range output.Issues {
		codes[issue.Code+":"+issue.ID] = true
	}
	if !codes["dialogue_without_entry_points:D2"] || !codes["unreachable_fragment:F3"] {
		t.Fatalf("unexpected issues: %+v", output.Issues)
	}
	if output.HasErrors {
		t.Fatalf("expected warnings only")
	}
}

func TestSearchText(t *testing.T) {
	searcher := &mockSearcher{results: []store.SearchResult{{Kind: store.KindFragment, ID: "F1", Score: 1}}}
	server := testServer(t, Options{Searcher: searcher})

	_, output, err := server.handleSearchText(context.Background(), nil, SearchTextInput{Query: "ahoy", Kind: store.KindFragment})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Results) != 1 || output.Results[0].ID != "F1" {
		t.Fatalf("unexpected results: %+v", output)
	}
	if searcher.lastQuery != "ahoy" || searcher.lastKind != store.KindFragment {
		t.Fatalf("unexpected search params")
	}
}

func TestNoDocument(t *testing.T) {
	server := NewServer(&DocumentHolder{}, Options{}, "test")

	if _, _, err := server.handleListDialogues(context.Background(), nil, ListDialoguesInput{}); !errors.Is(err, errNoDocument) {
		t.Fatalf("expected errNoDocument, got %v", err)
	}
	if _, _, err := server.handleExtractFragmentFlow(context.Background(), nil, ExtractFragmentFlowInput{FragmentID: "F1"}); !errors.Is(err, errNoDocument) {
		t.Fatalf("expected errNoDocument, got %v", err)
	}
}

func TestDocumentHolder_Store(t *testing.T) {
	holder := NewDocumentHolder(nil, nil)
	doc, _ := flow.NewDocument(flow.Source{Fragments: []flow.Fragment{{ID: "F1"}}}, nil)
	diagnostics := []flow.Diagnostic{{Code: flow.CodeDuplicateID, ID: "F1"}}

	holder.Store(doc, diagnostics)

	got, gotDiagnostics := holder.Document()
	if got != doc || len(gotDiagnostics) != 1 {
		t.Fatalf("expected stored document")
	}
}
