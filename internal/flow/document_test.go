package flow

import (
	"reflect"
	"testing"
)

func TestNewDocument_EntryPoints(t *testing.T) {
	src := Source{
		Dialogues: []DialogueSource{
			{ID: "D1", Pins: []Pin{
				{ID: "in", Semantic: PinInput},
				{ID: "out-b", Semantic: PinOutput},
				{ID: "out-a", Semantic: PinOutput},
			}},
			{ID: "D2", StartingFragmentIDs: []string{"F3", "F-missing"}},
		},
		Fragments: []Fragment{{ID: "F1"}, {ID: "F2"}, {ID: "F3"}},
		Connections: []Connection{
			{Source: "in", Target: "F3"},
			{Source: "out-a", Target: "F1"},
			{Source: "out-b", Target: "F2"},
			{Source: "out-b", Target: "other-pin"},
		},
	}

	doc, diags := NewDocument(src, nil)

	d1, ok := doc.Dialogue("D1")
	if !ok {
		t.Fatal("expected D1 to exist")
	}
	if !reflect.DeepEqual(d1.StartingFragmentIDs, []string{"F2", "F1"}) {
		t.Errorf("unexpected D1 entry points %v", d1.StartingFragmentIDs)
	}

	d2, _ := doc.Dialogue("D2")
	if !reflect.DeepEqual(d2.StartingFragmentIDs, []string{"F3"}) {
		t.Errorf("unexpected D2 entry points %v", d2.StartingFragmentIDs)
	}

	if !hasDiagnostic(diags, CodeDanglingReference, "other-pin") {
		t.Errorf("expected dangling pin target diagnostic, got %+v", diags)
	}
	if !hasDiagnostic(diags, CodeDanglingReference, "F-missing") {
		t.Errorf("expected dangling starting fragment diagnostic, got %+v", diags)
	}
	if !doc.IsPin("out-a") || doc.IsPin("F1") {
		t.Errorf("unexpected pin lookup results")
	}
}

func TestResolveEntryPoints_OnlyOutputPins(t *testing.T) {
	doc, _ := NewDocument(Source{
		Fragments: []Fragment{{ID: "F1"}, {ID: "F2"}},
		Connections: []Connection{
			{Source: "in", Target: "F1"},
			{Source: "out", Target: "F2"},
		},
	}, nil)

	got, diags := ResolveEntryPoints(doc, "D", []Pin{
		{ID: "in", Semantic: PinInput},
		{ID: "out", Semantic: PinOutput},
	})
	if !reflect.DeepEqual(got, []string{"F2"}) {
		t.Fatalf("expected [F2], got %v", got)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", diags)
	}

	got, _ = ResolveEntryPoints(doc, "D", nil)
	if len(got) != 0 {
		t.Fatalf("expected no entry points without pins, got %v", got)
	}
}

func TestNewDocument_DuplicateIDs(t *testing.T) {
	doc, diags := NewDocument(Source{
		Entities: []SpeakingEntity{{ID: "E1", DisplayName: "first"}, {ID: "E1", DisplayName: "second"}},
		Fragments: []Fragment{
			{ID: "F1", Text: "first"},
			{ID: "F1", Text: "second"},
		},
	}, nil)

	if f, _ := doc.Fragment("F1"); f.Text != "first" {
		t.Errorf("expected first fragment record to win, got %q", f.Text)
	}
	if e, _ := doc.Entity("E1"); e.DisplayName != "first" {
		t.Errorf("expected first entity record to win, got %q", e.DisplayName)
	}
	if len(doc.Fragments()) != 1 || len(doc.Entities()) != 1 {
		t.Errorf("duplicates must not appear in listings")
	}
	if !hasDiagnostic(diags, CodeDuplicateID, "F1") || !hasDiagnostic(diags, CodeDuplicateID, "E1") {
		t.Errorf("expected duplicate diagnostics, got %+v", diags)
	}
}

func TestDocument_AccessorsReturnCopies(t *testing.T) {
	doc, _ := NewDocument(scenarioSource(), nil)

	e, _ := doc.Entity("E1")
	e.Features[0].Properties["Age"] = Number(99)
	e.Features[0].Properties["Biography"].Localized[0] = "changed"

	again, _ := doc.Entity("E1")
	if again.Features[0].Properties["Age"].Number != 31 {
		t.Errorf("entity property mutated through accessor")
	}
	if again.Features[0].Properties["Biography"].Localized[0] != "Ingénieure" {
		t.Errorf("localized variant mutated through accessor")
	}

	d, _ := doc.Dialogue("D1")
	d.StartingFragmentIDs[0] = "changed"
	if again, _ := doc.Dialogue("D1"); again.StartingFragmentIDs[0] != "F1" {
		t.Errorf("dialogue starting fragments mutated through accessor")
	}
}

func TestDocument_Text(t *testing.T) {
	src := scenarioSource()
	src.Dialogues[0].Text = "At the docks."
	doc, _ := NewDocument(src, nil)

	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"D1", "At the docks.", true},
		{"F2", "Well met.", true},
		{"E1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := doc.Text(tt.id)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Text(%s) = %q, %v; want %q, %v", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
