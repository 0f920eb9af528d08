package mcp

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/metrics"
	"dialoguecraft/internal/store"
	"dialoguecraft/internal/validate"
)

var errNoDocument = errors.New("no document loaded")

type ListDialoguesInput struct{}

type ListFragmentsInput struct {
	Speaker string `json:"speaker,omitempty" jsonschema:"only fragments spoken by this speaker id or name"`
}

type GetTextInput struct {
	ID string `json:"id" jsonschema:"dialogue or fragment id"`
}

type ExtractDialogueFlowInput struct {
	DialogueID string `json:"dialogue_id" jsonschema:"dialogue id"`
}

type ExtractFragmentFlowInput struct {
	FragmentID string `json:"fragment_id" jsonschema:"fragment id"`
}

type GetCondensedContextInput struct {
	DialogueIDs      []string `json:"dialogue_ids,omitempty" jsonschema:"dialogues to extract"`
	FragmentIDs      []string `json:"fragment_ids,omitempty" jsonschema:"fragments to explain"`
	Variant          *int     `json:"variant,omitempty" jsonschema:"index of the localized text variant to keep"`
	IncludeLocations bool     `json:"include_locations,omitempty" jsonschema:"add every location of the document"`
}

type ValidateDocumentInput struct{}

type SearchTextInput struct {
	Query string `json:"query" jsonschema:"search terms"`
	Kind  string `json:"kind,omitempty" jsonschema:"dialogue, fragment or entity"`
}

type DialogueOutput struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"display_name"`
	StartingFragments []string `json:"starting_fragments"`
}

type ListDialoguesOutput struct {
	Dialogues []DialogueOutput `json:"dialogues"`
}

type FragmentOutput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	SpeakerID   string `json:"speaker_id,omitempty"`
	SpeakerName string `json:"speaker_name"`
}

type ListFragmentsOutput struct {
	Fragments []FragmentOutput `json:"fragments"`
}

type GetTextOutput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MessageOutput struct {
	FragmentID  string `json:"fragment_id"`
	Text        string `json:"text"`
	SpeakerID   string `json:"speaker_id,omitempty"`
	SpeakerName string `json:"speaker_name"`
}

type SpeakerOutput struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Text        string           `json:"text"`
	Features    []map[string]any `json:"features"`
}

type DiagnosticOutput struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

type DialogueFlowOutput struct {
	DialogueID  string             `json:"dialogue_id"`
	DisplayName string             `json:"display_name"`
	Segments    [][]MessageOutput  `json:"segments"`
	Speakers    []SpeakerOutput    `json:"speakers"`
	Diagnostics []DiagnosticOutput `json:"diagnostics"`
}

type FragmentFlowOutput struct {
	FragmentID  string             `json:"fragment_id"`
	Messages    []MessageOutput    `json:"messages"`
	Speakers    []SpeakerOutput    `json:"speakers"`
	Diagnostics []DiagnosticOutput `json:"diagnostics"`
}

type CondensedContextOutput struct {
	Context    flow.Condensed `json:"context"`
	Transcript string         `json:"transcript"`
	Missing    []string       `json:"missing,omitempty" jsonschema:"requested ids not found in the document"`
}

type ValidateDocumentOutput struct {
	Issues    []validate.Issue `json:"issues"`
	HasErrors bool             `json:"has_errors"`
}

type SearchTextOutput struct {
	Results []store.SearchResult `json:"results"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_dialogues",
		Description: "List every dialogue with its starting fragments",
	}, s.handleListDialogues)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_fragments",
		Description: "List dialogue fragments, optionally filtered by speaker",
	}, s.handleListFragments)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_text",
		Description: "Return the text of a dialogue or a fragment",
	}, s.handleGetText)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "extract_dialogue_flow",
		Description: "Linearize a dialogue into one message sequence per starting fragment, with its speakers",
	}, s.handleExtractDialogueFlow)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "extract_fragment_flow",
		Description: "List the messages leading to a fragment, ancestors first",
	}, s.handleExtractFragmentFlow)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_condensed_context",
		Description: "Extract several flows and return them condensed to speaker names and text. Unknown ids are listed in missing; the call fails only when none are found",
	}, s.handleGetCondensedContext)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_document",
		Description: "Report dangling connections, dialogues without entry points, unknown speakers and unreachable fragments",
	}, s.handleValidateDocument)

	if s.searcher != nil {
		sdk.AddTool(s.mcp, &sdk.Tool{
			Name:        "search_text",
			Description: "Full-text search over dialogue, fragment and entity text",
		}, s.handleSearchText)
	}
}

func (s *Server) handleListDialogues(ctx context.Context, req *sdk.CallToolRequest, input ListDialoguesInput) (*sdk.CallToolResult, ListDialoguesOutput, error) {
	doc, _ := s.docs.Document()
	if doc == nil {
		return nil, ListDialoguesOutput{}, errNoDocument
	}

	dialogues := doc.Dialogues()
	output := make([]DialogueOutput, 0, len(dialogues))
	for _, d := range dialogues {
		output = append(output, DialogueOutput{
			ID:                d.ID,
			DisplayName:       d.DisplayName,
			StartingFragments: d.StartingFragmentIDs,
		})
	}
	return nil, ListDialoguesOutput{Dialogues: output}, nil
}

func (s *Server) handleListFragments(ctx context.Context, req *sdk.CallToolRequest, input ListFragmentsInput) (*sdk.CallToolResult, ListFragmentsOutput, error) {
	doc, _ := s.docs.Document()
	if doc == nil {
		return nil, ListFragmentsOutput{}, errNoDocument
	}

	output := make([]FragmentOutput, 0)
	for _, f := range doc.Fragments() {
		if input.Speaker != "" && f.SpeakerID != input.Speaker && f.SpeakerName != input.Speaker {
			continue
		}
		output = append(output, FragmentOutput{
			ID:          f.ID,
			DisplayName: f.DisplayName,
			Text:        f.Text,
			SpeakerID:   f.SpeakerID,
			SpeakerName: f.SpeakerName,
		})
	}
	return nil, ListFragmentsOutput{Fragments: output}, nil
}

func (s *Server) handleGetText(ctx context.Context, req *sdk.CallToolRequest, input GetTextInput) (*sdk.CallToolResult, GetTextOutput, error) {
	if input.ID == "" {
		return nil, GetTextOutput{}, fmt.Errorf("id is required")
	}
	doc, _ := s.docs.Document()
	if doc == nil {
		return nil, GetTextOutput{}, errNoDocument
	}
	text, ok := doc.Text(input.ID)
	if !ok {
		return nil, GetTextOutput{}, fmt.Errorf("%s: %w", input.ID, flow.ErrNotFound)
	}
	return nil, GetTextOutput{ID: input.ID, Text: text}, nil
}

func (s *Server) handleExtractDialogueFlow(ctx context.Context, req *sdk.CallToolRequest, input ExtractDialogueFlowInput) (*sdk.CallToolResult, DialogueFlowOutput, error) {
	if input.DialogueID == "" {
		return nil, DialogueFlowOutput{}, fmt.Errorf("dialogue_id is required")
	}
	extractor, err := s.extractor()
	if err != nil {
		return nil, DialogueFlowOutput{}, err
	}

	result, err := extractor.ExtractDialogueFlow(input.DialogueID)
	metrics.ObserveDialogueFlow(result)
	if err != nil {
		return nil, DialogueFlowOutput{}, err
	}
	return nil, dialogueFlowOutput(result), nil
}

func (s *Server) handleExtractFragmentFlow(ctx context.Context, req *sdk.CallToolRequest, input ExtractFragmentFlowInput) (*sdk.CallToolResult, FragmentFlowOutput, error) {
	if input.FragmentID == "" {
		return nil, FragmentFlowOutput{}, fmt.Errorf("fragment_id is required")
	}
	extractor, err := s.extractor()
	if err != nil {
		return nil, FragmentFlowOutput{}, err
	}

	result, err := extractor.ExtractFragmentFlow(input.FragmentID)
	metrics.ObserveFragmentFlow(result)
	if err != nil {
		return nil, FragmentFlowOutput{}, err
	}
	return nil, FragmentFlowOutput{
		FragmentID:  result.FragmentID,
		Messages:    messageOutputs(result.Messages),
		Speakers:    speakerOutputs(result.Speakers),
		Diagnostics: diagnosticOutputs(result.Diagnostics),
	}, nil
}

func (s *Server) handleGetCondensedContext(ctx context.Context, req *sdk.CallToolRequest, input GetCondensedContextInput) (*sdk.CallToolResult, CondensedContextOutput, error) {
	if len(input.DialogueIDs) == 0 && len(input.FragmentIDs) == 0 {
		return nil, CondensedContextOutput{}, fmt.Errorf("at least one dialogue_id or fragment_id is required")
	}
	extractor, err := s.extractor()
	if err != nil {
		return nil, CondensedContextOutput{}, err
	}

	collection := flow.NewCollection()
	var missing []string
	var notFound []error
	skip := func(id string, err error) bool {
		if errors.Is(err, flow.ErrNotFound) {
			missing = append(missing, id)
			notFound = append(notFound, err)
			return true
		}
		return false
	}
	for _, id := range input.DialogueIDs {
		result, err := extractor.ExtractDialogueFlow(id)
		metrics.ObserveDialogueFlow(result)
		if skip(id, err) {
			continue
		}
		if err != nil {
			return nil, CondensedContextOutput{}, err
		}
		collection.AddDialogueFlow(result)
	}
	for _, id := range input.FragmentIDs {
		result, err := extractor.ExtractFragmentFlow(id)
		metrics.ObserveFragmentFlow(result)
		if skip(id, err) {
			continue
		}
		if err != nil {
			return nil, CondensedContextOutput{}, err
		}
		collection.AddFragmentFlow(result)
	}
	if len(missing) == len(input.DialogueIDs)+len(input.FragmentIDs) {
		return nil, CondensedContextOutput{}, errors.Join(notFound...)
	}
	if len(missing) > 0 {
		s.logger.Warn("condensed context skipped unknown ids", "ids", missing)
	}
	if input.IncludeLocations {
		collection.IncludeLocations(extractor.Document())
	}

	variant := s.variant
	if input.Variant != nil {
		variant = *input.Variant
	}
	return nil, CondensedContextOutput{
		Context:    flow.Condense(collection, variant),
		Transcript: flow.Transcript(collection.Dialogues),
		Missing:    missing,
	}, nil
}

func (s *Server) handleValidateDocument(ctx context.Context, req *sdk.CallToolRequest, input ValidateDocumentInput) (*sdk.CallToolResult, ValidateDocumentOutput, error) {
	doc, diagnostics := s.docs.Document()
	if doc == nil {
		return nil, ValidateDocumentOutput{}, errNoDocument
	}
	report, err := validate.Run(doc, diagnostics)
	if err != nil {
		return nil, ValidateDocumentOutput{}, err
	}
	return nil, ValidateDocumentOutput{Issues: report.Issues, HasErrors: report.HasErrors()}, nil
}

func (s *Server) handleSearchText(ctx context.Context, req *sdk.CallToolRequest, input SearchTextInput) (*sdk.CallToolResult, SearchTextOutput, error) {
	if input.Query == "" {
		return nil, SearchTextOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.searcher.Search(ctx, input.Query, input.Kind)
	if err != nil {
		return nil, SearchTextOutput{}, err
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	return nil, SearchTextOutput{Results: results}, nil
}

func dialogueFlowOutput(f *flow.DialogueFlow) DialogueFlowOutput {
	segments := make([][]MessageOutput, 0, len(f.Segments))
	for _, segment := range f.Segments {
		segments = append(segments, messageOutputs(segment))
	}
	return DialogueFlowOutput{
		DialogueID:  f.DialogueID,
		DisplayName: f.DisplayName,
		Segments:    segments,
		Speakers:    speakerOutputs(f.Speakers),
		Diagnostics: diagnosticOutputs(f.Diagnostics),
	}
}

func messageOutputs(messages []flow.Message) []MessageOutput {
	out := make([]MessageOutput, 0, len(messages))
	for _, msg := range messages {
		out = append(out, MessageOutput{
			FragmentID:  msg.FragmentID,
			Text:        msg.Text,
			SpeakerID:   msg.SpeakerID,
			SpeakerName: msg.SpeakerName,
		})
	}
	return out
}

func speakerOutputs(speakers []flow.SpeakingEntity) []SpeakerOutput {
	out := make([]SpeakerOutput, 0, len(speakers))
	for _, speaker := range speakers {
		features := make([]map[string]any, 0, len(speaker.Features))
		for _, feature := range speaker.Features {
			props := make(map[string]any, len(feature.Properties))
			for key, value := range feature.Properties {
				props[key] = propertyValue(value)
			}
			features = append(features, props)
		}
		out = append(out, SpeakerOutput{
			ID:          speaker.ID,
			DisplayName: speaker.DisplayName,
			Text:        speaker.Text,
			Features:    features,
		})
	}
	return out
}

func propertyValue(v flow.PropertyValue) any {
	switch v.Kind {
	case flow.KindNumber:
		return v.Number
	case flow.KindLocalized:
		return append([]string{}, v.Localized...)
	default:
		return v.Text
	}
}

func diagnosticOutputs(diagnostics []flow.Diagnostic) []DiagnosticOutput {
	out := make([]DiagnosticOutput, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, DiagnosticOutput{Code: d.Code, Message: d.Message, ID: d.ID})
	}
	return out
}
