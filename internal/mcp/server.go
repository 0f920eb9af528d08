package mcp

import (
	"context"
	"log/slog"
	"sync/atomic"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/store"
)

// Documents hands out the document currently served together with the
// diagnostics raised while building it.
type Documents interface {
	Document() (*flow.Document, []flow.Diagnostic)
}

// Searcher is the optional full-text search backend.
type Searcher interface {
	Search(ctx context.Context, query, kind string) ([]store.SearchResult, error)
}

// DocumentHolder is a Documents whose content can be swapped while the
// server runs.
type DocumentHolder struct {
	current atomic.Pointer[loadedDocument]
}

type loadedDocument struct {
	doc         *flow.Document
	diagnostics []flow.Diagnostic
}

func NewDocumentHolder(doc *flow.Document, diagnostics []flow.Diagnostic) *DocumentHolder {
	h := &DocumentHolder{}
	h.Store(doc, diagnostics)
	return h
}

func (h *DocumentHolder) Store(doc *flow.Document, diagnostics []flow.Diagnostic) {
	h.current.Store(&loadedDocument{doc: doc, diagnostics: diagnostics})
}

func (h *DocumentHolder) Document() (*flow.Document, []flow.Diagnostic) {
	loaded := h.current.Load()
	if loaded == nil {
		return nil, nil
	}
	return loaded.doc, loaded.diagnostics
}

type Options struct {
	MaxNodes int
	Variant  int
	Logger   *slog.Logger
	Searcher Searcher
}

type Server struct {
	docs     Documents
	searcher Searcher
	maxNodes int
	variant  int
	logger   *slog.Logger
	mcp      *sdk.Server
}

func NewServer(docs Documents, options Options, version string) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		docs:     docs,
		searcher: options.Searcher,
		maxNodes: options.MaxNodes,
		variant:  options.Variant,
		logger:   logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "dialoguecraft",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// MCP exposes the underlying server for the streamable HTTP handler.
func (s *Server) MCP() *sdk.Server {
	return s.mcp
}

func (s *Server) extractor() (*flow.Extractor, error) {
	doc, _ := s.docs.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	return flow.NewExtractor(doc, flow.WithLogger(s.logger), flow.WithMaxNodes(s.maxNodes)), nil
}
