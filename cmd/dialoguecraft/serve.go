package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dialoguecraft/internal/config"
	"dialoguecraft/internal/document"
	"dialoguecraft/internal/flow"
	"dialoguecraft/internal/ingest"
	"dialoguecraft/internal/mcp"
	"dialoguecraft/internal/metrics"
	"dialoguecraft/internal/store"
)

type serveOptions struct {
	transport string
	addr      string
	watch     bool
}

func serveCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio or streamable HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport: stdio or http")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default from the project file)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the interchange document when it changes")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	if opts.transport != "stdio" && opts.transport != "http" {
		return fmt.Errorf("unknown transport %q: use stdio or http", opts.transport)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var db store.Store
	if !fromSource {
		client, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())
		db = client
	}

	holder := mcp.NewDocumentHolder(nil, nil)
	g, gctx := errgroup.WithContext(ctx)

	if opts.watch {
		watcher, err := newDocumentWatcher(gctx, cfg, db, holder)
		if err != nil {
			return err
		}
		g.Go(func() error { return watcher.Watch(gctx) })
	} else {
		src, err := readSource(ctx, cfg, db)
		if err != nil {
			return err
		}
		serveDocument(holder, src)
	}

	server := mcp.NewServer(holder, mcp.Options{
		MaxNodes: cfg.Traversal.MaxNodes,
		Variant:  cfg.ExportVariant(),
		Logger:   logger,
		Searcher: db,
	}, version)

	switch opts.transport {
	case "stdio":
		logger.Info("MCP server starting", "transport", "stdio")
		g.Go(func() error {
			// the client closing stdin ends the session and the watcher with it
			defer cancel()
			return server.Run(gctx, &sdk.StdioTransport{})
		})
	case "http":
		addr := opts.addr
		if addr == "" {
			addr = cfg.Serve.Addr
		}
		serveHTTP(gctx, g, server, addr)
	}

	return g.Wait()
}

func serveHTTP(ctx context.Context, g *errgroup.Group, server *mcp.Server, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/mcp", sdk.NewStreamableHTTPHandler(func(r *http.Request) *sdk.Server {
		return server.MCP()
	}, nil))
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("MCP server listening", "transport", "http", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// newDocumentWatcher serves the interchange file itself and swaps the served
// document on every successful reload. With a database the file is also
// re-ingested so search results follow.
func newDocumentWatcher(ctx context.Context, cfg *config.ProjectConfig, db store.Store, holder *mcp.DocumentHolder) (*config.Watcher[flow.Source], error) {
	load := func(path string) (flow.Source, error) {
		return document.ParseFile(path, document.WithLanguage(cfg.Language))
	}
	watcher, err := config.NewWatcher(cfg.SourcePath(), load, logger)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.SourcePath(), err)
	}

	reingest := func() {
		if db == nil {
			return
		}
		if _, err := ingest.Run(ctx, cfg, db, ingest.Options{Language: cfg.Language, Logger: logger}); err != nil {
			logger.Warn("re-ingest failed", "err", err)
		}
	}

	reingest()
	serveDocument(holder, watcher.Current())

	watcher.OnChange(func(src flow.Source) {
		reingest()
		serveDocument(holder, src)
		metrics.DocumentReloads.WithLabelValues("ok").Inc()
	})
	watcher.OnError(func(err error) {
		metrics.DocumentReloads.WithLabelValues("error").Inc()
	})
	return watcher, nil
}

func serveDocument(holder *mcp.DocumentHolder, src flow.Source) {
	doc, diagnostics := flow.NewDocument(src, logger)
	metrics.ObserveDiagnostics(diagnostics)
	metrics.DocumentFragments.Set(float64(len(doc.Fragments())))
	holder.Store(doc, diagnostics)
	logger.Info("serving document",
		"dialogues", len(doc.Dialogues()),
		"fragments", len(doc.Fragments()),
		"diagnostics", len(diagnostics),
	)
}
