// Package server hosts the live preview: an HTTP surface serving the
// rendered handbook, a websocket that pushes re-renders on every store
// change, a small edit API, and export downloads.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/config"
	"github.com/inkforge/handbook/internal/export/offline"
	"github.com/inkforge/handbook/internal/export/pdfdoc"
	"github.com/inkforge/handbook/internal/imagehost"
	"github.com/inkforge/handbook/internal/preview"
	"github.com/inkforge/handbook/internal/suggest"
)

// Server wires the store, renderers and collaborators behind HTTP.
type Server struct {
	store    *handbook.Store
	cfg      *config.Config
	renderer *preview.Renderer
	hub      *hub
	images   *imagehost.Client
	advisor  *suggest.Client
	httpSrv  *http.Server
	watcher  *watcher
}

// New creates a server around an existing store.
func New(store *handbook.Store, cfg *config.Config) *Server {
	s := &Server{
		store:    store,
		cfg:      cfg,
		renderer: preview.New(),
		hub:      newHub(),
	}
	if cfg.ImageHost.Endpoint != "" {
		s.images = imagehost.New(cfg.ImageHost.Endpoint, cfg.ImageHost.APIKey, cfg.ImageHostTimeout())
	}
	if cfg.Suggestions.Endpoint != "" {
		s.advisor = suggest.New(cfg.Suggestions.Endpoint, cfg.SuggestionsTimeout(), cfg.Suggestions.PerMinute)
	}
	return s
}

// WatchDir makes the server reload the store when a snapshot file in dir is
// modified outside this process.
func (s *Server) WatchDir(dir string) error {
	w, err := newWatcher(dir, s.store)
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// ListenAndServe blocks until the context is canceled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handlePreview)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /api/edit", s.handleEdit)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/suggestions", s.handleSuggestions)
	mux.HandleFunc("GET /export/offline.zip", s.handleOfflineExport)
	mux.HandleFunc("GET /export/handbook.pdf", s.handlePDFExport)

	unsubscribe := s.store.Subscribe(s.broadcast)
	defer unsubscribe()

	if s.watcher != nil {
		go s.watcher.run(ctx)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] preview listening on http://%s", addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	mode := preview.ModeActiveModule
	if r.URL.Query().Get("mode") == "all" {
		mode = preview.ModeAllModules
	}
	snap := s.store.Snapshot()
	html := s.renderer.Document(snap, s.store.ActiveModuleID(), mode)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// broadcast re-renders the active-module view and pushes it to every
// connected preview client.
func (s *Server) broadcast() {
	snap := s.store.Snapshot()
	html := s.renderer.Document(snap, s.store.ActiveModuleID(), preview.ModeActiveModule)
	s.hub.broadcast(renderMessage{Type: "render", HTML: html})
}

func (s *Server) handleOfflineExport(w http.ResponseWriter, r *http.Request) {
	bundle, err := offline.NewGenerator().Generate(s.store.Snapshot())
	if err != nil {
		log.Printf("[server] offline export: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="handbook-offline.zip"`)
	if err := bundle.WriteArchive(w); err != nil {
		log.Printf("[server] offline export: %v", err)
	}
}

func (s *Server) handlePDFExport(w http.ResponseWriter, r *http.Request) {
	gen := pdfdoc.NewGenerator(pdfdoc.Options{AnswerKey: s.cfg.Export.AnswerKey})
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="handbook.pdf"`)
	if err := gen.Generate(s.store.Snapshot(), w); err != nil {
		log.Printf("[server] pdf export: %v", err)
	}
}
