// Package server exposes the signatures HTTP API: PDF upload, the
// authoring send, per-signer session fetch, and per-signer
// submission.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mesingh9719/docforge-sign/internal/config"
	"github.com/mesingh9719/docforge-sign/internal/pdfinfo"
	"github.com/mesingh9719/docforge-sign/internal/store"
)

// Server is the HTTP server instance for the signing service.
type Server struct {
	config *config.Config
	store  *store.Store
	pdf    *pdfinfo.Service
	http   *http.Server
}

// NewServer creates a server over the given store and PDF inspection
// service.
func NewServer(cfg *config.Config, st *store.Store, pdf *pdfinfo.Service) (*Server, error) {
	if st == nil {
		return nil, errors.New("store cannot be nil")
	}
	if pdf == nil {
		return nil, errors.New("pdf service cannot be nil")
	}
	s := &Server{config: cfg, store: st, pdf: pdf}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/signatures", func(api chi.Router) {
		api.Post("/upload", s.handleUpload)
		api.Post("/send", s.handleSend)
		api.Get("/{token}", s.handleGetSession)
		api.Get("/{token}/pdf", s.handleGetPDF)
		api.Post("/{token}/sign", s.handleSign)
	})
	return r
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
