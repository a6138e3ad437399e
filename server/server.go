// Package server exposes report rendering over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/objecturl"
)

// RenderFunc renders one document with extra renderer options.
type RenderFunc func(ctx context.Context, doc *pdfreport.Document, opts ...pdfreport.Option) (*pdfreport.RenderedDocument, error)

type Dependencies struct {
	Store objecturl.Store

	// BaseOptions configure every renderer; request templates add to them.
	BaseOptions []pdfreport.Option
}

type Config struct {
	Addr            string
	RenderTimeout   time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Dependencies    Dependencies
}

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
	config Config
	render RenderFunc
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	if config.RenderTimeout <= 0 {
		config.RenderTimeout = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 8 << 20
	}
	if config.Dependencies.Store == nil {
		config.Dependencies.Store = objecturl.NewMemoryStore("/blobs", time.Hour)
	}

	w := &WebAPI{
		logger: &logger,
		config: config,
	}
	w.render = w.defaultRender

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", w.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", w.createReport)
		r.Post("/reports/markdown", w.createMarkdownReport)
		r.Post("/reports/bundle", w.createBundle)
	})
	router.Get("/blobs/{id}", w.getBlob)
	router.Delete("/blobs/{id}", w.deleteBlob)

	w.router = router
	w.server = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return w
}

// Handler returns the HTTP handler, for tests and embedding.
func (w *WebAPI) Handler() http.Handler { return w.router }

func (w *WebAPI) defaultRender(ctx context.Context, doc *pdfreport.Document, opts ...pdfreport.Option) (*pdfreport.RenderedDocument, error) {
	all := append(append([]pdfreport.Option{}, w.config.Dependencies.BaseOptions...), opts...)
	r, err := pdfreport.New(all...)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, doc)
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		ctx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}
