package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"coursegen/internal/auth"
	"coursegen/internal/config"
	"coursegen/internal/embed"
	"coursegen/internal/logger"
	"coursegen/internal/metrics"
	"coursegen/internal/orchestrator"
	"coursegen/internal/queue"
	"coursegen/internal/retrieval"
	"coursegen/internal/store"
	"coursegen/internal/vector"
)

type App struct {
	Config       config.Config
	Log          *logger.Logger
	Metrics      *metrics.Metrics
	Store        *store.Store
	Queue        *queue.Queue
	Vector       *vector.Qdrant
	Embedder     embed.Provider
	Retrieval    *retrieval.Service
	Orchestrator *orchestrator.Orchestrator
}

// New opens storage, migrates it, and builds the provider chain. Redis and
// qdrant are optional: without them uploads are not indexed and search uses
// full-text ranking only.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.Store = st
	if err := store.Migrate(ctx, st.DB()); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		q, err := queue.New(cfg.Redis.URL, cfg.Redis.Queue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Queue = q
	} else {
		log.Warn("redis not configured, uploads will not be indexed")
	}

	embedder, err := embed.New(embed.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Dim:       cfg.Embedding.Dim,
		OllamaURL: cfg.Providers.Ollama.BaseURL,
		OpenAIKey: cfg.Providers.OpenAI.APIKey,
		OpenAIURL: cfg.Providers.OpenAI.BaseURL,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Embedder = embedder

	var vectors retrieval.VectorSearcher
	if cfg.Qdrant.URL != "" && embed.Enabled(embedder) {
		a.Vector = vector.NewQdrant(cfg.Qdrant.URL, cfg.Qdrant.Collection)
		vectors = a.Vector
	}
	a.Retrieval = retrieval.New(st, embedder, vectors, cfg.Retrieval.MinChunkChars, log)

	providers, err := BuildProviders(ctx, cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	orch, err := orchestrator.New(ctx, providers,
		orchestrator.WithLogger(log),
		orchestrator.WithRecorder(a.Metrics),
		orchestrator.WithProbeTimeout(cfg.Providers.ProbeTimeout),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Orchestrator = orch
	log.Info("provider chain ready", "order", cfg.Providers.Order, "current", orch.Current())
	return a, nil
}

func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	return err
}

// Server builds the HTTP API over the App's collaborators.
func (a *App) Server() *Server {
	d := Deps{
		Generator:     a.Orchestrator,
		Courses:       a.Store,
		Search:        a.Retrieval,
		Metrics:       a.Metrics,
		Auth:          auth.NewVerifier(a.Config),
		Log:           a.Log,
		Ready:         map[string]Pinger{"database": a.Store},
		ChunkSize:     a.Config.Chunking.Size,
		ChunkOverlap:  a.Config.Chunking.Overlap,
		LessonResults: a.Config.Retrieval.LessonResults,
	}
	if a.Queue != nil {
		d.Jobs = a.Queue
		d.Ready["redis"] = a.Queue
	}
	if a.Vector != nil {
		d.Index = a.Vector
	}
	return NewServer(d)
}

func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Server().Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	a.Log.Info("serving", "addr", a.Config.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
