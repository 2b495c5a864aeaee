package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coursegen/internal/app"
	"coursegen/internal/config"
	"coursegen/internal/embed"
	"coursegen/internal/indexer"
	"coursegen/internal/logger"
	"coursegen/internal/queue"
	"coursegen/internal/store"
	"coursegen/internal/vector"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	cfg, err := config.Load(os.Getenv("CG_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	lg, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "serve":
		err = runServe(ctx, cfg, lg)
	case "worker":
		err = runWorker(ctx, cfg, lg)
	case "migrate":
		err = runMigrate(ctx, cfg)
	default:
		usage()
		return
	}
	if err != nil {
		lg.Error("exit", "cmd", cmd, "error", err)
		lg.Sync()
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg config.Config, lg *logger.Logger) error {
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return fmt.Errorf("app init: %w", err)
	}
	defer a.Close()
	return a.Serve(ctx)
}

func runWorker(ctx context.Context, cfg config.Config, lg *logger.Logger) error {
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := store.Migrate(ctx, st.DB()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	q, err := queue.New(cfg.Redis.URL, cfg.Redis.Queue)
	if err != nil {
		return err
	}
	defer q.Close()

	embedder, err := embed.New(embed.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Dim:       cfg.Embedding.Dim,
		OllamaURL: cfg.Providers.Ollama.BaseURL,
		OpenAIKey: cfg.Providers.OpenAI.APIKey,
		OpenAIURL: cfg.Providers.OpenAI.BaseURL,
	})
	if err != nil {
		return err
	}
	if !embed.Enabled(embedder) {
		return fmt.Errorf("worker needs an embedding provider: %w", embed.ErrDisabled)
	}
	vec := vector.NewQdrant(cfg.Qdrant.URL, cfg.Qdrant.Collection)
	if err := vec.EnsureCollection(ctx, embedder.Dim()); err != nil {
		lg.Warn("qdrant ensure collection failed", "collection", cfg.Qdrant.Collection, "error", err)
	}

	w := indexer.New(q, st, embedder, vec, lg)
	lg.Info("worker started", "queue", cfg.Redis.Queue, "embedder", embedder.Name())
	return w.Run(ctx)
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	return store.Migrate(ctx, st.DB())
}

func usage() {
	fmt.Println("Usage: coursegend <serve|worker|migrate>")
}
