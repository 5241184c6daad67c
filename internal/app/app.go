package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"GossipSearch/internal/config"
	"GossipSearch/internal/infrastructure/embedding"
	"GossipSearch/internal/infrastructure/extractor"
	"GossipSearch/internal/infrastructure/feed"
	"GossipSearch/internal/infrastructure/scheduler"
	"GossipSearch/internal/infrastructure/storage"
	"GossipSearch/internal/infrastructure/telegram"
	"GossipSearch/internal/infrastructure/vectorstore"
	"GossipSearch/internal/ports"
	"GossipSearch/internal/usecase"
)

// App owns the wired pipelines and their shared resources.
type App struct {
	Ingest *usecase.Ingest
	Search *usecase.Search
	Daemon *usecase.Daemon

	cfg   config.Config
	log   *slog.Logger
	store ports.VectorStore
	db    *sql.DB
}

// New wires every adapter from configuration.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	store, err := newStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	source := feed.New(cfg.Feeds, &http.Client{Timeout: 20 * time.Second}, cfg.Ingest.Workers, logger)
	rules := extractor.New(extractor.NewRegistry(), cfg.Sites, logger)

	var db *sql.DB
	var dedup ports.DedupRepository
	if cfg.Dedup.DSN != "" {
		db, err = sql.Open("postgres", cfg.Dedup.DSN)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("dedup database: %w", err)
		}
		dedup = storage.NewPostgresRepository(db)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	ingest, err := usecase.NewIngest(usecase.IngestDeps{
		Source:     source,
		Extractor:  rules,
		Embedder:   embedder,
		Store:      store,
		Dedup:      dedup,
		Notifier:   notifier,
		Logger:     logger,
		Workers:    cfg.Ingest.Workers,
		BatchSize:  cfg.Embedding.BatchSize,
		SnippetLen: cfg.Store.SnippetLen,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	search, err := usecase.NewSearch(embedder, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	daemon := usecase.NewDaemon(ingest, scheduler.NewTickerScheduler(cfg.Scheduler.IntervalDuration()), logger)

	return &App{
		Ingest: ingest,
		Search: search,
		Daemon: daemon,
		cfg:    cfg,
		log:    logger,
		store:  store,
		db:     db,
	}, nil
}

// Close releases the vector store and the dedup database.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("database close failed", "error", err)
		}
	}
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (ports.Embedder, error) {
	limits := embedding.Limits{
		BatchSize:  cfg.BatchSize,
		MaxTextLen: cfg.MaxTextLen,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BackoffBase(),
		Timeout:    cfg.Timeout(),
	}

	switch cfg.Provider {
	case "gemini":
		return embedding.NewGemini(ctx, embedding.GeminiConfig{
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Limits:    limits,
		})
	case "openai":
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Limits:    limits,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func newStore(cfg config.StoreConfig) (ports.VectorStore, error) {
	metric, err := vectorstore.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "local":
		return vectorstore.NewLocal(metric, cfg.Path)
	case "qdrant":
		return vectorstore.NewQdrant(cfg.Host, cfg.Port, cfg.Collection, metric, cfg.Timeout())
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
