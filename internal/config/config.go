package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "GOSSIP_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	qdrantHostEnv    = "QDRANT_HOST"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Exit policies for the ingest command.
const (
	ExitBestEffort    = "best_effort"
	ExitZeroTolerance = "zero_tolerance"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Feeds         []FeedConfig       `yaml:"feeds"`
	Sites         []SiteConfig       `yaml:"sites"`
	Embedding     EmbeddingConfig    `yaml:"embedding"`
	Store         StoreConfig        `yaml:"store"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig describes a single RSS endpoint to scrape.
type FeedConfig struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

// SiteConfig maps a source domain to its extraction rule.
type SiteConfig struct {
	Domain string `yaml:"domain"`
	Rule   string `yaml:"rule"`
}

// EmbeddingConfig defines how to reach the remote embedding model.
type EmbeddingConfig struct {
	Provider           string  `yaml:"provider"`
	Model              string  `yaml:"model"`
	APIKeyEnv          string  `yaml:"apiKeyEnv"`
	BaseURL            string  `yaml:"baseUrl"`
	BatchSize          int     `yaml:"batchSize"`
	MaxTextLen         int     `yaml:"maxTextLen"`
	MaxRetries         int     `yaml:"maxRetries"`
	BackoffBaseSeconds float64 `yaml:"backoffBaseSeconds"`
	TimeoutSecs        int     `yaml:"timeoutSecs"`
}

// Timeout resolves the per-request embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// BackoffBase resolves the initial retry delay.
func (e EmbeddingConfig) BackoffBase() time.Duration {
	return time.Duration(e.BackoffBaseSeconds * float64(time.Second))
}

// StoreConfig describes the vector store backend.
type StoreConfig struct {
	Type        string `yaml:"type"`
	Collection  string `yaml:"collection"`
	Metric      string `yaml:"metric"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Path        string `yaml:"path"`
	TimeoutSecs int    `yaml:"timeoutSecs"`
	SnippetLen  int    `yaml:"snippetLen"`
}

// Timeout resolves the per-call store timeout.
func (s StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// DedupConfig wires the optional Postgres dedup repository.
type DedupConfig struct {
	DSN string `yaml:"dsn"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	Workers    int    `yaml:"workers"`
	ExitPolicy string `yaml:"exitPolicy"`
}

// SchedulerConfig defines the optional recurring-ingestion interval.
type SchedulerConfig struct {
	Interval string `yaml:"interval"`
}

// IntervalDuration parses the interval, defaulting to 24h.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

// Validate rejects option values the pipelines cannot run with.
func (c Config) Validate() error {
	switch c.Store.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("config: unknown similarity metric %q", c.Store.Metric)
	}
	switch c.Ingest.ExitPolicy {
	case ExitBestEffort, ExitZeroTolerance:
	default:
		return fmt.Errorf("config: unknown exit policy %q", c.Ingest.ExitPolicy)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("config: embedding batch size must be positive")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Dedup.DSN = v
	}

	if v := os.Getenv(qdrantHostEnv); v != "" {
		c.Store.Host = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	if override.Embedding.Provider != "" {
		base.Embedding.Provider = override.Embedding.Provider
	}
	if override.Embedding.Model != "" {
		base.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.APIKeyEnv != "" {
		base.Embedding.APIKeyEnv = override.Embedding.APIKeyEnv
	}
	if override.Embedding.BaseURL != "" {
		base.Embedding.BaseURL = override.Embedding.BaseURL
	}
	if override.Embedding.BatchSize != 0 {
		base.Embedding.BatchSize = override.Embedding.BatchSize
	}
	if override.Embedding.MaxTextLen != 0 {
		base.Embedding.MaxTextLen = override.Embedding.MaxTextLen
	}
	if override.Embedding.MaxRetries != 0 {
		base.Embedding.MaxRetries = override.Embedding.MaxRetries
	}
	if override.Embedding.BackoffBaseSeconds != 0 {
		base.Embedding.BackoffBaseSeconds = override.Embedding.BackoffBaseSeconds
	}
	if override.Embedding.TimeoutSecs != 0 {
		base.Embedding.TimeoutSecs = override.Embedding.TimeoutSecs
	}

	if override.Store.Type != "" {
		base.Store.Type = override.Store.Type
	}
	if override.Store.Collection != "" {
		base.Store.Collection = override.Store.Collection
	}
	if override.Store.Metric != "" {
		base.Store.Metric = override.Store.Metric
	}
	if override.Store.Host != "" {
		base.Store.Host = override.Store.Host
	}
	if override.Store.Port != 0 {
		base.Store.Port = override.Store.Port
	}
	if override.Store.Path != "" {
		base.Store.Path = override.Store.Path
	}
	if override.Store.TimeoutSecs != 0 {
		base.Store.TimeoutSecs = override.Store.TimeoutSecs
	}
	if override.Store.SnippetLen != 0 {
		base.Store.SnippetLen = override.Store.SnippetLen
	}

	if override.Dedup.DSN != "" {
		base.Dedup = override.Dedup
	}

	if override.Ingest.Workers != 0 {
		base.Ingest.Workers = override.Ingest.Workers
	}
	if override.Ingest.ExitPolicy != "" {
		base.Ingest.ExitPolicy = override.Ingest.ExitPolicy
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler = override.Scheduler
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Feeds: []FeedConfig{
			{URL: "https://www.public.fr/feed", Source: "public.fr"},
			{URL: "https://www.public.fr/people/feed", Source: "public.fr"},
			{URL: "https://www.public.fr/tele/feed", Source: "public.fr"},
			{URL: "https://www.public.fr/mode/feed", Source: "public.fr"},
			{URL: "https://www.public.fr/people/familles-royales/feed", Source: "public.fr"},
			{URL: "https://vsd.fr/actu-people/feed/", Source: "vsd.fr"},
			{URL: "https://vsd.fr/tele/feed/", Source: "vsd.fr"},
			{URL: "https://vsd.fr/societe/feed/", Source: "vsd.fr"},
			{URL: "https://vsd.fr/culture/feed/", Source: "vsd.fr"},
			{URL: "https://vsd.fr/loisirs/feed/", Source: "vsd.fr"},
		},
		Sites: []SiteConfig{
			{Domain: "public.fr", Rule: "public"},
			{Domain: "vsd.fr", Rule: "vsd"},
		},
		Embedding: EmbeddingConfig{
			Provider:           "gemini",
			Model:              "models/embedding-001",
			APIKeyEnv:          "GOOGLE_API_KEY",
			BatchSize:          32,
			MaxTextLen:         9000,
			MaxRetries:         5,
			BackoffBaseSeconds: 1,
			TimeoutSecs:        30,
		},
		Store: StoreConfig{
			Type:        "local",
			Collection:  "articles",
			Metric:      "cosine",
			Host:        "localhost",
			Port:        6334,
			Path:        "./gossipdb/articles.json",
			TimeoutSecs: 15,
			SnippetLen:  200,
		},
		Ingest: IngestConfig{
			Workers:    4,
			ExitPolicy: ExitBestEffort,
		},
		Scheduler: SchedulerConfig{Interval: "24h"},
	}
}
