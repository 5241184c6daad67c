package ports

import (
	"context"
	"time"

	"GossipSearch/internal/domain"
)

// FeedEntry is one article reference pulled from an RSS feed, together
// with the raw HTML to extract from and metadata hints carried by the
// feed itself (used when the DOM rules cannot locate a field).
type FeedEntry struct {
	URL     string
	RawHTML string
	Source  string
	Hints   EntryHints
}

// EntryHints are feed-level metadata for an entry.
type EntryHints struct {
	Title       string
	Author      string
	Categories  []string
	Description string
	PublishedAt time.Time
}

// FeedSource pulls fresh entries from the configured RSS feeds. Each call
// re-fetches; per-entry failures are returned alongside the successes.
type FeedSource interface {
	Fetch(ctx context.Context) ([]FeedEntry, []error)
}

// Extractor normalizes a feed entry into an Article using per-source
// markup rules. Returns *domain.ExtractionError when no body is found.
type Extractor interface {
	Extract(entry FeedEntry) (domain.Article, error)
}

// Embedder converts texts into fixed-length vectors via a remote model.
// Document and query embeddings may use different task types upstream.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore owns the persisted vectors and metadata. Upsert is
// idempotent per ID; Query returns at most k matches, best first.
type VectorStore interface {
	Upsert(ctx context.Context, entries []domain.StoredEntry) error
	Query(ctx context.Context, vector []float32, k int) ([]domain.Match, error)
	Close() error
}

// DedupRepository tracks content hashes of already-ingested articles so
// unchanged ones can skip the embedding call. Purely an optimization:
// the pipeline behaves identically with a nil repository.
type DedupRepository interface {
	KnownHashes(ctx context.Context, ids []string) (map[string]string, error)
	SaveIngested(ctx context.Context, id, url, title, contentHash string) error
}

// Notifier publishes the end-of-run summary to an external channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.RunSummary) error
}

// Scheduler controls when recurring ingestion runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
