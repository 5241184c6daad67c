package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

// IngestDeps carries everything the ingestion pipeline needs. Dedup and
// Notifier are optional; nil disables them.
type IngestDeps struct {
	Source     ports.FeedSource
	Extractor  ports.Extractor
	Embedder   ports.Embedder
	Store      ports.VectorStore
	Dedup      ports.DedupRepository
	Notifier   ports.Notifier
	Logger     *slog.Logger
	Workers    int
	BatchSize  int
	SnippetLen int
}

// Ingest runs the fetch, extract, embed, upsert pipeline.
type Ingest struct {
	deps IngestDeps
	log  *slog.Logger
}

// NewIngest validates and wires the pipeline.
func NewIngest(deps IngestDeps) (*Ingest, error) {
	if deps.Source == nil || deps.Extractor == nil || deps.Embedder == nil || deps.Store == nil {
		return nil, fmt.Errorf("ingest: source, extractor, embedder and store are required")
	}
	if deps.Workers <= 0 {
		deps.Workers = 4
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = 32
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Ingest{deps: deps, log: log.With("component", "ingest")}, nil
}

// Run executes one ingestion pass. Per-article failures are recorded in
// the summary and never abort sibling articles; the only run-level error
// is a failure to fetch anything at all.
func (p *Ingest) Run(ctx context.Context) (domain.RunSummary, error) {
	var summary domain.RunSummary

	entries, fetchErrs := p.deps.Source.Fetch(ctx)
	for _, err := range fetchErrs {
		p.log.Warn("feed fetch failure", "error", err)
	}
	if len(entries) == 0 && len(fetchErrs) > 0 {
		return summary, fmt.Errorf("ingest: no entries fetched: %w", errors.Join(fetchErrs...))
	}
	p.log.Info("fetched entries", "count", len(entries))

	articles := p.extractAll(entries, &summary)
	articles = p.dropKnown(ctx, articles, &summary)
	p.embedAndStore(ctx, articles, &summary)

	p.log.Info("run finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", len(summary.Failed))

	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.PublishSummary(ctx, summary); err != nil {
			p.log.Warn("summary notification failed", "error", err)
		}
	}

	return summary, nil
}

// extractAll normalizes entries into articles, recording extraction
// failures. Duplicate URLs within a run collapse to the last occurrence.
func (p *Ingest) extractAll(entries []ports.FeedEntry, summary *domain.RunSummary) []domain.Article {
	seen := make(map[string]int)
	articles := make([]domain.Article, 0, len(entries))

	for _, entry := range entries {
		summary.Attempted++

		article, err := p.deps.Extractor.Extract(entry)
		if err != nil {
			p.log.Warn("extraction failed", "url", entry.URL, "error", err)
			summary.Failed = append(summary.Failed, domain.Failure{
				ArticleID: domain.ArticleID(entry.URL),
				URL:       entry.URL,
				Stage:     domain.StageExtractionFailed,
				Reason:    err.Error(),
			})
			continue
		}

		if idx, ok := seen[article.ID]; ok {
			articles[idx] = article
			summary.Attempted--
			continue
		}
		seen[article.ID] = len(articles)
		articles = append(articles, article)
	}

	return articles
}

// dropKnown filters out articles whose body hash matches the dedup
// repository. With no repository everything passes through.
func (p *Ingest) dropKnown(ctx context.Context, articles []domain.Article, summary *domain.RunSummary) []domain.Article {
	if p.deps.Dedup == nil || len(articles) == 0 {
		return articles
	}

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}

	known, err := p.deps.Dedup.KnownHashes(ctx, ids)
	if err != nil {
		// Dedup is an optimization; on lookup failure everything re-embeds.
		p.log.Warn("dedup lookup failed", "error", err)
		return articles
	}

	fresh := articles[:0]
	for _, a := range articles {
		if hash, ok := known[a.ID]; ok && hash == a.ContentHash() {
			summary.Skipped++
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh
}

// embedAndStore processes articles in batches. An embedding failure fails
// only its batch; a store failure marks the store down for the rest of
// the run so later batches skip the upsert instead of hammering it.
func (p *Ingest) embedAndStore(ctx context.Context, articles []domain.Article, summary *domain.RunSummary) {
	if len(articles) == 0 {
		return
	}

	var mu sync.Mutex
	var storeDown atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.deps.Workers)

	for start := 0; start < len(articles); start += p.deps.BatchSize {
		end := min(start+p.deps.BatchSize, len(articles))
		batch := articles[start:end]

		g.Go(func() error {
			failures, succeeded := p.processBatch(gctx, batch, &storeDown)
			mu.Lock()
			summary.Failed = append(summary.Failed, failures...)
			summary.Succeeded += succeeded
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; failures land in the summary.
	_ = g.Wait()
}

func (p *Ingest) processBatch(ctx context.Context, batch []domain.Article, storeDown *atomic.Bool) ([]domain.Failure, int) {
	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = a.Body
	}

	vectors, err := p.deps.Embedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vectors) != len(batch) {
		if err == nil {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		p.log.Warn("batch embedding failed", "size", len(batch), "error", err)
		return batchFailures(batch, domain.StageEmbeddingFailed, err.Error()), 0
	}

	if storeDown.Load() {
		return batchFailures(batch, domain.StageStoreFailed, "store unavailable, upsert skipped"), 0
	}

	entries := make([]domain.StoredEntry, len(batch))
	for i, a := range batch {
		entries[i] = domain.StoredEntry{
			ID:       a.ID,
			Vector:   vectors[i],
			Metadata: domain.MetadataFor(a, p.deps.SnippetLen),
		}
	}

	if err := p.deps.Store.Upsert(ctx, entries); err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			storeDown.Store(true)
		}
		p.log.Error("batch upsert failed", "size", len(batch), "error", err)
		return batchFailures(batch, domain.StageStoreFailed, err.Error()), 0
	}

	if p.deps.Dedup != nil {
		for _, a := range batch {
			if err := p.deps.Dedup.SaveIngested(ctx, a.ID, a.URL, a.Title, a.ContentHash()); err != nil {
				p.log.Warn("dedup record failed", "url", a.URL, "error", err)
			}
		}
	}

	return nil, len(batch)
}

func batchFailures(batch []domain.Article, stage domain.Stage, reason string) []domain.Failure {
	failures := make([]domain.Failure, len(batch))
	for i, a := range batch {
		failures[i] = domain.Failure{ArticleID: a.ID, URL: a.URL, Stage: stage, Reason: reason}
	}
	return failures
}
