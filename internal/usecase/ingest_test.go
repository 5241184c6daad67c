package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

type fakeSource struct {
	entries []ports.FeedEntry
	errs    []error
}

func (f *fakeSource) Fetch(ctx context.Context) ([]ports.FeedEntry, []error) {
	return f.entries, f.errs
}

// fakeExtractor builds an article straight from the entry; an entry with
// empty RawHTML fails the way the real extractor does.
type fakeExtractor struct{}

func (fakeExtractor) Extract(entry ports.FeedEntry) (domain.Article, error) {
	if entry.RawHTML == "" {
		return domain.Article{}, &domain.ExtractionError{URL: entry.URL, Reason: "body text not found"}
	}
	return domain.Article{
		ID:     domain.ArticleID(entry.URL),
		URL:    entry.URL,
		Title:  entry.Hints.Title,
		Body:   entry.RawHTML,
		Source: entry.Source,
	}, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, texts)
	f.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(text, "boom") {
			return nil, fmt.Errorf("%w: synthetic outage", domain.ErrEmbeddingUnavailable)
		}
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (f *fakeEmbedder) embeddedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, call := range f.calls {
		all = append(all, call...)
	}
	return all
}

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]domain.StoredEntry
	down    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]domain.StoredEntry{}}
}

func (f *fakeStore) Upsert(ctx context.Context, entries []domain.StoredEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	}
	for _, e := range entries {
		f.entries[e.ID] = e
	}
	return nil
}

func (f *fakeStore) Query(ctx context.Context, vector []float32, k int) ([]domain.Match, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeDedup struct {
	known map[string]string
	saved []string
}

func (f *fakeDedup) KnownHashes(ctx context.Context, ids []string) (map[string]string, error) {
	return f.known, nil
}

func (f *fakeDedup) SaveIngested(ctx context.Context, id, url, title, contentHash string) error {
	f.saved = append(f.saved, id)
	return nil
}

func entryFor(url, body string) ports.FeedEntry {
	return ports.FeedEntry{
		URL:     url,
		RawHTML: body,
		Source:  "public.fr",
		Hints:   ports.EntryHints{Title: "titre " + url},
	}
}

func newTestIngest(t *testing.T, deps IngestDeps) *Ingest {
	t.Helper()
	p, err := NewIngest(deps)
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	return p
}

func TestRunHappyPath(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	p := newTestIngest(t, IngestDeps{
		Source: &fakeSource{entries: []ports.FeedEntry{
			entryFor("https://public.fr/a", "corps a"),
			entryFor("https://public.fr/b", "corps b"),
			entryFor("https://public.fr/c", "corps c"),
		}},
		Extractor: fakeExtractor{},
		Embedder:  embedder,
		Store:     store,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Attempted != 3 || summary.Succeeded != 3 || len(summary.Failed) != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if store.count() != 3 {
		t.Errorf("stored = %d, want 3", store.count())
	}
}

func TestRunRecordsExtractionFailures(t *testing.T) {
	store := newFakeStore()
	p := newTestIngest(t, IngestDeps{
		Source: &fakeSource{entries: []ports.FeedEntry{
			entryFor("https://public.fr/ok", "corps"),
			entryFor("https://public.fr/vide", ""),
		}},
		Extractor: fakeExtractor{},
		Embedder:  &fakeEmbedder{},
		Store:     store,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", summary.Succeeded)
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("failed = %+v, want 1 failure", summary.Failed)
	}
	failure := summary.Failed[0]
	if failure.Stage != domain.StageExtractionFailed {
		t.Errorf("stage = %q", failure.Stage)
	}
	if failure.URL != "https://public.fr/vide" {
		t.Errorf("url = %q", failure.URL)
	}
	if store.count() != 1 {
		t.Errorf("stored = %d, want the sibling article", store.count())
	}
}

func TestRunEmbeddingFailureIsolatedToBatch(t *testing.T) {
	store := newFakeStore()
	p := newTestIngest(t, IngestDeps{
		Source: &fakeSource{entries: []ports.FeedEntry{
			entryFor("https://public.fr/a", "corps a"),
			entryFor("https://public.fr/b", "boom"),
			entryFor("https://public.fr/c", "corps c"),
		}},
		Extractor: fakeExtractor{},
		Embedder:  &fakeEmbedder{},
		Store:     store,
		Workers:   1,
		BatchSize: 1,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", summary.Succeeded)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Stage != domain.StageEmbeddingFailed {
		t.Errorf("failed = %+v, want one EMBEDDING_FAILED", summary.Failed)
	}
	if store.count() != 2 {
		t.Errorf("stored = %d, want siblings preserved", store.count())
	}
}

func TestRunStoreOutageSkipsRemainingUpserts(t *testing.T) {
	store := newFakeStore()
	store.down = true
	p := newTestIngest(t, IngestDeps{
		Source: &fakeSource{entries: []ports.FeedEntry{
			entryFor("https://public.fr/a", "corps a"),
			entryFor("https://public.fr/b", "corps b"),
			entryFor("https://public.fr/c", "corps c"),
		}},
		Extractor: fakeExtractor{},
		Embedder:  &fakeEmbedder{},
		Store:     store,
		Workers:   1,
		BatchSize: 1,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Succeeded != 0 || len(summary.Failed) != 3 {
		t.Fatalf("summary = %+v, want 3 store failures", summary)
	}
	skipped := 0
	for _, failure := range summary.Failed {
		if failure.Stage != domain.StageStoreFailed {
			t.Errorf("stage = %q, want STORE_FAILED", failure.Stage)
		}
		if strings.Contains(failure.Reason, "upsert skipped") {
			skipped++
		}
	}
	// The first batch hits the outage; later batches skip the call.
	if skipped != 2 {
		t.Errorf("skipped batches = %d, want 2", skipped)
	}
}

func TestRunDedupSkipsUnchangedArticles(t *testing.T) {
	unchanged := domain.Article{
		ID:   domain.ArticleID("https://public.fr/a"),
		Body: "corps a",
	}
	dedup := &fakeDedup{known: map[string]string{
		unchanged.ID: unchanged.ContentHash(),
	}}

	store := newFakeStore()
	embedder := &fakeEmbedder{}
	p := newTestIngest(t, IngestDeps{
		Source: &fakeSource{entries: []ports.FeedEntry{
			entryFor("https://public.fr/a", "corps a"),
			entryFor("https://public.fr/b", "corps b"),
		}},
		Extractor: fakeExtractor{},
		Embedder:  embedder,
		Store:     store,
		Dedup:     dedup,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Skipped != 1 || summary.Succeeded != 1 {
		t.Errorf("summary = %+v, want 1 skipped and 1 succeeded", summary)
	}
	texts := embedder.embeddedTexts()
	if len(texts) != 1 || texts[0] != "corps b" {
		t.Errorf("embedded = %v, unchanged article must not re-embed", texts)
	}
	if len(dedup.saved) != 1 {
		t.Errorf("saved = %v, want the fresh article only", dedup.saved)
	}
}

func TestRunCollapsesDuplicateURLs(t *testing.T) {
	store := newFakeStore()
	p := newTestIngest(t, IngestDeps{
		Source: &fakeSource{entries: []ports.FeedEntry{
			entryFor("https://public.fr/a", "ancienne version"),
			entryFor("https://public.fr/a", "nouvelle version"),
		}},
		Extractor: fakeExtractor{},
		Embedder:  &fakeEmbedder{},
		Store:     store,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 1 || summary.Succeeded != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if store.count() != 1 {
		t.Errorf("stored = %d, want 1", store.count())
	}
}

func TestRunFailsWhenNothingFetched(t *testing.T) {
	p := newTestIngest(t, IngestDeps{
		Source:    &fakeSource{errs: []error{fmt.Errorf("dns failure")}},
		Extractor: fakeExtractor{},
		Embedder:  &fakeEmbedder{},
		Store:     newFakeStore(),
	})

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error when every feed fails")
	}
}
