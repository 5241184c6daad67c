package usecase

import (
	"context"
	"errors"
	"testing"

	"GossipSearch/internal/domain"
	"GossipSearch/internal/infrastructure/vectorstore"
	"GossipSearch/internal/ports"
)

type cannedStore struct {
	matches []domain.Match
}

func (c *cannedStore) Upsert(ctx context.Context, entries []domain.StoredEntry) error { return nil }

func (c *cannedStore) Query(ctx context.Context, vector []float32, k int) ([]domain.Match, error) {
	if k < len(c.matches) {
		return c.matches[:k], nil
	}
	return c.matches, nil
}

func (c *cannedStore) Close() error { return nil }

func newTestSearch(t *testing.T, store ports.VectorStore) *Search {
	t.Helper()
	s, err := NewSearch(&fakeEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	return s
}

func TestSearchRejectsBadInput(t *testing.T) {
	s := newTestSearch(t, &cannedStore{})

	if _, err := s.Run(context.Background(), "   ", 5); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("blank query err = %v, want ErrEmptyQuery", err)
	}
	if _, err := s.Run(context.Background(), "requête", 0); !errors.Is(err, domain.ErrInvalidK) {
		t.Errorf("k = 0 err = %v, want ErrInvalidK", err)
	}
	if _, err := s.Run(context.Background(), "requête", -3); !errors.Is(err, domain.ErrInvalidK) {
		t.Errorf("negative k err = %v, want ErrInvalidK", err)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	s := newTestSearch(t, &cannedStore{})

	results, err := s.Run(context.Background(), "requête", 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want none", results)
	}
}

func TestSearchAggregation(t *testing.T) {
	store := &cannedStore{matches: []domain.Match{
		{ID: "a", Score: 0.9, Metadata: domain.Metadata{Title: "Premier", BodySnippet: "extrait un"}},
		{ID: "untitled", Score: 0.8, Metadata: domain.Metadata{BodySnippet: "sans titre"}},
		{ID: "a", Score: 0.7, Metadata: domain.Metadata{Title: "Premier", BodySnippet: "extrait deux"}},
		{ID: "b", Score: 0.6, Metadata: domain.Metadata{Title: "Second", Author: "Anne"}},
	}}
	s := newTestSearch(t, store)

	results, err := s.Run(context.Background(), "scandale", 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %+v, want untitled dropped and duplicates merged", results)
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order = %q, %q; best first expected", results[0].ID, results[1].ID)
	}
	if diff := results[0].Score - 0.8; diff < -1e-6 || diff > 1e-6 {
		t.Errorf("merged score = %v, want the mean of 0.9 and 0.7", results[0].Score)
	}
	if len(results[0].Snippets) != 2 {
		t.Errorf("snippets = %v, want both merged", results[0].Snippets)
	}
	if results[1].Author != "Anne" {
		t.Errorf("author = %q", results[1].Author)
	}
}

func TestSearchRoundTripWithLocalStore(t *testing.T) {
	ctx := context.Background()

	// The fake embedder maps a text to [len(text)]; with one dimension the
	// cosine metric would tie everything, so exercise the l2 ranking.
	l2store, err := vectorstore.NewLocal(vectorstore.MetricL2, "")
	if err != nil {
		t.Fatal(err)
	}

	err = l2store.Upsert(ctx, []domain.StoredEntry{
		{ID: "court", Vector: []float32{4}, Metadata: domain.Metadata{Title: "Court"}},
		{ID: "long", Vector: []float32{40}, Metadata: domain.Metadata{Title: "Long"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := NewSearch(&fakeEmbedder{}, l2store, nil)
	if err != nil {
		t.Fatal(err)
	}

	// len("abcd") = 4 embeds to [4], nearest to the "court" entry.
	results, err := s.Run(ctx, "abcd", 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].ID != "court" {
		t.Errorf("results = %+v, want the nearest entry only", results)
	}
}
