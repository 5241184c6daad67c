package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

// Search embeds a query and ranks stored articles against it.
type Search struct {
	embedder ports.Embedder
	store    ports.VectorStore
	log      *slog.Logger
}

// NewSearch wires the query pipeline.
func NewSearch(embedder ports.Embedder, store ports.VectorStore, logger *slog.Logger) (*Search, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("search: embedder and store are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{embedder: embedder, store: store, log: logger.With("component", "search")}, nil
}

// Run returns at most k aggregated results for the query, best first.
// An empty store yields an empty slice, not an error.
func (s *Search) Run(ctx context.Context, query string, k int) ([]domain.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := aggregate(matches)
	s.log.Info("search done", "query", query, "matches", len(matches), "results", len(results))
	return results, nil
}

// aggregate folds raw matches into display results. Matches sharing an
// article id merge into one result with the mean of their scores; untitled
// matches are dropped. Input order (best first) is preserved.
func aggregate(matches []domain.Match) []domain.Result {
	byID := make(map[string]int)
	counts := make([]int, 0, len(matches))
	results := make([]domain.Result, 0, len(matches))

	for _, m := range matches {
		if strings.TrimSpace(m.Metadata.Title) == "" {
			continue
		}

		if idx, ok := byID[m.ID]; ok {
			results[idx].Score += m.Score
			counts[idx]++
			if m.Metadata.BodySnippet != "" {
				results[idx].Snippets = append(results[idx].Snippets, m.Metadata.BodySnippet)
			}
			continue
		}

		r := domain.Result{
			ID:          m.ID,
			Score:       m.Score,
			Title:       m.Metadata.Title,
			Author:      m.Metadata.Author,
			Categories:  m.Metadata.Categories,
			Description: m.Metadata.Description,
			PublishedAt: m.Metadata.PublishedAt,
			URL:         m.Metadata.URL,
			Source:      m.Metadata.Source,
		}
		if m.Metadata.BodySnippet != "" {
			r.Snippets = []string{m.Metadata.BodySnippet}
		}
		byID[m.ID] = len(results)
		counts = append(counts, 1)
		results = append(results, r)
	}

	for i := range results {
		results[i].Score /= float32(counts[i])
	}
	return results
}
