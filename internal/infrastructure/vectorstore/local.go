package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

// Metric selects how vectors are compared.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// ParseMetric validates a configured metric name.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricCosine, MetricL2:
		return Metric(name), nil
	default:
		return "", fmt.Errorf("unknown similarity metric %q", name)
	}
}

// LocalStore is an embedded vector store: exact brute-force search over
// an id-keyed map, optionally persisted to a JSON snapshot on disk.
type LocalStore struct {
	mu      sync.RWMutex
	metric  Metric
	path    string
	dim     int
	entries map[string]domain.StoredEntry
}

var _ ports.VectorStore = (*LocalStore)(nil)

// NewLocal opens the store, loading the snapshot at path if one exists.
// An empty path keeps the store memory-only.
func NewLocal(metric Metric, path string) (*LocalStore, error) {
	s := &LocalStore{metric: metric, path: path, entries: map[string]domain.StoredEntry{}}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", domain.ErrStoreUnavailable, err)
	}

	var stored []domain.StoredEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: corrupt snapshot %s: %v", domain.ErrStoreUnavailable, path, err)
	}
	for _, entry := range stored {
		s.entries[entry.ID] = entry
		s.dim = len(entry.Vector)
	}
	return s, nil
}

// Upsert inserts or replaces entries by ID. Replacement is atomic from
// the caller's perspective: a queried id never shows a half-applied entry.
func (s *LocalStore) Upsert(ctx context.Context, entries []domain.StoredEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if len(entry.Vector) == 0 {
			return fmt.Errorf("entry %s has an empty vector", entry.ID)
		}
		if s.dim == 0 {
			s.dim = len(entry.Vector)
		}
		if len(entry.Vector) != s.dim {
			return fmt.Errorf("entry %s vector dimension %d, store dimension %d", entry.ID, len(entry.Vector), s.dim)
		}
	}
	for _, entry := range entries {
		s.entries[entry.ID] = entry
	}

	return s.persistLocked()
}

// Query ranks every stored vector against the query and returns at most
// k matches, best first. Fewer than k entries yield fewer matches.
func (s *LocalStore) Query(ctx context.Context, vector []float32, k int) ([]domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Match, 0, len(s.entries))
	for _, entry := range s.entries {
		matches = append(matches, domain.Match{
			ID:       entry.ID,
			Score:    score(s.metric, vector, entry.Vector),
			Metadata: entry.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Len reports the number of stored entries.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close flushes the snapshot.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *LocalStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	stored := make([]domain.StoredEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		stored = append(stored, entry)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].ID < stored[j].ID })

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create snapshot dir: %v", domain.ErrStoreUnavailable, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: replace snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// score is higher-is-better for both metrics: cosine similarity as-is,
// L2 distance negated.
func score(metric Metric, a, b []float32) float32 {
	switch metric {
	case MetricL2:
		var sum float64
		for i := range a {
			if i >= len(b) {
				break
			}
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(-math.Sqrt(sum))
	default:
		var dot, normA, normB float64
		for i := range a {
			if i >= len(b) {
				break
			}
			dot += float64(a[i]) * float64(b[i])
			normA += float64(a[i]) * float64(a[i])
			normB += float64(b[i]) * float64(b[i])
		}
		if normA == 0 || normB == 0 {
			return 0
		}
		return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
	}
}
