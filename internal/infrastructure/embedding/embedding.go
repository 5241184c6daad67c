package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"GossipSearch/internal/domain"
)

// Limits bound what a single request may carry: provider batch-size and
// text-length caps plus the retry budget for transient failures.
type Limits struct {
	BatchSize  int
	MaxTextLen int
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.BatchSize <= 0 {
		l.BatchSize = 32
	}
	if l.MaxTextLen <= 0 {
		l.MaxTextLen = 9000
	}
	if l.MaxRetries <= 0 {
		l.MaxRetries = 5
	}
	if l.BaseDelay <= 0 {
		l.BaseDelay = time.Second
	}
	if l.Timeout <= 0 {
		l.Timeout = 30 * time.Second
	}
	return l
}

// batches splits texts into provider-sized groups, truncating each text.
func (l Limits) batches(texts []string) [][]string {
	out := make([][]string, 0, (len(texts)+l.BatchSize-1)/l.BatchSize)
	for start := 0; start < len(texts); start += l.BatchSize {
		end := start + l.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := make([]string, end-start)
		for i, text := range texts[start:end] {
			batch[i] = truncate(text, l.MaxTextLen)
		}
		out = append(out, batch)
	}
	return out
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	// Back off a partial rune entirely; at most 3 trailing bytes.
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// retryEmbed runs one embedding request with bounded exponential backoff
// and a per-attempt timeout. Exhausted retries surface as
// domain.ErrEmbeddingUnavailable so the pipeline can skip the batch.
func retryEmbed(ctx context.Context, limits Limits, op func(ctx context.Context) ([][]float32, error)) ([][]float32, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = limits.BaseDelay

	vectors, err := backoff.Retry(ctx, func() ([][]float32, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
		defer cancel()

		vecs, opErr := op(attemptCtx)
		if opErr == nil {
			return vecs, nil
		}
		if errors.Is(opErr, context.Canceled) {
			return nil, backoff.Permanent(opErr)
		}
		return nil, opErr
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(limits.MaxRetries)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return vectors, nil
}
