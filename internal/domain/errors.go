package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the pipeline failure taxonomy. Per-article
// failures are collected into the run summary; only store connectivity
// and configuration errors abort a run.
var (
	// ErrEmbeddingUnavailable marks a batch whose embedding request
	// exhausted its retries. Non-fatal to the run.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable marks the vector store as unreachable. Fatal to
	// the upsert stage; already-stored entries are preserved.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmptyQuery rejects a blank search query.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidK rejects a non-positive result count.
	ErrInvalidK = errors.New("invalid result count")
)

// ExtractionError reports that an article's body text could not be
// located. Missing optional fields never produce this; they get sentinels.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// FetchError reports a failure for a single feed or feed entry.
// Sibling entries keep flowing; partial success is the expected mode.
type FetchError struct {
	FeedURL string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.FeedURL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
