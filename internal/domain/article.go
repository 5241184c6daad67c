package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Article is a normalized news record produced by the extractor.
// Immutable once created; re-scraping the same URL yields the same ID,
// so a changed article supersedes its previous stored entry.
type Article struct {
	ID          string
	URL         string
	Title       string
	Author      string
	Categories  []string
	Description string
	PublishedAt time.Time
	Body        string
	Source      string
}

// ArticleID derives the stable fingerprint for an article URL.
// The fingerprint doubles as the vector store point ID.
func ArticleID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// ContentHash fingerprints the article body for dedup comparison.
func (a Article) ContentHash() string {
	sum := sha256.Sum256([]byte(a.Body))
	return hex.EncodeToString(sum[:])
}

// Snippet truncates the body for display and persisted metadata.
func (a Article) Snippet(max int) string {
	body := strings.TrimSpace(a.Body)
	if max <= 0 || len(body) <= max {
		return body
	}
	cut := body[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// Metadata is the payload persisted next to each vector.
type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Categories  string `json:"categories"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	BodySnippet string `json:"body_snippet"`
	ContentHash string `json:"content_hash"`
}

// MetadataFor builds the persisted payload from an article.
func MetadataFor(a Article, snippetLen int) Metadata {
	published := ""
	if !a.PublishedAt.IsZero() {
		published = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return Metadata{
		Title:       a.Title,
		Author:      a.Author,
		Categories:  strings.Join(a.Categories, ", "),
		Description: a.Description,
		PublishedAt: published,
		URL:         a.URL,
		Source:      a.Source,
		BodySnippet: a.Snippet(snippetLen),
		ContentHash: a.ContentHash(),
	}
}

// StoredEntry is the unit of upsert: one vector plus its article metadata,
// keyed by the article fingerprint.
type StoredEntry struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Metadata Metadata  `json:"metadata"`
}

// Match is a single ranked hit from a similarity search, best first.
// Score is metric-dependent: cosine similarity (higher is better) or
// negated L2 distance, so ordering is uniform across metrics.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Result is a display-ready aggregated search hit.
type Result struct {
	ID          string
	Score       float32
	Title       string
	Author      string
	Categories  string
	Description string
	PublishedAt string
	URL         string
	Source      string
	Snippets    []string
}
