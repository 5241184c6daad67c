package domain

import (
	"strings"
	"testing"
	"time"
)

func TestArticleIDDeterministic(t *testing.T) {
	a := ArticleID("https://www.public.fr/people/scoop")
	b := ArticleID("https://www.public.fr/people/scoop")
	if a != b {
		t.Errorf("same url must yield the same id: %q vs %q", a, b)
	}
	if a == ArticleID("https://www.public.fr/people/autre") {
		t.Error("different urls must yield different ids")
	}
	// Qdrant only accepts UUID-shaped point ids.
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Errorf("id %q is not a uuid", a)
	}
}

func TestContentHashTracksBody(t *testing.T) {
	a := Article{Body: "corps"}
	b := Article{Body: "corps"}
	if a.ContentHash() != b.ContentHash() {
		t.Error("same body must hash identically")
	}
	b.Body = "corps modifié"
	if a.ContentHash() == b.ContentHash() {
		t.Error("changed body must change the hash")
	}
}

func TestSnippetCutsAtWordBoundary(t *testing.T) {
	a := Article{Body: "un deux trois quatre cinq"}

	got := a.Snippet(12)
	if got != "un deux..." {
		t.Errorf("snippet = %q", got)
	}
	if a.Snippet(0) != a.Body {
		t.Error("non-positive max must return the whole body")
	}
	if a.Snippet(100) != a.Body {
		t.Error("max beyond the body must return the whole body")
	}
}

func TestMetadataFor(t *testing.T) {
	published := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	a := Article{
		ID:          ArticleID("https://vsd.fr/x"),
		URL:         "https://vsd.fr/x",
		Title:       "Titre",
		Author:      "Anne",
		Categories:  []string{"people", "tele"},
		Description: "desc",
		PublishedAt: published,
		Body:        "le corps entier",
		Source:      "vsd.fr",
	}

	m := MetadataFor(a, 1000)
	if m.Categories != "people, tele" {
		t.Errorf("categories = %q", m.Categories)
	}
	if m.PublishedAt != "2026-03-02T08:00:00Z" {
		t.Errorf("publishedAt = %q, want UTC RFC3339", m.PublishedAt)
	}
	if m.BodySnippet != "le corps entier" {
		t.Errorf("snippet = %q", m.BodySnippet)
	}
	if m.ContentHash != a.ContentHash() {
		t.Error("metadata must carry the body hash")
	}

	empty := MetadataFor(Article{}, 100)
	if empty.PublishedAt != "" {
		t.Errorf("zero time must serialize empty, got %q", empty.PublishedAt)
	}
}
