package extractor

import (
	"errors"
	"testing"
	"time"

	"GossipSearch/internal/config"
	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

var testSites = []config.SiteConfig{
	{Domain: "public.fr", Rule: "public"},
	{Domain: "vsd.fr", Rule: "vsd"},
}

func newTestExtractor(t *testing.T) *RuleExtractor {
	t.Helper()
	return New(NewRegistry(), testSites, nil)
}

func TestExtractFeedFragment(t *testing.T) {
	e := newTestExtractor(t)

	published := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	entry := ports.FeedEntry{
		URL:     "https://unknown-blog.fr/post/123",
		RawHTML: `<p>Premier paragraphe.</p><script>tracker()</script><p>Deuxième  paragraphe.</p>`,
		Source:  "unknown-blog.fr",
		Hints: ports.EntryHints{
			Title:       "Un scoop incroyable",
			Author:      "Jeanne Martin",
			Categories:  []string{"people", "tele"},
			Description: "Résumé du scoop.",
			PublishedAt: published,
		},
	}

	article, err := e.Extract(entry)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if article.Body != "Premier paragraphe. Deuxième paragraphe." {
		t.Errorf("body = %q", article.Body)
	}
	if article.Title != "Un scoop incroyable" {
		t.Errorf("title = %q, want hint backfill", article.Title)
	}
	if article.Author != "Jeanne Martin" {
		t.Errorf("author = %q, want hint backfill", article.Author)
	}
	if !article.PublishedAt.Equal(published) {
		t.Errorf("publishedAt = %v, want %v", article.PublishedAt, published)
	}
	if article.ID != domain.ArticleID(entry.URL) {
		t.Errorf("id = %q, want fingerprint of url", article.ID)
	}
}

func TestExtractPublicPage(t *testing.T) {
	e := newTestExtractor(t)

	entry := ports.FeedEntry{
		URL: "https://www.public.fr/people/article-42",
		RawHTML: `<html><head>
			<meta property="article:published_time" content="2026-02-01T08:30:00Z">
		</head><body>
			<h1 class="entry-title">Titre people</h1>
			<span class="author-name"><a href="/auteur">Luc Durand</a></span>
			<div class="entry-content"><p>Corps un.</p><p>Corps deux.</p></div>
		</body></html>`,
		Source: "public.fr",
	}

	article, err := e.Extract(entry)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if article.Title != "Titre people" {
		t.Errorf("title = %q", article.Title)
	}
	if article.Author != "Luc Durand" {
		t.Errorf("author = %q", article.Author)
	}
	if article.Body != "Corps un. Corps deux." {
		t.Errorf("body = %q", article.Body)
	}
	want := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	if !article.PublishedAt.Equal(want) {
		t.Errorf("publishedAt = %v, want %v", article.PublishedAt, want)
	}
}

func TestExtractSiteRuleFallsBackToFragmentBody(t *testing.T) {
	e := newTestExtractor(t)

	// A public.fr entry whose markup is only the content:encoded fragment,
	// so the site rule has no entry-content div to read.
	entry := ports.FeedEntry{
		URL:     "https://www.public.fr/tele/article-7",
		RawHTML: `<p>Fragment du flux.</p>`,
		Source:  "public.fr",
		Hints:   ports.EntryHints{Title: "Depuis le flux"},
	}

	article, err := e.Extract(entry)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.Body != "Fragment du flux." {
		t.Errorf("body = %q", article.Body)
	}
	if article.Title != "Depuis le flux" {
		t.Errorf("title = %q", article.Title)
	}
}

func TestExtractMissingBody(t *testing.T) {
	e := newTestExtractor(t)

	// Full pages whose rule locates no body must fail; the page chrome
	// (headings, scripts) must never be flattened into a body.
	cases := []ports.FeedEntry{
		{
			URL:     "https://vsd.fr/actu-people/vide",
			RawHTML: `<html><body><h1>Juste un titre</h1><script>noop()</script></body></html>`,
			Source:  "vsd.fr",
		},
		{
			URL:     "https://www.public.fr/people/vide",
			RawHTML: `<html><body><h1 class="entry-title">Titre seul</h1><nav>menu</nav></body></html>`,
			Source:  "public.fr",
		},
	}

	for _, entry := range cases {
		_, err := e.Extract(entry)
		if err == nil {
			t.Fatalf("%s: expected extraction error for missing body", entry.URL)
		}
		var extractErr *domain.ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("%s: error type = %T, want *domain.ExtractionError", entry.URL, err)
		}
		if extractErr.URL != entry.URL {
			t.Errorf("error url = %q", extractErr.URL)
		}
	}
}

func TestIsFragment(t *testing.T) {
	if !isFragment(`<p>fragment</p>`) {
		t.Error("bare fragment must be detected")
	}
	if isFragment(`<html><body><p>page</p></body></html>`) {
		t.Error("full page must not be treated as a fragment")
	}
	if isFragment(`<BODY><p>page</p></BODY>`) {
		t.Error("detection must be case-insensitive")
	}
}

func TestRuleForMatchesSubdomains(t *testing.T) {
	e := newTestExtractor(t)

	cases := []struct {
		url  string
		want string
	}{
		{"https://www.public.fr/people/x", "public"},
		{"https://public.fr/x", "public"},
		{"https://vsd.fr/tele/y", "vsd"},
		{"https://notpublic.fr/z", "rss"},
		{"://broken", "rss"},
	}
	for _, tc := range cases {
		if got := e.ruleFor(tc.url); got != tc.want {
			t.Errorf("ruleFor(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
