package extractor

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"GossipSearch/internal/config"
	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

const fallbackRule = "rss"

// RuleExtractor normalizes feed entries into articles by applying the
// markup rule configured for the entry's source domain.
type RuleExtractor struct {
	registry *Registry
	byDomain map[string]string
	logger   *slog.Logger
}

var _ ports.Extractor = (*RuleExtractor)(nil)

// New wires the rule registry with config-defined domain mappings.
func New(registry *Registry, sites []config.SiteConfig, logger *slog.Logger) *RuleExtractor {
	byDomain := make(map[string]string, len(sites))
	for _, site := range sites {
		byDomain[strings.ToLower(site.Domain)] = site.Rule
	}
	return &RuleExtractor{registry: registry, byDomain: byDomain, logger: logger}
}

// Extract parses the entry's raw HTML and merges the rule output with
// the feed hints. Missing author/date become sentinels; a missing body
// fails the article with a domain.ExtractionError.
func (e *RuleExtractor) Extract(entry ports.FeedEntry) (domain.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(entry.RawHTML))
	if err != nil {
		return domain.Article{}, &domain.ExtractionError{URL: entry.URL, Reason: "unparsable markup: " + err.Error()}
	}

	rule, err := e.registry.Resolve(e.ruleFor(entry.URL))
	if err != nil {
		return domain.Article{}, &domain.ExtractionError{URL: entry.URL, Reason: err.Error()}
	}

	partial := rule.ExtractFields(doc)
	if strings.TrimSpace(partial.Body) == "" && rule.Name() != fallbackRule && isFragment(entry.RawHTML) {
		// Feed entries often carry a bare content:encoded fragment instead
		// of the full page; the site rule finds nothing there. A full page
		// whose rule located no body must fail, not flatten its chrome.
		if fb, fbErr := e.registry.Resolve(fallbackRule); fbErr == nil {
			partial.Body = fb.ExtractFields(doc).Body
		}
	}
	if strings.TrimSpace(partial.Body) == "" {
		return domain.Article{}, &domain.ExtractionError{URL: entry.URL, Reason: "body text not found"}
	}

	article := domain.Article{
		ID:          domain.ArticleID(entry.URL),
		URL:         entry.URL,
		Title:       partial.Title,
		Author:      partial.Author,
		Categories:  entry.Hints.Categories,
		Description: entry.Hints.Description,
		PublishedAt: partial.PublishedAt,
		Body:        strings.TrimSpace(partial.Body),
		Source:      entry.Source,
	}

	// Feed hints backfill fields the DOM rules could not locate.
	if article.Title == "" {
		article.Title = entry.Hints.Title
	}
	if article.Author == "" {
		article.Author = entry.Hints.Author
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = entry.Hints.PublishedAt
	}

	if e.logger != nil {
		e.logger.Debug("extracted article", "url", entry.URL, "rule", rule.Name(), "body_len", len(article.Body))
	}
	return article, nil
}

// isFragment reports whether the markup is a bare content fragment
// rather than a full page with document structure.
func isFragment(raw string) bool {
	lower := strings.ToLower(raw)
	return !strings.Contains(lower, "<html") && !strings.Contains(lower, "<body")
}

func (e *RuleExtractor) ruleFor(articleURL string) string {
	parsed, err := url.Parse(articleURL)
	if err != nil || parsed.Host == "" {
		return fallbackRule
	}
	host := strings.ToLower(parsed.Hostname())
	for domainName, rule := range e.byDomain {
		if host == domainName || strings.HasSuffix(host, "."+domainName) {
			return rule
		}
	}
	return fallbackRule
}
