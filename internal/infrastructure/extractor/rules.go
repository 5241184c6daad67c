package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PublicRule reads the public.fr article layout.
type PublicRule struct{}

// Name identifies the rule inside the registry.
func (PublicRule) Name() string { return "public" }

// ExtractFields pulls title, byline, date, and body from a public.fr page.
func (PublicRule) ExtractFields(doc *goquery.Document) PartialArticle {
	var p PartialArticle

	p.Title = strings.TrimSpace(doc.Find("h1.entry-title").First().Text())
	p.Author = strings.TrimSpace(doc.Find("span.author-name a").First().Text())
	if p.Author == "" {
		p.Author = strings.TrimSpace(doc.Find(".article-author").First().Text())
	}

	if iso, ok := doc.Find("meta[property='article:published_time']").First().Attr("content"); ok {
		if parsed, err := time.Parse(time.RFC3339, iso); err == nil {
			p.PublishedAt = parsed
		}
	}

	p.Body = collectParagraphs(doc.Find("div.entry-content"))
	return p
}

// VSDRule reads the vsd.fr article layout.
type VSDRule struct{}

// Name identifies the rule inside the registry.
func (VSDRule) Name() string { return "vsd" }

// ExtractFields pulls title, byline, date, and body from a vsd.fr page.
func (VSDRule) ExtractFields(doc *goquery.Document) PartialArticle {
	var p PartialArticle

	p.Title = strings.TrimSpace(doc.Find("h1.post-title").First().Text())
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	p.Author = strings.TrimSpace(doc.Find(".byline a[rel='author']").First().Text())

	if iso, ok := doc.Find("time.entry-date").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, iso); err == nil {
			p.PublishedAt = parsed
		}
	}

	p.Body = collectParagraphs(doc.Find("div.post-content"))
	return p
}

// RSSContentRule handles the HTML fragment carried inside a feed's
// content:encoded field: no recognizable page chrome, so the whole
// fragment text is the body and metadata comes from the feed hints.
type RSSContentRule struct{}

// Name identifies the rule inside the registry.
func (RSSContentRule) Name() string { return "rss" }

// ExtractFields flattens the fragment into body text.
func (RSSContentRule) ExtractFields(doc *goquery.Document) PartialArticle {
	return PartialArticle{Body: flattenText(doc.Selection)}
}

func collectParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return flattenText(sel)
	}
	return strings.Join(parts, " ")
}

// flattenText strips script/style nodes and collapses the remaining
// text into a single whitespace-normalized line. Text nodes are joined
// with a space so adjacent blocks never glue words together.
func flattenText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find("script, style").Remove()

	var parts []string
	appendTextNodes(clone, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func appendTextNodes(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "#text" {
			if text := strings.TrimSpace(node.Text()); text != "" {
				*parts = append(*parts, text)
			}
			return
		}
		appendTextNodes(node, parts)
	})
}
