package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"GossipSearch/internal/config"
	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

const userAgent = "GossipSearch/1.0"

// maxPageBytes caps how much of an article page we read on fallback.
const maxPageBytes = 2 << 20

// Fetcher pulls entries from the configured RSS feeds. Each Fetch call
// re-reads every feed; nothing is cached between runs.
type Fetcher struct {
	feeds   []config.FeedConfig
	client  *http.Client
	workers int
	logger  *slog.Logger
}

var _ ports.FeedSource = (*Fetcher)(nil)

// New wires an HTTP client; workers bounds concurrent feed downloads.
func New(feeds []config.FeedConfig, client *http.Client, workers int, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if workers <= 0 {
		workers = 4
	}
	return &Fetcher{feeds: feeds, client: client, workers: workers, logger: logger}
}

// Fetch reads all configured feeds concurrently. A failing feed or entry
// is reported in the returned error slice and never aborts its siblings.
func (f *Fetcher) Fetch(ctx context.Context) ([]ports.FeedEntry, []error) {
	var (
		mu      sync.Mutex
		entries []ports.FeedEntry
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for _, fc := range f.feeds {
		g.Go(func() error {
			feedEntries, feedErrs := f.fetchFeed(gctx, fc)
			mu.Lock()
			defer mu.Unlock()
			entries = append(entries, feedEntries...)
			errs = append(errs, feedErrs...)
			return nil
		})
	}
	_ = g.Wait()

	if f.logger != nil {
		f.logger.Info("feeds fetched", "feeds", len(f.feeds), "entries", len(entries), "errors", len(errs))
	}
	return entries, errs
}

func (f *Fetcher) fetchFeed(ctx context.Context, fc config.FeedConfig) ([]ports.FeedEntry, []error) {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = f.client

	parsed, err := parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, []error{&domain.FetchError{FeedURL: fc.URL, Err: fmt.Errorf("parse feed: %w", err)}}
	}

	var (
		entries []ports.FeedEntry
		errs    []error
	)
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}

		entry := ports.FeedEntry{
			URL:    item.Link,
			Source: fc.Source,
			Hints:  hintsFor(item),
		}

		// The gossip feeds usually carry the whole article in
		// content:encoded; the page download is only a fallback.
		switch {
		case strings.TrimSpace(item.Content) != "":
			entry.RawHTML = item.Content
		case strings.TrimSpace(item.Description) != "":
			entry.RawHTML = item.Description
		default:
			raw, pageErr := f.fetchPage(ctx, item.Link)
			if pageErr != nil {
				errs = append(errs, &domain.FetchError{FeedURL: item.Link, Err: pageErr})
				if f.logger != nil {
					f.logger.Warn("entry page fetch failed", "url", item.Link, "error", pageErr)
				}
				continue
			}
			entry.RawHTML = raw
		}

		entries = append(entries, entry)
	}
	return entries, errs
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(raw), nil
}

func hintsFor(item *gofeed.Item) ports.EntryHints {
	hints := ports.EntryHints{
		Title:       strings.TrimSpace(item.Title),
		Categories:  item.Categories,
		Description: strings.TrimSpace(item.Description),
	}
	if item.PublishedParsed != nil {
		hints.PublishedAt = *item.PublishedParsed
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		hints.Author = strings.TrimSpace(item.DublinCoreExt.Creator[0])
	}
	if hints.Author == "" && item.Author != nil {
		hints.Author = strings.TrimSpace(item.Author.Name)
	}
	return hints
}
