package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/baranw/adscraper/internal/cache"
	"github.com/baranw/adscraper/internal/dom"
	"github.com/baranw/adscraper/internal/fetch"
	"github.com/baranw/adscraper/internal/links"
	"github.com/baranw/adscraper/internal/listing"
	"github.com/baranw/adscraper/internal/store"
)

// ErrNoListings is returned when the search pages yield no listing links at
// all. Per the exit code policy this is the only condition the CLI treats as
// a failure; individual listing errors are logged and skipped.
var ErrNoListings = errors.New("no listing links discovered")

// App wires the fetcher, the extraction core, and the sinks into one crawl.
type App struct {
	cfg     Config
	client  *fetch.Client
	batcher *store.Batcher
	mysql   *store.MySQLSink
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.SearchURL == "" {
		return nil, errors.New("search URL not configured")
	}

	var pageCache *cache.PageCache
	if cfg.CacheDir != "" {
		pageCache = &cache.PageCache{Dir: cfg.CacheDir}
		if n, err := pageCache.Purge(cfg.CacheMaxAge); err == nil && n > 0 {
			log.Debug().Int("entries", n).Msg("purged stale cache entries")
		}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	var robots *fetch.RobotsGate
	if !cfg.IgnoreRobots {
		robots = &fetch.RobotsGate{UserAgent: cfg.UserAgent}
	}

	a := &App{
		cfg: cfg,
		client: &fetch.Client{
			HTTPClient:        &http.Client{Timeout: 30 * time.Second},
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       3,
			PerRequestTimeout: 20 * time.Second,
			RedirectMaxHops:   5,
			Cache:             pageCache,
			Limiter:           limiter,
			Robots:            robots,
		},
	}

	sinks := []store.Sink{&store.FileSink{Dir: cfg.OutputDir}}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, &store.WebhookSink{URL: cfg.WebhookURL, MaxAttempts: 3})
	}
	if cfg.MySQLDSN != "" {
		sink, err := store.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("mysql sink: %w", err)
		}
		a.mysql = sink
		sinks = append(sinks, sink)
	}
	a.batcher = &store.Batcher{Size: cfg.BatchSize, Sinks: sinks}

	return a, nil
}

func (a *App) Close() {
	if a.mysql != nil {
		_ = a.mysql.Close()
	}
}

// Run crawls the search results, extracts every listing, and flushes the
// batches. One bad listing never aborts the crawl.
func (a *App) Run(ctx context.Context) error {
	listingURLs, err := a.collectListingURLs(ctx)
	if err != nil {
		return err
	}
	if len(listingURLs) == 0 {
		return ErrNoListings
	}
	log.Info().Int("count", len(listingURLs)).Msg("listing links discovered")

	start := time.Now()
	for _, u := range listingURLs {
		if err := a.processListing(ctx, u); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Warn().Err(err).Str("url", u).Msg("listing skipped")
		}
	}
	if err := a.batcher.Close(ctx); err != nil {
		return fmt.Errorf("flush batches: %w", err)
	}
	log.Info().
		Int("listings", a.batcher.Total()).
		Dur("elapsed", time.Since(start)).
		Msg("crawl finished")
	return nil
}

// collectListingURLs walks the search-result pages, following next-page
// links up to the page cap, and returns absolute listing URLs in discovery
// order.
func (a *App) collectListingURLs(ctx context.Context) ([]string, error) {
	maxPages := a.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	var out []string
	seen := make(map[string]bool)
	pageURL := a.cfg.SearchURL
	for page := 1; page <= maxPages && pageURL != ""; page++ {
		body, err := a.client.Page(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch search page: %w", err)
			}
			log.Warn().Err(err).Str("url", pageURL).Msg("search page fetch failed, stopping pagination")
			break
		}
		root := dom.Parse(body)
		found := 0
		for _, href := range links.ListingLinks(root) {
			abs, err := resolveURL(pageURL, href)
			if err != nil || seen[abs] {
				continue
			}
			seen[abs] = true
			out = append(out, abs)
			found++
		}
		log.Debug().Int("page", page).Int("links", found).Str("url", pageURL).Msg("search page scanned")

		next, ok := links.NextPage(root)
		if !ok {
			break
		}
		pageURL, err = resolveURL(pageURL, next)
		if err != nil {
			break
		}
	}
	return out, nil
}

func (a *App) processListing(ctx context.Context, listingURL string) error {
	body, err := a.client.Page(ctx, listingURL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	sourceRef := listingURL
	if a.cfg.PagesDir != "" {
		path, err := fetch.SavePage(a.cfg.PagesDir, listingURL, body)
		if err != nil {
			log.Warn().Err(err).Str("url", listingURL).Msg("page not saved")
		} else {
			sourceRef = path
		}
	}

	root := dom.Parse(body)
	l := listing.Build(root)
	l["source_html"] = sourceRef
	if err := a.batcher.Add(ctx, l); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
