package crawler

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/autogram-is/spidergram-sub001/models"
	"github.com/autogram-is/spidergram-sub001/urls"
)

// Sink receives everything the crawl discovers. Calls are made from a single
// goroutine, in discovery order. Every URL scheduled for fetching is passed to
// AddToQueue and marked processed once its fetch has an outcome, so a store
// that keeps the queue can resume an interrupted crawl.
type Sink interface {
	SaveIdentity(ctx context.Context, id urls.Identity) error
	SavePage(ctx context.Context, page *models.Page) error
	SaveLinks(ctx context.Context, links []models.Link) error
	AddToQueue(ctx context.Context, items []models.URLPriority) error
	MarkURLProcessed(ctx context.Context, key string) error
}

// State is what an earlier crawl left behind.
type State struct {
	// Known identities are pooled without being saved or fetched again.
	Known []urls.Identity
	// Pending targets were queued but never fetched.
	Pending []models.URLPriority
}

type Options struct {
	Workers int
	// MaxDepth bounds how far from a seed pages are fetched. Deeper URLs are
	// still pooled, only not fetched.
	MaxDepth int
	Pool     urls.PoolOptions
}

type Crawler struct {
	fetcher Fetcher
	sink    Sink
	logger  *logrus.Logger
	opts    Options
}

func New(fetcher Fetcher, sink Sink, logger *logrus.Logger, opts Options) *Crawler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Crawler{fetcher: fetcher, sink: sink, logger: logger, opts: opts}
}

type fetchOutcome struct {
	target models.URLPriority
	result *FetchResult
	err    error
}

// Crawl fetches outward from seeds and returns the pool of every URL seen.
// Workers only fetch; the pool and the sink are owned by the calling
// goroutine, which receives their discoveries over a channel. Cancelling ctx
// stops the crawl early without an error.
func (c *Crawler) Crawl(ctx context.Context, seeds []string) (*urls.Pool, *models.CrawlStats, error) {
	return c.Resume(ctx, State{}, seeds)
}

// Resume continues from state: pending targets are fetched first by
// priority, and seeds already known are not fetched again.
func (c *Crawler) Resume(ctx context.Context, state State, seeds []string) (*urls.Pool, *models.CrawlStats, error) {
	start := time.Now()
	stats := &models.CrawlStats{}
	pool := urls.NewPool(c.opts.Pool)
	for _, id := range state.Known {
		pool.AddIdentity(id)
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan models.URLPriority)
	outcomes := make(chan fetchOutcome)

	for i := 0; i < c.opts.Workers; i++ {
		g.Go(func() error {
			return c.worker(gctx, jobs, outcomes)
		})
	}

	var frontier []models.URLPriority
	for _, target := range state.Pending {
		c.admit(gctx, pool, pool.Make(target.URL, urls.WithDepth(target.Depth), urls.WithReferer(target.Parent)), stats)
		if target.Depth <= c.opts.MaxDepth {
			frontier = append(frontier, target)
		}
	}
	var queued []models.URLPriority
	for _, seed := range seeds {
		id := pool.Make(seed)
		if c.admit(gctx, pool, id, stats) && urls.Crawlable(id) {
			queued = append(queued, models.URLPriority{Key: id.Key, URL: fetchURL(nil, seed, id), Priority: 100, Context: models.URLContext{Importance: 1.0}})
		}
	}
	c.enqueue(gctx, queued, stats)
	frontier = byPriority(append(frontier, queued...))

	inflight := 0
loop:
	for inflight > 0 || len(frontier) > 0 {
		var send chan<- models.URLPriority
		var next models.URLPriority
		if len(frontier) > 0 {
			send = jobs
			next = frontier[0]
		}

		select {
		case send <- next:
			frontier = frontier[1:]
			inflight++
		case out := <-outcomes:
			inflight--
			frontier = c.handle(gctx, pool, out, stats, frontier)
		case <-gctx.Done():
			break loop
		}
	}

	close(jobs)
	err := g.Wait()
	stats.Duration = time.Since(start)
	if stats.PagesProcessed > 0 {
		stats.AvgLoadTime = stats.AvgLoadTime / time.Duration(stats.PagesProcessed)
	}
	stats.URLsDiscovered = pool.Len()
	stats.Unparsable = len(pool.Unparsable())

	if err != nil && ctx.Err() == nil {
		return pool, stats, err
	}
	return pool, stats, nil
}

func (c *Crawler) worker(ctx context.Context, jobs <-chan models.URLPriority, outcomes chan<- fetchOutcome) error {
	for target := range jobs {
		result, err := c.fetcher.Fetch(ctx, target)
		select {
		case outcomes <- fetchOutcome{target: target, result: result, err: err}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// admit adds id to the pool and persists it if it is new.
func (c *Crawler) admit(ctx context.Context, pool *urls.Pool, id urls.Identity, stats *models.CrawlStats) bool {
	if !pool.AddIdentity(id) {
		return false
	}
	if c.sink != nil {
		if err := c.sink.SaveIdentity(ctx, id); err != nil {
			stats.Errors++
			c.logger.WithError(err).WithField("url", id.Raw).Warn("Failed to save identity")
		}
	}
	return true
}

func (c *Crawler) handle(ctx context.Context, pool *urls.Pool, out fetchOutcome, stats *models.CrawlStats, frontier []models.URLPriority) []models.URLPriority {
	log := c.logger.WithFields(logrus.Fields{"url": out.target.URL, "depth": out.target.Depth})

	if out.err != nil && ctx.Err() != nil {
		// Interrupted; the target stays pending.
		return frontier
	}
	if c.sink != nil {
		if err := c.sink.MarkURLProcessed(ctx, out.target.Key); err != nil {
			stats.Errors++
			log.WithError(err).Warn("Failed to mark URL processed")
		}
	}
	if out.err != nil {
		stats.Errors++
		log.WithError(out.err).Warn("Fetch failed")
		return frontier
	}
	if out.result == nil || out.result.Skipped || out.result.Page == nil {
		stats.PagesSkipped++
		if out.result != nil {
			log.WithField("reason", out.result.Reason).Debug("Page skipped")
		}
		return frontier
	}

	page := out.result.Page
	if c.sink != nil {
		if err := c.sink.SavePage(ctx, page); err != nil {
			stats.Errors++
			log.WithError(err).Warn("Failed to save page")
		}
	}
	stats.PagesProcessed++
	stats.TotalSize += page.Size
	stats.AvgLoadTime += time.Duration(page.LoadTime) * time.Millisecond

	base, err := url.Parse(out.target.URL)
	if err != nil {
		return frontier
	}

	depth := out.target.Depth + 1
	var links []models.Link
	var queued []models.URLPriority
	for _, link := range out.result.Links {
		id := pool.Make(link.Href, urls.WithBase(base), urls.WithDepth(depth), urls.WithReferer(out.target.URL))
		links = append(links, models.Link{SourceKey: out.target.Key, TargetKey: id.Key, URL: link.Href, Anchor: link.Anchor, Rel: link.Rel})

		if !c.admit(ctx, pool, id, stats) {
			continue
		}
		if depth <= c.opts.MaxDepth && urls.Crawlable(id) {
			queued = append(queued, models.URLPriority{
				Key:      id.Key,
				URL:      fetchURL(base, link.Href, id),
				Priority: link.Priority,
				Depth:    depth,
				Parent:   out.target.URL,
			})
		}
	}

	if c.sink != nil {
		if err := c.sink.SaveLinks(ctx, links); err != nil {
			stats.Errors++
			log.WithError(err).Warn("Failed to save links")
		}
	}
	c.enqueue(ctx, queued, stats)
	log.WithFields(logrus.Fields{"links": len(links), "queued": len(queued)}).Debug("Page processed")

	return byPriority(append(frontier, queued...))
}

func (c *Crawler) enqueue(ctx context.Context, items []models.URLPriority, stats *models.CrawlStats) {
	if c.sink == nil || len(items) == 0 {
		return
	}
	if err := c.sink.AddToQueue(ctx, items); err != nil {
		stats.Errors++
		c.logger.WithError(err).WithField("count", len(items)).Warn("Failed to queue URLs")
	}
}

func byPriority(frontier []models.URLPriority) []models.URLPriority {
	sort.SliceStable(frontier, func(i, j int) bool {
		return frontier[i].Priority > frontier[j].Priority
	})
	return frontier
}

// fetchURL is the address actually requested: the href resolved against base
// without normalization, since a forced scheme or stripped index file may not
// be served by the site.
func fetchURL(base *url.URL, href string, id urls.Identity) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return id.Href()
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
