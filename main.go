package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/autogram-is/spidergram-sub001/config"
	"github.com/autogram-is/spidergram-sub001/crawler"
	"github.com/autogram-is/spidergram-sub001/database"
	"github.com/autogram-is/spidergram-sub001/logging"
	"github.com/autogram-is/spidergram-sub001/report"
	"github.com/autogram-is/spidergram-sub001/sitetree"
	"github.com/autogram-is/spidergram-sub001/urls"
)

var _ crawler.Sink = (*database.PostgresDB)(nil)

func main() {
	// Command line flags
	var (
		mode       = flag.String("mode", "crawl", "Mode: 'crawl', 'hierarchy', or 'report'")
		seedList   = flag.String("url", "", "Comma separated starting URLs to crawl")
		depth      = flag.Int("depth", 3, "Maximum crawl depth")
		workers    = flag.Int("workers", 10, "Number of concurrent workers")
		gaps       = flag.String("gaps", "", "Gap strategy: adopt, bridge, prune or separate (overrides GAP_STRATEGY)")
		subdomains = flag.String("subdomains", "", "Subdomain mode: separate or children (overrides SUBDOMAINS)")
		singleRoot = flag.Bool("single-root", false, "Hang every top-level node under one synthesized root")
		dryRun     = flag.Bool("dry-run", false, "Crawl and build without touching the database")
	)
	flag.Parse()

	cfg := config.Load()
	if *gaps != "" {
		cfg.GapStrategy = *gaps
	}
	if *subdomains != "" {
		cfg.Subdomains = *subdomains
	}
	if *singleRoot {
		cfg.ForceSingleRoot = true
	}

	logger := logging.NewLogger(cfg.LogLevel)

	treeOpts, err := hierarchyOptions(cfg)
	if err != nil {
		logger.Fatalf("Invalid hierarchy options: %v", err)
	}
	poolOpts := urls.PoolOptions{KeepUnparsable: cfg.KeepUnparsable, Normalizer: treeOpts.Normalizer}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down gracefully...")
		cancel()
	}()

	var db *database.PostgresDB
	if !*dryRun {
		db, err = database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	} else if *mode != "crawl" {
		logger.Fatalf("-dry-run only applies to crawl mode")
	}

	switch *mode {
	case "crawl":
		runCrawl(ctx, logger, cfg, db, splitSeeds(*seedList), *depth, *workers, poolOpts, treeOpts)
	case "hierarchy":
		runHierarchy(ctx, logger, db, poolOpts, treeOpts)
	case "report":
		runReport(ctx, logger, db, poolOpts, treeOpts)
	default:
		logger.Fatalf("Invalid mode: %s. Use 'crawl', 'hierarchy', or 'report'", *mode)
	}
}

func hierarchyOptions(cfg *config.Config) (sitetree.Options, error) {
	gaps, err := sitetree.ParseGapStrategy(cfg.GapStrategy)
	if err != nil {
		return sitetree.Options{}, err
	}
	mode, err := sitetree.ParseSubdomainMode(cfg.Subdomains)
	if err != nil {
		return sitetree.Options{}, err
	}

	normalizer := urls.DefaultNormalizer
	if cfg.DropTrackingParams {
		normalizer = urls.Chain(normalizer, urls.DropTrackingParams())
	}
	if len(cfg.DropQueryKeys) > 0 {
		normalizer = urls.Chain(normalizer, urls.DropQueryKeys(cfg.DropQueryKeys...))
	}
	return sitetree.Options{
		Gaps:            gaps,
		Subdomains:      mode,
		ForceSingleRoot: cfg.ForceSingleRoot,
		Normalizer:      normalizer,
	}, nil
}

func splitSeeds(list string) []string {
	var seeds []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	return seeds
}

func runCrawl(ctx context.Context, logger *logrus.Logger, cfg *config.Config, db *database.PostgresDB, seeds []string, maxDepth, workers int, poolOpts urls.PoolOptions, treeOpts sitetree.Options) {
	var (
		sink  crawler.Sink
		state crawler.State
	)
	if db != nil {
		known, err := db.LoadIdentities(ctx)
		if err != nil {
			logger.Fatalf("Failed to load identities: %v", err)
		}
		pending, err := db.GetNextURLs(ctx, 1000)
		if err != nil {
			logger.Fatalf("Failed to read crawl queue: %v", err)
		}
		state = crawler.State{Known: known, Pending: pending}
		sink = db
	}
	if len(seeds) == 0 && len(state.Pending) == 0 {
		logger.Fatal("Nothing to crawl: pass -url or leave pending entries in crawl_queue")
	}

	logger.WithFields(logrus.Fields{
		"seeds":   len(seeds),
		"known":   len(state.Known),
		"pending": len(state.Pending),
		"depth":   maxDepth,
		"workers": workers,
	}).Info("Starting crawl")

	fetcher := crawler.NewHTTPFetcher(crawler.HTTPFetcherOptions{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	c := crawler.New(fetcher, sink, logger, crawler.Options{Workers: workers, MaxDepth: maxDepth, Pool: poolOpts})

	pool, stats, err := c.Resume(ctx, state, seeds)
	if err != nil {
		logger.Fatalf("Crawl failed: %v", err)
	}
	report.WriteCrawlStats(os.Stdout, stats)

	treeLog := logging.WithComponent(logger, "sitetree")
	result := sitetree.Build(pool, treeOpts)
	logSummary(treeLog, report.Summarize(result))
	if db != nil {
		if err := db.SaveHierarchy(context.WithoutCancel(ctx), result); err != nil {
			treeLog.Fatalf("Failed to save hierarchy: %v", err)
		}
	}
}

func loadPool(ctx context.Context, logger logrus.FieldLogger, db *database.PostgresDB, poolOpts urls.PoolOptions) *urls.Pool {
	ids, err := db.LoadIdentities(ctx)
	if err != nil {
		logger.Fatalf("Failed to load identities: %v", err)
	}
	pool := urls.NewPool(poolOpts)
	for _, id := range ids {
		pool.AddIdentity(id)
	}
	logger.WithFields(logrus.Fields{"identities": pool.Len(), "unparsable": len(pool.Unparsable())}).Info("Loaded URL pool")
	return pool
}

func runHierarchy(ctx context.Context, logger *logrus.Logger, db *database.PostgresDB, poolOpts urls.PoolOptions, treeOpts sitetree.Options) {
	treeLog := logging.WithComponent(logger, "sitetree")
	pool := loadPool(ctx, treeLog, db, poolOpts)
	result := sitetree.Build(pool, treeOpts)
	if err := db.SaveHierarchy(ctx, result); err != nil {
		treeLog.Fatalf("Failed to save hierarchy: %v", err)
	}
	logSummary(treeLog, report.Summarize(result))
}

func runReport(ctx context.Context, logger *logrus.Logger, db *database.PostgresDB, poolOpts urls.PoolOptions, treeOpts sitetree.Options) {
	pool := loadPool(ctx, logging.WithComponent(logger, "report"), db, poolOpts)
	report.CompareStrategies(os.Stdout, pool, treeOpts)
	os.Stdout.WriteString("\n")
	if err := report.WriteTree(os.Stdout, sitetree.Build(pool, treeOpts)); err != nil {
		logger.Fatalf("Failed to write tree: %v", err)
	}
}

func logSummary(logger logrus.FieldLogger, s report.Summary) {
	logger.WithFields(logrus.Fields{
		"nodes":      s.Nodes,
		"inferred":   s.Inferred,
		"roots":      s.Roots,
		"orphans":    s.Orphans,
		"discarded":  s.Discarded,
		"unparsable": s.Unparsable,
		"max_depth":  s.MaxDepth,
	}).Info("Hierarchy built")
}
