package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/baranw/adscraper/internal/app"
)

func main() {
	var (
		searchURL   string
		configPath  string
		outputDir   string
		pagesDir    string
		batchSize   int
		maxPages    int
		cacheDir    string
		cacheMaxAge time.Duration
		ratePerSec  float64
		userAgent   string
		noRobots    bool
		webhookURL  string
		mysqlDSN    string
		logFile     string
		verbose     bool
	)

	flag.StringVar(&searchURL, "url", "", "Search-results URL the crawl starts from")
	flag.StringVar(&configPath, "config", "", "Path to optional YAML config file")
	flag.StringVar(&outputDir, "out", "", "Directory for batch_NNN.json output (default \"scraped\")")
	flag.StringVar(&pagesDir, "pages", "", "Directory to keep a copy of each fetched listing page (empty disables)")
	flag.IntVar(&batchSize, "batch", 0, "Listings per output batch (default 27)")
	flag.IntVar(&maxPages, "max.pages", 0, "Maximum search-result pages to follow (default 1)")
	flag.StringVar(&cacheDir, "cache.dir", "", "Page cache directory (empty disables caching)")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.Float64Var(&ratePerSec, "rate", 0, "Page fetches per second, 0 disables pacing (default 1)")
	flag.StringVar(&userAgent, "ua", "", "User-Agent for all requests")
	flag.BoolVar(&noRobots, "no-robots", false, "Skip robots.txt checks")
	flag.StringVar(&webhookURL, "webhook", "", "Webhook URL receiving each batch as JSON (empty disables)")
	flag.StringVar(&mysqlDSN, "mysql.dsn", "", "MySQL DSN for the listings table (empty disables)")
	flag.StringVar(&logFile, "log.file", "", "Also write logs to this rotating file")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg := app.Config{
		SearchURL:     searchURL,
		OutputDir:     outputDir,
		PagesDir:      pagesDir,
		BatchSize:     batchSize,
		MaxPages:      maxPages,
		CacheDir:      cacheDir,
		CacheMaxAge:   cacheMaxAge,
		UserAgent:     userAgent,
		RatePerSecond: ratePerSec,
		IgnoreRobots:  noRobots,
		WebhookURL:    webhookURL,
		MySQLDSN:      mysqlDSN,
		LogFile:       logFile,
		Verbose:       verbose,
	}
	if configPath != "" {
		if err := app.LoadConfigFile(configPath, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	app.ApplyEnv(&cfg)
	applyDefaults(&cfg, explicit, ratePerSec)

	setupLogging(cfg)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		if errors.Is(err, app.ErrNoListings) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

const defaultUserAgent = "adscraper/1.0 (+https://github.com/baranw/adscraper)"

// applyDefaults finishes the flag > file > env layering. Fields still at
// their zero value fall back to the built-in defaults. The rate flag needs
// restating first because 0 is a meaningful value for it and the fill rules
// cannot tell an explicit 0 apart from unset.
func applyDefaults(cfg *app.Config, explicit map[string]bool, rateFlag float64) {
	if explicit["rate"] {
		cfg.RatePerSecond = rateFlag
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "scraped"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RatePerSecond == 0 && !explicit["rate"] {
		cfg.RatePerSecond = 1
	}
}

func setupLogging(cfg app.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var w io.Writer = console
	if cfg.LogFile != "" {
		w = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		})
	}
	log.Logger = log.Output(w)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
