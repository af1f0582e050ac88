package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config drives one crawl. Precedence: flags over config file over env.
type Config struct {
	// SearchURL is the search-results page the crawl starts from.
	SearchURL string
	// OutputDir receives the batch_NNN.json files.
	OutputDir string
	// PagesDir, when set, keeps a copy of every fetched listing page.
	PagesDir string
	// BatchSize is listings per output batch; zero uses the default.
	BatchSize int
	// MaxPages caps how many search-result pages are followed.
	MaxPages int

	CacheDir    string
	CacheMaxAge time.Duration

	UserAgent string
	// RatePerSecond paces all page fetches. Zero disables pacing.
	RatePerSecond float64
	IgnoreRobots  bool

	WebhookURL string
	MySQLDSN   string

	LogFile string
	Verbose bool
}

// FileConfig is the optional YAML configuration schema, one nested section
// per concern.
type FileConfig struct {
	URL    string `yaml:"url"`
	Output string `yaml:"output"`
	Pages  string `yaml:"pages"`

	Batch struct {
		Size int `yaml:"size"`
	} `yaml:"batch"`

	Crawl struct {
		MaxPages     int     `yaml:"maxPages"`
		Rate         float64 `yaml:"rate"`
		UserAgent    string  `yaml:"userAgent"`
		IgnoreRobots bool    `yaml:"ignoreRobots"`
	} `yaml:"crawl"`

	Cache struct {
		Dir    string `yaml:"dir"`
		MaxAge string `yaml:"maxAge"`
	} `yaml:"cache"`

	Webhook struct {
		URL string `yaml:"url"`
	} `yaml:"webhook"`

	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`

	Log struct {
		File    string `yaml:"file"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"log"`
}

// LoadConfigFile reads a YAML config file and folds it into cfg, filling
// only fields the caller left unset.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	setString(&cfg.SearchURL, fc.URL)
	setString(&cfg.OutputDir, fc.Output)
	setString(&cfg.PagesDir, fc.Pages)
	setInt(&cfg.BatchSize, fc.Batch.Size)
	setInt(&cfg.MaxPages, fc.Crawl.MaxPages)
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = fc.Crawl.Rate
	}
	setString(&cfg.UserAgent, fc.Crawl.UserAgent)
	if !cfg.IgnoreRobots {
		cfg.IgnoreRobots = fc.Crawl.IgnoreRobots
	}
	setString(&cfg.CacheDir, fc.Cache.Dir)
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge != "" {
		d, err := time.ParseDuration(fc.Cache.MaxAge)
		if err != nil {
			return fmt.Errorf("parse cache.maxAge: %w", err)
		}
		cfg.CacheMaxAge = d
	}
	setString(&cfg.WebhookURL, fc.Webhook.URL)
	setString(&cfg.MySQLDSN, fc.MySQL.DSN)
	setString(&cfg.LogFile, fc.Log.File)
	if !cfg.Verbose {
		cfg.Verbose = fc.Log.Verbose
	}
	return nil
}

// ApplyEnv populates unset fields from environment variables. Explicit
// values always take precedence over env.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	setString(&cfg.SearchURL, os.Getenv("ADSCRAPER_URL"))
	setString(&cfg.OutputDir, os.Getenv("ADSCRAPER_OUTPUT"))
	setString(&cfg.PagesDir, os.Getenv("ADSCRAPER_PAGES"))
	setString(&cfg.CacheDir, os.Getenv("ADSCRAPER_CACHE_DIR"))
	setString(&cfg.UserAgent, os.Getenv("ADSCRAPER_USER_AGENT"))
	setString(&cfg.WebhookURL, os.Getenv("ADSCRAPER_WEBHOOK_URL"))
	setString(&cfg.MySQLDSN, os.Getenv("ADSCRAPER_MYSQL_DSN"))
	setString(&cfg.LogFile, os.Getenv("ADSCRAPER_LOG_FILE"))

	if cfg.BatchSize == 0 {
		if n, err := strconv.Atoi(os.Getenv("ADSCRAPER_BATCH_SIZE")); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if cfg.MaxPages == 0 {
		if n, err := strconv.Atoi(os.Getenv("ADSCRAPER_MAX_PAGES")); err == nil && n > 0 {
			cfg.MaxPages = n
		}
	}
	if cfg.RatePerSecond == 0 {
		if f, err := strconv.ParseFloat(os.Getenv("ADSCRAPER_RATE"), 64); err == nil && f > 0 {
			cfg.RatePerSecond = f
		}
	}
	if cfg.CacheMaxAge == 0 {
		if d, err := time.ParseDuration(os.Getenv("ADSCRAPER_CACHE_MAX_AGE")); err == nil {
			cfg.CacheMaxAge = d
		}
	}
}

func setString(dst *string, val string) {
	if *dst == "" && val != "" {
		*dst = val
	}
}

func setInt(dst *int, val int) {
	if *dst == 0 && val > 0 {
		*dst = val
	}
}
