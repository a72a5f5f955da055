// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/enumerate"
)

// EnvPrefix namespaces environment overrides, e.g. BOOKINGS_CRAWL_MAX_PER_DAY.
const EnvPrefix = "BOOKINGS"

// Storage backends.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendBoth  = "both"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig selects where raw pages are persisted.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	// Target prefixes every object in the bucket, manifest included.
	Target string `mapstructure:"target"`
}

// SeedConfig locates record lists of completed partitions on disk.
type SeedConfig struct {
	Dir string `mapstructure:"dir"`
}

// CrawlConfig governs candidate enumeration and fan-out.
type CrawlConfig struct {
	URLTemplate       string `mapstructure:"url_template"`
	MaxPerDay         int    `mapstructure:"max_per_day"`
	FallbackStartDate string `mapstructure:"fallback_start_date"`
	SampleSize        int    `mapstructure:"sample_size"`
	Concurrency       int    `mapstructure:"concurrency"`
	Timezone          string `mapstructure:"timezone"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	// Headers are sent with every page request.
	Headers map[string]string `mapstructure:"headers"`
}

// OutputConfig enables row sinks; an empty value disables the sink.
type OutputConfig struct {
	CSVPath       string `mapstructure:"csv_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// ServerConfig controls the operator HTTP server.
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.local_dir", "data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.target", "")
	v.SetDefault("seed.dir", "data/daily")
	v.SetDefault("crawl.url_template", "")
	v.SetDefault("crawl.max_per_day", 300)
	v.SetDefault("crawl.fallback_start_date", "2023-01-01")
	v.SetDefault("crawl.sample_size", 0)
	v.SetDefault("crawl.concurrency", 8)
	v.SetDefault("crawl.timezone", "UTC")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "booking-crawler/0.1")
	v.SetDefault("output.csv_path", "data/bookings.csv")
	v.SetDefault("output.postgres_dsn", "")
	v.SetDefault("output.postgres_table", "booking_rows")
	v.SetDefault("output.pubsub_project", "")
	v.SetDefault("output.pubsub_topic", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
	case BackendGCS, BackendBoth:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for backend %q", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend must be one of local, gcs, both; got %q", c.Storage.Backend)
	}
	if c.UsesLocal() && c.Storage.LocalDir == "" {
		return fmt.Errorf("storage.local_dir is required for backend %q", c.Storage.Backend)
	}
	if c.Crawl.URLTemplate == "" {
		return fmt.Errorf("crawl.url_template is required")
	}
	if c.Crawl.MaxPerDay < 1 || c.Crawl.MaxPerDay > enumerate.MaxPerDayLimit {
		return fmt.Errorf("crawl.max_per_day must be between 1 and %d", enumerate.MaxPerDayLimit)
	}
	if _, err := c.FallbackStart(); err != nil {
		return fmt.Errorf("crawl.fallback_start_date: %w", err)
	}
	if c.Crawl.SampleSize < 0 {
		return fmt.Errorf("crawl.sample_size must be >= 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("crawl.timezone: %w", err)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	for name, value := range c.HTTP.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name+value, "\r\n") {
			return fmt.Errorf("http.headers: invalid header %q", name)
		}
	}
	if (c.Output.PubSubProject == "") != (c.Output.PubSubTopic == "") {
		return fmt.Errorf("output.pubsub_project and output.pubsub_topic must be set together")
	}
	return nil
}

// UsesLocal reports whether raw pages go to the local filesystem.
func (c Config) UsesLocal() bool {
	return c.Storage.Backend == BackendLocal || c.Storage.Backend == BackendBoth
}

// UsesGCS reports whether raw pages go to Cloud Storage.
func (c Config) UsesGCS() bool {
	return c.Storage.Backend == BackendGCS || c.Storage.Backend == BackendBoth
}

// FallbackStart parses the first-run resume date.
func (c Config) FallbackStart() (time.Time, error) {
	return calendar.ParseDay(c.Crawl.FallbackStartDate)
}

// Location resolves the timezone that decides "today".
func (c Config) Location() (*time.Location, error) {
	if c.Crawl.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Crawl.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	return loc, nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestHeaders returns the configured request headers in canonical form.
func (c Config) RequestHeaders() http.Header {
	if len(c.HTTP.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(c.HTTP.Headers))
	for name, value := range c.HTTP.Headers {
		h.Set(name, value)
	}
	return h
}
