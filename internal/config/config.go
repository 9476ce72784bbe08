package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Site selects the spider: colleges, courses or exams.
	Site string `envconfig:"SITE" default:"colleges"`

	// StartURLs and AllowedDomains are comma separated. Empty means the
	// site's defaults.
	StartURLs      []string `envconfig:"START_URLS"`
	AllowedDomains []string `envconfig:"ALLOWED_DOMAINS"`

	Workers int `envconfig:"WORKERS" default:"8"`

	// RateLimit is the minimum delay between two requests of the run.
	RateLimit     time.Duration `envconfig:"RATE_LIMIT" default:"1s"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	MaxRetries    int           `envconfig:"MAX_RETRIES" default:"0"`
	RetryBackoff  time.Duration `envconfig:"RETRY_BACKOFF" default:"500ms"`
	MaxTabPages   int           `envconfig:"MAX_TAB_PAGES" default:"20"`
	UserAgent     string        `envconfig:"USER_AGENT" default:"edu-crawler/1.0"`
	RespectRobots bool          `envconfig:"RESPECT_ROBOTS" default:"true"`

	// Render loads pages in headless Chrome instead of plain HTTP.
	Render     bool          `envconfig:"RENDER" default:"false"`
	RenderWait time.Duration `envconfig:"RENDER_WAIT" default:"2s"`

	// Sink is "json" (OutputPath) or "postgres" (DatabaseURL).
	Sink          string        `envconfig:"SINK" default:"json"`
	OutputPath    string        `envconfig:"OUTPUT_PATH"`
	DatabaseURL   string        `envconfig:"DB_URL"`
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"20"`
	FlushInterval time.Duration `envconfig:"FLUSH_INTERVAL" default:"2s"`
	SinkRetries   int           `envconfig:"SINK_RETRIES" default:"2"`

	// RedisAddr switches the dedup store to Redis. Processes started with the
	// same RunID share its dedup set.
	RedisAddr string `envconfig:"REDIS_ADDR"`
	RunID     string `envconfig:"RUN_ID"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load processes environment variables and populates the Config struct.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
