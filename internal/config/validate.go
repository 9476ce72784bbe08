package config

import (
	"net/url"
	"strings"

	"edu-crawler/pkg/models"
)

const (
	SinkJSON     = "json"
	SinkPostgres = "postgres"
)

// Validate rejects configuration that cannot seed a crawl. It expects the
// site defaults to have been applied already.
func (c *Config) Validate() error {
	if _, err := models.ParseSite(c.Site); err != nil {
		return &SeedError{Field: "SITE", Value: c.Site, Reason: "unknown site"}
	}
	if len(c.StartURLs) == 0 {
		return &SeedError{Field: "START_URLS", Reason: "no start URL"}
	}
	for _, raw := range c.StartURLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &SeedError{Field: "START_URLS", Value: raw, Reason: "not an absolute http(s) URL"}
		}
	}

	domains := 0
	for _, d := range c.AllowedDomains {
		if strings.TrimSpace(d) != "" {
			domains++
		}
	}
	if domains == 0 {
		return &SeedError{Field: "ALLOWED_DOMAINS", Reason: "allow-list is empty"}
	}

	if c.Workers <= 0 {
		return &SeedError{Field: "WORKERS", Reason: "must be positive"}
	}
	if c.RateLimit < 0 {
		return &SeedError{Field: "RATE_LIMIT", Value: c.RateLimit.String(), Reason: "must not be negative"}
	}
	if c.BatchSize <= 0 {
		return &SeedError{Field: "BATCH_SIZE", Reason: "must be positive"}
	}
	if c.MaxRetries < 0 || c.SinkRetries < 0 {
		return &SeedError{Field: "MAX_RETRIES", Reason: "retries must not be negative"}
	}

	if c.RunID != "" && c.RedisAddr == "" {
		return &SeedError{Field: "RUN_ID", Value: c.RunID, Reason: "a shared run id needs REDIS_ADDR"}
	}

	switch strings.ToLower(c.Sink) {
	case SinkJSON:
		if c.OutputPath == "" {
			return &SeedError{Field: "OUTPUT_PATH", Reason: "required by the json sink"}
		}
	case SinkPostgres:
		if c.DatabaseURL == "" {
			return &SeedError{Field: "DB_URL", Reason: "required by the postgres sink"}
		}
	default:
		return &SeedError{Field: "SINK", Value: c.Sink, Reason: "unknown sink"}
	}
	return nil
}

// ApplyDefaults fills empty seeds and output path from the site's defaults.
func (c *Config) ApplyDefaults(startURLs, domains []string) {
	if len(c.StartURLs) == 0 {
		c.StartURLs = append([]string(nil), startURLs...)
	}
	if len(c.AllowedDomains) == 0 {
		c.AllowedDomains = append([]string(nil), domains...)
	}
	if c.OutputPath == "" && strings.EqualFold(c.Sink, SinkJSON) {
		c.OutputPath = strings.ToLower(c.Site) + ".json"
	}
}
