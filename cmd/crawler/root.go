package main

import (
	"github.com/spf13/cobra"

	"edu-crawler/internal/config"
)

// newRootCmd builds "crawler [site]". Flags override the environment.
func newRootCmd() *cobra.Command {
	var flags struct {
		startURLs   []string
		workers     int
		rateLimit   string
		sink        string
		output      string
		dbURL       string
		render      bool
		maxRetries  int
		redisAddr   string
		runID       string
		logLevel    string
		metricsAddr string
	}

	cmd := &cobra.Command{
		Use:           "crawler [colleges|courses|exams]",
		Short:         "Crawl education listings into JSON or Postgres",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Site = args[0]
			}

			f := cmd.Flags()
			if f.Changed("start-url") {
				cfg.StartURLs = flags.startURLs
			}
			if f.Changed("workers") {
				cfg.Workers = flags.workers
			}
			if f.Changed("rate-limit") {
				if cfg.RateLimit, err = parseDuration("rate-limit", flags.rateLimit); err != nil {
					return err
				}
			}
			if f.Changed("sink") {
				cfg.Sink = flags.sink
			}
			if f.Changed("output") {
				cfg.OutputPath = flags.output
			}
			if f.Changed("db-url") {
				cfg.DatabaseURL = flags.dbURL
			}
			if f.Changed("render") {
				cfg.Render = flags.render
			}
			if f.Changed("max-retries") {
				cfg.MaxRetries = flags.maxRetries
			}
			if f.Changed("redis-addr") {
				cfg.RedisAddr = flags.redisAddr
			}
			if f.Changed("run-id") {
				cfg.RunID = flags.runID
			}
			if f.Changed("log-level") {
				cfg.LogLevel = flags.logLevel
			}
			if f.Changed("metrics-addr") {
				cfg.MetricsAddr = flags.metricsAddr
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.startURLs, "start-url", nil, "listing URL to start from (repeatable)")
	f.IntVarP(&flags.workers, "workers", "w", 0, "number of concurrent workers")
	f.StringVar(&flags.rateLimit, "rate-limit", "", "minimum delay between requests, e.g. 500ms")
	f.StringVar(&flags.sink, "sink", "", "json or postgres")
	f.StringVarP(&flags.output, "output", "o", "", "JSON output file")
	f.StringVar(&flags.dbURL, "db-url", "", "Postgres connection URL")
	f.BoolVar(&flags.render, "render", false, "render pages in headless Chrome")
	f.IntVar(&flags.maxRetries, "max-retries", 0, "extra attempts per failed fetch")
	f.StringVar(&flags.redisAddr, "redis-addr", "", "share the dedup store through Redis")
	f.StringVar(&flags.runID, "run-id", "", "share a Redis dedup set with other processes of this run")
	f.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}
