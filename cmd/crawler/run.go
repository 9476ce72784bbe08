package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"edu-crawler/internal/config"
	"edu-crawler/internal/crawler"
	"edu-crawler/internal/crawler/engine"
	"edu-crawler/internal/dedup"
	"edu-crawler/internal/logging"
	"edu-crawler/internal/sites"
	"edu-crawler/internal/storage"
	"edu-crawler/pkg/models"
)

const seenTTL = 24 * time.Hour

func parseDuration(flag, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &config.SeedError{Field: flag, Value: value, Reason: err.Error()}
	}
	return d, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	def, err := sites.New(cfg.Site)
	if err != nil {
		return &config.SeedError{Field: "SITE", Value: cfg.Site, Reason: err.Error()}
	}
	cfg.ApplyDefaults(def.StartURLs, def.AllowedDomains)
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logger.WithFields(logrus.Fields{"site": def.Site.String(), "run_id": runID})

	allow, err := crawler.NewAllowList(cfg.AllowedDomains...)
	if err != nil {
		return &config.SeedError{Field: "ALLOWED_DOMAINS", Reason: err.Error()}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		defer srv.Shutdown(context.WithoutCancel(ctx))
	}

	sink, closeSink, err := openSink(ctx, cfg, def.Site, log)
	if err != nil {
		return err
	}
	defer closeSink()

	opts := []engine.Option{
		engine.WithFilter(allow),
		engine.WithMetrics(metrics),
		engine.WithLogger(log),
		engine.WithRunID(runID),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		var storeOpts []dedup.RedisOption
		if cfg.RunID != "" {
			storeOpts = append(storeOpts, dedup.Shared())
		}
		opts = append(opts, engine.WithSeenStore(dedup.NewRedis(client, runID, seenTTL, storeOpts...)))
	}

	fetchOpts := crawler.FetcherOptions{
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.FetchTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Filter:       allow,
	}
	var fetcher crawler.Fetcher
	if cfg.Render {
		renderer := crawler.NewRenderFetcher(fetchOpts, cfg.RenderWait)
		defer renderer.Close()
		fetcher = renderer
	} else {
		fetcher = crawler.NewHTTPFetcher(fetchOpts)
	}

	eng := engine.NewEngine(engine.Config{
		Workers:       cfg.Workers,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		FetchTimeout:  cfg.FetchTimeout,
		MaxTabPages:   cfg.MaxTabPages,
		SinkRetries:   cfg.SinkRetries,
		SinkBackoff:   time.Second,
	}, def.Spider, fetcher, crawler.NewDomainManager(cfg.RateLimit, cfg.UserAgent, cfg.RespectRobots), sink, opts...)

	log.WithField("start_urls", strings.Join(cfg.StartURLs, ",")).Info("starting crawl")
	stats, err := eng.Run(ctx, cfg.StartURLs...)
	log.WithFields(logrus.Fields{
		"pages":      stats.Pages,
		"failures":   stats.Failures,
		"anomalies":  stats.Anomalies,
		"discovered": stats.Discovered,
		"duplicates": stats.Duplicates,
		"finalized":  stats.Finalized,
		"failed":     stats.Failed,
		"abandoned":  stats.Abandoned,
		"saved":      stats.Saved,
	}).Info("crawl finished")
	return err
}

func openSink(ctx context.Context, cfg *config.Config, site models.Site, log *logrus.Entry) (engine.Sink, func(), error) {
	switch strings.ToLower(cfg.Sink) {
	case config.SinkPostgres:
		db, err := storage.WaitForDB(ctx, cfg.DatabaseURL, 10, 2*time.Second, log)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewStorage(db)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return storage.NewRecordSink(store, site), func() { store.Close() }, nil
	default:
		sink, err := storage.NewJSONSink(cfg.OutputPath)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.OutputPath).Info("writing JSON")
		return sink, func() {}, nil
	}
}
