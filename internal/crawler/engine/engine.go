package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"edu-crawler/internal/crawler"
	"edu-crawler/internal/dedup"
	"edu-crawler/pkg/models"
)

// DefaultSkipTabs are sub-navigation tabs that never carry record content.
var DefaultSkipTabs = []string{"Gallery", "Reviews", "News", "QnA", "Q&A"}

// Config holds worker settings.
type Config struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	FetchTimeout  time.Duration
	// MaxTabPages bounds the "load more" chain of a single tab.
	MaxTabPages int
	SkipTabs    []string
	// SinkRetries is the number of extra Save attempts per batch.
	SinkRetries int
	SinkBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 2 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxTabPages <= 0 {
		c.MaxTabPages = 20
	}
	if c.SkipTabs == nil {
		c.SkipTabs = DefaultSkipTabs
	}
	if c.SinkRetries < 0 {
		c.SinkRetries = 0
	}
	return c
}

// Stats summarises one run.
type Stats struct {
	Pages      int64
	Failures   int64
	Discovered int64
	Duplicates int64
	Finalized  int64
	Failed     int64
	Abandoned  int64
	Saved      int64
	Anomalies  int64
}

type runStats struct {
	pages, failures, discovered, duplicates atomic.Int64
	finalized, failed, saved, anomalies     atomic.Int64
}

func (s *runStats) snapshot() Stats {
	return Stats{
		Pages:      s.pages.Load(),
		Failures:   s.failures.Load(),
		Discovered: s.discovered.Load(),
		Duplicates: s.duplicates.Load(),
		Finalized:  s.finalized.Load(),
		Failed:     s.failed.Load(),
		Saved:      s.saved.Load(),
		Anomalies:  s.anomalies.Load(),
	}
}

// Engine orchestrates the crawl: listing pages, then each entity's detail
// page, then the tabs discovered on it. Every entity is emitted to the sink
// at most once. Run must not be called concurrently on one Engine.
type Engine struct {
	config  Config
	spider  Spider
	fetcher crawler.Fetcher
	domains *crawler.DomainManager
	sink    Sink
	filter  crawler.URLFilter
	seen    dedup.Store
	metrics *Metrics
	log     *logrus.Entry
	runID   string
	skip    map[string]bool

	// State of the current run
	frontier *frontier
	listings *dedup.SafeMap
	entities *entityTable
	results  chan *models.Record
	stats    *runStats

	sinkMu   sync.Mutex
	sinkErrs []error
}

type Option func(*Engine)

// WithFilter restricts every scheduled URL to the allow-list.
func WithFilter(filter crawler.URLFilter) Option {
	return func(e *Engine) { e.filter = filter }
}

// WithSeenStore replaces the in-memory entity dedup store.
func WithSeenStore(store dedup.Store) Option {
	return func(e *Engine) { e.seen = store }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

func NewEngine(cfg Config, spider Spider, fetcher crawler.Fetcher, domains *crawler.DomainManager, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		config:  cfg.withDefaults(),
		spider:  spider,
		fetcher: fetcher,
		domains: domains,
		sink:    sink,
		filter:  crawler.AlwaysFilter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	if e.seen == nil {
		e.seen = dedup.NewSafeMap()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if e.log == nil {
		e.log = logrus.NewEntry(logrus.StandardLogger())
	}
	e.log = e.log.WithFields(logrus.Fields{"site": spider.Name(), "run_id": e.runID})

	e.skip = make(map[string]bool, len(e.config.SkipTabs))
	for _, title := range e.config.SkipTabs {
		e.skip[models.TabField(title)] = true
	}
	return e
}

func (e *Engine) RunID() string { return e.runID }

// Run crawls from the listing seeds until the frontier drains or ctx is
// cancelled, then flushes and closes the sink. Records finalized before a
// cancellation are still saved; entities still in progress are abandoned.
func (e *Engine) Run(ctx context.Context, seeds ...string) (Stats, error) {
	e.frontier = newFrontier()
	e.listings = dedup.NewSafeMap()
	e.entities = newEntityTable()
	e.results = make(chan *models.Record, e.config.BatchSize*2)
	e.stats = &runStats{}
	e.sinkErrs = nil

	for _, seed := range seeds {
		e.scheduleListing(ctx, seed)
	}

	// 1. Start Storage Worker
	stored := make(chan struct{})
	go e.startStorageWorker(context.WithoutCancel(ctx), stored)

	// 2. Start Crawler Workers
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.config.Workers; i++ {
		id := i
		g.Go(func() error {
			e.crawlWorker(gctx, id)
			return nil
		})
	}
	e.log.WithField("workers", e.config.Workers).Info("engine started")
	_ = g.Wait()

	close(e.results)
	<-stored

	stats := e.stats.snapshot()
	stats.Abandoned = int64(e.entities.unfinished())
	if stats.Abandoned > 0 {
		e.metrics.Entities.WithLabelValues(entityAbandoned).Add(float64(stats.Abandoned))
	}

	errs := []error{ctx.Err()}
	e.sinkMu.Lock()
	errs = append(errs, e.sinkErrs...)
	e.sinkMu.Unlock()
	if err := e.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.seen.Reset(context.WithoutCancel(ctx)); err != nil {
		e.log.WithError(err).Warn("could not reset dedup store")
	}

	e.log.WithFields(logrus.Fields{
		"finalized": stats.Finalized,
		"failed":    stats.Failed,
		"abandoned": stats.Abandoned,
		"saved":     stats.Saved,
	}).Info("engine stopped")
	return stats, errors.Join(errs...)
}

func (e *Engine) crawlWorker(ctx context.Context, id int) {
	log := e.log.WithField("worker", id)
	for {
		task, ok := e.frontier.next(ctx)
		if !ok {
			return
		}
		e.process(ctx, log.WithFields(logrus.Fields{"kind": task.Kind.String(), "url": task.URL}), task)
		e.frontier.done()
	}
}

func (e *Engine) process(ctx context.Context, log *logrus.Entry, task models.CrawlTask) {
	switch task.Kind {
	case models.Listing:
		e.handleListing(ctx, log, task)
	case models.Detail:
		e.handleDetail(ctx, log.WithField("entity", task.Carried.Key), task)
	case models.Tab:
		e.handleTab(ctx, log.WithField("entity", task.Carried.Key), task)
	default:
		e.anomaly(log, task, "unknown task kind")
	}
}

// fetch applies robots.txt and the politeness delay, then fetches under
// the per-request timeout.
func (e *Engine) fetch(ctx context.Context, task models.CrawlTask) (*crawler.Document, error) {
	if !e.domains.IsAllowed(ctx, task.URL) {
		return nil, &crawler.FetchError{URL: task.URL, Err: crawler.ErrDisallowed}
	}
	if err := e.domains.Wait(ctx); err != nil {
		return nil, &crawler.FetchError{URL: task.URL, Err: err}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.config.FetchTimeout)
	defer cancel()
	start := time.Now()
	doc, err := e.fetcher.Fetch(fetchCtx, task.URL)
	e.metrics.FetchDuration.WithLabelValues(task.Kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		e.stats.failures.Add(1)
		e.metrics.Tasks.WithLabelValues(task.Kind.String(), outcomeError).Inc()
		if !crawler.IsFetchError(err) {
			err = &crawler.FetchError{URL: task.URL, Err: err}
		}
		return nil, err
	}
	e.stats.pages.Add(1)
	e.metrics.Tasks.WithLabelValues(task.Kind.String(), outcomeOK).Inc()
	return doc, nil
}

func (e *Engine) scheduleListing(ctx context.Context, link string) {
	if link == "" {
		return
	}
	if !e.filter.Filter(link) {
		e.log.WithField("url", link).Debug("listing page outside allow-list")
		return
	}
	if fresh, _ := e.listings.Claim(ctx, link); !fresh {
		return
	}
	e.frontier.push(models.CrawlTask{URL: link, Kind: models.Listing})
}

func (e *Engine) handleListing(ctx context.Context, log *logrus.Entry, task models.CrawlTask) {
	doc, err := e.fetch(ctx, task)
	if err != nil {
		// Only this page is lost.
		log.WithError(err).Warn("listing page failed")
		return
	}

	page := e.spider.ParseListing(doc)
	log.WithField("entities", len(page.Entities)).Debug("listing parsed")
	for _, ent := range page.Entities {
		e.discover(ctx, log, ent)
	}
	e.scheduleListing(ctx, page.Next)
}

func (e *Engine) discover(ctx context.Context, log *logrus.Entry, found Entity) {
	if found.Key == "" {
		log.Debug("card without title ignored")
		return
	}
	log = log.WithField("entity", found.Key)

	fresh, err := e.seen.Claim(ctx, string(found.Key))
	if err != nil {
		if !fresh {
			log.WithError(err).Error("dedup store unavailable, entity skipped")
			return
		}
		// The key is ours even if a follow-up step of the store failed.
		log.WithError(err).Warn("entity claimed with a dedup store error")
	}
	if !fresh {
		e.stats.duplicates.Add(1)
		e.metrics.Entities.WithLabelValues(entityDuplicate).Inc()
		log.Debug("duplicate entity dropped")
		return
	}
	e.stats.discovered.Add(1)
	e.metrics.Entities.WithLabelValues(entityDiscovered).Inc()

	seed := models.NewRecord(found.Key)
	e.logConflicts(log, seed.Fold(found.Fields))
	ent := e.entities.add(found.Key)

	if found.DetailURL == "" || !e.filter.Filter(found.DetailURL) {
		ent.mu.Lock()
		e.finalize(log, ent, seed)
		ent.mu.Unlock()
		return
	}
	e.frontier.push(models.CrawlTask{
		URL:     found.DetailURL,
		Kind:    models.Detail,
		Carried: models.CarriedContext{Key: found.Key, Seed: seed},
	})
}

func (e *Engine) handleDetail(ctx context.Context, log *logrus.Entry, task models.CrawlTask) {
	ent := e.entities.get(task.Carried.Key)
	if !e.expect(log, ent, task, stateDiscovered) {
		return
	}

	doc, err := e.fetch(ctx, task)
	if err != nil {
		e.fail(ctx, log, ent, err)
		return
	}
	page := e.spider.ParseDetail(doc)

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.state != stateDiscovered {
		e.anomaly(log, task, "entity changed state during fetch")
		return
	}

	record := models.NewRecord(task.Carried.Key)
	if task.Carried.Seed != nil {
		record = task.Carried.Seed.Clone()
	}
	e.logConflicts(log, record.Fold(page.Fields))

	plan := e.plan(log, page.Tabs)
	if len(plan) == 0 {
		e.finalize(log, ent, record)
		return
	}

	ent.record = record
	ent.state = stateTabs
	ent.pending = len(plan)
	for _, tab := range plan {
		ent.markTabPage(tab.Field(), tab.URL)
		e.frontier.push(models.CrawlTask{
			URL:     tab.URL,
			Kind:    models.Tab,
			Carried: models.CarriedContext{Key: task.Carried.Key, Tab: tab, Page: 1},
		})
	}
	log.WithField("tabs", len(plan)).Debug("detail folded")
}

// plan drops skip-listed tabs, tabs outside the allow-list and repeated
// field names.
func (e *Engine) plan(log *logrus.Entry, tabs []models.TabRef) []models.TabRef {
	var plan []models.TabRef
	fields := make(map[string]bool, len(tabs))
	for _, tab := range tabs {
		field := tab.Field()
		switch {
		case tab.URL == "" || field == "Tab":
			continue
		case e.skip[field]:
			continue
		case fields[field]:
			continue
		case !e.filter.Filter(tab.URL):
			log.WithField("tab", tab.Title).Debug("tab outside allow-list")
			continue
		}
		fields[field] = true
		plan = append(plan, tab)
	}
	return plan
}

func (e *Engine) handleTab(ctx context.Context, log *logrus.Entry, task models.CrawlTask) {
	tab := task.Carried.Tab
	log = log.WithFields(logrus.Fields{"tab": tab.Title, "page": task.Carried.Page})

	ent := e.entities.get(task.Carried.Key)
	if !e.expect(log, ent, task, stateTabs) {
		return
	}

	doc, err := e.fetch(ctx, task)
	if err != nil {
		e.fail(ctx, log, ent, err)
		return
	}
	page := e.spider.ParseTab(doc, tab)
	if page.Content.Tab == "" {
		page.Content.Tab = tab.Title
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.state != stateTabs {
		e.anomaly(log, task, "entity changed state during fetch")
		return
	}

	record := ent.record.Clone()
	e.logConflicts(log, record.Fold(models.Fields{{Name: tab.Field(), Value: page.Content}}))
	ent.record = record

	if next := page.Next; next != "" &&
		task.Carried.Page < e.config.MaxTabPages &&
		e.filter.Filter(next) &&
		ent.markTabPage(tab.Field(), next) {
		e.frontier.push(models.CrawlTask{
			URL:  next,
			Kind: models.Tab,
			Carried: models.CarriedContext{
				Key:  task.Carried.Key,
				Tab:  tab,
				Page: task.Carried.Page + 1,
			},
		})
		return
	}

	ent.pending--
	if ent.pending == 0 {
		e.finalize(log, ent, ent.record)
	}
}

// expect reports whether ent is in the state task needs. Tasks for
// finished entities are dropped.
func (e *Engine) expect(log *logrus.Entry, ent *entity, task models.CrawlTask, want entityState) bool {
	if ent == nil {
		e.anomaly(log, task, "task for unknown entity")
		return false
	}
	ent.mu.Lock()
	state := ent.state
	ent.mu.Unlock()
	if state == want {
		return true
	}
	if state == stateFailed {
		// Remaining tabs of a failed entity.
		e.metrics.Tasks.WithLabelValues(task.Kind.String(), outcomeSkipped).Inc()
		log.Debug("entity already failed, task dropped")
		return false
	}
	e.anomaly(log, task, "task for entity in state "+state.String())
	return false
}

// finalize emits record. Callers hold ent.mu.
func (e *Engine) finalize(log *logrus.Entry, ent *entity, record *models.Record) {
	ent.state = stateFinalized
	ent.record = nil
	ent.tabPages = nil
	e.stats.finalized.Add(1)
	e.metrics.Entities.WithLabelValues(entityFinalized).Inc()
	log.WithField("fields", record.Len()).Debug("entity finalized")
	e.results <- record
}

func (e *Engine) fail(ctx context.Context, log *logrus.Entry, ent *entity, err error) {
	if ctx.Err() != nil {
		// Cancelled runs abandon the entity instead.
		return
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.terminal() {
		return
	}
	ent.state = stateFailed
	ent.record = nil
	e.stats.failed.Add(1)
	e.metrics.Entities.WithLabelValues(entityFailed).Inc()
	log.WithError(err).Warn("entity chain aborted")
}

func (e *Engine) anomaly(log *logrus.Entry, task models.CrawlTask, reason string) {
	e.stats.anomalies.Add(1)
	e.metrics.Tasks.WithLabelValues(task.Kind.String(), outcomeSkipped).Inc()
	log.Warn(reason)
}

func (e *Engine) logConflicts(log *logrus.Entry, conflicts []models.Conflict) {
	for _, c := range conflicts {
		log.WithField("field", c.Field).Debug(c.String())
	}
}
