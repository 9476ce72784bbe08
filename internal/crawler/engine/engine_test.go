package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-crawler/internal/crawler"
	"edu-crawler/internal/dedup"
	"edu-crawler/pkg/models"
)

const base = "https://site.test"

// fakeFetcher serves pages from memory and records every URL asked for.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	calls  []string
	onCall func(url string)
	parser *crawler.Parser
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, parser: crawler.NewParser()}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*crawler.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	hook := f.onCall
	body, ok := f.pages[url]
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, &crawler.FetchError{URL: url, Err: err}
	}
	if !ok {
		return nil, &crawler.FetchError{URL: url, StatusCode: 404}
	}
	return f.parser.ParseString(body, url)
}

func (f *fakeFetcher) fetched(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

// testSpider reads a minimal markup:
// listing: <li data-title="..."><a href="detail"></a><span class=city></span></li>, <a class=next>
// detail:  <p class=estd>, <nav><a href=...>Tab</a></nav>
// tab:     <section><h2>title</h2><p>content</p></section>, <a class=more>
type testSpider struct{}

func (testSpider) Name() string { return "test" }

func (testSpider) ParseListing(doc *crawler.Document) ListingPage {
	var page ListingPage
	doc.Find("li[data-title]").Each(func(_ int, s *goquery.Selection) {
		title, _ := s.Attr("data-title")
		href, _ := s.Find("a").Attr("href")
		page.Entities = append(page.Entities, Entity{
			Key:       models.NewEntityKey(title),
			DetailURL: doc.Resolve(href),
			Fields: models.Fields{
				{Name: "title", Value: title},
				{Name: "city", Value: models.Text(strings.TrimSpace(s.Find(".city").Text()))},
			},
		})
	})
	if links := doc.Links("a.next"); len(links) > 0 {
		page.Next = links[0]
	}
	return page
}

func (testSpider) ParseDetail(doc *crawler.Document) DetailPage {
	page := DetailPage{Fields: models.Fields{
		{Name: "estd", Value: models.Text(strings.TrimSpace(doc.Find("p.estd").Text()))},
	}}
	doc.Find("nav a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		page.Tabs = append(page.Tabs, models.TabRef{Title: strings.TrimSpace(s.Text()), URL: doc.Resolve(href)})
	})
	return page
}

func (testSpider) ParseTab(doc *crawler.Document, tab models.TabRef) TabPage {
	page := TabPage{Content: models.NewTabContent(tab.Title)}
	doc.Find("section").Each(func(_ int, s *goquery.Selection) {
		page.Content.Content = page.Content.Content.AppendUnique(models.Section{
			Title:   s.Find("h2").Text(),
			Content: s.Find("p").Text(),
		})
	})
	if links := doc.Links("a.more"); len(links) > 0 {
		page.Next = links[0]
	}
	return page
}

type memSink struct {
	mu      sync.Mutex
	records []*models.Record
	fails   int
	closed  bool
}

func (s *memSink) Save(_ context.Context, batch []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != 0 {
		if s.fails > 0 {
			s.fails--
		}
		return errors.New("database is down")
	}
	s.records = append(s.records, batch...)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) byKey() map[models.EntityKey]*models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.EntityKey]*models.Record)
	for _, r := range s.records {
		out[r.Key] = r
	}
	return out
}

func (s *memSink) keys() []models.EntityKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []models.EntityKey
	for _, r := range s.records {
		keys = append(keys, r.Key)
	}
	return keys
}

func card(title, detail string) string {
	return fmt.Sprintf(`<li data-title="%s"><a href="%s">go</a><span class="city">Pune</span></li>`, title, detail)
}

func listing(next string, cards ...string) string {
	html := "<html><body><ul>" + strings.Join(cards, "") + "</ul>"
	if next != "" {
		html += `<a class="next" href="` + next + `">next</a>`
	}
	return html + "</body></html>"
}

func detail(tabs ...string) string {
	html := `<html><body><p class="estd">1958</p><nav>`
	for _, t := range tabs {
		html += fmt.Sprintf(`<a href="%s">%s</a>`, strings.ToLower(strings.ReplaceAll(t, " ", "-")), t)
	}
	return html + "</nav></body></html>"
}

func tabPage(more string, sections ...string) string {
	html := "<html><body>"
	for _, s := range sections {
		html += fmt.Sprintf("<section><h2>%s</h2><p>%s body</p></section>", s, s)
	}
	if more != "" {
		html += `<a class="more" href="` + more + `">load more</a>`
	}
	return html + "</body></html>"
}

func newTestEngine(t *testing.T, cfg Config, fetcher crawler.Fetcher, sink Sink, opts ...Option) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Millisecond
	}
	opts = append([]Option{WithLogger(logrus.NewEntry(logger))}, opts...)
	return NewEngine(cfg, testSpider{}, fetcher, crawler.NewDomainManager(0, "test", false), sink, opts...)
}

func TestEngine_TwoListingPagesDedup(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		base + "/list":        listing("/list?page=2", card("IIT Bombay", "/c/iitb"), card("IIT  Delhi", "/c/iitd")),
		base + "/list?page=2": listing("/list", card("IIT Delhi", "/c/iitd"), card("IIT Madras", "/c/iitm")),
		base + "/c/iitb":      detail(),
		base + "/c/iitd":      detail(),
		base + "/c/iitm":      detail(),
	})
	sink := &memSink{}
	eng := newTestEngine(t, Config{Workers: 3, BatchSize: 2}, fetcher, sink)

	stats, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.EntityKey{"IIT Bombay", "IIT Delhi", "IIT Madras"}, sink.keys())
	assert.Equal(t, int64(3), stats.Finalized)
	assert.Equal(t, int64(1), stats.Duplicates)
	assert.Equal(t, int64(3), stats.Saved)
	assert.Equal(t, 1, fetcher.fetched(base+"/list"), "listing pages are fetched once")
	assert.Equal(t, 1, fetcher.fetched(base+"/c/iitd"))
	assert.True(t, sink.closed)

	rec := sink.byKey()["IIT Bombay"]
	require.NotNil(t, rec)
	assert.Equal(t, []string{"title", "city", "estd"}, rec.Names())
	assert.Equal(t, "1958", rec.Text("estd"))
}

func TestEngine_SkipListedTabNeverFetched(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		base + "/list":            listing("", card("IIT Bombay", "/c/iitb/")),
		base + "/c/iitb/":         detail("Info", "Gallery", "Q&A", "Cut Offs", "Info"),
		base + "/c/iitb/info":     tabPage("", "About"),
		base + "/c/iitb/cut-offs": tabPage("", "JEE"),
	})
	sink := &memSink{}
	eng := newTestEngine(t, Config{Workers: 2}, fetcher, sink)

	_, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)

	assert.Equal(t, 0, fetcher.fetched(base+"/c/iitb/gallery"))
	assert.Equal(t, 0, fetcher.fetched(base+"/c/iitb/q&a"))
	assert.Equal(t, 1, fetcher.fetched(base+"/c/iitb/info"))

	rec := sink.byKey()["IIT Bombay"]
	require.NotNil(t, rec)
	_, hasGallery := rec.Get("galleryTab")
	assert.False(t, hasGallery)

	info, _ := rec.Get("infoTab")
	cutoffs, _ := rec.Get("cutoffsTab")
	assert.Equal(t, models.Sections{{Title: "About", Content: "About body"}}, info.(models.TabContent).Content)
	assert.Equal(t, "Cut Offs", cutoffs.(models.TabContent).Tab)
}

func TestEngine_TabPaginationConcatenatesInOrder(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		base + "/list":                  listing("", card("IIT Bombay", "/c/iitb/")),
		base + "/c/iitb/":               detail("Placements"),
		base + "/c/iitb/placements":     tabPage("/c/iitb/placements?p=2", "2023", "2022"),
		base + "/c/iitb/placements?p=2": tabPage("/c/iitb/placements?p=3", "2021", "2022"),
		base + "/c/iitb/placements?p=3": tabPage("", "2020"),
	})
	sink := &memSink{}
	eng := newTestEngine(t, Config{Workers: 4}, fetcher, sink)

	_, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)

	rec := sink.byKey()["IIT Bombay"]
	require.NotNil(t, rec)
	v, _ := rec.Get("placementsTab")
	var titles []string
	for _, s := range v.(models.TabContent).Content {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"2023", "2022", "2021", "2020"}, titles)
}

func TestEngine_TabPaginationBounded(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		base + "/list":       listing("", card("A", "/a/"), card("B", "/b/")),
		base + "/a/":         detail("Loop"),
		base + "/a/loop":     tabPage("/a/loop?p=2", "one"),
		base + "/a/loop?p=2": tabPage("/a/loop", "two"),
		base + "/b/":         detail("Long"),
		base + "/b/long":     tabPage("/b/long?p=2", "1"),
		base + "/b/long?p=2": tabPage("/b/long?p=3", "2"),
		base + "/b/long?p=3": tabPage("", "3"),
	})
	sink := &memSink{}
	eng := newTestEngine(t, Config{Workers: 2, MaxTabPages: 2}, fetcher, sink)

	stats, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Finalized)
	assert.Equal(t, 1, fetcher.fetched(base+"/a/loop"))
	assert.Equal(t, 0, fetcher.fetched(base+"/b/long?p=3"))
}

func TestEngine_FetchErrorAbortsOnlyThatEntity(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		base + "/list":   listing("", card("A", "/a/"), card("B", "/b/"), card("C", "/c/")),
		base + "/a/":     detail(),
		base + "/c/":     detail("Info", "Courses"),
		base + "/c/info": tabPage("", "x"),
		// /b/ is missing, /c/courses is missing
	})
	sink := &memSink{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	eng := newTestEngine(t, Config{Workers: 2}, fetcher, sink, WithMetrics(metrics))

	stats, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)

	assert.Equal(t, []models.EntityKey{"A"}, sink.keys())
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(0), stats.Abandoned)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Entities.WithLabelValues(entityFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Entities.WithLabelValues(entityFinalized)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Tasks.WithLabelValues("listing", outcomeOK)))
}

func TestEngine_EntityWithoutDetailLinkFinalizedFromListing(t *testing.T) {
	allow, err := crawler.NewAllowList("site.test")
	require.NoError(t, err)
	fetcher := newFakeFetcher(map[string]string{
		base + "/list": listing("", card("Local", ""), card("Elsewhere", "https://other.example/x")),
	})
	sink := &memSink{}
	eng := newTestEngine(t, Config{}, fetcher, sink, WithFilter(allow))

	_, err = eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.EntityKey{"Local", "Elsewhere"}, sink.keys())
	assert.Equal(t, 0, fetcher.fetched("https://other.example/x"))
	assert.Equal(t, "Pune", sink.byKey()["Local"].Text("city"))
}

func TestEngine_SinkRetriesThenReportsFailure(t *testing.T) {
	pages := map[string]string{
		base + "/list": listing("", card("A", "")),
	}

	sink := &memSink{fails: 1}
	eng := newTestEngine(t, Config{SinkRetries: 1}, newFakeFetcher(pages), sink)
	stats, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Saved)

	sink = &memSink{fails: -1}
	eng = newTestEngine(t, Config{SinkRetries: 1}, newFakeFetcher(pages), sink)
	stats, err = eng.Run(context.Background(), base+"/list")

	var sinkErr *SinkWriteError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, []models.EntityKey{"A"}, sinkErr.Keys)
	assert.Equal(t, int64(0), stats.Saved)
	assert.True(t, sink.closed)
}

// readOnlyExpire adds keys but cannot set their TTL.
type readOnlyExpire struct {
	*redis.Client
}

func (readOnlyExpire) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetErr(errors.New("READONLY"))
	return cmd
}

func TestEngine_ClaimedEntityKeptWhenTTLFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := dedup.NewRedis(readOnlyExpire{client}, "run-ttl", time.Hour)

	fetcher := newFakeFetcher(map[string]string{
		base + "/list":        listing("/list?page=2", card("IIT Bombay", "/c/iitb")),
		base + "/list?page=2": listing("", card("IIT Bombay", "/c/iitb")),
		base + "/c/iitb":      detail(),
	})
	sink := &memSink{}
	eng := newTestEngine(t, Config{}, fetcher, sink, WithSeenStore(store))

	stats, err := eng.Run(context.Background(), base+"/list")
	require.NoError(t, err)
	assert.Equal(t, []models.EntityKey{"IIT Bombay"}, sink.keys())
	assert.Equal(t, int64(1), stats.Discovered)
	assert.Equal(t, int64(1), stats.Duplicates)
	assert.Equal(t, 1, fetcher.fetched(base+"/c/iitb"))
}

func TestEngine_CancelAbandonsUnfinishedEntities(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newFakeFetcher(map[string]string{
		base + "/list": listing("", card("Done", ""), card("Pending", "/p/")),
		base + "/p/":   detail(),
	})
	fetcher.onCall = func(url string) {
		if url == base+"/p/" {
			cancel()
		}
	}
	sink := &memSink{}
	eng := newTestEngine(t, Config{Workers: 1}, fetcher, sink)

	stats, err := eng.Run(ctx, base+"/list")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []models.EntityKey{"Done"}, sink.keys())
	assert.Equal(t, int64(1), stats.Abandoned)
	assert.Equal(t, int64(0), stats.Failed)
	assert.True(t, sink.closed)
}

func TestFrontier_DrainsWhenIdle(t *testing.T) {
	f := newFrontier()
	f.push(models.CrawlTask{URL: "a"})

	task, ok := f.next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", task.URL)

	released := make(chan bool)
	go func() {
		_, ok := f.next(context.Background())
		released <- ok
	}()

	f.push(models.CrawlTask{URL: "b"})
	assert.True(t, <-released)
	f.done()
	f.done()

	_, ok = f.next(context.Background())
	assert.False(t, ok)
}
