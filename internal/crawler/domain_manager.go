package crawler

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// DomainManager enforces politeness: a single limiter spaces every request
// of the run, whatever worker or host it comes from, and robots.txt groups
// are cached per host.
type DomainManager struct {
	mu            sync.Mutex
	limiter       *rate.Limiter
	robotsCache   map[string]*robotsEntry
	userAgent     string
	respectRobots bool
	client        *http.Client
}

func NewDomainManager(delay time.Duration, userAgent string, respectRobots bool) *DomainManager {
	limit := rate.Inf
	if delay > 0 {
		// 1 = burst size (allow 1 request immediately, then wait)
		limit = rate.Every(delay)
	}
	return &DomainManager{
		limiter:       rate.NewLimiter(limit, 1),
		robotsCache:   make(map[string]*robotsEntry),
		userAgent:     userAgent,
		respectRobots: respectRobots,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Wait blocks until the politeness delay allows another request.
func (d *DomainManager) Wait(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

func (d *DomainManager) IsAllowed(ctx context.Context, link string) bool {
	if !d.respectRobots {
		return true
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	group := d.robotsGroup(ctx, u)
	if group == nil {
		return true // No robots.txt or parse error = Allowed
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// robotsEntry is filled once per host. Callers for the same host wait on
// the first fetch; other hosts are not blocked by it.
type robotsEntry struct {
	once  sync.Once
	group *robotstxt.Group
}

func (d *DomainManager) robotsGroup(ctx context.Context, u *url.URL) *robotstxt.Group {
	d.mu.Lock()
	entry, exists := d.robotsCache[u.Host]
	if !exists {
		entry = &robotsEntry{}
		d.robotsCache[u.Host] = entry
	}
	d.mu.Unlock()

	entry.once.Do(func() {
		entry.group = d.fetchRobots(ctx, u)
	})
	return entry.group
}

func (d *DomainManager) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Scheme+"://"+u.Host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", d.userAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(d.userAgent)
}
