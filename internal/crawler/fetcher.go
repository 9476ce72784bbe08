package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-resty/resty/v2"
)

// Fetcher retrieves and parses one page. Failures are always returned as a
// *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*Document, error)
}

type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxRetries is the number of extra attempts after a transport error,
	// a 5xx or a 429. Zero disables retrying.
	MaxRetries   int
	RetryBackoff time.Duration
	// Redirects outside Filter are refused. Nil follows any redirect.
	Filter URLFilter
}

type HTTPFetcher struct {
	client *resty.Client
	parser *Parser
	retry  retrypolicy.RetryPolicy[*resty.Response]
}

func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	client := resty.New()
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Filter != nil {
		filter := opts.Filter
		client.SetRedirectPolicy(
			resty.FlexibleRedirectPolicy(10),
			resty.RedirectPolicyFunc(func(req *http.Request, _ []*http.Request) error {
				if !filter.Filter(req.URL.String()) {
					return fmt.Errorf("redirect to %s leaves the allow-list", req.URL)
				}
				return nil
			}),
		)
	}

	return &HTTPFetcher{
		client: client,
		parser: NewParser(),
		retry:  newRetryPolicy(opts.MaxRetries, opts.RetryBackoff),
	}
}

func newRetryPolicy(maxRetries int, backoff time.Duration) retrypolicy.RetryPolicy[*resty.Response] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	builder := retrypolicy.NewBuilder[*resty.Response]().
		HandleIf(shouldRetry).
		WithMaxRetries(maxRetries).
		ReturnLastFailure()
	if backoff > 0 {
		builder = builder.WithBackoff(backoff, 10*backoff).WithJitterFactor(0.1)
	}
	return builder.Build()
}

// shouldRetry retries on network errors, server errors (5xx) and rate
// limits (429).
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	code := resp.StatusCode()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*Document, error) {
	resp, err := failsafe.With(f.retry).WithContext(ctx).Get(func() (*resty.Response, error) {
		return f.client.R().SetContext(ctx).Get(targetURL)
	})
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode()}
	}

	finalURL := targetURL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}
	doc, err := f.parser.Parse(bytes.NewReader(resp.Body()), finalURL, resp.StatusCode())
	if err != nil {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode(), Err: err}
	}
	return doc, nil
}
