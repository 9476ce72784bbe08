package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// RenderFetcher loads pages in headless Chrome so that content injected by
// client-side scripts (tab bodies, "load more" blocks) is part of the
// parsed document.
type RenderFetcher struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	startOnce     sync.Once
	startErr      error

	timeout time.Duration
	wait    time.Duration
	parser  *Parser
}

func NewRenderFetcher(opts FetcherOptions, wait time.Duration) *RenderFetcher {
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.Background(),
		append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(opts.UserAgent),
		)...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RenderFetcher{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		timeout:       timeout,
		wait:          wait,
		parser:        NewParser(),
	}
}

func (f *RenderFetcher) Fetch(ctx context.Context, targetURL string) (*Document, error) {
	f.startOnce.Do(func() {
		// Starts the browser; every fetch then opens its own tab.
		f.startErr = chromedp.Run(f.browserCtx)
	})
	if f.startErr != nil {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("start browser: %w", f.startErr)}
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.CompareAndSwap(0, e.Response.Status)
		}
	})

	var body, location string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-IN,en;q=0.9"}),
		chromedp.Navigate(targetURL),
		chromedp.Sleep(f.wait),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &FetchError{URL: targetURL, Err: err}
	}

	code := int(status.Load())
	if code >= 400 {
		return nil, &FetchError{URL: targetURL, StatusCode: code}
	}
	if code == 0 {
		code = 200
	}
	if location == "" {
		location = targetURL
	}
	doc, err := f.parser.Parse(strings.NewReader(body), location, code)
	if err != nil {
		return nil, &FetchError{URL: targetURL, StatusCode: code, Err: err}
	}
	return doc, nil
}

func (f *RenderFetcher) Close() error {
	f.browserCancel()
	f.allocCancel()
	return nil
}
