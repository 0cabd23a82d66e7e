// Package crawler implements the generic show-crawler engine that turns one
// source's archive into new appearance records.
package crawler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/polittalk/talkwatch/internal/browser"
	"github.com/polittalk/talkwatch/internal/resilience"
)

// Page is one loaded archive or episode page. browser.Page implements it for
// rendered sources; staticPage covers plain-HTML archives.
type Page interface {
	URL() string
	AcceptConsent(ctx context.Context, selectors ...string)
	TriggerMore(ctx context.Context, selector string) bool
	ScrollToBottom(ctx context.Context)
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Fetcher opens pages. One fetcher instance is owned by one show crawler for
// the duration of its run.
type Fetcher interface {
	Open(ctx context.Context, url string) (Page, error)
	Close() error
}

var _ Page = (*browser.Page)(nil)

// BrowserFetcher drives a headless browser session.
type BrowserFetcher struct {
	session *browser.Session
}

// NewBrowserFetcher wraps a browser session.
func NewBrowserFetcher(session *browser.Session) *BrowserFetcher {
	return &BrowserFetcher{session: session}
}

func (f *BrowserFetcher) Open(ctx context.Context, url string) (Page, error) {
	return f.session.Open(ctx, url)
}

func (f *BrowserFetcher) Close() error {
	return f.session.Close()
}

// HTTPFetcher serves sources whose archives are static HTML; it skips the
// browser entirely.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "talkwatch/1.0",
	}
}

func (f *HTTPFetcher) Open(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: build request %s", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	res, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", url)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		err := eris.Errorf("fetch: get %s: status %d", url, res.StatusCode)
		if resilience.IsTransientHTTPStatus(res.StatusCode) {
			return nil, resilience.NewTransientError(err, res.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read %s", url)
	}

	return &staticPage{url: url, html: string(body)}, nil
}

func (f *HTTPFetcher) Close() error { return nil }

// staticPage is a fetched HTML document; pagination operations are no-ops.
type staticPage struct {
	url  string
	html string
}

func (p *staticPage) URL() string                                        { return p.url }
func (p *staticPage) AcceptConsent(context.Context, ...string)           {}
func (p *staticPage) TriggerMore(context.Context, string) bool           { return false }
func (p *staticPage) ScrollToBottom(context.Context)                     {}
func (p *staticPage) HTML(context.Context) (string, error)               { return p.html, nil }
func (p *staticPage) Close() error                                       { return nil }
func (p *staticPage) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}
