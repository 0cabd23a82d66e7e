// Package browser wraps a headless Chrome session behind the few page
// operations the show crawlers need: navigate, accept consent dialogs,
// trigger "load more" pagination, and snapshot the rendered DOM.
package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options configures a browser session.
type Options struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless controls the local launcher mode. Ignored for remote Chrome.
	Headless bool

	// NavTimeout bounds navigation plus initial page load. Default: 30s.
	NavTimeout time.Duration

	// WaitTimeout bounds selector waits and pagination clicks. Default: 10s.
	WaitTimeout time.Duration
}

func (o *Options) defaults() {
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 10 * time.Second
	}
}

// Session owns one Chrome instance. A session belongs to exactly one show
// crawler for the duration of its run and must be closed on every exit path.
type Session struct {
	opts     Options
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewSession launches Chrome (or connects to a remote instance).
func NewSession(opts Options) (*Session, error) {
	opts.defaults()

	s := &Session{opts: opts}

	controlURL := opts.RemoteURL
	if controlURL == "" {
		s.launcher = launcher.New().Headless(opts.Headless)
		u, err := s.launcher.Launch()
		if err != nil {
			return nil, eris.Wrap(err, "browser: launch chrome")
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if s.launcher != nil {
			s.launcher.Cleanup()
		}
		return nil, eris.Wrap(err, "browser: connect")
	}
	s.browser = b

	return s, nil
}

// Open creates a stealth tab and navigates it to the URL, waiting for the
// initial load within the navigation timeout.
func (s *Session) Open(ctx context.Context, url string) (*Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, eris.Wrap(err, "browser: create tab")
	}

	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		_ = page.Close()
		return nil, eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Slow late-loading assets are tolerable; the DOM is usually usable.
		zap.L().Debug("browser: wait load timed out", zap.String("url", url), zap.Error(err))
	}

	return &Page{page: page, url: url, waitTimeout: s.opts.WaitTimeout}, nil
}

// Close shuts Chrome down. Safe to call once per session.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return err
}

// Page is one open tab.
type Page struct {
	page        *rod.Page
	url         string
	waitTimeout time.Duration
}

// URL returns the address the page was opened with.
func (p *Page) URL() string { return p.url }

// AcceptConsent clicks the first matching consent/cookie button, if any.
// A missing dialog is the common case and not an error.
func (p *Page) AcceptConsent(ctx context.Context, selectors ...string) {
	for _, sel := range selectors {
		el, err := p.page.Context(ctx).Timeout(2 * time.Second).Element(sel)
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			zap.L().Debug("browser: consent click failed",
				zap.String("selector", sel),
				zap.Error(err),
			)
			continue
		}
		return
	}
}

// TriggerMore clicks a "load more" control. Returns false when the control is
// absent or no longer clickable, which ends pagination.
func (p *Page) TriggerMore(ctx context.Context, selector string) bool {
	el, err := p.page.Context(ctx).Timeout(p.waitTimeout).Element(selector)
	if err != nil {
		return false
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		zap.L().Debug("browser: load-more click failed",
			zap.String("selector", selector),
			zap.Error(err),
		)
		return false
	}
	// Give the page a moment to append new entries.
	time.Sleep(500 * time.Millisecond)
	return true
}

// ScrollToBottom scrolls the window to the end to trigger lazy content.
func (p *Page) ScrollToBottom(ctx context.Context) {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		zap.L().Debug("browser: scroll failed", zap.String("url", p.url), zap.Error(err))
	}
}

// WaitForSelector blocks until the selector appears or the timeout elapses.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.waitTimeout
	}
	_, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return eris.Wrapf(err, "browser: wait for %s", selector)
	}
	return nil
}

// HTML serialises the rendered DOM as outer HTML.
func (p *Page) HTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", eris.Wrapf(err, "browser: snapshot %s", p.url)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}
