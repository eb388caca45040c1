package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

type Options struct {
	//CDP endpoint of a running Chrome; when empty a local Chromium is launched
	CDPURL   string
	Headless bool
	//Only used for launched browsers: an attached Chrome already has its own session
	Cookies []playwright.OptionalCookie
}

// PlaywrightManager owns the process-wide browser connection. Each Acquire
// opens a fresh tab so concurrent sessions never share a page.
type PlaywrightManager struct {
	mu      sync.Mutex
	opts    Options
	log     *zap.SugaredLogger
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func NewPlaywright(opts Options, log *zap.SugaredLogger) *PlaywrightManager {
	return &PlaywrightManager{opts: opts, log: log}
}

// Acquire returns a new tab and the func that releases it. The connection is
// checked for liveness first and re-established if the browser went away.
func (pm *PlaywrightManager) Acquire(ctx context.Context) (Page, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.browser != nil && !pm.browser.IsConnected() {
		pm.log.Warn("🔄 Browser connection lost, reconnecting...")
		pm.closeLocked()
	}
	if pm.browser == nil {
		if err := pm.connectLocked(); err != nil {
			pm.closeLocked()
			return nil, nil, err
		}
	}

	page, err := pm.context.NewPage()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open new tab: %w", err)
	}
	pm.log.Info("✅ New tab opened")

	adapter := &pwPage{page: page}
	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := adapter.Close(); err != nil {
				pm.log.Debugf("closing tab: %v", err)
			}
		})
	}
	return adapter, release, nil
}

func (pm *PlaywrightManager) connectLocked() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright: %w", err)
	}
	pm.pw = pw

	if pm.opts.CDPURL != "" {
		pm.log.Infof("🔗 Connecting to existing Chrome browser at %s...", pm.opts.CDPURL)
		b, err := pw.Chromium.ConnectOverCDP(pm.opts.CDPURL)
		if err != nil {
			return fmt.Errorf("cannot connect to Chrome at %s (start it with --remote-debugging-port=9222): %w", pm.opts.CDPURL, err)
		}
		pm.browser = b
		if contexts := b.Contexts(); len(contexts) > 0 {
			pm.context = contexts[0]
			return nil
		}
		bc, err := b.NewContext()
		if err != nil {
			return fmt.Errorf("failed to create browser context: %w", err)
		}
		pm.context = bc
		return nil
	}

	pm.log.Info("🚀 Launching Chromium...")
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(pm.opts.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return fmt.Errorf("could not launch browser: %w", err)
	}
	pm.browser = b

	bc, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1366, Height: 900},
	})
	if err != nil {
		return fmt.Errorf("failed to create browser context: %w", err)
	}
	if len(pm.opts.Cookies) > 0 {
		if err := bc.AddCookies(pm.opts.Cookies); err != nil {
			return fmt.Errorf("failed to add cookies: %w", err)
		}
		pm.log.Infof("🍪 Loaded %d cookies", len(pm.opts.Cookies))
	}
	pm.context = bc
	return nil
}

// Connected reports whether a live browser connection is held.
func (pm *PlaywrightManager) Connected() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.browser != nil && pm.browser.IsConnected()
}

// Close drops the connection. For an attached Chrome this disconnects
// without closing the user's browser window.
func (pm *PlaywrightManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.closeLocked()
}

func (pm *PlaywrightManager) closeLocked() error {
	var errs []error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		pm.browser = nil
		pm.context = nil
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
		pm.pw = nil
	}
	return errors.Join(errs...)
}

type pwPage struct {
	page playwright.Page
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func waitUntil(w WaitCondition) *playwright.WaitUntilState {
	switch w {
	case WaitLoad:
		return playwright.WaitUntilStateLoad
	case WaitNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateDomcontentloaded
	}
}

func loadState(w WaitCondition) *playwright.LoadState {
	switch w {
	case WaitLoad:
		return playwright.LoadStateLoad
	case WaitDOMContentLoaded:
		return playwright.LoadStateDomcontentloaded
	default:
		return playwright.LoadStateNetworkidle
	}
}

func (p *pwPage) Goto(url string, wait WaitCondition, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil(wait),
		Timeout:   ms(timeout),
	})
	return err
}

func (p *pwPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: ms(timeout),
	})
	return err
}

func (p *pwPage) WaitForLoadState(state WaitCondition, timeout time.Duration) error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState(state),
		Timeout: ms(timeout),
	})
}

func (p *pwPage) Query(selector string) (Element, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil || el == nil {
		return nil, err
	}
	return &pwElement{el: el}, nil
}

func (p *pwPage) QueryAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	els := make([]Element, len(handles))
	for i, h := range handles {
		els[i] = &pwElement{el: h}
	}
	return els, nil
}

func (p *pwPage) Evaluate(script string) (any, error) {
	return p.page.Evaluate(script)
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) MouseMove(x, y float64, steps int) error {
	return p.page.Mouse().Move(x, y, playwright.MouseMoveOptions{
		Steps: playwright.Int(steps),
	})
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *pwPage) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *pwPage) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

type pwElement struct {
	el playwright.ElementHandle
}

func (e *pwElement) BoundingBox() (*Rect, error) {
	box, err := e.el.BoundingBox()
	if err != nil || box == nil {
		return nil, err
	}
	return &Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *pwElement) ScrollIntoView() error {
	return e.el.ScrollIntoViewIfNeeded()
}

func (e *pwElement) Click() error {
	return e.el.Click()
}

func (e *pwElement) InnerText() (string, error) {
	return e.el.InnerText()
}

func (e *pwElement) Attribute(name string) (string, error) {
	return e.el.GetAttribute(name)
}

func (e *pwElement) Query(selector string) (Element, error) {
	el, err := e.el.QuerySelector(selector)
	if err != nil || el == nil {
		return nil, err
	}
	return &pwElement{el: el}, nil
}
