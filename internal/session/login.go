package session

import (
	"context"
	"errors"
	"strings"

	"go-jobsearch-agent/internal/browser"
)

const (
	feedURL = "https://www.linkedin.com/feed/"
	homeURL = "https://www.linkedin.com/"
)

// ErrAuthenticationTimeout means nobody logged in before the wait ran out.
var ErrAuthenticationTimeout = errors.New("authentication wait timed out")

var unauthenticatedMarkers = []string{"login", "authwall", "checkpoint"}

// probeLogin opens a members-only page and reports whether the browser was
// allowed to stay on it.
func (c *Controller) probeLogin(ctx context.Context, page browser.Page) (bool, error) {
	if err := browser.Navigate(ctx, page, feedURL, c.opts.NavTimeout); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.log.Debugf("feed probe: %v", err)
		if err := browser.Navigate(ctx, page, homeURL, c.opts.NavTimeout); err != nil && ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	if err := browser.Sleep(ctx, c.opts.ProbeSettle); err != nil {
		return false, err
	}
	current := page.URL()
	for _, marker := range unauthenticatedMarkers {
		if strings.Contains(current, marker) {
			return false, nil
		}
	}
	return true, nil
}

// CheckLogin opens a tab, probes the login state once and gives the tab back.
func (c *Controller) CheckLogin(ctx context.Context) (bool, error) {
	page, release, err := c.acquirer.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	return c.probeLogin(ctx, page)
}
