// Package browser wraps the remote browsing resource the agent drives.
// Everything above this package talks to Page and Element only, so the
// playwright connection can be swapped for the scripted board in tests.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type WaitCondition string

const (
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitLoad             WaitCondition = "load"
	WaitNetworkIdle      WaitCondition = "networkidle"
)

// Rect is an element's bounding box in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Page is one tab of the browsing resource. Implementations are not safe
// for concurrent use; a session drives its page from a single goroutine.
type Page interface {
	Goto(url string, wait WaitCondition, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	WaitForLoadState(state WaitCondition, timeout time.Duration) error
	// Query returns the first match, or nil when nothing matches.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	Evaluate(script string) (any, error)
	Content() (string, error)
	URL() string
	MouseMove(x, y float64, steps int) error
	Screenshot(path string) error
	IsClosed() bool
	Close() error
}

type Element interface {
	BoundingBox() (*Rect, error)
	ScrollIntoView() error
	Click() error
	InnerText() (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(name string) (string, error)
	Query(selector string) (Element, error)
}

// ErrTransientNavigation marks navigation failures worth one more attempt
// (aborted requests, client-side blocking, fast redirects).
var ErrTransientNavigation = errors.New("transient navigation error")

// NavigateRetryDelay is the pause between the two Navigate attempts.
var NavigateRetryDelay = time.Second

var transientMarkers = []string{"ERR_ABORTED", "ERR_BLOCKED_BY_CLIENT", "frame was detached", "interrupted by another navigation"}

// IsTransientNavigation reports whether err looks like a navigation that was
// cut short rather than refused.
func IsTransientNavigation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientNavigation) {
		return true
	}
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Navigate loads url waiting for DOMContentLoaded and, if that fails for any
// reason, retries once waiting for the full load event.
func Navigate(ctx context.Context, page Page, url string, timeout time.Duration) error {
	attempts := []WaitCondition{WaitDOMContentLoaded, WaitLoad}
	var lastErr error
	for i, wait := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := page.Goto(url, wait, timeout)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < len(attempts)-1 {
			if err := Sleep(ctx, NavigateRetryDelay); err != nil {
				return err
			}
		}
	}
	if IsTransientNavigation(lastErr) {
		return fmt.Errorf("navigate %s: %w: %v", url, ErrTransientNavigation, lastErr)
	}
	return fmt.Errorf("navigate %s: %w", url, lastErr)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
