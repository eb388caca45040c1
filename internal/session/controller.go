// Package session runs one job search end to end: it owns the browser tab,
// waits for a LinkedIn login, opens the search and relays the extraction
// machine's events.
package session

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-jobsearch-agent/internal/agent"
	"go-jobsearch-agent/internal/browser"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
)

const (
	MsgWaitingForLogin = "waiting for login"
	MsgLoginTimeout    = "login timeout"
	MsgCancelled       = "search cancelled"
	MsgAlreadyConsumed = "search stream already consumed"
)

// Acquirer hands out a browser tab and the function that gives it back.
// *browser.PlaywrightManager implements it.
type Acquirer interface {
	Acquire(ctx context.Context) (browser.Page, func(), error)
}

type Options struct {
	LoginPollInterval time.Duration
	LoginMaxAttempts  int
	NavTimeout        time.Duration
	ProbeSettle       time.Duration
	PostNavSettle     time.Duration
}

func DefaultOptions() Options {
	return Options{
		LoginPollInterval: 5 * time.Second,
		LoginMaxAttempts:  24,
		NavTimeout:        60 * time.Second,
		ProbeSettle:       3 * time.Second,
		PostNavSettle:     3 * time.Second,
	}
}

type Controller struct {
	acquirer Acquirer
	machine  *agent.Machine
	pacer    *browser.Pacer
	opts     Options
	log      *zap.SugaredLogger
}

func NewController(acquirer Acquirer, machine *agent.Machine, pacer *browser.Pacer, opts Options, log *zap.SugaredLogger) *Controller {
	return &Controller{
		acquirer: acquirer,
		machine:  machine,
		pacer:    pacer,
		opts:     opts,
		log:      logger.OrNop(log),
	}
}

func (c *Controller) StrategyName() string { return c.machine.Strategy().Name() }

// RunSearch returns the event stream of one search for q. The stream can be
// ranged over once; ranging again yields a single Error. It always ends with
// Complete or Error unless the consumer stops first, and the browser tab is
// given back however it ends.
func (c *Controller) RunSearch(ctx context.Context, q models.SearchQuery) iter.Seq[models.Event] {
	var used atomic.Bool
	return func(yield func(models.Event) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(models.Error(MsgAlreadyConsumed))
			return
		}
		c.run(ctx, q, yield)
	}
}

func (c *Controller) run(ctx context.Context, q models.SearchQuery, yield func(models.Event) bool) {
	id := uuid.NewString()
	log := c.log.With("session", id)

	if err := q.Validate(); err != nil {
		yield(models.Error(err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Infow("🚀 Starting job search", "keywords", q.Keywords, "location", q.Location, "strategy", c.StrategyName())
	if !yield(models.Progress(fmt.Sprintf("🚀 Starting job search (%s selectors)...", c.StrategyName()))) {
		return
	}

	page, release, err := c.acquirer.Acquire(ctx)
	if err != nil {
		log.Errorw("❌ Browser unavailable", "error", err)
		yield(models.Error(fmt.Sprintf("browser unavailable: %v", err)))
		return
	}
	defer func() {
		release()
		log.Debug("browser tab released")
	}()

	ok, err := c.waitForLogin(ctx, page, yield)
	if err != nil {
		c.fail(ctx, log, yield, err)
		return
	}
	if !ok {
		return
	}

	searchURL := BuildSearchURL(q)
	log.Infof("🌐 Navigating to %s", searchURL)
	if err := browser.Navigate(ctx, page, searchURL, c.opts.NavTimeout); err != nil {
		c.fail(ctx, log, yield, fmt.Errorf("navigation failed: %w", err))
		return
	}
	if err := browser.Sleep(ctx, c.opts.PostNavSettle); err != nil {
		c.fail(ctx, log, yield, err)
		return
	}
	if err := c.pacer.MouseJiggle(ctx, page); err != nil && ctx.Err() == nil {
		log.Debugf("mouse jiggle: %v", err)
	}
	if !yield(models.Progress(fmt.Sprintf("📍 On: %s", truncate(page.URL(), 60)))) {
		return
	}

	st := agent.NewSessionState(id, page, q)
	for ev := range c.machine.Run(ctx, st) {
		if !yield(ev) {
			return
		}
		if ev.Terminal() {
			return
		}
	}
	if ctx.Err() != nil {
		c.fail(ctx, log, yield, ctx.Err())
	}
}

// waitForLogin probes once and then polls until the browser is
// authenticated. It reports false when the stream already ended.
func (c *Controller) waitForLogin(ctx context.Context, page browser.Page, yield func(models.Event) bool) (bool, error) {
	ok, err := c.probeLogin(ctx, page)
	if err != nil {
		return false, err
	}
	if ok {
		return yield(models.Progress("✅ Browser ready, logged in to LinkedIn")), nil
	}

	c.log.Info("🔐 Not logged in, waiting for the user to log in...")
	if !yield(models.Progress(MsgWaitingForLogin)) {
		return false, nil
	}
	for attempt := 1; attempt <= c.opts.LoginMaxAttempts; attempt++ {
		if err := browser.Sleep(ctx, c.opts.LoginPollInterval); err != nil {
			return false, err
		}
		ok, err := c.probeLogin(ctx, page)
		if err != nil {
			return false, err
		}
		if ok {
			c.log.Infof("✅ Logged in after %d polls", attempt)
			return yield(models.Progress("✅ Browser ready, logged in to LinkedIn")), nil
		}
	}

	c.log.Errorw("❌ Login wait exhausted", "attempts", c.opts.LoginMaxAttempts, "error", ErrAuthenticationTimeout)
	yield(models.Error(MsgLoginTimeout))
	return false, nil
}

func (c *Controller) fail(ctx context.Context, log *zap.SugaredLogger, yield func(models.Event) bool, err error) {
	if ctx.Err() != nil {
		log.Warnw("⚠️ Search cancelled", "error", ctx.Err())
		yield(models.Error(MsgCancelled))
		return
	}
	log.Errorw("❌ Search failed", "error", err)
	yield(models.Error(truncate(err.Error(), 200)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
