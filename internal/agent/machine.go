// Package agent walks a LinkedIn results listing as an explicit state
// machine: analyse the page, resolve selectors, open each card, validate the
// records and turn the page, until a limit or the error ceiling is reached.
package agent

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"go-jobsearch-agent/internal/browser"
	"go-jobsearch-agent/internal/extract"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
	"go-jobsearch-agent/internal/selector"
)

var (
	readinessCandidates = []string{
		"ul.jobs-search__results-list",
		".jobs-search-results-list",
		"[data-job-id]",
		"li[data-occludable-job-id]",
	}
	detailReadyCandidates = []string{
		"div.jobs-description__content",
		"div.jobs-description",
		".jobs-unified-description",
		".jobs-description-content",
		"div.show-more-less-html__markup",
	}
)

// Config holds the waits of the machine. The zero value waits for nothing,
// which suits the in-memory board in tests.
type Config struct {
	// MaxErrors overrides the strategy's error ceiling when positive.
	MaxErrors int

	StabilizeDelay     time.Duration
	ReadinessTimeout   time.Duration
	ScrollPasses       int
	ContentAttempts    int
	ContentSettle      time.Duration
	MinContentChars    int
	NetworkIdleTimeout time.Duration
	DetailSettle       time.Duration
	DetailTimeout      time.Duration
	PageTurnWait       time.Duration

	Screenshots *browser.ScreenshotDebugger
}

// DefaultConfig returns the waits used against the live site.
func DefaultConfig() Config {
	return Config{
		StabilizeDelay:     2 * time.Second,
		ReadinessTimeout:   10 * time.Second,
		ScrollPasses:       3,
		ContentAttempts:    3,
		ContentSettle:      time.Second,
		MinContentChars:    1000,
		NetworkIdleTimeout: 5 * time.Second,
		DetailSettle:       2 * time.Second,
		DetailTimeout:      5 * time.Second,
		PageTurnWait:       4 * time.Second,
	}
}

// Machine runs sessions. It holds no per-session state and may run several
// sessions at once, each on its own page.
type Machine struct {
	strategy  selector.Strategy
	extractor *extract.Extractor
	pacer     *browser.Pacer
	cfg       Config
	log       *zap.SugaredLogger
}

func NewMachine(strategy selector.Strategy, extractor *extract.Extractor, pacer *browser.Pacer, cfg Config, log *zap.SugaredLogger) *Machine {
	return &Machine{
		strategy:  strategy,
		extractor: extractor,
		pacer:     pacer,
		cfg:       cfg,
		log:       logger.OrNop(log),
	}
}

func (m *Machine) Strategy() selector.Strategy { return m.strategy }

// ErrorCeiling is the number of consecutive errors that ends a session.
func (m *Machine) ErrorCeiling() int {
	if m.cfg.MaxErrors > 0 {
		return m.cfg.MaxErrors
	}
	return m.strategy.ErrorCeiling()
}

// Run drives st to StateDone and yields the session's events. The sequence
// ends with Complete unless ctx is cancelled or the consumer stops early.
func (m *Machine) Run(ctx context.Context, st *SessionState) iter.Seq[models.Event] {
	return func(yield func(models.Event) bool) {
		ceiling := m.ErrorCeiling()
		log := m.log.With("session", st.ID, "strategy", m.strategy.Name())
		for {
			if st.State == StateDone {
				log.Infof("🏁 Session finished with %d jobs after %d transitions", st.Records.Len(), st.Transitions)
				yield(models.Complete(st.Records.Len()))
				return
			}
			if ctx.Err() != nil {
				return
			}

			for _, ev := range m.Step(ctx, st) {
				if !yield(ev) {
					return
				}
			}

			if st.ConsecutiveErrors >= ceiling && st.State != StateDone {
				log.Errorf("❌ %d consecutive errors, giving up", st.ConsecutiveErrors)
				st.State = StateDone
				if !yield(models.Progress(fmt.Sprintf("❌ Too many consecutive errors (%d), stopping", st.ConsecutiveErrors))) {
					return
				}
			}
		}
	}
}

type transition func(ctx context.Context, st *SessionState) []models.Event

func (m *Machine) transitions() map[State]transition {
	return map[State]transition{
		StateAnalyzePage:      m.analyzePage,
		StateResolveSelectors: m.resolveSelectors,
		StateBrowseListings:   m.browseListings,
		StateValidateRecords:  m.validateRecords,
		StatePaginate:         m.paginate,
	}
}

// Step applies the transition for st.State. A panicking transition counts as
// an error and sends the machine back to StateAnalyzePage.
func (m *Machine) Step(ctx context.Context, st *SessionState) (events []models.Event) {
	from := st.State
	if st.visited == nil {
		st.visited = make(map[State]int)
	}
	st.visited[from]++
	st.Transitions++

	defer func() {
		if r := recover(); r != nil {
			m.log.Errorw("💥 Transition panicked", "session", st.ID, "state", from, "panic", r)
			st.ConsecutiveErrors++
			st.resetPage()
			st.State = StateAnalyzePage
			events = append(events, models.Progress(fmt.Sprintf("❌ Unexpected error in %s, re-analyzing...", from)))
		}
	}()

	t, ok := m.transitions()[from]
	if !ok {
		st.State = StateDone
		return nil
	}
	return t(ctx, st)
}

func (m *Machine) analyzePage(ctx context.Context, st *SessionState) []models.Event {
	if err := browser.Sleep(ctx, m.cfg.StabilizeDelay); err != nil {
		return nil
	}

	if !m.awaitAny(st.Page, readinessCandidates, m.cfg.ReadinessTimeout) {
		if ctx.Err() != nil {
			return nil
		}
		st.ConsecutiveErrors++
		m.log.Warnw("⚠️ Page not ready", "session", st.ID, "page", st.PageNumber, "error", ErrPageNotReady)
		m.screenshot(st, "linkedin-not-ready", "results list did not appear")
		return []models.Event{models.Progress("⚠️ Page load error: results list did not appear, retrying...")}
	}

	if err := m.pacer.StagedScroll(ctx, st.Page, m.cfg.ScrollPasses); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		m.log.Debugf("scroll results list: %v", err)
	}

	html, err := m.captureContent(ctx, st.Page)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		st.ConsecutiveErrors++
		m.log.Warnw("⚠️ Could not read page content", "session", st.ID, "error", err)
		return []models.Event{models.Progress(fmt.Sprintf("⚠️ Page load error: %s", truncate(err.Error(), 80)))}
	}

	st.snapshot = html
	st.State = StateResolveSelectors
	return []models.Event{models.Progress(fmt.Sprintf("🔍 Analyzing page %d...", st.PageNumber))}
}

func (m *Machine) resolveSelectors(ctx context.Context, st *SessionState) []models.Event {
	res, err := m.strategy.Resolve(ctx, st.Page, st.snapshot)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		st.ConsecutiveErrors++
		st.resetPage()
		st.State = StateAnalyzePage
		err = fmt.Errorf("%w: %w", ErrStructuralResolution, err)
		m.log.Warnw("⚠️ Selector resolution failed", "session", st.ID, "page", st.PageNumber, "attempt", st.ConsecutiveErrors, "error", err)
		m.screenshot(st, "linkedin-no-cards", "no job cards matched")
		return []models.Event{models.Progress("⚠️ No job cards found, re-analyzing...")}
	}

	st.ConsecutiveErrors = 0
	st.Selectors = res.Selectors
	st.cards = res.Cards
	st.cursor = 0
	st.pageAccepted = 0
	st.State = StateBrowseListings
	return []models.Event{models.Progress(fmt.Sprintf("✅ Found %d job cards using: %s", len(res.Cards), truncate(res.Selectors.CardContainer, 50)))}
}

// browseListings visits one card per call so cancellation is noticed between
// cards.
func (m *Machine) browseListings(ctx context.Context, st *SessionState) []models.Event {
	if st.cursor >= len(st.cards) || st.Records.Full() {
		st.State = StateValidateRecords
		return []models.Event{models.Progress(fmt.Sprintf("👁️ Browsed %d jobs on page %d. Total: %d", st.pageAccepted, st.PageNumber, st.Records.Len()))}
	}

	idx := st.cursor
	card := st.cards[idx]
	st.cursor++

	job, err := m.visitCard(ctx, st, card)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warnw("⚠️ Skipping card", "session", st.ID, "page", st.PageNumber, "card", idx, "error", err)
		}
		return nil
	}
	if job == nil || !st.Records.Admit(*job) {
		return nil
	}
	st.pageAccepted++
	m.log.Infof("💼 %s @ %s", job.Title, job.Company)
	return []models.Event{models.RecordFound(*job)}
}

// visitCard opens card and extracts its record. A nil job with a nil error
// means the card was already seen.
func (m *Machine) visitCard(ctx context.Context, st *SessionState, card browser.Element) (*models.Job, error) {
	hint := cardHint(card)
	if hint != "" && st.Records.Seen(hint) {
		return nil, nil
	}

	if err := card.ScrollIntoView(); err != nil {
		m.log.Debugf("scroll card into view: %v", err)
	}
	if err := m.pacer.Pause(ctx); err != nil {
		return nil, err
	}

	if err := m.pacer.Click(ctx, st.Page, card); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		inner, qerr := card.Query("a, div[role='button']")
		if qerr != nil || inner == nil {
			return nil, fmt.Errorf("%w: activate card: %w", ErrCardExtraction, err)
		}
		if err := m.pacer.Click(ctx, st.Page, inner); err != nil {
			return nil, fmt.Errorf("%w: activate card link: %w", ErrCardExtraction, err)
		}
	}

	if err := browser.Sleep(ctx, m.cfg.DetailSettle); err != nil {
		return nil, err
	}
	m.awaitAny(st.Page, detailReadyCandidates, m.cfg.DetailTimeout)

	job := m.extractor.Extract(ctx, st.Page, hint, st.Selectors)
	if err := m.pacer.Pause(ctx); err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: no title or company in detail panel", ErrCardExtraction)
	}
	return job, nil
}

func (m *Machine) validateRecords(_ context.Context, st *SessionState) []models.Event {
	if dropped := st.Records.Retain(models.Job.Valid); dropped > 0 {
		m.log.Warnw("⚠️ Dropped invalid records", "session", st.ID, "count", dropped)
	}

	total := st.Records.Len()
	if total >= st.Query.MaxResults {
		st.State = StateDone
		return []models.Event{models.Progress(fmt.Sprintf("🎯 Reached target: %d jobs!", st.Query.MaxResults))}
	}
	st.State = StatePaginate
	return []models.Event{models.Progress(fmt.Sprintf("✅ Validated %d total jobs", total))}
}

func (m *Machine) paginate(ctx context.Context, st *SessionState) []models.Event {
	q := st.Query
	if !ShouldContinue(st.PageNumber, q.MaxPages, st.Records.Len(), q.MaxResults) {
		st.State = StateDone
		if st.PageNumber >= q.MaxPages {
			return []models.Event{models.Progress(fmt.Sprintf("📄 Reached max pages (%d)", q.MaxPages))}
		}
		return []models.Event{models.Progress(fmt.Sprintf("✅ Collected %d jobs", st.Records.Len()))}
	}

	if !m.turnPage(ctx, st) {
		st.State = StateDone
		if ctx.Err() != nil {
			return nil
		}
		return []models.Event{models.Progress("📄 No more pages")}
	}

	if err := browser.Sleep(ctx, m.cfg.PageTurnWait); err != nil {
		return nil
	}
	if err := st.Page.WaitForLoadState(browser.WaitNetworkIdle, 2*m.cfg.NetworkIdleTimeout); err != nil {
		m.log.Debugf("network idle after page turn: %v", err)
	}

	st.PageNumber++
	st.resetPage()
	st.State = StateAnalyzePage
	return []models.Event{models.Progress(fmt.Sprintf("📄 Navigated to page %d", st.PageNumber))}
}

// turnPage activates the first next-page control that exists and accepts
// the click.
func (m *Machine) turnPage(ctx context.Context, st *SessionState) bool {
	for _, sel := range nextPageCandidates(st.Selectors, st.PageNumber) {
		el, err := st.Page.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if err := el.ScrollIntoView(); err != nil {
			m.log.Debugf("scroll %q into view: %v", sel, err)
		}
		if err := m.pacer.Pause(ctx); err != nil {
			return false
		}
		if err := m.pacer.Click(ctx, st.Page, el); err != nil {
			if ctx.Err() != nil {
				return false
			}
			m.log.Warnw("⚠️ Next page control did not respond", "session", st.ID, "selector", sel, "error", err)
			continue
		}
		return true
	}
	return false
}

// captureContent reads the page markup, retrying while it looks too short to
// be the rendered results page. The last read is returned either way.
func (m *Machine) captureContent(ctx context.Context, page browser.Page) (string, error) {
	for attempt := 0; attempt < m.cfg.ContentAttempts; attempt++ {
		if err := browser.Sleep(ctx, m.cfg.ContentSettle); err != nil {
			return "", err
		}
		_ = page.WaitForLoadState(browser.WaitNetworkIdle, m.cfg.NetworkIdleTimeout)
		html, err := page.Content()
		if err == nil && len(html) > m.cfg.MinContentChars {
			return html, nil
		}
		if err != nil {
			m.log.Debugf("page content attempt %d: %v", attempt+1, err)
		}
	}
	if err := browser.Sleep(ctx, 2*m.cfg.ContentSettle); err != nil {
		return "", err
	}
	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

// awaitAny waits for the first of candidates to appear and reports whether
// one did.
func (m *Machine) awaitAny(page browser.Page, candidates []string, timeout time.Duration) bool {
	for _, sel := range candidates {
		if err := page.WaitForSelector(sel, timeout); err == nil {
			return true
		}
	}
	return false
}

func (m *Machine) screenshot(st *SessionState, name, message string) {
	if _, err := m.cfg.Screenshots.Capture(st.Page, name, message); err != nil {
		m.log.Debugf("debug screenshot: %v", err)
	}
}

func cardHint(card browser.Element) string {
	for _, attr := range []string{"data-occludable-job-id", "data-job-id"} {
		if v, err := card.Attribute(attr); err == nil && v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
