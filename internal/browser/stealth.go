package browser

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Pacer paces every interaction with the remote page the way a person
// would: random pauses between operations, a jittered multi-step cursor
// approach before every click, and staged scrolling.
type Pacer struct {
	MinPause  time.Duration
	MaxPause  time.Duration
	JitterPx  float64
	MoveSteps int
	Settle    time.Duration
	ScrollGap time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPacer(minPause, maxPause time.Duration, jitterPx float64) *Pacer {
	return &Pacer{
		MinPause:  minPause,
		MaxPause:  maxPause,
		JitterPx:  jitterPx,
		MoveSteps: 8,
		Settle:    200 * time.Millisecond,
		ScrollGap: 800 * time.Millisecond,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// NewInstantPacer never sleeps. Jitter and cursor moves still happen.
func NewInstantPacer(seed uint64) *Pacer {
	return &Pacer{
		JitterPx:  6,
		MoveSteps: 8,
		rnd:       rand.New(rand.NewPCG(seed, seed)),
	}
}

func (p *Pacer) float64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Float64()
}

// PauseDuration draws a pause uniformly from [MinPause, MaxPause].
func (p *Pacer) PauseDuration() time.Duration {
	if p.MaxPause <= p.MinPause {
		return p.MinPause
	}
	span := float64(p.MaxPause - p.MinPause)
	return p.MinPause + time.Duration(p.float64()*span)
}

// Pause waits for a random human-like interval.
func (p *Pacer) Pause(ctx context.Context) error {
	return Sleep(ctx, p.PauseDuration())
}

// Target returns the point at the centre of box shifted by up to JitterPx
// in each axis.
func (p *Pacer) Target(box Rect) (x, y float64) {
	jx := (p.float64()*2 - 1) * p.JitterPx
	jy := (p.float64()*2 - 1) * p.JitterPx
	return box.X + box.Width/2 + jx, box.Y + box.Height/2 + jy
}

// Click moves the cursor onto el in several steps, settles briefly and
// clicks. Failing to hover does not prevent the click.
func (p *Pacer) Click(ctx context.Context, page Page, el Element) error {
	if box, err := el.BoundingBox(); err == nil && box != nil {
		x, y := p.Target(*box)
		if err := page.MouseMove(x, y, p.MoveSteps); err == nil {
			if err := Sleep(ctx, p.Settle); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return el.Click()
}

// StagedScroll scrolls the results list and window down in passes so
// lazy-loaded cards render, then returns to the top so the first cards are
// in view before clicking.
func (p *Pacer) StagedScroll(ctx context.Context, page Page, passes int) error {
	for i := 0; i < passes; i++ {
		if _, err := page.Evaluate(scrollDownScript); err != nil {
			return err
		}
		if err := Sleep(ctx, p.ScrollGap); err != nil {
			return err
		}
	}
	_, err := page.Evaluate(scrollTopScript)
	return err
}

const (
	scrollDownScript = `() => { const list = document.querySelector('ul.jobs-search__results-list, .jobs-search-results-list'); if (list) list.scrollTop = list.scrollHeight; window.scrollBy(0, window.innerHeight * 0.9); }`
	scrollTopScript  = `() => { const list = document.querySelector('ul.jobs-search__results-list, .jobs-search-results-list'); if (list) list.scrollTop = 0; window.scrollTo({top: 0}); }`
)

// MouseJiggle wanders the cursor so the tab receives focus and input events.
func (p *Pacer) MouseJiggle(ctx context.Context, page Page) error {
	for i := 0; i < 2; i++ {
		x := 200 + p.float64()*600
		y := 200 + p.float64()*400
		if err := page.MouseMove(x, y, p.MoveSteps); err != nil {
			return err
		}
		if err := Sleep(ctx, p.Settle); err != nil {
			return err
		}
	}
	return nil
}
