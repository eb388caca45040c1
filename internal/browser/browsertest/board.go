// Package browsertest provides a scripted LinkedIn-like job board that
// satisfies browser.Page. The board renders real markup for its current
// state and answers selectors with goquery, so CSS candidates behave the
// way they would against the live site.
package browsertest

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-jobsearch-agent/internal/browser"
)

// Listing is one job on the board.
type Listing struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Posted      string
	Description string
	//HideHint drops the data-occludable-job-id attribute from the card
	HideHint bool
	//FailClick makes every click on the card, or inside it, fail
	FailClick bool
}

// Board is a fake results site. Build it with NewBoard; the defaults give an
// authenticated board whose cards match the usual LinkedIn selectors.
type Board struct {
	Pages [][]Listing
	//UnknownLayout renders cards no known selector matches
	UnknownLayout bool
	//LoggedIn decides each login probe; nil means always authenticated
	LoggedIn func(probe int) bool
	//GotoErrs are returned, in order, by the next Goto calls
	GotoErrs []error

	mu       sync.Mutex
	page     int
	selected int
	url      string
	closed   bool

	Probes      int
	NextClicks  int
	CardClicks  int
	MouseMoves  int
	Screenshots []string
	Scripts     []string
	Visited     []string
}

func NewBoard(pages ...[]Listing) *Board {
	return &Board{Pages: pages, selected: -1}
}

// Listings builds n well-formed listings with ids <prefix>1..<prefix>n.
func Listings(prefix string, n int) []Listing {
	out := make([]Listing, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = Listing{
			ID:          id,
			Title:       "Backend Engineer " + id,
			Company:     "Company " + id,
			Location:    "Berlin, Germany",
			Posted:      "2 days ago",
			Description: "Build services in Go. Job " + id,
		}
	}
	return out
}

var _ browser.Page = (*Board)(nil)

func (b *Board) PageIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

func (b *Board) Goto(url string, wait browser.WaitCondition, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Visited = append(b.Visited, url)
	if len(b.GotoErrs) > 0 {
		err := b.GotoErrs[0]
		b.GotoErrs = b.GotoErrs[1:]
		if err != nil {
			return err
		}
	}
	if strings.Contains(url, "/feed") {
		probe := b.Probes
		b.Probes++
		if b.LoggedIn != nil && !b.LoggedIn(probe) {
			b.url = "https://www.linkedin.com/login?session_redirect=%2Ffeed%2F"
			return nil
		}
	}
	b.url = url
	if strings.Contains(url, "/jobs/search") {
		b.page = 0
		b.selected = -1
	}
	return nil
}

func (b *Board) WaitForSelector(selector string, timeout time.Duration) error {
	doc := b.document()
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("timeout %v exceeded waiting for %q", timeout, selector)
	}
	return nil
}

func (b *Board) WaitForLoadState(state browser.WaitCondition, timeout time.Duration) error {
	return nil
}

func (b *Board) Query(selector string) (browser.Element, error) {
	sel := b.document().Find(selector).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &element{board: b, sel: sel}, nil
}

func (b *Board) QueryAll(selector string) ([]browser.Element, error) {
	var out []browser.Element
	b.document().Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{board: b, sel: s})
	})
	return out, nil
}

func (b *Board) Evaluate(script string) (any, error) {
	b.mu.Lock()
	b.Scripts = append(b.Scripts, script)
	b.mu.Unlock()
	if strings.Contains(script, "outerHTML") {
		panel := b.document().Find(".jobs-unified-top-card, .job-details-jobs-unified-top-card").First()
		if panel.Length() == 0 {
			return "", nil
		}
		return goquery.OuterHtml(panel)
	}
	return nil, nil
}

func (b *Board) Content() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", errors.New("target page, context or browser has been closed")
	}
	return b.renderLocked(), nil
}

func (b *Board) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected >= 0 && b.page < len(b.Pages) {
		if l := b.Pages[b.page][b.selected]; l.ID != "" {
			return "https://www.linkedin.com/jobs/search/?currentJobId=" + l.ID
		}
	}
	return b.url
}

func (b *Board) MouseMove(x, y float64, steps int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.MouseMoves++
	return nil
}

func (b *Board) Screenshot(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Screenshots = append(b.Screenshots, path)
	return nil
}

func (b *Board) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Board) document() *goquery.Document {
	b.mu.Lock()
	markup := b.renderLocked()
	b.mu.Unlock()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		panic(err)
	}
	return doc
}

func (b *Board) renderLocked() string {
	var sb strings.Builder
	sb.WriteString(`<html><head><title>Jobs | LinkedIn</title></head><body><nav id="global-nav"></nav>`)
	sb.WriteString(`<!--` + strings.Repeat(" padding", 150) + ` -->`)
	sb.WriteString(`<div class="jobs-search-results-list"><ul class="jobs-search__results-list">`)

	var listings []Listing
	if b.page < len(b.Pages) {
		listings = b.Pages[b.page]
	}
	for i, l := range listings {
		attrs := fmt.Sprintf(` data-fake-role="card" data-fake-index="%d"`, i)
		if !l.HideHint && !b.UnknownLayout {
			attrs += fmt.Sprintf(` data-occludable-job-id="%s"`, html.EscapeString(l.ID))
		}
		class := "jobs-search-results__list-item"
		if b.UnknownLayout {
			class = "mystery-row"
		}
		fmt.Fprintf(&sb, `<li class="%s"%s><a class="job-card-container__link" href="/jobs/view/%s/">%s</a>`+
			`<span class="job-card-container__primary-description">%s</span></li>`,
			class, attrs, html.EscapeString(l.ID), html.EscapeString(l.Title), html.EscapeString(l.Company))
	}
	sb.WriteString(`</ul></div>`)

	if b.selected >= 0 && b.selected < len(listings) {
		l := listings[b.selected]
		sb.WriteString(`<div class="jobs-search__job-details--container"><div class="job-details-jobs-unified-top-card">`)
		if l.Title != "" {
			fmt.Fprintf(&sb, `<h1 class="t-24 t-bold inline">%s</h1>`, html.EscapeString(l.Title))
		}
		if l.Company != "" {
			fmt.Fprintf(&sb, `<div class="job-details-jobs-unified-top-card__company-name"><a href="/company/x">%s</a></div>`, html.EscapeString(l.Company))
		}
		if l.Location != "" {
			fmt.Fprintf(&sb, `<span class="jobs-unified-top-card__bullet">%s</span>`, html.EscapeString(l.Location))
		}
		if l.Posted != "" {
			fmt.Fprintf(&sb, `<span class="jobs-unified-top-card__posted-date">%s</span>`, html.EscapeString(l.Posted))
		}
		sb.WriteString(`</div>`)
		fmt.Fprintf(&sb, `<div class="jobs-description__content">%s</div>`, html.EscapeString(l.Description))
		sb.WriteString(`</div>`)
	}

	if b.page+1 < len(b.Pages) {
		sb.WriteString(`<div class="artdeco-pagination"><button aria-label="Next" data-fake-role="next">Next</button></div>`)
	}
	sb.WriteString(`</body></html>`)
	return sb.String()
}

func (b *Board) click(sel *goquery.Selection) error {
	owner := sel.Closest("[data-fake-role]")
	role, _ := owner.Attr("data-fake-role")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("target page, context or browser has been closed")
	}
	switch role {
	case "card":
		idx, _ := strconv.Atoi(owner.AttrOr("data-fake-index", "-1"))
		if b.page >= len(b.Pages) || idx < 0 || idx >= len(b.Pages[b.page]) {
			return errors.New("element is not attached to the DOM")
		}
		if b.Pages[b.page][idx].FailClick {
			return errors.New("element is not visible")
		}
		b.CardClicks++
		b.selected = idx
	case "next":
		b.NextClicks++
		b.page++
		b.selected = -1
	}
	return nil
}

type element struct {
	board *Board
	sel   *goquery.Selection
}

func (e *element) BoundingBox() (*browser.Rect, error) {
	idx, _ := strconv.Atoi(e.sel.AttrOr("data-fake-index", "0"))
	return &browser.Rect{X: 120, Y: 140 + float64(idx)*88, Width: 360, Height: 72}, nil
}

func (e *element) ScrollIntoView() error { return nil }

func (e *element) Click() error { return e.board.click(e.sel) }

func (e *element) InnerText() (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *element) Attribute(name string) (string, error) {
	return e.sel.AttrOr(name, ""), nil
}

func (e *element) Query(selector string) (browser.Element, error) {
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &element{board: e.board, sel: sel}, nil
}
