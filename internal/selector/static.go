package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-jobsearch-agent/internal/browser"
)

const staticErrorCeiling = 3

// Static resolves selectors from the fixed candidate lists. It never calls
// out and, for a given snapshot, always picks the same map.
type Static struct{}

func NewStatic() *Static { return &Static{} }

func (s *Static) Name() string { return "static" }

func (s *Static) ErrorCeiling() int { return staticErrorCeiling }

// MapFor picks the first card candidate present in snapshot. ok is false if
// none is.
func (s *Static) MapFor(snapshot string) (m Map, ok bool) {
	m = Defaults()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return m, false
	}
	for _, c := range CardCandidates {
		if doc.Find(c).Length() > 0 {
			m.CardContainer = c
			return m, true
		}
	}
	return m, false
}

// Resolve confirms the snapshot's card candidate against the live page and
// falls back to trying every candidate live, in order, when the snapshot is
// stale.
func (s *Static) Resolve(ctx context.Context, page browser.Page, snapshot string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m, ok := s.MapFor(snapshot)
	if ok {
		if cards := queryCards(page, m.CardContainer); len(cards) > 0 {
			return Result{Selectors: m, Cards: cards}, nil
		}
	}
	for _, c := range CardCandidates {
		if ok && c == m.CardContainer {
			continue
		}
		if cards := queryCards(page, c); len(cards) > 0 {
			m.CardContainer = c
			return Result{Selectors: m, Cards: cards}, nil
		}
	}
	return Result{}, fmt.Errorf("static resolution: %w", ErrNoCards)
}
